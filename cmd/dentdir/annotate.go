package main

import (
	"fmt"
	"strings"

	"github.com/fwojciec/dentdir"
)

// Run executes the status command.
func (c *StatusCmd) Run(deps *Dependencies) error {
	status, err := dentdir.ParseStatus(c.Status)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", dentdir.ErrorMessage(err))
		return err
	}
	clinic, err := resolveClinic(deps, c.ID)
	if err != nil {
		return err
	}
	ok, err := deps.Clinics.SetStatus(deps.Ctx, clinic.ID, status)
	if err = updateResult(deps, clinic.ID, ok, err); err != nil {
		return err
	}
	fmt.Fprintf(deps.Stdout, "%s: %s\n", clinic.Name, status)
	return nil
}

// Run executes the note command.
func (c *NoteCmd) Run(deps *Dependencies) error {
	clinic, err := resolveClinic(deps, c.ID)
	if err != nil {
		return err
	}
	note := strings.Join(c.Note, " ")
	ok, err := deps.Clinics.SetNote(deps.Ctx, clinic.ID, note)
	if err = updateResult(deps, clinic.ID, ok, err); err != nil {
		return err
	}
	if note == "" {
		fmt.Fprintf(deps.Stdout, "%s: note cleared\n", clinic.Name)
		return nil
	}
	fmt.Fprintf(deps.Stdout, "%s: note saved\n", clinic.Name)
	return nil
}

func updateResult(deps *Dependencies, id string, ok bool, err error) error {
	if err == nil && !ok {
		err = dentdir.Errorf(dentdir.ENOTFOUND, "clinic %q not found", id)
	}
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", dentdir.ErrorMessage(err))
	}
	return err
}

// resolveClinic finds a clinic by full ID or by a prefix matching exactly
// one stored clinic.
func resolveClinic(deps *Dependencies, id string) (*dentdir.Clinic, error) {
	clinic, err := deps.Clinics.FindClinicByID(deps.Ctx, id)
	if err == nil {
		return clinic, nil
	}
	if dentdir.ErrorCode(err) != dentdir.ENOTFOUND || id == "" {
		fmt.Fprintf(deps.Stderr, "error: %s\n", dentdir.ErrorMessage(err))
		return nil, err
	}

	clinics, err := deps.Clinics.FindClinics(deps.Ctx, dentdir.ClinicFilter{})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", dentdir.ErrorMessage(err))
		return nil, err
	}
	var matches []*dentdir.Clinic
	for _, c := range clinics {
		if strings.HasPrefix(c.ID, id) {
			matches = append(matches, c)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		err = dentdir.Errorf(dentdir.ENOTFOUND, "clinic %q not found", id)
	default:
		err = dentdir.Errorf(dentdir.EINVALID, "ID prefix %q matches %d clinics", id, len(matches))
	}
	fmt.Fprintf(deps.Stderr, "error: %s\n", dentdir.ErrorMessage(err))
	return nil, err
}
