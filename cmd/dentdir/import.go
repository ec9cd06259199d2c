package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fwojciec/dentdir"
)

// Run executes the import command.
func (c *ImportCmd) Run(deps *Dependencies) error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %v\n", err)
		return err
	}
	var clinics []*dentdir.Clinic
	if err := json.Unmarshal(data, &clinics); err != nil {
		err = dentdir.Errorf(dentdir.EINVALID, "%s is not a JSON list of clinics: %v", c.File, err)
		fmt.Fprintf(deps.Stderr, "error: %s\n", dentdir.ErrorMessage(err))
		return err
	}

	if !c.Force {
		existing, err := deps.Clinics.FindClinics(deps.Ctx, dentdir.ClinicFilter{})
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", dentdir.ErrorMessage(err))
			return err
		}
		if len(existing) > 0 {
			err := dentdir.Errorf(dentdir.EINVALID, "import replaces %d stored clinics; repeat with --force to confirm", len(existing))
			fmt.Fprintf(deps.Stderr, "error: %s\n", dentdir.ErrorMessage(err))
			return err
		}
	}

	if err := deps.Clinics.ReplaceClinics(deps.Ctx, clinics); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", dentdir.ErrorMessage(err))
		return err
	}
	fmt.Fprintf(deps.Stdout, "Imported %d clinics\n", len(clinics))
	return nil
}
