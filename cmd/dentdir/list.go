package main

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/fwojciec/dentdir"
)

// Filter converts the flags to a ClinicFilter.
func (f FilterFlags) Filter() (dentdir.ClinicFilter, error) {
	var filter dentdir.ClinicFilter
	if f.Status != "" {
		status, err := dentdir.ParseStatus(f.Status)
		if err != nil {
			return filter, err
		}
		filter.Status = &status
	}
	if f.City != "" {
		city := f.City
		filter.City = &city
	}
	if f.District != "" {
		district := f.District
		filter.District = &district
	}
	filter.Query = f.Query
	return filter, nil
}

// Run executes the list command.
func (c *ListCmd) Run(deps *Dependencies) error {
	clinics, err := findClinics(deps, c.FilterFlags)
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(deps.Stdout)
		enc.SetIndent("", "  ")
		if clinics == nil {
			clinics = []*dentdir.Clinic{}
		}
		return enc.Encode(clinics)
	}

	if len(clinics) == 0 {
		fmt.Fprintln(deps.Stdout, "No clinics found. Use 'dentdir search <location>' to add some.")
		return nil
	}

	tw := tabwriter.NewWriter(deps.Stdout, 0, 0, 2, ' ', 0)
	for _, cl := range clinics {
		location := cl.City
		if cl.District != "" {
			location = cl.District + ", " + cl.City
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", shortID(cl.ID), cl.Status, cl.Name, strings.Join(cl.Phones(), ", "), location)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(deps.Stdout, "%d clinics\n", len(clinics))
	return nil
}

// Run executes the stats command.
func (c *StatsCmd) Run(deps *Dependencies) error {
	clinics, err := deps.Clinics.FindClinics(deps.Ctx, dentdir.ClinicFilter{})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", dentdir.ErrorMessage(err))
		return err
	}

	s := dentdir.Summarize(clinics)
	fmt.Fprintf(deps.Stdout, "Total: %d\n", s.Total)
	for _, status := range dentdir.Statuses() {
		fmt.Fprintf(deps.Stdout, "  %-10s %d\n", status, s.ByStatus[status])
	}
	if len(s.ByCity) == 0 {
		return nil
	}

	cities := make([]string, 0, len(s.ByCity))
	for city := range s.ByCity {
		cities = append(cities, city)
	}
	slices.SortFunc(cities, func(a, b string) int {
		if n := cmp.Compare(s.ByCity[b], s.ByCity[a]); n != 0 {
			return n
		}
		return cmp.Compare(a, b)
	})
	fmt.Fprintln(deps.Stdout, "By city:")
	for _, city := range cities {
		fmt.Fprintf(deps.Stdout, "  %-14s %d\n", city, s.ByCity[city])
	}
	return nil
}

func findClinics(deps *Dependencies, flags FilterFlags) ([]*dentdir.Clinic, error) {
	filter, err := flags.Filter()
	if err == nil {
		var clinics []*dentdir.Clinic
		clinics, err = deps.Clinics.FindClinics(deps.Ctx, filter)
		if err == nil {
			return clinics, nil
		}
	}
	fmt.Fprintf(deps.Stderr, "error: %s\n", dentdir.ErrorMessage(err))
	return nil, err
}

// shortID returns the first eight characters of an ID.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
