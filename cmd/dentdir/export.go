package main

import (
	"bytes"
	"fmt"

	"github.com/fwojciec/dentdir"
	"github.com/fwojciec/dentdir/fs"
)

// Run executes the export command.
func (c *ExportCmd) Run(deps *Dependencies) error {
	clinics, err := findClinics(deps, c.FilterFlags)
	if err != nil {
		return err
	}
	if len(clinics) == 0 {
		fmt.Fprintln(deps.Stdout, "No clinics to export.")
		return nil
	}

	if c.Output == "-" {
		_, err := dentdir.WriteCSV(deps.Stdout, clinics)
		return err
	}

	var buf bytes.Buffer
	n, err := dentdir.WriteCSV(&buf, clinics)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", dentdir.ErrorMessage(err))
		return err
	}
	path := c.Output
	if path == "" {
		path = dentdir.ExportFilename(deps.Now())
	}
	if err := fs.WriteFileAtomic(path, buf.Bytes()); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", dentdir.ErrorMessage(err))
		return err
	}
	fmt.Fprintf(deps.Stdout, "Exported %d clinics to %s\n", n, path)
	return nil
}
