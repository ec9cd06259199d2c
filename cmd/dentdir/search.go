package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fwojciec/dentdir"
)

// Run executes the search command.
func (c *SearchCmd) Run(deps *Dependencies) error {
	location := strings.Join(c.Location, " ")
	result, err := deps.Ingester.Ingest(deps.Ctx, location, printProgress(deps.Stdout))
	return reportIngest(deps, result, err)
}

// Run executes the scan command.
func (c *ScanCmd) Run(deps *Dependencies) error {
	if !c.Force {
		err := dentdir.Errorf(dentdir.EINVALID, "scan issues %d queries; repeat with --force to confirm", len(dentdir.Provinces()))
		fmt.Fprintf(deps.Stderr, "error: %s\n", dentdir.ErrorMessage(err))
		return err
	}
	result, err := deps.Ingester.IngestProvinces(deps.Ctx, printProgress(deps.Stdout))
	return reportIngest(deps, result, err)
}

func reportIngest(deps *Dependencies, result *dentdir.IngestResult, err error) error {
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", dentdir.ErrorMessage(err))
		if dentdir.ErrorCode(err) == dentdir.ECONFIG {
			fmt.Fprintln(deps.Stderr, "Hint: set GEMINI_API_KEY or run 'dentdir key <key>'")
		}
		return err
	}
	if result.Queries == 0 {
		fmt.Fprintln(deps.Stdout, "Nothing to search.")
		return nil
	}
	fmt.Fprintf(deps.Stdout, "Done: %d queries, %d candidates, %d new clinics", result.Queries, result.Candidates, result.Added)
	if result.Skipped > 0 {
		fmt.Fprintf(deps.Stdout, ", %d skipped", result.Skipped)
	}
	fmt.Fprintln(deps.Stdout)
	return nil
}

// printProgress returns a ProgressFunc writing one line per event.
func printProgress(w io.Writer) dentdir.ProgressFunc {
	return func(event dentdir.ProgressEvent) {
		switch event.Type {
		case dentdir.ProgressStarted:
			fmt.Fprintf(w, "Running %d queries\n", event.Total)
		case dentdir.ProgressQuery:
			fmt.Fprintf(w, "[%d/%d] %s\n", event.Index+1, event.Total, event.Query)
		case dentdir.ProgressWaiting:
			fmt.Fprintf(w, "  %s\n", event.Message)
		case dentdir.ProgressBatch:
			fmt.Fprintf(w, "  %d new\n", len(event.Added))
			for _, c := range event.Added {
				fmt.Fprintf(w, "    + %s\n", c.Name)
			}
		case dentdir.ProgressSkipped:
			fmt.Fprintf(w, "  skipped: %s\n", event.Error)
		}
	}
}
