package dentdir

import (
	"context"
	"time"
)

// Ingester turns a location into persisted clinics.
type Ingester interface {
	// Ingest plans the queries for location and runs them in order.
	// Whitespace-only locations issue no queries.
	// Returns ECONFIG before any query if no credential is available and
	// ECONFLICT if another ingestion is in progress.
	Ingest(ctx context.Context, location string, progress ProgressFunc) (*IngestResult, error)

	// IngestProvinces runs one query per province.
	IngestProvinces(ctx context.Context, progress ProgressFunc) (*IngestResult, error)
}

// IngestResult summarizes an ingestion run.
type IngestResult struct {
	Queries    int `json:"queries"`
	Candidates int `json:"candidates"`
	Added      int `json:"added"`
	Skipped    int `json:"skipped"`
}

// ProgressType indicates the type of progress event.
type ProgressType string

// ProgressType values.
const (
	ProgressStarted  ProgressType = "started"
	ProgressQuery    ProgressType = "query"
	ProgressWaiting  ProgressType = "waiting"
	ProgressBatch    ProgressType = "batch"
	ProgressSkipped  ProgressType = "skipped"
	ProgressFinished ProgressType = "finished"
)

// ProgressEvent reports progress during an ingestion run.
type ProgressEvent struct {
	Type    ProgressType  `json:"type"`
	Message string        `json:"message"`
	Query   string        `json:"query,omitempty"`
	Index   int           `json:"index"`
	Total   int           `json:"total"`
	Attempt int           `json:"attempt,omitempty"`
	Wait    time.Duration `json:"wait,omitempty"`
	Added   []*Clinic     `json:"added,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// ProgressFunc is a callback for reporting ingestion progress.
type ProgressFunc func(event ProgressEvent)
