// Package ingest runs planned search queries against a search backend and
// merges the results into the clinic store.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/fwojciec/dentdir"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// Compile-time interface verification.
var _ dentdir.Ingester = (*Pipeline)(nil)

// ConnectFunc creates a Searcher authenticated with apiKey.
type ConnectFunc func(ctx context.Context, apiKey string) (dentdir.Searcher, error)

// Pipeline issues queries strictly one at a time, waits QueryDelay between
// consecutive queries and delivers each successful batch to Clinics as soon
// as it arrives. A query whose retries are exhausted contributes nothing and
// the run moves on. Only configuration errors, storage errors and
// cancellation end a run early.
type Pipeline struct {
	Planner     *dentdir.Planner
	Clinics     dentdir.ClinicService
	Credentials dentdir.CredentialService
	Connect     ConnectFunc
	Limiter     *CallLimiter
	Retry       RetryPolicy
	QueryDelay  time.Duration
	Sleep       SleepFunc
	NewID       func() string
	Logger      *slog.Logger

	once  sync.Once
	guard *semaphore.Weighted
}

// Ingest plans the queries for location and runs them.
func (p *Pipeline) Ingest(ctx context.Context, location string, progress dentdir.ProgressFunc) (*dentdir.IngestResult, error) {
	return p.Run(ctx, p.planner().Plan(location), progress)
}

// IngestProvinces runs one query per province.
func (p *Pipeline) IngestProvinces(ctx context.Context, progress dentdir.ProgressFunc) (*dentdir.IngestResult, error) {
	return p.Run(ctx, p.planner().PlanProvinces(), progress)
}

// Run issues the given queries in order. Duplicate queries are issued once.
// An empty query list returns an empty result without resolving
// credentials. Returns ECONFLICT if another run is in progress.
func (p *Pipeline) Run(ctx context.Context, queries []string, progress dentdir.ProgressFunc) (*dentdir.IngestResult, error) {
	queue := NewQueryQueue(uint(len(queries)))
	for _, q := range queries {
		queue.Push(q)
	}
	if queue.Len() == 0 {
		return &dentdir.IngestResult{}, nil
	}

	p.once.Do(func() { p.guard = semaphore.NewWeighted(1) })
	if !p.guard.TryAcquire(1) {
		return nil, dentdir.Errorf(dentdir.ECONFLICT, "an ingestion is already in progress")
	}
	defer p.guard.Release(1)

	apiKey, err := p.Credentials.APIKey(ctx)
	if err != nil {
		return nil, err
	}
	searcher, err := p.Connect(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	r := &run{
		p:        p,
		searcher: searcher,
		progress: progress,
		total:    queue.Len(),
		result:   &dentdir.IngestResult{},
	}
	return r.execute(ctx, queue)
}

func (p *Pipeline) planner() *dentdir.Planner {
	if p.Planner == nil {
		return dentdir.NewPlanner()
	}
	return p.Planner
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return p.Logger
}

func (p *Pipeline) sleep() SleepFunc {
	if p.Sleep == nil {
		return Sleep
	}
	return p.Sleep
}

func (p *Pipeline) newID() string {
	if p.NewID == nil {
		return uuid.NewString()
	}
	return p.NewID()
}

// run holds the state of a single ingestion.
type run struct {
	p        *Pipeline
	searcher dentdir.Searcher
	progress dentdir.ProgressFunc
	total    int
	result   *dentdir.IngestResult
}

func (r *run) emit(event dentdir.ProgressEvent) {
	if r.progress == nil {
		return
	}
	event.Total = r.total
	r.progress(event)
}

func (r *run) execute(ctx context.Context, queue *QueryQueue) (*dentdir.IngestResult, error) {
	log := r.p.logger()
	sleep := r.p.sleep()

	r.emit(dentdir.ProgressEvent{
		Type:    dentdir.ProgressStarted,
		Message: fmt.Sprintf("Starting search: %d queries", r.total),
	})

	for i := 0; ; i++ {
		query, ok := queue.Pop()
		if !ok {
			break
		}
		if i > 0 {
			if err := sleep(ctx, r.p.QueryDelay); err != nil {
				return r.result, err
			}
		}

		if err := r.query(ctx, i, query); err != nil {
			log.Error("ingestion aborted", "query", query, "err", err)
			return r.result, err
		}
	}

	r.emit(dentdir.ProgressEvent{
		Type:    dentdir.ProgressFinished,
		Message: fmt.Sprintf("Search complete: %d new clinics", r.result.Added),
		Index:   r.total,
	})
	log.Info("ingestion finished",
		"queries", r.result.Queries,
		"candidates", r.result.Candidates,
		"added", r.result.Added,
		"skipped", r.result.Skipped,
	)
	return r.result, nil
}

// query runs a single query. A returned error ends the run.
func (r *run) query(ctx context.Context, i int, query string) error {
	r.result.Queries++
	r.emit(dentdir.ProgressEvent{
		Type:    dentdir.ProgressQuery,
		Message: fmt.Sprintf("Searching: %s (%d/%d)", query, i+1, r.total),
		Query:   query,
		Index:   i,
	})

	policy := r.p.Retry
	if policy.Sleep == nil {
		policy.Sleep = r.p.sleep()
	}
	policy.OnWait = func(attempt int, wait time.Duration, err error) {
		r.p.logger().Warn("search failed, retrying", "query", query, "attempt", attempt, "wait", wait, "err", err)
		reason := "Search failed"
		if dentdir.ErrorCode(err) == dentdir.ERATELIMIT {
			reason = "Rate limited"
		}
		r.emit(dentdir.ProgressEvent{
			Type:    dentdir.ProgressWaiting,
			Message: fmt.Sprintf("%s, waiting %s before retrying: %s", reason, wait, query),
			Query:   query,
			Index:   i,
			Attempt: attempt,
			Wait:    wait,
			Error:   dentdir.ErrorMessage(err),
		})
	}

	search := func(ctx context.Context, q string) ([]*dentdir.Clinic, error) {
		if err := r.p.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return r.searcher.Search(ctx, q)
	}

	candidates, err := SearchWithRetry(ctx, query, search, policy)
	if err != nil {
		if !Retryable(err) {
			return err
		}
		r.result.Skipped++
		r.p.logger().Warn("query skipped", "query", query, "err", err)
		r.emit(dentdir.ProgressEvent{
			Type:    dentdir.ProgressSkipped,
			Message: fmt.Sprintf("No results for %s", query),
			Query:   query,
			Index:   i,
			Error:   dentdir.ErrorMessage(err),
		})
		return nil
	}

	batch := make([]*dentdir.Clinic, 0, len(candidates))
	for _, c := range candidates {
		if c == nil {
			continue
		}
		c = c.Clone()
		c.ID = r.p.newID()
		c.Status = dentdir.StatusNone
		c.Notes = ""
		batch = append(batch, c)
	}
	r.result.Candidates += len(batch)

	added, err := r.p.Clinics.MergeClinics(ctx, batch)
	if err != nil {
		return fmt.Errorf("merge results of %q: %w", query, err)
	}
	r.result.Added += len(added)

	r.emit(dentdir.ProgressEvent{
		Type:    dentdir.ProgressBatch,
		Message: fmt.Sprintf("%s: %d found, %d new", query, len(batch), len(added)),
		Query:   query,
		Index:   i,
		Added:   added,
	})
	return nil
}
