package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/dentdir"
	"github.com/fwojciec/dentdir/ingest"
	"github.com/fwojciec/dentdir/mock"
	"github.com/fwojciec/dentdir/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticKey(key string) *mock.CredentialService {
	return &mock.CredentialService{
		APIKeyFn: func(context.Context) (string, error) { return key, nil },
	}
}

func connectTo(s dentdir.Searcher) ingest.ConnectFunc {
	return func(context.Context, string) (dentdir.Searcher, error) { return s, nil }
}

func newPipeline(searcher dentdir.Searcher, rec *recorder) (*ingest.Pipeline, *store.Store) {
	s := store.New(mock.NewMemoryKV())
	return &ingest.Pipeline{
		Planner:     &dentdir.Planner{Categories: []string{"clinic", "hospital", "practice"}},
		Clinics:     s,
		Credentials: staticKey("key"),
		Connect:     connectTo(searcher),
		Retry:       ingest.RetryPolicy{MaxAttempts: 3, RateLimitDelay: 5 * time.Second, TransientDelay: time.Second},
		QueryDelay:  2 * time.Second,
		Sleep:       rec.sleep,
	}, s
}

func TestPipeline_Ingest(t *testing.T) {
	t.Parallel()

	t.Run("issues one query per category in order", func(t *testing.T) {
		t.Parallel()

		var queries []string
		searcher := &mock.Searcher{
			SearchFn: func(_ context.Context, q string) ([]*dentdir.Clinic, error) {
				queries = append(queries, q)
				return nil, nil
			},
		}
		rec := &recorder{}
		p, _ := newPipeline(searcher, rec)

		result, err := p.Ingest(context.Background(), "Malatya", nil)

		require.NoError(t, err)
		assert.Equal(t, []string{"Malatya clinic", "Malatya hospital", "Malatya practice"}, queries)
		assert.Equal(t, 3, result.Queries)
		assert.Equal(t, 0, result.Added)
		assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, rec.waits, "fixed delay between queries")
	})

	t.Run("non-finite ratings from the backend do not end the run", func(t *testing.T) {
		t.Parallel()

		responses := []string{
			`[{"name": "Dr. A", "rating": "NaN"}]`,
			`[{"name": "Dr. B", "rating": 4.7}]`,
			`[{"name": "Dr. C", "rating": "Infinity"}]`,
		}
		calls := 0
		searcher := &mock.Searcher{
			SearchFn: func(context.Context, string) ([]*dentdir.Clinic, error) {
				text := responses[calls]
				calls++
				return dentdir.ParseCandidates(text), nil
			},
		}
		p, s := newPipeline(searcher, &recorder{})

		result, err := p.Ingest(context.Background(), "Malatya", nil)

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, 3, result.Added)
		stored, err := s.FindClinics(context.Background(), dentdir.ClinicFilter{})
		require.NoError(t, err)
		require.Len(t, stored, 3)
		assert.Zero(t, stored[0].Rating)
		assert.InDelta(t, 4.7, stored[1].Rating, 0.001)
	})

	t.Run("blank location issues no queries and needs no credential", func(t *testing.T) {
		t.Parallel()

		p := &ingest.Pipeline{
			Credentials: &mock.CredentialService{
				APIKeyFn: func(context.Context) (string, error) {
					t.Fatal("credential resolved")
					return "", nil
				},
			},
		}

		result, err := p.Ingest(context.Background(), "   ", nil)

		require.NoError(t, err)
		assert.Equal(t, &dentdir.IngestResult{}, result)
	})

	t.Run("missing credential aborts before any call", func(t *testing.T) {
		t.Parallel()

		calls := 0
		searcher := &mock.Searcher{
			SearchFn: func(context.Context, string) ([]*dentdir.Clinic, error) {
				calls++
				return nil, nil
			},
		}
		p, _ := newPipeline(searcher, &recorder{})
		p.Credentials = store.NewCredentials(mock.NewMemoryKV(), "undefined")

		_, err := p.Ingest(context.Background(), "Malatya", nil)

		assert.Equal(t, dentdir.ECONFIG, dentdir.ErrorCode(err))
		assert.Equal(t, 0, calls)
	})

	t.Run("merges batches into the store incrementally", func(t *testing.T) {
		t.Parallel()

		var storeLens []int
		var s *store.Store
		searcher := &mock.Searcher{
			SearchFn: func(ctx context.Context, q string) ([]*dentdir.Clinic, error) {
				all, err := s.FindClinics(ctx, dentdir.ClinicFilter{})
				require.NoError(t, err)
				storeLens = append(storeLens, len(all))
				return []*dentdir.Clinic{{Name: "Shared"}, {Name: q}}, nil
			},
		}
		p, st := newPipeline(searcher, &recorder{})
		s = st
		var events []dentdir.ProgressEvent

		result, err := p.Ingest(context.Background(), "Van", func(e dentdir.ProgressEvent) {
			events = append(events, e)
		})

		require.NoError(t, err)
		assert.Equal(t, []int{0, 2, 3}, storeLens)
		assert.Equal(t, 6, result.Candidates)
		assert.Equal(t, 4, result.Added)

		all, err := s.FindClinics(context.Background(), dentdir.ClinicFilter{})
		require.NoError(t, err)
		require.Len(t, all, 4)
		for _, c := range all {
			assert.NotEmpty(t, c.ID)
			assert.Equal(t, dentdir.StatusNone, c.Status)
			assert.Empty(t, c.Notes)
		}

		require.NotEmpty(t, events)
		assert.Equal(t, dentdir.ProgressStarted, events[0].Type)
		assert.Equal(t, dentdir.ProgressFinished, events[len(events)-1].Type)
		var batches int
		for _, e := range events {
			assert.Equal(t, 3, e.Total)
			if e.Type == dentdir.ProgressBatch {
				batches++
			}
		}
		assert.Equal(t, 3, batches)
	})

	t.Run("candidate ids and annotations are overwritten", func(t *testing.T) {
		t.Parallel()

		searcher := &mock.Searcher{
			SearchFn: func(context.Context, string) ([]*dentdir.Clinic, error) {
				return []*dentdir.Clinic{{ID: "from-backend", Name: "A", Status: dentdir.StatusPositive, Notes: "x"}}, nil
			},
		}
		p, s := newPipeline(searcher, &recorder{})
		p.Planner = &dentdir.Planner{Categories: []string{"clinic"}}
		p.NewID = func() string { return "fresh" }

		_, err := p.Ingest(context.Background(), "Van", nil)

		require.NoError(t, err)
		got, err := s.FindClinicByID(context.Background(), "fresh")
		require.NoError(t, err)
		assert.Equal(t, dentdir.StatusNone, got.Status)
		assert.Empty(t, got.Notes)
	})

	t.Run("exhausted rate limit skips the query and continues", func(t *testing.T) {
		t.Parallel()

		calls := map[string]int{}
		searcher := &mock.Searcher{
			SearchFn: func(_ context.Context, q string) ([]*dentdir.Clinic, error) {
				calls[q]++
				if q == "Van clinic" {
					return nil, dentdir.Errorf(dentdir.ERATELIMIT, "quota")
				}
				return []*dentdir.Clinic{{Name: q}}, nil
			},
		}
		rec := &recorder{}
		p, _ := newPipeline(searcher, rec)
		var waiting []dentdir.ProgressEvent

		result, err := p.Ingest(context.Background(), "Van", func(e dentdir.ProgressEvent) {
			if e.Type == dentdir.ProgressWaiting {
				waiting = append(waiting, e)
			}
		})

		require.NoError(t, err)
		assert.Equal(t, 3, calls["Van clinic"])
		assert.Equal(t, 1, calls["Van hospital"])
		assert.Equal(t, 1, result.Skipped)
		assert.Equal(t, 2, result.Added)
		require.Len(t, waiting, 2)
		assert.Less(t, waiting[0].Wait, waiting[1].Wait)
		assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second, 2 * time.Second, 2 * time.Second}, rec.waits)
	})

	t.Run("transient failures are logged and skipped", func(t *testing.T) {
		t.Parallel()

		searcher := &mock.Searcher{
			SearchFn: func(_ context.Context, q string) ([]*dentdir.Clinic, error) {
				if q == "Van hospital" {
					return nil, errors.New("connection reset")
				}
				return []*dentdir.Clinic{{Name: q}}, nil
			},
		}
		p, _ := newPipeline(searcher, &recorder{})

		result, err := p.Ingest(context.Background(), "Van", nil)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Skipped)
		assert.Equal(t, 2, result.Added)
	})

	t.Run("rejected credential mid-run aborts", func(t *testing.T) {
		t.Parallel()

		calls := 0
		searcher := &mock.Searcher{
			SearchFn: func(context.Context, string) ([]*dentdir.Clinic, error) {
				calls++
				return nil, dentdir.Errorf(dentdir.ECONFIG, "API key not valid")
			},
		}
		p, _ := newPipeline(searcher, &recorder{})

		_, err := p.Ingest(context.Background(), "Van", nil)

		assert.Equal(t, dentdir.ECONFIG, dentdir.ErrorCode(err))
		assert.Equal(t, 1, calls)
	})

	t.Run("connect failure aborts", func(t *testing.T) {
		t.Parallel()

		p, _ := newPipeline(nil, &recorder{})
		p.Connect = func(context.Context, string) (dentdir.Searcher, error) {
			return nil, dentdir.Errorf(dentdir.ECONFIG, "bad key")
		}

		_, err := p.Ingest(context.Background(), "Van", nil)

		assert.Equal(t, dentdir.ECONFIG, dentdir.ErrorCode(err))
	})

	t.Run("store failure aborts", func(t *testing.T) {
		t.Parallel()

		searcher := &mock.Searcher{
			SearchFn: func(context.Context, string) ([]*dentdir.Clinic, error) {
				return []*dentdir.Clinic{{Name: "A"}}, nil
			},
		}
		p, _ := newPipeline(searcher, &recorder{})
		p.Clinics = &mock.ClinicService{
			MergeClinicsFn: func(context.Context, []*dentdir.Clinic) ([]*dentdir.Clinic, error) {
				return nil, errors.New("disk full")
			},
		}

		_, err := p.Ingest(context.Background(), "Van", nil)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
	})

	t.Run("many empty queries complete without error", func(t *testing.T) {
		t.Parallel()

		searcher := &mock.Searcher{
			SearchFn: func(context.Context, string) ([]*dentdir.Clinic, error) { return nil, nil },
		}
		p, _ := newPipeline(searcher, &recorder{})
		p.Planner = dentdir.NewPlanner()

		result, err := p.Ingest(context.Background(), "İstanbul", nil)

		require.NoError(t, err)
		assert.Equal(t, len(dentdir.IstanbulDistricts())*len(dentdir.DefaultCategories()), result.Queries)
		assert.Equal(t, 0, result.Added)
	})

	t.Run("cancellation stops the run", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		searcher := &mock.Searcher{
			SearchFn: func(context.Context, string) ([]*dentdir.Clinic, error) {
				calls++
				cancel()
				return nil, nil
			},
		}
		p, _ := newPipeline(searcher, &recorder{})

		_, err := p.Ingest(ctx, "Van", nil)

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}

func TestPipeline_Run(t *testing.T) {
	t.Parallel()

	t.Run("duplicate queries are issued once", func(t *testing.T) {
		t.Parallel()

		var queries []string
		searcher := &mock.Searcher{
			SearchFn: func(_ context.Context, q string) ([]*dentdir.Clinic, error) {
				queries = append(queries, q)
				return nil, nil
			},
		}
		p, _ := newPipeline(searcher, &recorder{})

		result, err := p.Run(context.Background(), []string{"a", "b", "A", " b "}, nil)

		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, queries)
		assert.Equal(t, 2, result.Queries)
	})

	t.Run("refuses a concurrent run", func(t *testing.T) {
		t.Parallel()

		started := make(chan struct{})
		release := make(chan struct{})
		var once sync.Once
		searcher := &mock.Searcher{
			SearchFn: func(context.Context, string) ([]*dentdir.Clinic, error) {
				once.Do(func() { close(started) })
				<-release
				return nil, nil
			},
		}
		p, _ := newPipeline(searcher, &recorder{})

		var wg sync.WaitGroup
		var firstErr error
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, firstErr = p.Run(context.Background(), []string{"a"}, nil)
		}()
		<-started

		_, err := p.Run(context.Background(), []string{"b"}, nil)
		close(release)
		wg.Wait()

		assert.Equal(t, dentdir.ECONFLICT, dentdir.ErrorCode(err))
		require.NoError(t, firstErr)

		_, err = p.Run(context.Background(), []string{"c"}, nil)
		assert.NotEqual(t, dentdir.ECONFLICT, dentdir.ErrorCode(err), "guard is released after a run")
	})

	t.Run("calls are never concurrent", func(t *testing.T) {
		t.Parallel()

		var mu sync.Mutex
		inFlight, maxInFlight := 0, 0
		searcher := &mock.Searcher{
			SearchFn: func(_ context.Context, q string) ([]*dentdir.Clinic, error) {
				mu.Lock()
				inFlight++
				maxInFlight = max(maxInFlight, inFlight)
				mu.Unlock()
				defer func() {
					mu.Lock()
					inFlight--
					mu.Unlock()
				}()
				return []*dentdir.Clinic{{Name: q}}, nil
			},
		}
		p, _ := newPipeline(searcher, &recorder{})

		queries := make([]string, 20)
		for i := range queries {
			queries[i] = fmt.Sprintf("q%d", i)
		}
		_, err := p.Run(context.Background(), queries, nil)

		require.NoError(t, err)
		assert.Equal(t, 1, maxInFlight)
	})
}

func TestPipeline_IngestProvinces(t *testing.T) {
	t.Parallel()

	calls := 0
	searcher := &mock.Searcher{
		SearchFn: func(context.Context, string) ([]*dentdir.Clinic, error) {
			calls++
			return nil, nil
		},
	}
	p, _ := newPipeline(searcher, &recorder{})
	p.Planner = dentdir.NewPlanner()

	result, err := p.IngestProvinces(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, 81, calls)
	assert.Equal(t, 81, result.Queries)
}
