package ingest

import (
	"strings"
	"sync"

	"github.com/fwojciec/dentdir"
	"github.com/fwojciec/dentdir/bloom"
)

// QueryQueue is a FIFO of planned queries that admits each query once.
// Queries differing only in case or surrounding whitespace are duplicates.
// The bloom filter answers the common "never seen" case; its positives are
// confirmed against the exact key set, so a false positive never drops a
// query. It is safe for concurrent use.
type QueryQueue struct {
	mu      sync.Mutex
	seen    *bloom.Filter
	keys    map[string]struct{}
	queries []string
}

// NewQueryQueue creates a QueryQueue sized for n expected queries.
func NewQueryQueue(n uint) *QueryQueue {
	if n == 0 {
		n = 1
	}
	return &QueryQueue{
		seen: bloom.NewFilter(n, 0.001),
		keys: make(map[string]struct{}, n),
	}
}

// Push appends a query. Returns false for blank or already queued queries.
func (q *QueryQueue) Push(query string) bool {
	key := dentdir.NormalizeName(strings.Join(strings.Fields(query), " "))
	if key == "" {
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.seen.Test(key) {
		if _, ok := q.keys[key]; ok {
			return false
		}
	}
	q.seen.Add(key)
	q.keys[key] = struct{}{}
	q.queries = append(q.queries, strings.TrimSpace(query))
	return true
}

// Pop removes and returns the oldest query.
// The bool result is false if the queue is empty.
func (q *QueryQueue) Pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.queries) == 0 {
		return "", false
	}
	query := q.queries[0]
	q.queries = q.queries[1:]
	return query, true
}

// Len returns the number of queued queries.
func (q *QueryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queries)
}
