// Package store implements the persisted clinic record store on top of a
// dentdir.KVStore.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/dentdir"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ dentdir.ClinicService = (*Store)(nil)

// Store keeps the clinic list in memory and writes a full JSON snapshot to
// the KV store after every mutation. It is safe for concurrent use; merges
// from interleaved ingestion runs are serialized and each one is checked
// against the cumulative list.
type Store struct {
	mu      sync.Mutex
	kv      dentdir.KVStore
	key     string
	match   dentdir.Matcher
	newID   func() string
	clinics []*dentdir.Clinic
	loaded  bool

	// fingerprint of the last snapshot written, so identical snapshots are
	// not rewritten.
	written  bool
	lastHash uint64
}

// Option configures a Store.
type Option func(*Store)

// WithMatcher sets the duplicate detection policy. Defaults to
// dentdir.NameMatcher.
func WithMatcher(m dentdir.Matcher) Option {
	return func(s *Store) {
		s.match = m
	}
}

// WithKey sets the KV key holding the snapshot. Defaults to
// dentdir.ClinicsKey.
func WithKey(key string) Option {
	return func(s *Store) {
		s.key = key
	}
}

// WithIDFunc sets the id generator used for clinics stored without one.
func WithIDFunc(fn func() string) Option {
	return func(s *Store) {
		s.newID = fn
	}
}

// New creates a Store persisted to kv. The snapshot is read lazily on first
// use or explicitly with Load.
func New(kv dentdir.KVStore, opts ...Option) *Store {
	s := &Store{
		kv:    kv,
		key:   dentdir.ClinicsKey,
		match: dentdir.NameMatcher,
		newID: NewID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewID returns a fresh process-unique clinic id.
func NewID() string {
	return uuid.New().String()
}

// Load reads the snapshot from the KV store, replacing the in-memory list.
// An absent or unparseable snapshot starts an empty list.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = false
	return s.load(ctx)
}

func (s *Store) load(ctx context.Context) error {
	if s.loaded {
		return nil
	}

	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return fmt.Errorf("read clinics: %w", err)
	}

	s.clinics = nil
	if ok {
		var clinics []*dentdir.Clinic
		if err := json.Unmarshal([]byte(raw), &clinics); err == nil {
			s.clinics = s.normalize(clinics)
		}
	}
	s.loaded = true
	return nil
}

// normalize drops unusable entries and fills defaults on a decoded or
// imported list, keeping the first of any duplicates.
func (s *Store) normalize(clinics []*dentdir.Clinic) []*dentdir.Clinic {
	kept := dentdir.Merge(nil, clinics, s.match)
	out := make([]*dentdir.Clinic, 0, len(kept))
	for _, c := range kept {
		c = c.Clone()
		s.stamp(c)
		out = append(out, c)
	}
	return out
}

// stamp fills the id and annotation defaults of a clinic.
func (s *Store) stamp(c *dentdir.Clinic) {
	if c.ID == "" {
		c.ID = s.newID()
	}
	if !c.Status.Valid() {
		c.Status = dentdir.StatusNone
	}
}

// persist writes the full snapshot unless it matches the last one written.
func (s *Store) persist(ctx context.Context) error {
	clinics := s.clinics
	if clinics == nil {
		clinics = []*dentdir.Clinic{}
	}
	data, err := json.Marshal(clinics)
	if err != nil {
		return fmt.Errorf("encode clinics: %w", err)
	}

	h := xxhash.Sum64(data)
	if s.written && h == s.lastHash {
		return nil
	}
	if err := s.kv.Set(ctx, s.key, string(data)); err != nil {
		return fmt.Errorf("write clinics: %w", err)
	}
	s.written = true
	s.lastHash = h
	return nil
}

// FindClinicByID retrieves a clinic by ID.
func (s *Store) FindClinicByID(ctx context.Context, id string) (*dentdir.Clinic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(ctx); err != nil {
		return nil, err
	}

	if i := s.indexOf(id); i >= 0 {
		return s.clinics[i].Clone(), nil
	}
	return nil, dentdir.Errorf(dentdir.ENOTFOUND, "clinic %q not found", id)
}

// FindClinics retrieves clinics matching the filter in insertion order.
func (s *Store) FindClinics(ctx context.Context, filter dentdir.ClinicFilter) ([]*dentdir.Clinic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(ctx); err != nil {
		return nil, err
	}

	clinics := make([]*dentdir.Clinic, 0, len(s.clinics))
	for _, c := range s.clinics {
		if filter.Match(c) {
			clinics = append(clinics, c.Clone())
		}
	}
	return clinics, nil
}

// MergeClinics appends the non-duplicate candidates and persists the list.
func (s *Store) MergeClinics(ctx context.Context, candidates []*dentdir.Clinic) ([]*dentdir.Clinic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(ctx); err != nil {
		return nil, err
	}

	accepted := dentdir.Merge(s.clinics, candidates, s.match)
	if len(accepted) == 0 {
		return nil, nil
	}

	n := len(s.clinics)
	added := make([]*dentdir.Clinic, 0, len(accepted))
	for _, c := range accepted {
		c = c.Clone()
		s.stamp(c)
		s.clinics = append(s.clinics, c)
		added = append(added, c.Clone())
	}

	if err := s.persist(ctx); err != nil {
		s.clinics = s.clinics[:n]
		return nil, err
	}
	return added, nil
}

// SetStatus replaces the status of the clinic with the given id.
func (s *Store) SetStatus(ctx context.Context, id string, status dentdir.Status) (bool, error) {
	if !status.Valid() {
		return false, dentdir.Errorf(dentdir.EINVALID, "invalid status %q", status)
	}
	return s.update(ctx, id, func(c *dentdir.Clinic) {
		c.Status = status
	})
}

// SetNote replaces the notes of the clinic with the given id.
func (s *Store) SetNote(ctx context.Context, id string, note string) (bool, error) {
	return s.update(ctx, id, func(c *dentdir.Clinic) {
		c.Notes = note
	})
}

// update applies fn to the clinic with the given id and persists. The
// change is rolled back if persisting fails.
func (s *Store) update(ctx context.Context, id string, fn func(c *dentdir.Clinic)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(ctx); err != nil {
		return false, err
	}

	i := s.indexOf(id)
	if i < 0 {
		return false, nil
	}

	prev := s.clinics[i]
	next := prev.Clone()
	fn(next)
	s.clinics[i] = next

	if err := s.persist(ctx); err != nil {
		s.clinics[i] = prev
		return false, err
	}
	return true, nil
}

// ReplaceClinics discards the stored list and stores the given one.
// Duplicates and unnamed entries are dropped; missing ids and statuses are
// filled in.
func (s *Store) ReplaceClinics(ctx context.Context, clinics []*dentdir.Clinic) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, prevLoaded := s.clinics, s.loaded
	s.clinics = s.normalize(clinics)
	s.loaded = true

	if err := s.persist(ctx); err != nil {
		s.clinics, s.loaded = prev, prevLoaded
		return err
	}
	return nil
}

func (s *Store) indexOf(id string) int {
	for i, c := range s.clinics {
		if c.ID == id {
			return i
		}
	}
	return -1
}
