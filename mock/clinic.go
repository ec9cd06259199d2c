package mock

import (
	"context"

	"github.com/fwojciec/dentdir"
)

var _ dentdir.ClinicService = (*ClinicService)(nil)

// ClinicService is a mock implementation of dentdir.ClinicService.
type ClinicService struct {
	FindClinicByIDFn func(ctx context.Context, id string) (*dentdir.Clinic, error)
	FindClinicsFn    func(ctx context.Context, filter dentdir.ClinicFilter) ([]*dentdir.Clinic, error)
	MergeClinicsFn   func(ctx context.Context, candidates []*dentdir.Clinic) ([]*dentdir.Clinic, error)
	SetStatusFn      func(ctx context.Context, id string, status dentdir.Status) (bool, error)
	SetNoteFn        func(ctx context.Context, id string, note string) (bool, error)
	ReplaceClinicsFn func(ctx context.Context, clinics []*dentdir.Clinic) error
}

func (s *ClinicService) FindClinicByID(ctx context.Context, id string) (*dentdir.Clinic, error) {
	return s.FindClinicByIDFn(ctx, id)
}

func (s *ClinicService) FindClinics(ctx context.Context, filter dentdir.ClinicFilter) ([]*dentdir.Clinic, error) {
	return s.FindClinicsFn(ctx, filter)
}

func (s *ClinicService) MergeClinics(ctx context.Context, candidates []*dentdir.Clinic) ([]*dentdir.Clinic, error) {
	return s.MergeClinicsFn(ctx, candidates)
}

func (s *ClinicService) SetStatus(ctx context.Context, id string, status dentdir.Status) (bool, error) {
	return s.SetStatusFn(ctx, id, status)
}

func (s *ClinicService) SetNote(ctx context.Context, id string, note string) (bool, error) {
	return s.SetNoteFn(ctx, id, note)
}

func (s *ClinicService) ReplaceClinics(ctx context.Context, clinics []*dentdir.Clinic) error {
	return s.ReplaceClinicsFn(ctx, clinics)
}

var _ dentdir.Ingester = (*Ingester)(nil)

// Ingester is a mock implementation of dentdir.Ingester.
type Ingester struct {
	IngestFn          func(ctx context.Context, location string, progress dentdir.ProgressFunc) (*dentdir.IngestResult, error)
	IngestProvincesFn func(ctx context.Context, progress dentdir.ProgressFunc) (*dentdir.IngestResult, error)
}

func (i *Ingester) Ingest(ctx context.Context, location string, progress dentdir.ProgressFunc) (*dentdir.IngestResult, error) {
	return i.IngestFn(ctx, location, progress)
}

func (i *Ingester) IngestProvinces(ctx context.Context, progress dentdir.ProgressFunc) (*dentdir.IngestResult, error) {
	return i.IngestProvincesFn(ctx, progress)
}
