package mock

import (
	"context"

	"github.com/fwojciec/dentdir"
)

var _ dentdir.Searcher = (*Searcher)(nil)

// Searcher is a mock implementation of dentdir.Searcher.
type Searcher struct {
	SearchFn func(ctx context.Context, query string) ([]*dentdir.Clinic, error)
}

func (s *Searcher) Search(ctx context.Context, query string) ([]*dentdir.Clinic, error) {
	return s.SearchFn(ctx, query)
}

var _ dentdir.CredentialService = (*CredentialService)(nil)

// CredentialService is a mock implementation of dentdir.CredentialService.
type CredentialService struct {
	APIKeyFn    func(ctx context.Context) (string, error)
	SetAPIKeyFn func(ctx context.Context, key string) error
}

func (s *CredentialService) APIKey(ctx context.Context) (string, error) {
	return s.APIKeyFn(ctx)
}

func (s *CredentialService) SetAPIKey(ctx context.Context, key string) error {
	return s.SetAPIKeyFn(ctx, key)
}
