package dentdir

import "context"

// Searcher queries a generative search backend for clinic listings.
type Searcher interface {
	// Search returns the candidates found for a query. An unparseable
	// response yields no candidates and no error.
	// Returns ECONFIG if the credential is missing or rejected, ERATELIMIT
	// if the backend quota is exhausted and EUNAVAILABLE for transient
	// failures.
	Search(ctx context.Context, query string) ([]*Clinic, error)
}

// CredentialService resolves the search backend access key.
type CredentialService interface {
	// APIKey returns the access key to use.
	// Returns ECONFIG if no key is configured.
	APIKey(ctx context.Context) (string, error)

	// SetAPIKey persists a user-supplied access key.
	SetAPIKey(ctx context.Context, key string) error
}

// ValidAPIKey reports whether key looks like a usable credential. Empty
// strings and the "undefined" and "null" placeholders left by unset
// environment templating are rejected.
func ValidAPIKey(key string) bool {
	switch key {
	case "", "undefined", "null":
		return false
	}
	return true
}
