package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/fwojciec/dentdir"
)

// Compile-time interface verification.
var _ dentdir.CredentialService = (*Credentials)(nil)

// Credentials resolves the backend access key. A key supplied by the
// environment or config file takes precedence over one the user saved in
// the KV store.
type Credentials struct {
	kv         dentdir.KVStore
	configured string
}

// NewCredentials creates a Credentials. configured is the key from the
// environment or config file and may be empty.
func NewCredentials(kv dentdir.KVStore, configured string) *Credentials {
	return &Credentials{kv: kv, configured: strings.TrimSpace(configured)}
}

// APIKey returns the access key to use.
func (c *Credentials) APIKey(ctx context.Context) (string, error) {
	if dentdir.ValidAPIKey(c.configured) {
		return c.configured, nil
	}

	if c.kv != nil {
		key, ok, err := c.kv.Get(ctx, dentdir.APIKeyKey)
		if err != nil {
			return "", fmt.Errorf("read api key: %w", err)
		}
		if key = strings.TrimSpace(key); ok && dentdir.ValidAPIKey(key) {
			return key, nil
		}
	}

	return "", dentdir.Errorf(dentdir.ECONFIG, "no API key configured: set GEMINI_API_KEY or save one with 'dentdir key'")
}

// SetAPIKey persists a user-supplied access key.
func (c *Credentials) SetAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if !dentdir.ValidAPIKey(key) {
		return dentdir.Errorf(dentdir.EINVALID, "API key required")
	}
	if c.kv == nil {
		return dentdir.Errorf(dentdir.EINTERNAL, "no storage for API key")
	}
	return c.kv.Set(ctx, dentdir.APIKeyKey, key)
}
