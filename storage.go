package dentdir

import "context"

// Keys under which the record store and the user-supplied credential are
// persisted.
const (
	ClinicsKey = "dentdir:clinics"
	APIKeyKey  = "dentdir:api_key"
)

// KVStore is a durable string-keyed, string-valued store.
type KVStore interface {
	// Get returns the value stored under key. The bool result is false if
	// the key is absent.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
}
