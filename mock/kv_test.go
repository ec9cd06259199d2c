package mock_test

import (
	"context"
	"testing"

	"github.com/fwojciec/dentdir"
	"github.com/fwojciec/dentdir/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryKV(t *testing.T) {
	t.Parallel()

	t.Run("implements dentdir.KVStore", func(t *testing.T) {
		t.Parallel()
		var _ dentdir.KVStore = mock.NewMemoryKV()
	})

	t.Run("returns absent for missing keys", func(t *testing.T) {
		t.Parallel()

		kv := mock.NewMemoryKV()

		_, ok, err := kv.Get(context.Background(), "missing")

		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("stores values and counts writes", func(t *testing.T) {
		t.Parallel()

		kv := mock.NewMemoryKV()
		ctx := context.Background()

		require.NoError(t, kv.Set(ctx, "k", "v1"))
		require.NoError(t, kv.Set(ctx, "k", "v2"))
		v, ok, err := kv.Get(ctx, "k")

		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "v2", v)
		assert.Equal(t, 2, kv.Sets())
	})
}

func TestKVStore_Delegates(t *testing.T) {
	t.Parallel()

	var gotKey, gotValue string
	kv := &mock.KVStore{
		SetFn: func(_ context.Context, key, value string) error {
			gotKey, gotValue = key, value
			return nil
		},
	}

	err := kv.Set(context.Background(), "a", "b")

	require.NoError(t, err)
	assert.Equal(t, "a", gotKey)
	assert.Equal(t, "b", gotValue)
}
