package sqlite_test

import (
	"context"
	"testing"

	"github.com/fwojciec/dentdir"
	"github.com/fwojciec/dentdir/sqlite"
	"github.com/fwojciec/dentdir/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openKV(t *testing.T) *sqlite.KVStore {
	t.Helper()
	db := sqlite.NewDB(":memory:")
	require.NoError(t, db.Open())
	t.Cleanup(func() { db.Close() })
	return sqlite.NewKVStore(db)
}

func TestKVStore(t *testing.T) {
	t.Parallel()

	t.Run("implements dentdir.KVStore", func(t *testing.T) {
		t.Parallel()
		var _ dentdir.KVStore = openKV(t)
	})

	t.Run("missing key is absent", func(t *testing.T) {
		t.Parallel()

		_, ok, err := openKV(t).Get(context.Background(), "missing")

		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("set overwrites previous value", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		kv := openKV(t)

		require.NoError(t, kv.Set(ctx, "k", "one"))
		require.NoError(t, kv.Set(ctx, "k", "two"))
		v, ok, err := kv.Get(ctx, "k")

		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "two", v)
	})

	t.Run("empty value is stored", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		kv := openKV(t)

		require.NoError(t, kv.Set(ctx, "k", ""))
		v, ok, err := kv.Get(ctx, "k")

		require.NoError(t, err)
		assert.True(t, ok)
		assert.Empty(t, v)
	})

	t.Run("empty key is invalid", func(t *testing.T) {
		t.Parallel()

		err := openKV(t).Set(context.Background(), "", "v")

		assert.Equal(t, dentdir.EINVALID, dentdir.ErrorCode(err))
	})

	t.Run("backs the clinic store", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		kv := openKV(t)
		added, err := store.New(kv).MergeClinics(ctx, []*dentdir.Clinic{{Name: "Ağız ve Diş Sağlığı Merkezi"}})
		require.NoError(t, err)

		got, err := store.New(kv).FindClinicByID(ctx, added[0].ID)

		require.NoError(t, err)
		assert.Equal(t, "Ağız ve Diş Sağlığı Merkezi", got.Name)
	})
}
