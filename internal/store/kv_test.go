package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteKVRoundTrip(t *testing.T) {
	kv, err := NewSQLiteKV(t.TempDir())
	require.NoError(t, err)
	defer func() { _ = kv.Close() }()

	ctx := context.Background()

	_, err = kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, kv.Put(ctx, "k", []byte(`{"v":1}`), time.Hour))
	value, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"v":1}`), value)

	// overwrite replaces the value in place
	require.NoError(t, kv.Put(ctx, "k", []byte(`{"v":2}`), time.Hour))
	value, err = kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"v":2}`), value)
}

func TestSQLiteKVExpiry(t *testing.T) {
	kv, err := NewSQLiteKV(t.TempDir())
	require.NoError(t, err)
	defer func() { _ = kv.Close() }()

	ctx := context.Background()

	require.NoError(t, kv.Put(ctx, "expired", []byte("x"), time.Nanosecond))
	time.Sleep(10 * time.Millisecond)
	_, err = kv.Get(ctx, "expired")
	assert.ErrorIs(t, err, ErrNotFound)

	// no-expiry keys survive cleanup
	require.NoError(t, kv.Put(ctx, "forever", []byte("y"), 0))
	require.NoError(t, kv.Cleanup(ctx))
	value, err := kv.Get(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, []byte("y"), value)
}
