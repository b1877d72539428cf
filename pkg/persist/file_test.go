package persist_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kokoro-labs/animus/pkg/core"
	"github.com/kokoro-labs/animus/pkg/persist"
)

type testDoc struct {
	SchemaVersion int    `json:"schema_version"`
	Value         string `json:"value"`
}

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := persist.NewFileStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "desires", &testDoc{SchemaVersion: 1, Value: "hello"}))

	var got testDoc
	require.NoError(t, store.Load(ctx, "desires", &got))
	assert.Equal(t, 1, got.SchemaVersion)
	assert.Equal(t, "hello", got.Value)
}

func TestFileStoreOverwriteIsAtomicReplacement(t *testing.T) {
	store, err := persist.NewFileStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "doc", &testDoc{Value: "first"}))
	require.NoError(t, store.Save(ctx, "doc", &testDoc{Value: "second"}))

	var got testDoc
	require.NoError(t, store.Load(ctx, "doc", &got))
	assert.Equal(t, "second", got.Value)
}

func TestFileStoreMissingDocument(t *testing.T) {
	store, err := persist.NewFileStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	var got testDoc
	err = store.Load(context.Background(), "missing", &got)
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store, err := persist.NewSQLiteStore(t.TempDir() + "/animus.db")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "memories", &testDoc{Value: "v1"}))
	require.NoError(t, store.Save(ctx, "memories", &testDoc{Value: "v2"}))

	var got testDoc
	require.NoError(t, store.Load(ctx, "memories", &got))
	assert.Equal(t, "v2", got.Value)

	err = store.Load(ctx, "missing", &got)
	assert.True(t, errors.Is(err, core.ErrNotFound))
}
