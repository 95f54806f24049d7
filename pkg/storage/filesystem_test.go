package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "abc.png", bytes.NewReader([]byte("data")), "image/png"))
	rc, err := store.Get(ctx, "abc.png")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	require.Equal(t, "data", string(body))

	require.NoError(t, store.Delete(ctx, "abc.png"))
	_, err = store.Get(ctx, "abc.png")
	require.ErrorIs(t, err, ErrObjectNotFound)
	require.NoError(t, store.Delete(ctx, "abc.png"))
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	err = store.Put(context.Background(), "../escape.png", bytes.NewReader(nil), "")
	require.Error(t, err)
	_, err = store.Get(context.Background(), ".hidden")
	require.Error(t, err)
}
