package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpoolStore_PutGetDelete(t *testing.T) {
	store, err := NewSpoolStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	err = store.Put(ctx, "uploads/report.pdf", strings.NewReader("%PDF-1.4 fake"), "application/pdf")
	require.NoError(t, err)

	rc, err := store.Get(ctx, "uploads/report.pdf")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 fake", string(data))

	require.NoError(t, store.Delete(ctx, "uploads/report.pdf"))
	_, err = store.Get(ctx, "uploads/report.pdf")
	assert.Error(t, err)
}

func TestSpoolStore_DeleteMissingKey(t *testing.T) {
	store, err := NewSpoolStore(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, store.Delete(context.Background(), "never-existed.pdf"))
}

func TestSpoolStore_RejectsTraversalKeys(t *testing.T) {
	store, err := NewSpoolStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{"../escape.pdf", "/etc/passwd", "."} {
		assert.Error(t, store.Put(ctx, key, strings.NewReader("x"), ""), key)
		_, err := store.Get(ctx, key)
		assert.Error(t, err, key)
	}
}

func TestSpoolStore_OverwriteReplacesContent(t *testing.T) {
	store, err := NewSpoolStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "doc.pdf", strings.NewReader("first"), ""))
	require.NoError(t, store.Put(ctx, "doc.pdf", strings.NewReader("second"), ""))

	rc, err := store.Get(ctx, "doc.pdf")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}
