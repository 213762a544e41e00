package storage

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "smoke")
	require.NoError(t, err)
	assert.Equal(t, "smoke", store.Bucket())

	ctx := context.Background()
	for _, name := range []string{"b.txt", "a.txt"} {
		_, err := store.Upload(ctx, &UploadRequest{
			ObjectName: name,
			Content:    strings.NewReader("content of " + name),
			Size:       -1,
		})
		require.NoError(t, err)
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "smoke", "nested"), 0o755))

	data, err := os.ReadFile(filepath.Join(dir, "smoke", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "content of a.txt", string(data))

	objects, err := store.List(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []ObjectInfo{
		{Name: "a.txt", Size: int64(len("content of a.txt"))},
		{Name: "b.txt", Size: int64(len("content of b.txt"))},
	}, objects)

	limited, err := store.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	require.NoError(t, store.Delete(ctx, "a.txt"))
	err = store.Delete(ctx, "a.txt")
	assert.Equal(t, 404, StatusCode(err))
}

func TestLocalStore_PublicURL(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "smoke")
	require.NoError(t, err)

	u, err := url.Parse(store.PublicURL("test.txt"))
	require.NoError(t, err)
	assert.Equal(t, "file", u.Scheme)
	assert.Equal(t, filepath.Join(store.baseDir, "smoke", "test.txt"), filepath.FromSlash(u.Path))
}
