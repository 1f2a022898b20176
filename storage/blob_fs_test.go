package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSBlobStoreUploadDownload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFSBlobStore(filepath.Join(dir, "blobs"))
	require.NoError(t, err)

	src := writeFile(t, dir, "payload.csv", "a,b\n1,2\n")
	require.NoError(t, store.Upload(ctx, "sample.csv/abc/payload.csv", src))

	dst := filepath.Join(dir, "out", "payload.csv")
	require.NoError(t, store.Download(ctx, "sample.csv/abc/payload.csv", dst))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(got))
}

func TestFSBlobStoreMissingKey(t *testing.T) {
	store, err := NewFSBlobStore(t.TempDir())
	require.NoError(t, err)

	err = store.Download(context.Background(), "missing/key.csv", filepath.Join(t.TempDir(), "x"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFSBlobStoreRejectsEscapingKeys(t *testing.T) {
	store, err := NewFSBlobStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"../outside.csv", "/etc/passwd", ""} {
		err := store.Upload(context.Background(), key, "unused")
		assert.Error(t, err, key)
	}
}
