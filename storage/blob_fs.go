package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/otiai10/copy"
)

// FSBlobStore keeps blobs as plain files under a root directory.
type FSBlobStore struct {
	root string
}

// NewFSBlobStore creates the root directory if needed.
func NewFSBlobStore(root string) (*FSBlobStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("fsblob: create root: %w", err)
	}
	return &FSBlobStore{root: root}, nil
}

func (s *FSBlobStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("fsblob: invalid key %q", key)
	}
	return filepath.Join(s.root, clean), nil
}

// Upload copies srcPath into the store. The object appears atomically.
func (s *FSBlobStore) Upload(_ context.Context, key, srcPath string) error {
	dst, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("fsblob: create dir: %w", err)
	}

	tmp := dst + ".partial"
	if err := copy.Copy(srcPath, tmp); err != nil {
		return fmt.Errorf("fsblob: upload %q: %w", key, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("fsblob: commit %q: %w", key, err)
	}
	return nil
}

// Download copies the object at key to destPath.
func (s *FSBlobStore) Download(_ context.Context, key, destPath string) error {
	src, err := s.path(key)
	if err != nil {
		return err
	}
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("fsblob: %q: %w", key, ErrNotFound)
		}
		return fmt.Errorf("fsblob: stat %q: %w", key, err)
	}
	if err := copy.Copy(src, destPath); err != nil {
		return fmt.Errorf("fsblob: download %q: %w", key, err)
	}
	return nil
}
