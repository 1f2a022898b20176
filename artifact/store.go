// Package artifact resolves artifact identifiers to local files and publishes
// local files as new artifact versions.
package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"basic-cleaning/models"
	"basic-cleaning/storage"
	"basic-cleaning/utils"
)

// Spec describes a local file to publish.
type Spec struct {
	Name        string
	Type        string
	Description string
	Path        string
}

// Store ties a registry (metadata) to a blob store (payloads) and a local cache.
type Store struct {
	registry storage.ArtifactRegistry
	blobs    storage.BlobStore
	cacheDir string
	logger   *utils.Logger
	now      func() time.Time
}

// NewStore creates a Store that materialises resolved artifacts under cacheDir.
func NewStore(registry storage.ArtifactRegistry, blobs storage.BlobStore, cacheDir string, logger *utils.Logger) *Store {
	return &Store{
		registry: registry,
		blobs:    blobs,
		cacheDir: cacheDir,
		logger:   logger,
		now:      time.Now,
	}
}

// Resolve looks up identifier and returns the path of a verified local copy.
// Every failure is a *models.ResolutionError.
func (s *Store) Resolve(ctx context.Context, identifier string) (string, *models.ArtifactVersion, error) {
	fail := func(err error) (string, *models.ArtifactVersion, error) {
		return "", nil, &models.ResolutionError{Identifier: identifier, Err: err}
	}

	id, err := ParseIdentifier(identifier)
	if err != nil {
		return fail(err)
	}

	var v *models.ArtifactVersion
	if id.Version < 0 {
		v, err = s.registry.LatestVersion(ctx, id.Name)
	} else {
		v, err = s.registry.GetVersion(ctx, id.Name, id.Version)
	}
	if err != nil {
		return fail(err)
	}

	local := filepath.Join(s.cacheDir, v.Name, "v"+strconv.Itoa(v.Version), v.FileName)
	if digest, err := fileDigest(local); err == nil && digest == v.Digest {
		s.logger.Debug("[artifact] %s already materialised at %s", v.Tag(), local)
		return local, v, nil
	}

	if err := os.MkdirAll(filepath.Dir(local), 0755); err != nil {
		return fail(fmt.Errorf("create cache dir: %w", err))
	}
	if err := s.blobs.Download(ctx, v.ObjectKey, local); err != nil {
		return fail(err)
	}

	digest, err := fileDigest(local)
	if err != nil {
		return fail(err)
	}
	if digest != v.Digest {
		_ = os.Remove(local)
		return fail(fmt.Errorf("digest mismatch for %s: registry %s, downloaded %s", v.Tag(), v.Digest, digest))
	}

	s.logger.Info("[artifact] Resolved %s → %s (%d bytes)", v.Tag(), local, v.Size)
	return local, v, nil
}

// Publish uploads spec.Path and registers it as the next version of spec.Name,
// produced by runID.
func (s *Store) Publish(ctx context.Context, spec Spec, runID string) (*models.ArtifactVersion, error) {
	if spec.Name == "" {
		return nil, errors.New("artifact: publish: empty name")
	}

	info, err := os.Stat(spec.Path)
	if err != nil {
		return nil, fmt.Errorf("artifact: publish %q: %w", spec.Name, err)
	}
	digest, err := fileDigest(spec.Path)
	if err != nil {
		return nil, fmt.Errorf("artifact: publish %q: %w", spec.Name, err)
	}

	fileName := filepath.Base(spec.Path)
	v := &models.ArtifactVersion{
		ID:          uuid.NewString(),
		Name:        spec.Name,
		Type:        spec.Type,
		Description: spec.Description,
		FileName:    fileName,
		Digest:      digest,
		Size:        info.Size(),
		ObjectKey:   path.Join(spec.Name, digest, fileName),
		RunID:       runID,
		CreatedAt:   s.now().UTC(),
	}

	if err := s.blobs.Upload(ctx, v.ObjectKey, spec.Path); err != nil {
		return nil, fmt.Errorf("artifact: upload %q: %w", spec.Name, err)
	}
	if err := s.registry.RegisterVersion(ctx, v); err != nil {
		return nil, fmt.Errorf("artifact: register %q: %w", spec.Name, err)
	}

	s.logger.Info("[artifact] Published %s (type: %s, %d bytes, sha256 %s)", v.Tag(), v.Type, v.Size, digest[:12])
	return v, nil
}

func fileDigest(p string) (string, error) {
	f, err := os.Open(p)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", p, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
