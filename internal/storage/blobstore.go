// Package storage provides blob persistence for generated media assets.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storyboard-server/internal/models"
)

// BlobStore persists asset bytes and serves them back by public URL.
type BlobStore interface {
	// Put writes bytes at the given relative path and returns the public
	// URL of the stored object.
	Put(ctx context.Context, path string, data []byte) (string, error)
	// Delete removes the object at the given relative path. Deleting an
	// absent object is not an error.
	Delete(ctx context.Context, path string) error
}

// AssetPath returns the deterministic storage path for one shot asset:
// stories/{storyID}/scenes/{sceneID}/shots/{shotID}/{kind}.{ext}.
func AssetPath(storyID, sceneID, shotID uuid.UUID, kind models.MediaKind) string {
	return fmt.Sprintf("stories/%s/scenes/%s/shots/%s/%s.%s",
		storyID, sceneID, shotID, kind, kind.Ext())
}

// localBlobStore writes assets to a mounted directory served by a static
// file host at a public base URL.
type localBlobStore struct {
	logger   *zap.Logger
	savePath string
	baseURL  string
}

var _ BlobStore = (*localBlobStore)(nil)

// NewLocalBlobStore creates a disk-backed blob store.
func NewLocalBlobStore(logger *zap.Logger, savePath, publicBaseURL string) (BlobStore, error) {
	if savePath == "" {
		return nil, fmt.Errorf("%w: asset save path is not configured", models.ErrStorage)
	}
	if publicBaseURL == "" {
		return nil, fmt.Errorf("%w: asset public base URL is not configured", models.ErrStorage)
	}
	return &localBlobStore{
		logger:   logger.Named("BlobStore"),
		savePath: savePath,
		baseURL:  strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

func (s *localBlobStore) Put(ctx context.Context, path string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: refusing to store empty asset at %s", models.ErrStorage, path)
	}
	fullPath := filepath.Join(s.savePath, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		s.logger.Error("Failed to create asset directory", zap.String("path", fullPath), zap.Error(err))
		return "", fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		s.logger.Error("Failed to write asset", zap.String("path", fullPath), zap.Error(err))
		return "", fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	url := s.baseURL + "/" + path
	s.logger.Info("Asset stored", zap.String("path", path), zap.Int("size_bytes", len(data)), zap.String("url", url))
	return url, nil
}

func (s *localBlobStore) Delete(ctx context.Context, path string) error {
	fullPath := filepath.Join(s.savePath, filepath.FromSlash(path))
	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		s.logger.Error("Failed to delete asset", zap.String("path", fullPath), zap.Error(err))
		return fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	s.logger.Info("Asset deleted", zap.String("path", path))
	return nil
}
