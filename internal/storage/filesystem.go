package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fraolBatole/AuraLab/internal/domain"
)

// FileStore persists generated assets and uploaded reference images on the
// local filesystem. Job artifacts live under jobs/<job-id>/, uploads under
// uploads/<account-id>/.
type FileStore struct {
	basePath string
}

// NewFileStore initializes a FileStore rooted at basePath.
func NewFileStore(basePath string) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("%w: ensure base path: %w", domain.ErrStorage, err)
	}
	return &FileStore{basePath: basePath}, nil
}

// BasePath returns the configured root directory.
func (s *FileStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.basePath
}

// JobDir is the key prefix under which all of a job's artifacts live.
func JobDir(jobID string) string {
	return "jobs/" + jobID
}

// JobKey builds the storage key for an artifact belonging to a job.
func JobKey(jobID, filename string) string {
	return JobDir(jobID) + "/" + filename
}

// UploadKey builds the storage key for a reference image uploaded by an account.
func UploadKey(accountID int64, filename string) string {
	return fmt.Sprintf("uploads/%d/%s", accountID, filename)
}

// Write persists the provided bytes at the given relative key and returns the
// canonicalized storage key. Keys are cleaned to prevent directory traversal.
func (s *FileStore) Write(ctx context.Context, key string, data []byte) (string, error) {
	if s == nil {
		return "", errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(cleanKey))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("%w: ensure directory: %w", domain.ErrStorage, err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("%w: write file: %w", domain.ErrStorage, err)
	}
	return cleanKey, nil
}

// Read loads the bytes stored under a key.
func (s *FileStore) Read(ctx context.Context, key string) ([]byte, error) {
	if s == nil {
		return nil, errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.basePath, filepath.FromSlash(cleanKey)))
	if err != nil {
		return nil, fmt.Errorf("%w: read file: %w", domain.ErrStorage, err)
	}
	return data, nil
}

// Remove deletes a single stored file. A missing file is not an error: cleanup
// paths run unconditionally and may race each other.
func (s *FileStore) Remove(ctx context.Context, key string) error {
	if s == nil {
		return errors.New("storage: no store configured")
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.basePath, filepath.FromSlash(cleanKey))); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: remove file: %w", domain.ErrStorage, err)
	}
	return nil
}

// RemoveAll deletes a key prefix recursively, e.g. a whole job directory.
func (s *FileStore) RemoveAll(ctx context.Context, prefix string) error {
	if s == nil {
		return errors.New("storage: no store configured")
	}
	cleanKey, err := sanitizeKey(prefix)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Join(s.basePath, filepath.FromSlash(cleanKey))); err != nil {
		return fmt.Errorf("%w: remove prefix: %w", domain.ErrStorage, err)
	}
	return nil
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("%w: key is required", domain.ErrStorage)
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.Clean(key)
	cleaned = strings.ReplaceAll(cleaned, "\\", "/")
	if cleaned == "." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: invalid key %q", domain.ErrStorage, key)
	}
	return cleaned, nil
}
