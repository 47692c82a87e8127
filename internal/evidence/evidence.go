// Package evidence spools captured stills on local disk between capture and
// upload. Handles stored in a draft are spool keys, resolved back to bytes by
// the submission pipeline.
package evidence

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store is the evidence spool contract. Implementations must reject keys
// that escape their storage root.
type Store interface {
	Save(ctx context.Context, frame image.Image) (key string, err error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// DiskStore keeps spooled stills as PNG files under a base directory.
type DiskStore struct {
	basePath string
}

func NewDiskStore(basePath string) (*DiskStore, error) {
	if err := os.MkdirAll(basePath, 0700); err != nil {
		return nil, fmt.Errorf("failed to create spool directory: %w", err)
	}
	return &DiskStore{basePath: basePath}, nil
}

// Save encodes the frame as PNG under a fresh key.
func (s *DiskStore) Save(ctx context.Context, frame image.Image) (string, error) {
	key := uuid.NewString() + ".png"

	f, err := os.Create(filepath.Join(s.basePath, key))
	if err != nil {
		return "", fmt.Errorf("failed to create spool file: %w", err)
	}
	if err := png.Encode(f, frame); err != nil {
		_ = f.Close()
		_ = os.Remove(filepath.Join(s.basePath, key))
		return "", fmt.Errorf("failed to encode frame: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(filepath.Join(s.basePath, key))
		return "", fmt.Errorf("failed to close spool file: %w", err)
	}
	return key, nil
}

func (s *DiskStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := s.safeJoin(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("evidence image not found")
		}
		return nil, fmt.Errorf("failed to open spool file: %w", err)
	}
	return f, nil
}

// Remove deletes a spooled still. Removing an absent key is not an error;
// discarding evidence is idempotent.
func (s *DiskStore) Remove(ctx context.Context, key string) error {
	path, err := s.safeJoin(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove spool file: %w", err)
	}
	return nil
}

// safeJoin resolves key relative to basePath and rejects directory traversal.
func (s *DiskStore) safeJoin(key string) (string, error) {
	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid spool path: %w", err)
	}

	absPath, err := filepath.Abs(filepath.Join(s.basePath, key))
	if err != nil {
		return "", fmt.Errorf("invalid key: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid evidence key")
	}
	return absPath, nil
}
