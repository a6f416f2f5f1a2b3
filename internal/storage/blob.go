package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/jimaku/internal/models"
)

// DiskBlobStore implements BlobStore on a local directory. Keys are
// slash-separated relative paths.
type DiskBlobStore struct {
	root string
}

// NewDiskBlobStore creates the root directory if needed.
func NewDiskBlobStore(root string) (*DiskBlobStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("%w: create blob root: %w", models.ErrIO, err)
	}
	return &DiskBlobStore{root: root}, nil
}

// Root returns the blob root directory.
func (d *DiskBlobStore) Root() string {
	return d.root
}

func (d *DiskBlobStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(key, "/")))
	if key == "" || clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: invalid blob key %q", models.ErrInvalid, key)
	}
	return filepath.Join(d.root, clean), nil
}

// Get reads the object stored under key.
func (d *DiskBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := d.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: blob %s", models.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read blob %s: %w", models.ErrIO, key, err)
	}
	return data, nil
}

// Put writes data under key. The object is written to a temporary file and
// renamed into place so readers never see a partial object.
func (d *DiskBlobStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("%w: create blob dir for %s: %w", models.ErrIO, key, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: write blob %s: %w", models.ErrIO, key, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: write blob %s: %w", models.ErrIO, key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: write blob %s: %w", models.ErrIO, key, err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		return fmt.Errorf("%w: commit blob %s: %w", models.ErrIO, key, err)
	}
	return nil
}

// Exists reports whether an object is stored under key.
func (d *DiskBlobStore) Exists(ctx context.Context, key string) (bool, error) {
	p, err := d.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("%w: stat blob %s: %w", models.ErrIO, key, err)
}

// Delete removes the object under key. Deleting a missing object is not an error.
func (d *DiskBlobStore) Delete(ctx context.Context, key string) error {
	p, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: delete blob %s: %w", models.ErrIO, key, err)
	}
	return nil
}
