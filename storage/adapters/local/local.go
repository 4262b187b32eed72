package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/storefront/mediastore/storage/api"
	"github.com/storefront/mediastore/storage/config"
)

const tempPrefix = ".upload-"

// LocalBackend implements api.Backend on a directory tree.
type LocalBackend struct {
	root string
}

// Ensure LocalBackend implements api.Backend
var _ api.Backend = (*LocalBackend)(nil)

// NewLocalBackend creates the root directory if needed.
func NewLocalBackend(cfg config.LocalConfig) (*LocalBackend, error) {
	root := strings.TrimSpace(cfg.Root)
	if root == "" {
		return nil, errors.New("local storage root is empty; set MEDIA_STORAGE_ROOT")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &LocalBackend{root: abs}, nil
}

// Root returns the absolute directory keys resolve against.
func (b *LocalBackend) Root() string {
	return b.root
}

// resolve maps a key to an absolute path and refuses anything that escapes root.
func (b *LocalBackend) resolve(key string) (string, error) {
	if key == "" {
		return "", errors.New("empty key")
	}
	full := filepath.Join(b.root, filepath.FromSlash(key))
	rel, err := filepath.Rel(b.root, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("key %q escapes storage root", key)
	}
	return full, nil
}

// Put writes into a temp file next to the target and renames it into place.
func (b *LocalBackend) Put(ctx context.Context, key string, data io.Reader, size int64, contentType string) error {
	full, err := b.resolve(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: data}); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("failed to chmod file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpPath, full); err != nil {
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	committed = true
	return nil
}

func (b *LocalBackend) Exists(ctx context.Context, key string) (bool, error) {
	full, err := b.resolve(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat file: %w", err)
	}
	return info.Mode().IsRegular(), nil
}

func (b *LocalBackend) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	full, err := b.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", api.ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

func (b *LocalBackend) Delete(ctx context.Context, key string) (bool, error) {
	full, err := b.resolve(key)
	if err != nil {
		return false, err
	}
	if err := os.Remove(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete file: %w", err)
	}
	return true, nil
}

// DeletePrefix removes the directory below prefix. Only regular files count.
func (b *LocalBackend) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	full, err := b.resolve(strings.TrimSuffix(prefix, "/"))
	if err != nil {
		return 0, err
	}
	count := 0
	walkErr := filepath.WalkDir(full, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && !strings.HasPrefix(d.Name(), tempPrefix) {
			count++
		}
		return nil
	})
	if walkErr != nil {
		if errors.Is(walkErr, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to scan directory: %w", walkErr)
	}
	if err := os.RemoveAll(full); err != nil {
		return 0, fmt.Errorf("failed to delete directory: %w", err)
	}
	return count, nil
}

// ctxReader stops a copy once the context is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
