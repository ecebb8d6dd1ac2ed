package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalMirror copies objects into a directory on the same machine,
// typically a mounted backup volume.
type LocalMirror struct {
	dir string
}

func NewLocalMirror(dir string) (*LocalMirror, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create mirror directory %s: %w", dir, err)
	}
	return &LocalMirror{dir: dir}, nil
}

// Put writes the object through a temporary file so a crash never
// leaves a half-copied object in the mirror.
func (m *LocalMirror) Put(ctx context.Context, name string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(m.dir, ".mirror-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create mirror temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy to mirror: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close mirror temp file: %w", err)
	}

	if err := os.Rename(tmpPath, filepath.Join(m.dir, name)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to place mirrored object: %w", err)
	}
	return nil
}

func (m *LocalMirror) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(filepath.Join(m.dir, name))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
