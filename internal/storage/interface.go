// Package storage mirrors synced files to an archive location after a
// successful run. Mirroring is optional and never fails a sync.
package storage

import (
	"context"
	"io"
)

// Storage is the archive mirror boundary.
type Storage interface {
	// Put stores the named object, replacing any previous version.
	Put(ctx context.Context, name string, r io.Reader) error

	// Exists reports whether the named object is already archived.
	Exists(ctx context.Context, name string) (bool, error)
}
