// Package index persists the durable record of the last successful
// sync: one JSON document per working directory, written atomically.
package index

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
)

// FileName is the hidden per-directory index file.
const FileName = ".playlist-sync.json"

// ErrSaveFailed marks a failed index commit. The previous on-disk
// document stays valid because writes are atomic.
var ErrSaveFailed = fmt.Errorf("failed to save index")

// Record is the durable row for one item known at the last sync.
type Record struct {
	ID           string `json:"id"`
	Position     int    `json:"position"`
	Filename     string `json:"filename"`
	Fingerprint  string `json:"sb_fingerprint,omitempty"`
	SegmentCount int    `json:"sb_segments"`
}

// Document is the full index for one working directory.
type Document struct {
	Album       string    `json:"album"`
	SourceURL   string    `json:"url"`
	CreatedYear int       `json:"created_year,omitempty"`
	Updated     time.Time `json:"updated"`
	Records     []Record  `json:"items"`
}

// Priors returns the per-identifier record map for quick lookup.
func (d *Document) Priors() map[string]Record {
	priors := make(map[string]Record, len(d.Records))
	for _, rec := range d.Records {
		priors[rec.ID] = rec
	}
	return priors
}

// Store reads and writes the index document of one directory.
type Store struct {
	path string
}

func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(dir, FileName)}
}

// Path returns the index file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the last committed document. Loading is best-effort: a
// missing file, malformed JSON or wrong shape yields an empty document,
// never an error, so a damaged index degrades to a cold start.
func (s *Store) Load() *Document {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("index unreadable, starting cold", "path", s.path, "error", err)
		}
		return &Document{}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		slog.Warn("index malformed, starting cold", "path", s.path, "error", err)
		return &Document{}
	}
	return &doc
}

// Save commits the document: marshal, write to a sibling temporary
// file, sync, then atomically rename over the target. A concurrent
// reader or a crash can never observe a half-written index.
func (s *Store) Save(doc *Document) error {
	doc.Updated = time.Now()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, FileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	return nil
}
