// Package library manages the working directory: scanning media files
// into a one-identifier-to-one-file mapping, removing files that cannot
// be reconciled, and enforcing canonical filenames.
package library

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/olivertz/playlist-sync/internal/domain"
)

// idPattern matches the bracketed 11-character identifier that the
// fetch tool embeds at the end of every filename it produces.
var idPattern = regexp.MustCompile(`\[([a-zA-Z0-9_-]{11})\]\.[a-z0-9]+$`)

// Byproduct suffixes left behind by the fetch tool: partial downloads,
// format fragments and thumbnail caches.
var (
	tempSuffixes = []string{".part", ".ytdl", ".f140.m4a", ".f140.webm", ".f251.webm"}
	artSuffixes  = []string{".jpg", ".jpeg", ".webp", ".png"}
)

// ExtractID pulls the identifier out of a filename. The second return
// value is false when the name carries no recoverable identifier.
func ExtractID(name string) (string, bool) {
	m := idPattern.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// CleanStats reports what a Clean pass removed from the directory.
type CleanStats struct {
	NoID       int
	Orphans    int
	Duplicates int
}

// Total returns the number of files deleted by the pass.
func (s CleanStats) Total() int {
	return s.NoID + s.Orphans + s.Duplicates
}

// Scanner reads and repairs the local state of a working directory.
// Media files are recognized by the configured extension.
type Scanner struct {
	ext string
}

func NewScanner(ext string) *Scanner {
	return &Scanner{ext: strings.TrimPrefix(ext, ".")}
}

// Scan walks the directory and returns the identifier-to-file mapping.
// It is a pure read: nothing on disk is touched. When two files share
// an identifier the lexicographically-first path wins, matching the
// tie-break Clean applies when it deletes the others.
func (s *Scanner) Scan(dir string) (map[string]domain.LocalItem, error) {
	names, err := s.mediaFiles(dir)
	if err != nil {
		return nil, err
	}

	local := make(map[string]domain.LocalItem, len(names))
	for _, name := range names {
		id, ok := ExtractID(name)
		if !ok {
			continue
		}
		if _, taken := local[id]; taken {
			// Names are sorted, so the first occurrence is the keeper.
			continue
		}
		local[id] = domain.LocalItem{ID: id, Path: filepath.Join(dir, name)}
	}
	return local, nil
}

// Clean deletes every media file that cannot be reconciled against the
// remote identifier set: files without an extractable identifier,
// orphans whose identifier left the playlist, and all but the
// lexicographically-first file of each duplicated identifier.
// Re-running Clean on an already-clean directory deletes nothing.
func (s *Scanner) Clean(dir string, remoteIDs map[string]bool) (CleanStats, error) {
	names, err := s.mediaFiles(dir)
	if err != nil {
		return CleanStats{}, err
	}

	var stats CleanStats
	kept := make(map[string]bool, len(names))

	for _, name := range names {
		path := filepath.Join(dir, name)

		id, ok := ExtractID(name)
		if !ok {
			if remove(path) {
				stats.NoID++
			}
			continue
		}
		if !remoteIDs[id] {
			if remove(path) {
				stats.Orphans++
			}
			continue
		}
		if kept[id] {
			if remove(path) {
				stats.Duplicates++
			}
			continue
		}
		kept[id] = true
	}

	return stats, nil
}

// PurgeByproducts removes partial downloads and thumbnail caches. With
// a non-empty id only that item's byproducts are touched; with an empty
// id the whole directory is swept. Returns the number of files removed.
func (s *Scanner) PurgeByproducts(dir, id string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Warn("byproduct sweep failed", "dir", dir, "error", err)
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if id != "" && !strings.Contains(name, id) {
			continue
		}
		if !s.isByproduct(name) {
			continue
		}
		if remove(filepath.Join(dir, name)) {
			removed++
		}
	}
	return removed
}

// FilesFor returns every complete media file carrying the identifier,
// duplicates included.
func (s *Scanner) FilesFor(dir, id string) []string {
	names, err := s.mediaFiles(dir)
	if err != nil {
		slog.Warn("directory scan failed", "dir", dir, "error", err)
		return nil
	}

	var paths []string
	for _, name := range names {
		if got, ok := ExtractID(name); ok && got == id {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	return paths
}

// mediaFiles returns the sorted names of complete media files in dir.
// In-flight download artifacts are never treated as media.
func (s *Scanner) mediaFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, "."+s.ext) {
			continue
		}
		if strings.Contains(name, ".temp.") || strings.Contains(name, ".part") {
			continue
		}
		names = append(names, name)
	}
	// os.ReadDir returns entries sorted by name; the duplicate
	// tie-break depends on that ordering.
	return names, nil
}

func (s *Scanner) isByproduct(name string) bool {
	if strings.HasSuffix(name, ".temp."+s.ext) {
		return true
	}
	for _, suffix := range tempSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	for _, suffix := range artSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

func remove(path string) bool {
	if err := os.Remove(path); err != nil {
		slog.Warn("failed to remove file", "path", path, "error", err)
		return false
	}
	return true
}
