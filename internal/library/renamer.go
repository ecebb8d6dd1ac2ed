package library

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/olivertz/playlist-sync/internal/domain"
)

// Renamer enforces the canonical filename
// "NNN - Title [identifier].ext" for every item present locally.
type Renamer struct {
	ext string
}

func NewRenamer(ext string) *Renamer {
	return &Renamer{ext: strings.TrimPrefix(ext, ".")}
}

// CanonicalName returns the filename an item should carry: zero-padded
// 3-digit position, sanitized title and bracketed identifier.
func (r *Renamer) CanonicalName(item domain.RemoteItem) string {
	return fmt.Sprintf("%03d - %s [%s].%s", item.Position, sanitizeTitle(item.Title), item.ID, r.ext)
}

// Apply renames every locally-present item whose current name differs
// from its canonical name. Matching names are skipped silently; a
// collision with an existing distinct file is reported and the original
// name kept. The local mapping is updated in place so later phases see
// the new paths. Returns the number of files renamed.
func (r *Renamer) Apply(dir string, items []domain.RemoteItem, local map[string]domain.LocalItem) int {
	renamed := 0

	for _, item := range items {
		entry, ok := local[item.ID]
		if !ok {
			continue
		}

		target := filepath.Join(dir, r.CanonicalName(item))
		if entry.Path == target {
			continue
		}

		if _, err := os.Stat(target); err == nil {
			slog.Warn("rename collision, keeping current name",
				"id", item.ID, "current", filepath.Base(entry.Path), "target", filepath.Base(target))
			continue
		}

		if err := os.Rename(entry.Path, target); err != nil {
			slog.Warn("rename failed", "id", item.ID, "error", err)
			continue
		}

		local[item.ID] = domain.LocalItem{ID: item.ID, Path: target}
		renamed++
	}

	if renamed > 0 {
		slog.Info("renamed files", "count", renamed)
	}
	return renamed
}

// sanitizeTitle strips characters that are illegal in filenames.
func sanitizeTitle(title string) string {
	replacer := strings.NewReplacer(
		"\\", "", "/", "", "*", "", "?", "", ":", "", "\"", "", "<", "", ">", "", "|", "",
	)
	return replacer.Replace(title)
}
