package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/olivertz/playlist-sync/config"
	"github.com/olivertz/playlist-sync/internal/domain"
	"github.com/olivertz/playlist-sync/internal/downloader"
	"github.com/olivertz/playlist-sync/internal/index"
	"github.com/olivertz/playlist-sync/internal/library"
	"github.com/olivertz/playlist-sync/internal/sponsorblock"
	"github.com/olivertz/playlist-sync/internal/storage"
	"github.com/olivertz/playlist-sync/internal/tagger"
)

// Deps are the external collaborators of a sync run. Mirror may be nil
// when no archive mirror is configured.
type Deps struct {
	Lister    downloader.PlaylistLister
	Fetcher   downloader.ItemFetcher
	Annotator sponsorblock.Annotator
	Tagger    tagger.Tagger
	Mirror    storage.Storage
}

// Engine drives the phases of one sync run against a working
// directory. Phases run strictly sequentially; within a phase, units
// run on a bounded worker pool and only ever touch files keyed by
// their own identifier.
type Engine struct {
	workDir string
	cfg     *config.Config
	deps    Deps

	scanner *library.Scanner
	renamer *library.Renamer
	store   *index.Store
}

func New(workDir string, cfg *config.Config, deps Deps) *Engine {
	return &Engine{
		workDir: workDir,
		cfg:     cfg,
		deps:    deps,
		scanner: library.NewScanner(cfg.FileExtension),
		renamer: library.NewRenamer(cfg.FileExtension),
		store:   index.NewStore(workDir),
	}
}

// Run performs one full sync. Only an unobtainable remote listing or a
// failed index commit abort the run; every other failure degrades to a
// per-item skip. Progress committed by a previous run is never lost:
// the index is written once, atomically, at the very end.
func (e *Engine) Run(ctx context.Context, sourceURL string) error {
	if removed := e.scanner.PurgeByproducts(e.workDir, ""); removed > 0 {
		slog.Info("cleaned leftover byproduct files", "count", removed)
	}

	slog.Info("fetching playlist", "url", sourceURL)
	playlist, err := e.deps.Lister.Fetch(ctx, sourceURL)
	if err != nil {
		return err
	}
	slog.Info("playlist fetched", "album", playlist.Album, "items", len(playlist.Items))

	priorDoc := e.store.Load()
	priors := priorDoc.Priors()

	stats, err := e.scanner.Clean(e.workDir, playlist.IDSet())
	if err != nil {
		return err
	}
	if stats.Total() > 0 {
		slog.Info("removed unreconcilable files",
			"no_id", stats.NoID, "orphans", stats.Orphans, "duplicates", stats.Duplicates)
	}

	local, err := e.scanner.Scan(e.workDir)
	if err != nil {
		return err
	}

	plan := Reconcile(playlist.Items, local)
	slog.Info("reconciled", "local", len(local), "missing", len(plan.ToFetch))

	// Identifiers fetched this run; they are never flagged as changed
	// by the annotation check.
	fresh := make(map[string]bool)
	var freshMu sync.Mutex

	runPhase(ctx, "download", "[cyan][1/5][reset] Downloading...",
		plan.ToFetch, e.cfg.ParallelDownloads, itemLabel,
		func(ctx context.Context, item domain.RemoteItem) error {
			if err := e.deps.Fetcher.FetchItem(ctx, item, playlist.Album); err != nil {
				return err
			}
			freshMu.Lock()
			fresh[item.ID] = true
			freshMu.Unlock()
			return nil
		})
	if err := ctx.Err(); err != nil {
		return e.abort(err)
	}

	if len(plan.ToFetch) > 0 {
		if local, err = e.scanner.Scan(e.workDir); err != nil {
			return err
		}
	}

	present := presentItems(playlist.Items, local)

	// Tag failures leave the file untagged and never fail the sync.
	runPhase(ctx, "tag", "[cyan][2/5][reset] Writing metadata...",
		present, e.cfg.ParallelDownloads, itemLabel,
		func(ctx context.Context, item domain.RemoteItem) error {
			return e.deps.Tagger.Tag(ctx, e.tagParams(item, local[item.ID], playlist))
		})

	e.renamer.Apply(e.workDir, playlist.Items, local)
	if err := ctx.Err(); err != nil {
		return e.abort(err)
	}

	outcomes := make(map[string]sponsorblock.Outcome, len(present))
	var outcomeMu sync.Mutex

	runPhase(ctx, "annotation", "[cyan][3/5][reset] Checking annotations...",
		present, e.cfg.SBConcurrency, itemLabel,
		func(ctx context.Context, item domain.RemoteItem) error {
			segments, err := e.deps.Annotator.Segments(ctx, item.ID)

			var fingerprint string
			var count int
			if err == nil {
				fingerprint, count = sponsorblock.Fingerprint(segments)
			}

			rec := priors[item.ID]
			prior := sponsorblock.Prior{Fingerprint: rec.Fingerprint, Count: rec.SegmentCount}
			outcome := sponsorblock.Evaluate(fingerprint, count, err, prior, fresh[item.ID])

			outcomeMu.Lock()
			outcomes[item.ID] = outcome
			outcomeMu.Unlock()

			if outcome.Changed {
				slog.Warn("upstream annotation changed",
					"id", item.ID, "title", item.Title,
					"segments", outcome.Count, "was", prior.Count)
			}
			// A service failure fails open but still shows in the tally.
			return err
		})
	if err := ctx.Err(); err != nil {
		return e.abort(err)
	}

	var changed []domain.RemoteItem
	for _, item := range present {
		if outcomes[item.ID].Changed {
			changed = append(changed, item)
		}
	}

	if len(changed) > 0 {
		slog.Warn("re-fetching items whose upstream annotation changed", "count", len(changed))

		runPhase(ctx, "re-fetch", "[cyan][4/5][reset] Re-downloading...",
			changed, e.cfg.ParallelDownloads, itemLabel,
			func(ctx context.Context, item domain.RemoteItem) error {
				oldPath := local[item.ID].Path

				if err := e.deps.Fetcher.FetchItem(ctx, item, playlist.Album); err != nil {
					// The old media stays; restore the prior
					// fingerprint so the drift is detected again and
					// the re-fetch retried on the next run.
					rec := priors[item.ID]
					outcomeMu.Lock()
					outcomes[item.ID] = sponsorblock.Outcome{
						Fingerprint: rec.Fingerprint,
						Count:       rec.SegmentCount,
					}
					outcomeMu.Unlock()
					return err
				}

				// Keep the old file until the replacement is confirmed
				// present, then remove it.
				for _, path := range e.scanner.FilesFor(e.workDir, item.ID) {
					if path != oldPath {
						if err := os.Remove(oldPath); err != nil && !os.IsNotExist(err) {
							slog.Warn("failed to remove replaced file", "path", oldPath, "error", err)
						}
						break
					}
				}
				return nil
			})

		if local, err = e.scanner.Scan(e.workDir); err != nil {
			return err
		}
		e.renamer.Apply(e.workDir, playlist.Items, local)
	}
	if err := ctx.Err(); err != nil {
		return e.abort(err)
	}

	doc := e.buildDocument(playlist, sourceURL, local, outcomes, priors, priorDoc)
	if err := e.store.Save(doc); err != nil {
		return err
	}
	slog.Info("sync complete", "indexed", len(doc.Records))

	e.mirrorArtifacts(ctx, local, fresh)
	return nil
}

// abort runs the best-effort cleanup done when the run is cancelled:
// byproducts are purged and the index left untouched, so the last
// committed state stays valid.
func (e *Engine) abort(cause error) error {
	e.scanner.PurgeByproducts(e.workDir, "")
	return fmt.Errorf("sync aborted: %w", cause)
}

func (e *Engine) tagParams(item domain.RemoteItem, entry domain.LocalItem, playlist domain.Playlist) tagger.TagParams {
	artist := item.Artist
	if e.cfg.AlbumArtist != "" {
		artist = e.cfg.AlbumArtist
	}
	return tagger.TagParams{
		Path:       entry.Path,
		Album:      playlist.Album,
		Track:      item.Position,
		TrackCount: len(playlist.Items),
		Title:      item.Title,
		Artist:     artist,
		Year:       item.UploadYear,
		Comment:    item.Description,
		ArtworkURL: thumbnailURL(item.ID),
	}
}

// buildDocument assembles the index for every remote item that ended
// the run with a local file, in remote order.
func (e *Engine) buildDocument(
	playlist domain.Playlist,
	sourceURL string,
	local map[string]domain.LocalItem,
	outcomes map[string]sponsorblock.Outcome,
	priors map[string]index.Record,
	priorDoc *index.Document,
) *index.Document {
	doc := &index.Document{
		Album:       playlist.Album,
		SourceURL:   sourceURL,
		CreatedYear: priorDoc.CreatedYear,
	}
	if doc.CreatedYear == 0 {
		doc.CreatedYear = time.Now().Year()
	}

	for _, item := range playlist.Items {
		entry, ok := local[item.ID]
		if !ok {
			continue
		}

		rec := index.Record{
			ID:       item.ID,
			Position: item.Position,
			Filename: filepath.Base(entry.Path),
		}
		if outcome, ok := outcomes[item.ID]; ok {
			rec.Fingerprint = outcome.Fingerprint
			rec.SegmentCount = outcome.Count
		} else if prior, ok := priors[item.ID]; ok {
			rec.Fingerprint = prior.Fingerprint
			rec.SegmentCount = prior.SegmentCount
		}
		doc.Records = append(doc.Records, rec)
	}

	return doc
}

// mirrorArtifacts archives the committed index and this run's new
// files. Mirroring is best-effort and never fails the sync.
func (e *Engine) mirrorArtifacts(ctx context.Context, local map[string]domain.LocalItem, fresh map[string]bool) {
	if e.deps.Mirror == nil {
		return
	}

	put := func(path string) {
		f, err := os.Open(path)
		if err != nil {
			slog.Warn("mirror skipped unreadable file", "path", path, "error", err)
			return
		}
		defer f.Close()
		if err := e.deps.Mirror.Put(ctx, filepath.Base(path), f); err != nil {
			slog.Warn("mirror upload failed", "path", path, "error", err)
		}
	}

	put(e.store.Path())
	for id := range fresh {
		if entry, ok := local[id]; ok {
			put(entry.Path)
		}
	}
}

func presentItems(items []domain.RemoteItem, local map[string]domain.LocalItem) []domain.RemoteItem {
	var present []domain.RemoteItem
	for _, item := range items {
		if _, ok := local[item.ID]; ok {
			present = append(present, item)
		}
	}
	return present
}

func itemLabel(item domain.RemoteItem) string {
	return item.Title
}

func thumbnailURL(id string) string {
	return "https://i.ytimg.com/vi/" + id + "/hqdefault.jpg"
}
