package downloader

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/olivertz/playlist-sync/internal/domain"
	"github.com/olivertz/playlist-sync/internal/library"
)

const defaultItemTimeout = 2 * time.Minute

// ErrGhostSuccess means the tool reported success but no file carrying
// the item's identifier exists afterwards.
var ErrGhostSuccess = fmt.Errorf("no file found after download")

// YtdlpFetcher downloads single items with yt-dlp, falling back to the
// web.archive.org mirror when the primary URL fails.
type YtdlpFetcher struct {
	Tool       string
	ConfigPath string
	Timeout    time.Duration
	WorkDir    string

	scanner *library.Scanner
}

func NewYtdlpFetcher(workDir, configPath, ext string, timeout time.Duration) *YtdlpFetcher {
	if timeout <= 0 {
		timeout = defaultItemTimeout
	}
	return &YtdlpFetcher{
		Tool:       defaultTool,
		ConfigPath: configPath,
		Timeout:    timeout,
		WorkDir:    workDir,
		scanner:    library.NewScanner(ext),
	}
}

// FetchItem tries the item's watch URL, then the archival mirror; the
// first verified success wins. After every attempt the item's partial
// files and thumbnail caches are purged. A success report without a
// resulting file is itself a failure.
func (f *YtdlpFetcher) FetchItem(ctx context.Context, item domain.RemoteItem, album string) error {
	primary := watchURL(item.ID)

	var lastErr error
	for _, url := range []string{primary, archiveURL(primary)} {
		out, err := runTool(ctx, f.WorkDir, f.tool(), f.Timeout, f.args(item, album, url)...)
		f.scanner.PurgeByproducts(f.WorkDir, item.ID)

		if err != nil {
			lastErr = fmt.Errorf("%s: %s", err, lastLine(out))
			continue
		}

		if !f.filePresent(item.ID) {
			lastErr = fmt.Errorf("%w: %s", ErrGhostSuccess, item.ID)
			continue
		}
		return nil
	}

	return lastErr
}

func (f *YtdlpFetcher) args(item domain.RemoteItem, album, url string) []string {
	args := []string{}
	if f.ConfigPath != "" {
		args = append(args, "--config-location", f.ConfigPath)
	}
	args = append(args,
		"--parse-metadata", fmt.Sprintf("%s:%%(meta_album)s", album),
		"--parse-metadata", fmt.Sprintf("%d:%%(meta_track)s", item.Position),
		"-o", "%(title)s [%(id)s].%(ext)s",
		"--no-mtime",
		"--no-embed-thumbnail",
		"--no-write-info-json",
		url,
	)
	return args
}

func (f *YtdlpFetcher) filePresent(id string) bool {
	local, err := f.scanner.Scan(f.WorkDir)
	if err != nil {
		slog.Warn("post-download scan failed", "error", err)
		return false
	}
	_, ok := local[id]
	return ok
}

func (f *YtdlpFetcher) tool() string {
	if f.Tool != "" {
		return f.Tool
	}
	return defaultTool
}

func watchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

func archiveURL(url string) string {
	return "https://web.archive.org/web/" + url
}
