// Package downloader wraps the external yt-dlp tool: listing the remote
// playlist and fetching individual items into the working directory.
package downloader

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/olivertz/playlist-sync/internal/domain"
)

const (
	defaultTool        = "yt-dlp"
	defaultListTimeout = 2 * time.Minute
)

var (
	// ErrFetchFailed means the remote listing is unobtainable. It is
	// the only downloader error that aborts a run.
	ErrFetchFailed = fmt.Errorf("failed to fetch playlist")

	ErrToolNotAvailable = fmt.Errorf("yt-dlp not available")
)

// YtdlpLister lists a playlist with "yt-dlp --flat-playlist -j", one
// JSON record per line on stdout.
type YtdlpLister struct {
	Tool    string
	Timeout time.Duration

	// WorkDir supplies the album-title fallback when the playlist
	// itself carries no title.
	WorkDir string
}

func NewYtdlpLister(workDir string) *YtdlpLister {
	return &YtdlpLister{
		Tool:    defaultTool,
		Timeout: defaultListTimeout,
		WorkDir: workDir,
	}
}

// listEntry is one line of flat-playlist output. Unknown fields are
// ignored; missing ones leave the zero value for validation below.
type listEntry struct {
	ID            string `json:"id"`
	PlaylistIndex int    `json:"playlist_index"`
	Title         string `json:"title"`
	PlaylistTitle string `json:"playlist_title"`
	Uploader      string `json:"uploader"`
	UploadDate    string `json:"upload_date"`
	Description   string `json:"description"`
}

// Fetch lists the playlist and normalizes it: lines that fail to parse
// are skipped, entries without identifier or position are dropped,
// duplicated identifiers collapse to their first occurrence and
// positions are re-squashed contiguous.
func (l *YtdlpLister) Fetch(ctx context.Context, url string) (domain.Playlist, error) {
	out, err := runTool(ctx, l.WorkDir, l.tool(), l.timeout(), "--flat-playlist", "-j", url)
	if err != nil {
		return domain.Playlist{}, fmt.Errorf("%w: %s", ErrFetchFailed, lastLine(out))
	}

	playlist := l.parse(out)
	if len(playlist.Items) == 0 {
		return domain.Playlist{}, fmt.Errorf("%w: no parseable records", ErrFetchFailed)
	}

	if playlist.Album == "" {
		playlist.Album = filepath.Base(l.WorkDir)
		slog.Warn("playlist title not discoverable, using directory name", "album", playlist.Album)
	}

	if dropped := playlist.Dedupe(); dropped > 0 {
		slog.Warn("dropped duplicate playlist entries", "count", dropped)
	}

	return playlist, nil
}

func (l *YtdlpLister) parse(out string) domain.Playlist {
	var playlist domain.Playlist

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var entry listEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			slog.Debug("skipping unparseable playlist record", "error", err)
			continue
		}
		if entry.ID == "" || entry.PlaylistIndex == 0 {
			continue
		}

		if playlist.Album == "" && entry.PlaylistTitle != "" {
			playlist.Album = entry.PlaylistTitle
		}

		title := entry.Title
		if title == "" {
			title = "Unknown"
		}

		playlist.Items = append(playlist.Items, domain.RemoteItem{
			ID:          entry.ID,
			Position:    entry.PlaylistIndex,
			Title:       title,
			Artist:      entry.Uploader,
			UploadYear:  uploadYear(entry.UploadDate),
			Description: entry.Description,
		})
	}

	return playlist
}

// uploadYear extracts the year from a YYYYMMDD upload date.
func uploadYear(date string) string {
	if len(date) < 4 {
		return ""
	}
	return date[:4]
}

func (l *YtdlpLister) tool() string {
	if l.Tool != "" {
		return l.Tool
	}
	return defaultTool
}

func (l *YtdlpLister) timeout() time.Duration {
	if l.Timeout > 0 {
		return l.Timeout
	}
	return defaultListTimeout
}

// runTool executes the external tool in dir and returns its combined
// output. An empty dir inherits the process working directory.
func runTool(ctx context.Context, dir, tool string, timeout time.Duration, args ...string) (string, error) {
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, tool, args...)
	cmd.Dir = dir

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	if cmdCtx.Err() == context.DeadlineExceeded {
		return buf.String(), fmt.Errorf("%s timed out after %s", tool, timeout)
	}
	if err != nil {
		return buf.String(), fmt.Errorf("%s failed: %w", tool, err)
	}
	return buf.String(), nil
}

// lastLine returns the final non-empty line of command output, the part
// the tool uses for its actual diagnostic.
func lastLine(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) == 0 {
		return ""
	}
	last := strings.TrimSpace(lines[len(lines)-1])
	if len(last) > 200 {
		last = last[:200] + "..."
	}
	return last
}
