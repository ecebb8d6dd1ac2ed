// Package tagger writes container metadata and artwork into media files
// using ffmpeg, probing with ffprobe. Tag failures never fail a sync;
// the file is simply left as it was.
package tagger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"strings"
)

// DescriptionCleaner transforms a raw item description into the text
// stored in the comment tag. The cleaning rules themselves live with
// the caller; the default only trims surrounding whitespace.
type DescriptionCleaner func(string) string

// TagParams describes one tag-write unit of work.
type TagParams struct {
	Path       string
	Album      string
	Track      int
	TrackCount int
	Title      string
	Artist     string
	Year       string
	Comment    string

	// ArtworkURL is fetched and embedded when the file carries no
	// attached picture yet. Empty disables artwork handling.
	ArtworkURL string
}

// Tagger writes metadata for one file.
type Tagger interface {
	Tag(ctx context.Context, params TagParams) error
}

// ffmpegError carries the failing command and its output for the
// per-item diagnostic listing.
type ffmpegError struct {
	cmd     string
	output  string
	wrapped error
}

func (e *ffmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %s\nCommand: %s\nOutput: %s", e.wrapped, e.cmd, e.output)
}

func (e *ffmpegError) Unwrap() error {
	return e.wrapped
}

func newFFmpegError(cmd *exec.Cmd, output []byte, err error) error {
	cmdStr := cmd.String()
	if len(cmdStr) > 200 {
		cmdStr = cmdStr[:200] + "..."
	}
	out := string(output)
	if len(out) > 500 {
		out = out[len(out)-500:]
	}
	return &ffmpegError{cmd: cmdStr, output: out, wrapped: err}
}

// FFmpeg implements Tagger with ffmpeg/ffprobe subprocesses.
type FFmpeg struct {
	Cleaner DescriptionCleaner

	httpClient *http.Client
}

func NewFFmpeg(cleaner DescriptionCleaner) *FFmpeg {
	if cleaner == nil {
		cleaner = strings.TrimSpace
	}
	return &FFmpeg{
		Cleaner:    cleaner,
		httpClient: http.DefaultClient,
	}
}

// Tag rewrites the file's metadata in place: streams are copied to a
// temporary sibling with the new tags, which then replaces the
// original. Artwork is embedded only when the container has none.
func (f *FFmpeg) Tag(ctx context.Context, params TagParams) error {
	artworkPath := ""
	if params.ArtworkURL != "" && !f.hasEmbeddedArtwork(ctx, params.Path) {
		path, err := f.fetchArtwork(ctx, params.ArtworkURL)
		if err != nil {
			slog.Warn("artwork fetch failed, tagging without it", "error", err)
		} else {
			artworkPath = path
			defer os.Remove(artworkPath)
		}
	}

	tmpPath := params.Path + ".temp" + ext(params.Path)
	defer os.Remove(tmpPath)

	cmd := exec.CommandContext(ctx, "ffmpeg", f.args(params, artworkPath, tmpPath)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return newFFmpegError(cmd, output, err)
	}

	if err := os.Rename(tmpPath, params.Path); err != nil {
		return fmt.Errorf("failed to replace tagged file: %w", err)
	}
	return nil
}

func (f *FFmpeg) args(params TagParams, artworkPath, outPath string) []string {
	args := []string{"-y", "-i", params.Path}

	if artworkPath != "" {
		args = append(args,
			"-i", artworkPath,
			"-map", "0:a",
			"-map", "1:v",
			"-c:a", "copy",
			"-c:v", "mjpeg",
			"-disposition:v:0", "attached_pic",
		)
	} else {
		args = append(args, "-map", "0", "-c", "copy")
	}

	metadata := map[string]string{
		"album":   params.Album,
		"track":   fmt.Sprintf("%d/%d", params.Track, params.TrackCount),
		"title":   params.Title,
		"artist":  params.Artist,
		"date":    params.Year,
		"comment": f.Cleaner(params.Comment),
	}
	for _, key := range []string{"album", "track", "title", "artist", "date", "comment"} {
		if metadata[key] == "" {
			continue
		}
		args = append(args, "-metadata", fmt.Sprintf("%s=%s", key, metadata[key]))
	}

	return append(args, "-movflags", "+faststart", outPath)
}

// hasEmbeddedArtwork reports whether the container already carries an
// attached picture stream.
func (f *FFmpeg) hasEmbeddedArtwork(ctx context.Context, path string) bool {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "v",
		"-show_entries", "stream_disposition=attached_pic",
		"-of", "csv=p=0",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		return false
	}
	return strings.Contains(string(output), "1")
}

func (f *FFmpeg) fetchArtwork(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("artwork request returned status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "playlist_artwork_*.jpg")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

func ext(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i:]
	}
	return ""
}
