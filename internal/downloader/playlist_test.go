package downloader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olivertz/playlist-sync/internal/domain"
)

func itemForArgs() domain.RemoteItem {
	return domain.RemoteItem{ID: "aaaaaaaaaaa", Position: 7, Title: "First"}
}

func TestParse(t *testing.T) {
	lister := NewYtdlpLister("/tmp/Music")

	out := `
{"id": "aaaaaaaaaaa", "playlist_index": 1, "title": "First", "playlist_title": "My Mix", "uploader": "Artist A", "upload_date": "20230115"}
not json at all
{"id": "", "playlist_index": 2, "title": "No Identifier"}
{"id": "ccccccccccc", "title": "No Position"}
{"id": "bbbbbbbbbbb", "playlist_index": 3, "uploader": "Artist B"}
`

	playlist := lister.parse(out)

	assert.Equal(t, "My Mix", playlist.Album)
	require.Len(t, playlist.Items, 2)

	assert.Equal(t, "aaaaaaaaaaa", playlist.Items[0].ID)
	assert.Equal(t, 1, playlist.Items[0].Position)
	assert.Equal(t, "First", playlist.Items[0].Title)
	assert.Equal(t, "Artist A", playlist.Items[0].Artist)
	assert.Equal(t, "2023", playlist.Items[0].UploadYear)

	assert.Equal(t, "bbbbbbbbbbb", playlist.Items[1].ID)
	assert.Equal(t, "Unknown", playlist.Items[1].Title, "missing title gets a placeholder")
}

func TestParseFirstPlaylistTitleWins(t *testing.T) {
	lister := NewYtdlpLister("/tmp/Music")

	out := `{"id": "aaaaaaaaaaa", "playlist_index": 1, "title": "x", "playlist_title": "Real Name"}
{"id": "bbbbbbbbbbb", "playlist_index": 2, "title": "y", "playlist_title": "Other Name"}`

	assert.Equal(t, "Real Name", lister.parse(out).Album)
}

func TestParseEmptyOutput(t *testing.T) {
	lister := NewYtdlpLister("/tmp/Music")
	assert.Empty(t, lister.parse("").Items)
	assert.Empty(t, lister.parse("\n\n").Items)
}

func TestUploadYear(t *testing.T) {
	assert.Equal(t, "2023", uploadYear("20230115"))
	assert.Equal(t, "1999", uploadYear("1999"))
	assert.Equal(t, "", uploadYear("99"))
	assert.Equal(t, "", uploadYear(""))
}

func TestLastLine(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"single", "only line", "only line"},
		{"multi", "first\nsecond\nERROR: the cause\n", "ERROR: the cause"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, lastLine(tc.in))
		})
	}
}

func TestFetcherArgs(t *testing.T) {
	fetcher := NewYtdlpFetcher("/tmp/Music", "/home/u/.config/yt-dlp/config", "m4a", 0)

	args := fetcher.args(itemForArgs(), "My Mix", "https://www.youtube.com/watch?v=aaaaaaaaaaa")

	assert.Equal(t, []string{
		"--config-location", "/home/u/.config/yt-dlp/config",
		"--parse-metadata", "My Mix:%(meta_album)s",
		"--parse-metadata", "7:%(meta_track)s",
		"-o", "%(title)s [%(id)s].%(ext)s",
		"--no-mtime",
		"--no-embed-thumbnail",
		"--no-write-info-json",
		"https://www.youtube.com/watch?v=aaaaaaaaaaa",
	}, args)
}

func TestFetcherArgsWithoutConfig(t *testing.T) {
	fetcher := NewYtdlpFetcher("/tmp/Music", "", "m4a", 0)
	args := fetcher.args(itemForArgs(), "My Mix", "url")
	assert.NotContains(t, args, "--config-location")
}

func TestURLBuilders(t *testing.T) {
	watch := watchURL("aaaaaaaaaaa")
	assert.Equal(t, "https://www.youtube.com/watch?v=aaaaaaaaaaa", watch)
	assert.Equal(t, "https://web.archive.org/web/"+watch, archiveURL(watch))
}
