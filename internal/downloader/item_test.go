package downloader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The stand-in tools below exercise the verification logic without a
// real downloader binary: "true" reports success without producing a
// file, "false" always fails.

func TestFetchItemGhostSuccess(t *testing.T) {
	dir := t.TempDir()
	fetcher := NewYtdlpFetcher(dir, "", "m4a", 0)
	fetcher.Tool = "true"

	err := fetcher.FetchItem(context.Background(), itemForArgs(), "My Mix")
	assert.ErrorIs(t, err, ErrGhostSuccess)
}

func TestFetchItemVerifiedByFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "First [aaaaaaaaaaa].m4a")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	fetcher := NewYtdlpFetcher(dir, "", "m4a", 0)
	fetcher.Tool = "true"

	err := fetcher.FetchItem(context.Background(), itemForArgs(), "My Mix")
	assert.NoError(t, err)
	assert.FileExists(t, path)
}

func TestFetchItemToolFailure(t *testing.T) {
	dir := t.TempDir()
	fetcher := NewYtdlpFetcher(dir, "", "m4a", 0)
	fetcher.Tool = "false"

	err := fetcher.FetchItem(context.Background(), itemForArgs(), "My Mix")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrGhostSuccess)
}
