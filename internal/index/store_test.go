package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDocument() *Document {
	return &Document{
		Album:       "Test Album",
		SourceURL:   "https://youtube.com/playlist?list=PLtest",
		CreatedYear: 2024,
		Records: []Record{
			{ID: "aaaaaaaaaaa", Position: 1, Filename: "001 - First [aaaaaaaaaaa].m4a", Fingerprint: "none"},
			{ID: "bbbbbbbbbbb", Position: 2, Filename: "002 - Second [bbbbbbbbbbb].m4a", Fingerprint: "deadbeef", SegmentCount: 3},
		},
	}
}

func TestLoadMissingFileStartsCold(t *testing.T) {
	store := NewStore(t.TempDir())
	doc := store.Load()
	require.NotNil(t, doc)
	assert.Empty(t, doc.Records)
	assert.Empty(t, doc.Album)
}

func TestLoadMalformedStartsCold(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("{not json"), 0644))

	doc := NewStore(dir).Load()
	require.NotNil(t, doc)
	assert.Empty(t, doc.Records)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	saved := testDocument()
	require.NoError(t, store.Save(saved))
	assert.False(t, saved.Updated.IsZero(), "save stamps the document")

	loaded := store.Load()
	assert.Equal(t, saved.Album, loaded.Album)
	assert.Equal(t, saved.SourceURL, loaded.SourceURL)
	assert.Equal(t, saved.CreatedYear, loaded.CreatedYear)
	assert.Equal(t, saved.Records, loaded.Records)
}

func TestSaveLeavesNoTemporaries(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	require.NoError(t, store.Save(testDocument()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, FileName, entries[0].Name())
}

func TestSaveOverwritesAtomically(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	first := testDocument()
	require.NoError(t, store.Save(first))

	second := testDocument()
	second.Records = second.Records[:1]
	require.NoError(t, store.Save(second))

	loaded := store.Load()
	assert.Len(t, loaded.Records, 1)
	assert.Equal(t, "aaaaaaaaaaa", loaded.Records[0].ID)
}

func TestSaveFailureKeepsPriorDocument(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	require.NoError(t, store.Save(testDocument()))

	// Point a second store at a path whose parent does not exist so the
	// rename step cannot succeed.
	broken := NewStore(filepath.Join(dir, "missing", "nested"))
	err := broken.Save(&Document{Album: "replacement"})
	require.ErrorIs(t, err, ErrSaveFailed)

	loaded := store.Load()
	assert.Equal(t, "Test Album", loaded.Album, "a failed commit must not disturb the prior index")
}

func TestPriors(t *testing.T) {
	doc := testDocument()
	priors := doc.Priors()

	require.Len(t, priors, 2)
	assert.Equal(t, "deadbeef", priors["bbbbbbbbbbb"].Fingerprint)
	assert.Equal(t, 3, priors["bbbbbbbbbbb"].SegmentCount)
	assert.NotContains(t, priors, "ccccccccccc")
}
