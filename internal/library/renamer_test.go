package library

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olivertz/playlist-sync/internal/domain"
)

func TestCanonicalName(t *testing.T) {
	renamer := NewRenamer("m4a")

	testCases := []struct {
		name string
		item domain.RemoteItem
		want string
	}{
		{
			"plain title",
			domain.RemoteItem{ID: idA, Position: 7, Title: "Some Song"},
			"007 - Some Song [aaaaaaaaaaa].m4a",
		},
		{
			"illegal characters stripped",
			domain.RemoteItem{ID: idA, Position: 1, Title: `A/B\C:D*E?F"G<H>I|J`},
			"001 - ABCDEFGHIJ [aaaaaaaaaaa].m4a",
		},
		{
			"three digit padding",
			domain.RemoteItem{ID: idB, Position: 123, Title: "x"},
			"123 - x [bbbbbbbbbbb].m4a",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, renamer.CanonicalName(tc.item))
		})
	}
}

func TestApplyRenames(t *testing.T) {
	dir := t.TempDir()
	renamer := NewRenamer("m4a")

	old := touch(t, dir, "Fresh Download [aaaaaaaaaaa].m4a")
	items := []domain.RemoteItem{{ID: idA, Position: 2, Title: "Fresh Download"}}
	local := map[string]domain.LocalItem{idA: {ID: idA, Path: old}}

	renamed := renamer.Apply(dir, items, local)

	assert.Equal(t, 1, renamed)
	want := filepath.Join(dir, "002 - Fresh Download [aaaaaaaaaaa].m4a")
	assert.Equal(t, want, local[idA].Path, "local mapping must follow the rename")
	assert.FileExists(t, want)
	assert.NoFileExists(t, old)
}

func TestApplyIdempotent(t *testing.T) {
	dir := t.TempDir()
	renamer := NewRenamer("m4a")

	items := []domain.RemoteItem{{ID: idA, Position: 1, Title: "Stable"}}
	path := touch(t, dir, renamer.CanonicalName(items[0]))
	local := map[string]domain.LocalItem{idA: {ID: idA, Path: path}}

	assert.Zero(t, renamer.Apply(dir, items, local))
	assert.Equal(t, path, local[idA].Path)
}

func TestApplyCollisionKeepsOriginal(t *testing.T) {
	dir := t.TempDir()
	renamer := NewRenamer("m4a")

	item := domain.RemoteItem{ID: idA, Position: 1, Title: "Taken"}
	blocker := touch(t, dir, renamer.CanonicalName(item))
	old := touch(t, dir, "misnamed [aaaaaaaaaaa].m4a")
	local := map[string]domain.LocalItem{idA: {ID: idA, Path: old}}

	renamed := renamer.Apply(dir, []domain.RemoteItem{item}, local)

	assert.Zero(t, renamed)
	assert.FileExists(t, old, "collision must not overwrite")
	assert.FileExists(t, blocker)
	assert.Equal(t, old, local[idA].Path)
}

func TestApplySkipsAbsentItems(t *testing.T) {
	dir := t.TempDir()
	renamer := NewRenamer("m4a")

	items := []domain.RemoteItem{{ID: idB, Position: 1, Title: "Not Here"}}
	local := map[string]domain.LocalItem{}

	require.Zero(t, renamer.Apply(dir, items, local))
}
