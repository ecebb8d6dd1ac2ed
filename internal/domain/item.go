// Package domain holds the core types shared between the sync phases.
package domain

// RemoteItem is one entry of the remote playlist as reported by the
// listing tool. It is produced fresh on every run and never mutated
// after normalization.
type RemoteItem struct {
	// ID is the stable 11-character identifier. It is the only key
	// used to correlate remote and local state.
	ID string

	// Position is the 1-based playlist position after de-duplication.
	Position int

	Title       string
	Artist      string
	UploadYear  string
	Description string
}

// Playlist is the normalized result of listing the remote source.
type Playlist struct {
	Album string
	Items []RemoteItem
}

// Dedupe drops repeated identifiers, keeping the first occurrence, and
// re-squashes positions to be contiguous 1..N in list order. It returns
// the number of dropped duplicates.
func (p *Playlist) Dedupe() int {
	seen := make(map[string]bool, len(p.Items))
	kept := p.Items[:0]
	dropped := 0

	for _, item := range p.Items {
		if seen[item.ID] {
			dropped++
			continue
		}
		seen[item.ID] = true
		item.Position = len(kept) + 1
		kept = append(kept, item)
	}

	p.Items = kept
	return dropped
}

// IDSet returns the set of identifiers present in the playlist.
func (p *Playlist) IDSet() map[string]bool {
	ids := make(map[string]bool, len(p.Items))
	for _, item := range p.Items {
		ids[item.ID] = true
	}
	return ids
}

// LocalItem is one media file found in the working directory. It is
// transient state, always recomputed from disk after a phase that may
// have added, removed or renamed files.
type LocalItem struct {
	ID   string
	Path string
}
