package sponsorblock

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	json "github.com/goccy/go-json"
)

// NoSegments is the sentinel fingerprint stored when the service knows
// no segments for an item.
const NoSegments = "none"

// Fingerprint computes a deterministic digest over a segment list along
// with the segment count. Segments are sorted by start offset before
// hashing, so the result is independent of the order the service
// returned them in. An empty list yields the NoSegments sentinel.
func Fingerprint(segments []Segment) (string, int) {
	if len(segments) == 0 {
		return NoSegments, 0
	}

	normalized := make([]Segment, len(segments))
	copy(normalized, segments)
	sort.SliceStable(normalized, func(i, j int) bool {
		return normalized[i].Segment[0] < normalized[j].Segment[0]
	})

	// Struct field order is fixed, so the marshaled form is
	// deterministic for equal inputs.
	serialized, _ := json.Marshal(normalized)

	sum := sha256.Sum256(serialized)
	return hex.EncodeToString(sum[:]), len(normalized)
}
