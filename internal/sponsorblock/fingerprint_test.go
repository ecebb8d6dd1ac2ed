package sponsorblock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func segs() []Segment {
	return []Segment{
		{Segment: [2]float64{30.5, 45.0}, Category: "sponsor"},
		{Segment: [2]float64{0, 5.2}, Category: "intro"},
		{Segment: [2]float64{120, 140}, Category: "outro"},
	}
}

func TestFingerprintOrderIndependent(t *testing.T) {
	a := segs()
	b := []Segment{a[2], a[0], a[1]}

	fpA, countA := Fingerprint(a)
	fpB, countB := Fingerprint(b)

	assert.Equal(t, fpA, fpB, "sort-before-hash makes the digest order-independent")
	assert.Equal(t, 3, countA)
	assert.Equal(t, countA, countB)
}

func TestFingerprintStable(t *testing.T) {
	fp1, _ := Fingerprint(segs())
	fp2, _ := Fingerprint(segs())
	assert.Equal(t, fp1, fp2)
	assert.Len(t, fp1, 64, "sha256 hex digest")
}

func TestFingerprintDistinguishesContent(t *testing.T) {
	base := segs()

	shifted := segs()
	shifted[0].Segment[1] = 46.0
	fpBase, _ := Fingerprint(base)
	fpShifted, _ := Fingerprint(shifted)
	assert.NotEqual(t, fpBase, fpShifted)

	recategorized := segs()
	recategorized[1].Category = "filler"
	fpRecat, _ := Fingerprint(recategorized)
	assert.NotEqual(t, fpBase, fpRecat)
}

func TestFingerprintEmpty(t *testing.T) {
	fp, count := Fingerprint(nil)
	assert.Equal(t, NoSegments, fp)
	assert.Zero(t, count)

	fp, count = Fingerprint([]Segment{})
	assert.Equal(t, NoSegments, fp)
	assert.Zero(t, count)
}

func TestFingerprintDoesNotMutateInput(t *testing.T) {
	input := segs()
	Fingerprint(input)
	assert.Equal(t, segs(), input)
}
