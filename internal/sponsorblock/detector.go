package sponsorblock

// Prior is the fingerprint state recorded for an item at the last
// successful sync. An empty Fingerprint means none was ever recorded.
type Prior struct {
	Fingerprint string
	Count       int
}

// Outcome is the decision for one item after this run's annotation
// check: the fingerprint to persist and whether the upstream data
// changed since the last sync.
type Outcome struct {
	Fingerprint string
	Count       int

	// Changed is set only when a pre-existing item with a recorded
	// prior fingerprint now fingerprints differently. Fresh downloads
	// and first-ever syncs are never flagged.
	Changed bool
}

// Evaluate applies the change-detection rules for one item.
//
// A service failure fails open: the prior state is retained exactly and
// nothing is flagged. A freshly fetched item stores the new fingerprint
// unconditionally; there is no meaningful prior state to compare a
// brand-new file against. Otherwise a recorded prior that differs from
// the new fingerprint marks the item as changed.
func Evaluate(fingerprint string, count int, serviceErr error, prior Prior, fresh bool) Outcome {
	if serviceErr != nil {
		return Outcome{Fingerprint: prior.Fingerprint, Count: prior.Count}
	}

	out := Outcome{Fingerprint: fingerprint, Count: count}

	if fresh || prior.Fingerprint == "" {
		return out
	}

	out.Changed = prior.Fingerprint != fingerprint
	return out
}
