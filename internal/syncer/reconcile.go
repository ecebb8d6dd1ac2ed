// Package syncer contains the reconciliation engine and the phased
// pipeline that drives a full sync run.
package syncer

import (
	"github.com/olivertz/playlist-sync/internal/domain"
)

// Plan is the set of actions reconciliation derived from remote and
// local state.
type Plan struct {
	// ToFetch holds remote items with no local file.
	ToFetch []domain.RemoteItem

	// ToRename holds every remote item present locally. Renaming is
	// always re-checked; it is not a reconciliation decision.
	ToRename []domain.RemoteItem

	// Retained is the set of identifiers present on both sides.
	Retained map[string]bool
}

// Reconcile computes the difference between the remote playlist and the
// local mapping. Decisions depend only on identifier membership: an
// item whose title or position changed is never re-fetched, only
// re-tagged and renamed.
func Reconcile(remote []domain.RemoteItem, local map[string]domain.LocalItem) Plan {
	plan := Plan{Retained: make(map[string]bool)}

	for _, item := range remote {
		if _, ok := local[item.ID]; ok {
			plan.ToRename = append(plan.ToRename, item)
			plan.Retained[item.ID] = true
		} else {
			plan.ToFetch = append(plan.ToFetch, item)
		}
	}

	return plan
}
