package tasks

import (
	"time"

	"github.com/desertthunder/freshlist/internal/models"
)

// ReconcileStats counts what one reconciliation changed.
type ReconcileStats struct {
	Expired  int // retained for the full window
	Orphaned int // artist no longer tracked
	Added    int
	Skipped  int // duplicate name or URI
}

func (s ReconcileStats) Evicted() int { return s.Expired + s.Orphaned }

// Evict drops records whose artist left the registry or whose retention window has passed.
func Evict(state *models.TrackState, registry models.Registry, now time.Time) (expired, orphaned int) {
	state.Evict(func(r models.TrackRecord) bool {
		switch {
		case !registry.Contains(r.ArtistID):
			orphaned++
			return false
		case r.Expired(now):
			expired++
			return false
		default:
			return true
		}
	})
	return expired, orphaned
}

// Merge inserts each candidate, stamped with now, unless a retained record already has its
// normalized name or URI. Earlier candidates win over later ones.
func Merge(state *models.TrackState, fetched []models.TrackRecord, now time.Time) (added, skipped int) {
	for _, candidate := range fetched {
		candidate.AddedAt = now
		if state.Insert(candidate) {
			added++
		} else {
			skipped++
		}
	}
	return added, skipped
}

// Reconcile evicts and then merges. Evicting first lets a fresh release replace an expiring
// record with the same name in the same pass.
func Reconcile(state *models.TrackState, registry models.Registry, fetched []models.TrackRecord, now time.Time) ReconcileStats {
	var stats ReconcileStats
	stats.Expired, stats.Orphaned = Evict(state, registry, now)
	stats.Added, stats.Skipped = Merge(state, fetched, now)
	return stats
}
