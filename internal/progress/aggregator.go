// package progress folds per-item transfer activity into immutable snapshots.
//
// An [Aggregator] holds one tracker per manifest item and decides which updates are worth
// emitting. It is not safe for concurrent use; a single goroutine owns it for a whole pass.
package progress

import (
	"github.com/desertthunder/playcache/internal/cache"
	"github.com/desertthunder/playcache/internal/models"
)

// EmitThreshold is the minimum per-item increase between two emitted fractions.
const EmitThreshold = 0.01

// epsilon absorbs float error so that 0.01 after 0.0 counts as a full step.
const epsilon = 1e-9

type tracker struct {
	res      cache.Resolution
	latest   float64 // last reported fraction
	emitted  float64 // fraction carried by the last snapshot that changed for this item
	complete bool
}

// Aggregator tracks a single pass. Trackers are positional: index i is manifest item i.
type Aggregator struct {
	trackers  []tracker
	resolved  []models.ResolvedMediaItem
	completed int
}

// NewAggregator creates trackers for a resolved manifest. Cache hits start complete and are
// appended to the resolved list in manifest order.
func NewAggregator(resolutions []cache.Resolution) *Aggregator {
	a := &Aggregator{
		trackers: make([]tracker, len(resolutions)),
		resolved: make([]models.ResolvedMediaItem, 0, len(resolutions)),
	}

	for i, res := range resolutions {
		a.trackers[i] = tracker{res: res}
		if res.Hit {
			a.trackers[i].complete = true
			a.trackers[i].latest = 1
			a.trackers[i].emitted = 1
			a.resolved = append(a.resolved, res.Resolved())
			a.completed++
		}
	}
	return a
}

// Progress records a fraction for item index and reports whether a snapshot should be emitted.
//
// An emission happens when the fraction moved at least [EmitThreshold] past the last emitted
// value for the same item. A fraction of 1.0 on an incomplete item is held back for
// [Aggregator.Complete], so each item reaches 1.0 exactly once.
func (a *Aggregator) Progress(index int, fraction float64) bool {
	t, ok := a.tracker(index)
	if !ok || t.complete {
		return false
	}

	fraction = min(max(fraction, 0), 1)
	if fraction > t.latest {
		t.latest = fraction
	}

	if t.latest >= 1 {
		return false
	}
	if t.latest-t.emitted+epsilon < EmitThreshold {
		return false
	}
	t.emitted = t.latest
	return true
}

// Complete marks item index as cached. It returns false for unknown or already completed items.
func (a *Aggregator) Complete(index int) bool {
	t, ok := a.tracker(index)
	if !ok || t.complete {
		return false
	}

	t.complete = true
	t.latest = 1
	t.emitted = 1
	a.resolved = append(a.resolved, t.res.Resolved())
	a.completed++
	return true
}

func (a *Aggregator) tracker(index int) (*tracker, bool) {
	if index < 0 || index >= len(a.trackers) {
		return nil, false
	}
	return &a.trackers[index], true
}

// Snapshot copies every tracker's last emitted state, in manifest order.
func (a *Aggregator) Snapshot() models.ProgressSnapshot {
	updates := make([]models.DownloadProgress, len(a.trackers))
	for i, t := range a.trackers {
		updates[i] = models.DownloadProgress{
			Name:       t.res.Key,
			Progress:   t.emitted,
			IsComplete: t.complete,
		}
	}
	return models.ProgressSnapshot{
		Updates:        updates,
		TotalItems:     len(a.trackers),
		CompletedCount: a.completed,
	}
}

// Done reports whether every item is complete.
func (a *Aggregator) Done() bool { return a.completed == len(a.trackers) }

// Total returns the number of tracked items.
func (a *Aggregator) Total() int { return len(a.trackers) }

// Completed returns the number of complete items.
func (a *Aggregator) Completed() int { return a.completed }

// Resolved returns a copy of the resolved items: hits in manifest order, then completions in
// the order they arrived.
func (a *Aggregator) Resolved() []models.ResolvedMediaItem {
	out := make([]models.ResolvedMediaItem, len(a.resolved))
	copy(out, a.resolved)
	return out
}
