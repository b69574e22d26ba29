// package transfer acquires missing media files and reports byte-level progress as events.
package transfer

import (
	"context"
	"path/filepath"

	"github.com/desertthunder/playcache/internal/models"
)

// EventKind distinguishes transfer events.
type EventKind int

const (
	Progress EventKind = iota // bytes received so far
	Complete                  // file committed to the cache
	Failed                    // transfer failed; Err is set
)

func (k EventKind) String() string {
	switch k {
	case Progress:
		return "progress"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Job is one cache miss to acquire. Index is the item's manifest position.
type Job struct {
	Index int
	Item  models.RemoteMediaItem
	Key   string
	Dir   string
}

// Target returns the committed location of the job's file.
func (j Job) Target() string {
	return filepath.Join(j.Dir, j.Key)
}

// Event reports transfer activity for the job at Index.
type Event struct {
	Index    int
	Kind     EventKind
	Received int64
	Total    int64 // 0 when the size is unknown
	Err      error
}

// Fraction returns Received/Total clamped to [0,1], or 0 when the size is unknown.
func (e Event) Fraction() float64 {
	if e.Total <= 0 {
		return 0
	}
	f := float64(e.Received) / float64(e.Total)
	if f > 1 {
		return 1
	}
	return f
}

// Strategy acquires a batch of jobs.
//
// Acquire returns nil once a Complete event has been delivered for every job. After a Failed
// event it returns the failure (wrapping shared.ErrTransfer) without waiting for other jobs.
// When ctx ends it returns ctx.Err(). Every send on events honors ctx, so a caller that stops
// reading must cancel ctx.
type Strategy interface {
	Name() string
	Acquire(ctx context.Context, jobs []Job, events chan<- Event) error
}

// send delivers ev unless ctx ends first.
func send(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
