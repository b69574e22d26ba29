package models

import "sort"

// DownloadProgress is the consumer-facing view of one item's tracker.
type DownloadProgress struct {
	Name       string  `json:"name"`
	Progress   float64 `json:"progress"`
	IsComplete bool    `json:"is_complete"`
}

// ProgressSnapshot is an immutable copy of every tracker at emission time.
//
// Updates are in manifest order.
type ProgressSnapshot struct {
	Updates        []DownloadProgress `json:"updates"`
	TotalItems     int                `json:"total_items"`
	CompletedCount int                `json:"completed_count"`
}

// Fraction returns CompletedCount/TotalItems, or 1 for an empty playlist.
func (s ProgressSnapshot) Fraction() float64 {
	if s.TotalItems == 0 {
		return 1
	}
	return float64(s.CompletedCount) / float64(s.TotalItems)
}

// Active returns the incomplete trackers, least progressed first.
func (s ProgressSnapshot) Active() []DownloadProgress {
	active := make([]DownloadProgress, 0, len(s.Updates))
	for _, u := range s.Updates {
		if !u.IsComplete && u.Progress < 1 {
			active = append(active, u)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Progress < active[j].Progress
	})
	return active
}

// SyncState is one observation of a sync pass. The set of implementations is closed:
// [ProgressState], [SuccessState], and [ErrorState].
type SyncState interface {
	// Terminal reports whether no further states follow.
	Terminal() bool
	syncState()
}

// ProgressState carries a snapshot taken while the pass is running.
type ProgressState struct {
	Snapshot ProgressSnapshot
}

// SuccessState carries every resolved item, in completion order.
type SuccessState struct {
	Items []ResolvedMediaItem
}

// ErrorState carries the failure that ended the pass.
type ErrorState struct {
	Err error
}

func (ProgressState) Terminal() bool { return false }
func (SuccessState) Terminal() bool  { return true }
func (ErrorState) Terminal() bool    { return true }

func (ProgressState) syncState() {}
func (SuccessState) syncState()  {}
func (ErrorState) syncState()    {}

// State kinds reported by [StateView].
const (
	StateProgress = "progress"
	StateSuccess  = "success"
	StateError    = "error"
)

// StateView is the JSON-friendly rendering of a [SyncState].
type StateView struct {
	Kind     string              `json:"kind"`
	Progress *ProgressSnapshot   `json:"progress,omitempty"`
	Items    []ResolvedMediaItem `json:"items,omitempty"`
	Error    string              `json:"error,omitempty"`
}

// Describe converts state into a [StateView]. A nil state yields the zero view.
func Describe(state SyncState) StateView {
	switch s := state.(type) {
	case ProgressState:
		snap := s.Snapshot
		return StateView{Kind: StateProgress, Progress: &snap}
	case SuccessState:
		items := s.Items
		if items == nil {
			items = []ResolvedMediaItem{}
		}
		return StateView{Kind: StateSuccess, Items: items}
	case ErrorState:
		msg := "unknown error"
		if s.Err != nil {
			msg = s.Err.Error()
		}
		return StateView{Kind: StateError, Error: msg}
	default:
		return StateView{}
	}
}
