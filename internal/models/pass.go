package models

import (
	"fmt"
	"time"
)

// PassStatus is the lifecycle state of a recorded [SyncPass].
type PassStatus string

const (
	PassRunning   PassStatus = "running"
	PassSucceeded PassStatus = "succeeded"
	PassFailed    PassStatus = "failed"
	PassCancelled PassStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s PassStatus) Valid() bool {
	switch s {
	case PassRunning, PassSucceeded, PassFailed, PassCancelled:
		return true
	}
	return false
}

// SyncPass records one execution of the sync engine.
type SyncPass struct {
	id             string
	sequence       int
	manifestURL    string
	cacheDir       string
	strategy       string
	status         PassStatus
	itemsTotal     int
	itemsCached    int
	itemsCompleted int
	errorMessage   string
	startedAt      time.Time
	finishedAt     *time.Time
	createdAt      time.Time
	updatedAt      time.Time
	deletedAt      *time.Time
}

// NewSyncPass creates a running pass started now.
func NewSyncPass(sequence int, manifestURL, cacheDir, strategy string) *SyncPass {
	now := time.Now()
	return &SyncPass{
		sequence:    sequence,
		manifestURL: manifestURL,
		cacheDir:    cacheDir,
		strategy:    strategy,
		status:      PassRunning,
		startedAt:   now,
		createdAt:   now,
		updatedAt:   now,
	}
}

func (p *SyncPass) ID() string             { return p.id }
func (p *SyncPass) Sequence() int          { return p.sequence }
func (p *SyncPass) ManifestURL() string    { return p.manifestURL }
func (p *SyncPass) CacheDir() string       { return p.cacheDir }
func (p *SyncPass) Strategy() string       { return p.strategy }
func (p *SyncPass) Status() PassStatus     { return p.status }
func (p *SyncPass) ItemsTotal() int        { return p.itemsTotal }
func (p *SyncPass) ItemsCached() int       { return p.itemsCached }
func (p *SyncPass) ItemsCompleted() int    { return p.itemsCompleted }
func (p *SyncPass) ErrorMessage() string   { return p.errorMessage }
func (p *SyncPass) StartedAt() time.Time   { return p.startedAt }
func (p *SyncPass) FinishedAt() *time.Time { return p.finishedAt }
func (p *SyncPass) CreatedAt() time.Time   { return p.createdAt }
func (p *SyncPass) UpdatedAt() time.Time   { return p.updatedAt }
func (p *SyncPass) DeletedAt() *time.Time  { return p.deletedAt }

func (p *SyncPass) SetID(id string)            { p.id = id }
func (p *SyncPass) SetSequence(seq int)        { p.sequence = seq }
func (p *SyncPass) SetStartedAt(t time.Time)   { p.startedAt = t }
func (p *SyncPass) SetFinishedAt(t *time.Time) { p.finishedAt = t }
func (p *SyncPass) SetCreatedAt(t time.Time)   { p.createdAt = t }
func (p *SyncPass) SetUpdatedAt(t time.Time)   { p.updatedAt = t }
func (p *SyncPass) SetDeletedAt(t *time.Time)  { p.deletedAt = t }
func (p *SyncPass) SetStatus(s PassStatus)     { p.status = s }
func (p *SyncPass) SetErrorMessage(msg string) { p.errorMessage = msg }

func (p *SyncPass) SetCounts(total, cached, completed int) {
	p.itemsTotal, p.itemsCached, p.itemsCompleted = total, cached, completed
}

// Finish stamps the terminal status. err, when non-nil, becomes the error message.
func (p *SyncPass) Finish(status PassStatus, err error) {
	now := time.Now()
	p.status = status
	p.finishedAt = &now
	if err != nil {
		p.errorMessage = err.Error()
	}
}

// Duration returns how long the pass ran, or time since start while it is running.
func (p *SyncPass) Duration() time.Duration {
	if p.finishedAt == nil {
		return time.Since(p.startedAt)
	}
	return p.finishedAt.Sub(p.startedAt)
}

// Validate checks required fields and count bounds.
func (p *SyncPass) Validate() error {
	if p.manifestURL == "" {
		return fmt.Errorf("manifest url is required")
	}
	if p.cacheDir == "" {
		return fmt.Errorf("cache dir is required")
	}
	if !p.status.Valid() {
		return fmt.Errorf("invalid status %q", p.status)
	}
	if p.itemsCompleted < 0 || p.itemsCompleted > p.itemsTotal {
		return fmt.Errorf("completed count %d outside [0, %d]", p.itemsCompleted, p.itemsTotal)
	}
	if p.itemsCached < 0 || p.itemsCached > p.itemsTotal {
		return fmt.Errorf("cached count %d outside [0, %d]", p.itemsCached, p.itemsTotal)
	}
	return nil
}
