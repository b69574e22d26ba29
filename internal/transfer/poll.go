package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/playcache/internal/shared"
)

// DefaultPollInterval is the delay between batched status queries.
const DefaultPollInterval = 500 * time.Millisecond

// Handle identifies a request owned by a [DownloadQueue].
type Handle int64

// QueueState is the lifecycle state a [DownloadQueue] reports for a request.
type QueueState int

const (
	QueuePending QueueState = iota
	QueueRunning
	QueuePaused
	QueueSuccessful
	QueueFailed
)

func (s QueueState) String() string {
	switch s {
	case QueuePending:
		return "pending"
	case QueueRunning:
		return "running"
	case QueuePaused:
		return "paused"
	case QueueSuccessful:
		return "successful"
	case QueueFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// QueueRequest asks the queue to download URL into Dir/Name.
type QueueRequest struct {
	URL  string
	Dir  string
	Name string
}

// QueueStatus is one row of a batched status query.
type QueueStatus struct {
	Handle     Handle
	State      QueueState
	BytesSoFar int64
	BytesTotal int64 // <= 0 when unknown
	Reason     string
}

// DownloadQueue is a download service that owns transfers on the caller's behalf.
type DownloadQueue interface {
	// Enqueue submits a request and returns its handle. The transfer outlives ctx.
	Enqueue(ctx context.Context, req QueueRequest) (Handle, error)
	// Query returns the status of every known handle in one batch.
	Query(ctx context.Context, handles []Handle) ([]QueueStatus, error)
	// Remove cancels the given requests and discards their partial data. Committed files stay.
	Remove(handles ...Handle) error
}

// Poller hands jobs to a [DownloadQueue] and polls it on a fixed interval.
type Poller struct {
	queue    DownloadQueue
	interval time.Duration
	logger   *log.Logger
}

// NewPoller creates a polling [Strategy]. A non-positive interval uses [DefaultPollInterval].
func NewPoller(queue DownloadQueue, interval time.Duration, logger *log.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Poller{queue: queue, interval: interval, logger: logger}
}

func (p *Poller) Name() string { return shared.StrategyPoll }

// Acquire enqueues every job, then issues one status query per tick until all jobs succeed,
// one fails, or ctx ends. Requests still in flight on return are removed from the queue.
func (p *Poller) Acquire(ctx context.Context, jobs []Job, events chan<- Event) error {
	if len(jobs) == 0 {
		return ctx.Err()
	}

	pending := make(map[Handle]Job, len(jobs))
	order := make([]Handle, 0, len(jobs))

	defer func() {
		if len(pending) == 0 {
			return
		}
		leftover := make([]Handle, 0, len(pending))
		for _, h := range order {
			if _, ok := pending[h]; ok {
				leftover = append(leftover, h)
			}
		}
		if rmErr := p.queue.Remove(leftover...); rmErr != nil {
			p.logger.Warn("failed to remove queued transfers", "count", len(leftover), "error", rmErr)
		}
	}()

	for _, job := range jobs {
		h, err := p.queue.Enqueue(ctx, QueueRequest{URL: job.Item.SourceURL, Dir: job.Dir, Name: job.Key})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failure := fmt.Errorf("%w: cannot enqueue %s: %v", shared.ErrTransfer, job.Key, err)
			send(ctx, events, Event{Index: job.Index, Kind: Failed, Err: failure})
			return failure
		}
		pending[h] = job
		order = append(order, h)
		p.logger.Debug("transfer enqueued", "key", job.Key, "handle", h)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		inflight := make([]Handle, 0, len(pending))
		for _, h := range order {
			if _, ok := pending[h]; ok {
				inflight = append(inflight, h)
			}
		}

		statuses, err := p.queue.Query(ctx, inflight)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: status query failed: %v", shared.ErrTransfer, err)
		}

		for _, st := range statuses {
			job, ok := pending[st.Handle]
			if !ok {
				continue
			}

			switch st.State {
			case QueueSuccessful:
				delete(pending, st.Handle)
				if err := p.queue.Remove(st.Handle); err != nil {
					p.logger.Debug("failed to release finished handle", "handle", st.Handle, "error", err)
				}
				if !send(ctx, events, Event{Index: job.Index, Kind: Complete, Received: st.BytesSoFar, Total: st.BytesTotal}) {
					return ctx.Err()
				}
			case QueueFailed:
				failure := fmt.Errorf("%w: download failed for %s. reason: %s", shared.ErrTransfer, job.Key, st.Reason)
				send(ctx, events, Event{Index: job.Index, Kind: Failed, Received: st.BytesSoFar, Err: failure})
				return failure
			default:
				if st.BytesTotal > 0 {
					ev := Event{Index: job.Index, Kind: Progress, Received: st.BytesSoFar, Total: st.BytesTotal}
					if !send(ctx, events, ev) {
						return ctx.Err()
					}
				}
			}
		}

		if len(pending) == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
