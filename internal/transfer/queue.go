package transfer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/playcache/internal/shared"
)

// LocalQueue is an in-process [DownloadQueue]. Each request runs in its own goroutine and
// keeps running until it finishes, times out or is removed, independent of the context it was
// enqueued with.
type LocalQueue struct {
	client    *http.Client
	chunkSize int
	timeout   time.Duration
	logger    *log.Logger

	mu      sync.Mutex
	next    Handle
	entries map[Handle]*queueEntry
}

type queueEntry struct {
	status QueueStatus
	cancel context.CancelFunc
	done   chan struct{}
}

// NewLocalQueue creates an empty queue. A positive timeout bounds each transfer; one that
// expires reports [QueueFailed].
func NewLocalQueue(client *http.Client, chunkSize int, timeout time.Duration, logger *log.Logger) *LocalQueue {
	if client == nil {
		client = http.DefaultClient
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &LocalQueue{
		client:    client,
		chunkSize: chunkSize,
		timeout:   timeout,
		logger:    logger,
		entries:   make(map[Handle]*queueEntry),
	}
}

// Enqueue starts a transfer for req.
func (q *LocalQueue) Enqueue(ctx context.Context, req QueueRequest) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if req.URL == "" || req.Name == "" {
		return 0, fmt.Errorf("%w: url and name are required", shared.ErrInvalidInput)
	}

	var (
		tctx   context.Context
		cancel context.CancelFunc
	)
	if q.timeout > 0 {
		tctx, cancel = context.WithTimeout(context.Background(), q.timeout)
	} else {
		tctx, cancel = context.WithCancel(context.Background())
	}

	q.mu.Lock()
	q.next++
	h := q.next
	entry := &queueEntry{
		status: QueueStatus{Handle: h, State: QueuePending},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	q.entries[h] = entry
	q.mu.Unlock()

	go q.run(tctx, entry, req)
	return h, nil
}

func (q *LocalQueue) run(ctx context.Context, entry *queueEntry, req QueueRequest) {
	defer close(entry.done)

	q.update(entry, func(st *QueueStatus) { st.State = QueueRunning })

	received, err := fetchFile(ctx, q.client, req.URL, req.Dir, req.Name, q.chunkSize, func(received, total int64) error {
		q.update(entry, func(st *QueueStatus) {
			st.BytesSoFar = received
			st.BytesTotal = total
		})
		return nil
	})

	switch {
	case err == nil:
		q.update(entry, func(st *QueueStatus) {
			st.State = QueueSuccessful
			st.BytesSoFar = received
			if st.BytesTotal <= 0 {
				st.BytesTotal = received
			}
		})
	case errors.Is(err, context.Canceled):
		q.logger.Debug("queued transfer cancelled", "name", req.Name)
	default:
		q.logger.Warn("queued transfer failed", "name", req.Name, "error", err)
		q.update(entry, func(st *QueueStatus) {
			st.State = QueueFailed
			st.Reason = err.Error()
		})
	}
}

func (q *LocalQueue) update(entry *queueEntry, fn func(*QueueStatus)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	fn(&entry.status)
}

// Query returns a status row for each handle the queue still knows, in the order given.
func (q *LocalQueue) Query(ctx context.Context, handles []Handle) ([]QueueStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]QueueStatus, 0, len(handles))
	for _, h := range handles {
		if entry, ok := q.entries[h]; ok {
			out = append(out, entry.status)
		}
	}
	return out, nil
}

// Remove cancels the given requests and waits for their goroutines to clean up. Unknown
// handles are ignored.
func (q *LocalQueue) Remove(handles ...Handle) error {
	removed := make([]*queueEntry, 0, len(handles))

	q.mu.Lock()
	for _, h := range handles {
		if entry, ok := q.entries[h]; ok {
			delete(q.entries, h)
			removed = append(removed, entry)
		}
	}
	q.mu.Unlock()

	for _, entry := range removed {
		entry.cancel()
		<-entry.done
	}
	return nil
}

// Len returns the number of requests the queue is tracking.
func (q *LocalQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Close removes every outstanding request.
func (q *LocalQueue) Close() error {
	q.mu.Lock()
	handles := make([]Handle, 0, len(q.entries))
	for h := range q.entries {
		handles = append(handles, h)
	}
	q.mu.Unlock()
	return q.Remove(handles...)
}
