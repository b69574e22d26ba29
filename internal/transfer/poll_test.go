package transfer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/playcache/internal/shared"
	tu "github.com/desertthunder/playcache/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedQueue replays one batch of statuses per Query call, repeating the last batch.
type scriptedQueue struct {
	mu         sync.Mutex
	script     [][]QueueStatus
	calls      int
	enqueued   []QueueRequest
	removed    []Handle
	queried    [][]Handle
	enqueueErr error
	queryErr   error
}

func (q *scriptedQueue) Enqueue(ctx context.Context, req QueueRequest) (Handle, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.enqueueErr != nil {
		return 0, q.enqueueErr
	}
	q.enqueued = append(q.enqueued, req)
	return Handle(len(q.enqueued)), nil
}

func (q *scriptedQueue) Query(ctx context.Context, handles []Handle) ([]QueueStatus, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.queryErr != nil {
		return nil, q.queryErr
	}

	q.queried = append(q.queried, append([]Handle(nil), handles...))
	batch := q.script[min(q.calls, len(q.script)-1)]
	q.calls++

	wanted := make(map[Handle]bool, len(handles))
	for _, h := range handles {
		wanted[h] = true
	}
	var out []QueueStatus
	for _, st := range batch {
		if wanted[st.Handle] {
			out = append(out, st)
		}
	}
	return out, nil
}

func (q *scriptedQueue) Remove(handles ...Handle) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.removed = append(q.removed, handles...)
	return nil
}

func TestPoller(t *testing.T) {
	dir := t.TempDir()
	jobs := []Job{
		newJob(0, "https://cdn.example.com/a.jpg", dir),
		newJob(1, "https://cdn.example.com/b.mp4", dir),
	}

	t.Run("Polls Until Every Job Succeeds", func(t *testing.T) {
		q := &scriptedQueue{script: [][]QueueStatus{
			{{Handle: 1, State: QueueRunning, BytesTotal: -1}, {Handle: 2, State: QueuePending}},
			{{Handle: 1, State: QueueRunning, BytesSoFar: 50, BytesTotal: 100}, {Handle: 2, State: QueuePaused, BytesSoFar: 10, BytesTotal: 100}},
			{{Handle: 1, State: QueueSuccessful, BytesSoFar: 100, BytesTotal: 100}, {Handle: 2, State: QueueRunning, BytesSoFar: 100, BytesTotal: 100}},
			{{Handle: 2, State: QueueSuccessful, BytesSoFar: 100, BytesTotal: 100}},
		}}

		events, err := collect(t, context.Background(), NewPoller(q, 5*time.Millisecond, nil), jobs)
		require.NoError(t, err)

		kinds := []EventKind{}
		for _, ev := range events {
			kinds = append(kinds, ev.Kind)
		}
		assert.Equal(t, []EventKind{Progress, Progress, Complete, Progress, Complete}, kinds)
		assert.Equal(t, 0, events[2].Index)
		assert.Equal(t, 1, events[4].Index)

		require.Len(t, q.enqueued, 2)
		assert.Equal(t, QueueRequest{URL: "https://cdn.example.com/b.mp4", Dir: dir, Name: "b.mp4"}, q.enqueued[1])

		assert.Equal(t, []Handle{1, 2}, q.queried[0])
		assert.Equal(t, []Handle{2}, q.queried[len(q.queried)-1])
		assert.ElementsMatch(t, []Handle{1, 2}, q.removed)
	})

	t.Run("Waits One Interval Between Queries", func(t *testing.T) {
		q := &scriptedQueue{script: [][]QueueStatus{
			{{Handle: 1, State: QueueRunning}},
			{{Handle: 1, State: QueueRunning}},
			{{Handle: 1, State: QueueSuccessful}},
		}}

		start := time.Now()
		_, err := collect(t, context.Background(), NewPoller(q, 30*time.Millisecond, nil), jobs[:1])
		require.NoError(t, err)

		assert.Equal(t, 3, q.calls)
		assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
	})

	t.Run("Failure Aborts And Removes In-Flight Requests", func(t *testing.T) {
		q := &scriptedQueue{script: [][]QueueStatus{
			{{Handle: 1, State: QueueRunning, BytesSoFar: 1, BytesTotal: 10}, {Handle: 2, State: QueueFailed, Reason: "HTTP 404 Not Found"}},
		}}

		events, err := collect(t, context.Background(), NewPoller(q, 5*time.Millisecond, nil), jobs)
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrTransfer)
		assert.Contains(t, err.Error(), "download failed for b.mp4. reason: HTTP 404 Not Found")

		last := events[len(events)-1]
		assert.Equal(t, Failed, last.Kind)
		assert.Equal(t, 1, last.Index)
		assert.ElementsMatch(t, []Handle{1, 2}, q.removed)
	})

	t.Run("Cancellation Removes In-Flight Requests", func(t *testing.T) {
		q := &scriptedQueue{script: [][]QueueStatus{{{Handle: 1, State: QueueRunning}}}}

		ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
		defer cancel()

		_, err := collect(t, ctx, NewPoller(q, 5*time.Millisecond, nil), jobs[:1])
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, []Handle{1}, q.removed)
	})

	t.Run("Enqueue Failure", func(t *testing.T) {
		q := &scriptedQueue{enqueueErr: errors.New("queue full")}

		events, err := collect(t, context.Background(), NewPoller(q, 0, nil), jobs)
		assert.ErrorIs(t, err, shared.ErrTransfer)
		require.Len(t, events, 1)
		assert.Equal(t, Failed, events[0].Kind)
	})

	t.Run("Query Failure", func(t *testing.T) {
		q := &scriptedQueue{queryErr: errors.New("database locked")}

		_, err := collect(t, context.Background(), NewPoller(q, 0, nil), jobs)
		assert.ErrorIs(t, err, shared.ErrTransfer)
		assert.ElementsMatch(t, []Handle{1, 2}, q.removed)
	})

	t.Run("Default Interval", func(t *testing.T) {
		p := NewPoller(&scriptedQueue{}, 0, nil)
		assert.Equal(t, DefaultPollInterval, p.interval)
	})
}

func TestLocalQueue(t *testing.T) {
	waitFor := func(t *testing.T, q *LocalQueue, h Handle, state QueueState) QueueStatus {
		t.Helper()
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			statuses, err := q.Query(context.Background(), []Handle{h})
			require.NoError(t, err)
			if len(statuses) == 1 && statuses[0].State == state {
				return statuses[0]
			}
			time.Sleep(5 * time.Millisecond)
		}
		t.Fatalf("handle %d never reached %s", h, state)
		return QueueStatus{}
	}

	t.Run("Downloads Into Place", func(t *testing.T) {
		ms := tu.NewMediaServer(t)
		dir := t.TempDir()
		u := ms.AddFile("a.jpg", tu.MediaFile{Body: tu.Bytes(9000)})

		q := NewLocalQueue(nil, 0, 0, nil)
		defer q.Close()

		h, err := q.Enqueue(context.Background(), QueueRequest{URL: u, Dir: dir, Name: "a.jpg"})
		require.NoError(t, err)

		st := waitFor(t, q, h, QueueSuccessful)
		assert.Equal(t, int64(9000), st.BytesSoFar)
		assert.Equal(t, int64(9000), st.BytesTotal)
		tu.AssertFileExists(t, filepath.Join(dir, "a.jpg"))
		tu.AssertNoPartials(t, dir)

		require.NoError(t, q.Remove(h))
		assert.Equal(t, 0, q.Len())
		tu.AssertFileExists(t, filepath.Join(dir, "a.jpg"))
	})

	t.Run("Reports Failure Reason", func(t *testing.T) {
		ms := tu.NewMediaServer(t)
		u := ms.AddFile("gone.jpg", tu.MediaFile{Status: http.StatusGone})

		q := NewLocalQueue(nil, 0, 0, nil)
		defer q.Close()

		h, err := q.Enqueue(context.Background(), QueueRequest{URL: u, Dir: t.TempDir(), Name: "gone.jpg"})
		require.NoError(t, err)

		st := waitFor(t, q, h, QueueFailed)
		assert.Contains(t, st.Reason, "410")
	})

	t.Run("Remove Cancels And Cleans Partial File", func(t *testing.T) {
		started := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Length", "100000")
			w.WriteHeader(http.StatusOK)
			w.Write(tu.Bytes(2048))
			w.(http.Flusher).Flush()
			close(started)
			<-r.Context().Done()
		}))
		defer server.Close()

		dir := t.TempDir()
		q := NewLocalQueue(nil, 0, 0, nil)

		h, err := q.Enqueue(context.Background(), QueueRequest{URL: server.URL + "/big.mp4", Dir: dir, Name: "big.mp4"})
		require.NoError(t, err)
		<-started

		require.NoError(t, q.Remove(h))
		tu.AssertNoPartials(t, dir)

		statuses, err := q.Query(context.Background(), []Handle{h})
		require.NoError(t, err)
		assert.Empty(t, statuses)
	})

	t.Run("Timeout Fails Stalled Transfer", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Length", "100000")
			w.WriteHeader(http.StatusOK)
			w.Write(tu.Bytes(1024))
			w.(http.Flusher).Flush()
			<-r.Context().Done()
		}))
		defer server.Close()

		dir := t.TempDir()
		q := NewLocalQueue(nil, 0, 100*time.Millisecond, nil)
		defer q.Close()

		h, err := q.Enqueue(context.Background(), QueueRequest{URL: server.URL + "/stall.mp4", Dir: dir, Name: "stall.mp4"})
		require.NoError(t, err)

		st := waitFor(t, q, h, QueueFailed)
		assert.Contains(t, st.Reason, "deadline exceeded")
		tu.AssertNoPartials(t, dir)
	})

	t.Run("Timeout Ends The Poller With A Transfer Error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer server.Close()

		dir := t.TempDir()
		q := NewLocalQueue(nil, 0, 100*time.Millisecond, nil)
		defer q.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		start := time.Now()
		events, err := collect(t, ctx, NewPoller(q, 10*time.Millisecond, nil), []Job{newJob(0, server.URL+"/hang.jpg", dir)})
		require.ErrorIs(t, err, shared.ErrTransfer)
		assert.NotErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), 2*time.Second)

		require.NotEmpty(t, events)
		assert.Equal(t, Failed, events[len(events)-1].Kind)
		assert.Equal(t, 0, q.Len())
	})

	t.Run("Rejects Incomplete Request", func(t *testing.T) {
		q := NewLocalQueue(nil, 0, 0, nil)
		_, err := q.Enqueue(context.Background(), QueueRequest{Dir: t.TempDir()})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("Drives The Poller End To End", func(t *testing.T) {
		ms := tu.NewMediaServer(t)
		dir := t.TempDir()
		a := ms.AddFile("a.jpg", tu.MediaFile{Body: tu.Bytes(4096)})
		b := ms.AddFile("b.mp4", tu.MediaFile{Body: tu.Bytes(70000)})

		q := NewLocalQueue(nil, 0, 0, nil)
		defer q.Close()

		events, err := collect(t, context.Background(), NewPoller(q, 10*time.Millisecond, nil), []Job{newJob(0, a, dir), newJob(1, b, dir)})
		require.NoError(t, err)

		completed := map[int]bool{}
		for _, ev := range events {
			if ev.Kind == Complete {
				completed[ev.Index] = true
			}
		}
		assert.Equal(t, map[int]bool{0: true, 1: true}, completed)
		assert.Equal(t, 0, q.Len())
		tu.AssertFileExists(t, filepath.Join(dir, "b.mp4"))
	})
}
