package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/playcache/internal/models"
	"github.com/desertthunder/playcache/internal/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedEngine emits its states once release is closed, or immediately when release is nil.
type gatedEngine struct {
	states  []models.SyncState
	release chan struct{}
}

func (e *gatedEngine) Run(ctx context.Context, manifestURL, cacheDir string) <-chan models.SyncState {
	out := make(chan models.SyncState)
	go func() {
		defer close(out)
		if e.release != nil {
			select {
			case <-e.release:
			case <-ctx.Done():
				return
			}
		}
		for _, s := range e.states {
			select {
			case out <- s:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func resolved(names ...string) []models.ResolvedMediaItem {
	items := make([]models.ResolvedMediaItem, len(names))
	for i, n := range names {
		items[i] = models.ResolvedMediaItem{Name: n, Path: "/cache/" + n, URI: "file:///cache/" + n}
	}
	return items
}

func newTestFeed(t *testing.T, engine *gatedEngine, interval time.Duration) *Feed {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	feed := NewFeed(ctx, FeedOpts{Engine: engine, ManifestURL: "http://x.test/m.json", CacheDir: t.TempDir(), Interval: interval})
	t.Cleanup(func() {
		cancel()
		feed.Wait()
	})
	return feed
}

func waitIdle(t *testing.T, feed *Feed) {
	t.Helper()
	require.Eventually(t, func() bool {
		_, running := feed.Latest()
		return !running
	}, 2*time.Second, 5*time.Millisecond)
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRouter(t *testing.T) {
	t.Run("Health", func(t *testing.T) {
		router := NewRouter(newTestFeed(t, &gatedEngine{}, 0), nil)

		w := do(t, router, http.MethodGet, "/health")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	})

	t.Run("Slideshow Before Any Pass", func(t *testing.T) {
		router := NewRouter(newTestFeed(t, &gatedEngine{}, 0), nil)

		w := do(t, router, http.MethodGet, "/slideshow")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Sync Then State", func(t *testing.T) {
		engine := &gatedEngine{states: []models.SyncState{
			models.ProgressState{Snapshot: models.ProgressSnapshot{TotalItems: 2}},
			models.SuccessState{Items: resolved("a.jpg", "b.mp4")},
		}}
		feed := newTestFeed(t, engine, time.Hour)
		router := NewRouter(feed, nil)

		w := do(t, router, http.MethodPost, "/sync")
		require.Equal(t, http.StatusAccepted, w.Code)
		waitIdle(t, feed)

		w = do(t, router, http.MethodGet, "/state")
		require.Equal(t, http.StatusOK, w.Code)

		var body stateResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.False(t, body.Running)
		assert.Equal(t, models.StateSuccess, body.State.Kind)
		assert.Len(t, body.State.Items, 2)

		w = do(t, router, http.MethodGet, "/slideshow")
		require.Equal(t, http.StatusOK, w.Code)

		var slide Slide
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &slide))
		assert.Equal(t, 0, slide.Index)
		assert.Equal(t, 2, slide.Total)
		assert.Equal(t, "a.jpg", slide.Item.Name)
	})

	t.Run("Sync While Busy", func(t *testing.T) {
		engine := &gatedEngine{
			states:  []models.SyncState{models.SuccessState{}},
			release: make(chan struct{}),
		}
		feed := newTestFeed(t, engine, 0)
		router := NewRouter(feed, nil)

		require.Equal(t, http.StatusAccepted, do(t, router, http.MethodPost, "/sync").Code)

		w := do(t, router, http.MethodPost, "/sync")
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), shared.ErrSyncBusy.Error())

		close(engine.release)
		waitIdle(t, feed)
		assert.Equal(t, http.StatusAccepted, do(t, router, http.MethodPost, "/sync").Code)
	})

	t.Run("Error State", func(t *testing.T) {
		engine := &gatedEngine{states: []models.SyncState{models.ErrorState{Err: shared.ErrManifestFetch}}}
		feed := newTestFeed(t, engine, 0)
		router := NewRouter(feed, nil)

		require.NoError(t, feed.Start())
		waitIdle(t, feed)

		w := do(t, router, http.MethodGet, "/state")
		assert.Contains(t, w.Body.String(), `"kind":"error"`)
		assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/slideshow").Code)
	})

	t.Run("Method Not Allowed", func(t *testing.T) {
		router := NewRouter(newTestFeed(t, &gatedEngine{}, 0), nil)
		assert.Equal(t, http.StatusMethodNotAllowed, do(t, router, http.MethodGet, "/sync").Code)
	})
}

func TestEvents(t *testing.T) {
	engine := &gatedEngine{
		states: []models.SyncState{
			models.ProgressState{Snapshot: models.ProgressSnapshot{TotalItems: 1}},
			models.SuccessState{Items: resolved("a.jpg")},
		},
		release: make(chan struct{}),
	}
	feed := newTestFeed(t, engine, time.Hour)
	srv := httptest.NewServer(NewRouter(feed, nil))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.NoError(t, feed.Start())
	close(engine.release)

	var kinds []string
	scanner := bufio.NewScanner(resp.Body)
	for len(kinds) < 2 && scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "event: ") {
			if line != "" {
				assert.Equal(t, "event: state", line)
			}
			continue
		}

		require.True(t, strings.HasPrefix(line, "data: "), "unexpected line %q", line)
		var view models.StateView
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &view))
		kinds = append(kinds, view.Kind)
	}

	assert.Equal(t, []string{models.StateProgress, models.StateSuccess}, kinds)
}

func TestFeed(t *testing.T) {
	t.Run("Autoplay Advances", func(t *testing.T) {
		engine := &gatedEngine{states: []models.SyncState{models.SuccessState{Items: resolved("a", "b", "c")}}}
		feed := newTestFeed(t, engine, 10*time.Millisecond)

		require.NoError(t, feed.Start())
		waitIdle(t, feed)

		assert.Eventually(t, func() bool {
			slide, ok := feed.Current()
			return ok && slide.Index != 0
		}, 2*time.Second, 5*time.Millisecond)
	})

	t.Run("Subscriber Receives Latest First", func(t *testing.T) {
		engine := &gatedEngine{states: []models.SyncState{models.SuccessState{}}}
		feed := newTestFeed(t, engine, 0)

		require.NoError(t, feed.Start())
		waitIdle(t, feed)

		states, release := feed.Subscribe()
		defer release()

		select {
		case view := <-states:
			assert.Equal(t, models.StateSuccess, view.Kind)
		default:
			t.Fatal("expected the latest view to be queued")
		}
	})

	t.Run("Slow Subscriber Keeps Newest", func(t *testing.T) {
		ch := make(chan models.StateView, 2)
		offer(ch, models.StateView{Kind: "1"})
		offer(ch, models.StateView{Kind: "2"})
		offer(ch, models.StateView{Kind: "3"})

		assert.Equal(t, "2", (<-ch).Kind)
		assert.Equal(t, "3", (<-ch).Kind)
	})

	t.Run("Empty Success Clears Slideshow", func(t *testing.T) {
		engine := &gatedEngine{states: []models.SyncState{models.SuccessState{Items: resolved("a")}}}
		feed := newTestFeed(t, engine, time.Hour)

		require.NoError(t, feed.Start())
		waitIdle(t, feed)
		_, ok := feed.Current()
		require.True(t, ok)

		engine.states = []models.SyncState{models.SuccessState{}}
		require.NoError(t, feed.Start())
		waitIdle(t, feed)
		_, ok = feed.Current()
		assert.False(t, ok)
	})

	t.Run("New Pass Hides Previous Slideshow", func(t *testing.T) {
		engine := &gatedEngine{states: []models.SyncState{models.SuccessState{Items: resolved("a", "b")}}}
		feed := newTestFeed(t, engine, time.Hour)
		router := NewRouter(feed, nil)

		require.NoError(t, feed.Start())
		waitIdle(t, feed)
		require.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/slideshow").Code)

		release := make(chan struct{})
		engine.release = release
		engine.states = []models.SyncState{models.ErrorState{Err: shared.ErrTransfer}}
		require.NoError(t, feed.Start())

		_, ok := feed.Current()
		assert.False(t, ok)
		assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/slideshow").Code)

		close(release)
		waitIdle(t, feed)

		_, ok = feed.Current()
		assert.False(t, ok)
		assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/slideshow").Code)
	})
}
