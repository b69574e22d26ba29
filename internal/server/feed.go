package server

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/playcache/internal/models"
	"github.com/desertthunder/playcache/internal/shared"
	"github.com/desertthunder/playcache/internal/slideshow"
	"github.com/desertthunder/playcache/internal/tasks"
)

// subscriberBuffer is how many states a slow subscriber may lag before older ones are dropped.
const subscriberBuffer = 16

// FeedOpts configures a [Feed].
type FeedOpts struct {
	Engine      tasks.SyncEngine
	ManifestURL string
	CacheDir    string
	Interval    time.Duration // slideshow cadence
	Logger      *log.Logger
}

// Slide is the item currently shown by the feed's slideshow.
type Slide struct {
	Index int                      `json:"index"`
	Total int                      `json:"total"`
	Item  models.ResolvedMediaItem `json:"item"`
}

// Feed runs sync passes one at a time and fans their states out to subscribers.
//
// After a successful pass the feed cycles through the resolved items until the next pass starts.
// Nothing is on display while a pass runs or after one fails.
type Feed struct {
	base        context.Context
	engine      tasks.SyncEngine
	manifestURL string
	cacheDir    string
	interval    time.Duration
	logger      *log.Logger

	mu       sync.Mutex
	running  bool
	latest   models.StateView
	items    []models.ResolvedMediaItem
	cycler   *slideshow.Cycler
	stopShow context.CancelFunc
	subs     map[int]chan models.StateView
	nextSub  int
	wg       sync.WaitGroup
}

// NewFeed creates a feed whose passes and slideshow live until ctx is cancelled.
func NewFeed(ctx context.Context, opts FeedOpts) *Feed {
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	if opts.Interval <= 0 {
		opts.Interval = slideshow.DefaultInterval
	}
	return &Feed{
		base:        ctx,
		engine:      opts.Engine,
		manifestURL: opts.ManifestURL,
		cacheDir:    opts.CacheDir,
		interval:    opts.Interval,
		logger:      opts.Logger,
		subs:        map[int]chan models.StateView{},
	}
}

// Start launches a pass in the background and clears the slideshow until the pass succeeds.
// It returns [shared.ErrSyncBusy] when one is already running.
func (f *Feed) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.running {
		return shared.ErrSyncBusy
	}
	if f.stopShow != nil {
		f.stopShow()
		f.stopShow = nil
	}
	f.items = nil
	f.cycler = nil
	f.running = true

	states := f.engine.Run(f.base, f.manifestURL, f.cacheDir)
	f.wg.Add(1)
	go f.consume(states)
	return nil
}

func (f *Feed) consume(states <-chan models.SyncState) {
	defer f.wg.Done()

	for state := range states {
		f.publish(state)
	}

	f.mu.Lock()
	f.running = false
	f.mu.Unlock()
}

func (f *Feed) publish(state models.SyncState) {
	view := models.Describe(state)

	f.mu.Lock()
	defer f.mu.Unlock()

	f.latest = view
	for _, ch := range f.subs {
		offer(ch, view)
	}

	switch s := state.(type) {
	case models.SuccessState:
		f.logger.Info("pass finished", "items", len(s.Items))
		f.startShow(s.Items)
	case models.ErrorState:
		f.logger.Error("pass failed", "error", s.Err)
	}
}

// offer sends view without blocking, discarding the oldest queued state when ch is full.
func offer(ch chan models.StateView, view models.StateView) {
	for {
		select {
		case ch <- view:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// startShow must be called with f.mu held.
func (f *Feed) startShow(items []models.ResolvedMediaItem) {
	f.items = items
	if len(items) == 0 {
		f.cycler = nil
		return
	}

	if f.cycler == nil {
		f.cycler, _ = slideshow.New(len(items))
	} else {
		f.cycler.Reset(len(items))
	}

	ctx, cancel := context.WithCancel(f.base)
	f.stopShow = cancel
	cycler := f.cycler

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		cycler.Autoplay(ctx, f.interval, func(idx int) {
			f.logger.Debug("slide", "index", idx)
		})
	}()
}

// Subscribe returns a channel of state views and a function that releases it.
//
// The channel first receives the latest view, if any pass has reported yet.
func (f *Feed) Subscribe() (<-chan models.StateView, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextSub
	f.nextSub++
	ch := make(chan models.StateView, subscriberBuffer)
	if f.latest.Kind != "" {
		ch <- f.latest
	}
	f.subs[id] = ch

	return ch, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
	}
}

// Latest returns the most recent state view and whether a pass is running.
func (f *Feed) Latest() (models.StateView, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest, f.running
}

// Current returns the slide on display, or false when there is nothing to show.
func (f *Feed) Current() (Slide, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cycler == nil || len(f.items) == 0 {
		return Slide{}, false
	}
	idx := f.cycler.Current()
	return Slide{Index: idx, Total: len(f.items), Item: f.items[idx]}, true
}

// Wait blocks until the running pass and slideshow have stopped. Cancel the context given to
// [NewFeed] first.
func (f *Feed) Wait() {
	f.wg.Wait()
}
