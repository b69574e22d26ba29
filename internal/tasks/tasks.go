// package tasks implements the sync engine.
//
// The engine goroutine owns all tracker state; transfer strategies only talk to it through events.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/playcache/internal/cache"
	"github.com/desertthunder/playcache/internal/models"
	"github.com/desertthunder/playcache/internal/progress"
	"github.com/desertthunder/playcache/internal/services"
	"github.com/desertthunder/playcache/internal/shared"
	"github.com/desertthunder/playcache/internal/transfer"
)

// SyncEngine runs sync passes.
type SyncEngine interface {
	// Run starts one pass and returns its states. The channel closes after a terminal state, or
	// without one when ctx is cancelled.
	Run(ctx context.Context, manifestURL, cacheDir string) <-chan models.SyncState
}

// PassRecorder persists pass history.
type PassRecorder interface {
	Begin(ctx context.Context, pass *models.SyncPass) error
	End(ctx context.Context, pass *models.SyncPass) error
}

// EngineOpts configures a [MediaEngine].
type EngineOpts struct {
	Manifests services.ManifestFetcher
	Strategy  transfer.Strategy
	Recorder  PassRecorder // optional
	Logger    *log.Logger  // optional
}

// MediaEngine implements [SyncEngine].
type MediaEngine struct {
	manifests services.ManifestFetcher
	strategy  transfer.Strategy
	recorder  PassRecorder
	logger    *log.Logger
}

// NewMediaEngine creates a new MediaEngine.
func NewMediaEngine(opts EngineOpts) *MediaEngine {
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	return &MediaEngine{
		manifests: opts.Manifests,
		strategy:  opts.Strategy,
		recorder:  opts.Recorder,
		logger:    opts.Logger,
	}
}

// pass is the state of one run. It is only touched by the run goroutine.
type pass struct {
	ctx    context.Context
	out    chan<- models.SyncState
	logger *log.Logger
	agg    *progress.Aggregator
	cached int
}

// emit delivers state unless ctx ends first.
func (p *pass) emit(state models.SyncState) bool {
	select {
	case p.out <- state:
		return true
	case <-p.ctx.Done():
		return false
	}
}

func (p *pass) emitSnapshot() bool {
	return p.emit(models.ProgressState{Snapshot: p.agg.Snapshot()})
}

// Run starts a pass in a new goroutine. The caller must drain the channel or cancel ctx.
func (e *MediaEngine) Run(ctx context.Context, manifestURL, cacheDir string) <-chan models.SyncState {
	out := make(chan models.SyncState)
	go func() {
		defer close(out)
		e.run(ctx, manifestURL, cacheDir, out)
	}()
	return out
}

func (e *MediaEngine) run(ctx context.Context, manifestURL, cacheDir string, out chan<- models.SyncState) {
	record := models.NewSyncPass(0, manifestURL, cacheDir, e.strategyName())
	record.SetID(shared.GenerateID())
	e.begin(ctx, record)

	p := &pass{
		ctx:    ctx,
		out:    out,
		logger: shared.WithLogger(e.logger, "pass_id", record.ID(), "manifest", manifestURL),
	}
	p.logger.Info("sync pass started", "cache_dir", cacheDir, "strategy", e.strategyName())

	start := time.Now()
	items, err := e.execute(p, manifestURL, cacheDir)

	status := models.PassSucceeded
	switch {
	case err == nil:
		p.logger.Info("sync pass succeeded", "items", len(items), "elapsed", time.Since(start))
		p.emit(models.SuccessState{Items: items})
	case ctx.Err() != nil:
		status, err = models.PassCancelled, ctx.Err()
		p.logger.Info("sync pass cancelled", "elapsed", time.Since(start))
	default:
		status, err = models.PassFailed, classify(err)
		p.logger.Error("sync pass failed", "error", err, "elapsed", time.Since(start))
		p.emit(models.ErrorState{Err: err})
	}

	if p.agg != nil {
		record.SetCounts(p.agg.Total(), p.cached, p.agg.Completed())
	}
	record.Finish(status, err)
	e.end(ctx, record)
}

// execute performs the pass and returns the resolved items. Panics become [shared.ErrUnexpected].
func (e *MediaEngine) execute(p *pass, manifestURL, cacheDir string) (items []models.ResolvedMediaItem, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("sync pass panicked", "panic", r)
			items, err = nil, fmt.Errorf("%w: panic: %v", shared.ErrUnexpected, r)
		}
	}()

	if e.manifests == nil || e.strategy == nil {
		return nil, fmt.Errorf("%w: engine is missing a manifest client or transfer strategy", shared.ErrUnexpected)
	}

	resolver, err := cache.NewResolver(cacheDir)
	if err != nil {
		return nil, err
	}

	manifest, err := e.manifests.Fetch(p.ctx, manifestURL)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("manifest fetched", "items", manifest.TotalItems())

	resolutions, err := resolver.ResolveAll(manifest)
	if err != nil {
		return nil, err
	}

	p.agg = progress.NewAggregator(resolutions)
	p.cached = p.agg.Completed()
	p.logger.Debug("cache resolved", "hits", p.cached, "misses", p.agg.Total()-p.cached)

	if !p.emitSnapshot() {
		return nil, p.ctx.Err()
	}

	jobs := make([]transfer.Job, 0, p.agg.Total()-p.cached)
	for i, res := range resolutions {
		if !res.Hit {
			jobs = append(jobs, transfer.Job{Index: i, Item: res.Item, Key: res.Key, Dir: resolver.Dir()})
		}
	}

	if len(jobs) > 0 {
		if err := e.acquire(p, jobs); err != nil {
			return nil, err
		}
	}
	return p.agg.Resolved(), nil
}

// acquire runs the strategy and folds its events into the aggregator until every job is complete.
// On return the strategy has stopped: the transfer context is cancelled and its result awaited.
func (e *MediaEngine) acquire(p *pass, jobs []transfer.Job) error {
	tctx, cancel := context.WithCancel(p.ctx)
	events := make(chan transfer.Event)
	done := make(chan error, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("%w: transfer strategy panicked: %v", shared.ErrUnexpected, r)
			}
		}()
		done <- e.strategy.Acquire(tctx, jobs, events)
	}()

	stopped := false
	defer func() {
		cancel()
		if !stopped {
			<-done
		}
	}()

	for !p.agg.Done() {
		select {
		case ev := <-events:
			switch ev.Kind {
			case transfer.Progress:
				if p.agg.Progress(ev.Index, ev.Fraction()) && !p.emitSnapshot() {
					return p.ctx.Err()
				}
			case transfer.Complete:
				if p.agg.Complete(ev.Index) {
					p.logger.Debug("item cached", "index", ev.Index, "bytes", ev.Received)
					if !p.emitSnapshot() {
						return p.ctx.Err()
					}
				}
			case transfer.Failed:
				if ev.Err == nil {
					return fmt.Errorf("%w: transfer of item %d failed", shared.ErrTransfer, ev.Index)
				}
				return ev.Err
			}
		case err := <-done:
			stopped = true
			if err != nil {
				return err
			}
			if !p.agg.Done() {
				return fmt.Errorf("%w: %s strategy returned with %d of %d items outstanding",
					shared.ErrUnexpected, e.strategy.Name(), p.agg.Total()-p.agg.Completed(), p.agg.Total())
			}
		case <-p.ctx.Done():
			return p.ctx.Err()
		}
	}
	return nil
}

// classify keeps known pass errors and wraps anything else with [shared.ErrUnexpected].
func classify(err error) error {
	for _, known := range []error{shared.ErrManifestFetch, shared.ErrTransfer, shared.ErrFilesystem, shared.ErrUnexpected} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", shared.ErrUnexpected, err)
}

func (e *MediaEngine) strategyName() string {
	if e.strategy == nil {
		return ""
	}
	return e.strategy.Name()
}

func (e *MediaEngine) begin(ctx context.Context, record *models.SyncPass) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.Begin(ctx, record); err != nil {
		e.logger.Warn("failed to record pass start", "error", err)
	}
}

func (e *MediaEngine) end(ctx context.Context, record *models.SyncPass) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.End(context.WithoutCancel(ctx), record); err != nil {
		e.logger.Warn("failed to record pass result", "error", err)
	}
}

// Collect drains states until the channel closes.
func Collect(states <-chan models.SyncState) []models.SyncState {
	var out []models.SyncState
	for s := range states {
		out = append(out, s)
	}
	return out
}

// Last returns the final state of a drained run, or nil when it was cancelled before any state.
func Last(states []models.SyncState) models.SyncState {
	if len(states) == 0 {
		return nil
	}
	return states[len(states)-1]
}
