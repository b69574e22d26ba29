package transfer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/playcache/internal/shared"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var errConsumerGone = errors.New("event consumer gone")

// StreamerOpts configures a [Streamer].
type StreamerOpts struct {
	Client        *http.Client
	ChunkSize     int           // bytes per read (default 8 KiB)
	MaxConcurrent int           // simultaneous transfers (default 4)
	StartRate     float64       // transfer starts per second (default 10)
	Timeout       time.Duration // per-transfer timeout, 0 for none
	Logger        *log.Logger
}

// Streamer reads HTTP bodies directly, reporting progress after every chunk.
type Streamer struct {
	client    *http.Client
	chunkSize int
	limit     int
	limiter   *rate.Limiter
	timeout   time.Duration
	logger    *log.Logger
}

// NewStreamer creates a streaming [Strategy].
func NewStreamer(opts StreamerOpts) *Streamer {
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 4
	}
	if opts.StartRate <= 0 {
		opts.StartRate = 10
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}

	return &Streamer{
		client:    opts.Client,
		chunkSize: opts.ChunkSize,
		limit:     opts.MaxConcurrent,
		limiter:   rate.NewLimiter(rate.Limit(opts.StartRate), 1),
		timeout:   opts.Timeout,
		logger:    opts.Logger,
	}
}

func (s *Streamer) Name() string { return shared.StrategyStream }

// Acquire streams every job concurrently. The first failure cancels the others.
func (s *Streamer) Acquire(ctx context.Context, jobs []Job, events chan<- Event) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)

	for _, job := range jobs {
		if err := s.limiter.Wait(gctx); err != nil {
			break
		}
		g.Go(func() error {
			return s.fetch(gctx, job, events)
		})
	}

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return ctx.Err()
}

func (s *Streamer) fetch(ctx context.Context, job Job, events chan<- Event) error {
	tctx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	logger := s.logger.With("key", job.Key)
	logger.Debug("transfer started", "url", job.Item.SourceURL)

	received, err := fetchFile(tctx, s.client, job.Item.SourceURL, job.Dir, job.Key, s.chunkSize,
		func(received, total int64) error {
			if !send(ctx, events, Event{Index: job.Index, Kind: Progress, Received: received, Total: total}) {
				return errConsumerGone
			}
			return nil
		})

	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		failure := fmt.Errorf("%w: download failed for %s: %v", shared.ErrTransfer, job.Key, err)
		logger.Warn("transfer failed", "error", err, "received", received)
		send(ctx, events, Event{Index: job.Index, Kind: Failed, Received: received, Err: failure})
		return failure
	}

	logger.Debug("transfer complete", "bytes", received)
	if !send(ctx, events, Event{Index: job.Index, Kind: Complete, Received: received, Total: received}) {
		return ctx.Err()
	}
	return nil
}
