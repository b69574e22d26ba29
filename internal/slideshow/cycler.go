// package slideshow advances a display cursor over a resolved media list.
package slideshow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/playcache/internal/shared"
)

// DefaultInterval is the autoplay cadence.
const DefaultInterval = 5 * time.Second

// Cycler is a cursor over size items that wraps around. It is safe for concurrent use.
type Cycler struct {
	mu    sync.Mutex
	index int
	size  int
}

// New creates a cursor at index 0. size must be positive.
func New(size int) (*Cycler, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size %d", shared.ErrEmptySlideshow, size)
	}
	return &Cycler{size: size}, nil
}

// Current returns the cursor position.
func (c *Cycler) Current() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// Size returns the number of items being cycled.
func (c *Cycler) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Advance moves to the next item, wrapping to 0 after the last, and returns the new position.
func (c *Cycler) Advance() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = (c.index + 1) % c.size
	return c.index
}

// Seek moves the cursor to index.
func (c *Cycler) Seek(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= c.size {
		return fmt.Errorf("%w: index %d outside [0, %d)", shared.ErrInvalidInput, index, c.size)
	}
	c.index = index
	return nil
}

// Reset points the cursor at the first item of a list of the given size.
func (c *Cycler) Reset(size int) error {
	if size <= 0 {
		return fmt.Errorf("%w: size %d", shared.ErrEmptySlideshow, size)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index, c.size = 0, size
	return nil
}

// Autoplay advances the cursor every interval until ctx ends, calling fn with each new position.
// A non-positive interval uses [DefaultInterval]. fn may be nil.
func (c *Cycler) Autoplay(ctx context.Context, interval time.Duration, fn func(int)) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			idx := c.Advance()
			if fn != nil {
				fn(idx)
			}
		}
	}
}
