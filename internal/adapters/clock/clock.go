package clock

import (
	"fmt"
	"sync"
	"time"

	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/domain/config"
)

// Manual is a clock that only moves when told to. In blocknumber mode each
// point is a block; in timestamp mode each point is a second.
type Manual struct {
	mu    sync.RWMutex
	point uint64
	mode  config.ClockMode
}

// NewManual creates a manual clock starting at start
func NewManual(mode config.ClockMode, start uint64) *Manual {
	if mode == "" {
		mode = config.ClockModeBlockNumber
	}
	return &Manual{point: start, mode: mode}
}

// CurrentPoint returns the current point
func (c *Manual) CurrentPoint() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.point
}

// Mode returns the unit of the points
func (c *Manual) Mode() config.ClockMode {
	return c.mode
}

// Mine advances the clock by n points and returns the new point. The clock
// does not move when that would run past the last point.
func (c *Manual) Mine(n uint64) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, err := domain.AddPoints(c.point, n)
	if err != nil {
		return c.point, fmt.Errorf("cannot mine %d points: %w", n, err)
	}
	c.point = next
	return c.point, nil
}

// AdvanceTo moves the clock forward to point. Moving backwards is an error.
func (c *Manual) AdvanceTo(point uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if point < c.point {
		return fmt.Errorf("clock cannot go back from %d to %d", c.point, point)
	}
	c.point = point
	return nil
}

// Wall reports unix seconds, offset so that Genesis is point zero when set
type Wall struct {
	genesis uint64
	now     func() time.Time
}

// NewWall creates a timestamp clock
func NewWall(genesis uint64) *Wall {
	return &Wall{genesis: genesis, now: time.Now}
}

// CurrentPoint returns seconds since genesis
func (w *Wall) CurrentPoint() uint64 {
	ts := uint64(w.now().Unix())
	if ts < w.genesis {
		return 0
	}
	return ts - w.genesis
}

// Mode always reports timestamp
func (w *Wall) Mode() config.ClockMode {
	return config.ClockModeTimestamp
}
