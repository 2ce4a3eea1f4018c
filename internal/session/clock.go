package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/haitranq/prepline/internal/store"
	"github.com/rs/zerolog/log"
)

// DefaultTickInterval is how often a running clock re-derives remaining time.
const DefaultTickInterval = time.Second

// Clock produces a countdown that stays correct across process restarts and
// clock drift. Ground truth is the durable anchor (absolute start time plus
// duration), re-read on every tick; an in-memory decrementing counter is never
// trusted. When the store is unreachable the tick degrades to the attempt's
// server-recorded start time, so a bad read is never fatal.
type Clock struct {
	attemptID uint
	anchors   store.AnchorStore
	fallback  store.Anchor
	now       func() time.Time
	onExpired func()

	expireOnce sync.Once
	expired    chan struct{}

	stopOnce sync.Once
	stop     chan struct{}
}

type ClockOption func(*Clock)

// WithNow substitutes the wall-clock source. Tests use this to simulate
// elapsed time without sleeping.
func WithNow(now func() time.Time) ClockOption {
	return func(c *Clock) { c.now = now }
}

// WithOnExpired registers a callback fired exactly once when remaining time
// reaches zero. The auto-submit path hangs off this.
func WithOnExpired(fn func()) ClockOption {
	return func(c *Clock) { c.onExpired = fn }
}

// NewClock builds a clock for one attempt. fallback carries the attempt's
// server-recorded startedAt and duration, used whenever the durable anchor is
// missing or unreadable.
func NewClock(attemptID uint, anchors store.AnchorStore, fallback store.Anchor, opts ...ClockOption) *Clock {
	c := &Clock{
		attemptID: attemptID,
		anchors:   anchors,
		fallback:  fallback,
		now:       time.Now,
		expired:   make(chan struct{}),
		stop:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialize persists the anchor. A write failure degrades the clock to
// fallback-only operation; it is logged but not fatal.
func (c *Clock) Initialize(ctx context.Context) {
	if err := c.anchors.Put(ctx, c.attemptID, c.fallback); err != nil {
		log.Warn().Err(err).Uint("attemptID", c.attemptID).Msg("Clock: failed to persist anchor, continuing with in-memory fallback")
	}
}

// Tick re-reads the persisted anchor and derives the seconds remaining. On
// zero it emits the expired event exactly once and clears the anchor; repeated
// ticks at zero stay silent.
func (c *Clock) Tick(ctx context.Context) int {
	anchor := c.readAnchor(ctx)
	remaining := anchor.Remaining(c.now())
	if remaining == 0 {
		c.fireExpired(ctx)
	}
	return remaining
}

func (c *Clock) readAnchor(ctx context.Context) store.Anchor {
	anchor, err := c.anchors.Get(ctx, c.attemptID)
	if err != nil {
		if !errors.Is(err, store.ErrAnchorNotFound) {
			log.Warn().Err(err).Uint("attemptID", c.attemptID).Msg("Clock: anchor read failed, using fallback for this tick")
		}
		return c.fallback
	}
	return anchor
}

func (c *Clock) fireExpired(ctx context.Context) {
	c.expireOnce.Do(func() {
		log.Info().Uint("attemptID", c.attemptID).Msg("Clock: attempt time expired")
		close(c.expired)
		if err := c.anchors.Clear(ctx, c.attemptID); err != nil {
			log.Warn().Err(err).Uint("attemptID", c.attemptID).Msg("Clock: failed to clear anchor on expiry")
		}
		if c.onExpired != nil {
			go c.onExpired()
		}
	})
}

// Expired is closed exactly once when the countdown reaches zero.
func (c *Clock) Expired() <-chan struct{} {
	return c.expired
}

// HasExpired reports whether the expiry event already fired.
func (c *Clock) HasExpired() bool {
	select {
	case <-c.expired:
		return true
	default:
		return false
	}
}

// Run drives Tick on the given interval until Stop is called or the countdown
// expires. Runs in its own goroutine.
func (c *Clock) Run(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-c.stop:
				return
			case <-c.expired:
				return
			case <-ticker.C:
				c.Tick(context.Background())
			}
		}
	}()
}

// Stop halts the tick loop. It does not touch the stored anchor and never
// cancels anything else; answers already in flight keep going.
func (c *Clock) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Clear removes the durable anchor. Called by the submission path after the
// attempt record is completed.
func (c *Clock) Clear(ctx context.Context) error {
	return c.anchors.Clear(ctx, c.attemptID)
}
