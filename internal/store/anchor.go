package store

import (
	"context"
	"errors"
	"time"
)

// ErrAnchorNotFound is returned by Get when no anchor is stored for the
// attempt (never stored, already cleared, or evicted externally).
var ErrAnchorNotFound = errors.New("anchor not found")

// Anchor is the durable ground truth for an attempt countdown: the absolute
// start time plus the allowed duration. Remaining time is always derived from
// these two values and the wall clock, never from a running counter.
type Anchor struct {
	StartedAt       time.Time `json:"started_at"`
	DurationSeconds int       `json:"duration_seconds"`
}

// Remaining derives the seconds left at the given instant, clamped at zero.
func (a Anchor) Remaining(now time.Time) int {
	elapsed := int(now.Sub(a.StartedAt) / time.Second)
	remaining := a.DurationSeconds - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// AnchorStore is the small durable key-value side channel owned by the exam
// session engine. It is the only persisted state outside the attempt and
// response records themselves.
type AnchorStore interface {
	Put(ctx context.Context, attemptID uint, anchor Anchor) error
	Get(ctx context.Context, attemptID uint) (Anchor, error)
	Clear(ctx context.Context, attemptID uint) error
}
