package core

import (
	"errors"
	"time"

	"github.com/volatiletech/null/v8"
)

var (
	ErrAttemptLimitReached = errors.New("attempt limit reached")
	ErrDeadlinePassed      = errors.New("deadline has passed")
)

// ActivityPolicy is a bounded-attempt, time-gated policy shared by all
// attempt-like activities (quiz attempts, assignment submissions):
// a capped number of attempts, an optional deadline past which no new
// attempt may start, and an optional per-attempt time budget.
//
// All fields are optional; an invalid null means "unbounded".
type ActivityPolicy struct {
	MaxAttempts null.Int
	Deadline    null.Time
	Duration    null.Int // seconds

	clock Clock
}

func NewActivityPolicy(maxAttempts, duration null.Int, deadline null.Time, clock Clock) ActivityPolicy {
	return ActivityPolicy{
		MaxAttempts: maxAttempts,
		Deadline:    deadline,
		Duration:    duration,
		clock:       clock,
	}
}

// CheckStart reports whether a new attempt may start given the number of
// attempts already made, finished or not.
func (p ActivityPolicy) CheckStart(priorAttempts int) error {
	if p.Deadline.Valid && p.clock.Now().After(p.Deadline.Time) {
		return ErrDeadlinePassed
	}
	if p.MaxAttempts.Valid && priorAttempts >= p.MaxAttempts.Int {
		return ErrAttemptLimitReached
	}
	return nil
}

// Bounded reports whether attempts carry a time budget at all.
func (p ActivityPolicy) Bounded() bool { return p.Duration.Valid }

// Remaining returns the time budget left for an attempt started at startedAt.
// The result is negative once the budget is exhausted. Only meaningful when
// Bounded() is true.
func (p ActivityPolicy) Remaining(startedAt time.Time) time.Duration {
	budget := time.Duration(p.Duration.Int) * time.Second
	return budget - p.clock.Now().Sub(startedAt)
}

// Expired reports whether an attempt started at startedAt has exhausted its
// time budget. An unbounded activity never expires.
func (p ActivityPolicy) Expired(startedAt time.Time) bool {
	return p.Bounded() && p.Remaining(startedAt) <= 0
}
