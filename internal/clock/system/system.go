// Package system provides wall-clock and fixed clocks.
package system

import "time"

// Clock implements crawler.Clock using the wall clock in UTC.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time in UTC.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}

// Fixed is a clock frozen at one instant; Advance moves it forward.
type Fixed struct {
	at time.Time
}

// NewFixed returns a clock that always reports at.
func NewFixed(at time.Time) *Fixed {
	return &Fixed{at: at.UTC()}
}

// Now returns the frozen instant.
func (f *Fixed) Now() time.Time { return f.at }

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) { f.at = f.at.Add(d) }
