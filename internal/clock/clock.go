// Package clock abstracts wall-clock time so decision files can be stamped
// deterministically in tests.
package clock

import "time"

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// System implements Clock using the system time, truncated to seconds so
// stamps written to decision files stay readable.
type System struct{}

// Now returns the current system time in UTC.
func (System) Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// Fixed implements Clock with a settable time for testing.
type Fixed struct {
	current time.Time
}

// NewFixed creates a Fixed clock reading t.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{current: t}
}

// Now returns the fixed time.
func (c *Fixed) Now() time.Time {
	return c.current
}

// Advance moves the fixed time forward by d.
func (c *Fixed) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}
