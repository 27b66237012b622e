// Package session runs market sessions: a virtual clock, one
// goroutine per agent, an exchange goroutine clearing batches on a
// cadence and a driver releasing customer orders. Sessions that die
// on a contract violation are discarded and rerun.
package session

import "time"

// Clock maps wall-clock session time onto virtual time. A session
// runs for Real wall seconds which stand for Virtual timesteps.
type Clock struct {
	start   time.Time
	real    float64
	virtual float64
}

func NewClock(realLength, virtualLength float64) *Clock {
	return &Clock{
		start:   time.Now(),
		real:    realLength,
		virtual: virtualLength,
	}
}

// Now is the current virtual time.
func (c *Clock) Now() float64 {
	return time.Since(c.start).Seconds() * (c.virtual / c.real)
}

// Elapsed is wall-clock seconds since the session started.
func (c *Clock) Elapsed() float64 {
	return time.Since(c.start).Seconds()
}

// Done reports whether the session's wall-clock budget is spent.
func (c *Clock) Done() bool {
	return c.Elapsed() >= c.real
}

// TimeLeft is the fraction of the session remaining, the countdown
// strategies key off.
func (c *Clock) TimeLeft() float64 {
	return (c.virtual - c.Now()) / c.virtual
}

// VirtualLength is the session length in virtual timesteps.
func (c *Clock) VirtualLength() float64 {
	return c.virtual
}
