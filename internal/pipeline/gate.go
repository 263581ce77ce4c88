package pipeline

import "time"

// RateGate limits an action to a fixed rate by comparing elapsed
// wall-clock time against a period of 1000/hz milliseconds. It never
// blocks: Due answers immediately and fires at most once per period no
// matter how often it is polled. After a stall the gate fires once and
// re-arms from that firing, it does not burst to catch up.
type RateGate struct {
	period time.Duration
	last   time.Time
}

func NewRateGate(hz int) *RateGate {
	if hz <= 0 {
		hz = 1
	}
	return &RateGate{period: time.Duration(1000/hz) * time.Millisecond}
}

func NewIntervalGate(period time.Duration) *RateGate {
	return &RateGate{period: period}
}

// Due reports whether a full period has elapsed since the last firing
// and re-arms the gate when it has. The first call always fires.
func (g *RateGate) Due(now time.Time) bool {
	if !g.last.IsZero() && now.Sub(g.last) < g.period {
		return false
	}
	g.last = now
	return true
}

// Remaining returns the time until the gate is next due, zero if it is
// due already.
func (g *RateGate) Remaining(now time.Time) time.Duration {
	if g.last.IsZero() {
		return 0
	}
	d := g.period - now.Sub(g.last)
	if d < 0 {
		return 0
	}
	return d
}

func (g *RateGate) Period() time.Duration {
	return g.period
}
