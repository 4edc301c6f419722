package clock

import (
	"sync"
	"time"
)

// Manual is a Clock whose time only moves on Advance.
// Callbacks run synchronously on the goroutine calling Advance, in due-time order.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

// NewManual creates a manual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

type manualTimer struct {
	clock   *Manual
	at      time.Time
	period  time.Duration // 0 for one-shot
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Now returns the current manual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// AfterFunc registers a one-shot timer.
func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	return m.add(d, 0, f)
}

// Every registers a recurring timer. Panics on a non-positive period.
func (m *Manual) Every(period time.Duration, f func()) Timer {
	if period <= 0 {
		panic("clock: non-positive period")
	}
	return m.add(period, period, f)
}

func (m *Manual) add(d, period time.Duration, f func()) *manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := &manualTimer{
		clock:  m,
		at:     m.now.Add(d),
		period: period,
		f:      f,
	}
	m.timers = append(m.timers, t)
	return t
}

// Advance moves time forward by d, firing every timer that falls due.
// A recurring timer fires once per elapsed period.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)

	for {
		next := m.nextDue(target)
		if next == nil {
			break
		}

		m.now = next.at
		if next.period > 0 {
			next.at = next.at.Add(next.period)
		} else {
			next.stopped = true
		}

		// Callback may register or stop timers
		f := next.f
		m.mu.Unlock()
		f()
		m.mu.Lock()
	}

	m.now = target
	m.prune()
	m.mu.Unlock()
}

// Pending returns the number of timers that can still fire.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, t := range m.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

// nextDue returns the earliest active timer due at or before target.
// Ties go to the timer registered first. Caller holds m.mu.
func (m *Manual) nextDue(target time.Time) *manualTimer {
	var best *manualTimer
	for _, t := range m.timers {
		if t.stopped || t.at.After(target) {
			continue
		}
		if best == nil || t.at.Before(best.at) {
			best = t
		}
	}
	return best
}

// prune drops stopped timers. Caller holds m.mu.
func (m *Manual) prune() {
	active := m.timers[:0]
	for _, t := range m.timers {
		if !t.stopped {
			active = append(active, t)
		}
	}
	for i := len(active); i < len(m.timers); i++ {
		m.timers[i] = nil
	}
	m.timers = active
}
