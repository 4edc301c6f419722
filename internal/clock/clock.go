// Package clock abstracts timers so schedulers can run against the wall clock
// in production and a manually advanced clock in tests.
package clock

import (
	"sync"
	"time"
)

// Timer is a pending one-shot or recurring callback.
type Timer interface {
	// Stop prevents further firings. Returns false if already stopped or fired.
	Stop() bool
}

// Clock is a source of time and timers.
type Clock interface {
	Now() time.Time
	// AfterFunc calls f once in its own goroutine after d.
	AfterFunc(d time.Duration, f func()) Timer
	// Every calls f each period until the returned timer is stopped.
	Every(period time.Duration, f func()) Timer
}

// Real returns a Clock backed by the runtime timers.
func Real() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

func (realClock) Every(period time.Duration, f func()) Timer {
	t := &ticker{
		ticker: time.NewTicker(period),
		stopCh: make(chan struct{}),
	}
	go t.loop(f)
	return t
}

// ticker runs f on every tick until stopped
type ticker struct {
	ticker *time.Ticker
	stopCh chan struct{}
	once   sync.Once
}

func (t *ticker) loop(f func()) {
	for {
		select {
		case <-t.stopCh:
			return
		case <-t.ticker.C:
			f()
		}
	}
}

func (t *ticker) Stop() bool {
	stopped := false
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.stopCh)
		stopped = true
	})
	return stopped
}
