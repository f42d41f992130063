// Package clock abstracts wall-clock reads and single-shot timers so the
// presenter's close-button delay can be driven deterministically in tests.
package clock

import (
	"sync"
	"time"

	bclock "github.com/benbjohnson/clock"
)

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	// Stop prevents the callback from running. It reports whether the call
	// stopped the timer; false means it already fired or was stopped.
	Stop() bool
}

// Clock supplies the current time and schedules callbacks.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

var wall = bclock.New()

// Real is the system clock.
type Real struct{}

func (Real) Now() time.Time { return wall.Now() }

func (Real) AfterFunc(d time.Duration, f func()) Timer { return wall.AfterFunc(d, f) }

// Manual is a clock that only moves when told to. It is backed by a
// benbjohnson mock; Advance and Set return only after every callback that
// became due has finished.
type Manual struct {
	mock *bclock.Mock

	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	m       *Manual
	at      time.Time
	t       *bclock.Timer
	done    chan struct{}
	stopped bool
}

func NewManual(now time.Time) *Manual {
	mock := bclock.NewMock()
	mock.Set(now)
	return &Manual{mock: mock}
}

func (m *Manual) Now() time.Time { return m.mock.Now() }

func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	tm := &manualTimer{m: m, at: m.mock.Now().Add(d), done: make(chan struct{})}
	m.mu.Lock()
	m.timers = append(m.timers, tm)
	m.mu.Unlock()
	tm.t = m.mock.AfterFunc(d, func() {
		defer close(tm.done)
		f()
	})
	return tm
}

// Advance moves the clock forward by d and runs every timer now due.
func (m *Manual) Advance(d time.Duration) {
	m.Set(m.mock.Now().Add(d))
}

// Set moves the clock to t and runs every timer now due.
func (m *Manual) Set(t time.Time) {
	m.mock.Set(t)
	m.wait(t)
}

// wait blocks until the callbacks of timers due at or before t have
// returned, then forgets them.
func (m *Manual) wait(t time.Time) {
	m.mu.Lock()
	var due, pending []*manualTimer
	for _, tm := range m.timers {
		switch {
		case tm.stopped:
		case !tm.at.After(t):
			due = append(due, tm)
		default:
			pending = append(pending, tm)
		}
	}
	m.timers = pending
	m.mu.Unlock()

	for _, tm := range due {
		<-tm.done
	}
}

// Pending returns the number of timers that have neither fired nor been stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, tm := range m.timers {
		if !tm.stopped {
			n++
		}
	}
	return n
}

func (tm *manualTimer) Stop() bool {
	if !tm.t.Stop() {
		return false
	}
	tm.m.mu.Lock()
	tm.stopped = true
	tm.m.mu.Unlock()
	return true
}
