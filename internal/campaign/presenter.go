package campaign

import (
	"errors"
	"sync"
	"time"

	"promo-engine/internal/clock"
)

// State is the modal's position in its page-load lifecycle.
type State int

const (
	StateHidden State = iota
	StateShown
	StateCloseVisible
	StateDismissed
)

func (s State) String() string {
	switch s {
	case StateHidden:
		return "hidden"
	case StateShown:
		return "shown"
	case StateCloseVisible:
		return "close_visible"
	case StateDismissed:
		return "dismissed"
	default:
		return "unknown"
	}
}

var (
	ErrNotShown             = errors.New("promotion is not shown")
	ErrCloseHidden          = errors.New("close button is not visible yet")
	ErrOutsideClickDisabled = errors.New("outside click dismissal is disabled")
	ErrDismissed            = errors.New("promotion already dismissed")
)

// Session drives one modal from mount to dismissal. Transitions are
// Hidden -> Shown -> CloseVisible -> Dismissed; Dismissed is terminal.
type Session struct {
	mu       sync.Mutex
	cfg      Config
	clk      clock.Clock
	state    State
	mounted  bool
	shownAt  time.Time
	timer    clock.Timer
	onChange func(from, to State)
}

type SessionOption func(*Session)

// WithOnChange registers fn to be called after every transition. fn runs
// without the session lock held.
func WithOnChange(fn func(from, to State)) SessionOption {
	return func(s *Session) { s.onChange = fn }
}

func NewSession(cfg Config, clk clock.Clock, opts ...SessionOption) *Session {
	s := &Session{cfg: cfg, clk: clk}
	for _, o := range opts {
		o(s)
	}
	return s
}

type transition struct{ from, to State }

// Mount evaluates the campaign once. When it is visible at now the modal is
// shown and the close-button timer starts. Later calls are no-ops.
func (s *Session) Mount(now time.Time) bool {
	s.mu.Lock()
	if s.mounted {
		shown := s.state == StateShown || s.state == StateCloseVisible
		s.mu.Unlock()
		return shown
	}
	s.mounted = true
	if !ShouldDisplay(s.cfg, now) {
		s.mu.Unlock()
		return false
	}

	s.shownAt = now
	ts := []transition{{StateHidden, StateShown}}
	s.state = StateShown
	if s.cfg.CloseButtonDelay <= 0 {
		s.state = StateCloseVisible
		ts = append(ts, transition{StateShown, StateCloseVisible})
	} else {
		s.timer = s.clk.AfterFunc(s.cfg.CloseButtonDelay, s.revealClose)
	}
	s.mu.Unlock()

	s.notify(ts...)
	return true
}

func (s *Session) revealClose() {
	s.mu.Lock()
	if s.state != StateShown {
		s.mu.Unlock()
		return
	}
	s.state = StateCloseVisible
	s.timer = nil
	s.mu.Unlock()

	s.notify(transition{StateShown, StateCloseVisible})
}

// Close handles a click on the close button.
func (s *Session) Close() error {
	s.mu.Lock()
	switch s.state {
	case StateCloseVisible:
	case StateShown:
		s.mu.Unlock()
		return ErrCloseHidden
	case StateDismissed:
		s.mu.Unlock()
		return ErrDismissed
	default:
		s.mu.Unlock()
		return ErrNotShown
	}
	t := s.dismissLocked()
	s.mu.Unlock()

	s.notify(t)
	return nil
}

// ClickOutside handles a click on the overlay around the modal.
func (s *Session) ClickOutside() error {
	s.mu.Lock()
	switch s.state {
	case StateShown, StateCloseVisible:
	case StateDismissed:
		s.mu.Unlock()
		return ErrDismissed
	default:
		s.mu.Unlock()
		return ErrNotShown
	}
	if !s.cfg.AllowOutsideClick {
		s.mu.Unlock()
		return ErrOutsideClickDisabled
	}
	t := s.dismissLocked()
	s.mu.Unlock()

	s.notify(t)
	return nil
}

// Unmount tears the session down when the page goes away. Any pending
// timer is cancelled.
func (s *Session) Unmount() {
	s.mu.Lock()
	s.mounted = true
	if s.state == StateDismissed || s.state == StateHidden {
		s.state = StateDismissed
		s.stopTimerLocked()
		s.mu.Unlock()
		return
	}
	t := s.dismissLocked()
	s.mu.Unlock()

	s.notify(t)
}

func (s *Session) dismissLocked() transition {
	t := transition{s.state, StateDismissed}
	s.state = StateDismissed
	s.stopTimerLocked()
	return t
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) notify(ts ...transition) {
	if s.onChange == nil {
		return
	}
	for _, t := range ts {
		s.onChange(t.from, t.to)
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Visible() bool {
	st := s.State()
	return st == StateShown || st == StateCloseVisible
}

func (s *Session) CloseButtonVisible() bool {
	return s.State() == StateCloseVisible
}

// ShownAt is the zero time until the modal has been shown.
func (s *Session) ShownAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shownAt
}

// CloseButtonAt is when the close button appears (or appeared).
func (s *Session) CloseButtonAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shownAt.IsZero() {
		return time.Time{}
	}
	return s.shownAt.Add(s.cfg.CloseButtonDelay)
}

func (s *Session) Config() Config { return s.cfg }
