package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"promo-engine/internal/campaign"
	"promo-engine/internal/observability"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotDisplayed    = errors.New("promotion is not displayed")
)

// SessionInfo is a point-in-time view of one modal session.
type SessionInfo struct {
	ID                 string            `json:"id"`
	State              string            `json:"state"`
	Visible            bool              `json:"visible"`
	CloseButtonVisible bool              `json:"closeButtonVisible"`
	ShownAt            time.Time         `json:"shownAt"`
	CloseButtonAt      time.Time         `json:"closeButtonAt"`
	View               campaign.View     `json:"view"`
	Decision           campaign.Decision `json:"decision"`
}

type entry struct {
	s        *campaign.Session
	view     campaign.View
	decision campaign.Decision
	openedAt time.Time
}

// Sessions tracks the live modal sessions, one per page load. Dismissed
// sessions leave the registry; sessions whose page vanished without an
// unmount are reaped after ttl.
type Sessions struct {
	eng *Engine
	ttl time.Duration

	mu   sync.RWMutex
	live map[string]*entry
}

func NewSessions(eng *Engine, ttl time.Duration) *Sessions {
	return &Sessions{eng: eng, ttl: ttl, live: map[string]*entry{}}
}

// Open mounts a presenter for the current campaign. It returns
// ErrNotDisplayed when the campaign should not be shown now.
func (m *Sessions) Open() (SessionInfo, error) {
	now := m.eng.Now()
	cfg, ok := m.eng.Current()
	d := m.eng.decide(cfg, ok, now)
	if !d.Display {
		return SessionInfo{Decision: d}, ErrNotDisplayed
	}

	id := uuid.NewString()
	e := &entry{view: render(cfg), decision: d, openedAt: now}
	e.s = campaign.NewSession(cfg, m.eng.Clock(), campaign.WithOnChange(func(from, to campaign.State) {
		observability.SessionTransitions.WithLabelValues(to.String()).Inc()
		if to == campaign.StateDismissed {
			m.remove(id)
		}
	}))

	if !e.s.Mount(now) {
		return SessionInfo{Decision: d}, ErrNotDisplayed
	}

	m.mu.Lock()
	m.live[id] = e
	m.mu.Unlock()
	observability.ActiveSessions.Inc()

	log.Debug().Str("session", id).Dur("close_delay", cfg.CloseButtonDelay).Msg("promo session opened")
	return info(id, e), nil
}

func (m *Sessions) Get(id string) (SessionInfo, error) {
	e, err := m.lookup(id)
	if err != nil {
		return SessionInfo{}, err
	}
	return info(id, e), nil
}

// Close handles the close button.
func (m *Sessions) Close(id string) (SessionInfo, error) {
	return m.act(id, (*campaign.Session).Close)
}

// ClickOutside handles a click on the overlay.
func (m *Sessions) ClickOutside(id string) (SessionInfo, error) {
	return m.act(id, (*campaign.Session).ClickOutside)
}

func (m *Sessions) act(id string, fn func(*campaign.Session) error) (SessionInfo, error) {
	e, err := m.lookup(id)
	if err != nil {
		return SessionInfo{}, err
	}
	if err := fn(e.s); err != nil {
		return info(id, e), err
	}
	return info(id, e), nil
}

// Unmount tears a session down when its page goes away.
func (m *Sessions) Unmount(id string) error {
	e, err := m.lookup(id)
	if err != nil {
		return err
	}
	e.s.Unmount()
	m.remove(id)
	return nil
}

// Reap unmounts sessions opened more than ttl before now and returns how
// many were dropped.
func (m *Sessions) Reap(now time.Time) int {
	if m.ttl <= 0 {
		return 0
	}
	stale := map[string]*entry{}
	m.mu.RLock()
	for id, e := range m.live {
		if now.Sub(e.openedAt) > m.ttl {
			stale[id] = e
		}
	}
	m.mu.RUnlock()

	for id, e := range stale {
		e.s.Unmount()
		m.remove(id)
	}
	if len(stale) > 0 {
		log.Info().Int("count", len(stale)).Msg("reaped stale promo sessions")
	}
	return len(stale)
}

// StartReaper reaps stale sessions every interval until ctx is done.
func (m *Sessions) StartReaper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Reap(m.eng.Now())
			}
		}
	}()
}

// Shutdown unmounts every live session, cancelling their timers.
func (m *Sessions) Shutdown() {
	m.mu.Lock()
	all := make([]*entry, 0, len(m.live))
	for _, e := range m.live {
		all = append(all, e)
	}
	m.mu.Unlock()

	for _, e := range all {
		e.s.Unmount()
	}
}

func (m *Sessions) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.live)
}

func (m *Sessions) lookup(id string) (*entry, error) {
	m.mu.RLock()
	e, ok := m.live[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e, nil
}

func (m *Sessions) remove(id string) {
	m.mu.Lock()
	_, ok := m.live[id]
	delete(m.live, id)
	m.mu.Unlock()
	if ok {
		observability.ActiveSessions.Dec()
	}
}

func info(id string, e *entry) SessionInfo {
	st := e.s.State()
	return SessionInfo{
		ID:                 id,
		State:              st.String(),
		Visible:            st == campaign.StateShown || st == campaign.StateCloseVisible,
		CloseButtonVisible: st == campaign.StateCloseVisible,
		ShownAt:            e.s.ShownAt(),
		CloseButtonAt:      e.s.CloseButtonAt(),
		View:               e.view,
		Decision:           e.decision,
	}
}
