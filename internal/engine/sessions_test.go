package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promo-engine/internal/campaign"
	"promo-engine/internal/clock"
)

func newSessions(t *testing.T, cfg campaign.Config, ok bool) (*Sessions, *clock.Manual) {
	t.Helper()
	clk := clock.NewManual(jan15)
	eng := NewEngine(&MockLoader{cfg: cfg, ok: ok}, clk, time.UTC)
	require.NoError(t, eng.BuildSnapshot(context.Background()))
	return NewSessions(eng, time.Hour), clk
}

func TestSessions_OpenRequiresDisplay(t *testing.T) {
	m, _ := newSessions(t, campaign.Config{}, false)
	info, err := m.Open()
	assert.ErrorIs(t, err, ErrNotDisplayed)
	assert.Equal(t, campaign.ReasonUnconfigured, info.Decision.Reason)
	assert.Zero(t, m.Len())
}

func TestSessions_Lifecycle(t *testing.T) {
	m, clk := newSessions(t, januarySale(t), true)

	info, err := m.Open()
	require.NoError(t, err)
	require.NotEmpty(t, info.ID)
	assert.Equal(t, "shown", info.State)
	assert.True(t, info.Visible)
	assert.False(t, info.CloseButtonVisible)
	assert.Equal(t, jan15.Add(10*time.Second), info.CloseButtonAt)
	assert.Equal(t, "Sale!", info.View.Text)
	assert.Equal(t, 1, m.Len())

	_, err = m.Close(info.ID)
	assert.ErrorIs(t, err, campaign.ErrCloseHidden)

	clk.Advance(10 * time.Second)
	got, err := m.Get(info.ID)
	require.NoError(t, err)
	assert.True(t, got.CloseButtonVisible)

	closed, err := m.Close(info.ID)
	require.NoError(t, err)
	assert.Equal(t, "dismissed", closed.State)
	assert.False(t, closed.Visible)
	assert.Zero(t, m.Len())

	_, err = m.Get(info.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessions_OutsideClickBeforeDelay(t *testing.T) {
	m, clk := newSessions(t, januarySale(t), true)
	info, err := m.Open()
	require.NoError(t, err)

	_, err = m.ClickOutside(info.ID)
	require.NoError(t, err)
	assert.Zero(t, clk.Pending())
	assert.Zero(t, m.Len())
}

func TestSessions_Unmount(t *testing.T) {
	m, clk := newSessions(t, januarySale(t), true)
	info, err := m.Open()
	require.NoError(t, err)

	require.NoError(t, m.Unmount(info.ID))
	assert.Zero(t, clk.Pending())
	assert.Zero(t, m.Len())
	assert.ErrorIs(t, m.Unmount(info.ID), ErrSessionNotFound)
}

func TestSessions_IndependentPerPageLoad(t *testing.T) {
	m, _ := newSessions(t, januarySale(t), true)
	a, err := m.Open()
	require.NoError(t, err)
	b, err := m.Open()
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	_, err = m.ClickOutside(a.ID)
	require.NoError(t, err)

	got, err := m.Get(b.ID)
	require.NoError(t, err)
	assert.True(t, got.Visible, "dismissal does not carry over to other loads")
}

func TestSessions_Reap(t *testing.T) {
	m, clk := newSessions(t, januarySale(t), true)
	old, err := m.Open()
	require.NoError(t, err)

	clk.Advance(50 * time.Minute)
	fresh, err := m.Open()
	require.NoError(t, err)

	assert.Zero(t, m.Reap(clk.Now()))
	assert.Equal(t, 1, m.Reap(clk.Now().Add(15*time.Minute)))

	_, err = m.Get(old.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Get(fresh.ID)
	assert.NoError(t, err)
}

func TestSessions_Shutdown(t *testing.T) {
	m, clk := newSessions(t, januarySale(t), true)
	for i := 0; i < 3; i++ {
		_, err := m.Open()
		require.NoError(t, err)
	}
	require.Equal(t, 3, clk.Pending())

	m.Shutdown()
	assert.Zero(t, m.Len())
	assert.Zero(t, clk.Pending())
}

func TestSessions_ReaperStopsWithContext(t *testing.T) {
	m, _ := newSessions(t, januarySale(t), true)
	ctx, cancel := context.WithCancel(context.Background())
	m.StartReaper(ctx, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	cancel()
	// goleak.VerifyTestMain fails the package if the goroutine outlives ctx.
}
