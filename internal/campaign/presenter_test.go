package campaign

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"promo-engine/internal/clock"
)

var mountTime = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func activeConfig(delay time.Duration, outside bool) Config {
	cfg := Defaults()
	cfg.Enabled = true
	cfg.Text = "Sale!"
	cfg.CloseButtonDelay = delay
	cfg.AllowOutsideClick = outside
	return cfg
}

type recorder struct {
	mu sync.Mutex
	ts []string
}

func (r *recorder) record(from, to State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ts = append(r.ts, from.String()+">"+to.String())
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ts...)
}

func TestSession_CloseButtonAppearsAfterDelay(t *testing.T) {
	clk := clock.NewManual(mountTime)
	s := NewSession(activeConfig(5*time.Second, false), clk)

	require.True(t, s.Mount(clk.Now()))
	assert.True(t, s.Visible())
	assert.False(t, s.CloseButtonVisible())
	assert.Equal(t, mountTime.Add(5*time.Second), s.CloseButtonAt())

	clk.Advance(4999 * time.Millisecond)
	assert.False(t, s.CloseButtonVisible())

	clk.Advance(time.Millisecond)
	assert.True(t, s.CloseButtonVisible())
	assert.Equal(t, StateCloseVisible, s.State())
}

func TestSession_DismissBeforeDelayCancelsTimer(t *testing.T) {
	clk := clock.NewManual(mountTime)
	rec := &recorder{}
	s := NewSession(activeConfig(5*time.Second, true), clk, WithOnChange(rec.record))

	require.True(t, s.Mount(clk.Now()))
	require.Equal(t, 1, clk.Pending())

	clk.Advance(2 * time.Second)
	require.NoError(t, s.ClickOutside())
	assert.Equal(t, 0, clk.Pending(), "timer must be stopped on dismissal")

	clk.Advance(time.Minute)
	assert.Equal(t, StateDismissed, s.State())
	assert.False(t, s.CloseButtonVisible())
	assert.Equal(t, []string{"hidden>shown", "shown>dismissed"}, rec.list())
}

func TestSession_LateTimerCallbackIsIgnored(t *testing.T) {
	clk := clock.NewManual(mountTime)
	s := NewSession(activeConfig(time.Second, false), clk)
	require.True(t, s.Mount(clk.Now()))

	s.Unmount()
	// A callback racing with dismissal must not resurrect the session.
	s.revealClose()
	assert.Equal(t, StateDismissed, s.State())
}

func TestSession_NotDisplayedStaysHidden(t *testing.T) {
	clk := clock.NewManual(mountTime)
	cfg := activeConfig(time.Second, true)
	cfg.Enabled = false
	s := NewSession(cfg, clk)

	assert.False(t, s.Mount(clk.Now()))
	assert.Equal(t, StateHidden, s.State())
	assert.Equal(t, 0, clk.Pending())
	assert.ErrorIs(t, s.Close(), ErrNotShown)
	assert.ErrorIs(t, s.ClickOutside(), ErrNotShown)
	assert.True(t, s.ShownAt().IsZero())
	assert.True(t, s.CloseButtonAt().IsZero())
}

func TestSession_MountIsSingleShot(t *testing.T) {
	clk := clock.NewManual(mountTime)
	rec := &recorder{}
	s := NewSession(activeConfig(time.Second, false), clk, WithOnChange(rec.record))

	require.True(t, s.Mount(clk.Now()))
	require.True(t, s.Mount(clk.Now()))
	assert.Equal(t, 1, clk.Pending())
	assert.Equal(t, []string{"hidden>shown"}, rec.list())
}

func TestSession_CloseRequiresVisibleButton(t *testing.T) {
	clk := clock.NewManual(mountTime)
	s := NewSession(activeConfig(3*time.Second, false), clk)
	require.True(t, s.Mount(clk.Now()))

	assert.ErrorIs(t, s.Close(), ErrCloseHidden)
	clk.Advance(3 * time.Second)
	require.NoError(t, s.Close())
	assert.Equal(t, StateDismissed, s.State())
	assert.ErrorIs(t, s.Close(), ErrDismissed)
	assert.ErrorIs(t, s.ClickOutside(), ErrDismissed)
}

func TestSession_OutsideClick(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		clk := clock.NewManual(mountTime)
		s := NewSession(activeConfig(time.Second, false), clk)
		require.True(t, s.Mount(clk.Now()))

		assert.ErrorIs(t, s.ClickOutside(), ErrOutsideClickDisabled)
		clk.Advance(time.Second)
		assert.ErrorIs(t, s.ClickOutside(), ErrOutsideClickDisabled)
		assert.True(t, s.Visible())
	})
	t.Run("enabled after close button", func(t *testing.T) {
		clk := clock.NewManual(mountTime)
		s := NewSession(activeConfig(time.Second, true), clk)
		require.True(t, s.Mount(clk.Now()))
		clk.Advance(time.Second)

		require.NoError(t, s.ClickOutside())
		assert.False(t, s.Visible())
	})
}

func TestSession_ZeroDelayShowsCloseImmediately(t *testing.T) {
	clk := clock.NewManual(mountTime)
	rec := &recorder{}
	s := NewSession(activeConfig(0, false), clk, WithOnChange(rec.record))

	require.True(t, s.Mount(clk.Now()))
	assert.True(t, s.CloseButtonVisible())
	assert.Equal(t, 0, clk.Pending())
	assert.Equal(t, []string{"hidden>shown", "shown>close_visible"}, rec.list())
}

func TestSession_JanuarySaleScenario(t *testing.T) {
	cfg, errs := Validate(map[string]any{
		"enabled":          true,
		"startDate":        "2024-01-01",
		"endDate":          "2024-01-31",
		"text":             "Sale!",
		"closeButtonDelay": 10,
	}, time.UTC)
	require.Empty(t, errs)

	clk := clock.NewManual(mountTime)
	s := NewSession(cfg, clk)
	require.True(t, s.Mount(clk.Now()))

	clk.Advance(9 * time.Second)
	assert.False(t, s.CloseButtonVisible())
	clk.Advance(time.Second)
	assert.True(t, s.CloseButtonVisible())
}

func TestSession_RealClockLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewSession(activeConfig(time.Hour, true), clock.Real{})
	require.True(t, s.Mount(time.Now()))
	require.NoError(t, s.ClickOutside())
}

func TestSession_RealClockRevealsClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	done := make(chan struct{})
	s := NewSession(activeConfig(10*time.Millisecond, false), clock.Real{}, WithOnChange(func(_, to State) {
		if to == StateCloseVisible {
			close(done)
		}
	}))
	require.True(t, s.Mount(time.Now()))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("close button never appeared")
	}
	require.NoError(t, s.Close())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "hidden", StateHidden.String())
	assert.Equal(t, "unknown", State(42).String())
}
