package campaign

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestEvaluate_DisabledNeverDisplays(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	cfgs := []Config{
		{Enabled: false},
		{Enabled: false, StartDate: date(2024, 1, 1)},
		{Enabled: false, StartDate: date(2024, 1, 1), EndDate: date(2024, 1, 31)},
		{Enabled: false, EndDate: date(2030, 1, 1)},
	}
	for _, cfg := range cfgs {
		d := Evaluate(cfg, now)
		assert.False(t, d.Display)
		assert.Equal(t, ReasonDisabled, d.Reason)
	}
}

func TestEvaluate_UnboundedAlwaysDisplays(t *testing.T) {
	cfg := Config{Enabled: true}
	for _, now := range []time.Time{
		time.Time{},
		time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC),
		time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC),
	} {
		assert.True(t, ShouldDisplay(cfg, now), now.String())
	}
}

func TestEvaluate_SingleDayWindow(t *testing.T) {
	cfg := Config{Enabled: true, StartDate: date(2024, 3, 10), EndDate: date(2024, 3, 10)}
	dayStart := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	dayEnd := time.Date(2024, 3, 10, 23, 59, 59, int(999*time.Millisecond), time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"first instant", dayStart, true},
		{"midday", dayStart.Add(12 * time.Hour), true},
		{"last instant", dayEnd, true},
		{"just before", dayStart.Add(-time.Millisecond), false},
		{"just after", dayEnd.Add(time.Millisecond), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldDisplay(cfg, tt.now))
		})
	}
}

func TestEvaluate_Reasons(t *testing.T) {
	cfg := Config{Enabled: true, StartDate: date(2024, 1, 1), EndDate: date(2024, 1, 31)}

	assert.Equal(t, Decision{Reason: ReasonNotStarted}, Evaluate(cfg, time.Date(2023, 12, 31, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, Decision{Display: true, Reason: ReasonActive}, Evaluate(cfg, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, Decision{Reason: ReasonEnded}, Evaluate(cfg, time.Date(2024, 2, 1, 0, 0, 1, 0, time.UTC)))
}

func TestEvaluate_InvertedWindowNeverActive(t *testing.T) {
	cfg := Config{Enabled: true, StartDate: date(2024, 2, 1), EndDate: date(2024, 1, 1)}
	for d := 0; d < 60; d++ {
		now := time.Date(2023, 12, 15, 12, 0, 0, 0, time.UTC).AddDate(0, 0, d)
		assert.False(t, ShouldDisplay(cfg, now), now.String())
	}
}

func TestEvaluate_EndOfDayFollowsNowLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, loc)
	cfg := Config{Enabled: true, EndDate: &end}

	// 2024-01-31 23:30 local is still inside the window.
	assert.True(t, ShouldDisplay(cfg, time.Date(2024, 1, 31, 23, 30, 0, 0, loc)))
	assert.False(t, ShouldDisplay(cfg, time.Date(2024, 2, 1, 0, 0, 0, 0, loc)))
}

func TestScenario_JanuarySale(t *testing.T) {
	cfg, errs := Validate(map[string]any{
		"enabled":          true,
		"startDate":        "2024-01-01",
		"endDate":          "2024-01-31",
		"text":             "Sale!",
		"closeButtonDelay": 10,
	}, time.UTC)
	assert.Empty(t, errs)

	assert.True(t, ShouldDisplay(cfg, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)))
	assert.False(t, ShouldDisplay(cfg, time.Date(2024, 2, 1, 0, 0, 1, 0, time.UTC)))
}

func TestEffectiveEnd(t *testing.T) {
	end := time.Date(2024, 1, 31, 15, 4, 5, 0, time.UTC)
	got := EffectiveEnd(end, time.UTC)
	assert.Equal(t, time.Date(2024, 1, 31, 23, 59, 59, 999000000, time.UTC), got)
}

func BenchmarkEvaluate(b *testing.B) {
	cfg := Config{Enabled: true, StartDate: date(2024, 1, 1), EndDate: date(2024, 1, 31)}
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Evaluate(cfg, now)
	}
}
