package campaign

import "time"

// Reason explains a visibility decision.
type Reason string

const (
	ReasonUnconfigured Reason = "unconfigured"
	ReasonDisabled     Reason = "disabled"
	ReasonNotStarted   Reason = "not_started"
	ReasonEnded        Reason = "ended"
	ReasonActive       Reason = "active"
)

type Decision struct {
	Display bool   `json:"display"`
	Reason  Reason `json:"reason"`
}

// EffectiveEnd is the last millisecond of end's calendar day in loc.
func EffectiveEnd(end time.Time, loc *time.Location) time.Time {
	y, m, d := end.In(loc).Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), loc)
}

// Evaluate decides whether cfg should be shown at now. The end date is
// widened to the end of its day in now's location. A window whose start
// lies after its effective end can never be active.
func Evaluate(cfg Config, now time.Time) Decision {
	if !cfg.Enabled {
		return Decision{Reason: ReasonDisabled}
	}
	if cfg.StartDate != nil && now.Before(*cfg.StartDate) {
		return Decision{Reason: ReasonNotStarted}
	}
	if cfg.EndDate != nil && now.After(EffectiveEnd(*cfg.EndDate, now.Location())) {
		return Decision{Reason: ReasonEnded}
	}
	return Decision{Display: true, Reason: ReasonActive}
}

// ShouldDisplay reports whether cfg is visible at now.
func ShouldDisplay(cfg Config, now time.Time) bool {
	return Evaluate(cfg, now).Display
}
