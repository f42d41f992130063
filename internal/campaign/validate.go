package campaign

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string { return e.Field + ": " + e.Message }

// ValidationErrors is the list of problems Validate found. Out-of-range
// numbers are never reported here; they are clamped.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

// Validate turns raw admin input (decoded JSON or form values) into a
// Config. Numbers are coerced and clamped, unparseable dates are dropped.
// Date-only values are read as midnight in loc. The returned Config is
// usable even when errors are reported.
func Validate(raw map[string]any, loc *time.Location) (Config, ValidationErrors) {
	if loc == nil {
		loc = time.UTC
	}
	cfg := Defaults()
	var errs ValidationErrors

	if b, ok, bad := boolField(raw, "enabled"); bad {
		errs = append(errs, FieldError{Field: "enabled", Message: "must be a boolean"})
	} else if ok {
		cfg.Enabled = b
	}
	if b, ok, bad := boolField(raw, "allowOutsideClick"); bad {
		errs = append(errs, FieldError{Field: "allowOutsideClick", Message: "must be a boolean"})
	} else if ok {
		cfg.AllowOutsideClick = b
	}

	if s, bad := stringField(raw, "text"); bad {
		errs = append(errs, FieldError{Field: "text", Message: "must be a string"})
	} else {
		cfg.Text = s
	}
	if s, bad := stringField(raw, "media"); bad {
		errs = append(errs, FieldError{Field: "media", Message: "must be a string"})
	} else if s = strings.TrimSpace(s); s != "" {
		if _, err := ParseMedia(s); err != nil {
			errs = append(errs, FieldError{Field: "media", Message: err.Error()})
		}
		cfg.Media = s
	}

	if secs, ok := number(raw["closeButtonDelay"]); ok {
		cfg.CloseButtonDelay = secondsToDuration(math.Max(secs, 0))
	}
	if w, ok := number(raw["imageWidth"]); ok {
		cfg.ImageWidthPercent = clampInt(w, MinImageWidth, MaxImageWidth)
	}
	if f, ok := number(raw["fontSize"]); ok {
		cfg.FontSizePx = clampInt(f, MinFontSize, MaxFontSize)
	}

	cfg.StartDate = parseDate(raw["startDate"], loc)
	cfg.EndDate = parseDate(raw["endDate"], loc)
	if cfg.StartDate != nil && cfg.EndDate != nil {
		if cfg.StartDate.After(EffectiveEnd(*cfg.EndDate, loc)) {
			errs = append(errs, FieldError{Field: "endDate", Message: "must not be before startDate"})
		}
	}

	return cfg, errs
}

func boolField(raw map[string]any, key string) (val, ok, bad bool) {
	v, present := raw[key]
	if !present || v == nil {
		return false, false, false
	}
	switch b := v.(type) {
	case bool:
		return b, true, false
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return false, false, true
		}
		return parsed, true, false
	default:
		return false, false, true
	}
}

func stringField(raw map[string]any, key string) (string, bool) {
	v, present := raw[key]
	if !present || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", true
	}
	return s, false
}

// number accepts JSON numbers and numeric strings. NaN and infinities are
// rejected so callers fall back to the default.
func number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func clampInt(v float64, lo, hi int) int {
	return int(math.Round(math.Min(math.Max(v, float64(lo)), float64(hi))))
}

// secondsToDuration rounds to whole milliseconds so the stored value
// survives a float round trip unchanged. secs is capped at
// MaxCloseButtonDelay so the conversion cannot overflow.
func secondsToDuration(secs float64) time.Duration {
	if secs >= MaxCloseButtonDelay.Seconds() {
		return MaxCloseButtonDelay
	}
	return time.Duration(math.Round(secs*1000)) * time.Millisecond
}

var dateOnlyLayouts = []string{"2006-01-02", "2006-01-02T15:04", "2006-01-02T15:04:05"}

func parseDate(v any, loc *time.Location) *time.Time {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t = t.Truncate(time.Millisecond)
		return &t
	}
	for _, layout := range dateOnlyLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return &t
		}
	}
	return nil
}

// describe is used in log lines.
func (c Config) describe() string {
	return fmt.Sprintf("enabled=%t start=%s end=%s", c.Enabled, fmtDate(c.StartDate), fmtDate(c.EndDate))
}

func fmtDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(dateLayout)
}
