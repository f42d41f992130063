package campaign

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// MarshalJSON writes the stored record shape. Dates are UTC RFC 3339 with
// milliseconds.
func (c Config) MarshalJSON() ([]byte, error) {
	r := record{
		Enabled:           c.Enabled,
		Text:              c.Text,
		Media:             c.Media,
		CloseButtonDelay:  c.CloseButtonDelay.Seconds(),
		AllowOutsideClick: c.AllowOutsideClick,
		ImageWidth:        c.ImageWidthPercent,
		FontSize:          c.FontSizePx,
	}
	if c.StartDate != nil {
		r.StartDate = c.StartDate.UTC().Format(dateLayout)
	}
	if c.EndDate != nil {
		r.EndDate = c.EndDate.UTC().Format(dateLayout)
	}
	return json.Marshal(r)
}

// Decode parses a stored or submitted record and runs it through Validate,
// so clamping is identical on both paths. The error is only set when data
// is not a JSON object.
func Decode(data []byte, loc *time.Location) (Config, ValidationErrors, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return Config{}, nil, fmt.Errorf("decode campaign record: %w", err)
	}
	if raw == nil {
		return Config{}, nil, fmt.Errorf("decode campaign record: not an object")
	}
	cfg, errs := Validate(raw, loc)
	return cfg, errs, nil
}
