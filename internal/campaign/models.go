package campaign

import (
	"math"
	"time"
)

// StorageKey is the single well-known key the campaign record lives under.
const StorageKey = "promoData"

const (
	DefaultCloseButtonDelay = 15 * time.Second
	// MaxCloseButtonDelay is the longest delay a time.Duration can hold in
	// whole seconds. Larger inputs are capped to it.
	MaxCloseButtonDelay = time.Duration(math.MaxInt64/int64(time.Second)) * time.Second
	DefaultImageWidth       = 100
	DefaultFontSize         = 16

	MinImageWidth = 10
	MaxImageWidth = 100
	MinFontSize   = 8
	MaxFontSize   = 48
)

// Config is the one active promotional campaign. Dates are inclusive; a nil
// date leaves that side of the window unbounded.
type Config struct {
	Enabled   bool
	StartDate *time.Time
	EndDate   *time.Time
	Text      string
	// Media is an http(s) URL or a data: URI.
	Media string

	CloseButtonDelay  time.Duration
	AllowOutsideClick bool
	ImageWidthPercent int
	FontSizePx        int
}

// Defaults returns a disabled campaign with every display parameter at its default.
func Defaults() Config {
	return Config{
		CloseButtonDelay:  DefaultCloseButtonDelay,
		ImageWidthPercent: DefaultImageWidth,
		FontSizePx:        DefaultFontSize,
	}
}

// record is the stored JSON shape.
type record struct {
	Enabled           bool    `json:"enabled"`
	StartDate         string  `json:"startDate,omitempty"`
	EndDate           string  `json:"endDate,omitempty"`
	Text              string  `json:"text,omitempty"`
	Media             string  `json:"media,omitempty"`
	CloseButtonDelay  float64 `json:"closeButtonDelay"`
	AllowOutsideClick bool    `json:"allowOutsideClick"`
	ImageWidth        int     `json:"imageWidth"`
	FontSize          int     `json:"fontSize"`
}

// dateLayout is RFC 3339 at millisecond precision.
const dateLayout = "2006-01-02T15:04:05.000Z07:00"
