package campaign

import "github.com/rs/zerolog/log"

// View is what the client needs to draw the modal.
type View struct {
	Text              string  `json:"text,omitempty"`
	Media             *Media  `json:"media,omitempty"`
	MediaError        string  `json:"mediaError,omitempty"`
	ImageWidthPercent int     `json:"imageWidth"`
	FontSizePx        int     `json:"fontSize"`
	CloseButtonDelay  float64 `json:"closeButtonDelay"`
	AllowOutsideClick bool    `json:"allowOutsideClick"`
}

// Render builds the view for cfg. Broken media never fails the render:
// the view falls back to text only and carries the reason.
func Render(cfg Config) View {
	v := View{
		Text:              cfg.Text,
		ImageWidthPercent: cfg.ImageWidthPercent,
		FontSizePx:        cfg.FontSizePx,
		CloseButtonDelay:  cfg.CloseButtonDelay.Seconds(),
		AllowOutsideClick: cfg.AllowOutsideClick,
	}
	if cfg.Media == "" {
		return v
	}
	m, err := ParseMedia(cfg.Media)
	if err != nil {
		log.Warn().Err(err).Msg("promo media unusable; rendering text only")
		v.MediaError = err.Error()
		return v
	}
	v.Media = &m
	return v
}

// HasContent reports whether the view would draw anything.
func (v View) HasContent() bool {
	return v.Text != "" || v.Media != nil
}
