package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"promo-engine/internal/cache"
	"promo-engine/internal/campaign"
	"promo-engine/internal/clock"
	"promo-engine/internal/observability"
)

// Loader reads the stored campaign.
type Loader interface {
	Load(ctx context.Context) (campaign.Config, bool, error)
}

type snapshot struct {
	cfg        campaign.Config
	configured bool
	loadedAt   time.Time
}

// Engine serves visibility decisions from an in-memory copy of the
// campaign. Reads are lock-free; the copy is replaced on every change.
type Engine struct {
	loader Loader
	clk    clock.Clock
	loc    *time.Location
	snap   cache.Snapshot[snapshot]
}

func NewEngine(loader Loader, clk clock.Clock, loc *time.Location) *Engine {
	if clk == nil {
		clk = clock.Real{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{loader: loader, clk: clk, loc: loc}
}

// BuildSnapshot reloads the campaign from storage.
func (e *Engine) BuildSnapshot(ctx context.Context) error {
	cfg, ok, err := e.loader.Load(ctx)
	if err != nil {
		return err
	}
	e.store(cfg, ok, "load")
	return nil
}

// Watch keeps the snapshot in step with broker events. The returned
// function stops watching.
func (e *Engine) Watch(b *campaign.Broker) (stop func()) {
	return b.Subscribe(func(ev campaign.Event) {
		switch ev.Kind {
		case campaign.EventSaved:
			e.store(ev.Config, true, "event")
		case campaign.EventCleared:
			e.store(campaign.Config{}, false, "event")
		}
	})
}

func (e *Engine) store(cfg campaign.Config, configured bool, trigger string) {
	e.snap.Store(snapshot{cfg: cfg, configured: configured, loadedAt: e.clk.Now()})
	observability.SnapshotRefreshes.WithLabelValues(trigger).Inc()
	log.Debug().Bool("configured", configured).Bool("enabled", cfg.Enabled).Str("trigger", trigger).Msg("campaign snapshot updated")
}

// Now is the current time in the engine's location.
func (e *Engine) Now() time.Time { return e.clk.Now().In(e.loc) }

func (e *Engine) Location() *time.Location { return e.loc }

func (e *Engine) Clock() clock.Clock { return e.clk }

// Current returns the campaign as of the last refresh.
func (e *Engine) Current() (campaign.Config, bool) {
	s, ok := e.snap.Load()
	if !ok || !s.configured {
		return campaign.Config{}, false
	}
	return s.cfg, true
}

// Decide evaluates the current campaign at now. The decision itself is
// never cached.
func (e *Engine) Decide(now time.Time) campaign.Decision {
	cfg, ok := e.Current()
	return e.decide(cfg, ok, now)
}

func (e *Engine) decide(cfg campaign.Config, configured bool, now time.Time) campaign.Decision {
	d := campaign.Decision{Reason: campaign.ReasonUnconfigured}
	if configured {
		d = campaign.Evaluate(cfg, now.In(e.loc))
	}
	observability.Decisions.WithLabelValues(string(d.Reason)).Inc()
	return d
}

// Presentation is a decision plus, when displayed, what to draw.
type Presentation struct {
	Decision campaign.Decision `json:"decision"`
	View     *campaign.View    `json:"view,omitempty"`
}

func (e *Engine) Present(now time.Time) Presentation {
	cfg, ok := e.Current()
	d := e.decide(cfg, ok, now)
	if !d.Display {
		return Presentation{Decision: d}
	}
	v := render(cfg)
	return Presentation{Decision: d, View: &v}
}

func render(cfg campaign.Config) campaign.View {
	v := campaign.Render(cfg)
	if v.MediaError != "" {
		observability.MediaFailures.Inc()
	}
	return v
}
