package campaign

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// KV is the key-value collaborator the campaign is persisted in.
type KV interface {
	// Get returns ok=false when key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Repository is the single-slot campaign store.
type Repository struct {
	kv     KV
	broker *Broker
	loc    *time.Location
	now    func() time.Time
}

// NewRepository wires kv to broker. broker may be nil when nobody listens.
func NewRepository(kv KV, broker *Broker, loc *time.Location) *Repository {
	if loc == nil {
		loc = time.UTC
	}
	return &Repository{kv: kv, broker: broker, loc: loc, now: time.Now}
}

// Load returns the stored campaign. ok is false when nothing is stored or
// the stored record is not valid JSON; the latter is logged, not returned.
func (r *Repository) Load(ctx context.Context) (Config, bool, error) {
	raw, ok, err := r.kv.Get(ctx, StorageKey)
	if err != nil {
		return Config{}, false, fmt.Errorf("load campaign: %w", err)
	}
	if !ok || raw == "" {
		return Config{}, false, nil
	}
	cfg, verrs, err := Decode([]byte(raw), r.loc)
	if err != nil {
		log.Warn().Err(err).Str("key", StorageKey).Msg("stored campaign is malformed; treating as unconfigured")
		return Config{}, false, nil
	}
	if len(verrs) > 0 {
		log.Warn().Err(verrs).Str("campaign", cfg.describe()).Msg("stored campaign has invalid fields")
	}
	return cfg, true, nil
}

// Save replaces the stored campaign and notifies subscribers.
func (r *Repository) Save(ctx context.Context, cfg Config) error {
	data, err := cfg.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode campaign: %w", err)
	}
	if err := r.kv.Set(ctx, StorageKey, string(data)); err != nil {
		return fmt.Errorf("save campaign: %w", err)
	}
	log.Info().Str("campaign", cfg.describe()).Msg("campaign saved")
	r.publish(Event{Kind: EventSaved, Config: cfg, At: r.now()})
	return nil
}

// Clear removes the stored campaign.
func (r *Repository) Clear(ctx context.Context) error {
	if err := r.kv.Delete(ctx, StorageKey); err != nil {
		return fmt.Errorf("clear campaign: %w", err)
	}
	log.Info().Msg("campaign cleared")
	r.publish(Event{Kind: EventCleared, At: r.now()})
	return nil
}

func (r *Repository) Location() *time.Location { return r.loc }

func (r *Repository) publish(ev Event) {
	if r.broker != nil {
		r.broker.Publish(ev)
	}
}
