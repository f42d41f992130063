package listener

import (
	"context"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Refresher rebuilds in-memory state from storage.
type Refresher interface {
	BuildSnapshot(ctx context.Context) error
}

// Source hands out the pool and channel to LISTEN on.
type Source interface {
	PgxPool() *pgxpool.Pool
	ListenChannel() string
}

const debounce = 200 * time.Millisecond

// ListenAndRefresh rebuilds the engine snapshot whenever another instance
// writes the campaign. It reconnects with jittered backoff until ctx is done.
func ListenAndRefresh(ctx context.Context, src Source, eng Refresher, channel string, baseBackoff time.Duration) {
	if channel == "" {
		channel = src.ListenChannel()
	}
	for {
		err := listenOnce(ctx, src.PgxPool(), eng, channel)
		if ctx.Err() != nil {
			log.Info().Msg("listener stopped")
			return
		}
		backoff := jitter(baseBackoff)
		log.Error().Err(err).Dur("retry_in", backoff).Msg("listener disconnected")
		select {
		case <-ctx.Done():
			log.Info().Msg("listener stopped")
			return
		case <-time.After(backoff):
		}
	}
}

func listenOnce(ctx context.Context, pool *pgxpool.Pool, eng Refresher, channel string) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err = conn.Exec(ctx, `LISTEN "`+channel+`"`); err != nil {
		return err
	}
	log.Info().Str("channel", channel).Msg("listening for campaign changes")

	// Catch up on anything written while we were disconnected.
	refresh(ctx, eng, "reconnect")

	return follow(ctx, conn.Conn(), eng, debounce)
}

// notifier is the part of *pgx.Conn the follow loop uses.
type notifier interface {
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
}

// follow refreshes on every notification. Notifications arriving within
// window of the last refresh are coalesced into one trailing refresh when
// the window closes, so the last write is always picked up.
func follow(ctx context.Context, n notifier, eng Refresher, window time.Duration) error {
	var (
		last    time.Time
		pending bool
	)
	for {
		waitCtx, cancel := ctx, context.CancelFunc(func() {})
		if pending {
			waitCtx, cancel = context.WithDeadline(ctx, last.Add(window))
		}
		ntf, err := n.WaitForNotification(waitCtx)
		windowClosed := pending && ctx.Err() == nil && waitCtx.Err() == context.DeadlineExceeded
		cancel()

		if windowClosed {
			pending = false
			last = time.Now()
			refresh(ctx, eng, "trailing")
			continue
		}
		if err != nil {
			return err
		}
		if time.Since(last) < window {
			pending = true
			continue
		}
		pending = false
		last = time.Now()
		log.Info().Str("channel", ntf.Channel).Str("key", ntf.Payload).Msg("campaign changed; refreshing snapshot")
		refresh(ctx, eng, "notify")
	}
}

func refresh(ctx context.Context, eng Refresher, trigger string) {
	if err := eng.BuildSnapshot(ctx); err != nil {
		log.Error().Err(err).Str("trigger", trigger).Msg("refresh snapshot error")
	}
}

func jitter(base time.Duration) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	factor := 0.5 + rand.Float64() // 0.5x–1.5x
	return time.Duration(float64(base) * factor)
}
