package snapserver

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/snapdog/snapdog/internal/models"
)

// SnapshotFunc is handed the full Server snapshot fetched immediately after
// every (re)connect. Notifications that arrive on the new connection before
// the snapshot is fetched are delivered to subscribers as they arrive; they
// are not held back until the snapshot has been handled.
type SnapshotFunc func(*models.Server)

// Run dials the server and keeps it connected, following the same
// restart-with-backoff shape the rest of the codebase uses for subprocess
// supervision: on disconnect it backs off exponentially (500ms initial,
// 30s cap, full jitter) and retries until ctx is cancelled.
func (t *Transport) Run(ctx context.Context, onSnapshot SnapshotFunc) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	b.RandomizationFactor = 1.0
	b.Multiplier = 2.0
	b.MaxElapsedTime = 0

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := t.connectOnce(ctx); err != nil {
			slog.Warn("snapserver: connect failed", "addr", t.addr, "err", err)
			if !t.waitBackoff(ctx, b.NextBackOff()) {
				return ctx.Err()
			}
			continue
		}

		var server models.Server
		reqCtx, cancel := context.WithTimeout(ctx, t.requestTimeout)
		err := t.Request(reqCtx, MethodServerGetStatus, nil, &struct {
			Server *models.Server `json:"server"`
		}{Server: &server})
		cancel()
		if err != nil {
			slog.Warn("snapserver: initial Server.GetStatus failed", "err", err)
			_ = t.Close()
			if !t.waitBackoff(ctx, b.NextBackOff()) {
				return ctx.Err()
			}
			continue
		}

		slog.Info("snapserver: connected", "addr", t.addr, "groups", len(server.Groups), "streams", len(server.Streams))
		b.Reset()
		if onSnapshot != nil {
			onSnapshot(&server)
		}

		t.connMu.RLock()
		disconnected := t.disconnectedCh
		t.connMu.RUnlock()

		select {
		case <-disconnected:
			slog.Warn("snapserver: disconnected, reconnecting", "addr", t.addr)
		case <-ctx.Done():
			_ = t.Close()
			return ctx.Err()
		}

		if !t.waitBackoff(ctx, b.NextBackOff()) {
			return ctx.Err()
		}
	}
}

func (t *Transport) waitBackoff(ctx context.Context, d time.Duration) bool {
	if d == backoff.Stop {
		d = 30 * time.Second
	}
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
