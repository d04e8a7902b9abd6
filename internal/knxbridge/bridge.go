// Package knxbridge is the integration point for pushing zone/client state
// onto a KNX bus. No KNX library exists anywhere in this codebase's
// dependency corpus, so this is a narrow interface plus a logging-only
// stub: GroupWriter is the seam a real KNX stack (e.g. a knx-go client)
// would satisfy once one is vendored.
package knxbridge

import (
	"context"
	"log/slog"

	"github.com/snapdog/snapdog/internal/models"
)

// GroupWriter writes a single value to a KNX group address. The Bridge
// translates notifications into GroupWriter calls; a real implementation
// would own a KNX/IP tunnel or router connection.
type GroupWriter interface {
	WriteGroupValue(ctx context.Context, groupAddress string, value []byte) error
}

// AddressMap resolves an entity index + attribute kind to the KNX group
// address it should be mirrored onto. Entries absent from the map are
// silently skipped — not every attribute needs a KNX binding.
type AddressMap map[models.NotificationKind]map[int]string

// Bridge mirrors selected notifications onto a KNX bus via GroupWriter.
type Bridge struct {
	writer    GroupWriter
	addresses AddressMap
}

// New returns a Bridge that writes to writer using addresses to resolve
// group addresses.
func New(writer GroupWriter, addresses AddressMap) *Bridge {
	return &Bridge{writer: writer, addresses: addresses}
}

// Run consumes notifications from ch until it is closed, writing any that
// resolve to a configured group address.
func (b *Bridge) Run(ctx context.Context, ch <-chan models.Notification) {
	for n := range ch {
		addr, value, ok := b.resolve(n)
		if !ok {
			continue
		}
		if err := b.writer.WriteGroupValue(ctx, addr, value); err != nil {
			slog.Error("knxbridge: group write failed", "address", addr, "err", err)
		}
	}
}

func (b *Bridge) resolve(n models.Notification) (string, []byte, bool) {
	byIndex, ok := b.addresses[n.Kind]
	if !ok {
		return "", nil, false
	}

	switch n.Kind {
	case models.NotifyZoneVolumeChanged:
		addr, ok := byIndex[n.ZoneVolume.ZoneIndex]
		return addr, []byte{byte(n.ZoneVolume.Volume)}, ok
	case models.NotifyZoneMuteChanged:
		addr, ok := byIndex[n.ZoneMute.ZoneIndex]
		return addr, boolByte(n.ZoneMute.Mute), ok
	case models.NotifyZonePlaybackChanged:
		addr, ok := byIndex[n.ZonePlayback.ZoneIndex]
		return addr, boolByte(n.ZonePlayback.State == models.PlaybackPlaying), ok
	case models.NotifyClientConnectionChanged:
		addr, ok := byIndex[n.ClientConnection.ClientIndex]
		return addr, boolByte(n.ClientConnection.Connected), ok
	default:
		return "", nil, false
	}
}

func boolByte(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

// LoggingWriter is a GroupWriter stand-in that only logs, for environments
// with no KNX gateway configured.
type LoggingWriter struct{}

func (LoggingWriter) WriteGroupValue(_ context.Context, groupAddress string, value []byte) error {
	slog.Info("knxbridge: group write (no gateway configured)", "address", groupAddress, "value", value)
	return nil
}
