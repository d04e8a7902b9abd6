package zonemgr

import (
	"context"

	"github.com/snapdog/snapdog/internal/models"
)

// ClientAssigner is the narrow capability the Zone Manager uses to move a
// client into a zone's Snapcast group. It is satisfied structurally by
// *clientmgr.Manager; this package never imports clientmgr directly, which
// is what breaks the cyclic Zone<->Client dependency.
type ClientAssigner interface {
	AssignClientToZone(ctx context.Context, clientIndex, zoneIndex int) error
}

// VolumeScaler is the narrow capability the Zone Manager uses to realize a
// zone-level volume change across that zone's clients. Satisfied
// structurally by *clientmgr.Manager.
type VolumeScaler interface {
	ScaleZoneVolume(ctx context.Context, zoneIndex, targetVolume int) error
}

// PlaylistProvider resolves playlist/track lookups for playlist-driven
// playback and track/playlist navigation. The default implementation lives
// in internal/playlist; tests substitute a fake.
type PlaylistProvider interface {
	GetTrack(ctx context.Context, source string, playlistIndex, trackIndex int) (models.TrackInfo, error)
	GetPlaylist(ctx context.Context, source string, playlistIndex int) (models.PlaylistInfo, error)
	TrackCount(ctx context.Context, source string, playlistIndex int) (int, error)
}
