// Package player implements the Media Player Supervisor: one logical
// player per zone that writes PCM into that zone's sink, backed by an
// external subprocess and supervised with the same restart/backoff shape
// used elsewhere in this codebase for subprocess lifecycle management.
package player

import "github.com/snapdog/snapdog/internal/models"

// EventKind tags the concrete payload of an Event.
type EventKind string

const (
	EventPositionChanged      EventKind = "position_changed"
	EventPlaybackStateChanged EventKind = "playback_state_changed"
	EventTrackInfoChanged     EventKind = "track_info_changed"
)

// Event is delivered on the player's callback goroutine; subscribers must
// not block it.
type Event struct {
	ZoneIndex int
	Kind      EventKind

	PositionMs int64
	Progress   float64
	DurationMs int64

	IsPlaying bool
	State     models.PlaybackState

	Track *models.TrackInfo
}

// Status is the point-in-time snapshot returned by GetStatus/GetAllStatus.
type Status struct {
	IsPlaying    bool
	CurrentTrack *models.TrackInfo
}

// Statistics summarizes the supervisor fleet for diagnostics.
type Statistics struct {
	ActiveZones int
	TotalStarts int64
	TotalFails  int64
}
