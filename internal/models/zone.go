package models

import (
	"time"

	"github.com/snapdog/snapdog/internal/apperr"
)

// PlaybackState is the tri-state playback lifecycle of a zone.
type PlaybackState string

const (
	PlaybackStopped PlaybackState = "stopped"
	PlaybackPlaying PlaybackState = "playing"
	PlaybackPaused  PlaybackState = "paused"
)

// TrackInfo describes the track currently loaded into a zone, if any.
type TrackInfo struct {
	Source      string
	Index       int
	Title       string
	Artist      string
	Album       string
	URL         string
	DurationMs  int64
	PositionMs  int64
	Progress    float64
	IsPlaying   bool
	CoverURL    string
	Genre       string
	Year        int
	Rating      float64
}

// PlaylistInfo describes the playlist currently selected for a zone, if any.
type PlaylistInfo struct {
	Source     string
	Index      int
	PlaylistID string
	Name       string
	TrackCount int
}

// ZoneState is the mutable, in-memory record for one configured zone.
type ZoneState struct {
	Name  string
	Sink  string

	PlaybackState PlaybackState
	Volume        int
	Mute          bool

	TrackRepeat     bool
	PlaylistRepeat  bool
	PlaylistShuffle bool

	SnapcastGroupID  string
	SnapcastStreamID string

	Track    *TrackInfo
	Playlist *PlaylistInfo

	Clients map[int]struct{}

	TimestampUTC time.Time
}

// ClampVolume enforces the volume range invariant; callers must call this on
// every write, not just construction.
func ClampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Validate checks the invariants that must hold after any mutation.
func (z *ZoneState) Validate() error {
	if z.PlaybackState == PlaybackPlaying {
		if z.Track == nil || z.Track.URL == "" || z.Track.Source == "none" || z.Track.Source == "" {
			return apperr.FailedPreconditionf("zone %q: playing state requires a track with a non-empty url and source", z.Name)
		}
	}
	if z.Volume < 0 || z.Volume > 100 {
		return apperr.InvalidArgumentf("zone %q: volume %d out of range 0-100", z.Name, z.Volume)
	}
	return nil
}

// Clone returns a deep-enough copy for copy-on-write style updates: the
// Track/Playlist pointers and Clients set are duplicated so the original
// is never mutated through the returned value.
func (z *ZoneState) Clone() *ZoneState {
	cp := *z
	if z.Track != nil {
		t := *z.Track
		cp.Track = &t
	}
	if z.Playlist != nil {
		p := *z.Playlist
		cp.Playlist = &p
	}
	cp.Clients = make(map[int]struct{}, len(z.Clients))
	for k := range z.Clients {
		cp.Clients[k] = struct{}{}
	}
	return &cp
}
