package zonemgr

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/snapdog/snapdog/internal/models"
	"github.com/snapdog/snapdog/internal/player"
)

// onPlayerEvent is the single entry point for the Media Player Supervisor's
// event stream, dispatched by kind.
func (m *Manager) onPlayerEvent(e player.Event) {
	if !m.validIndex(e.ZoneIndex) {
		return
	}
	switch e.Kind {
	case player.EventPlaybackStateChanged:
		m.onPlayerStateChanged(e)
	case player.EventPositionChanged:
		m.onPlayerPositionChanged(e)
	case player.EventTrackInfoChanged:
		m.onPlayerTrackInfoChanged(e)
	}
}

// onPlayerTrackInfoChanged replaces the zone's cached track metadata with
// what the player reports — e.g. stream metadata arriving mid-playback,
// after PlayTrack's own synchronous load already put a track in place.
func (m *Manager) onPlayerTrackInfoChanged(e player.Event) {
	if e.Track == nil {
		return
	}
	st, ok := m.store.Get(e.ZoneIndex)
	if !ok || st.Track == nil {
		return
	}
	cp := st.Clone()
	cp.Track.Title = e.Track.Title
	cp.Track.Artist = e.Track.Artist
	cp.Track.Album = e.Track.Album
	m.store.Set(e.ZoneIndex, cp)
	m.bus.Publish(m.factory.ZoneTrackMetadataChanged(e.ZoneIndex, cp.Track.Title, cp.Track.Artist, cp.Track.Album))
}

// onPlayerStateChanged reacts only to a supervisor giving up on its own —
// an explicit Pause/Stop already transitioned the zone's PlaybackState
// before telling the supervisor to stop, so this sees IsPlaying=false with
// the zone still recorded as Playing only in the unexpected case.
func (m *Manager) onPlayerStateChanged(e player.Event) {
	if e.IsPlaying {
		return
	}
	st, ok := m.store.Get(e.ZoneIndex)
	if !ok || st.PlaybackState != models.PlaybackPlaying {
		return
	}
	cp := st.Clone()
	cp.PlaybackState = models.PlaybackStopped
	cp.Track = nil
	m.store.Set(e.ZoneIndex, cp)
	m.stopPump(e.ZoneIndex)
	m.bus.Publish(m.factory.ZonePlaybackChanged(e.ZoneIndex, models.PlaybackStopped))
	m.bus.Publish(m.factory.ZoneTrackPlayingStatusChanged(e.ZoneIndex, false))
}

// onPlayerPositionChanged keeps the cached track position current after a
// seek; the periodic pump covers continuous progress while playing.
func (m *Manager) onPlayerPositionChanged(e player.Event) {
	st, ok := m.store.Get(e.ZoneIndex)
	if !ok || st.Track == nil {
		return
	}
	cp := st.Clone()
	cp.Track.PositionMs = e.PositionMs
	cp.Track.DurationMs = e.DurationMs
	m.store.Set(e.ZoneIndex, cp)
	m.bus.Publish(m.factory.ZoneTrackProgressChanged(e.ZoneIndex, e.PositionMs, e.DurationMs))
}

// startPump begins periodic ZoneProgressChanged notifications for
// zoneIndex while it is playing. A second call while one is already
// running is a no-op.
func (m *Manager) startPump(zoneIndex int) {
	m.pumpMu.Lock()
	defer m.pumpMu.Unlock()
	if _, exists := m.pumps[zoneIndex]; exists {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.pumps[zoneIndex] = cancel
	go m.runPump(ctx, zoneIndex)
}

// stopPump cancels zoneIndex's progress pump, if running.
func (m *Manager) stopPump(zoneIndex int) {
	m.pumpMu.Lock()
	cancel, exists := m.pumps[zoneIndex]
	if exists {
		delete(m.pumps, zoneIndex)
	}
	m.pumpMu.Unlock()
	if exists {
		cancel()
	}
}

func (m *Manager) runPump(ctx context.Context, zoneIndex int) {
	limiter := rate.NewLimiter(rate.Every(m.pumpStep), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		st, ok := m.store.Get(zoneIndex)
		if !ok || st.PlaybackState != models.PlaybackPlaying {
			return
		}
		status := m.player.GetStatus(zoneIndex)
		if status.CurrentTrack == nil {
			continue
		}
		cp := st.Clone()
		cp.Track.PositionMs = status.CurrentTrack.PositionMs
		cp.Track.Progress = status.CurrentTrack.Progress
		m.store.Set(zoneIndex, cp)
		m.bus.Publish(m.factory.ZoneProgressChanged(zoneIndex, cp.Track.PositionMs, cp.Track.Progress))
	}
}
