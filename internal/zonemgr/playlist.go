package zonemgr

import (
	"context"

	"github.com/snapdog/snapdog/internal/apperr"
)

// SetPlaylist loads playlistIndex from source into zoneIndex and starts
// playback at its first track.
func (m *Manager) SetPlaylist(ctx context.Context, zoneIndex int, source string, playlistIndex int) error {
	if !m.validIndex(zoneIndex) {
		return apperr.InvalidArgumentf("zonemgr: zone index %d out of range", zoneIndex)
	}
	if m.playlist == nil {
		return apperr.Unavailablef("zonemgr: no playlist provider configured")
	}

	pl, err := m.playlist.GetPlaylist(ctx, source, playlistIndex)
	if err != nil {
		return err
	}

	unlock, err := m.lock(ctx, zoneIndex)
	if err != nil {
		return err
	}
	st, _ := m.store.Get(zoneIndex)
	cp := st.Clone()
	p := pl
	cp.Playlist = &p
	m.store.Set(zoneIndex, cp)
	unlock()

	m.bus.Publish(m.factory.ZonePlaylistChanged(zoneIndex, &p))

	if pl.TrackCount == 0 {
		return nil
	}
	track, err := m.playlist.GetTrack(ctx, source, playlistIndex, 0)
	if err != nil {
		return err
	}
	track.Index = 0
	track.Source = source
	return m.PlayTrack(ctx, zoneIndex, track)
}

// NextTrack advances to the next track in the zone's current playlist.
// There is no ceiling at this layer: past the last track, the Playlist
// Provider's NotFound propagates to the caller unchanged.
func (m *Manager) NextTrack(ctx context.Context, zoneIndex int) error {
	return m.stepTrack(ctx, zoneIndex, 1)
}

// PreviousTrack returns to the previous track in the zone's current
// playlist. It is floor-clamped at the first track: calling it there is a
// no-op rather than an error.
func (m *Manager) PreviousTrack(ctx context.Context, zoneIndex int) error {
	return m.stepTrack(ctx, zoneIndex, -1)
}

// SetTrack jumps directly to track index i within the zone's current
// playlist, resolving it via the Playlist Provider.
func (m *Manager) SetTrack(ctx context.Context, zoneIndex, i int) error {
	if !m.validIndex(zoneIndex) {
		return apperr.InvalidArgumentf("zonemgr: zone index %d out of range", zoneIndex)
	}
	if m.playlist == nil {
		return apperr.Unavailablef("zonemgr: no playlist provider configured")
	}

	st, err := m.GetZone(zoneIndex)
	if err != nil {
		return err
	}
	if st.Playlist == nil {
		return apperr.FailedPreconditionf("zonemgr: zone %d has no active playlist", zoneIndex)
	}

	track, err := m.playlist.GetTrack(ctx, st.Playlist.Source, st.Playlist.Index, i)
	if err != nil {
		return err
	}
	track.Index = i
	track.Source = st.Playlist.Source
	return m.PlayTrack(ctx, zoneIndex, track)
}

func (m *Manager) stepTrack(ctx context.Context, zoneIndex int, delta int) error {
	if !m.validIndex(zoneIndex) {
		return apperr.InvalidArgumentf("zonemgr: zone index %d out of range", zoneIndex)
	}
	if m.playlist == nil {
		return apperr.Unavailablef("zonemgr: no playlist provider configured")
	}

	st, err := m.GetZone(zoneIndex)
	if err != nil {
		return err
	}
	if st.Playlist == nil || st.Track == nil {
		return apperr.FailedPreconditionf("zonemgr: zone %d has no active playlist", zoneIndex)
	}

	next := st.Track.Index + delta
	if next < 0 {
		return nil
	}

	track, err := m.playlist.GetTrack(ctx, st.Playlist.Source, st.Playlist.Index, next)
	if err != nil {
		return err
	}
	track.Index = next
	track.Source = st.Playlist.Source
	return m.PlayTrack(ctx, zoneIndex, track)
}
