package zonemgr

import (
	"context"

	"github.com/snapdog/snapdog/internal/apperr"
	"github.com/snapdog/snapdog/internal/models"
)

// PlayTrack loads track and starts (or resumes) playback in zoneIndex.
// Playing an already-playing zone with the same track URL is a no-op.
func (m *Manager) PlayTrack(ctx context.Context, zoneIndex int, track models.TrackInfo) error {
	if !m.validIndex(zoneIndex) {
		return apperr.InvalidArgumentf("zonemgr: zone index %d out of range", zoneIndex)
	}
	if track.URL == "" {
		return apperr.InvalidArgumentf("zonemgr: track has no url")
	}

	unlock, err := m.lock(ctx, zoneIndex)
	if err != nil {
		return err
	}
	defer unlock()

	st, _ := m.store.Get(zoneIndex)
	if st.PlaybackState == models.PlaybackPlaying && st.Track != nil && st.Track.URL == track.URL {
		return nil
	}

	if err := m.player.Play(ctx, zoneIndex, track, st.Sink); err != nil {
		return err
	}

	cp := st.Clone()
	cp.PlaybackState = models.PlaybackPlaying
	t := track
	cp.Track = &t
	if err := cp.Validate(); err != nil {
		return err
	}
	m.store.Set(zoneIndex, cp)

	m.bus.Publish(m.factory.ZonePlaybackChanged(zoneIndex, models.PlaybackPlaying))
	m.bus.Publish(m.factory.ZoneTrackChanged(zoneIndex, &t))
	m.startPump(zoneIndex)
	return nil
}

// PlayURL is a convenience wrapper for PlayTrack for ad-hoc URL playback
// that carries no catalog metadata.
func (m *Manager) PlayURL(ctx context.Context, zoneIndex int, url string) error {
	return m.PlayTrack(ctx, zoneIndex, models.TrackInfo{Source: "url", URL: url})
}

// Play resumes playback of the zone's current track. FailedPrecondition if
// no track is loaded.
func (m *Manager) Play(ctx context.Context, zoneIndex int) error {
	if !m.validIndex(zoneIndex) {
		return apperr.InvalidArgumentf("zonemgr: zone index %d out of range", zoneIndex)
	}

	unlock, err := m.lock(ctx, zoneIndex)
	if err != nil {
		return err
	}

	st, _ := m.store.Get(zoneIndex)
	if st.Track == nil {
		unlock()
		return apperr.FailedPreconditionf("zonemgr: zone %d has no track loaded", zoneIndex)
	}
	if st.PlaybackState == models.PlaybackPlaying {
		unlock()
		return nil
	}
	track := *st.Track
	unlock()

	return m.PlayTrack(ctx, zoneIndex, track)
}

// Pause stops playback but keeps the current track and position.
func (m *Manager) Pause(ctx context.Context, zoneIndex int) error {
	if !m.validIndex(zoneIndex) {
		return apperr.InvalidArgumentf("zonemgr: zone index %d out of range", zoneIndex)
	}

	unlock, err := m.lock(ctx, zoneIndex)
	if err != nil {
		return err
	}
	defer unlock()

	st, _ := m.store.Get(zoneIndex)
	if st.PlaybackState != models.PlaybackPlaying {
		return nil
	}

	if err := m.player.Pause(zoneIndex); err != nil {
		return err
	}

	cp := st.Clone()
	cp.PlaybackState = models.PlaybackPaused
	if cp.Track != nil {
		ps := m.player.GetStatus(zoneIndex)
		if ps.CurrentTrack != nil {
			cp.Track.PositionMs = ps.CurrentTrack.PositionMs
		}
	}
	m.store.Set(zoneIndex, cp)
	m.bus.Publish(m.factory.ZonePlaybackChanged(zoneIndex, models.PlaybackPaused))
	m.stopPump(zoneIndex)
	return nil
}

// Stop halts playback and clears the loaded track. Stop after Stop is a
// no-op.
func (m *Manager) Stop(ctx context.Context, zoneIndex int) error {
	if !m.validIndex(zoneIndex) {
		return apperr.InvalidArgumentf("zonemgr: zone index %d out of range", zoneIndex)
	}

	unlock, err := m.lock(ctx, zoneIndex)
	if err != nil {
		return err
	}
	defer unlock()

	st, _ := m.store.Get(zoneIndex)
	if st.PlaybackState == models.PlaybackStopped && st.Track == nil {
		return nil
	}

	if err := m.player.Stop(zoneIndex); err != nil {
		return err
	}

	cp := st.Clone()
	cp.PlaybackState = models.PlaybackStopped
	cp.Track = nil
	m.store.Set(zoneIndex, cp)
	m.bus.Publish(m.factory.ZonePlaybackChanged(zoneIndex, models.PlaybackStopped))
	m.stopPump(zoneIndex)
	return nil
}

// SeekToPositionMs seeks the zone's current track to ms, clamped to
// [0, duration].
func (m *Manager) SeekToPositionMs(ctx context.Context, zoneIndex int, ms int64) error {
	if !m.validIndex(zoneIndex) {
		return apperr.InvalidArgumentf("zonemgr: zone index %d out of range", zoneIndex)
	}

	unlock, err := m.lock(ctx, zoneIndex)
	if err != nil {
		return err
	}
	defer unlock()

	st, _ := m.store.Get(zoneIndex)
	if st.Track == nil {
		return apperr.FailedPreconditionf("zonemgr: zone %d has no track loaded", zoneIndex)
	}

	if err := m.player.SeekToPositionMs(ctx, zoneIndex, ms, st.Sink); err != nil {
		return err
	}

	ps := m.player.GetStatus(zoneIndex)
	cp := st.Clone()
	if ps.CurrentTrack != nil {
		cp.Track.PositionMs = ps.CurrentTrack.PositionMs
		cp.Track.Progress = ps.CurrentTrack.Progress
	}
	m.store.Set(zoneIndex, cp)
	m.bus.Publish(m.factory.ZoneProgressChanged(zoneIndex, cp.Track.PositionMs, cp.Track.Progress))
	return nil
}

// SeekToProgress seeks the zone's current track to fraction (0..1) of its
// duration.
func (m *Manager) SeekToProgress(ctx context.Context, zoneIndex int, fraction float64) error {
	if !m.validIndex(zoneIndex) {
		return apperr.InvalidArgumentf("zonemgr: zone index %d out of range", zoneIndex)
	}

	st, err := m.GetZone(zoneIndex)
	if err != nil {
		return err
	}
	if st.Track == nil {
		return apperr.FailedPreconditionf("zonemgr: zone %d has no track loaded", zoneIndex)
	}
	ms := int64(fraction * float64(st.Track.DurationMs))
	return m.SeekToPositionMs(ctx, zoneIndex, ms)
}
