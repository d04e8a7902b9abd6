package zonemgr

import (
	"context"

	"github.com/snapdog/snapdog/internal/apperr"
)

// SetTrackRepeat toggles single-track repeat for zoneIndex. A pure state
// toggle: it has no Snapcast or player RPC side effect.
func (m *Manager) SetTrackRepeat(ctx context.Context, zoneIndex int, repeat bool) error {
	if !m.validIndex(zoneIndex) {
		return apperr.InvalidArgumentf("zonemgr: zone index %d out of range", zoneIndex)
	}
	unlock, err := m.lock(ctx, zoneIndex)
	if err != nil {
		return err
	}
	defer unlock()

	st, _ := m.store.Get(zoneIndex)
	cp := st.Clone()
	cp.TrackRepeat = repeat
	m.store.Set(zoneIndex, cp)
	return nil
}

// SetPlaylistRepeat toggles whole-playlist repeat for zoneIndex.
func (m *Manager) SetPlaylistRepeat(ctx context.Context, zoneIndex int, repeat bool) error {
	if !m.validIndex(zoneIndex) {
		return apperr.InvalidArgumentf("zonemgr: zone index %d out of range", zoneIndex)
	}
	unlock, err := m.lock(ctx, zoneIndex)
	if err != nil {
		return err
	}
	defer unlock()

	st, _ := m.store.Get(zoneIndex)
	cp := st.Clone()
	cp.PlaylistRepeat = repeat
	m.store.Set(zoneIndex, cp)
	return nil
}

// SetPlaylistShuffle toggles playlist shuffle for zoneIndex.
func (m *Manager) SetPlaylistShuffle(ctx context.Context, zoneIndex int, shuffle bool) error {
	if !m.validIndex(zoneIndex) {
		return apperr.InvalidArgumentf("zonemgr: zone index %d out of range", zoneIndex)
	}
	unlock, err := m.lock(ctx, zoneIndex)
	if err != nil {
		return err
	}
	defer unlock()

	st, _ := m.store.Get(zoneIndex)
	cp := st.Clone()
	cp.PlaylistShuffle = shuffle
	m.store.Set(zoneIndex, cp)
	return nil
}
