package zonemgr

import (
	"context"

	"github.com/snapdog/snapdog/internal/apperr"
	"github.com/snapdog/snapdog/internal/models"
	"github.com/snapdog/snapdog/internal/snapserver"
)

// SetVolume realizes a zone volume change by proportionally scaling every
// client currently assigned to zoneIndex (via the VolumeScaler capability),
// then records the zone's own target volume.
func (m *Manager) SetVolume(ctx context.Context, zoneIndex, volume int) error {
	if !m.validIndex(zoneIndex) {
		return apperr.InvalidArgumentf("zonemgr: zone index %d out of range", zoneIndex)
	}
	volume = models.ClampVolume(volume)

	unlock, err := m.lock(ctx, zoneIndex)
	if err != nil {
		return err
	}
	defer unlock()

	if err := m.scaler.ScaleZoneVolume(ctx, zoneIndex, volume); err != nil {
		return err
	}

	st, _ := m.store.Get(zoneIndex)
	cp := st.Clone()
	cp.Volume = volume
	m.store.Set(zoneIndex, cp)
	m.bus.Publish(m.factory.ZoneVolumeChanged(zoneIndex, volume))
	return nil
}

// VolumeUp raises the zone's volume by step, clamped to 0..100.
func (m *Manager) VolumeUp(ctx context.Context, zoneIndex, step int) error {
	st, err := m.GetZone(zoneIndex)
	if err != nil {
		return err
	}
	return m.SetVolume(ctx, zoneIndex, st.Volume+step)
}

// VolumeDown lowers the zone's volume by step, clamped to 0..100.
func (m *Manager) VolumeDown(ctx context.Context, zoneIndex, step int) error {
	st, err := m.GetZone(zoneIndex)
	if err != nil {
		return err
	}
	return m.SetVolume(ctx, zoneIndex, st.Volume-step)
}

// SetMute mutes or unmutes the zone. A zone can be mute-toggled before any
// client is ever assigned to it — in that case there's no bound Snapcast
// group yet, so the RPC is skipped and only local state is updated. Binding
// a group later (ReconcileGroups) does not send this mute state to it.
func (m *Manager) SetMute(ctx context.Context, zoneIndex int, mute bool) error {
	if !m.validIndex(zoneIndex) {
		return apperr.InvalidArgumentf("zonemgr: zone index %d out of range", zoneIndex)
	}

	unlock, err := m.lock(ctx, zoneIndex)
	if err != nil {
		return err
	}
	defer unlock()

	st, _ := m.store.Get(zoneIndex)
	if st.SnapcastGroupID != "" {
		params := map[string]interface{}{"id": st.SnapcastGroupID, "mute": mute}
		if err := m.transport.Request(ctx, snapserver.MethodGroupSetMute, params, nil); err != nil {
			return err
		}
		m.repo.UpdateGroupMute(st.SnapcastGroupID, mute)
	}

	cp := st.Clone()
	cp.Mute = mute
	m.store.Set(zoneIndex, cp)
	m.bus.Publish(m.factory.ZoneMuteChanged(zoneIndex, mute))
	return nil
}

// ToggleMute flips the zone's current mute state.
func (m *Manager) ToggleMute(ctx context.Context, zoneIndex int) error {
	st, err := m.GetZone(zoneIndex)
	if err != nil {
		return err
	}
	return m.SetMute(ctx, zoneIndex, !st.Mute)
}
