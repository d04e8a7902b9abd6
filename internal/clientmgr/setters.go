package clientmgr

import (
	"context"

	"github.com/snapdog/snapdog/internal/apperr"
	"github.com/snapdog/snapdog/internal/models"
	"github.com/snapdog/snapdog/internal/snapserver"
)

// resolveSnapcastID finds the live Snapcast client id for clientIndex via
// its configured MAC. Fails NotFound if the client isn't currently live in
// the mirror — setters require a live client.
func (m *Manager) resolveSnapcastID(i int) (string, error) {
	cfg := m.configs[i-1]
	snapClient, _, ok := m.repo.GetClientByIndex(models.NormalizeMAC(cfg.MAC))
	if !ok {
		return "", apperr.NotFoundf("clientmgr: client %d (%s) not currently live in snapcast", i, cfg.Name)
	}
	return snapClient.ID, nil
}

// SetClientVolume clamps v to 0..100, applies it via Client.SetVolume, and
// on success updates local state and publishes ClientVolumeChanged.
func (m *Manager) SetClientVolume(ctx context.Context, i int, v int) error {
	if !m.validIndex(i) {
		return apperr.InvalidArgumentf("clientmgr: client index %d out of range", i)
	}
	v = models.ClampVolume(v)

	unlock, err := m.lock(ctx, i)
	if err != nil {
		return err
	}
	defer unlock()

	snapID, err := m.resolveSnapcastID(i)
	if err != nil {
		return err
	}

	var result struct {
		Volume struct {
			Percent int  `json:"percent"`
			Muted   bool `json:"muted"`
		} `json:"volume"`
	}
	params := map[string]interface{}{
		"id": snapID,
		"volume": map[string]interface{}{
			"percent": v,
			"muted":   false,
		},
	}
	if err := m.transport.Request(ctx, snapserver.MethodClientSetVolume, params, &result); err != nil {
		return err
	}

	st, _ := m.store.Get(i)
	cp := st.Clone()
	cp.Volume = v
	m.store.Set(i, cp)
	m.bus.Publish(m.factory.ClientVolumeChanged(i, v))
	return nil
}

// SetClientMute applies mute via Client.SetVolume (mute is part of the
// volume object on the wire) and publishes ClientMuteChanged on success.
func (m *Manager) SetClientMute(ctx context.Context, i int, mute bool) error {
	if !m.validIndex(i) {
		return apperr.InvalidArgumentf("clientmgr: client index %d out of range", i)
	}

	unlock, err := m.lock(ctx, i)
	if err != nil {
		return err
	}
	defer unlock()

	snapID, err := m.resolveSnapcastID(i)
	if err != nil {
		return err
	}

	st, _ := m.store.Get(i)
	params := map[string]interface{}{
		"id": snapID,
		"volume": map[string]interface{}{
			"percent": st.Volume,
			"muted":   mute,
		},
	}
	if err := m.transport.Request(ctx, snapserver.MethodClientSetVolume, params, nil); err != nil {
		return err
	}

	cp := st.Clone()
	cp.Mute = mute
	m.store.Set(i, cp)
	m.bus.Publish(m.factory.ClientMuteChanged(i, mute))
	return nil
}

// SetClientLatency applies a latency change via Client.SetLatency and
// publishes ClientLatencyChanged on success.
func (m *Manager) SetClientLatency(ctx context.Context, i int, ms int) error {
	if !m.validIndex(i) {
		return apperr.InvalidArgumentf("clientmgr: client index %d out of range", i)
	}

	unlock, err := m.lock(ctx, i)
	if err != nil {
		return err
	}
	defer unlock()

	snapID, err := m.resolveSnapcastID(i)
	if err != nil {
		return err
	}

	params := map[string]interface{}{"id": snapID, "latency": ms}
	if err := m.transport.Request(ctx, snapserver.MethodClientSetLatency, params, nil); err != nil {
		return err
	}

	st, _ := m.store.Get(i)
	cp := st.Clone()
	cp.LatencyMs = ms
	m.store.Set(i, cp)
	m.bus.Publish(m.factory.ClientLatencyChanged(i, ms))
	return nil
}

// SetClientName applies a name change via Client.SetName and publishes
// ClientNameChanged on success. This sets the Snapcast-visible name, not
// the configured display name.
func (m *Manager) SetClientName(ctx context.Context, i int, name string) error {
	if !m.validIndex(i) {
		return apperr.InvalidArgumentf("clientmgr: client index %d out of range", i)
	}

	unlock, err := m.lock(ctx, i)
	if err != nil {
		return err
	}
	defer unlock()

	snapID, err := m.resolveSnapcastID(i)
	if err != nil {
		return err
	}

	params := map[string]interface{}{"id": snapID, "name": name}
	if err := m.transport.Request(ctx, snapserver.MethodClientSetName, params, nil); err != nil {
		return err
	}

	st, _ := m.store.Get(i)
	cp := st.Clone()
	cp.ConfiguredSnapcastName = name
	m.store.Set(i, cp)
	m.bus.Publish(m.factory.ClientNameChanged(i, name))
	return nil
}
