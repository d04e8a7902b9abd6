package zonemgr

import (
	"context"

	"github.com/snapdog/snapdog/internal/apperr"
)

// AssignClient moves clientIndex into zoneIndex via the ClientAssigner
// capability, then updates this zone's own Clients mirror. The client
// manager's ClientState.ZoneIndex remains the authoritative record; the
// per-zone Clients set here only exists so a zone's own state carries its
// current membership for display without a second lookup.
func (m *Manager) AssignClient(ctx context.Context, zoneIndex, clientIndex int) error {
	if !m.validIndex(zoneIndex) {
		return apperr.InvalidArgumentf("zonemgr: zone index %d out of range", zoneIndex)
	}

	unlock, err := m.lock(ctx, zoneIndex)
	if err != nil {
		return err
	}
	defer unlock()

	if err := m.assigner.AssignClientToZone(ctx, clientIndex, zoneIndex); err != nil {
		return err
	}

	for i := 1; i <= len(m.configs); i++ {
		if i == zoneIndex {
			continue
		}
		other, ok := m.store.Get(i)
		if !ok {
			continue
		}
		if _, present := other.Clients[clientIndex]; present {
			cp := other.Clone()
			delete(cp.Clients, clientIndex)
			m.store.Set(i, cp)
		}
	}

	st, _ := m.store.Get(zoneIndex)
	cp := st.Clone()
	cp.Clients[clientIndex] = struct{}{}
	m.store.Set(zoneIndex, cp)
	return nil
}
