package clientmgr

import (
	"context"

	"github.com/snapdog/snapdog/internal/apperr"
	"github.com/snapdog/snapdog/internal/models"
	"github.com/snapdog/snapdog/internal/snapserver"
)

// AssignClientToZone is the capability Zone Services call to move a client
// into a zone's Snapcast group, breaking the cyclic dependency a direct
// Zone<->Client reference would create: Zone Services depend on this
// interface, never the other way around.
//
// It is idempotent: re-issuing it with the same inputs yields no state
// change and no error.
func (m *Manager) AssignClientToZone(ctx context.Context, clientIndex, zoneIndex int) error {
	if !m.validIndex(clientIndex) {
		return apperr.InvalidArgumentf("clientmgr: client index %d out of range", clientIndex)
	}
	if zoneIndex < 1 || zoneIndex > len(m.zones) {
		return apperr.InvalidArgumentf("clientmgr: zone index %d out of range", zoneIndex)
	}

	unlock, err := m.lock(ctx, clientIndex)
	if err != nil {
		return err
	}
	defer unlock()

	cfg := m.configs[clientIndex-1]
	snapClient, currentGroupID, ok := m.repo.GetClientByIndex(models.NormalizeMAC(cfg.MAC))
	if !ok {
		return apperr.NotFoundf("clientmgr: client %d (%s) not currently live in snapcast", clientIndex, cfg.Name)
	}

	st, _ := m.store.Get(clientIndex)
	oldZone := st.ZoneIndex

	// The Client Manager's own record of zoneIndex is the source of truth
	// for idempotency: the repository's group mapping only catches up once
	// the server's own change notifications arrive, so comparing against it
	// here would make a repeated call with a stale mirror re-issue RPCs.
	if oldZone == zoneIndex {
		return nil
	}

	zone := m.zones[zoneIndex-1]
	targetStream := models.StreamIDFromSink(zone.Sink)

	targetGroupID, err := m.findOrCreateGroupForStream(ctx, targetStream)
	if err != nil {
		return err
	}

	if currentGroupID == targetGroupID {
		cp := st.Clone()
		cp.ZoneIndex = zoneIndex
		m.store.Set(clientIndex, cp)
		m.bus.Publish(m.factory.ClientZoneChanged(clientIndex, oldZone, zoneIndex))
		m.bus.Publish(m.factory.ClientStateChanged(clientIndex, *cp))
		return nil
	}

	params := map[string]interface{}{"id": snapClient.ID, "group_id": targetGroupID}
	if err := m.transport.Request(ctx, snapserver.MethodClientSetGroup, params, nil); err != nil {
		return err
	}

	cp := st.Clone()
	cp.ZoneIndex = zoneIndex
	m.store.Set(clientIndex, cp)

	m.bus.Publish(m.factory.ClientZoneChanged(clientIndex, oldZone, zoneIndex))
	m.bus.Publish(m.factory.ClientStateChanged(clientIndex, *cp))
	return nil
}

// findOrCreateGroupForStream returns the id of a group already streaming
// targetStream, or repurposes a streamless group, or as a last resort
// claims any existing group and points it at targetStream.
func (m *Manager) findOrCreateGroupForStream(ctx context.Context, targetStream string) (string, error) {
	groups := m.repo.GetAllGroups()

	for _, g := range groups {
		if g.StreamID == targetStream {
			return g.ID, nil
		}
	}

	var candidate *models.Group
	for i := range groups {
		if groups[i].StreamID == "" {
			candidate = &groups[i]
			break
		}
	}
	if candidate == nil && len(groups) > 0 {
		candidate = &groups[0]
	}
	if candidate == nil {
		return "", apperr.Unavailablef("clientmgr: no snapcast group available to bind stream %q", targetStream)
	}

	params := map[string]interface{}{"id": candidate.ID, "stream_id": targetStream}
	if err := m.transport.Request(ctx, snapserver.MethodGroupSetStream, params, nil); err != nil {
		return "", apperr.Unavailablef("clientmgr: Group.SetStream failed: %v", err)
	}
	m.repo.UpdateGroupStream(candidate.ID, targetStream)
	return candidate.ID, nil
}
