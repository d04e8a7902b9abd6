package clientmgr

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/snapdog/snapdog/internal/models"
	"github.com/snapdog/snapdog/internal/snapserver"
)

// connectParams is the payload carried by Client.OnConnect/OnDisconnect:
// the client's full Snapcast record plus the id of the group it currently
// belongs to.
type connectParams struct {
	ID      string            `json:"id"`
	GroupID string            `json:"group_id"`
	Client  models.SnapClient `json:"client"`
}

type volumeParams struct {
	ID     string              `json:"id"`
	Volume models.ClientVolume `json:"volume"`
}

type latencyParams struct {
	ID      string `json:"id"`
	Latency int    `json:"latency"`
}

type nameParams struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ApplyNotification folds a raw Snapcast client notification into both the
// repository mirror and this manager's own per-client state, publishing the
// matching domain notification when a configured client is affected. Events
// for clients with no configured counterpart only touch the mirror.
func (m *Manager) ApplyNotification(n snapserver.Notification) {
	switch n.Method {
	case snapserver.MethodClientOnConnect:
		var p connectParams
		if !decode(n, &p) {
			return
		}
		m.repo.UpsertClient(p.GroupID, p.Client)
		m.syncFromMirror(p.Client.ID)

	case snapserver.MethodClientOnDisconnect:
		var p connectParams
		if !decode(n, &p) {
			return
		}
		m.repo.UpdateClientConnection(p.ID, false, p.Client.LastSeen)
		m.syncFromMirror(p.ID)

	case snapserver.MethodClientOnVolumeChanged:
		var p volumeParams
		if !decode(n, &p) {
			return
		}
		m.repo.UpdateClientVolume(p.ID, p.Volume.Percent, p.Volume.Muted)
		m.syncFromMirror(p.ID)

	case snapserver.MethodClientOnLatencyChanged:
		var p latencyParams
		if !decode(n, &p) {
			return
		}
		m.repo.UpdateClientLatency(p.ID, p.Latency)
		m.syncFromMirror(p.ID)

	case snapserver.MethodClientOnNameChanged:
		var p nameParams
		if !decode(n, &p) {
			return
		}
		m.repo.UpdateClientName(p.ID, p.Name)
		m.syncFromMirror(p.ID)
	}
}

func decode(n snapserver.Notification, v interface{}) bool {
	if err := json.Unmarshal(n.Params, v); err != nil {
		slog.Warn("clientmgr: malformed notification params, dropping", "method", n.Method, "err", err)
		return false
	}
	return true
}

// syncFromMirror re-reads the repository's current record for the Snapcast
// client id and, if it belongs to a configured client, copies the fields
// Snapcast itself owns into that client's state and publishes the relevant
// change notifications. Volume/mute changes made locally via SetClientVolume
// round-trip through here too; comparing against the prior value keeps that
// idempotent rather than re-publishing on every echo.
func (m *Manager) syncFromMirror(snapID string) {
	clientIndex, st := m.GetClientBySnapcastID(snapID)
	if clientIndex == 0 {
		return
	}
	snapClient, ok := m.repo.GetClient(snapID)
	if !ok {
		return
	}

	cp := st.Clone()
	cp.SnapcastID = snapClient.ID
	cp.HostIPAddress = snapClient.Host.IP
	cp.HostName = snapClient.Host.Name
	cp.HostOS = snapClient.Host.OS
	cp.HostArch = snapClient.Host.Arch
	if snapClient.LastSeen > 0 {
		cp.LastSeenUTC = time.UnixMilli(snapClient.LastSeen)
	}

	connectionChanged := cp.Connected != snapClient.Connected
	volumeChanged := cp.Volume != snapClient.Config.Volume.Percent
	muteChanged := cp.Mute != snapClient.Config.Volume.Muted
	latencyChanged := cp.LatencyMs != snapClient.Config.Latency

	cp.Connected = snapClient.Connected
	cp.Volume = snapClient.Config.Volume.Percent
	cp.Mute = snapClient.Config.Volume.Muted
	cp.LatencyMs = snapClient.Config.Latency
	cp.ConfiguredSnapcastName = snapClient.Config.Name

	m.store.Set(clientIndex, cp)

	if connectionChanged {
		m.bus.Publish(m.factory.ClientConnectionChanged(clientIndex, cp.Connected))
	}
	if volumeChanged {
		m.bus.Publish(m.factory.ClientVolumeChanged(clientIndex, cp.Volume))
	}
	if muteChanged {
		m.bus.Publish(m.factory.ClientMuteChanged(clientIndex, cp.Mute))
	}
	if latencyChanged {
		m.bus.Publish(m.factory.ClientLatencyChanged(clientIndex, cp.LatencyMs))
	}
	m.bus.Publish(m.factory.ClientStateChanged(clientIndex, *cp))
}
