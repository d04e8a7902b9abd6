package zonemgr

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/snapdog/snapdog/internal/models"
	"github.com/snapdog/snapdog/internal/snapserver"
)

type groupMuteParams struct {
	ID   string `json:"id"`
	Mute bool   `json:"mute"`
}

type groupStreamParams struct {
	ID       string `json:"id"`
	StreamID string `json:"stream_id"`
}

type groupNameParams struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type streamUpdateParams struct {
	ID     string        `json:"id"`
	Stream models.Stream `json:"stream"`
}

type serverUpdateParams struct {
	Server models.Server `json:"server"`
}

// ApplyNotification folds a raw Snapcast group/stream/server notification
// into the repository mirror and, where it bears on a configured zone,
// into this manager's own zone state.
func (m *Manager) ApplyNotification(n snapserver.Notification) {
	switch n.Method {
	case snapserver.MethodGroupOnMute:
		var p groupMuteParams
		if !decode(n, &p) {
			return
		}
		m.repo.UpdateGroupMute(p.ID, p.Mute)
		m.syncGroupMute(p.ID, p.Mute)

	case snapserver.MethodGroupOnStreamChanged:
		var p groupStreamParams
		if !decode(n, &p) {
			return
		}
		m.repo.UpdateGroupStream(p.ID, p.StreamID)
		m.ReconcileGroups(context.Background())

	case snapserver.MethodGroupOnNameChanged:
		var p groupNameParams
		if !decode(n, &p) {
			return
		}
		m.repo.UpdateGroupName(p.ID, p.Name)

	case snapserver.MethodStreamOnUpdate:
		var p streamUpdateParams
		if !decode(n, &p) {
			return
		}
		m.repo.UpsertStream(p.Stream)

	case snapserver.MethodServerOnUpdate:
		var p serverUpdateParams
		if !decode(n, &p) {
			return
		}
		m.repo.ReplaceServer(p.Server)
		m.ReconcileGroups(context.Background())
	}
}

func decode(n snapserver.Notification, v interface{}) bool {
	if err := json.Unmarshal(n.Params, v); err != nil {
		slog.Warn("zonemgr: malformed notification params, dropping", "method", n.Method, "err", err)
		return false
	}
	return true
}

// syncGroupMute applies a Group.OnMute event to whichever zone currently
// owns groupID, publishing ZoneMuteChanged only if the value actually
// changed (a local SetMute echoes back through this same path).
func (m *Manager) syncGroupMute(groupID string, mute bool) {
	for i := 1; i <= len(m.configs); i++ {
		st, ok := m.store.Get(i)
		if !ok || st.SnapcastGroupID != groupID {
			continue
		}
		if st.Mute == mute {
			return
		}
		unlock, err := m.lock(context.Background(), i)
		if err != nil {
			return
		}
		defer unlock()
		cp := st.Clone()
		cp.Mute = mute
		m.store.Set(i, cp)
		m.bus.Publish(m.factory.ZoneMuteChanged(i, mute))
		return
	}
}

// ReconcileGroups matches every configured zone's stream id against the
// repository's current groups, recording (or clearing) SnapcastGroupID.
// Called after every (re)connect snapshot and whenever a group's stream
// binding changes, since that mapping is the only way a zone's group
// membership is discovered — zones never create or claim groups directly,
// the Client Manager does that as clients are assigned.
func (m *Manager) ReconcileGroups(ctx context.Context) {
	groups := m.repo.GetAllGroups()
	byStream := make(map[string]string, len(groups))
	for _, g := range groups {
		byStream[g.StreamID] = g.ID
	}

	for i := 1; i <= len(m.configs); i++ {
		st, ok := m.store.Get(i)
		if !ok {
			continue
		}
		groupID := byStream[st.SnapcastStreamID]
		if groupID == st.SnapcastGroupID {
			continue
		}
		unlock, err := m.lock(ctx, i)
		if err != nil {
			continue
		}
		cp := st.Clone()
		cp.SnapcastGroupID = groupID
		m.store.Set(i, cp)
		unlock()
	}
}
