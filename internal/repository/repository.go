// Package repository holds the thread-safe in-memory mirror of Snapcast's
// own state (Server/Group/SnapClient/Stream), rebuilt wholesale on every
// reconnect and then kept current by individual event application.
package repository

import (
	"sync"

	"github.com/snapdog/snapdog/internal/models"
)

// Repository is the single owner of the Snapcast mirror. All reads and
// writes go through its RWMutex; callers receive copies, never references
// into the live mirror.
type Repository struct {
	mu     sync.RWMutex
	server models.Server

	onChanged func()
}

// New returns an empty Repository.
func New() *Repository {
	return &Repository{}
}

// OnChanged registers a callback invoked after every mutation. Only one
// callback is supported — the caller (typically a dispatcher in the
// managers layer) is expected to fan out from there.
func (r *Repository) OnChanged(cb func()) {
	r.mu.Lock()
	r.onChanged = cb
	r.mu.Unlock()
}

func (r *Repository) notify() {
	r.mu.RLock()
	cb := r.onChanged
	r.mu.RUnlock()
	if cb != nil {
		cb()
	}
}

// ReplaceServer installs a full snapshot, discarding the previous mirror.
// Called once per (re)connect with the result of Server.GetStatus.
func (r *Repository) ReplaceServer(server models.Server) {
	r.mu.Lock()
	r.server = server
	r.mu.Unlock()
	r.notify()
}

// GetServerInfo returns a copy of the current mirror.
func (r *Repository) GetServerInfo() models.Server {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.server
}

// GetClient returns the client with the given Snapcast id.
func (r *Repository) GetClient(id string) (models.SnapClient, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, g := range r.server.Groups {
		for _, c := range g.Clients {
			if c.ID == id {
				return c, true
			}
		}
	}
	return models.SnapClient{}, false
}

// GetClientByIndex returns the live Snapcast client whose MAC matches
// configMAC (already normalized), the id of the group holding it, and
// whether it was found. Callers first map a domain clientIndex to its
// configured MAC; this lookup is where that index crosses into the Snapcast
// namespace.
func (r *Repository) GetClientByIndex(configMAC string) (models.SnapClient, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.server.FindClientByMAC(configMAC)
}

// GetAllClients returns every client across every group.
func (r *Repository) GetAllClients() []models.SnapClient {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.SnapClient
	for _, g := range r.server.Groups {
		out = append(out, g.Clients...)
	}
	return out
}

// GetAllGroups returns every group.
func (r *Repository) GetAllGroups() []models.Group {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Group, len(r.server.Groups))
	copy(out, r.server.Groups)
	return out
}

// GetAllStreams returns every stream.
func (r *Repository) GetAllStreams() []models.Stream {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Stream, len(r.server.Streams))
	copy(out, r.server.Streams)
	return out
}

// UpsertGroup inserts or replaces the group with matching id.
func (r *Repository) UpsertGroup(g models.Group) {
	r.mu.Lock()
	for i := range r.server.Groups {
		if r.server.Groups[i].ID == g.ID {
			r.server.Groups[i] = g
			r.mu.Unlock()
			r.notify()
			return
		}
	}
	r.server.Groups = append(r.server.Groups, g)
	r.mu.Unlock()
	r.notify()
}

// RemoveGroup deletes the group with the given id, if present.
func (r *Repository) RemoveGroup(id string) {
	r.mu.Lock()
	for i := range r.server.Groups {
		if r.server.Groups[i].ID == id {
			r.server.Groups = append(r.server.Groups[:i], r.server.Groups[i+1:]...)
			break
		}
	}
	r.mu.Unlock()
	r.notify()
}

// UpsertStream inserts or replaces the stream with matching id.
func (r *Repository) UpsertStream(s models.Stream) {
	r.mu.Lock()
	for i := range r.server.Streams {
		if r.server.Streams[i].ID == s.ID {
			r.server.Streams[i] = s
			r.mu.Unlock()
			r.notify()
			return
		}
	}
	r.server.Streams = append(r.server.Streams, s)
	r.mu.Unlock()
	r.notify()
}

// RemoveStream deletes the stream with the given id, if present.
func (r *Repository) RemoveStream(id string) {
	r.mu.Lock()
	for i := range r.server.Streams {
		if r.server.Streams[i].ID == id {
			r.server.Streams = append(r.server.Streams[:i], r.server.Streams[i+1:]...)
			break
		}
	}
	r.mu.Unlock()
	r.notify()
}

// UpsertClient inserts or replaces the client with matching id within
// groupID. If the client currently lives in a different group, it is moved;
// if groupID is not in the mirror yet, a group holding only c is added.
func (r *Repository) UpsertClient(groupID string, c models.SnapClient) {
	r.mu.Lock()
	for gi := range r.server.Groups {
		for ci := range r.server.Groups[gi].Clients {
			if r.server.Groups[gi].Clients[ci].ID == c.ID {
				if r.server.Groups[gi].ID == groupID {
					r.server.Groups[gi].Clients[ci] = c
					r.mu.Unlock()
					r.notify()
					return
				}
				r.server.Groups[gi].Clients = append(
					r.server.Groups[gi].Clients[:ci],
					r.server.Groups[gi].Clients[ci+1:]...,
				)
				break
			}
		}
	}
	for gi := range r.server.Groups {
		if r.server.Groups[gi].ID == groupID {
			r.server.Groups[gi].Clients = append(r.server.Groups[gi].Clients, c)
			r.mu.Unlock()
			r.notify()
			return
		}
	}
	r.server.Groups = append(r.server.Groups, models.Group{ID: groupID, Clients: []models.SnapClient{c}})
	r.mu.Unlock()
	r.notify()
}

// RemoveClient deletes the client with the given Snapcast id from whichever
// group currently holds it.
func (r *Repository) RemoveClient(id string) {
	r.mu.Lock()
	for gi := range r.server.Groups {
		clients := r.server.Groups[gi].Clients
		for ci := range clients {
			if clients[ci].ID == id {
				r.server.Groups[gi].Clients = append(clients[:ci], clients[ci+1:]...)
				r.mu.Unlock()
				r.notify()
				return
			}
		}
	}
	r.mu.Unlock()
}

// UpdateClientConnection toggles connected/lastSeen for the client with the
// given Snapcast id, applied atomically under the write lock.
func (r *Repository) UpdateClientConnection(id string, connected bool, lastSeen int64) {
	r.mu.Lock()
	for gi := range r.server.Groups {
		for ci := range r.server.Groups[gi].Clients {
			if r.server.Groups[gi].Clients[ci].ID == id {
				r.server.Groups[gi].Clients[ci].Connected = connected
				r.server.Groups[gi].Clients[ci].LastSeen = lastSeen
				r.mu.Unlock()
				r.notify()
				return
			}
		}
	}
	r.mu.Unlock()
}

// UpdateClientVolume applies a volume/mute change to the client with the
// given Snapcast id.
func (r *Repository) UpdateClientVolume(id string, percent int, muted bool) {
	r.mu.Lock()
	for gi := range r.server.Groups {
		for ci := range r.server.Groups[gi].Clients {
			if r.server.Groups[gi].Clients[ci].ID == id {
				r.server.Groups[gi].Clients[ci].Config.Volume.Percent = percent
				r.server.Groups[gi].Clients[ci].Config.Volume.Muted = muted
				r.mu.Unlock()
				r.notify()
				return
			}
		}
	}
	r.mu.Unlock()
}

// UpdateClientLatency applies a latency change to the client with the given
// Snapcast id.
func (r *Repository) UpdateClientLatency(id string, latencyMs int) {
	r.mu.Lock()
	for gi := range r.server.Groups {
		for ci := range r.server.Groups[gi].Clients {
			if r.server.Groups[gi].Clients[ci].ID == id {
				r.server.Groups[gi].Clients[ci].Config.Latency = latencyMs
				r.mu.Unlock()
				r.notify()
				return
			}
		}
	}
	r.mu.Unlock()
}

// UpdateClientName applies a name change to the client with the given
// Snapcast id.
func (r *Repository) UpdateClientName(id string, name string) {
	r.mu.Lock()
	for gi := range r.server.Groups {
		for ci := range r.server.Groups[gi].Clients {
			if r.server.Groups[gi].Clients[ci].ID == id {
				r.server.Groups[gi].Clients[ci].Config.Name = name
				r.mu.Unlock()
				r.notify()
				return
			}
		}
	}
	r.mu.Unlock()
}

// UpdateGroupMute applies a mute change to the group with the given id.
func (r *Repository) UpdateGroupMute(id string, muted bool) {
	r.mu.Lock()
	for gi := range r.server.Groups {
		if r.server.Groups[gi].ID == id {
			r.server.Groups[gi].Muted = muted
			r.mu.Unlock()
			r.notify()
			return
		}
	}
	r.mu.Unlock()
}

// UpdateGroupStream applies a stream change to the group with the given id.
func (r *Repository) UpdateGroupStream(id string, streamID string) {
	r.mu.Lock()
	for gi := range r.server.Groups {
		if r.server.Groups[gi].ID == id {
			r.server.Groups[gi].StreamID = streamID
			r.mu.Unlock()
			r.notify()
			return
		}
	}
	r.mu.Unlock()
}

// UpdateGroupName applies a name change to the group with the given id.
func (r *Repository) UpdateGroupName(id string, name string) {
	r.mu.Lock()
	for gi := range r.server.Groups {
		if r.server.Groups[gi].ID == id {
			r.server.Groups[gi].Name = name
			r.mu.Unlock()
			r.notify()
			return
		}
	}
	r.mu.Unlock()
}
