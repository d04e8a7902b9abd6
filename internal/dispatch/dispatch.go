// Package dispatch wires the Snapcast transport's notification stream into
// the repository mirror and the domain managers that care about it. It owns
// no state of its own: every mutation it triggers lands in the repository
// or in a manager's per-entity store via the methods those packages already
// expose.
package dispatch

import (
	"context"

	"github.com/snapdog/snapdog/internal/clientmgr"
	"github.com/snapdog/snapdog/internal/models"
	"github.com/snapdog/snapdog/internal/repository"
	"github.com/snapdog/snapdog/internal/snapserver"
	"github.com/snapdog/snapdog/internal/zonemgr"
)

// Dispatcher fans every Snapcast notification out to the repository and the
// Client/Zone managers, and reconciles zone-to-group mapping after every
// fresh connection snapshot.
type Dispatcher struct {
	repo    *repository.Repository
	clients *clientmgr.Manager
	zones   *zonemgr.Manager
}

// New returns a Dispatcher. Call Wire before the transport starts running.
func New(repo *repository.Repository, clients *clientmgr.Manager, zones *zonemgr.Manager) *Dispatcher {
	return &Dispatcher{repo: repo, clients: clients, zones: zones}
}

// Wire subscribes to every notification the transport delivers.
func (d *Dispatcher) Wire(transport *snapserver.Transport) {
	transport.Subscribe(d.handle)
}

// OnSnapshot is passed to Transport.Run as its SnapshotFunc: it installs the
// fresh mirror and recomputes zone-to-group membership against it.
func (d *Dispatcher) OnSnapshot(server *models.Server) {
	d.repo.ReplaceServer(*server)
	d.zones.ReconcileGroups(context.Background())
}

func (d *Dispatcher) handle(n snapserver.Notification) {
	switch n.Method {
	case snapserver.MethodClientOnConnect,
		snapserver.MethodClientOnDisconnect,
		snapserver.MethodClientOnVolumeChanged,
		snapserver.MethodClientOnLatencyChanged,
		snapserver.MethodClientOnNameChanged:
		d.clients.ApplyNotification(n)

	case snapserver.MethodGroupOnMute,
		snapserver.MethodGroupOnStreamChanged,
		snapserver.MethodGroupOnNameChanged,
		snapserver.MethodStreamOnUpdate,
		snapserver.MethodServerOnUpdate:
		d.zones.ApplyNotification(n)
	}
}
