// Package clientmgr implements the Client Manager: per-client serialized
// mutation of client state, realized against the live Snapcast mirror and
// transport, with notifications published on every applied change.
package clientmgr

import (
	"context"
	"sync"
	"time"

	"github.com/snapdog/snapdog/internal/apperr"
	"github.com/snapdog/snapdog/internal/models"
	"github.com/snapdog/snapdog/internal/notify"
	"github.com/snapdog/snapdog/internal/repository"
	"github.com/snapdog/snapdog/internal/snapserver"
	"github.com/snapdog/snapdog/internal/statestore"
)

// Manager is the Client Manager: one mutex per clientIndex guards mutation
// of that client's state, while reads proceed lock-free against the
// statestore snapshot.
type Manager struct {
	configs []models.ClientConfig // configs[i] is clientIndex i+1
	zones   []models.ZoneConfig   // zones[i] is zoneIndex i+1

	locks []sync.Mutex

	store     *statestore.KeyedStore[*models.ClientState]
	repo      *repository.Repository
	transport *snapserver.Transport
	bus       notify.Publisher
	factory   notify.Factory

	lockTimeout time.Duration
}

// New builds a Client Manager for the given static configuration. Every
// configured client gets an initial ClientState immediately, with
// connected=false until its MAC appears in the Snapcast mirror.
func New(clients []models.ClientConfig, zones []models.ZoneConfig, repo *repository.Repository, transport *snapserver.Transport, bus notify.Publisher) *Manager {
	m := &Manager{
		configs:     clients,
		zones:       zones,
		locks:       make([]sync.Mutex, len(clients)),
		store:       statestore.New[*models.ClientState](),
		repo:        repo,
		transport:   transport,
		bus:         bus,
		factory:     notify.NewFactory(),
		lockTimeout: 5 * time.Second,
	}
	for i, cfg := range clients {
		m.store.Initialize(i+1, &models.ClientState{
			Name:      cfg.Name,
			Icon:      cfg.Icon,
			MAC:       models.NormalizeMAC(cfg.MAC),
			ZoneIndex: cfg.DefaultZone,
		})
	}
	return m
}

func (m *Manager) validIndex(i int) bool { return i >= 1 && i <= len(m.configs) }

// lock acquires the per-client mutex, failing with DeadlineExceeded if it
// cannot be acquired within the configured timeout.
func (m *Manager) lock(ctx context.Context, i int) (func(), error) {
	done := make(chan struct{})
	go func() {
		m.locks[i-1].Lock()
		close(done)
	}()

	select {
	case <-done:
		return func() { m.locks[i-1].Unlock() }, nil
	case <-time.After(m.lockTimeout):
		go func() { <-done; m.locks[i-1].Unlock() }()
		return nil, apperr.DeadlineExceededf("clientmgr: timed out waiting for client %d lock", i)
	case <-ctx.Done():
		go func() { <-done; m.locks[i-1].Unlock() }()
		return nil, apperr.Cancelledf("clientmgr: cancelled waiting for client %d lock: %v", i, ctx.Err())
	}
}

// GetClient returns a snapshot of the client's state.
func (m *Manager) GetClient(i int) (*models.ClientState, error) {
	if !m.validIndex(i) {
		return nil, apperr.InvalidArgumentf("clientmgr: client index %d out of range", i)
	}
	st, ok := m.store.Get(i)
	if !ok {
		return nil, apperr.NotFoundf("clientmgr: client %d not initialized", i)
	}
	cp := st.Clone()
	return cp, nil
}

// GetAllClients returns a snapshot of every configured client's state,
// keyed by clientIndex.
func (m *Manager) GetAllClients() map[int]*models.ClientState {
	all := m.store.GetAll()
	out := make(map[int]*models.ClientState, len(all))
	for i, st := range all {
		out[i] = st.Clone()
	}
	return out
}

// GetClientsByZone returns every client currently assigned to zoneIndex.
func (m *Manager) GetClientsByZone(zoneIndex int) []*models.ClientState {
	all := m.store.GetAll()
	var out []*models.ClientState
	for _, st := range all {
		if st.ZoneIndex == zoneIndex {
			out = append(out, st.Clone())
		}
	}
	return out
}

// GetClientBySnapcastID resolves a Snapcast client id back to its
// clientIndex by matching the repository's SnapClient.Host.MAC against the
// configured MACs. Returns (0, nil) if no configured client matches.
func (m *Manager) GetClientBySnapcastID(id string) (int, *models.ClientState) {
	snapClient, ok := m.repo.GetClient(id)
	if !ok {
		return 0, nil
	}
	mac := models.NormalizeMAC(snapClient.Host.MAC)
	for i, cfg := range m.configs {
		if models.NormalizeMAC(cfg.MAC) == mac {
			st, _ := m.store.Get(i + 1)
			return i + 1, st
		}
	}
	return 0, nil
}
