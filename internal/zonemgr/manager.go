// Package zonemgr implements the Zone Service: per-zone serialized
// mutation of zone state (playback, volume, client membership, playlist
// navigation), realized against the Media Player Supervisor and the live
// Snapcast mirror/transport, with notifications published on every applied
// change.
package zonemgr

import (
	"context"
	"sync"
	"time"

	"github.com/snapdog/snapdog/internal/apperr"
	"github.com/snapdog/snapdog/internal/models"
	"github.com/snapdog/snapdog/internal/notify"
	"github.com/snapdog/snapdog/internal/player"
	"github.com/snapdog/snapdog/internal/repository"
	"github.com/snapdog/snapdog/internal/snapserver"
	"github.com/snapdog/snapdog/internal/statestore"
)

// Manager is the Zone Service: one mutex per zoneIndex guards mutation of
// that zone's state, while reads proceed lock-free against the statestore
// snapshot.
type Manager struct {
	configs []models.ZoneConfig // configs[i] is zoneIndex i+1

	locks []sync.Mutex

	store     *statestore.KeyedStore[*models.ZoneState]
	repo      *repository.Repository
	transport *snapserver.Transport
	player    *player.Player
	bus       notify.Publisher
	factory   notify.Factory

	assigner ClientAssigner
	scaler   VolumeScaler
	playlist PlaylistProvider

	lockTimeout time.Duration

	pumpMu   sync.Mutex
	pumps    map[int]context.CancelFunc
	pumpStep time.Duration
}

// New builds a Zone Service for the given static configuration. Every
// configured zone gets an initial ZoneState immediately, stopped with no
// track loaded.
func New(
	zones []models.ZoneConfig,
	repo *repository.Repository,
	transport *snapserver.Transport,
	p *player.Player,
	bus notify.Publisher,
	assigner ClientAssigner,
	scaler VolumeScaler,
	playlist PlaylistProvider,
	progressInterval time.Duration,
) *Manager {
	if progressInterval <= 0 {
		progressInterval = 500 * time.Millisecond
	}
	m := &Manager{
		configs:     zones,
		locks:       make([]sync.Mutex, len(zones)),
		store:       statestore.New[*models.ZoneState](),
		repo:        repo,
		transport:   transport,
		player:      p,
		bus:         bus,
		factory:     notify.NewFactory(),
		assigner:    assigner,
		scaler:      scaler,
		playlist:    playlist,
		lockTimeout: 5 * time.Second,
		pumps:       make(map[int]context.CancelFunc),
		pumpStep:    progressInterval,
	}
	for i, cfg := range zones {
		m.store.Initialize(i+1, &models.ZoneState{
			Name:             cfg.Name,
			Sink:             cfg.Sink,
			PlaybackState:    models.PlaybackStopped,
			Volume:           50,
			SnapcastStreamID: models.StreamIDFromSink(cfg.Sink),
			Clients:          make(map[int]struct{}),
			TimestampUTC:     time.Now().UTC(),
		})
	}
	if p != nil {
		p.Subscribe(m.onPlayerEvent)
	}
	return m
}

func (m *Manager) validIndex(i int) bool { return i >= 1 && i <= len(m.configs) }

// lock acquires the per-zone mutex, failing with DeadlineExceeded if it
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
		return nil, apperr.DeadlineExceededf("zonemgr: timed out waiting for zone %d lock", i)
	case <-ctx.Done():
		go func() { <-done; m.locks[i-1].Unlock() }()
		return nil, apperr.Cancelledf("zonemgr: cancelled waiting for zone %d lock: %v", i, ctx.Err())
	}
}

// GetZone returns a snapshot of the zone's state.
func (m *Manager) GetZone(i int) (*models.ZoneState, error) {
	if !m.validIndex(i) {
		return nil, apperr.InvalidArgumentf("zonemgr: zone index %d out of range", i)
	}
	st, ok := m.store.Get(i)
	if !ok {
		return nil, apperr.NotFoundf("zonemgr: zone %d not initialized", i)
	}
	return st.Clone(), nil
}

// GetAllZones returns a snapshot of every configured zone's state, keyed
// by zoneIndex.
func (m *Manager) GetAllZones() map[int]*models.ZoneState {
	all := m.store.GetAll()
	out := make(map[int]*models.ZoneState, len(all))
	for i, st := range all {
		out[i] = st.Clone()
	}
	return out
}
