package player

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/snapdog/snapdog/internal/apperr"
	"github.com/snapdog/snapdog/internal/models"
)

type zoneEntry struct {
	mu  sync.Mutex
	sup *zoneSupervisor

	isPlaying      bool
	track          *models.TrackInfo
	basePositionMs int64
	playStartedAt  time.Time
}

func (z *zoneEntry) currentPositionMs() int64 {
	if !z.isPlaying || z.playStartedAt.IsZero() {
		return z.basePositionMs
	}
	elapsed := time.Since(z.playStartedAt).Milliseconds()
	pos := z.basePositionMs + elapsed
	if z.track != nil && z.track.DurationMs > 0 && pos > z.track.DurationMs {
		pos = z.track.DurationMs
	}
	return pos
}

// Player is the Media Player Supervisor: one logical player per zone,
// each backed by its own subprocess supervisor.
type Player struct {
	runner ProcessRunner

	mu      sync.RWMutex
	zones   map[int]*zoneEntry
	subsMu  sync.RWMutex
	subs    []func(Event)

	progressInterval time.Duration
}

// New returns a Player using runner to launch per-zone subprocesses.
func New(runner ProcessRunner, progressInterval time.Duration) *Player {
	if progressInterval <= 0 {
		progressInterval = 500 * time.Millisecond
	}
	return &Player{
		runner:           runner,
		zones:            make(map[int]*zoneEntry),
		progressInterval: progressInterval,
	}
}

// Subscribe registers cb to receive every event across every zone.
// Subscribers must not block — cb is called synchronously on the emitting
// goroutine.
func (p *Player) Subscribe(cb func(Event)) {
	p.subsMu.Lock()
	p.subs = append(p.subs, cb)
	p.subsMu.Unlock()
}

func (p *Player) emit(e Event) {
	p.subsMu.RLock()
	subs := make([]func(Event), len(p.subs))
	copy(subs, p.subs)
	p.subsMu.RUnlock()
	for _, cb := range subs {
		cb(e)
	}
}

func (p *Player) entry(zoneIndex int) *zoneEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	z, ok := p.zones[zoneIndex]
	if !ok {
		z = &zoneEntry{}
		p.zones[zoneIndex] = z
	}
	return z
}

// Play starts (or resumes) playback of track into sink for zoneIndex.
// Playing an already-playing zone with the same URL is a no-op that emits
// no spurious events.
func (p *Player) Play(ctx context.Context, zoneIndex int, track models.TrackInfo, sink string) error {
	if track.URL == "" {
		return apperr.InvalidArgumentf("player: track has no url")
	}

	z := p.entry(zoneIndex)
	z.mu.Lock()
	if z.isPlaying && z.track != nil && z.track.URL == track.URL {
		z.mu.Unlock()
		return nil
	}
	z.track = &track
	z.basePositionMs = track.PositionMs
	z.isPlaying = true
	z.playStartedAt = time.Now()
	if z.sup == nil {
		z.sup = newZoneSupervisor(zoneIndex, p.runner)
		z.sup.onExit = func() { p.handleSupervisorExit(zoneIndex) }
	}
	startAt := z.basePositionMs
	z.mu.Unlock()

	z.sup.start(ctx, track.URL, sink, startAt)

	p.emit(Event{ZoneIndex: zoneIndex, Kind: EventPlaybackStateChanged, IsPlaying: true, State: models.PlaybackPlaying})
	p.emit(Event{ZoneIndex: zoneIndex, Kind: EventTrackInfoChanged, Track: &track})
	return nil
}

// Pause stops the subprocess but keeps the current position, which
// GetStatus reports. Play always starts from the PositionMs of the track it
// is given, so passing the paused track back to Play resumes from there.
func (p *Player) Pause(zoneIndex int) error {
	z := p.entry(zoneIndex)
	z.mu.Lock()
	if !z.isPlaying {
		z.mu.Unlock()
		return nil
	}
	z.basePositionMs = z.currentPositionMs()
	z.isPlaying = false
	z.playStartedAt = time.Time{}
	sup := z.sup
	z.mu.Unlock()

	if sup != nil {
		sup.stop()
	}
	p.emit(Event{ZoneIndex: zoneIndex, Kind: EventPlaybackStateChanged, IsPlaying: false, State: models.PlaybackPaused})
	return nil
}

// Stop halts playback and resets position to zero. Stop after Stop is a
// no-op.
func (p *Player) Stop(zoneIndex int) error {
	z := p.entry(zoneIndex)
	z.mu.Lock()
	if !z.isPlaying && z.basePositionMs == 0 && z.track == nil {
		z.mu.Unlock()
		return nil
	}
	z.isPlaying = false
	z.basePositionMs = 0
	z.playStartedAt = time.Time{}
	z.track = nil
	sup := z.sup
	z.mu.Unlock()

	if sup != nil {
		sup.stop()
	}
	p.emit(Event{ZoneIndex: zoneIndex, Kind: EventPlaybackStateChanged, IsPlaying: false, State: models.PlaybackStopped})
	return nil
}

// handleSupervisorExit runs when a zone's supervisor loop ends on its own
// (fast-fail budget exhausted) rather than via an explicit Pause/Stop,
// which already set isPlaying=false before telling the supervisor to stop.
// An unexpected exit is surfaced as a playback-state transition to stopped.
func (p *Player) handleSupervisorExit(zoneIndex int) {
	z := p.entry(zoneIndex)
	z.mu.Lock()
	if !z.isPlaying {
		z.mu.Unlock()
		return
	}
	z.isPlaying = false
	z.basePositionMs = z.currentPositionMs()
	z.playStartedAt = time.Time{}
	z.mu.Unlock()

	p.emit(Event{ZoneIndex: zoneIndex, Kind: EventPlaybackStateChanged, IsPlaying: false, State: models.PlaybackStopped})
}

// SeekToPositionMs clamps ms to [0, duration] and repositions playback.
func (p *Player) SeekToPositionMs(ctx context.Context, zoneIndex int, ms int64, sink string) error {
	z := p.entry(zoneIndex)
	z.mu.Lock()
	if ms < 0 {
		ms = 0
	}
	if z.track != nil && z.track.DurationMs > 0 && ms > z.track.DurationMs {
		ms = z.track.DurationMs
	}
	z.basePositionMs = ms
	wasPlaying := z.isPlaying
	var track models.TrackInfo
	if z.track != nil {
		track = *z.track
	}
	if wasPlaying {
		z.playStartedAt = time.Now()
	}
	sup := z.sup
	z.mu.Unlock()

	if wasPlaying && sup != nil && track.URL != "" {
		sup.start(ctx, track.URL, sink, ms)
	}

	p.emit(Event{ZoneIndex: zoneIndex, Kind: EventPositionChanged, PositionMs: ms, DurationMs: track.DurationMs})
	return nil
}

// SeekToProgress clamps fraction to [0,1] and delegates to SeekToPositionMs.
func (p *Player) SeekToProgress(ctx context.Context, zoneIndex int, fraction float64, sink string) error {
	fraction = math.Max(0, math.Min(1, fraction))
	z := p.entry(zoneIndex)
	z.mu.Lock()
	var duration int64
	if z.track != nil {
		duration = z.track.DurationMs
	}
	z.mu.Unlock()
	return p.SeekToPositionMs(ctx, zoneIndex, int64(fraction*float64(duration)), sink)
}

// GetStatus returns a point-in-time snapshot for zoneIndex.
func (p *Player) GetStatus(zoneIndex int) Status {
	z := p.entry(zoneIndex)
	z.mu.Lock()
	defer z.mu.Unlock()
	var track *models.TrackInfo
	if z.track != nil {
		t := *z.track
		t.PositionMs = z.currentPositionMs()
		if t.DurationMs > 0 {
			t.Progress = float64(t.PositionMs) / float64(t.DurationMs)
		}
		track = &t
	}
	return Status{IsPlaying: z.isPlaying, CurrentTrack: track}
}

// GetAllStatus returns a snapshot for every zone that has ever played.
func (p *Player) GetAllStatus() map[int]Status {
	p.mu.RLock()
	indices := make([]int, 0, len(p.zones))
	for i := range p.zones {
		indices = append(indices, i)
	}
	p.mu.RUnlock()

	out := make(map[int]Status, len(indices))
	for _, i := range indices {
		out[i] = p.GetStatus(i)
	}
	return out
}

// StopAll stops every zone's playback.
func (p *Player) StopAll() error {
	p.mu.RLock()
	indices := make([]int, 0, len(p.zones))
	for i := range p.zones {
		indices = append(indices, i)
	}
	p.mu.RUnlock()

	for _, i := range indices {
		if err := p.Stop(i); err != nil {
			return err
		}
	}
	return nil
}

// GetStatistics summarizes the supervisor fleet.
func (p *Player) GetStatistics() Statistics {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var active int
	var starts, fails int64
	for _, z := range p.zones {
		z.mu.Lock()
		if z.isPlaying {
			active++
		}
		if z.sup != nil {
			starts += z.sup.starts.Load()
			fails += z.sup.fails.Load()
		}
		z.mu.Unlock()
	}
	return Statistics{ActiveZones: active, TotalStarts: starts, TotalFails: fails}
}
