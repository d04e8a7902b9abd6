package player

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/snapdog/snapdog/internal/models"
)

// fakeProcess is a Process double that blocks on Wait until killed.
type fakeProcess struct {
	pid      int
	waitCh   chan struct{}
	signaled chan int
	once     sync.Once
}

func newFakeProcess(pid int) *fakeProcess {
	return &fakeProcess{pid: pid, waitCh: make(chan struct{}), signaled: make(chan int, 8)}
}

func (p *fakeProcess) Wait() error {
	<-p.waitCh
	return nil
}
func (p *fakeProcess) Pid() int { return p.pid }
func (p *fakeProcess) Signal(sig int) error {
	p.signaled <- sig
	if sig == sigterm || sig == sigkill {
		p.once.Do(func() { close(p.waitCh) })
	}
	return nil
}
func (p *fakeProcess) Kill() error { return p.Signal(sigkill) }

// fakeRunner hands out fakeProcess instances and records each Start call.
type fakeRunner struct {
	mu      sync.Mutex
	starts  []string
	nextPid int
	procs   []*fakeProcess
}

func (r *fakeRunner) Start(ctx context.Context, url, sink string, startAtMs int64) (Process, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextPid++
	proc := newFakeProcess(r.nextPid)
	r.starts = append(r.starts, url)
	r.procs = append(r.procs, proc)
	return proc, nil
}

func (r *fakeRunner) startCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.starts)
}

// waitForStarts polls until at least n starts are recorded or timeout
// elapses, since the supervisor launches processes on its own goroutine.
func (r *fakeRunner) waitForStarts(n int, timeout time.Duration) int {
	deadline := time.Now().Add(timeout)
	for r.startCount() < n && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	return r.startCount()
}

func TestPlayer_PlayEmitsEvents(t *testing.T) {
	p := New(&fakeRunner{}, 0)

	var events []Event
	var mu sync.Mutex
	p.Subscribe(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	})

	track := models.TrackInfo{URL: "http://example.com/a.mp3", DurationMs: 60000}
	if err := p.Play(context.Background(), 1, track, "/tmp/zone1"); err != nil {
		t.Fatalf("Play: %v", err)
	}

	mu.Lock()
	n := len(events)
	mu.Unlock()
	if n != 2 {
		t.Fatalf("expected 2 events (playback+track), got %d", n)
	}

	status := p.GetStatus(1)
	if !status.IsPlaying {
		t.Fatalf("expected playing")
	}
	if status.CurrentTrack == nil || status.CurrentTrack.URL != track.URL {
		t.Fatalf("unexpected track: %+v", status.CurrentTrack)
	}
}

func TestPlayer_PlaySameURLIsNoop(t *testing.T) {
	runner := &fakeRunner{}
	p := New(runner, 0)
	track := models.TrackInfo{URL: "http://example.com/a.mp3", DurationMs: 60000}

	if err := p.Play(context.Background(), 1, track, "/tmp/zone1"); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if got := runner.waitForStarts(1, time.Second); got != 1 {
		t.Fatalf("expected 1 start, got %d", got)
	}

	var fired bool
	p.Subscribe(func(e Event) { fired = true })

	if err := p.Play(context.Background(), 1, track, "/tmp/zone1"); err != nil {
		t.Fatalf("Play (repeat): %v", err)
	}
	if runner.startCount() != 1 {
		t.Fatalf("expected still 1 start after repeat play, got %d", runner.startCount())
	}
	if fired {
		t.Fatalf("expected no events emitted for a no-op repeat play")
	}
}

func TestPlayer_PauseThenPlayResumesPosition(t *testing.T) {
	p := New(&fakeRunner{}, 0)
	track := models.TrackInfo{URL: "http://example.com/a.mp3", DurationMs: 60000, PositionMs: 10000}

	if err := p.Play(context.Background(), 1, track, "/tmp/zone1"); err != nil {
		t.Fatalf("Play: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if err := p.Pause(1); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	status := p.GetStatus(1)
	if status.IsPlaying {
		t.Fatalf("expected paused")
	}
	if status.CurrentTrack.PositionMs < 10000 {
		t.Fatalf("expected position to have advanced from base, got %d", status.CurrentTrack.PositionMs)
	}

	// Pause again is a no-op.
	if err := p.Pause(1); err != nil {
		t.Fatalf("Pause (repeat): %v", err)
	}

	// Playing the paused track again resumes from the paused position.
	paused := status.CurrentTrack.PositionMs
	if err := p.Play(context.Background(), 1, *status.CurrentTrack, "/tmp/zone1"); err != nil {
		t.Fatalf("Play (resume): %v", err)
	}
	if got := p.GetStatus(1).CurrentTrack.PositionMs; got < paused {
		t.Fatalf("expected resume from %d, got %d", paused, got)
	}
}

func TestPlayer_StopAfterStopIsNoop(t *testing.T) {
	p := New(&fakeRunner{}, 0)
	if err := p.Stop(5); err != nil {
		t.Fatalf("Stop on untouched zone: %v", err)
	}

	track := models.TrackInfo{URL: "http://example.com/a.mp3", DurationMs: 60000}
	if err := p.Play(context.Background(), 5, track, "/tmp/zone5"); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if err := p.Stop(5); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	status := p.GetStatus(5)
	if status.IsPlaying || status.CurrentTrack != nil {
		t.Fatalf("expected stopped/empty status, got %+v", status)
	}

	if err := p.Stop(5); err != nil {
		t.Fatalf("Stop (repeat): %v", err)
	}
}

func TestPlayer_SeekClampsToDuration(t *testing.T) {
	p := New(&fakeRunner{}, 0)
	track := models.TrackInfo{URL: "http://example.com/a.mp3", DurationMs: 10000}
	if err := p.Play(context.Background(), 1, track, "/tmp/zone1"); err != nil {
		t.Fatalf("Play: %v", err)
	}

	if err := p.SeekToPositionMs(context.Background(), 1, 999999, "/tmp/zone1"); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	status := p.GetStatus(1)
	if status.CurrentTrack.PositionMs != 10000 {
		t.Fatalf("expected clamp to duration 10000, got %d", status.CurrentTrack.PositionMs)
	}

	if err := p.SeekToPositionMs(context.Background(), 1, -50, "/tmp/zone1"); err != nil {
		t.Fatalf("Seek negative: %v", err)
	}
	status = p.GetStatus(1)
	if status.CurrentTrack.PositionMs != 0 {
		t.Fatalf("expected clamp to 0, got %d", status.CurrentTrack.PositionMs)
	}
}

func TestPlayer_SeekToProgress(t *testing.T) {
	p := New(&fakeRunner{}, 0)
	track := models.TrackInfo{URL: "http://example.com/a.mp3", DurationMs: 20000}
	if err := p.Play(context.Background(), 1, track, "/tmp/zone1"); err != nil {
		t.Fatalf("Play: %v", err)
	}

	if err := p.SeekToProgress(context.Background(), 1, 0.5, "/tmp/zone1"); err != nil {
		t.Fatalf("SeekToProgress: %v", err)
	}
	status := p.GetStatus(1)
	if status.CurrentTrack.PositionMs != 10000 {
		t.Fatalf("expected position 10000 at 50%%, got %d", status.CurrentTrack.PositionMs)
	}
}

func TestPlayer_GetAllStatusAndStopAll(t *testing.T) {
	p := New(&fakeRunner{}, 0)
	for i := 1; i <= 3; i++ {
		track := models.TrackInfo{URL: "http://example.com/a.mp3", DurationMs: 1000}
		if err := p.Play(context.Background(), i, track, "/tmp/zone"); err != nil {
			t.Fatalf("Play zone %d: %v", i, err)
		}
	}

	all := p.GetAllStatus()
	if len(all) != 3 {
		t.Fatalf("expected 3 zones, got %d", len(all))
	}

	if err := p.StopAll(); err != nil {
		t.Fatalf("StopAll: %v", err)
	}
	all = p.GetAllStatus()
	for i, s := range all {
		if s.IsPlaying {
			t.Fatalf("zone %d still playing after StopAll", i)
		}
	}
}

func TestPlayer_GetStatistics(t *testing.T) {
	runner := &fakeRunner{}
	p := New(runner, 0)
	track := models.TrackInfo{URL: "http://example.com/a.mp3", DurationMs: 1000}
	if err := p.Play(context.Background(), 1, track, "/tmp/zone1"); err != nil {
		t.Fatalf("Play: %v", err)
	}

	stats := p.GetStatistics()
	if stats.ActiveZones != 1 {
		t.Fatalf("expected 1 active zone, got %d", stats.ActiveZones)
	}
	// The first start is recorded on the supervisor's goroutine.
	for deadline := time.Now().Add(time.Second); stats.TotalStarts < 1 && time.Now().Before(deadline); stats = p.GetStatistics() {
		time.Sleep(time.Millisecond)
	}
	if stats.TotalStarts < 1 {
		t.Fatalf("expected at least 1 start recorded, got %d", stats.TotalStarts)
	}
}
