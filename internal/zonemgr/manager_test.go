package zonemgr

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/snapdog/snapdog/internal/apperr"
	"github.com/snapdog/snapdog/internal/models"
	"github.com/snapdog/snapdog/internal/player"
	"github.com/snapdog/snapdog/internal/repository"
	"github.com/snapdog/snapdog/internal/snapserver"
)

type testPublisher struct {
	mu            sync.Mutex
	notifications []models.Notification
}

func (p *testPublisher) Publish(n models.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifications = append(p.notifications, n)
}

func (p *testPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.notifications)
}

// fakeProcess/fakeRunner mirror internal/player's test doubles, duplicated
// here so this package's tests don't depend on player's unexported types.
type fakeProcess struct {
	pid    int
	waitCh chan struct{}
	once   sync.Once
}

func newFakeProcess(pid int) *fakeProcess { return &fakeProcess{pid: pid, waitCh: make(chan struct{})} }
func (p *fakeProcess) Wait() error        { <-p.waitCh; return nil }
func (p *fakeProcess) Pid() int           { return p.pid }
func (p *fakeProcess) Signal(sig int) error {
	p.once.Do(func() { close(p.waitCh) })
	return nil
}
func (p *fakeProcess) Kill() error { return p.Signal(9) }

type fakeRunner struct {
	mu      sync.Mutex
	nextPid int
}

func (r *fakeRunner) Start(ctx context.Context, url, sink string, startAtMs int64) (player.Process, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextPid++
	return newFakeProcess(r.nextPid), nil
}

type fakeAssigner struct {
	calls []struct{ client, zone int }
}

func (f *fakeAssigner) AssignClientToZone(ctx context.Context, clientIndex, zoneIndex int) error {
	f.calls = append(f.calls, struct{ client, zone int }{clientIndex, zoneIndex})
	return nil
}

type fakeScaler struct {
	calls []struct{ zone, volume int }
}

func (f *fakeScaler) ScaleZoneVolume(ctx context.Context, zoneIndex, targetVolume int) error {
	f.calls = append(f.calls, struct{ zone, volume int }{zoneIndex, targetVolume})
	return nil
}

type fakePlaylistProvider struct {
	playlists map[string][]models.PlaylistInfo
	tracks    map[string][][]models.TrackInfo // [source][playlistIndex][trackIndex]
}

func (f *fakePlaylistProvider) GetPlaylist(ctx context.Context, source string, playlistIndex int) (models.PlaylistInfo, error) {
	return f.playlists[source][playlistIndex], nil
}

func (f *fakePlaylistProvider) TrackCount(ctx context.Context, source string, playlistIndex int) (int, error) {
	return len(f.tracks[source][playlistIndex]), nil
}

func (f *fakePlaylistProvider) GetTrack(ctx context.Context, source string, playlistIndex, trackIndex int) (models.TrackInfo, error) {
	tracks := f.tracks[source][playlistIndex]
	if trackIndex < 0 || trackIndex >= len(tracks) {
		return models.TrackInfo{}, apperr.NotFoundf("fakePlaylistProvider: track %d out of range", trackIndex)
	}
	return tracks[trackIndex], nil
}

// fakeSnapserver accepts one connection and echoes a successful empty
// result for every request, recording the methods it saw.
type fakeSnapserver struct {
	ln      net.Listener
	methods chan string
}

func newFakeSnapserver(t *testing.T) *fakeSnapserver {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	fs := &fakeSnapserver{ln: ln, methods: make(chan string, 64)}
	go fs.serve()
	return fs
}

func (f *fakeSnapserver) serve() {
	conn, err := f.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var req struct {
			ID     int64       `json:"id"`
			Method string      `json:"method"`
			Params interface{} `json:"params"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			return
		}
		f.methods <- req.Method
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": map[string]interface{}{}}
		data, _ := json.Marshal(resp)
		conn.Write(append(data, '\n'))
	}
}

func (f *fakeSnapserver) close() { f.ln.Close() }

func setup(t *testing.T) (*Manager, *testPublisher, *fakeAssigner, *fakeScaler, *fakeSnapserver) {
	t.Helper()
	fs := newFakeSnapserver(t)
	tr := snapserver.NewTransport(fs.ln.Addr().String(), time.Second)
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	repo := repository.New()
	repo.ReplaceServer(models.Server{
		Groups: []models.Group{{ID: "g1", StreamID: "Zone1"}},
	})

	zones := []models.ZoneConfig{{Name: "Living Room", Sink: "/snapsinks/zone1"}}
	pub := &testPublisher{}
	assigner := &fakeAssigner{}
	scaler := &fakeScaler{}
	pl := New(zones, repo, tr, player.New(&fakeRunner{}, 0), pub, assigner, scaler, nil, 50*time.Millisecond)

	return pl, pub, assigner, scaler, fs
}

func TestPlayTrack_StartsAndPublishes(t *testing.T) {
	m, pub, _, _, fs := setup(t)
	defer fs.close()

	track := models.TrackInfo{Source: "url", URL: "http://example.com/a.mp3", DurationMs: 60000}
	if err := m.PlayTrack(context.Background(), 1, track); err != nil {
		t.Fatalf("PlayTrack: %v", err)
	}

	zone, err := m.GetZone(1)
	if err != nil {
		t.Fatalf("GetZone: %v", err)
	}
	if zone.PlaybackState != models.PlaybackPlaying {
		t.Fatalf("expected playing, got %s", zone.PlaybackState)
	}
	if zone.Track == nil || zone.Track.URL != track.URL {
		t.Fatalf("unexpected track: %+v", zone.Track)
	}
	if pub.count() < 2 {
		t.Fatalf("expected at least 2 notifications, got %d", pub.count())
	}

	m.Stop(context.Background(), 1)
}

func TestPlayTrack_SameURLIsNoop(t *testing.T) {
	m, pub, _, _, fs := setup(t)
	defer fs.close()

	track := models.TrackInfo{Source: "url", URL: "http://example.com/a.mp3", DurationMs: 60000}
	if err := m.PlayTrack(context.Background(), 1, track); err != nil {
		t.Fatalf("PlayTrack: %v", err)
	}
	before := pub.count()

	if err := m.PlayTrack(context.Background(), 1, track); err != nil {
		t.Fatalf("PlayTrack (repeat): %v", err)
	}
	if pub.count() != before {
		t.Fatalf("expected no new notifications on repeat play, had %d now %d", before, pub.count())
	}

	m.Stop(context.Background(), 1)
}

func TestPauseAndResume(t *testing.T) {
	m, _, _, _, fs := setup(t)
	defer fs.close()

	track := models.TrackInfo{Source: "url", URL: "http://example.com/a.mp3", DurationMs: 60000}
	if err := m.PlayTrack(context.Background(), 1, track); err != nil {
		t.Fatalf("PlayTrack: %v", err)
	}

	if err := m.Pause(context.Background(), 1); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	zone, _ := m.GetZone(1)
	if zone.PlaybackState != models.PlaybackPaused {
		t.Fatalf("expected paused, got %s", zone.PlaybackState)
	}

	if err := m.Play(context.Background(), 1); err != nil {
		t.Fatalf("Play (resume): %v", err)
	}
	zone, _ = m.GetZone(1)
	if zone.PlaybackState != models.PlaybackPlaying {
		t.Fatalf("expected playing after resume, got %s", zone.PlaybackState)
	}

	m.Stop(context.Background(), 1)
}

func TestStopAfterStopIsNoop(t *testing.T) {
	m, _, _, _, fs := setup(t)
	defer fs.close()

	if err := m.Stop(context.Background(), 1); err != nil {
		t.Fatalf("Stop (untouched zone): %v", err)
	}
	if err := m.Stop(context.Background(), 1); err != nil {
		t.Fatalf("Stop (repeat): %v", err)
	}
}

func TestSeekClampsToDuration(t *testing.T) {
	m, _, _, _, fs := setup(t)
	defer fs.close()

	track := models.TrackInfo{Source: "url", URL: "http://example.com/a.mp3", DurationMs: 10000}
	if err := m.PlayTrack(context.Background(), 1, track); err != nil {
		t.Fatalf("PlayTrack: %v", err)
	}

	if err := m.SeekToPositionMs(context.Background(), 1, 999999); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	zone, _ := m.GetZone(1)
	if zone.Track.PositionMs != 10000 {
		t.Fatalf("expected clamp to 10000, got %d", zone.Track.PositionMs)
	}

	m.Stop(context.Background(), 1)
}

func TestSetVolume_DelegatesToScaler(t *testing.T) {
	m, pub, _, scaler, fs := setup(t)
	defer fs.close()

	if err := m.SetVolume(context.Background(), 1, 150); err != nil {
		t.Fatalf("SetVolume: %v", err)
	}
	if len(scaler.calls) != 1 || scaler.calls[0].volume != 100 {
		t.Fatalf("expected scaler called once with clamped 100, got %+v", scaler.calls)
	}
	zone, _ := m.GetZone(1)
	if zone.Volume != 100 {
		t.Fatalf("expected zone volume 100, got %d", zone.Volume)
	}
	if pub.count() != 1 {
		t.Fatalf("expected 1 notification, got %d", pub.count())
	}
}

func TestAssignClient_DelegatesAndTracksMembership(t *testing.T) {
	m, _, assigner, _, fs := setup(t)
	defer fs.close()

	if err := m.AssignClient(context.Background(), 1, 3); err != nil {
		t.Fatalf("AssignClient: %v", err)
	}
	if len(assigner.calls) != 1 || assigner.calls[0].client != 3 || assigner.calls[0].zone != 1 {
		t.Fatalf("unexpected assigner calls: %+v", assigner.calls)
	}
	zone, _ := m.GetZone(1)
	if _, present := zone.Clients[3]; !present {
		t.Fatalf("expected client 3 in zone 1's Clients set")
	}
}

func TestReconcileGroups_BindsAndRebindsOnStreamMatch(t *testing.T) {
	m, _, _, _, fs := setup(t)
	defer fs.close()

	m.ReconcileGroups(context.Background())
	zone, _ := m.GetZone(1)
	if zone.SnapcastGroupID != "g1" {
		t.Fatalf("expected zone bound to g1 by matching stream id, got %q", zone.SnapcastGroupID)
	}

	// Re-running with nothing changed must not touch the store (no-op branch).
	m.ReconcileGroups(context.Background())
	zone2, _ := m.GetZone(1)
	if zone2.SnapcastGroupID != "g1" {
		t.Fatalf("expected binding to remain stable, got %q", zone2.SnapcastGroupID)
	}

	m.repo.ReplaceServer(models.Server{Groups: []models.Group{{ID: "g7", StreamID: "Zone1"}}})
	m.ReconcileGroups(context.Background())
	zone3, _ := m.GetZone(1)
	if zone3.SnapcastGroupID != "g7" {
		t.Fatalf("expected rebind to g7 after the stream moved groups, got %q", zone3.SnapcastGroupID)
	}
}

func TestApplyNotification_GroupOnMuteIsIdempotentOnEcho(t *testing.T) {
	m, pub, _, _, fs := setup(t)
	defer fs.close()

	m.ReconcileGroups(context.Background())

	muteChanges := func() int {
		n := 0
		for _, note := range pub.notifications {
			if note.Kind == models.NotifyZoneMuteChanged {
				n++
			}
		}
		return n
	}

	params, _ := json.Marshal(map[string]interface{}{"id": "g1", "mute": true})
	m.ApplyNotification(snapserver.Notification{Method: snapserver.MethodGroupOnMute, Params: params})
	if got := muteChanges(); got != 1 {
		t.Fatalf("expected one ZoneMuteChanged, got %d", got)
	}

	m.ApplyNotification(snapserver.Notification{Method: snapserver.MethodGroupOnMute, Params: params})
	if got := muteChanges(); got != 1 {
		t.Fatalf("expected the repeated mute=true notification not to republish, got %d", got)
	}
}

func newTwoTrackPlaylist() *fakePlaylistProvider {
	return &fakePlaylistProvider{
		playlists: map[string][]models.PlaylistInfo{
			"radio": {{Source: "radio", Index: 0, PlaylistID: "p1", Name: "Morning Mix", TrackCount: 2}},
		},
		tracks: map[string][][]models.TrackInfo{
			"radio": {{
				{Title: "One", URL: "http://example.com/1.mp3", DurationMs: 1000},
				{Title: "Two", URL: "http://example.com/2.mp3", DurationMs: 1000},
			}},
		},
	}
}

func TestNextTrack_AdvancesThenPropagatesNotFoundPastTheEnd(t *testing.T) {
	m, _, _, _, fs := setup(t)
	defer fs.close()
	m.playlist = newTwoTrackPlaylist()

	if err := m.SetPlaylist(context.Background(), 1, "radio", 0); err != nil {
		t.Fatalf("SetPlaylist: %v", err)
	}
	zone, _ := m.GetZone(1)
	if zone.Track.Title != "One" {
		t.Fatalf("expected first track loaded, got %+v", zone.Track)
	}

	if err := m.NextTrack(context.Background(), 1); err != nil {
		t.Fatalf("NextTrack: %v", err)
	}
	zone, _ = m.GetZone(1)
	if zone.Track.Title != "Two" {
		t.Fatalf("expected second track, got %+v", zone.Track)
	}

	// There is no ceiling at this layer: past the last track, the Playlist
	// Provider's NotFound propagates unchanged rather than stopping the zone.
	err := m.NextTrack(context.Background(), 1)
	if apperr.KindOf(err) != apperr.NotFound {
		t.Fatalf("expected NotFound past the end of the playlist, got %v", err)
	}
	zone, _ = m.GetZone(1)
	if zone.Track.Title != "Two" {
		t.Fatalf("expected zone to remain on the last track after a failed advance, got %+v", zone.Track)
	}
}

func TestPreviousTrack_FloorClampedAtFirstTrack(t *testing.T) {
	m, _, _, _, fs := setup(t)
	defer fs.close()
	m.playlist = newTwoTrackPlaylist()

	if err := m.SetPlaylist(context.Background(), 1, "radio", 0); err != nil {
		t.Fatalf("SetPlaylist: %v", err)
	}

	// Already at the first track: stepping back is a no-op, not an error.
	if err := m.PreviousTrack(context.Background(), 1); err != nil {
		t.Fatalf("PreviousTrack at the first track: %v", err)
	}
	zone, _ := m.GetZone(1)
	if zone.Track.Title != "One" {
		t.Fatalf("expected to remain on the first track, got %+v", zone.Track)
	}
}

func TestSetTrack_JumpsToArbitraryIndex(t *testing.T) {
	m, _, _, _, fs := setup(t)
	defer fs.close()
	m.playlist = newTwoTrackPlaylist()

	if err := m.SetPlaylist(context.Background(), 1, "radio", 0); err != nil {
		t.Fatalf("SetPlaylist: %v", err)
	}

	if err := m.SetTrack(context.Background(), 1, 1); err != nil {
		t.Fatalf("SetTrack: %v", err)
	}
	zone, _ := m.GetZone(1)
	if zone.Track.Title != "Two" {
		t.Fatalf("expected track 1 (\"Two\") loaded, got %+v", zone.Track)
	}

	if err := m.SetTrack(context.Background(), 1, 5); apperr.KindOf(err) != apperr.NotFound {
		t.Fatalf("expected NotFound for an out-of-range track index, got %v", err)
	}
}

func TestSetTrack_NoActivePlaylistIsFailedPrecondition(t *testing.T) {
	m, _, _, _, fs := setup(t)
	defer fs.close()
	m.playlist = newTwoTrackPlaylist()

	if err := m.SetTrack(context.Background(), 1, 0); apperr.KindOf(err) != apperr.FailedPrecondition {
		t.Fatalf("expected FailedPrecondition with no active playlist, got %v", err)
	}
}

func TestVolumeUpAndDown_ClampAndDelta(t *testing.T) {
	m, _, _, scaler, fs := setup(t)
	defer fs.close()

	if err := m.SetVolume(context.Background(), 1, 50); err != nil {
		t.Fatalf("SetVolume: %v", err)
	}
	scaler.calls = nil

	if err := m.VolumeUp(context.Background(), 1, 20); err != nil {
		t.Fatalf("VolumeUp: %v", err)
	}
	zone, _ := m.GetZone(1)
	if zone.Volume != 70 {
		t.Fatalf("expected volume 70, got %d", zone.Volume)
	}

	if err := m.VolumeDown(context.Background(), 1, 90); err != nil {
		t.Fatalf("VolumeDown: %v", err)
	}
	zone, _ = m.GetZone(1)
	if zone.Volume != 0 {
		t.Fatalf("expected volume clamped to 0, got %d", zone.Volume)
	}
}

func TestSetMute_SkipsRPCWhenUnboundButStillUpdatesState(t *testing.T) {
	zones := []models.ZoneConfig{{Name: "Unbound", Sink: "/snapsinks/zone9"}}
	repo := repository.New() // no groups at all: SnapcastStreamID will never match
	pub := &testPublisher{}
	fs := newFakeSnapserver(t)
	defer fs.close()
	tr := snapserver.NewTransport(fs.ln.Addr().String(), time.Second)
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	m := New(zones, repo, tr, player.New(&fakeRunner{}, 0), pub, &fakeAssigner{}, &fakeScaler{}, nil, 50*time.Millisecond)

	if err := m.SetMute(context.Background(), 1, true); err != nil {
		t.Fatalf("SetMute on an unbound zone: %v", err)
	}
	zone, _ := m.GetZone(1)
	if !zone.Mute {
		t.Fatalf("expected local mute state to update despite no bound group, got %+v", zone)
	}
	select {
	case method := <-fs.methods:
		t.Fatalf("expected no RPC call for an unbound zone, got %s", method)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestToggleMute_FlipsCurrentState(t *testing.T) {
	m, _, _, _, fs := setup(t)
	defer fs.close()

	if err := m.ToggleMute(context.Background(), 1); err != nil {
		t.Fatalf("ToggleMute: %v", err)
	}
	zone, _ := m.GetZone(1)
	if !zone.Mute {
		t.Fatalf("expected mute true after first toggle, got %+v", zone)
	}

	if err := m.ToggleMute(context.Background(), 1); err != nil {
		t.Fatalf("ToggleMute (second): %v", err)
	}
	zone, _ = m.GetZone(1)
	if zone.Mute {
		t.Fatalf("expected mute false after second toggle, got %+v", zone)
	}
}

func TestFlagSetters_UpdateZoneState(t *testing.T) {
	m, _, _, _, fs := setup(t)
	defer fs.close()

	if err := m.SetTrackRepeat(context.Background(), 1, true); err != nil {
		t.Fatalf("SetTrackRepeat: %v", err)
	}
	if err := m.SetPlaylistRepeat(context.Background(), 1, true); err != nil {
		t.Fatalf("SetPlaylistRepeat: %v", err)
	}
	if err := m.SetPlaylistShuffle(context.Background(), 1, true); err != nil {
		t.Fatalf("SetPlaylistShuffle: %v", err)
	}

	zone, _ := m.GetZone(1)
	if !zone.TrackRepeat || !zone.PlaylistRepeat || !zone.PlaylistShuffle {
		t.Fatalf("expected all three flags set, got %+v", zone)
	}
}

func TestOnPlayerTrackInfoChanged_UpdatesMetadataMidPlayback(t *testing.T) {
	m, pub, _, _, fs := setup(t)
	defer fs.close()

	track := models.TrackInfo{Source: "url", URL: "http://example.com/a.mp3", DurationMs: 60000, Title: "Old Title"}
	if err := m.PlayTrack(context.Background(), 1, track); err != nil {
		t.Fatalf("PlayTrack: %v", err)
	}

	updated := track
	updated.Title = "New Title"
	updated.Artist = "New Artist"
	m.onPlayerEvent(player.Event{ZoneIndex: 1, Kind: player.EventTrackInfoChanged, Track: &updated})

	zone, _ := m.GetZone(1)
	if zone.Track.Title != "New Title" || zone.Track.Artist != "New Artist" {
		t.Fatalf("expected track metadata to update mid-playback, got %+v", zone.Track)
	}

	found := false
	for _, note := range pub.notifications {
		if note.Kind == models.NotifyZoneTrackMetadataChanged {
			found = true
		}
	}
	if !found {
		t.Fatal("expected ZoneTrackMetadataChanged to be published")
	}

	m.Stop(context.Background(), 1)
}
