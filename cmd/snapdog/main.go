// Command snapdog is the SnapDog multi-room audio control daemon: it
// drives a Snapcast server over JSON-RPC, exposes zone and client control
// to a WebSocket hub and optional MQTT/KNX bridges, and supervises ffmpeg
// subprocesses that feed each zone's Snapcast sink.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/snapdog/snapdog/internal/clientmgr"
	"github.com/snapdog/snapdog/internal/config"
	"github.com/snapdog/snapdog/internal/discovery"
	"github.com/snapdog/snapdog/internal/dispatch"
	"github.com/snapdog/snapdog/internal/knxbridge"
	"github.com/snapdog/snapdog/internal/models"
	"github.com/snapdog/snapdog/internal/mqttbridge"
	"github.com/snapdog/snapdog/internal/notify"
	"github.com/snapdog/snapdog/internal/player"
	"github.com/snapdog/snapdog/internal/playlist"
	"github.com/snapdog/snapdog/internal/repository"
	"github.com/snapdog/snapdog/internal/snapserver"
	"github.com/snapdog/snapdog/internal/statestore"
	"github.com/snapdog/snapdog/internal/wshub"
	"github.com/snapdog/snapdog/internal/zonemgr"
)

func main() {
	var (
		addr        = flag.String("addr", ":8080", "HTTP listen address for the WebSocket hub and health endpoint")
		cfgDir      = flag.String("config-dir", "", "config directory (default: ~/.config/snapdog)")
		debug       = flag.Bool("debug", false, "enable debug logging")
		mqttBroker  = flag.String("mqtt-broker", "", "MQTT broker URL (e.g. tcp://localhost:1883); empty disables the MQTT bridge")
		knxEnabled  = flag.Bool("knx", false, "enable the KNX bridge (logging-only writer until a real gateway is wired)")
		autoDiscover = flag.Bool("discover", false, "use mDNS to find the Snapcast server instead of config's snapcast_host/port")
	)
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	if *cfgDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			slog.Error("cannot determine home directory", "err", err)
			os.Exit(1)
		}
		*cfgDir = filepath.Join(home, ".config", "snapdog")
	}
	if err := os.MkdirAll(*cfgDir, 0755); err != nil {
		slog.Error("cannot create config directory", "path", *cfgDir, "err", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfgPath := filepath.Join(*cfgDir, "snapdog.yaml")
	watcher, err := config.NewWatcher(cfgPath, func(next *models.Config) {
		slog.Warn("config: reloaded on disk, but zone/client topology changes require a restart to take effect",
			"zones", len(next.Zones), "clients", len(next.Clients))
	})
	if err != nil {
		slog.Error("config load failed", "path", cfgPath, "err", err)
		os.Exit(1)
	}
	defer watcher.Close()
	cfg := watcher.Current()

	snapAddr := joinHostPort(cfg.System.SnapcastHost, cfg.System.SnapcastPort)
	if *autoDiscover {
		browser := discovery.NewBrowser()
		servers, err := browser.Discover(ctx, 3*time.Second)
		if err != nil || len(servers) == 0 {
			slog.Warn("mDNS discovery found no snapcast server, falling back to configured host", "err", err)
		} else {
			s := servers[0]
			snapAddr = joinHostPort(s.Host, s.Port)
			slog.Info("discovered snapcast server via mDNS", "name", s.Name, "addr", snapAddr)
		}
	}

	transport := snapserver.NewTransport(snapAddr, time.Duration(cfg.System.RequestTimeoutMs)*time.Millisecond)
	repo := repository.New()
	bus := notify.NewBus()

	catalogPaths := discoverCatalogs(*cfgDir)
	catalog, err := playlist.LoadStaticProvider(catalogPaths)
	if err != nil {
		slog.Warn("playlist catalog load failed, starting with an empty catalog", "err", err)
		catalog = playlist.NewStaticProvider(nil)
	}

	clients := clientmgr.New(cfg.Clients, cfg.Zones, repo, transport, bus)
	runner := &player.FFmpegRunner{}
	progressInterval := time.Duration(cfg.System.ProgressUpdateIntervalMs) * time.Millisecond
	mp := player.New(runner, progressInterval)
	zones := zonemgr.New(cfg.Zones, repo, transport, mp, bus, clients, clients, catalog, progressInterval)

	disp := dispatch.New(repo, clients, zones)
	disp.Wire(transport)

	go func() {
		if err := transport.Run(ctx, disp.OnSnapshot); err != nil && ctx.Err() == nil {
			slog.Warn("snapserver: transport run loop exited", "err", err)
		}
	}()

	var mqttBridge *mqttbridge.Bridge
	if *mqttBroker != "" {
		mqttBridge, err = mqttbridge.New(mqttbridge.Config{
			BrokerURL: *mqttBroker,
			ClientID:  "snapdog",
			TopicRoot: "snapdog",
			QoS:       1,
		}, bus)
		if err != nil {
			slog.Error("mqtt bridge connect failed", "broker", *mqttBroker, "err", err)
			os.Exit(1)
		}
		mqttCh, unsub := subscribeBus(bus)
		defer unsub()
		go mqttBridge.Run(mqttCh)
		defer mqttBridge.Close()
	}

	if *knxEnabled {
		knxCh, unsub := subscribeBus(bus)
		defer unsub()
		kb := knxbridge.New(knxbridge.LoggingWriter{}, knxbridge.AddressMap{})
		go kb.Run(ctx, knxCh)
	}

	zoneSnapshots := statestore.NewJSONPersister(filepath.Join(*cfgDir, "zones_state.json"))
	clientSnapshots := statestore.NewJSONPersister(filepath.Join(*cfgDir, "clients_state.json"))
	go runSnapshotLoop(ctx, zones, clients, zoneSnapshots, clientSnapshots)

	hub := wshub.New(bus)
	router := chi.NewRouter()
	router.Get("/ws", hub.ServeHTTP)
	router.Get("/healthz", healthHandler(transport))
	router.Get("/debug/state", debugStateHandler(zones, clients))

	srv := &http.Server{
		Addr:         *addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("snapdog listening", "addr", *addr, "snapcast", snapAddr, "config", *cfgDir)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down...")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()

	mp.StopAll()
	if err := zoneSnapshots.Flush(); err != nil {
		slog.Warn("zone state snapshot flush failed", "err", err)
	}
	if err := clientSnapshots.Flush(); err != nil {
		slog.Warn("client state snapshot flush failed", "err", err)
	}
	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Warn("server shutdown error", "err", err)
	}
	slog.Info("shutdown complete")
}

// runSnapshotLoop periodically writes the current zone/client state to disk
// for post-mortem inspection. Snapcast itself remains the source of truth
// for live playback and client connectivity, so these snapshots are never
// read back to restore state on the next start — they exist purely so an
// operator (or a support bundle) can see what SnapDog believed was true at
// the moment of a crash.
func runSnapshotLoop(ctx context.Context, zones *zonemgr.Manager, clients *clientmgr.Manager, zoneSnapshots, clientSnapshots *statestore.JSONPersister) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			persistSnapshot(zoneSnapshots, toBytes(zones.GetAllZones()))
			persistSnapshot(clientSnapshots, toBytesClients(clients.GetAllClients()))
		case <-ctx.Done():
			return
		}
	}
}

func persistSnapshot(p *statestore.JSONPersister, snapshot map[int][]byte) {
	if err := p.Save(snapshot); err != nil {
		slog.Warn("state snapshot save failed", "err", err)
	}
}

func toBytes(zones map[int]*models.ZoneState) map[int][]byte {
	out := make(map[int][]byte, len(zones))
	for i, z := range zones {
		if data, err := json.Marshal(z); err == nil {
			out[i] = data
		}
	}
	return out
}

func toBytesClients(clients map[int]*models.ClientState) map[int][]byte {
	out := make(map[int][]byte, len(clients))
	for i, c := range clients {
		if data, err := json.Marshal(c); err == nil {
			out[i] = data
		}
	}
	return out
}

// subscribeBus adapts the Bus's id/channel subscription into a plain
// receive-only channel plus an unsubscribe func, for bridges that only
// know how to range over a channel.
func subscribeBus(bus *notify.Bus) (<-chan models.Notification, func()) {
	id, ch := bus.Subscribe()
	return ch, func() { bus.Unsubscribe(id) }
}

func healthHandler(t *snapserver.Transport) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "connected"
		if !t.Connected() {
			status = "disconnected"
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"snapcast": status})
	}
}

func debugStateHandler(zones *zonemgr.Manager, clients *clientmgr.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"zones":   zones.GetAllZones(),
			"clients": clients.GetAllClients(),
		})
	}
}

// discoverCatalogs looks for <cfgDir>/playlists/<source>.yaml files and
// returns the source->path map LoadStaticProvider expects. A missing
// playlists directory yields an empty catalog rather than an error.
func discoverCatalogs(cfgDir string) map[string]string {
	dir := filepath.Join(cfgDir, "playlists")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	paths := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		source := name[:len(name)-len(ext)]
		paths[source] = filepath.Join(dir, name)
	}
	return paths
}

func joinHostPort(host string, port int) string {
	if host == "" {
		host = "localhost"
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}
