// Package mqttbridge fans notifications out to an MQTT broker, one topic
// per (entity, attribute) pair, mirroring the per-topic publish pattern
// used for presence/state fan-out elsewhere in the retrieval pack.
package mqttbridge

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/snapdog/snapdog/internal/models"
	"github.com/snapdog/snapdog/internal/notify"
)

// Config holds the broker connection settings.
type Config struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
	TopicRoot string // default "snapdog"
	QoS       byte   // default 1
}

// Bridge republishes every notification handed to Run to MQTT under
// TopicRoot. The caller subscribes to the notify.Bus and passes the
// subscription channel to Run.
type Bridge struct {
	cfg    Config
	client mqtt.Client
	bus    *notify.Bus
}

// New connects to the broker described by cfg. The connection is
// established synchronously so startup fails fast if the broker is
// unreachable.
func New(cfg Config, bus *notify.Bus) (*Bridge, error) {
	if cfg.TopicRoot == "" {
		cfg.TopicRoot = "snapdog"
	}
	if cfg.QoS == 0 {
		cfg.QoS = 1
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqttbridge: connecting to %s: %w", cfg.BrokerURL, token.Error())
	}

	return &Bridge{cfg: cfg, client: client, bus: bus}, nil
}

// Run consumes notifications from ch until it is closed, publishing each
// one. Intended to run in its own goroutine, one per bus subscription.
func (b *Bridge) Run(ch <-chan models.Notification) {
	for n := range ch {
		topic, payload, err := encode(b.cfg.TopicRoot, n)
		if err != nil {
			slog.Error("mqttbridge: encoding notification", "kind", n.Kind, "err", err)
			continue
		}
		token := b.client.Publish(topic, b.cfg.QoS, true, payload)
		if token.Wait() && token.Error() != nil {
			slog.Error("mqttbridge: publish failed", "topic", topic, "err", token.Error())
		}
	}
}

// Close disconnects from the broker, waiting up to 250ms for in-flight
// publishes to drain.
func (b *Bridge) Close() {
	b.client.Disconnect(250)
}

// encode picks the topic suffix for n's kind and marshals its payload.
func encode(root string, n models.Notification) (string, []byte, error) {
	topic, payload := topicAndPayload(root, n)
	if payload == nil {
		return "", nil, fmt.Errorf("mqttbridge: notification kind %q carries no payload", n.Kind)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", nil, err
	}
	return topic, data, nil
}

func topicAndPayload(root string, n models.Notification) (string, interface{}) {
	switch n.Kind {
	case models.NotifyZonePlaybackChanged:
		return fmt.Sprintf("%s/zones/%d/playback", root, n.ZonePlayback.ZoneIndex), n.ZonePlayback
	case models.NotifyZoneVolumeChanged:
		return fmt.Sprintf("%s/zones/%d/volume", root, n.ZoneVolume.ZoneIndex), n.ZoneVolume
	case models.NotifyZoneMuteChanged:
		return fmt.Sprintf("%s/zones/%d/mute", root, n.ZoneMute.ZoneIndex), n.ZoneMute
	case models.NotifyZoneTrackChanged:
		return fmt.Sprintf("%s/zones/%d/track", root, n.ZoneTrack.ZoneIndex), n.ZoneTrack
	case models.NotifyZonePlaylistChanged:
		return fmt.Sprintf("%s/zones/%d/playlist", root, n.ZonePlaylist.ZoneIndex), n.ZonePlaylist
	case models.NotifyZoneProgressChanged:
		return fmt.Sprintf("%s/zones/%d/progress", root, n.ZoneProgress.ZoneIndex), n.ZoneProgress
	case models.NotifyZoneTrackMetadataChanged:
		return fmt.Sprintf("%s/zones/%d/track/metadata", root, n.ZoneTrackMetadata.ZoneIndex), n.ZoneTrackMetadata
	case models.NotifyZoneTrackPlayingStatusChanged:
		return fmt.Sprintf("%s/zones/%d/track/playing", root, n.ZoneTrackPlayingStatus.ZoneIndex), n.ZoneTrackPlayingStatus
	case models.NotifyZoneTrackProgressChanged:
		return fmt.Sprintf("%s/zones/%d/track/progress", root, n.ZoneTrackProgress.ZoneIndex), n.ZoneTrackProgress
	case models.NotifyClientVolumeChanged:
		return fmt.Sprintf("%s/clients/%d/volume", root, n.ClientVolume.ClientIndex), n.ClientVolume
	case models.NotifyClientMuteChanged:
		return fmt.Sprintf("%s/clients/%d/mute", root, n.ClientMute.ClientIndex), n.ClientMute
	case models.NotifyClientLatencyChanged:
		return fmt.Sprintf("%s/clients/%d/latency", root, n.ClientLatency.ClientIndex), n.ClientLatency
	case models.NotifyClientConnectionChanged:
		return fmt.Sprintf("%s/clients/%d/connection", root, n.ClientConnection.ClientIndex), n.ClientConnection
	case models.NotifyClientZoneChanged:
		return fmt.Sprintf("%s/clients/%d/zone", root, n.ClientZone.ClientIndex), n.ClientZone
	case models.NotifyClientNameChanged:
		return fmt.Sprintf("%s/clients/%d/name", root, n.ClientName.ClientIndex), n.ClientName
	case models.NotifyClientStateChanged:
		return fmt.Sprintf("%s/clients/%d/state", root, n.ClientState.ClientIndex), n.ClientState
	case models.NotifySystemStatus:
		return fmt.Sprintf("%s/system/status", root), n.SystemStatus
	case models.NotifySystemVersion:
		return fmt.Sprintf("%s/system/version", root), n.SystemVersion
	case models.NotifySystemServerStats:
		return fmt.Sprintf("%s/system/stats", root), n.SystemServerStats
	case models.NotifySystemError:
		return fmt.Sprintf("%s/system/error", root), n.SystemError
	case models.NotifyZonesInfo:
		return fmt.Sprintf("%s/zones", root), n.ZonesInfo
	case models.NotifyCommandStatus:
		return fmt.Sprintf("%s/commands/status", root), n.CommandStatus
	case models.NotifyCommandError:
		return fmt.Sprintf("%s/commands/error", root), n.CommandError
	default:
		return "", nil
	}
}
