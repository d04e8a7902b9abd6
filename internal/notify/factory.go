package notify

import (
	"time"

	"github.com/snapdog/snapdog/internal/models"
)

// Factory builds the typed Notification records every protocol surface
// receives. There is exactly one constructor per (entity, attribute) pair;
// callers never build a models.Notification by hand, so every surface sees
// the same record shape for the same change.
type Factory struct{}

// NewFactory returns a Status Factory. It carries no state — every method
// is a pure constructor stamped with the current time.
func NewFactory() Factory { return Factory{} }

func (Factory) now() time.Time { return time.Now().UTC() }

func (f Factory) ZonePlaybackChanged(zoneIndex int, state models.PlaybackState) models.Notification {
	return models.Notification{
		Kind:         models.NotifyZonePlaybackChanged,
		TimestampUTC: f.now(),
		ZonePlayback: &models.ZonePlaybackPayload{ZoneIndex: zoneIndex, State: state},
	}
}

func (f Factory) ZoneVolumeChanged(zoneIndex, volume int) models.Notification {
	return models.Notification{
		Kind:         models.NotifyZoneVolumeChanged,
		TimestampUTC: f.now(),
		ZoneVolume:   &models.ZoneVolumePayload{ZoneIndex: zoneIndex, Volume: volume},
	}
}

func (f Factory) ZoneMuteChanged(zoneIndex int, mute bool) models.Notification {
	return models.Notification{
		Kind:         models.NotifyZoneMuteChanged,
		TimestampUTC: f.now(),
		ZoneMute:     &models.ZoneMutePayload{ZoneIndex: zoneIndex, Mute: mute},
	}
}

func (f Factory) ZoneTrackChanged(zoneIndex int, track *models.TrackInfo) models.Notification {
	return models.Notification{
		Kind:         models.NotifyZoneTrackChanged,
		TimestampUTC: f.now(),
		ZoneTrack:    &models.ZoneTrackPayload{ZoneIndex: zoneIndex, Track: track},
	}
}

func (f Factory) ZonePlaylistChanged(zoneIndex int, playlist *models.PlaylistInfo) models.Notification {
	return models.Notification{
		Kind:         models.NotifyZonePlaylistChanged,
		TimestampUTC: f.now(),
		ZonePlaylist: &models.ZonePlaylistPayload{ZoneIndex: zoneIndex, Playlist: playlist},
	}
}

func (f Factory) ZoneProgressChanged(zoneIndex int, positionMs int64, progressPercent float64) models.Notification {
	return models.Notification{
		Kind:         models.NotifyZoneProgressChanged,
		TimestampUTC: f.now(),
		ZoneProgress: &models.ZoneProgressPayload{ZoneIndex: zoneIndex, PositionMs: positionMs, ProgressPercent: progressPercent},
	}
}

func (f Factory) ZoneTrackMetadataChanged(zoneIndex int, title, artist, album string) models.Notification {
	return models.Notification{
		Kind:              models.NotifyZoneTrackMetadataChanged,
		TimestampUTC:      f.now(),
		ZoneTrackMetadata: &models.ZoneTrackMetadataPayload{ZoneIndex: zoneIndex, Title: title, Artist: artist, Album: album},
	}
}

func (f Factory) ZoneTrackPlayingStatusChanged(zoneIndex int, isPlaying bool) models.Notification {
	return models.Notification{
		Kind:                   models.NotifyZoneTrackPlayingStatusChanged,
		TimestampUTC:           f.now(),
		ZoneTrackPlayingStatus: &models.ZoneTrackPlayingStatusPayload{ZoneIndex: zoneIndex, IsPlaying: isPlaying},
	}
}

func (f Factory) ZoneTrackProgressChanged(zoneIndex int, positionMs, durationMs int64) models.Notification {
	return models.Notification{
		Kind:              models.NotifyZoneTrackProgressChanged,
		TimestampUTC:      f.now(),
		ZoneTrackProgress: &models.ZoneTrackProgressPayload{ZoneIndex: zoneIndex, PositionMs: positionMs, DurationMs: durationMs},
	}
}

func (f Factory) ClientVolumeChanged(clientIndex, volume int) models.Notification {
	return models.Notification{
		Kind:         models.NotifyClientVolumeChanged,
		TimestampUTC: f.now(),
		ClientVolume: &models.ClientVolumePayload{ClientIndex: clientIndex, Volume: volume},
	}
}

func (f Factory) ClientMuteChanged(clientIndex int, mute bool) models.Notification {
	return models.Notification{
		Kind:         models.NotifyClientMuteChanged,
		TimestampUTC: f.now(),
		ClientMute:   &models.ClientMutePayload{ClientIndex: clientIndex, Mute: mute},
	}
}

func (f Factory) ClientLatencyChanged(clientIndex, latencyMs int) models.Notification {
	return models.Notification{
		Kind:          models.NotifyClientLatencyChanged,
		TimestampUTC:  f.now(),
		ClientLatency: &models.ClientLatencyPayload{ClientIndex: clientIndex, LatencyMs: latencyMs},
	}
}

func (f Factory) ClientConnectionChanged(clientIndex int, connected bool) models.Notification {
	return models.Notification{
		Kind:             models.NotifyClientConnectionChanged,
		TimestampUTC:     f.now(),
		ClientConnection: &models.ClientConnectionPayload{ClientIndex: clientIndex, Connected: connected},
	}
}

func (f Factory) ClientZoneChanged(clientIndex, oldZone, newZone int) models.Notification {
	return models.Notification{
		Kind:         models.NotifyClientZoneChanged,
		TimestampUTC: f.now(),
		ClientZone:   &models.ClientZonePayload{ClientIndex: clientIndex, OldZone: oldZone, NewZone: newZone},
	}
}

func (f Factory) ClientNameChanged(clientIndex int, name string) models.Notification {
	return models.Notification{
		Kind:         models.NotifyClientNameChanged,
		TimestampUTC: f.now(),
		ClientName:   &models.ClientNamePayload{ClientIndex: clientIndex, Name: name},
	}
}

func (f Factory) ClientStateChanged(clientIndex int, state models.ClientState) models.Notification {
	return models.Notification{
		Kind:         models.NotifyClientStateChanged,
		TimestampUTC: f.now(),
		ClientState:  &models.ClientStatePayload{ClientIndex: clientIndex, State: state},
	}
}

func (f Factory) SystemStatus(healthy bool, message string) models.Notification {
	return models.Notification{
		Kind:         models.NotifySystemStatus,
		TimestampUTC: f.now(),
		SystemStatus: &models.SystemStatusPayload{Healthy: healthy, Message: message},
	}
}

func (f Factory) SystemVersion(version string) models.Notification {
	return models.Notification{
		Kind:          models.NotifySystemVersion,
		TimestampUTC:  f.now(),
		SystemVersion: &models.SystemVersionPayload{Version: version},
	}
}

func (f Factory) SystemServerStats(connectedClients, zoneCount int, uptimeSeconds int64) models.Notification {
	return models.Notification{
		Kind:              models.NotifySystemServerStats,
		TimestampUTC:      f.now(),
		SystemServerStats: &models.SystemServerStatsPayload{ConnectedClients: connectedClients, ZoneCount: zoneCount, UptimeSeconds: uptimeSeconds},
	}
}

func (f Factory) SystemError(kind, message string) models.Notification {
	return models.Notification{
		Kind:         models.NotifySystemError,
		TimestampUTC: f.now(),
		SystemError:  &models.SystemErrorPayload{Kind: kind, Message: message},
	}
}

func (f Factory) ZonesInfo(zones []models.ZoneSummary) models.Notification {
	return models.Notification{
		Kind:         models.NotifyZonesInfo,
		TimestampUTC: f.now(),
		ZonesInfo:    &models.ZonesInfoPayload{Zones: zones},
	}
}

func (f Factory) CommandStatus(commandID string, success bool) models.Notification {
	return models.Notification{
		Kind:          models.NotifyCommandStatus,
		TimestampUTC:  f.now(),
		CommandStatus: &models.CommandStatusPayload{CommandID: commandID, Success: success},
	}
}

func (f Factory) CommandError(commandID, kind, message string) models.Notification {
	return models.Notification{
		Kind:         models.NotifyCommandError,
		TimestampUTC: f.now(),
		CommandError: &models.CommandErrorPayload{CommandID: commandID, Kind: kind, Message: message},
	}
}
