package models

import "time"

// NotificationKind tags the concrete payload carried by a Notification so
// subscribers can switch on it without type assertions on the Go type
// itself (new wire-facing fields can then be added to a payload struct
// without breaking switches elsewhere).
type NotificationKind string

const (
	NotifyZonePlaybackChanged NotificationKind = "zone_playback_changed"
	NotifyZoneVolumeChanged   NotificationKind = "zone_volume_changed"
	NotifyZoneMuteChanged     NotificationKind = "zone_mute_changed"
	NotifyZoneTrackChanged    NotificationKind = "zone_track_changed"
	NotifyZonePlaylistChanged NotificationKind = "zone_playlist_changed"
	NotifyZoneProgressChanged NotificationKind = "zone_progress_changed"

	NotifyZoneTrackMetadataChanged      NotificationKind = "zone_track_metadata_changed"
	NotifyZoneTrackPlayingStatusChanged NotificationKind = "zone_track_playing_status_changed"
	NotifyZoneTrackProgressChanged      NotificationKind = "zone_track_progress_changed"

	NotifyClientVolumeChanged     NotificationKind = "client_volume_changed"
	NotifyClientMuteChanged       NotificationKind = "client_mute_changed"
	NotifyClientLatencyChanged    NotificationKind = "client_latency_changed"
	NotifyClientConnectionChanged NotificationKind = "client_connection_changed"
	NotifyClientZoneChanged       NotificationKind = "client_zone_changed"
	NotifyClientNameChanged       NotificationKind = "client_name_changed"
	NotifyClientStateChanged      NotificationKind = "client_state_changed"

	NotifySystemStatus      NotificationKind = "system_status"
	NotifySystemVersion     NotificationKind = "system_version"
	NotifySystemServerStats NotificationKind = "system_server_stats"
	NotifySystemError       NotificationKind = "system_error"
	NotifyZonesInfo         NotificationKind = "zones_info"

	NotifyCommandStatus NotificationKind = "command_status"
	NotifyCommandError  NotificationKind = "command_error"
)

// Notification is the single record type every protocol surface (MQTT,
// WebSocket, KNX, internal subscribers) receives from the Notification Bus.
// Exactly one of the payload fields below is non-nil, selected by Kind — the
// Status Factory is the only code allowed to construct these.
type Notification struct {
	Kind         NotificationKind
	TimestampUTC time.Time

	ZonePlayback *ZonePlaybackPayload
	ZoneVolume   *ZoneVolumePayload
	ZoneMute     *ZoneMutePayload
	ZoneTrack    *ZoneTrackPayload
	ZonePlaylist *ZonePlaylistPayload
	ZoneProgress *ZoneProgressPayload

	ZoneTrackMetadata      *ZoneTrackMetadataPayload
	ZoneTrackPlayingStatus *ZoneTrackPlayingStatusPayload
	ZoneTrackProgress      *ZoneTrackProgressPayload

	ClientVolume     *ClientVolumePayload
	ClientMute       *ClientMutePayload
	ClientLatency    *ClientLatencyPayload
	ClientConnection *ClientConnectionPayload
	ClientZone       *ClientZonePayload
	ClientName       *ClientNamePayload
	ClientState      *ClientStatePayload

	SystemStatus      *SystemStatusPayload
	SystemVersion     *SystemVersionPayload
	SystemServerStats *SystemServerStatsPayload
	SystemError       *SystemErrorPayload
	ZonesInfo         *ZonesInfoPayload

	CommandStatus *CommandStatusPayload
	CommandError  *CommandErrorPayload
}

type ZonePlaybackPayload struct {
	ZoneIndex int
	State     PlaybackState
}

type ZoneVolumePayload struct {
	ZoneIndex int
	Volume    int
}

type ZoneMutePayload struct {
	ZoneIndex int
	Mute      bool
}

type ZoneTrackPayload struct {
	ZoneIndex int
	Track     *TrackInfo
}

type ZonePlaylistPayload struct {
	ZoneIndex int
	Playlist  *PlaylistInfo
}

type ZoneProgressPayload struct {
	ZoneIndex       int
	PositionMs      int64
	ProgressPercent float64
}

// ZoneTrackMetadataPayload carries a track metadata update reported by the
// player after playback has already started (e.g. stream metadata arriving
// mid-playback), distinct from the full ZoneTrackChanged fired on load.
type ZoneTrackMetadataPayload struct {
	ZoneIndex int
	Title     string
	Artist    string
	Album     string
}

type ZoneTrackPlayingStatusPayload struct {
	ZoneIndex int
	IsPlaying bool
}

type ZoneTrackProgressPayload struct {
	ZoneIndex  int
	PositionMs int64
	DurationMs int64
}

type ClientVolumePayload struct {
	ClientIndex int
	Volume      int
}

type ClientMutePayload struct {
	ClientIndex int
	Mute        bool
}

type ClientLatencyPayload struct {
	ClientIndex int
	LatencyMs   int
}

type ClientConnectionPayload struct {
	ClientIndex int
	Connected   bool
}

type ClientZonePayload struct {
	ClientIndex int
	OldZone     int
	NewZone     int
}

type ClientNamePayload struct {
	ClientIndex int
	Name        string
}

type ClientStatePayload struct {
	ClientIndex int
	State       ClientState
}

type SystemStatusPayload struct {
	Healthy bool
	Message string
}

type SystemVersionPayload struct {
	Version string
}

type SystemServerStatsPayload struct {
	ConnectedClients int
	ZoneCount        int
	UptimeSeconds    int64
}

type SystemErrorPayload struct {
	Kind    string
	Message string
}

type ZonesInfoPayload struct {
	Zones []ZoneSummary
}

// ZoneSummary is the condensed per-zone projection used by full-state
// snapshots (e.g. a freshly connected WebSocket client).
type ZoneSummary struct {
	ZoneIndex int
	Name      string
	State     ZoneState
}

type CommandStatusPayload struct {
	CommandID string
	Success   bool
}

type CommandErrorPayload struct {
	CommandID string
	Kind      string
	Message   string
}
