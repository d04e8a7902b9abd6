package models

import "time"

// ClientState is the mutable, in-memory record for one configured client.
// clientIndex itself is not stored here — it is the key callers use to look
// this record up, fixed by the client's position in ClientConfig at startup.
type ClientState struct {
	Name string
	Icon string
	MAC  string

	SnapcastID string
	Connected  bool

	Volume int
	Mute   bool

	LatencyMs int

	ZoneIndex int

	ConfiguredSnapcastName string
	LastSeenUTC            time.Time

	HostIPAddress string
	HostName      string
	HostOS        string
	HostArch      string

	TimestampUTC time.Time
}

// Clone returns a value copy suitable for copy-on-write updates. ClientState
// has no nested reference types today, but Clone exists so callers never
// depend on that staying true.
func (c *ClientState) Clone() *ClientState {
	cp := *c
	return &cp
}
