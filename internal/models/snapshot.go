package models

// This file mirrors the Snapcast server's own JSON-RPC state shape. Field
// names follow the wire protocol, not Go convention, so the transport layer
// can unmarshal directly into them.

// Host identifies the machine a Snapcast client is running on.
type Host struct {
	MAC  string `json:"mac"`
	IP   string `json:"ip"`
	Name string `json:"name"`
	OS   string `json:"os"`
	Arch string `json:"arch"`
}

// ClientVolume is a client's volume as Snapcast reports it.
type ClientVolume struct {
	Percent int  `json:"percent"`
	Muted   bool `json:"muted"`
}

// ClientConfigSnap is the portion of client config Snapcast itself owns.
type ClientConfigSnap struct {
	Volume  ClientVolume `json:"volume"`
	Latency int          `json:"latency"`
	Name    string       `json:"name"`
}

// SnapClient is one client entry as reported by Snapcast, nested under a
// Group. Its Id is the Snapcast-assigned opaque identifier; mapping to a
// SnapDog clientIndex happens only by Host.MAC.
type SnapClient struct {
	ID        string           `json:"id"`
	Host      Host             `json:"host"`
	Config    ClientConfigSnap `json:"config"`
	Connected bool             `json:"connected"`
	LastSeen  int64            `json:"lastSeen"`
}

// Group is a Snapcast group: a set of clients bound to one stream.
type Group struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	StreamID string       `json:"stream_id"`
	Muted    bool         `json:"muted"`
	Clients  []SnapClient `json:"clients"`
}

// Stream is a Snapcast source stream.
type Stream struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	URI    string `json:"uri"`
}

// Server is the full Snapcast server snapshot as returned by Server.GetStatus.
type Server struct {
	Host    Host     `json:"host"`
	Groups  []Group  `json:"groups"`
	Streams []Stream `json:"streams"`
}

// FindClientByMAC scans every group for a client whose Host.MAC matches mac
// (already normalized). Returns the client, its owning group id, and
// whether it was found at all.
func (s *Server) FindClientByMAC(mac string) (SnapClient, string, bool) {
	for _, g := range s.Groups {
		for _, c := range g.Clients {
			if NormalizeMAC(c.Host.MAC) == mac {
				return c, g.ID, true
			}
		}
	}
	return SnapClient{}, "", false
}

// GroupByID returns the group with the given id, if present.
func (s *Server) GroupByID(id string) (Group, bool) {
	for _, g := range s.Groups {
		if g.ID == id {
			return g, true
		}
	}
	return Group{}, false
}
