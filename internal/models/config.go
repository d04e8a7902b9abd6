// Package models defines the data structures shared across SnapDog's core:
// static configuration, mutable zone/client state, the Snapcast mirror, and
// notification records.
package models

import (
	"fmt"
	"strings"
)

// ZoneConfig is immutable configuration for one zone, read at startup.
type ZoneConfig struct {
	Name          string `yaml:"name"`
	Sink          string `yaml:"sink"`
	DefaultStream string `yaml:"default_stream,omitempty"`
}

// ClientConfig is immutable configuration for one client, read at startup.
type ClientConfig struct {
	Name        string `yaml:"name"`
	MAC         string `yaml:"mac"`
	DefaultZone int    `yaml:"default_zone"`
	Icon        string `yaml:"icon,omitempty"`
}

// SystemConfig holds process-wide tunables.
type SystemConfig struct {
	ProgressUpdateIntervalMs int    `yaml:"progress_update_interval_ms"`
	SnapcastHost             string `yaml:"snapcast_host"`
	SnapcastPort             int    `yaml:"snapcast_port"`
	RequestTimeoutMs         int    `yaml:"request_timeout_ms"`
}

// Config is the full validated configuration tree.
type Config struct {
	Zones   []ZoneConfig   `yaml:"zones"`
	Clients []ClientConfig `yaml:"clients"`
	System  SystemConfig   `yaml:"system"`
}

// Validate checks structural invariants that the loader cannot express in
// the YAML schema itself: non-empty names, well-formed MACs, in-range
// default zones, and unique sinks/MACs.
func (c *Config) Validate() error {
	if len(c.Zones) == 0 {
		return fmt.Errorf("config: at least one zone is required")
	}
	seenSinks := make(map[string]bool, len(c.Zones))
	for i, z := range c.Zones {
		if strings.TrimSpace(z.Name) == "" {
			return fmt.Errorf("config: zone %d: name is required", i+1)
		}
		if strings.TrimSpace(z.Sink) == "" {
			return fmt.Errorf("config: zone %d (%s): sink is required", i+1, z.Name)
		}
		if seenSinks[z.Sink] {
			return fmt.Errorf("config: duplicate sink %q", z.Sink)
		}
		seenSinks[z.Sink] = true
	}

	seenMACs := make(map[string]bool, len(c.Clients))
	for i, cl := range c.Clients {
		if strings.TrimSpace(cl.Name) == "" {
			return fmt.Errorf("config: client %d: name is required", i+1)
		}
		mac := NormalizeMAC(cl.MAC)
		if !looksLikeMAC(mac) {
			return fmt.Errorf("config: client %d (%s): malformed mac %q", i+1, cl.Name, cl.MAC)
		}
		if seenMACs[mac] {
			return fmt.Errorf("config: duplicate mac %q", mac)
		}
		seenMACs[mac] = true
		if cl.DefaultZone < 1 || cl.DefaultZone > len(c.Zones) {
			return fmt.Errorf("config: client %d (%s): default_zone %d out of range 1-%d",
				i+1, cl.Name, cl.DefaultZone, len(c.Zones))
		}
	}

	if c.System.ProgressUpdateIntervalMs <= 0 {
		c.System.ProgressUpdateIntervalMs = 500
	}
	if c.System.RequestTimeoutMs <= 0 {
		c.System.RequestTimeoutMs = 5000
	}
	if c.System.SnapcastPort == 0 {
		c.System.SnapcastPort = 1705
	}
	return nil
}

// NormalizeMAC trims surrounding whitespace from a MAC address and
// lowercases it for comparison; separators are left as they are.
func NormalizeMAC(mac string) string {
	return strings.ToLower(strings.TrimSpace(mac))
}

func looksLikeMAC(mac string) bool {
	parts := strings.Split(mac, ":")
	if len(parts) != 6 {
		return false
	}
	for _, p := range parts {
		if len(p) != 2 {
			return false
		}
		for _, r := range p {
			if !(r >= '0' && r <= '9') && !(r >= 'a' && r <= 'f') {
				return false
			}
		}
	}
	return true
}

// StreamIDFromSink derives the Snapcast stream id from a sink path's
// basename. "/snapsinks/zone3" -> "Zone3"; any other basename passes
// through unchanged. This is the only place the core interprets file paths.
func StreamIDFromSink(sink string) string {
	base := sink
	if idx := strings.LastIndexByte(sink, '/'); idx >= 0 {
		base = sink[idx+1:]
	}
	lower := strings.ToLower(base)
	if strings.HasPrefix(lower, "zone") {
		suffix := base[len("zone"):]
		return "Zone" + suffix
	}
	return base
}
