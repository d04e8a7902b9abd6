// Package discovery finds Snapcast servers on the LAN via mDNS/DNS-SD, the
// client-side counterpart to the service-registration pattern used
// elsewhere in this codebase for advertising a local HTTP service.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/grandcat/zeroconf"
)

// ServiceType is the DNS-SD service type Snapcast servers advertise their
// control port under.
const ServiceType = "_snapcast-jsonrpc._tcp"

// ServerInfo describes one discovered Snapcast server.
type ServerInfo struct {
	Name string
	Host string
	Port int
	IPv4 []string
}

// Browser finds Snapcast servers via mDNS.
type Browser struct{}

// NewBrowser returns a Browser.
func NewBrowser() *Browser { return &Browser{} }

// Discover browses for ServiceType for up to timeout and returns every
// distinct server seen. A zero or negative timeout defaults to 3s.
func (b *Browser) Discover(ctx context.Context, timeout time.Duration) ([]ServerInfo, error) {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("discovery: creating resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry, 16)
	browseCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := resolver.Browse(browseCtx, ServiceType, "local.", entries); err != nil {
		return nil, fmt.Errorf("discovery: browse: %w", err)
	}

	var found []ServerInfo
	seen := make(map[string]bool)
	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return found, nil
			}
			if entry == nil || seen[entry.Instance] {
				continue
			}
			seen[entry.Instance] = true
			ips := make([]string, 0, len(entry.AddrIPv4))
			for _, ip := range entry.AddrIPv4 {
				ips = append(ips, ip.String())
			}
			info := ServerInfo{Name: entry.Instance, Host: entry.HostName, Port: entry.Port, IPv4: ips}
			slog.Info("discovery: found snapcast server", "name", info.Name, "host", info.Host, "port", info.Port)
			found = append(found, info)
		case <-browseCtx.Done():
			return found, nil
		}
	}
}
