package minidsp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// mdnsServiceType is the service the minidsp-rs daemon's host is
	// expected to advertise its HTTP interface under.
	mdnsServiceType = "_http._tcp"
	mdnsDomain      = "local."

	// DefaultLocateTimeout bounds an mDNS browse.
	DefaultLocateTimeout = 10 * time.Second
)

// Endpoint is a candidate daemon location found via mDNS.
type Endpoint struct {
	Instance string
	Host     string
	IP       string
	Port     int
}

// LocateDaemons browses mDNS for minidsp-rs daemons. This is a fallback
// for networks where the UDP discovery broadcast is filtered; it finds
// the daemon host's HTTP service, not the announcement the registry
// normally consumes, so results are candidate endpoints rather than
// devices.
func LocateDaemons(ctx context.Context, timeout time.Duration) ([]Endpoint, error) {
	if timeout <= 0 {
		timeout = DefaultLocateTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	var endpoints []Endpoint

	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for entry := range entries {
			if ep, ok := parseServiceEntry(entry); ok {
				endpoints = append(endpoints, ep)
			}
		}
	}()

	if err := resolver.Browse(ctx, mdnsServiceType, mdnsDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse mDNS services: %w", err)
	}

	<-ctx.Done()
	<-collected
	return endpoints, nil
}

// parseServiceEntry filters browse results down to minidsp-rs instances.
func parseServiceEntry(entry *zeroconf.ServiceEntry) (Endpoint, bool) {
	name := strings.ToLower(entry.Instance + " " + entry.HostName)
	if !strings.Contains(name, "minidsp") {
		return Endpoint{}, false
	}

	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return Endpoint{}, false
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	return Endpoint{
		Instance: entry.Instance,
		Host:     entry.HostName,
		IP:       ip,
		Port:     port,
	}, true
}
