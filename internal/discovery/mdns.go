package discovery

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/muurk/smartdevice/internal/logging"
	"github.com/muurk/smartdevice/internal/session"
)

const (
	// DefaultMDNSService is the DNS-SD service announced by ESPHome nodes,
	// including ESPHome Bluetooth proxies
	DefaultMDNSService = "_esphomelib._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// drainTimeout bounds the wait for the resolver to release its entry
	// channel after the browse context ends
	drainTimeout = time.Second
)

// MDNSSource discovers network-attached devices announced over mDNS.
// Hosts do not report a signal strength, so observations carry 0.
type MDNSSource struct {
	// Service is the DNS-SD service type to browse
	Service string

	// Domain is the browse domain
	Domain string
}

// NewMDNSSource creates an mDNS source. An empty service selects
// DefaultMDNSService.
func NewMDNSSource(service string) *MDNSSource {
	if service == "" {
		service = DefaultMDNSService
	}
	return &MDNSSource{
		Service: service,
		Domain:  ServiceDomain,
	}
}

// Name implements Source
func (s *MDNSSource) Name() string {
	return "mdns"
}

// Scan implements Source. It browses until ctx is done.
func (s *MDNSSource) Scan(ctx context.Context, emit EmitFunc) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return &ScanError{
			Reason: session.ScanFailureReason{Code: session.FailureFeatureUnsupported},
			Err:    fmt.Errorf("failed to create mDNS resolver: %w", err),
		}
	}

	entries := make(chan *zeroconf.ServiceEntry)
	drained := make(chan struct{})

	go func() {
		defer close(drained)
		for entry := range entries {
			if obs, ok := parseServiceEntry(entry); ok {
				emit(obs)
			}
		}
	}()

	if err := resolver.Browse(ctx, s.Service, s.Domain, entries); err != nil {
		close(entries)
		return &ScanError{
			Reason: session.ScanFailureReason{Code: session.FailureInternalError},
			Err:    fmt.Errorf("failed to browse for mDNS services: %w", err),
		}
	}
	logging.LogSourceEvent(s.Name(), "browse_started")

	<-ctx.Done()

	select {
	case <-drained:
	case <-time.After(drainTimeout):
		logging.Warn("mDNS resolver did not release entry channel")
	}
	return nil
}

// parseServiceEntry converts a zeroconf service entry to an observation.
// The "mac" TXT record is the preferred identifier because it matches the
// address the same node uses over BLE; the host name is the fallback.
func parseServiceEntry(entry *zeroconf.ServiceEntry) (session.RawObservation, bool) {
	if entry == nil {
		return session.RawObservation{}, false
	}

	txt := parseTXT(entry.Text)

	identifier := ""
	if mac := txt["mac"]; mac != "" {
		identifier = formatMAC(mac)
	}
	if identifier == "" {
		identifier = strings.TrimSuffix(entry.HostName, ".")
	}
	if identifier == "" {
		return session.RawObservation{}, false
	}

	name := txt["friendly_name"]
	if name == "" {
		name = entry.Instance
	}

	return session.RawObservation{
		Identifier:  identifier,
		DisplayName: name,
	}, true
}

// parseTXT splits "key=value" TXT records into a map. Keys without a value
// map to the empty string.
func parseTXT(records []string) map[string]string {
	metadata := make(map[string]string, len(records))
	for _, txt := range records {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}
	return metadata
}

// formatMAC normalizes a MAC address to upper-case colon-separated form.
// Twelve bare hex digits ("a4cf12b3c4d5") are split into octets; anything
// else is only upper-cased.
func formatMAC(mac string) string {
	mac = strings.ToUpper(strings.TrimSpace(mac))
	if len(mac) != 12 {
		return mac
	}
	if _, err := hex.DecodeString(mac); err != nil {
		return mac
	}

	octets := make([]string, 0, 6)
	for i := 0; i < 12; i += 2 {
		octets = append(octets, mac[i:i+2])
	}
	return strings.Join(octets, ":")
}
