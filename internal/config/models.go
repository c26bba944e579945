package config

import (
	"sort"
	"strings"
	"time"

	"github.com/muurk/smartdevice/internal/session"
)

// Default preference values
const (
	DefaultScanTimeout  = 30   // seconds
	DefaultSource       = "ble"
	DefaultServeAddr    = ":8080"
	DefaultPushInterval = 1000 // milliseconds
)

// Registry represents the entire user configuration file.
// This stores remembered devices and application preferences.
type Registry struct {
	Version     int                `yaml:"version"`
	Devices     map[string]*Device `yaml:"devices,omitempty"` // Keyed by upper-case device address
	Preferences *Preferences       `yaml:"preferences,omitempty"`

	path string // file the registry was loaded from, empty for the default location
}

// Device represents what is remembered about a single device between scans.
type Device struct {
	Nickname  string    `yaml:"nickname,omitempty"`   // User-friendly name
	LastName  string    `yaml:"last_name,omitempty"`  // Last advertised name
	LastRSSI  int       `yaml:"last_rssi,omitempty"`  // Signal strength at the last sighting (dBm)
	LastSeen  time.Time `yaml:"last_seen,omitempty"`  // Last sighting time
	TimesSeen int       `yaml:"times_seen,omitempty"` // Number of remembered scans the device appeared in
}

// DisplayName returns the nickname, falling back to the last advertised name
func (d *Device) DisplayName() string {
	if d.Nickname != "" {
		return d.Nickname
	}
	if d.LastName != "" {
		return d.LastName
	}
	return session.UnknownName
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	ScanTimeout  int    `yaml:"scan_timeout"`           // Scan auto-stop in seconds; an explicit 0 disables it
	Source       string `yaml:"source"`                 // Default scan source: ble, mdns or replay
	MDNSService  string `yaml:"mdns_service,omitempty"` // DNS-SD service browsed by the mdns source
	ServeAddr    string `yaml:"serve_addr"`             // Listen address for the serve command
	PushInterval int    `yaml:"push_interval"`          // WebSocket snapshot interval in milliseconds
}

// NewPreferences returns preferences with default values
func NewPreferences() *Preferences {
	return &Preferences{
		ScanTimeout:  DefaultScanTimeout,
		Source:       DefaultSource,
		ServeAddr:    DefaultServeAddr,
		PushInterval: DefaultPushInterval,
	}
}

// ScanTimeoutDuration returns ScanTimeout as a duration
func (p *Preferences) ScanTimeoutDuration() time.Duration {
	return time.Duration(p.ScanTimeout) * time.Second
}

// PushIntervalDuration returns PushInterval as a duration, using the
// default for non-positive values
func (p *Preferences) PushIntervalDuration() time.Duration {
	if p.PushInterval <= 0 {
		return DefaultPushInterval * time.Millisecond
	}
	return time.Duration(p.PushInterval) * time.Millisecond
}

// applyDefaults fills in values missing from an older or hand-edited file
func (p *Preferences) applyDefaults() {
	if p.Source == "" {
		p.Source = DefaultSource
	}
	if p.ServeAddr == "" {
		p.ServeAddr = DefaultServeAddr
	}
	if p.PushInterval <= 0 {
		p.PushInterval = DefaultPushInterval
	}
	if p.ScanTimeout < 0 {
		p.ScanTimeout = DefaultScanTimeout
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     1,
		Devices:     make(map[string]*Device),
		Preferences: NewPreferences(),
	}
}

// Path returns the file the registry was loaded from or will be saved to
func (r *Registry) Path() (string, error) {
	if r.path != "" {
		return r.path, nil
	}
	return GetConfigPath()
}

func normalizeAddress(address string) string {
	return strings.ToUpper(strings.TrimSpace(address))
}

// GetDevice retrieves device metadata by address.
// Returns nil if the device doesn't exist in the registry.
func (r *Registry) GetDevice(address string) *Device {
	return r.Devices[normalizeAddress(address)]
}

// EnsureDevice ensures a device entry exists in the registry.
// If the device doesn't exist, creates a new empty entry.
// Returns the device entry (existing or newly created).
func (r *Registry) EnsureDevice(address string) *Device {
	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}

	address = normalizeAddress(address)
	if device, exists := r.Devices[address]; exists {
		return device
	}

	device := &Device{}
	r.Devices[address] = device
	return device
}

// SetDeviceNickname sets a user-friendly nickname for a device.
// An empty nickname clears it.
func (r *Registry) SetDeviceNickname(address, nickname string) {
	device := r.EnsureDevice(address)
	device.Nickname = strings.TrimSpace(nickname)
}

// Nickname returns the nickname for address, or "" if none is set
func (r *Registry) Nickname(address string) string {
	if device := r.GetDevice(address); device != nil {
		return device.Nickname
	}
	return ""
}

// RemoveDevice forgets a device. Returns false if it was not remembered.
func (r *Registry) RemoveDevice(address string) bool {
	address = normalizeAddress(address)
	if _, exists := r.Devices[address]; !exists {
		return false
	}
	delete(r.Devices, address)
	return true
}

// RememberSightings records the result of a scan. Each device's last name,
// signal strength and sighting time are updated and its scan count is
// incremented. A name the device did not advertise this time does not erase
// the remembered one. Returns the number of devices seen for the first time.
func (r *Registry) RememberSightings(devices []session.DiscoveredDevice) int {
	added := 0
	for _, d := range devices {
		if d.Identifier == "" {
			continue
		}
		if r.GetDevice(d.Identifier) == nil {
			added++
		}

		device := r.EnsureDevice(d.Identifier)
		if d.DisplayName != "" {
			device.LastName = d.DisplayName
		}
		device.LastRSSI = d.SignalStrength
		if d.LastSeenAt.After(device.LastSeen) {
			device.LastSeen = d.LastSeenAt
		}
		device.TimesSeen++
	}
	return added
}

// Addresses returns the remembered addresses, most recently seen first
func (r *Registry) Addresses() []string {
	addresses := make([]string, 0, len(r.Devices))
	for address := range r.Devices {
		addresses = append(addresses, address)
	}
	sort.Slice(addresses, func(i, j int) bool {
		a, b := r.Devices[addresses[i]], r.Devices[addresses[j]]
		if !a.LastSeen.Equal(b.LastSeen) {
			return a.LastSeen.After(b.LastSeen)
		}
		return addresses[i] < addresses[j]
	})
	return addresses
}
