package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/muurk/smartdevice/internal/session"
)

func TestConfigDirFor(t *testing.T) {
	env := func(vars map[string]string) func(string) string {
		return func(key string) string { return vars[key] }
	}
	home := func() (string, error) { return "/home/user", nil }
	noHome := func() (string, error) { return "", errors.New("no home") }

	tests := []struct {
		name    string
		goos    string
		env     map[string]string
		homeDir func() (string, error)
		want    string
		wantErr bool
	}{
		{
			name:    "linux with XDG_CONFIG_HOME",
			goos:    "linux",
			env:     map[string]string{"XDG_CONFIG_HOME": "/xdg"},
			homeDir: noHome,
			want:    filepath.Join("/xdg", "smartdevice"),
		},
		{
			name:    "linux falls back to home",
			goos:    "linux",
			homeDir: home,
			want:    filepath.Join("/home/user", ".config", "smartdevice"),
		},
		{
			name:    "linux without home",
			goos:    "linux",
			homeDir: noHome,
			wantErr: true,
		},
		{
			name:    "darwin ignores XDG",
			goos:    "darwin",
			env:     map[string]string{"XDG_CONFIG_HOME": "/xdg"},
			homeDir: home,
			want:    filepath.Join("/home/user", ".config", "smartdevice"),
		},
		{
			name:    "windows LOCALAPPDATA",
			goos:    "windows",
			env:     map[string]string{"LOCALAPPDATA": `C:\Users\u\AppData\Local`},
			homeDir: noHome,
			want:    filepath.Join(`C:\Users\u\AppData\Local`, "smartdevice"),
		},
		{
			name:    "windows USERPROFILE fallback",
			goos:    "windows",
			env:     map[string]string{"USERPROFILE": `C:\Users\u`},
			homeDir: noHome,
			want:    filepath.Join(`C:\Users\u`, "AppData", "Local", "smartdevice"),
		},
		{
			name:    "windows without profile",
			goos:    "windows",
			homeDir: noHome,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := configDirFor(tt.goos, env(tt.env), tt.homeDir)
			if (err != nil) != tt.wantErr {
				t.Fatalf("configDirFor() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("configDirFor() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetConfigPath(t *testing.T) {
	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}

	if filepath.Base(configPath) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", configPath)
	}
	if filepath.Base(filepath.Dir(configPath)) != "smartdevice" {
		t.Errorf("GetConfigPath() should be inside 'smartdevice', got: %v", configPath)
	}
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()

	if reg.Version != 1 {
		t.Errorf("NewRegistry().Version = %v, want 1", reg.Version)
	}
	if reg.Devices == nil {
		t.Error("NewRegistry().Devices should not be nil")
	}
	if reg.Preferences == nil {
		t.Fatal("NewRegistry().Preferences should not be nil")
	}

	prefs := reg.Preferences
	if prefs.ScanTimeoutDuration() != 30*time.Second {
		t.Errorf("ScanTimeoutDuration() = %v, want 30s", prefs.ScanTimeoutDuration())
	}
	if prefs.Source != "ble" {
		t.Errorf("Source = %q, want ble", prefs.Source)
	}
	if prefs.ServeAddr != ":8080" {
		t.Errorf("ServeAddr = %q, want :8080", prefs.ServeAddr)
	}
	if prefs.PushIntervalDuration() != time.Second {
		t.Errorf("PushIntervalDuration() = %v, want 1s", prefs.PushIntervalDuration())
	}
}

func TestRegistryEnsureDevice(t *testing.T) {
	reg := NewRegistry()

	device1 := reg.EnsureDevice("aa:bb:cc:dd:ee:ff")
	if device1 == nil {
		t.Fatal("EnsureDevice() returned nil")
	}

	// Addresses are case-insensitive
	device2 := reg.EnsureDevice("AA:BB:CC:DD:EE:FF")
	if device1 != device2 {
		t.Error("EnsureDevice() should return same instance for same address")
	}

	device3 := reg.EnsureDevice("11:22:33:44:55:66")
	if device1 == device3 {
		t.Error("EnsureDevice() should create new instance for different address")
	}
}

func TestRegistryNickname(t *testing.T) {
	reg := NewRegistry()

	if got := reg.Nickname("AA"); got != "" {
		t.Errorf("Nickname() for unknown device = %q, want empty", got)
	}

	reg.SetDeviceNickname("aa", "  Kitchen Sensor ")
	if got := reg.Nickname("AA"); got != "Kitchen Sensor" {
		t.Errorf("Nickname() = %q, want 'Kitchen Sensor'", got)
	}

	reg.SetDeviceNickname("AA", "")
	if got := reg.Nickname("AA"); got != "" {
		t.Errorf("Nickname() after clearing = %q, want empty", got)
	}
}

func TestRegistryRemoveDevice(t *testing.T) {
	reg := NewRegistry()
	reg.EnsureDevice("AA")

	if !reg.RemoveDevice("aa") {
		t.Error("RemoveDevice() = false for remembered device")
	}
	if reg.GetDevice("AA") != nil {
		t.Error("device still present after RemoveDevice()")
	}
	if reg.RemoveDevice("AA") {
		t.Error("RemoveDevice() = true for unknown device")
	}
}

func TestRegistryRememberSightings(t *testing.T) {
	reg := NewRegistry()
	t1 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	added := reg.RememberSightings([]session.DiscoveredDevice{
		{Identifier: "AA", DisplayName: "Phone", SignalStrength: -40, LastSeenAt: t1},
		{Identifier: "BB", SignalStrength: -70, LastSeenAt: t1},
		{Identifier: ""},
	})
	if added != 2 {
		t.Errorf("RememberSightings() = %d new, want 2", added)
	}

	added = reg.RememberSightings([]session.DiscoveredDevice{
		{Identifier: "AA", SignalStrength: -55, LastSeenAt: t2},
	})
	if added != 0 {
		t.Errorf("RememberSightings() = %d new, want 0", added)
	}

	aa := reg.GetDevice("AA")
	if aa.LastName != "Phone" {
		t.Errorf("LastName = %q, want remembered name kept", aa.LastName)
	}
	if aa.LastRSSI != -55 || !aa.LastSeen.Equal(t2) || aa.TimesSeen != 2 {
		t.Errorf("AA = %+v, want RSSI -55 at t2 seen twice", aa)
	}

	if got := reg.GetDevice("BB").DisplayName(); got != session.UnknownName {
		t.Errorf("BB DisplayName() = %q, want %q", got, session.UnknownName)
	}

	if got := reg.Addresses(); len(got) != 2 || got[0] != "AA" {
		t.Errorf("Addresses() = %v, want most recent first", got)
	}
}

func TestDeviceDisplayName(t *testing.T) {
	tests := []struct {
		name   string
		device Device
		want   string
	}{
		{"nickname wins", Device{Nickname: "Mine", LastName: "Phone"}, "Mine"},
		{"last name", Device{LastName: "Phone"}, "Phone"},
		{"nothing", Device{}, "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.device.DisplayName(); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRegistrySaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	reg, err := LoadRegistryFrom(path)
	if err != nil {
		t.Fatalf("LoadRegistryFrom() on missing file error = %v", err)
	}
	if len(reg.Devices) != 0 {
		t.Errorf("missing file should give an empty registry, got %d devices", len(reg.Devices))
	}

	reg.SetDeviceNickname("AA:BB:CC:DD:EE:FF", "Test Device")
	reg.Preferences.ScanTimeout = 10
	if err := reg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind after Save()")
	}

	loaded, err := LoadRegistryFrom(path)
	if err != nil {
		t.Fatalf("LoadRegistryFrom() error = %v", err)
	}
	if got := loaded.Nickname("aa:bb:cc:dd:ee:ff"); got != "Test Device" {
		t.Errorf("loaded nickname = %q, want 'Test Device'", got)
	}
	if loaded.Preferences.ScanTimeout != 10 {
		t.Errorf("loaded ScanTimeout = %d, want 10", loaded.Preferences.ScanTimeout)
	}
	if got, _ := loaded.Path(); got != path {
		t.Errorf("Path() = %q, want %q", got, path)
	}
}

func TestParseRegistry(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
		check   func(t *testing.T, reg *Registry)
	}{
		{
			name: "minimal file gets default preferences",
			data: "version: 1\n",
			check: func(t *testing.T, reg *Registry) {
				if reg.Devices == nil || reg.Preferences == nil {
					t.Fatal("missing sections not initialized")
				}
				if reg.Preferences.Source != "ble" {
					t.Errorf("Source = %q, want ble", reg.Preferences.Source)
				}
			},
		},
		{
			name: "partial preferences are completed",
			data: "version: 1\npreferences:\n  scan_timeout: 0\n  source: mdns\n",
			check: func(t *testing.T, reg *Registry) {
				if reg.Preferences.ScanTimeout != 0 {
					t.Errorf("ScanTimeout = %d, want 0 (disabled)", reg.Preferences.ScanTimeout)
				}
				if reg.Preferences.Source != "mdns" {
					t.Errorf("Source = %q, want mdns", reg.Preferences.Source)
				}
				if reg.Preferences.ServeAddr != ":8080" {
					t.Errorf("ServeAddr = %q, want default", reg.Preferences.ServeAddr)
				}
			},
		},
		{
			name: "omitted scan timeout keeps the default",
			data: "version: 1\npreferences:\n  source: mdns\n",
			check: func(t *testing.T, reg *Registry) {
				if reg.Preferences.ScanTimeout != DefaultScanTimeout {
					t.Errorf("ScanTimeout = %d, want %d", reg.Preferences.ScanTimeout, DefaultScanTimeout)
				}
				if got := reg.Preferences.ScanTimeoutDuration(); got != 30*time.Second {
					t.Errorf("ScanTimeoutDuration() = %v, want 30s", got)
				}
				if reg.Preferences.Source != "mdns" {
					t.Errorf("Source = %q, want mdns", reg.Preferences.Source)
				}
			},
		},
		{
			name: "empty preferences section",
			data: "version: 1\npreferences:\n",
			check: func(t *testing.T, reg *Registry) {
				if reg.Preferences == nil || reg.Preferences.ScanTimeout != DefaultScanTimeout {
					t.Errorf("Preferences = %+v, want defaults", reg.Preferences)
				}
			},
		},
		{
			name: "devices",
			data: "version: 1\ndevices:\n  AA:\n    nickname: Phone\n    times_seen: 3\n",
			check: func(t *testing.T, reg *Registry) {
				if d := reg.GetDevice("AA"); d == nil || d.Nickname != "Phone" || d.TimesSeen != 3 {
					t.Errorf("device AA = %+v", d)
				}
			},
		},
		{name: "unknown version", data: "version: 2\n", wantErr: "unsupported config version"},
		{name: "missing version", data: "devices: {}\n", wantErr: "unsupported config version: 0"},
		{name: "invalid yaml", data: "version: [\n", wantErr: "failed to parse config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := parseRegistry([]byte(tt.data))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("parseRegistry() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseRegistry() error = %v", err)
			}
			tt.check(t, reg)
		})
	}
}

func BenchmarkEnsureDevice(b *testing.B) {
	reg := NewRegistry()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reg.EnsureDevice("AA:BB:CC:DD:EE:FF")
	}
}
