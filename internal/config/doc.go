// Package config provides user configuration management for smartdevice.
//
// This package manages a YAML-based configuration file that remembers devices
// across scans (nicknames, last advertised name, last signal strength) and
// holds scan preferences. The configuration follows OS-specific conventions
// for storage location.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/smartdevice/config.yaml or $HOME/.config/smartdevice/config.yaml
//   - macOS: $HOME/.config/smartdevice/config.yaml
//   - Windows: %LOCALAPPDATA%\smartdevice\config.yaml
//
// The --config flag selects another file via LoadRegistryFrom.
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Fold a finished scan into the registry
//	registry.RememberSightings(sess.Snapshot())
//	registry.SetDeviceNickname("AA:BB:CC:DD:EE:FF", "Kitchen Sensor")
//
//	// Save changes atomically
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File writes are serialized by a mutex. A Registry value itself is not safe
// for concurrent mutation.
package config
