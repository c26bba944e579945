package main

import (
	"fmt"
	"strings"

	"github.com/muurk/smartdevice/internal/config"
	"github.com/muurk/smartdevice/internal/discovery"
)

// Source names accepted by --source
const (
	sourceBLE    = "ble"
	sourceMDNS   = "mdns"
	sourceReplay = "replay"
)

// sourceOptions collects the flags that pick and tune a scan source
type sourceOptions struct {
	Name        string
	MDNSService string
	ReplayPath  string
	ReplaySpeed float64
	ReplayHold  bool
}

// newSource builds the scan source named by opts
func newSource(opts sourceOptions) (discovery.Source, error) {
	switch strings.ToLower(opts.Name) {
	case sourceBLE:
		return discovery.NewBLESource(), nil

	case sourceMDNS:
		return discovery.NewMDNSSource(opts.MDNSService), nil

	case sourceReplay:
		if opts.ReplayPath == "" {
			return nil, fmt.Errorf("--replay is required with --source replay")
		}
		capture, err := discovery.LoadCapture(opts.ReplayPath)
		if err != nil {
			return nil, err
		}
		src := discovery.NewReplaySource(capture)
		src.Speed = opts.ReplaySpeed
		src.Hold = opts.ReplayHold
		return src, nil

	default:
		return nil, fmt.Errorf("unknown source %q (expected %s, %s or %s)", opts.Name, sourceBLE, sourceMDNS, sourceReplay)
	}
}

// resolveSourceName applies the registry preference when --source was not
// given. A --replay file implies the replay source.
func resolveSourceName(flagValue string, flagSet bool, replayPath string, prefs *config.Preferences) string {
	if flagSet {
		return flagValue
	}
	if replayPath != "" {
		return sourceReplay
	}
	if prefs != nil && prefs.Source != "" {
		return prefs.Source
	}
	return config.DefaultSource
}
