// Smartdevice discovers nearby devices and reports what it finds.
//
// It runs one discovery session per invocation against a scan source
// (Bluetooth LE, mDNS or a recorded capture), deduplicates sightings by
// device address and presents the result as a table, JSON, YAML, a live
// terminal view or an HTTP/WebSocket feed.
//
// Usage:
//
//	smartdevice [command] [flags]
//
// See 'smartdevice --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/smartdevice/internal/config"
	"github.com/muurk/smartdevice/internal/logging"
	"github.com/muurk/smartdevice/internal/version"
)

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Persistent flags
var (
	logLevel   string
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "smartdevice",
	Short: "Nearby device discovery",
	Long: `Discover nearby devices over Bluetooth LE or mDNS.

Each scan is a single discovery session: it starts, collects sightings
(one entry per device address, refreshed with the latest signal strength),
and stops when you ask, when the timeout expires or when the platform
scanner fails.

Devices can be remembered in a small YAML registry and given nicknames,
which are shown next to them in later scans.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(logLevel)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); logs go to stderr")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the registry file (default: platform config dir)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "smartdevice %s\n", version.Full())
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", version.Platform())
	},
}

// loadRegistry loads the registry named by --config, or the default one
func loadRegistry() (*config.Registry, error) {
	if configPath != "" {
		return config.LoadRegistryFrom(configPath)
	}
	return config.LoadRegistry()
}
