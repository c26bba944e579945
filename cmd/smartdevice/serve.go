package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/smartdevice/internal/config"
	"github.com/muurk/smartdevice/internal/discovery"
	"github.com/muurk/smartdevice/internal/logging"
	"github.com/muurk/smartdevice/internal/server"
	"github.com/muurk/smartdevice/internal/session"
	"github.com/muurk/smartdevice/internal/ui"
)

// Serve command flags
var (
	serveAddr         string
	serveSource       string
	serveTimeout      time.Duration
	serveReplay       string
	serveSpeed        float64
	serveHold         bool
	servePushInterval time.Duration
	serveCertPath     string
	serveKeyPath      string
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", config.DefaultServeAddr, "Listen address (host:port)")
	serveCmd.Flags().StringVar(&serveSource, "source", config.DefaultSource, "Scan source (ble, mdns, replay)")
	serveCmd.Flags().DurationVar(&serveTimeout, "timeout", config.DefaultScanTimeout*time.Second, "Stop the scan automatically after this long (0 = until interrupted)")
	serveCmd.Flags().StringVar(&serveReplay, "replay", "", "Capture file to replay (implies --source replay)")
	serveCmd.Flags().Float64Var(&serveSpeed, "speed", 1, "Replay speed multiplier (0 = no delays)")
	serveCmd.Flags().BoolVar(&serveHold, "hold", false, "Keep scanning after the replayed capture ends")
	serveCmd.Flags().DurationVar(&servePushInterval, "push-interval", config.DefaultPushInterval*time.Millisecond, "Interval between WebSocket snapshots")
	serveCmd.Flags().StringVar(&serveCertPath, "tls-cert", "", "Path to TLS certificate file (serves HTTPS together with --tls-key)")
	serveCmd.Flags().StringVar(&serveKeyPath, "tls-key", "", "Path to TLS private key file")

	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Scan and publish the session over HTTP and WebSocket",
	Long: `Run one discovery session and publish it over HTTP.

Endpoints:
  GET /api/session   session state, timing and failure
  GET /api/devices   current device snapshot
  GET /ws            WebSocket feed of state changes and periodic snapshots

The server keeps running after the scan stops, so clients can still fetch
the final result. Press Ctrl+C to shut it down.`,
	Example: `  # Serve a 30-second BLE scan on :8080 (default)
  smartdevice serve

  # Browse mDNS until interrupted, on a custom port
  smartdevice serve --source mdns --timeout 0 --addr 127.0.0.1:9000

  # Serve a recorded capture over HTTPS
  smartdevice serve --replay office.yaml --tls-cert cert.pem --tls-key key.pem`,
	RunE: runServe,
}

// parseAddr splits a listen address into host and port. A bare port
// ("8080") listens on all interfaces.
func parseAddr(addr string) (string, int, error) {
	if _, err := strconv.Atoi(addr); err == nil {
		addr = ":" + addr
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port in address %q", addr)
	}
	return host, port, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	if (serveCertPath != "") != (serveKeyPath != "") {
		return fmt.Errorf("both --tls-cert and --tls-key must be provided together")
	}
	if serveTimeout < 0 {
		return fmt.Errorf("--timeout must not be negative")
	}

	reg, err := loadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	prefs := reg.Preferences

	addr := serveAddr
	if !cmd.Flags().Changed("addr") && prefs.ServeAddr != "" {
		addr = prefs.ServeAddr
	}
	host, port, err := parseAddr(addr)
	if err != nil {
		return err
	}

	timeout := serveTimeout
	if !cmd.Flags().Changed("timeout") {
		timeout = prefs.ScanTimeoutDuration()
	}
	pushInterval := servePushInterval
	if !cmd.Flags().Changed("push-interval") {
		pushInterval = prefs.PushIntervalDuration()
	}

	src, err := newSource(sourceOptions{
		Name:        resolveSourceName(serveSource, cmd.Flags().Changed("source"), serveReplay, prefs),
		MDNSService: prefs.MDNSService,
		ReplayPath:  serveReplay,
		ReplaySpeed: serveSpeed,
		ReplayHold:  serveHold,
	})
	if err != nil {
		return err
	}

	sess := session.New(session.Options{Timeout: timeout})
	srv := server.New(&server.Config{
		Host:         host,
		Port:         port,
		PushInterval: pushInterval,
		CertPath:     serveCertPath,
		KeyPath:      serveKeyPath,
	}, sess)
	srv.SetNicknames(reg.Nickname)

	scheme := "http"
	if serveCertPath != "" {
		scheme = "https"
	}
	printer := ui.NewPrinter(cmd.OutOrStdout())
	printer.PrintHeader("Discovery Server", "smartdevice serve",
		ui.Param{Key: "Listen", Value: fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(host, strconv.Itoa(port)))},
		ui.Param{Key: "Source", Value: src.Name()},
		ui.Param{Key: "Timeout", Value: timeout.String()},
		ui.Param{Key: "Session", Value: sess.ID()},
	)
	printer.Println(ui.NoteStyle.Render("  Press Ctrl+C to stop"))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// A failed session stays published until the server is
		// interrupted
		if err := discovery.Run(gctx, src, sess); err != nil {
			logging.Warn("Scan ended with failure", zap.Error(err))
		}
		return nil
	})

	g.Go(func() error {
		return srv.Start(gctx)
	})

	return g.Wait()
}
