package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestInitialize_SilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")
	defer SetLogger(nil)

	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("logger should be silent when no level is configured")
	}

	t.Setenv(LogLevelEnvVar, "debug")
	if err := InitializeFromEnv(); err != nil {
		t.Fatalf("InitializeFromEnv() error = %v", err)
	}
	if !GetLogger().Core().Enabled(zapcore.DebugLevel) {
		t.Error("logger should be enabled at debug level")
	}
}

func TestLogStateChange(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	LogStateChange("01HX", "idle", "scanning", "none")
	LogStateChange("01HX", "scanning", "stopped", "failure", zap.Int("failure_code", 4))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d log entries, want 2", len(entries))
	}

	first := entries[0].ContextMap()
	if _, ok := first["cause"]; ok {
		t.Error("cause should be omitted before the session stops")
	}
	if first["to"] != "scanning" {
		t.Errorf("to = %v, want scanning", first["to"])
	}

	second := entries[1].ContextMap()
	if second["cause"] != "failure" {
		t.Errorf("cause = %v, want failure", second["cause"])
	}
	if second["failure_code"] != int64(4) {
		t.Errorf("failure_code = %v, want 4", second["failure_code"])
	}
}

func TestLogObservation(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	LogObservation("01HX", "AA:BB:CC:DD:EE:FF", "", -60)

	entries := logs.FilterMessage("Device discovered").All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if name := entries[0].ContextMap()["name"]; name != "Unknown" {
		t.Errorf("name = %v, want Unknown", name)
	}
}
