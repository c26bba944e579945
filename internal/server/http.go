package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/smartdevice/internal/logging"
	"github.com/muurk/smartdevice/internal/session"
)

// SessionInfo is the body of GET /api/session
type SessionInfo struct {
	ID          string            `json:"id"`
	State       session.State     `json:"state"`
	Cause       session.StopCause `json:"cause"`
	Timeout     string            `json:"timeout,omitempty"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	StoppedAt   *time.Time        `json:"stopped_at,omitempty"`
	Failure     *FailureInfo      `json:"failure,omitempty"`
	DeviceCount int               `json:"devices"`
}

// FailureInfo describes the platform failure that stopped a session
type FailureInfo struct {
	Code   int    `json:"code"`
	Reason string `json:"reason"`
}

// Device is a discovered device as served to clients
type Device struct {
	session.DiscoveredDevice
	Name     string `json:"name"`
	Nickname string `json:"nickname,omitempty"`
}

func (s *Server) sessionInfo() SessionInfo {
	info := SessionInfo{
		ID:          s.sess.ID(),
		State:       s.sess.State(),
		Cause:       s.sess.Cause(),
		DeviceCount: s.sess.Len(),
	}
	if timeout := s.sess.Timeout(); timeout > 0 {
		info.Timeout = timeout.String()
	}
	if at := s.sess.StartedAt(); !at.IsZero() {
		info.StartedAt = &at
	}
	if at := s.sess.StoppedAt(); !at.IsZero() {
		info.StoppedAt = &at
	}
	if reason, ok := s.sess.Failure(); ok {
		info.Failure = &FailureInfo{Code: reason.Code, Reason: reason.String()}
	}
	return info
}

func (s *Server) devices() []Device {
	snapshot := s.sess.Snapshot()
	devices := make([]Device, 0, len(snapshot))
	for _, d := range snapshot {
		dev := Device{DiscoveredDevice: d, Name: d.Name()}
		if s.nicknames != nil {
			dev.Nickname = s.nicknames(d.Identifier)
		}
		devices = append(devices, dev)
	}
	return devices
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.sessionInfo())
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.devices())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("Failed to encode response", zap.Error(err))
	}
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack hands the connection to the WebSocket upgrader
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// logRequests logs every request once its handler has returned
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path, rec.status)
	})
}
