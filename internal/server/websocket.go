package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/smartdevice/internal/logging"
	"github.com/muurk/smartdevice/internal/session"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

// Message types sent on /ws
const (
	MessageState    = "state"
	MessageSnapshot = "snapshot"
)

// Message is one JSON frame of the WebSocket feed. State messages carry the
// transition, snapshot messages carry the device list.
type Message struct {
	Type      string            `json:"type"`
	SessionID string            `json:"session_id"`
	State     session.State     `json:"state"`
	At        time.Time         `json:"at"`
	From      *session.State    `json:"from,omitempty"`
	Cause     session.StopCause `json:"cause"`
	Failure   *FailureInfo      `json:"failure,omitempty"`
	Devices   []Device          `json:"devices,omitempty"`
}

func stateMessage(change session.StateChange) Message {
	from := change.From
	msg := Message{
		Type:      MessageState,
		SessionID: change.SessionID,
		State:     change.To,
		At:        change.At,
		From:      &from,
		Cause:     change.Cause,
	}
	if change.Failure != nil {
		msg.Failure = &FailureInfo{Code: change.Failure.Code, Reason: change.Failure.String()}
	}
	return msg
}

func (s *Server) snapshotMessage() Message {
	msg := Message{
		Type:      MessageSnapshot,
		SessionID: s.sess.ID(),
		State:     s.sess.State(),
		At:        time.Now(),
		Cause:     s.sess.Cause(),
		Devices:   s.devices(),
	}
	if reason, ok := s.sess.Failure(); ok {
		msg.Failure = &FailureInfo{Code: reason.Code, Reason: reason.String()}
	}
	return msg
}

// handleWebSocket streams the session to one client: a snapshot on connect,
// a state message per transition, a snapshot every PushInterval, and a final
// snapshot plus close frame once the session has stopped.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}
	remoteAddr := conn.RemoteAddr().String()

	if !s.trackConn(remoteAddr, conn) {
		s.closeConn(conn, websocket.CloseGoingAway, "server shutting down")
		_ = conn.Close()
		return
	}
	defer func() {
		_ = conn.Close()
		s.untrackConn(remoteAddr)
		logging.LogConnection(remoteAddr, "websocket_closed")
	}()
	logging.LogConnection(remoteAddr, "websocket_upgraded")

	// Subscribe before the first snapshot so no transition is missed
	changes, cancel := s.sess.Watch()
	defer cancel()

	clientGone := make(chan struct{})
	go s.readPump(conn, remoteAddr, clientGone)

	if err := s.send(conn, s.snapshotMessage()); err != nil {
		logging.Debug("Failed to send initial snapshot", zap.String("remote_addr", remoteAddr), zap.Error(err))
		return
	}

	push := time.NewTicker(s.config.PushInterval)
	defer push.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case change, ok := <-changes:
			if ok {
				if err := s.send(conn, stateMessage(change)); err != nil {
					logging.Debug("Failed to send state", zap.String("remote_addr", remoteAddr), zap.Error(err))
					return
				}
				continue
			}
			if s.sess.State() != session.StateStopped {
				// Subscription cancelled without the session stopping
				return
			}
			if err := s.send(conn, s.snapshotMessage()); err != nil {
				return
			}
			s.closeConn(conn, websocket.CloseNormalClosure, "scan stopped")
			return

		case <-push.C:
			if err := s.send(conn, s.snapshotMessage()); err != nil {
				logging.Debug("Failed to send snapshot", zap.String("remote_addr", remoteAddr), zap.Error(err))
				return
			}

		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}

		case <-clientGone:
			return

		case <-s.quit:
			s.closeConn(conn, websocket.CloseGoingAway, "server shutting down")
			return
		}
	}
}

// readPump drains client frames so control messages are processed. Clients
// are not expected to send anything.
func (s *Server) readPump(conn *websocket.Conn, remoteAddr string, gone chan<- struct{}) {
	defer close(gone)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Info("WebSocket read error",
					zap.String("remote_addr", remoteAddr),
					zap.Error(err),
				)
			}
			return
		}
	}
}

func (s *Server) send(conn *websocket.Conn, msg Message) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}

func (s *Server) closeConn(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text),
		time.Now().Add(writeWait),
	)
}
