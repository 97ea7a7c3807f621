package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/itsneelabh/nodemesh/pkg/events"
	"github.com/itsneelabh/nodemesh/pkg/telemetry"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// handleWatch streams registry events as JSON text frames. ?types= takes a
// comma-separated list of event types to keep.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	if s.bus == nil {
		s.writeJSON(w, r, http.StatusServiceUnavailable, ErrorResponse{Error: "event stream disabled"})
		return
	}

	keep := typeFilter(r.URL.Query().Get("types"))

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an error response.
		s.logger.Warn("Websocket upgrade failed", telemetry.EnrichLogFields(r.Context(), map[string]interface{}{
			"error": err.Error(),
		}))
		return
	}

	ch, cancel := s.bus.Subscribe(events.DefaultBufferSize)
	fields := telemetry.EnrichLogFields(r.Context(), map[string]interface{}{
		"remote_addr": r.RemoteAddr,
	})
	s.logger.Info("Watch stream opened", fields)

	closed := make(chan struct{})
	go s.readPump(conn, closed)
	s.writePump(conn, ch, keep, closed)

	cancel()
	s.logger.Info("Watch stream closed", fields)
}

// readPump discards client frames and signals when the peer goes away.
func (s *Server) readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writePump(conn *websocket.Conn, ch <-chan events.Event, keep func(events.Type) bool, closed <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case e, ok := <-ch:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "event bus closed"))
				return
			}
			if !keep(e.Type) {
				continue
			}
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.closing:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		case <-closed:
			return
		}
	}
}

func typeFilter(raw string) func(events.Type) bool {
	if strings.TrimSpace(raw) == "" {
		return func(events.Type) bool { return true }
	}
	allowed := make(map[events.Type]struct{})
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			allowed[events.Type(t)] = struct{}{}
		}
	}
	return func(t events.Type) bool {
		_, ok := allowed[t]
		return ok
	}
}
