package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wnt/mevx/internal/events"
)

const (
	streamBuffer       = 64
	streamWriteTimeout = 5 * time.Second
)

// handleEvents streams bus events to a websocket client. The optional
// topics query parameter is a comma separated allow list. Events are
// dropped for a client that falls streamBuffer events behind.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	allowed := map[events.Topic]bool{}
	for _, t := range strings.Split(r.URL.Query().Get("topics"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			allowed[events.Topic(t)] = true
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	out := make(chan events.Event, streamBuffer)
	unsubscribe := s.bus.SubscribeAll(func(e events.Event) {
		if len(allowed) > 0 && !allowed[e.Topic] {
			return
		}
		select {
		case out <- e:
		default:
			s.logger.Warn().Str("topic", string(e.Topic)).Msg("Event stream client is behind, dropping event")
		}
	})
	defer unsubscribe()

	s.logger.Info().Str("remote", r.RemoteAddr).Int("topics", len(allowed)).Msg("Event stream opened")
	defer s.logger.Info().Str("remote", r.RemoteAddr).Msg("Event stream closed")

	// The read loop only detects the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-s.done:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			return
		case e := <-out:
			conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteJSON(e); err != nil {
				s.logger.Debug().Err(err).Msg("Event stream write failed")
				return
			}
		}
	}
}
