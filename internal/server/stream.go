package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10 // Must be less than pongWait
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// handleStream upgrades to a websocket and pushes a snapshot every stream
// interval until the client goes away or the server shuts down.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	s.streams.Add(1)
	defer s.streams.Done()
	defer conn.Close()
	s.metrics.StreamConnected()
	defer s.metrics.StreamDisconnected()

	log := s.logger.With(zap.String("requestId", RequestID(r.Context())))
	log.Info("stream client connected", zap.String("remote", r.RemoteAddr))

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Clients never send data; reading only services control frames and
	// notices a closed connection.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	push := func() error {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(s.runtime.Snapshot(r.Context()))
	}
	if err := push(); err != nil {
		log.Warn("stream write failed", zap.Error(err))
		return
	}

	pushTicker := time.NewTicker(s.streamInterval)
	defer pushTicker.Stop()
	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()

	for {
		select {
		case <-gone:
			log.Info("stream client disconnected")
			return
		case <-s.quit:
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return
		case <-pushTicker.C:
			if err := push(); err != nil {
				log.Warn("stream write failed", zap.Error(err))
				return
			}
		case <-pingTicker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Warn("stream ping failed", zap.Error(err))
				return
			}
		}
	}
}
