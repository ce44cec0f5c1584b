package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tieubaoca/pdf-chat-be/types"
	"github.com/tieubaoca/pdf-chat-be/utils"
	"go.uber.org/zap"
)

const (
	DefaultStatusPollInterval = 500 * time.Millisecond

	wsReadLimit = 4 * 1024
	wsPongWait  = 60 * time.Second
	wsWriteWait = 10 * time.Second
)

// WebSocketService pushes ingestion status changes of one file to a client
// until the ingestion reaches a terminal state.
type WebSocketService struct {
	tracker      *StatusTracker
	upgrader     websocket.Upgrader
	pollInterval time.Duration
	logger       *zap.Logger
}

func NewWebSocketService(tracker *StatusTracker, checkOrigin func(r *http.Request) bool, pollInterval time.Duration, logger *zap.Logger) *WebSocketService {
	if pollInterval <= 0 {
		pollInterval = DefaultStatusPollInterval
	}
	return &WebSocketService{
		tracker: tracker,
		upgrader: websocket.Upgrader{
			CheckOrigin: checkOrigin,
		},
		pollInterval: pollInterval,
		logger:       utils.OrNop(logger),
	}
}

func StatusResponseFrom(r *types.StatusRecord) types.StatusResponse {
	return types.StatusResponse{
		Status:       r.Status,
		Progress:     r.Progress,
		ErrorMessage: r.ErrorMessage,
	}
}

// StreamStatus upgrades the connection and writes a status message every
// time the record of fileID changes. Clients may send {"type":"ping"} and
// get a pong back. The stream ends after a terminal status, when the record
// disappears or when the client goes away.
func (s *WebSocketService) StreamStatus(w http.ResponseWriter, r *http.Request, fileID string) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	logger := s.logger.With(zap.String("file", fileID))

	conn.SetReadLimit(wsReadLimit)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Only this goroutine reads. Writes stay in the loop below since
	// gorilla connections allow one concurrent writer.
	pings := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, p, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Debug("websocket read error", zap.Error(err))
				}
				return
			}
			var req types.WebsocketRequest
			if err := json.Unmarshal(p, &req); err != nil {
				continue
			}
			if req.Type == types.TypeWebsocketPing {
				select {
				case pings <- struct{}{}:
				default:
				}
			}
		}
	}()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	var last *types.StatusResponse
	for {
		record, err := s.tracker.Get(ctx, fileID)
		switch {
		case errors.Is(err, types.ErrNotFound):
			s.write(conn, types.WebSocketResponse{Type: types.TypeWebsocketError, Payload: types.ErrorResponse{Detail: "File not found"}})
			s.close(conn)
			return
		case err != nil:
			logger.Error("failed to read ingestion status", zap.Error(err))
			s.write(conn, types.WebSocketResponse{Type: types.TypeWebsocketError, Payload: types.ErrorResponse{Detail: "Failed to read status"}})
			s.close(conn)
			return
		}

		current := StatusResponseFrom(record)
		if last == nil || *last != current {
			if err := s.write(conn, types.WebSocketResponse{Type: types.TypeWebsocketStatus, Payload: current}); err != nil {
				logger.Debug("websocket write failed", zap.Error(err))
				return
			}
			last = &current
		}
		if record.Terminal() {
			s.close(conn)
			return
		}

		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-pings:
			if err := s.write(conn, types.WebSocketResponse{Type: types.TypeWebsocketPong}); err != nil {
				return
			}
		case <-ticker.C:
		}
	}
}

func (s *WebSocketService) write(conn *websocket.Conn, msg types.WebSocketResponse) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(msg)
}

func (s *WebSocketService) close(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
}
