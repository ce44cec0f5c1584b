package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/pdf-chat-be/repository"
	"github.com/tieubaoca/pdf-chat-be/types"
)

type statusMessage struct {
	Type    string               `json:"type"`
	Payload types.StatusResponse `json:"payload"`
}

func dialStatus(t *testing.T, tracker *StatusTracker, fileID string) *websocket.Conn {
	t.Helper()
	svc := NewWebSocketService(tracker, nil, 10*time.Millisecond, nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		svc.StreamStatus(w, r, fileID)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readStatus(t *testing.T, conn *websocket.Conn) statusMessage {
	t.Helper()
	_, p, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg statusMessage
	require.NoError(t, json.Unmarshal(p, &msg))
	return msg
}

func TestStreamStatusUntilComplete(t *testing.T) {
	ctx := context.Background()
	tracker := NewStatusTracker(repository.NewMemoryStatusRepo())
	require.NoError(t, tracker.Init(ctx, "doc.pdf"))
	require.NoError(t, tracker.Update(ctx, "doc.pdf", types.STATUS_PROCESSING, 40, ""))

	conn := dialStatus(t, tracker, "doc.pdf")

	msg := readStatus(t, conn)
	assert.Equal(t, types.TypeWebsocketStatus, msg.Type)
	assert.Equal(t, types.StatusResponse{Status: types.STATUS_PROCESSING, Progress: 40}, msg.Payload)

	require.NoError(t, tracker.Update(ctx, "doc.pdf", types.STATUS_COMPLETE, 100, ""))

	msg = readStatus(t, conn)
	assert.Equal(t, types.StatusResponse{Status: types.STATUS_COMPLETE, Progress: 100}, msg.Payload)

	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestStreamStatusAnswersPing(t *testing.T) {
	ctx := context.Background()
	tracker := NewStatusTracker(repository.NewMemoryStatusRepo())
	require.NoError(t, tracker.Init(ctx, "doc.pdf"))

	conn := dialStatus(t, tracker, "doc.pdf")
	assert.Equal(t, types.STATUS_PENDING, readStatus(t, conn).Payload.Status)

	require.NoError(t, conn.WriteJSON(types.WebsocketRequest{Type: types.TypeWebsocketPing}))
	assert.Equal(t, types.TypeWebsocketPong, readStatus(t, conn).Type)
}

func TestStreamStatusUnknownFile(t *testing.T) {
	tracker := NewStatusTracker(repository.NewMemoryStatusRepo())
	conn := dialStatus(t, tracker, "missing.pdf")

	_, p, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(p), `"type":"error"`)
	assert.Contains(t, string(p), "File not found")
}
