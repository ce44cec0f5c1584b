package types

const (
	TypeWebsocketPing   = "ping"
	TypeWebsocketPong   = "pong"
	TypeWebsocketStatus = "status"
	TypeWebsocketError  = "error"
)

type WebsocketRequest struct {
	Type string `json:"type"`
}

type WebSocketResponse struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
