package types

type ChatRequest struct {
	Query string `json:"query"`
}
