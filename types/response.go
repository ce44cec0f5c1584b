package types

type UploadResponse struct {
	Filename        string `json:"filename"`
	PagesProcessed  int    `json:"pages_processed"`
	ChunksProcessed int    `json:"chunks_processed"`
}

// PageResult records what happened to a single page during ingestion.
type PageResult struct {
	Page   int
	Chunks int
	Err    error // non-nil when text extraction failed and the page was skipped
}

// UploadResult is returned by the ingestion pipeline.
type UploadResult struct {
	UploadResponse
	Pages []PageResult
}

type StatusResponse struct {
	Status       string `json:"status"`
	Progress     int    `json:"progress"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type ChatResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

type DeleteResponse struct {
	Message string `json:"message"`
}

type DocumentListResponse struct {
	Documents []DocumentSummary `json:"documents"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}
