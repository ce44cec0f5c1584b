package types

import "errors"

// Error kinds surfaced by the ingestion, retrieval and deletion pipelines.
// Callers wrap them with fmt.Errorf("%w: ...") and the HTTP layer maps them
// to status codes with errors.Is.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidPDF      = errors.New("invalid PDF file")
	ErrPayloadTooLarge = errors.New("file too large")
	ErrNoContent       = errors.New("no extractable text")
	ErrStorage         = errors.New("storage error")
	ErrUpstream        = errors.New("upstream provider error")
	ErrNotFound        = errors.New("not found")
)
