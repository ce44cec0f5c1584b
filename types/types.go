package types

import "time"

// Ingestion states.
const (
	STATUS_PENDING    = "pending"
	STATUS_PROCESSING = "processing"
	STATUS_COMPLETE   = "complete"
	STATUS_ERROR      = "error"
)

// StatusRecord tracks the ingestion of one uploaded file.
type StatusRecord struct {
	FileID       string    `json:"-" bson:"_id"`
	Status       string    `json:"status" bson:"status"`
	Progress     int       `json:"progress" bson:"progress"`
	ErrorMessage string    `json:"error_message,omitempty" bson:"error_message,omitempty"`
	StartTime    time.Time `json:"-" bson:"start_time"`
}

// Terminal reports whether no further updates are expected.
func (r StatusRecord) Terminal() bool {
	return r.Status == STATUS_COMPLETE || r.Status == STATUS_ERROR
}
