package models

import (
	"time"
)

// AuditLog records one build request made through the API
type AuditLog struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	KeyID     string    `json:"key_id"`
	Method    string    `json:"method"`
	Path      string    `json:"path"`
	Status    int       `json:"status"`
	Operation string    `json:"operation"`
	BuildID   int64     `json:"build_id"`
	JobName   string    `json:"job_name"`
	Result    string    `json:"result"`
	Error     string    `json:"error,omitempty"`
}
