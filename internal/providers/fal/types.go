package fal

import (
	"encoding/json"
	"strings"
)

// Status is the normalized lifecycle state of a queued job.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// ParseStatus maps the queue's raw status string onto a Status. Anything that
// is not terminal (IN_QUEUE, IN_PROGRESS, unknown values) counts as pending.
func ParseStatus(raw string) Status {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(StatusCompleted):
		return StatusCompleted
	case string(StatusFailed):
		return StatusFailed
	default:
		return StatusPending
	}
}

// Terminal reports whether the status ends the poll loop.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Handle identifies a submitted job. It is only meaningful to the queue that
// issued it.
type Handle struct {
	RequestID string
}

// Image is a single generated image descriptor.
type Image struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type,omitempty"`
	FileName    string `json:"file_name,omitempty"`
	FileSize    int64  `json:"file_size,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
}

// Result is the final payload of a completed job. Raw holds the provider
// response untouched so callers can read fields this package does not model.
type Result struct {
	Images []Image         `json:"images"`
	Raw    json.RawMessage `json:"-"`
}

type submitResponse struct {
	RequestID string `json:"request_id"`
}

type statusResponse struct {
	Status        string `json:"status"`
	Error         string `json:"error"`
	QueuePosition *int   `json:"queue_position,omitempty"`
}
