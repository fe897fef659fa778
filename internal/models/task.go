package models

import (
	"time"
)

// Task is the in-queue mirror of a pending or in-flight upload. The metadata
// store stays authoritative; the queue view exists for cheap status polling.
type Task struct {
	DocID       string     `json:"doc_id"`
	UserToken   string     `json:"user_token"`
	Filename    string     `json:"filename"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ErrMsg      string     `json:"err_msg,omitempty"`
}

// Clone returns a copy so queue internals never leak shared pointers.
func (t *Task) Clone() *Task {
	cp := *t
	if t.StartedAt != nil {
		started := *t.StartedAt
		cp.StartedAt = &started
	}
	if t.CompletedAt != nil {
		completed := *t.CompletedAt
		cp.CompletedAt = &completed
	}
	return &cp
}

// QueueStatus is a point-in-time snapshot of the queue mirror.
type QueueStatus struct {
	QueueSize      int      `json:"queue_size"`
	Processing     []string `json:"processing"`
	CompletedCount int      `json:"completed_count"`
	FailedCount    int      `json:"failed_count"`
}

// BasicResponse is the minimal success/info payload used by plain endpoints.
type BasicResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}
