package task

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state recorded for a task message.
type Status string

// Possible status values
const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
)

// Message asks a worker to invoke one task once.
type Message struct {
	ID           uuid.UUID       `json:"id"`
	Task         string          `json:"task"`
	Args         json.RawMessage `json:"args"`
	ScheduleName string          `json:"schedule_name,omitempty"`
	SentAt       time.Time       `json:"sent_at"`
}

// NewMessage creates a message for the named task. Empty args become JSON null.
func NewMessage(taskName string, args json.RawMessage) Message {
	if len(args) == 0 {
		args = json.RawMessage("null")
	}
	return Message{
		ID:     uuid.New(),
		Task:   taskName,
		Args:   append(json.RawMessage(nil), args...),
		SentAt: time.Now().UTC(),
	}
}

// Result is what a worker records after invoking a task that keeps results.
type Result struct {
	ID       uuid.UUID       `json:"task_id"`
	Task     string          `json:"task"`
	Status   Status          `json:"status"`
	Result   json.RawMessage `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
	DateDone time.Time       `json:"date_done"`
}
