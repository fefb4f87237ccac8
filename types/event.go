package types

import "time"

// TaskEventType names a task lifecycle transition.
type TaskEventType string

const (
	TaskCreated TaskEventType = "task.created"
	TaskUpdated TaskEventType = "task.updated"
	TaskDeleted TaskEventType = "task.deleted"
)

// TaskEvent is published on the message queue after a task mutation
// has been committed.
type TaskEvent struct {
	ID         string        `json:"id"`
	Type       TaskEventType `json:"type"`
	TaskID     int           `json:"task_id"`
	OwnerID    int           `json:"owner_id"`
	Task       *Task         `json:"task,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}
