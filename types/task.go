package types

import "time"

// Task is a single to-do item owned by exactly one user.
type Task struct {
	// ID is the unique identifier of the task.
	ID int `json:"id" db:"id"`

	// Content is the free-text description of the task.
	Content string `json:"content" db:"content"`

	// Completed reports whether the owner has checked the task off.
	Completed bool `json:"completed" db:"completed"`

	// CreatedAt is set when the task is created and never modified.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// OwnerID identifies the user who owns the task. It is immutable.
	OwnerID int `json:"owner_id" db:"owner_id"`
}

// TaskPatch carries a partial update. A nil field is left unchanged.
type TaskPatch struct {
	Content   *string
	Completed *bool
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Content == nil && p.Completed == nil
}
