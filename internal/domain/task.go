package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of an async task.
type TaskStatus string

// Possible task status values. Transitions are monotonic and terminal:
// pending moves to exactly one of success or error, and never changes again.
const (
	TaskStatusPending TaskStatus = "pending"
	TaskStatusSuccess TaskStatus = "success"
	TaskStatusError   TaskStatus = "error"
)

// Task type constants
const (
	// TaskTypeImageGeneration identifies tasks that produce one image.
	TaskTypeImageGeneration = "image_generation"
)

// TaskErrorNameServerError is the error name recorded when a dispatched
// remote call is rejected.
const TaskErrorNameServerError = "server error"

// TaskErrorFallbackMessage is recorded when a rejection carries no message.
const TaskErrorFallbackMessage = "image generation failed"

// Common validation errors for AsyncTask
var (
	ErrEmptyTaskID       = errors.New("task ID cannot be empty")
	ErrEmptyTaskUserID   = errors.New("task user ID cannot be empty")
	ErrEmptyTaskType     = errors.New("task type cannot be empty")
	ErrInvalidTaskStatus = errors.New("invalid task status")
)

// TaskError is the structured error recorded on a failed task.
type TaskError struct {
	Name string `json:"name"`
	Body string `json:"body,omitempty"`
}

// NewServerTaskError builds the TaskError recorded for a rejected dispatch.
// An empty message falls back to a fixed string so the client always has
// something to display.
func NewServerTaskError(message string) *TaskError {
	if message == "" {
		message = TaskErrorFallbackMessage
	}
	return &TaskError{
		Name: TaskErrorNameServerError,
		Body: message,
	}
}

// AsyncTask tracks one background unit of work. It is created in the
// pending state inside the same transaction as the Generation that owns it,
// and mutated exactly once more to a terminal state.
type AsyncTask struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Type      string     `json:"type"`
	Status    TaskStatus `json:"status"`
	Error     *TaskError `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewAsyncTask creates a pending AsyncTask owned by the given user.
func NewAsyncTask(userID uuid.UUID, taskType string) (*AsyncTask, error) {
	now := time.Now().UTC()
	t := &AsyncTask{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      taskType,
		Status:    TaskStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}

	return t, nil
}

// Validate checks if the AsyncTask has valid data.
func (t *AsyncTask) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}

	if t.UserID == uuid.Nil {
		return ErrEmptyTaskUserID
	}

	if t.Type == "" {
		return ErrEmptyTaskType
	}

	if !isValidTaskStatus(t.Status) {
		return ErrInvalidTaskStatus
	}

	return nil
}

// IsTerminal reports whether the task has reached a final state.
func (t *AsyncTask) IsTerminal() bool {
	return t.Status == TaskStatusSuccess || t.Status == TaskStatusError
}

// MarkSuccess transitions the task to success.
// Returns ErrTaskFinalized if the task is already terminal.
func (t *AsyncTask) MarkSuccess() error {
	if t.IsTerminal() {
		return ErrTaskFinalized
	}

	t.Status = TaskStatusSuccess
	t.Error = nil
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkError transitions the task to error with the given structured error.
// Returns ErrTaskFinalized if the task is already terminal.
func (t *AsyncTask) MarkError(taskErr *TaskError) error {
	if t.IsTerminal() {
		return ErrTaskFinalized
	}

	if taskErr == nil {
		taskErr = NewServerTaskError("")
	}

	t.Status = TaskStatusError
	t.Error = taskErr
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// isValidTaskStatus checks if the given status is a valid TaskStatus.
func isValidTaskStatus(status TaskStatus) bool {
	switch status {
	case TaskStatusPending, TaskStatusSuccess, TaskStatusError:
		return true
	default:
		return false
	}
}
