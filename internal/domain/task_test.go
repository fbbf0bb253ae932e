package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAsyncTask(t *testing.T) {
	userID := uuid.New()

	t.Run("valid task", func(t *testing.T) {
		task, err := NewAsyncTask(userID, TaskTypeImageGeneration)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, task.ID)
		assert.Equal(t, userID, task.UserID)
		assert.Equal(t, TaskStatusPending, task.Status)
		assert.Nil(t, task.Error)
		assert.False(t, task.IsTerminal())
	})

	t.Run("empty user ID", func(t *testing.T) {
		_, err := NewAsyncTask(uuid.Nil, TaskTypeImageGeneration)
		assert.ErrorIs(t, err, ErrEmptyTaskUserID)
	})

	t.Run("empty task type", func(t *testing.T) {
		_, err := NewAsyncTask(userID, "")
		assert.ErrorIs(t, err, ErrEmptyTaskType)
	})
}

func TestAsyncTaskTransitions(t *testing.T) {
	newTask := func(t *testing.T) *AsyncTask {
		task, err := NewAsyncTask(uuid.New(), TaskTypeImageGeneration)
		require.NoError(t, err)
		return task
	}

	t.Run("pending to success", func(t *testing.T) {
		task := newTask(t)
		require.NoError(t, task.MarkSuccess())
		assert.Equal(t, TaskStatusSuccess, task.Status)
		assert.True(t, task.IsTerminal())
	})

	t.Run("pending to error records structured error", func(t *testing.T) {
		task := newTask(t)
		require.NoError(t, task.MarkError(NewServerTaskError("provider exploded")))
		assert.Equal(t, TaskStatusError, task.Status)
		require.NotNil(t, task.Error)
		assert.Equal(t, TaskErrorNameServerError, task.Error.Name)
		assert.Equal(t, "provider exploded", task.Error.Body)
	})

	t.Run("terminal states are sticky", func(t *testing.T) {
		task := newTask(t)
		require.NoError(t, task.MarkSuccess())

		assert.ErrorIs(t, task.MarkError(NewServerTaskError("late failure")), ErrTaskFinalized)
		assert.Equal(t, TaskStatusSuccess, task.Status)
		assert.Nil(t, task.Error)

		failed := newTask(t)
		require.NoError(t, failed.MarkError(nil))
		assert.ErrorIs(t, failed.MarkSuccess(), ErrTaskFinalized)
		assert.Equal(t, TaskStatusError, failed.Status)
	})

	t.Run("nil error falls back to fixed message", func(t *testing.T) {
		task := newTask(t)
		require.NoError(t, task.MarkError(nil))
		require.NotNil(t, task.Error)
		assert.Equal(t, TaskErrorFallbackMessage, task.Error.Body)
	})
}

func TestNewServerTaskError(t *testing.T) {
	t.Run("uses rejection message", func(t *testing.T) {
		taskErr := NewServerTaskError("connection refused")
		assert.Equal(t, TaskErrorNameServerError, taskErr.Name)
		assert.Equal(t, "connection refused", taskErr.Body)
	})

	t.Run("empty message uses fallback", func(t *testing.T) {
		taskErr := NewServerTaskError("")
		assert.Equal(t, TaskErrorFallbackMessage, taskErr.Body)
	})
}
