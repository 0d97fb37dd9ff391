package task

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/taskmon/internal/clierr"
)

func TestCanTransition(t *testing.T) {
	allowed := [][2]State{
		{Pending, InProgress},
		{Pending, Blocked},
		{InProgress, Completed},
		{InProgress, Blocked},
		{Blocked, InProgress},
		{Blocked, Pending},
	}
	for _, pair := range allowed {
		assert.True(t, CanTransition(pair[0], pair[1]), "%s -> %s should be allowed", pair[0], pair[1])
	}

	denied := [][2]State{
		{Pending, Completed}, // skipping IN_PROGRESS
		{Pending, Pending},
		{InProgress, Pending},
		{Blocked, Completed},
		{Blocked, Blocked},
		{Completed, Pending}, // COMPLETED is terminal
		{Completed, InProgress},
		{Completed, Blocked},
		{Completed, Completed},
	}
	for _, pair := range denied {
		assert.False(t, CanTransition(pair[0], pair[1]), "%s -> %s should be denied", pair[0], pair[1])
	}
}

func TestValidateTransition(t *testing.T) {
	tk := &Task{ID: "T001", State: Pending}

	require.NoError(t, ValidateTransition(tk, InProgress, ""))

	err := ValidateTransition(tk, Completed, "")
	require.Error(t, err)
	var cliErr *clierr.Error
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, clierr.InvalidTransition, cliErr.Code)

	err = ValidateTransition(tk, "DONE", "")
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, clierr.InvalidState, cliErr.Code)

	// Validation never mutates the task.
	assert.Equal(t, Pending, tk.State)
}

func TestValidateTransitionBlockerNote(t *testing.T) {
	tk := &Task{ID: "T001", State: InProgress}

	err := ValidateTransition(tk, Blocked, "")
	require.Error(t, err)
	var cliErr *clierr.Error
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, clierr.MissingBlockerNote, cliErr.Code)

	require.NoError(t, ValidateTransition(tk, Blocked, "waiting on credentials"))
}
