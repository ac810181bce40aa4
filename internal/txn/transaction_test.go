package txn

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/displayctl/internal/model"
)

type call struct {
	op      string
	handle  model.Handle
	enabled bool
}

// recordingCapability records calls and returns scripted statuses.
type recordingCapability struct {
	calls          []call
	beginStatus    Status
	toggleStatus   map[model.Handle]Status
	completeStatus Status
	permanent      bool
}

func (c *recordingCapability) BeginConfiguration() (Token, Status) {
	c.calls = append(c.calls, call{op: "begin"})
	return 7, c.beginStatus
}

func (c *recordingCapability) SetDisplayEnabled(tok Token, h model.Handle, enabled bool) Status {
	if tok != 7 {
		return StatusInvalidContext
	}
	c.calls = append(c.calls, call{op: "toggle", handle: h, enabled: enabled})
	return c.toggleStatus[h]
}

func (c *recordingCapability) CompleteConfiguration(tok Token, permanent bool) Status {
	if tok != 7 {
		return StatusInvalidContext
	}
	c.calls = append(c.calls, call{op: "complete"})
	c.permanent = permanent
	return c.completeStatus
}

func TestBegin_Failure(t *testing.T) {
	c := &recordingCapability{beginStatus: StatusCannotComplete}

	tx, err := Begin(c, nil)
	assert.Nil(t, tx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBeginFailed)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StatusCannotComplete, se.Status)
	assert.Contains(t, err.Error(), "cannot complete (1004)")
}

func TestTransaction_ToggleAndComplete(t *testing.T) {
	c := &recordingCapability{}

	tx, err := Begin(c, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, tx.ID())

	require.NoError(t, tx.Toggle(1, false))
	require.NoError(t, tx.Toggle(2, true))
	require.NoError(t, tx.Complete(true))

	assert.True(t, c.permanent)
	assert.Equal(t, []call{
		{op: "begin"},
		{op: "toggle", handle: 1, enabled: false},
		{op: "toggle", handle: 2, enabled: true},
		{op: "complete"},
	}, c.calls)
	assert.Equal(t, []ToggleResult{
		{Handle: 1, Enabled: false, Status: StatusSuccess},
		{Handle: 2, Enabled: true, Status: StatusSuccess},
	}, tx.Results())
}

func TestTransaction_ToggleFailureKeepsTransactionOpen(t *testing.T) {
	c := &recordingCapability{toggleStatus: map[model.Handle]Status{1: StatusIllegalArgument}}

	tx, err := Begin(c, nil)
	require.NoError(t, err)

	err = tx.Toggle(1, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrToggleFailed)
	assert.Contains(t, err.Error(), "toggle display 1")

	require.NoError(t, tx.Toggle(2, true))
	require.NoError(t, tx.Complete(false))
	assert.False(t, c.permanent)

	results := tx.Results()
	require.Len(t, results, 2)
	assert.Equal(t, StatusIllegalArgument, results[0].Status)
	assert.True(t, results[1].Status.OK())
}

func TestTransaction_CompleteFailure(t *testing.T) {
	c := &recordingCapability{completeStatus: StatusFailure}

	tx, err := Begin(c, nil)
	require.NoError(t, err)
	require.NoError(t, tx.Toggle(1, false))

	err = tx.Complete(true)
	assert.ErrorIs(t, err, ErrCommitFailed)
	assert.ErrorIs(t, tx.Complete(true), ErrClosed)
}

func TestTransaction_SingleUse(t *testing.T) {
	c := &recordingCapability{}

	tx, err := Begin(c, nil)
	require.NoError(t, err)
	require.NoError(t, tx.Complete(true))

	assert.ErrorIs(t, tx.Complete(true), ErrClosed)
	assert.ErrorIs(t, tx.Toggle(1, true), ErrClosed)
	assert.Equal(t, []call{{op: "begin"}, {op: "complete"}}, c.calls)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "success (0)", StatusSuccess.String())
	assert.Equal(t, "range check (1007)", StatusRangeCheck.String())
	assert.Equal(t, "status 42", Status(42).String())
	assert.True(t, StatusSuccess.OK())
	assert.False(t, StatusFailure.OK())
}
