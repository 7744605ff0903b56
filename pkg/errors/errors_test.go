package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorString(t *testing.T) {
	plain := New("FETCH_FAILED", http.StatusBadGateway, "could not fetch timetable data")
	assert.Equal(t, "could not fetch timetable data", plain.Error())

	wrapped := Wrap(errors.New("connection refused"), "FETCH_FAILED", http.StatusBadGateway, "could not fetch timetable data")
	assert.Equal(t, "could not fetch timetable data: connection refused", wrapped.Error())
	assert.EqualError(t, errors.Unwrap(wrapped), "connection refused")
}

func TestFromErrorPassesThroughTypedErrors(t *testing.T) {
	err := FromError(ErrAlreadyRunning)
	assert.Equal(t, "ALREADY_RUNNING", err.Code)
	assert.Equal(t, http.StatusConflict, err.Status)
}

func TestFromErrorWrapsUnknownAsInternal(t *testing.T) {
	err := FromError(errors.New("boom"))
	require.NotNil(t, err)
	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.EqualError(t, errors.Unwrap(err), "boom")
}

func TestFromErrorNil(t *testing.T) {
	assert.Nil(t, FromError(nil))
}

func TestCloneOverridesMessage(t *testing.T) {
	clone := Clone(ErrValidation, "unsupported export format")
	assert.Equal(t, "unsupported export format", clone.Message)
	assert.Equal(t, ErrValidation.Code, clone.Code)
	// The sentinel itself must stay untouched.
	assert.Equal(t, "validation failed", ErrValidation.Message)

	assert.Equal(t, ErrValidation.Message, Clone(ErrValidation, "").Message)
	assert.Nil(t, Clone(nil, "x"))
}
