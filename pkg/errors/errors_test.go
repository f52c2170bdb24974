package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigurationError(t *testing.T) {
	cause := stderrors.New("unknown time zone Mars/Olympus")
	err := NewConfigurationError("load opening zone", cause)

	assert.True(t, Is(err, ErrConfiguration))
	assert.True(t, Is(err, cause))
	assert.Contains(t, err.Error(), "configuration_error")

	bare := NewConfigurationError("closing time missing", nil)
	assert.True(t, Is(bare, ErrConfiguration))
}

func TestValidationErrorMatchesInvalidInput(t *testing.T) {
	err := Wrap(NewValidationError("step_name", "unknown step", "lunch"), "merge update")

	assert.True(t, Is(err, ErrInvalidInput))

	var vErr *ValidationError
	assert.True(t, As(err, &vErr))
	assert.Equal(t, "step_name", vErr.Field)
}

func TestMultiError(t *testing.T) {
	var m MultiError
	assert.Nil(t, m.ToError())

	m.Add(nil)
	m.Add(ErrNotFound)
	m.Add(ErrUnavailable)

	err := m.ToError()
	assert.Error(t, err)
	assert.True(t, Is(err, ErrUnavailable))
	assert.Contains(t, err.Error(), "multiple errors (2)")
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "ignored"))
	assert.Nil(t, Wrapf(nil, "ignored %d", 1))
}
