// api/schemas/errors_test.go
package schemas_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TechNavii/computer-use-demo/api/schemas"
)

func TestErrorFormatting(t *testing.T) {
	cause := errors.New("connection refused")

	withCause := schemas.NewError(schemas.ErrServiceUnavailable, "request failed", cause)
	assert.Equal(t, "SERVICE_UNAVAILABLE: request failed: connection refused", withCause.Error())

	withoutCause := schemas.Errorf(schemas.ErrMalformedAction, "unsupported function %q", "warp_speed")
	assert.Equal(t, `MALFORMED_ACTION: unsupported function "warp_speed"`, withoutCause.Error())
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := schemas.NewError(schemas.ErrDriverError, "tab crashed", cause)

	assert.True(t, errors.Is(err, cause))
	assert.Nil(t, errors.Unwrap(schemas.Errorf(schemas.ErrTimeout, "no cause")))
}

func TestKindOf(t *testing.T) {
	direct := schemas.Errorf(schemas.ErrInvalidGeometry, "bad viewport")
	assert.Equal(t, schemas.ErrInvalidGeometry, schemas.KindOf(direct))

	wrapped := fmt.Errorf("outer context: %w", direct)
	assert.Equal(t, schemas.ErrInvalidGeometry, schemas.KindOf(wrapped))

	require.Equal(t, schemas.ErrorKind(""), schemas.KindOf(errors.New("plain")))
	require.Equal(t, schemas.ErrorKind(""), schemas.KindOf(nil))
}

func TestRecoverable(t *testing.T) {
	recoverable := []schemas.ErrorKind{
		schemas.ErrMalformedAction,
		schemas.ErrInvalidGeometry,
		schemas.ErrElementNotInteractable,
		schemas.ErrNavigationFailed,
		schemas.ErrTimeout,
	}
	for _, kind := range recoverable {
		assert.True(t, kind.Recoverable(), string(kind))
	}

	terminal := []schemas.ErrorKind{
		schemas.ErrDriverError,
		schemas.ErrServiceUnavailable,
		schemas.ErrBudgetExhausted,
	}
	for _, kind := range terminal {
		assert.False(t, kind.Recoverable(), string(kind))
	}
}
