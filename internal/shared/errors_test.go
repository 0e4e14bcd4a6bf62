package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesCodeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("line 2: %w", ErrOutOfStock.With("vendor %d item %d", 3, 9))

	require.ErrorIs(t, err, ErrOutOfStock)
	require.NotErrorIs(t, err, ErrInsufficientStock)
	require.Equal(t, KindStock, KindOf(err))
	require.Equal(t, CodeOutOfStock, CodeOf(err))
	require.Contains(t, err.Error(), "out of stock: vendor 3 item 9")
}

func TestErrorWrapKeepsCause(t *testing.T) {
	cause := errors.New("boom")
	err := ErrInvalidInput.Wrap(cause)

	require.ErrorIs(t, err, cause)
	require.ErrorIs(t, err, ErrInvalidInput)
	require.Equal(t, "invalid input: boom", err.Error())
}

func TestKindOfPlainError(t *testing.T) {
	require.Equal(t, Kind(""), KindOf(errors.New("plain")))
	require.Equal(t, Code(""), CodeOf(nil))
}

type sample struct {
	Name  string `validate:"required"`
	Count int    `validate:"gt=0"`
}

func TestValidateStructReportsFields(t *testing.T) {
	err := ValidateStruct(sample{})
	require.ErrorIs(t, err, ErrInvalidInput)

	var e *Error
	require.True(t, errors.As(err, &e))
	require.Equal(t, "required", e.Fields["sample.Name"])
	require.Equal(t, "gt", e.Fields["sample.Count"])

	require.NoError(t, ValidateStruct(sample{Name: "apple", Count: 1}))
}
