package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/walletapp/wallet-core/internal/errors"
)

func TestError_IsMatchesByCode(t *testing.T) {
	err := errors.NotFoundf("card %s not found", "abc")

	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.False(t, errors.Is(err, errors.ErrValidation))
	assert.Equal(t, "card abc not found", err.Error())
}

func TestError_WrapKeepsCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := errors.Wrap(cause, errors.CodeInitFailed, "open database")

	assert.Equal(t, "open database: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, errors.ErrInitFailed)

	wrapped := fmt.Errorf("startup: %w", err)
	var domainErr *errors.Error
	assert.True(t, errors.As(wrapped, &domainErr))
	assert.Equal(t, errors.CodeInitFailed, domainErr.Code)
}

func TestError_WithDetails(t *testing.T) {
	details := map[string]string{"name": "is required"}
	err := errors.ErrValidation.WithDetails(details)

	assert.Equal(t, details, err.Details)
	assert.Nil(t, errors.ErrValidation.Details, "sentinel must not be mutated")
}

func TestCode_ExitCode(t *testing.T) {
	tests := []struct {
		code errors.Code
		want int
	}{
		{errors.CodeNotFound, 3},
		{errors.CodeValidation, 2},
		{errors.CodeNotInitialized, 4},
		{errors.CodeInitFailed, 4},
		{errors.CodeSchemaTooNew, 4},
		{errors.CodeDataCorruption, 5},
		{errors.CodeInternal, 1},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.ExitCode())
		})
	}
}
