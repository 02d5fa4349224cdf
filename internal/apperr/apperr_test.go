package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorsIsMatchesByCode(t *testing.T) {
	err := New(CodeNotFound, "work order %s not found", "wo-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrAlreadyExists)
	assert.Equal(t, "NOT_FOUND: work order wo-1 not found", err.Error())

	wrapped := fmt.Errorf("create: %w", err)
	assert.ErrorIs(t, wrapped, ErrNotFound)
	assert.Equal(t, CodeNotFound, CodeOf(wrapped))
}

func TestWithDetailCopies(t *testing.T) {
	base := New(CodeQuantityMismatch, "mismatch")
	withSum := base.WithDetail("sum", 9)
	both := withSum.WithDetail("total", 10)

	assert.Nil(t, base.Details)
	assert.Equal(t, map[string]interface{}{"sum": 9}, withSum.Details)
	assert.Equal(t, map[string]interface{}{"sum": 9, "total": 10}, both.Details)
	assert.ErrorIs(t, both, ErrQuantityMismatch)
}

func TestAsAndIsBusiness(t *testing.T) {
	sysErr := errors.New("connection refused")
	assert.False(t, IsBusiness(sysErr))
	assert.Equal(t, Code(""), CodeOf(sysErr))

	e, ok := As(fmt.Errorf("outer: %w", ErrStageNotFound))
	require.True(t, ok)
	assert.Equal(t, CodeStageNotFound, e.Code)
	assert.True(t, IsBusiness(e))
}

func TestRequireActor(t *testing.T) {
	assert.NoError(t, RequireActor("user-1"))
	assert.ErrorIs(t, RequireActor(""), ErrValidation)
}
