package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("load workout: %w", WrapDomainError(ModuleModel, ErrorCodeUnavailable, "model: rpc", cause))

	assert.True(t, IsDomainError(err))
	assert.True(t, IsUnavailable(err))
	assert.False(t, IsNotFound(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "load workout: model: rpc: connection refused", err.Error())
	assert.Equal(t, ModuleModel, GetDomainError(err).Module)

	assert.True(t, IsNotInitialized(fmt.Errorf("workout: %w", ErrNotInitialized)))
	assert.True(t, IsStoreNotFound(ErrStoreNotFound))
	assert.False(t, IsStoreNotFound(NewDomainError(ModuleFeature, ErrorCodeNotFound, "x")))
	assert.Nil(t, GetDomainError(nil))
	assert.False(t, IsInvalidInput(errors.New("plain")))
}
