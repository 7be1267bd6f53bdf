package errors

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexingErrorWrapping(t *testing.T) {
	underlying := fs.ErrNotExist
	err := NewIndexingError("read", underlying).WithURI("file:///ws/main.rho")

	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Contains(t, err.Error(), "main.rho")
	assert.Contains(t, err.Error(), "read")

	var ie *IndexingError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "file:///ws/main.rho", ie.URI)
}

func TestIndexingErrorRecoverable(t *testing.T) {
	err := NewIndexingError("parse", errors.New("boom")).WithRecoverable(true)
	assert.True(t, err.IsRecoverable())
}

func TestParseErrorMessage(t *testing.T) {
	err := NewParseError("file:///ws/bad.rho", 4, 9, "}", "unexpected closing brace")

	// Human-readable positions are one-based
	assert.Contains(t, err.Error(), "5:10")
	assert.Contains(t, err.Error(), `"}"`)
}

func TestEncodeErrorKinds(t *testing.T) {
	unsupported := NewEncodeError(EncodeUnsupportedNode, "Bundle")
	assert.Contains(t, unsupported.Error(), "unsupported_node")
	assert.Contains(t, unsupported.Error(), "Bundle")

	varInValue := NewEncodeError(EncodeVariableInValue, "Var")
	assert.Equal(t, EncodeVariableInValue, varInValue.Kind)
	assert.Contains(t, varInValue.Error(), "variable_in_value")
}

func TestCacheErrors(t *testing.T) {
	corrupt := NewCacheCorruptionError("/cache/abc.cache", errors.New("bad magic"))
	assert.False(t, corrupt.IsVersionMismatch())
	assert.Contains(t, corrupt.Error(), "bad magic")

	mismatch := NewVersionMismatchError("/cache/metadata.json", 2, 3)
	assert.True(t, mismatch.IsVersionMismatch())
	assert.Contains(t, mismatch.Error(), "2")
	assert.Contains(t, mismatch.Error(), "3")
}

func TestDuplicateInScope(t *testing.T) {
	err := NewDuplicateInScopeError("stdout", 7)
	assert.Contains(t, err.Error(), "stdout")

	var dup *DuplicateInScopeError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, 7, dup.ScopeID)
}
