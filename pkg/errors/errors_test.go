package errors

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	e1 := New("cause1")
	e2 := New("cause2").Wrap(e1)
	e := New("dummy").Wrap(e2)
	e3 := e.Unwrap()
	assert.True(t, Is(e, e1))
	assert.True(t, Is(e, e2))
	assert.True(t, e3 == e2)
}

func TestSentinelNotMutated(t *testing.T) {
	sentinel := New("not found")
	wrapped := sentinel.Wrap(io.EOF)

	require.Nil(t, sentinel.Unwrap())
	assert.True(t, Is(wrapped, sentinel))
	assert.True(t, Is(wrapped, io.EOF))
	assert.Equal(t, "not found: EOF", wrapped.Error())

	other := New("not found")
	assert.False(t, Is(wrapped, other))

	msg := sentinel.WrapMessage("chunk %d", 3)
	assert.True(t, Is(msg, sentinel))
	assert.Equal(t, "not found: chunk 3", msg.Error())

	var target *Error
	require.True(t, As(wrapped, &target))
	assert.True(t, Is(target, sentinel))
}
