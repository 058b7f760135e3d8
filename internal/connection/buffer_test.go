package connection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferStartsAtInitialCapacity(t *testing.T) {
	b := newBuffer()
	assert.Equal(t, initialBufferCapacity, cap(b.data))
	assert.Equal(t, 0, b.len())
}

func TestBufferAppendAndAdvance(t *testing.T) {
	b := newBuffer()
	b.append([]byte("hello"))
	assert.Equal(t, 5, b.len())
	assert.Equal(t, []byte("hello"), b.unread())

	b.advance(2)
	assert.Equal(t, 3, b.len())
	assert.Equal(t, []byte("llo"), b.unread())

	b.advance(3)
	assert.Equal(t, 0, b.len())
}

func TestBufferGrowsOnFill(t *testing.T) {
	b := newBuffer()
	big := make([]byte, initialBufferCapacity+1)
	b.append(big)
	assert.GreaterOrEqual(t, cap(b.data), initialBufferCapacity*2)
	assert.Equal(t, len(big), b.len())
}

func TestBufferGrowPreservesUnreadBytesOnly(t *testing.T) {
	b := newBuffer()
	b.append([]byte("consumed-prefix"))
	b.advance(len("consumed-"))

	big := make([]byte, initialBufferCapacity*2)
	copy(big, []byte("filler"))
	b.append(big)

	assert.Equal(t, append([]byte("prefix"), big...), b.unread())
}

func TestBufferResetAfterFullyConsumed(t *testing.T) {
	b := newBuffer()
	b.append([]byte("x"))
	b.advance(1)
	assert.Equal(t, 0, b.off)
	assert.Equal(t, 0, len(b.data))
}
