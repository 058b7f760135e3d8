package connection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestResolveSockaddrIPv4(t *testing.T) {
	sa, family := resolveSockaddr("127.0.0.1", 19191)
	assert.Equal(t, unix.AF_INET, family)
	in4, ok := sa.(*unix.SockaddrInet4)
	assert.True(t, ok)
	assert.Equal(t, [4]byte{127, 0, 0, 1}, in4.Addr)
	assert.Equal(t, 19191, in4.Port)
}

func TestResolveSockaddrIPv6(t *testing.T) {
	sa, family := resolveSockaddr("::1", 19191)
	assert.Equal(t, unix.AF_INET6, family)
	in6, ok := sa.(*unix.SockaddrInet6)
	assert.True(t, ok)
	assert.Equal(t, 19191, in6.Port)
	want := [16]byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1}
	assert.Equal(t, want, in6.Addr)
}

func TestResolveSockaddrEmptyFallsBackToIPv4Any(t *testing.T) {
	sa, family := resolveSockaddr("", 19191)
	assert.Equal(t, unix.AF_INET, family)
	in4, ok := sa.(*unix.SockaddrInet4)
	assert.True(t, ok)
	assert.Equal(t, [4]byte{}, in4.Addr)
}

func TestCappedBacklogClampsToSomaxconn(t *testing.T) {
	assert.Equal(t, unix.SOMAXCONN, cappedBacklog(0))
	assert.Equal(t, unix.SOMAXCONN, cappedBacklog(unix.SOMAXCONN+1))
	assert.Equal(t, 64, cappedBacklog(64))
}
