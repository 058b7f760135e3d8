package connection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/codepr/tts/internal/reactor"
	"github.com/codepr/tts/internal/wire"
)

// socketpairConn creates a connected pair of non-blocking Unix sockets: one
// end wrapped in a *Conn driven by r, the other left raw for the test to
// read/write against directly, standing in for a remote peer.
func socketpairConn(t *testing.T, r *reactor.Reactor, onFrame FrameHandler, onClose CloseHandler) (*Conn, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	require.NoError(t, err)

	c := newConn(fds[0], r, onFrame, onClose)
	require.NoError(t, r.Watch(fds[0], c.readable, nil))
	return c, fds[1]
}

func TestConnDecodesAndDispatchesOneFrame(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)

	got := make(chan wire.Packet, 1)
	c, peer := socketpairConn(t, r, func(conn *Conn, h wire.Header, p wire.Packet) {
		got <- p
		r.Stop()
	}, nil)
	defer unix.Close(peer)

	frame := wire.Encode(wire.TypeRequest, wire.StatusOK, &wire.CreateTS{Name: "cpu", Retention: 60000})
	_, err = unix.Write(peer, frame)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- r.Run() }()

	select {
	case p := <-got:
		ct, ok := p.(*wire.CreateTS)
		require.True(t, ok)
		assert.Equal(t, "cpu", ct.Name)
	case <-time.After(2 * time.Second):
		t.Fatal("frame never dispatched")
	}
	<-done
}

func TestConnSendDrainsToPeer(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)

	var c *Conn
	c, peer := socketpairConn(t, r, func(conn *Conn, h wire.Header, p wire.Packet) {}, nil)
	defer unix.Close(peer)

	c.Send(wire.Encode(wire.TypeResponse, wire.StatusOK, &wire.Ack{}))

	done := make(chan error, 1)
	go func() { done <- r.Run() }()
	defer func() { r.Stop(); <-done }()

	buf := make([]byte, 64)
	deadline := time.Now().Add(2 * time.Second)
	var n int
	for time.Now().Before(deadline) {
		n, err = unix.Read(peer, buf)
		if err == nil && n > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.Greater(t, n, 0)

	_, p, _, err := wire.Decode(buf[:n])
	require.NoError(t, err)
	assert.IsType(t, &wire.Ack{}, p)
}

func TestConnClosesOnMalformedFrame(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)

	closed := make(chan struct{}, 1)
	c, peer := socketpairConn(t, r, func(conn *Conn, h wire.Header, p wire.Packet) {}, func(conn *Conn) {
		closed <- struct{}{}
		r.Stop()
	})
	_ = c
	defer unix.Close(peer)

	// Header claims opcode ACK (5) but a non-empty body -> malformed.
	bad := []byte{byte(wire.OpAck) << 3, 0, 0, 0, 1, 0xff}
	_, err = unix.Write(peer, bad)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- r.Run() }()

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("connection never closed on malformed frame")
	}
	<-done
}
