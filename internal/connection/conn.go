package connection

import (
	"golang.org/x/sys/unix"

	"github.com/codepr/tts/internal/reactor"
	"github.com/codepr/tts/internal/wire"
	"github.com/codepr/tts/pkg/log"
)

// readChunk is the size of each non-blocking read(2) call; it has no
// relationship to the per-connection buffer's own growth, which happens
// independently as frames accumulate faster than they're consumed.
const readChunk = 4096

// FrameHandler processes one fully-decoded frame and must queue any
// response via Conn.Send before returning. It runs synchronously on the
// reactor goroutine and must not block — see §5's handler contract.
type FrameHandler func(conn *Conn, header wire.Header, packet wire.Packet)

// CloseHandler is notified once a connection is torn down, including on a
// client-initiated disconnect and on a fatal framing error.
type CloseHandler func(conn *Conn)

// Conn is one accepted socket's buffering and framing state: a receive
// buffer filled by non-blocking reads and drained one wire frame at a
// time, and a send buffer filled by response encoding and drained by
// non-blocking writes. Conn is registered with exactly one reactor for its
// entire lifetime and must only be touched from that reactor's goroutine.
type Conn struct {
	fd      int
	reactor *reactor.Reactor
	recv    *buffer
	send    *buffer
	onFrame FrameHandler
	onClose CloseHandler
	closed  bool
	Data    any // free for the dispatcher to stash per-connection state
}

func newConn(fd int, r *reactor.Reactor, onFrame FrameHandler, onClose CloseHandler) *Conn {
	return &Conn{fd: fd, reactor: r, recv: newBuffer(), send: newBuffer(), onFrame: onFrame, onClose: onClose}
}

// Fd returns the underlying file descriptor.
func (c *Conn) Fd() int { return c.fd }

// readable is registered as the reactor's read callback. It drains the
// socket until it would block, decoding and dispatching every complete
// frame as it becomes available, and tears the connection down on
// disconnect or a malformed frame.
func (c *Conn) readable(_ int, mask reactor.Mask, _ any) {
	if mask&reactor.MaskDisconnect != 0 {
		c.close()
		return
	}

	scratch := make([]byte, readChunk)
	for {
		n, err := unix.Read(c.fd, scratch)
		if n > 0 {
			c.recv.append(scratch[:n])
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			break
		}
		if err != nil {
			log.Debugf("[CONN] fd %d read error: %v", c.fd, err)
			c.close()
			return
		}
		if n == 0 {
			c.close() // PEER_DISCONNECT: zero-byte read
			return
		}
		if n < len(scratch) {
			break
		}
	}

	if !c.drainFrames() {
		return // malformed frame already closed the connection
	}
	if c.send.len() > 0 {
		c.armWrite()
	}
}

// drainFrames decodes and dispatches every complete frame currently
// buffered. It returns false if a malformed frame forced the connection
// closed (§7: MALFORMED_PACKET is connection-fatal, no response).
func (c *Conn) drainFrames() bool {
	for {
		total, ok := wire.PeekFrameLen(c.recv.unread())
		if !ok || c.recv.len() < total {
			return true // need more bytes for even the header, or the body
		}
		header, packet, n, err := wire.Decode(c.recv.unread())
		if err != nil {
			log.Debugf("[CONN] fd %d malformed frame: %v", c.fd, err)
			c.close()
			return false
		}
		c.recv.advance(n)
		c.onFrame(c, header, packet)
	}
}

// Send queues bytes (typically wire.Encode's output) for transmission,
// arming the reactor for writability if the send buffer was idle.
func (c *Conn) Send(frame []byte) {
	wasEmpty := c.send.len() == 0
	c.send.append(frame)
	if wasEmpty {
		c.armWrite()
	}
}

func (c *Conn) armWrite() {
	if err := c.reactor.Fire(c.fd, reactor.MaskWrite, c.writable, nil); err != nil {
		log.Warnf("[CONN] fd %d arm write: %v", c.fd, err)
	}
}

func (c *Conn) armRead() {
	if err := c.reactor.Fire(c.fd, reactor.MaskRead, c.readable, nil); err != nil {
		log.Warnf("[CONN] fd %d arm read: %v", c.fd, err)
	}
}

// writable is registered as the reactor's write callback whenever the send
// buffer is non-empty. It drains as much as the socket accepts without
// blocking and re-arms for read once the buffer is empty again.
func (c *Conn) writable(_ int, _ reactor.Mask, _ any) {
	for c.send.len() > 0 {
		n, err := unix.Write(c.fd, c.send.unread())
		if n > 0 {
			c.send.advance(n)
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return // re-armed already; wait for the next writability event
		}
		if err != nil {
			log.Debugf("[CONN] fd %d write error: %v", c.fd, err)
			c.close()
			return
		}
	}
	c.armRead()
}

func (c *Conn) close() {
	if c.closed {
		return
	}
	c.closed = true
	c.reactor.Del(c.fd)
	unix.Close(c.fd)
	if c.onClose != nil {
		c.onClose(c)
	}
}
