package connection

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"

	"github.com/codepr/tts/internal/metrics"
	"github.com/codepr/tts/internal/reactor"
	"github.com/codepr/tts/pkg/log"
)

// ListenConfig is the subset of configuration the connection layer needs
// to open its listening socket: either a TCP address/port or a Unix socket
// path, plus the requested backlog (capped against SOMAXCONN).
type ListenConfig struct {
	UnixSocket string // non-empty switches to Unix-socket mode
	IPAddress  string
	IPPort     int
	TCPBacklog int
}

// Server owns the listening socket and hands every accepted connection to
// the reactor, wiring its read/write callbacks to onFrame/onClose.
type Server struct {
	reactor  *reactor.Reactor
	listenFD int
	onFrame  FrameHandler
	onClose  CloseHandler
	conns    map[int]*Conn
}

// NewServer binds and listens per cfg, but does not yet accept connections
// — call Start to register the accept callback with r.
func NewServer(r *reactor.Reactor, cfg ListenConfig, onFrame FrameHandler, onClose CloseHandler) (*Server, error) {
	fd, err := listen(cfg)
	if err != nil {
		return nil, err
	}
	return &Server{reactor: r, listenFD: fd, onFrame: onFrame, onClose: onClose, conns: make(map[int]*Conn)}, nil
}

// Start registers the listening socket for read-readiness (i.e.
// acceptability) with the reactor.
func (s *Server) Start() error {
	return s.reactor.Watch(s.listenFD, s.acceptable, nil)
}

// Close stops accepting and closes every live connection.
func (s *Server) Close() {
	s.reactor.Del(s.listenFD)
	unix.Close(s.listenFD)
	for _, c := range s.conns {
		c.close()
	}
}

func (s *Server) acceptable(_ int, _ reactor.Mask, _ any) {
	for {
		fd, _, err := unix.Accept4(s.listenFD, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return
		}
		if err != nil {
			log.Warnf("[CONN] accept: %v", err)
			return
		}

		conn := newConn(fd, s.reactor, s.onFrame, s.wrapClose(fd))
		s.conns[fd] = conn
		if err := s.reactor.Watch(fd, conn.readable, nil); err != nil {
			log.Warnf("[CONN] register fd %d: %v", fd, err)
			unix.Close(fd)
			delete(s.conns, fd)
			continue
		}
		metrics.ConnectionOpened()
		log.Debugf("[CONN] accepted fd %d", fd)
	}
}

func (s *Server) wrapClose(fd int) CloseHandler {
	return func(c *Conn) {
		delete(s.conns, fd)
		metrics.ConnectionClosed()
		if s.onClose != nil {
			s.onClose(c)
		}
	}
}

func listen(cfg ListenConfig) (int, error) {
	if cfg.UnixSocket != "" {
		return listenUnix(cfg.UnixSocket, cfg.TCPBacklog)
	}
	return listenTCP(cfg.IPAddress, cfg.IPPort, cfg.TCPBacklog)
}

// cappedBacklog applies the platform SOMAXCONN ceiling to a configured
// tcp_backlog value, per SPEC_FULL.md §12.
func cappedBacklog(requested int) int {
	if requested <= 0 || requested > unix.SOMAXCONN {
		return unix.SOMAXCONN
	}
	return requested
}

// listenTCP binds either an IPv4 or an IPv6 socket depending on how addr
// parses, per §6's "IPv4/IPv6 (default 127.0.0.1:19191, configurable)".
// An address that fails to parse as an IP literal falls back to IPv4
// any-address, matching the original's getaddrinfo(AF_UNSPEC) behavior of
// preferring IPv6 only when one is actually present in the config.
func listenTCP(addr string, port int, backlog int) (int, error) {
	sa, family := resolveSockaddr(addr, port)

	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return 0, fmt.Errorf("connection: socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return 0, fmt.Errorf("connection: setsockopt SO_REUSEADDR: %w", err)
	}

	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return 0, fmt.Errorf("connection: bind %s:%d: %w", addr, port, err)
	}
	if err := unix.Listen(fd, cappedBacklog(backlog)); err != nil {
		unix.Close(fd)
		return 0, fmt.Errorf("connection: listen: %w", err)
	}
	return fd, nil
}

// resolveSockaddr parses addr as an IPv4 or IPv6 literal and returns the
// matching unix.Sockaddr plus socket family. An unparseable or empty addr
// binds INADDR_ANY over IPv4, the same default the original falls back to.
func resolveSockaddr(addr string, port int) (unix.Sockaddr, int) {
	ip := net.ParseIP(addr)
	if ip == nil {
		var zero [4]byte
		return &unix.SockaddrInet4{Port: port, Addr: zero}, unix.AF_INET
	}
	if v4 := ip.To4(); v4 != nil {
		var a [4]byte
		copy(a[:], v4)
		return &unix.SockaddrInet4{Port: port, Addr: a}, unix.AF_INET
	}
	var a [16]byte
	copy(a[:], ip.To16())
	return &unix.SockaddrInet6{Port: port, Addr: a}, unix.AF_INET6
}

func listenUnix(path string, backlog int) (int, error) {
	os.Remove(path)
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return 0, fmt.Errorf("connection: socket: %w", err)
	}
	sa := &unix.SockaddrUnix{Name: path}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return 0, fmt.Errorf("connection: bind %s: %w", path, err)
	}
	if err := unix.Listen(fd, cappedBacklog(backlog)); err != nil {
		unix.Close(fd)
		return 0, fmt.Errorf("connection: listen: %w", err)
	}
	return fd, nil
}
