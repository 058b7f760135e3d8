//go:build !linux

package reactor

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// pollPoller is the portable fallback multiplexer backend for non-Linux
// Unixes, built on poll(2) rather than a platform-specific kqueue binding —
// the retrieval pack has no kqueue-wrapping example to ground a
// darwin-specific backend on, so this instead follows the design notes'
// instruction to hide "dual multiplexer backends" behind one interface
// without mandating which syscall each side uses, as long as behavior is
// equivalent. Linux keeps the epoll backend in platform_linux.go.
type pollPoller struct {
	fds []unix.PollFd
}

func newPoller() (poller, error) {
	return &pollPoller{}, nil
}

func toPollEvents(mask Mask) int16 {
	var events int16
	if mask&MaskRead != 0 {
		events |= unix.POLLIN
	}
	if mask&MaskWrite != 0 {
		events |= unix.POLLOUT
	}
	return events
}

func fromPollEvents(events int16) Mask {
	var mask Mask
	if events&unix.POLLIN != 0 {
		mask |= MaskRead
	}
	if events&unix.POLLOUT != 0 {
		mask |= MaskWrite
	}
	if events&(unix.POLLHUP|unix.POLLERR) != 0 {
		mask |= MaskDisconnect
	}
	return mask
}

func (p *pollPoller) indexOf(fd int) int {
	for i := range p.fds {
		if int(p.fds[i].Fd) == fd {
			return i
		}
	}
	return -1
}

func (p *pollPoller) add(fd int, mask Mask) error {
	if p.indexOf(fd) >= 0 {
		return p.modify(fd, mask)
	}
	p.fds = append(p.fds, unix.PollFd{Fd: int32(fd), Events: toPollEvents(mask)})
	return nil
}

func (p *pollPoller) modify(fd int, mask Mask) error {
	i := p.indexOf(fd)
	if i < 0 {
		return fmt.Errorf("poll: fd %d not registered", fd)
	}
	p.fds[i].Events = toPollEvents(mask)
	return nil
}

func (p *pollPoller) del(fd int) error {
	i := p.indexOf(fd)
	if i < 0 {
		return nil
	}
	p.fds = append(p.fds[:i], p.fds[i+1:]...)
	return nil
}

func (p *pollPoller) poll(timeoutMs int) ([]readyEvent, error) {
	for {
		n, err := unix.Poll(p.fds, timeoutMs)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil, err
		}
		out := make([]readyEvent, 0, n)
		for _, pfd := range p.fds {
			if pfd.Revents == 0 {
				continue
			}
			out = append(out, readyEvent{fd: int(pfd.Fd), mask: fromPollEvents(pfd.Revents)})
		}
		return out, nil
	}
}

func (p *pollPoller) close() error { return nil }

// newWakeFD uses a self-pipe: kick (Stop, or a signal handler) writes a
// byte to the write end, the reactor watches the read end.
func newWakeFD() (fd int, drain func() error, kick func() error, err error) {
	fds := make([]int, 2)
	if err := unix.Pipe(fds); err != nil {
		return 0, nil, nil, fmt.Errorf("pipe: %w", err)
	}
	unix.SetNonblock(fds[0], true)
	unix.SetNonblock(fds[1], true)
	drain = func() error {
		var buf [64]byte
		for {
			_, err := unix.Read(fds[0], buf[:])
			if err != nil {
				return nil
			}
		}
	}
	kick = func() error {
		_, err := unix.Write(fds[1], []byte{1})
		return err
	}
	return fds[0], drain, kick, nil
}

// newTimerFD has no portable fd-based equivalent to Linux's timerfd
// outside the standard library's own (non-fd) timers, so the fallback
// backend drives the callback from a time.Ticker goroutine instead and
// signals readiness through the same self-pipe trick as the wake fd.
func newTimerFD(seconds, nanos int64) (int, func() error, error) {
	fds := make([]int, 2)
	if err := unix.Pipe(fds); err != nil {
		return 0, nil, fmt.Errorf("pipe: %w", err)
	}
	unix.SetNonblock(fds[0], true)
	unix.SetNonblock(fds[1], true)

	period := time.Duration(seconds)*time.Second + time.Duration(nanos)
	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for range ticker.C {
			if _, err := unix.Write(fds[1], []byte{1}); err != nil {
				return
			}
		}
	}()

	drain := func() error {
		var buf [64]byte
		for {
			_, err := unix.Read(fds[0], buf[:])
			if err != nil {
				return nil
			}
		}
	}
	return fds[0], drain, nil
}
