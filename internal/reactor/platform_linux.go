//go:build linux

package reactor

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// epollPoller is the Linux multiplexer backend, grounded on the same
// per-platform-socket split used by the retrieval pack's beacon repo
// (internal/transport/socket_linux.go): one file per OS, same interface.
type epollPoller struct {
	epfd int
}

func newPoller() (poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}
	return &epollPoller{epfd: epfd}, nil
}

func toEpollEvents(mask Mask) uint32 {
	var events uint32
	if mask&MaskRead != 0 {
		events |= unix.EPOLLIN
	}
	if mask&MaskWrite != 0 {
		events |= unix.EPOLLOUT
	}
	return events
}

func fromEpollEvents(events uint32) Mask {
	var mask Mask
	if events&unix.EPOLLIN != 0 {
		mask |= MaskRead
	}
	if events&unix.EPOLLOUT != 0 {
		mask |= MaskWrite
	}
	if events&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0 {
		mask |= MaskDisconnect
	}
	if events&unix.EPOLLERR != 0 {
		mask |= MaskDisconnect
	}
	return mask
}

func (p *epollPoller) add(fd int, mask Mask) error {
	ev := unix.EpollEvent{Events: toEpollEvents(mask) | unix.EPOLLRDHUP, Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

func (p *epollPoller) modify(fd int, mask Mask) error {
	ev := unix.EpollEvent{Events: toEpollEvents(mask) | unix.EPOLLRDHUP, Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

func (p *epollPoller) del(fd int) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

func (p *epollPoller) poll(timeoutMs int) ([]readyEvent, error) {
	raw := make([]unix.EpollEvent, 128)
	for {
		n, err := unix.EpollWait(p.epfd, raw, timeoutMs)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil, err
		}
		out := make([]readyEvent, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, readyEvent{fd: int(raw[i].Fd), mask: fromEpollEvents(raw[i].Events)})
		}
		return out, nil
	}
}

func (p *epollPoller) close() error {
	return unix.Close(p.epfd)
}

// newWakeFD creates the eventfd used to turn a signal handler or Stop call
// into a reactor-observable read event. kick writes one token to it.
func newWakeFD() (fd int, drain func() error, kick func() error, err error) {
	fd, err = unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("eventfd: %w", err)
	}
	drain = func() error {
		var buf [8]byte
		_, err := unix.Read(fd, buf[:])
		if err != nil && err != unix.EAGAIN {
			return err
		}
		return nil
	}
	kick = func() error {
		buf := [8]byte{0, 0, 0, 0, 0, 0, 0, 1}
		_, err := unix.Write(fd, buf[:])
		return err
	}
	return fd, drain, kick, nil
}

// newTimerFD creates a repeating timerfd, the Linux analogue of kqueue's
// EVFILT_TIMER, firing every (seconds, nanos).
func newTimerFD(seconds, nanos int64) (int, func() error, error) {
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_CLOEXEC|unix.TFD_NONBLOCK)
	if err != nil {
		return 0, nil, fmt.Errorf("timerfd_create: %w", err)
	}
	spec := unix.ItimerSpec{
		Interval: unix.NsecToTimespec(seconds*1_000_000_000 + nanos),
		Value:    unix.NsecToTimespec(seconds*1_000_000_000 + nanos),
	}
	if err := unix.TimerfdSettime(fd, 0, &spec, nil); err != nil {
		unix.Close(fd)
		return 0, nil, fmt.Errorf("timerfd_settime: %w", err)
	}
	drain := func() error {
		var buf [8]byte
		_, err := unix.Read(fd, buf[:])
		if err != nil && err != unix.EAGAIN {
			return err
		}
		return nil
	}
	return fd, drain, nil
}
