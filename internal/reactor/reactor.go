// Package reactor implements the single-threaded, readiness-based event
// loop described by the networking layer: a mapping from file descriptor to
// callback, a pluggable multiplexer (epoll on Linux, poll(2) elsewhere),
// cron timers, and an eventfd/pipe-backed wake mechanism used to turn a
// signal handler into a clean shutdown. Every exported method must be
// called from the goroutine that calls Run — the reactor keeps no lock of
// its own, matching the no-lock concurrency model described for the
// registry and timeseries engine.
package reactor

import (
	"fmt"
	"reflect"

	"github.com/codepr/tts/pkg/log"
)

// Mask is a bitset of event kinds. READ/WRITE come from the multiplexer;
// DISCONNECT is synthesized by the poller backend from a hangup or error
// condition. INTERNAL_WAKE marks the wake fd's registration, and
// INTERNAL_TIMER is the mask a cron callback receives; no poller backend
// reports either of them, nor CLOSE, on a ready event.
type Mask uint8

const (
	MaskRead Mask = 1 << iota
	MaskWrite
	MaskDisconnect
	MaskInternalWake
	MaskInternalTimer
	MaskClose
)

// Callback is invoked by Run when its registered fd becomes ready. mask
// reports which condition(s) fired.
type Callback func(fd int, mask Mask, userData any)

type eventRecord struct {
	mask     Mask
	readCB   Callback
	writeCB  Callback
	userData any
}

type readyEvent struct {
	fd   int
	mask Mask
}

// poller is the dual-multiplexer-backend trait: one implementation per
// platform, selected at build time (see platform_linux.go, platform_unix.go).
type poller interface {
	add(fd int, mask Mask) error
	modify(fd int, mask Mask) error
	del(fd int) error
	poll(timeoutMs int) ([]readyEvent, error)
	close() error
}

// Reactor is the event loop. Construct with New, register fds and cron
// timers, then call Run; Stop (safe to call from another goroutine, e.g. a
// signal handler) asks it to exit after the current dispatch completes.
type Reactor struct {
	poller   poller
	events   map[int]*eventRecord
	wakeFD   int
	wakeKick func() error
	running  bool
}

// New creates a reactor with its platform multiplexer and internal wake fd
// already wired up.
func New() (*Reactor, error) {
	p, err := newPoller()
	if err != nil {
		return nil, fmt.Errorf("reactor: create poller: %w", err)
	}
	wakeFD, drain, kick, err := newWakeFD()
	if err != nil {
		p.close()
		return nil, fmt.Errorf("reactor: create wake fd: %w", err)
	}

	r := &Reactor{poller: p, events: make(map[int]*eventRecord), wakeFD: wakeFD, wakeKick: kick}
	wakeCB := func(_ int, _ Mask, _ any) { drain() }
	if err := r.Register(wakeFD, MaskRead|MaskInternalWake, wakeCB, nil); err != nil {
		p.close()
		return nil, err
	}
	return r, nil
}

// Watch registers fd for read-only monitoring; a convenience wrapper over
// Register for listener sockets that never need a write callback.
func (r *Reactor) Watch(fd int, cb Callback, userData any) error {
	return r.Register(fd, MaskRead, cb, userData)
}

// Register adds fd to the multiplexer under mask and remembers cb/userData.
// cb is assigned to whichever of the READ/WRITE slots mask selects. For the
// reactor's own wake fd registered with MaskInternalWake, the reactor
// nudges it once immediately so the wake event is observed on the very
// next Run iteration; Stop writes to the same fd to unblock a loop that is
// already parked in poll.
func (r *Reactor) Register(fd int, mask Mask, cb Callback, userData any) error {
	rec := &eventRecord{mask: mask, userData: userData}
	setCallback(rec, mask, cb)
	if err := r.poller.add(fd, mask); err != nil {
		return fmt.Errorf("reactor: register fd %d: %w", fd, err)
	}
	r.events[fd] = rec
	if mask&MaskInternalWake != 0 && fd == r.wakeFD && r.wakeKick != nil {
		if err := r.wakeKick(); err != nil {
			return fmt.Errorf("reactor: nudge wake fd %d: %w", fd, err)
		}
	}
	return nil
}

// Fire re-arms an already-registered fd with a new direction/callback pair,
// e.g. switching a connection from read-armed to write-armed once a
// response is queued.
func (r *Reactor) Fire(fd int, mask Mask, cb Callback, userData any) error {
	rec, ok := r.events[fd]
	if !ok {
		return fmt.Errorf("reactor: fire: fd %d not registered", fd)
	}
	rec.mask = mask
	rec.userData = userData
	setCallback(rec, mask, cb)
	if err := r.poller.modify(fd, mask); err != nil {
		return fmt.Errorf("reactor: fire fd %d: %w", fd, err)
	}
	return nil
}

// Del unregisters fd and clears its event record.
func (r *Reactor) Del(fd int) error {
	delete(r.events, fd)
	if err := r.poller.del(fd); err != nil {
		return fmt.Errorf("reactor: del fd %d: %w", fd, err)
	}
	return nil
}

// RegisterCron schedules cb to run repeatedly every (seconds, nanos) using
// a platform timer (timerfd on Linux, a ticker-fed self-pipe elsewhere).
func (r *Reactor) RegisterCron(cb Callback, userData any, seconds, nanos int64) error {
	fd, drain, err := newTimerFD(seconds, nanos)
	if err != nil {
		return fmt.Errorf("reactor: register cron: %w", err)
	}
	wrapped := func(_ int, _ Mask, data any) {
		if err := drain(); err != nil {
			log.Warnf("[REACTOR] cron drain fd %d: %v", fd, err)
		}
		cb(fd, MaskInternalTimer, data)
	}
	return r.Register(fd, MaskRead, wrapped, userData)
}

// Stop asks the loop to exit after it finishes dispatching the events
// already returned by the current poll call. It clears the running flag
// and writes one token to the wake fd so that a parked poll returns.
func (r *Reactor) Stop() error {
	r.running = false
	return r.wakeKick()
}

// Run blocks, dispatching ready events to their callbacks, until Stop is
// called. Only the poll call itself may block; callbacks must not.
func (r *Reactor) Run() error {
	r.running = true
	for r.running {
		events, err := r.poller.poll(-1)
		if err != nil {
			return fmt.Errorf("reactor: poll: %w", err)
		}
		for _, ev := range events {
			rec, ok := r.events[ev.fd]
			if !ok {
				continue
			}
			r.dispatch(ev, rec)
		}
	}
	return nil
}

func (r *Reactor) dispatch(ev readyEvent, rec *eventRecord) {
	if ev.mask&(MaskClose|MaskInternalWake|MaskDisconnect) != 0 {
		if rec.readCB != nil {
			rec.readCB(ev.fd, ev.mask, rec.userData)
		}
		return
	}
	if ev.mask&MaskRead != 0 && rec.readCB != nil {
		rec.readCB(ev.fd, ev.mask, rec.userData)
	}
	if ev.mask&MaskWrite != 0 && rec.writeCB != nil {
		bothFired := ev.mask&MaskRead != 0
		if !bothFired || !sameCallback(rec.writeCB, rec.readCB) {
			rec.writeCB(ev.fd, ev.mask, rec.userData)
		}
	}
}

func setCallback(rec *eventRecord, mask Mask, cb Callback) {
	if mask&MaskRead != 0 {
		rec.readCB = cb
	}
	if mask&MaskWrite != 0 {
		rec.writeCB = cb
	}
}

// sameCallback compares two callbacks by underlying code pointer. Exact
// closure identity isn't observable in Go; this is the same approximation
// reflect-based equality checks elsewhere in the ecosystem rely on, and is
// only used to avoid a double-invocation on a fd registered with the same
// function for both directions.
func sameCallback(a, b Callback) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}
