// Package ingest implements an alternate, NATS-based bulk-load path for
// ADDPOINTS data: InfluxDB line-protocol batches arriving on a subscribed
// subject are decoded and written into the same registry the binary wire
// protocol serves, without going through internal/wire at all.
//
// The registry has no lock (§5's single-threaded-owner model), but a NATS
// subscription callback runs on a client-managed goroutine, not the
// reactor's. Ingester bridges the two the same way the reactor bridges a
// signal handler into its loop: decoded points are handed off over a
// channel, and a self-pipe wakes the reactor so the actual registry writes
// happen on its one goroutine.
package ingest

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/codepr/tts/internal/reactor"
	"github.com/codepr/tts/internal/timeseries"
	"github.com/codepr/tts/pkg/log"
)

// defaultQueueSize bounds how many decoded points may be in flight between
// the NATS callback and the reactor goroutine before enqueue starts
// dropping, per §5's backpressure guidance (cap and drop rather than block
// the handler).
const defaultQueueSize = 4096

type decodedPoint struct {
	Series string
	Point  timeseries.Point
}

// Ingester applies decoded line-protocol samples to a registry on the
// reactor goroutine it's attached to.
type Ingester struct {
	registry *timeseries.Registry
	clock    timeseries.Clock
	pending  chan decodedPoint
	wakeR    int
	wakeW    int
}

// New creates an Ingester writing into reg, using clock to fill any
// timestamp component a decoded line omits.
func New(reg *timeseries.Registry, clock timeseries.Clock) (*Ingester, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, fmt.Errorf("ingest: pipe: %w", err)
	}
	return &Ingester{
		registry: reg,
		clock:    clock,
		pending:  make(chan decodedPoint, defaultQueueSize),
		wakeR:    fds[0],
		wakeW:    fds[1],
	}, nil
}

// Attach registers the ingester's wake pipe with r, so queued points are
// applied on r's goroutine.
func (ing *Ingester) Attach(r *reactor.Reactor) error {
	return r.Watch(ing.wakeR, ing.onWake, nil)
}

// enqueue hands a decoded point to the reactor goroutine and wakes it. Safe
// to call from any goroutine, including a NATS subscription callback. If
// the queue is full the point is dropped and logged rather than blocking
// the caller.
func (ing *Ingester) enqueue(dp decodedPoint) {
	select {
	case ing.pending <- dp:
	default:
		log.Warnf("[INGEST] queue full, dropping point for %q", dp.Series)
		return
	}
	if _, err := unix.Write(ing.wakeW, []byte{1}); err != nil && err != unix.EAGAIN {
		log.Warnf("[INGEST] wake write: %v", err)
	}
}

func (ing *Ingester) onWake(fd int, _ reactor.Mask, _ any) {
	scratch := make([]byte, 64)
	for {
		_, err := unix.Read(fd, scratch)
		if err != nil {
			break
		}
	}

	for {
		select {
		case dp := <-ing.pending:
			ing.apply(dp)
		default:
			return
		}
	}
}

func (ing *Ingester) apply(dp decodedPoint) {
	ts, created := ing.registry.GetOrCreate(dp.Series)
	if created {
		log.Debugf("[INGEST] %q auto-created", dp.Series)
	}
	ts.Add(dp.Point, ing.clock)
}
