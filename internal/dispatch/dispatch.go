// Package dispatch implements the request dispatcher of §4.6: one handler
// per opcode, each consuming a decoded wire.Packet plus a *timeseries.Registry
// and writing exactly one response packet onto the connection's send
// buffer. Handlers are pure with respect to the reactor — they never block
// and always complete synchronously on the calling goroutine.
package dispatch

import (
	"time"

	"github.com/codepr/tts/internal/connection"
	"github.com/codepr/tts/internal/metrics"
	"github.com/codepr/tts/internal/timeseries"
	"github.com/codepr/tts/internal/wire"
	"github.com/codepr/tts/pkg/log"
)

// Dispatcher routes decoded frames to their per-opcode handler against a
// single registry. It has no lock: like the registry it wraps, a Dispatcher
// is only ever touched by the one reactor goroutine that owns it.
type Dispatcher struct {
	registry *timeseries.Registry
	clock    timeseries.Clock
}

// New returns a dispatcher backed by reg, using clock to fill in timestamp
// components omitted by clients (see §4.4). Production callers pass
// timeseries.SystemClock{}.
func New(reg *timeseries.Registry, clock timeseries.Clock) *Dispatcher {
	return &Dispatcher{registry: reg, clock: clock}
}

// Handle is a connection.FrameHandler: it dispatches on the packet's
// opcode and queues the response via conn.Send. Any other packet the codec
// decodes (a QUERY_RESPONSE or ACK sent as a request) reaches the default
// case; per §7 UNKNOWN_CMD, it ACKs that status rather than closing the
// connection. Opcodes the codec does not know never get here: Decode
// rejects them as malformed.
func (d *Dispatcher) Handle(conn *connection.Conn, header wire.Header, packet wire.Packet) {
	switch p := packet.(type) {
	case *wire.CreateTS:
		d.handleCreateTS(conn, p)
	case *wire.DeleteTS:
		d.handleDeleteTS(conn, p)
	case *wire.AddPoints:
		d.handleAddPoints(conn, p)
	case *wire.Query:
		d.handleQuery(conn, p)
	default:
		log.Warnf("[DISPATCH] fd %d: unhandled opcode %s", conn.Fd(), header.Opcode)
		respond(conn, header.Opcode, wire.StatusUnknownCmd, &wire.Ack{})
	}
}

func respond(conn *connection.Conn, op wire.Opcode, status wire.Status, p wire.Packet) {
	conn.Send(wire.Encode(wire.TypeResponse, status, p))
	metrics.ObserveRequest(op, status)
}

func (d *Dispatcher) handleCreateTS(conn *connection.Conn, p *wire.CreateTS) {
	_, created := d.registry.Create(p.Name, p.Retention)
	if !created {
		log.Debugf("[DISPATCH] CREATE_TS %q: already exists", p.Name)
	}
	metrics.TimeseriesCount.Set(float64(d.registry.Len()))
	respond(conn, wire.OpCreateTS, wire.StatusOK, &wire.Ack{})
}

func (d *Dispatcher) handleDeleteTS(conn *connection.Conn, p *wire.DeleteTS) {
	status := wire.StatusOK
	if !d.registry.Delete(p.Name) {
		status = wire.StatusNotFound
	}
	metrics.TimeseriesCount.Set(float64(d.registry.Len()))
	respond(conn, wire.OpDeleteTS, status, &wire.Ack{})
}

func (d *Dispatcher) handleAddPoints(conn *connection.Conn, p *wire.AddPoints) {
	ts, created := d.registry.GetOrCreate(p.Name)
	if created {
		log.Debugf("[DISPATCH] ADDPOINTS %q: auto-created", p.Name)
		metrics.TimeseriesCount.Set(float64(d.registry.Len()))
	}
	for _, pt := range p.Points {
		ts.Add(toTimeseriesPoint(pt), d.clock)
	}
	respond(conn, wire.OpAddPoints, wire.StatusOK, &wire.Ack{})
}

func (d *Dispatcher) handleQuery(conn *connection.Conn, p *wire.Query) {
	ts, ok := d.registry.Get(p.Name)
	if !ok {
		respond(conn, wire.OpQuery, wire.StatusNotFound, &wire.Ack{})
		return
	}

	start := time.Now()
	rows := timeseries.Execute(ts, toTimeseriesQuery(p))
	metrics.QueryDuration.Observe(time.Since(start).Seconds())

	resp := &wire.QueryResponse{Rows: make([]wire.ResultRow, len(rows))}
	for i, r := range rows {
		resp.Rows[i] = wire.ResultRow{
			Status: wire.StatusOK,
			Sec:    r.Sec,
			Nsec:   r.Nsec,
			Value:  r.Value,
			Labels: toWireLabels(r.Labels),
		}
	}
	respond(conn, wire.OpQuery, wire.StatusOK, resp)
}

func toTimeseriesPoint(pt wire.Point) timeseries.Point {
	return timeseries.Point{
		HasSec:  pt.HasSec,
		HasNsec: pt.HasNsec,
		Sec:     pt.Sec,
		Nsec:    pt.Nsec,
		Value:   pt.Value,
		Labels:  toTimeseriesLabels(pt.Labels),
	}
}

func toTimeseriesQuery(q *wire.Query) timeseries.Query {
	return timeseries.Query{
		Mean:         q.Mean,
		First:        q.First,
		Last:         q.Last,
		HasMajorOf:   q.HasMajorOf,
		HasMinorOf:   q.HasMinorOf,
		Filter:       q.Filter,
		MeanWindowMs: q.MeanWindow,
		MajorOf:      q.MajorOf,
		MinorOf:      q.MinorOf,
		Labels:       toTimeseriesLabels(q.Labels),
	}
}

func toTimeseriesLabels(in []wire.Label) []timeseries.Label {
	if len(in) == 0 {
		return nil
	}
	out := make([]timeseries.Label, len(in))
	for i, l := range in {
		out[i] = timeseries.Label{Name: l.Name, Value: l.Value}
	}
	return out
}

func toWireLabels(in []timeseries.Label) []wire.Label {
	if len(in) == 0 {
		return nil
	}
	out := make([]wire.Label, len(in))
	for i, l := range in {
		out[i] = wire.Label{Name: l.Name, Value: l.Value}
	}
	return out
}
