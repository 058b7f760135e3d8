package timeseries

import "time"

// Record is one stored sample: a value, an owned copy of its label list,
// and the back-index at which it lives in its parent timeseries' record
// vector. Exclusively owned by that timeseries; destroyed with it.
type Record struct {
	Index  int
	Value  float64
	Labels []Label
}

// Point is a sample as handed to Add, before the server has necessarily
// filled in a missing timestamp component.
type Point struct {
	HasSec  bool
	HasNsec bool
	Sec     uint64
	Nsec    uint64
	Value   float64
	Labels  []Label
}

// Clock supplies the server's wall clock for timestamp components the
// client left unset. SystemClock is the production implementation; tests
// use a fixed clock to make scenarios reproducible.
type Clock interface {
	Now() (sec, nsec uint64)
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

// Now returns the current time split into seconds and the nanosecond
// remainder, matching the on-wire ts_sec/ts_nsec split.
func (SystemClock) Now() (uint64, uint64) {
	now := time.Now()
	return uint64(now.Unix()), uint64(now.Nanosecond())
}

// Timeseries is the aggregate described by the data model: a name, a
// retention value (stored but not enforced — see NewTimeseries), a
// timestamp vector, a parallel record vector, and a tag index
// over the records. The timestamp and record vectors always have equal
// length (invariant T1); records are appended in arrival order and are not
// resorted by timestamp (invariant T2).
type Timeseries struct {
	Name       string
	Retention  uint32
	timestamps timestampVector
	records    []Record
	index      *tagIndex
}

// NewTimeseries creates an empty timeseries. retention is milliseconds,
// 0 meaning infinite; it is never enforced by this package (no background
// eviction exists — see SPEC_FULL.md §12 for why retention stays a stored
// field).
func NewTimeseries(name string, retention uint32) *Timeseries {
	return &Timeseries{
		Name:      name,
		Retention: retention,
		index:     newTagIndex(),
	}
}

// Len reports the number of stored samples.
func (ts *Timeseries) Len() int { return len(ts.records) }

// Add appends one sample, implementing the record-store/tag-index
// insertion algorithm: any timestamp component the client omitted is
// filled from clock, the new nanosecond timestamp is appended to the
// timestamp vector, a record is allocated with an owned copy of the label
// list, the tag index gains one entry per label pair, and the record is
// appended to the record vector. All of this happens on the single reactor
// goroutine that owns the timeseries, so there is no partial-update window
// to roll back from — unlike the manually-allocated original, a failed
// append here can only mean process-wide OOM, which the Go runtime treats
// as fatal to the whole process; no caller rolls back the timeseries.
func (ts *Timeseries) Add(p Point, clock Clock) int {
	sec, nsec := p.Sec, p.Nsec
	if !p.HasSec || !p.HasNsec {
		wallSec, wallNsec := clock.Now()
		if !p.HasSec {
			sec = wallSec
		}
		if !p.HasNsec {
			nsec = wallNsec
		}
	}

	idx := len(ts.records)
	ts.timestamps.append(sec*1_000_000_000 + nsec)

	labels := append([]Label(nil), p.Labels...)
	rec := Record{Index: idx, Value: p.Value, Labels: labels}
	for _, l := range labels {
		ts.index.add(l.Name, l.Value, idx)
	}
	ts.records = append(ts.records, rec)
	return idx
}

func (ts *Timeseries) timestampAt(i int) uint64 { return ts.timestamps.at(i) }
