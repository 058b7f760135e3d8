package ingest

import (
	"time"

	"github.com/influxdata/line-protocol/v2/lineprotocol"

	"github.com/codepr/tts/internal/timeseries"
)

// valueField is the only line-protocol field this decoder understands: a
// sample value. Any other field on a line is ignored, so a line-protocol
// producer that also emits e.g. "min"/"max" fields alongside "value" can
// still be pointed at the same subject without tripping a decode error.
const valueField = "value"

// DecodeLine reads every line in dec (InfluxDB line-protocol, as produced
// by the same family of collectors the original NATS pipeline ingested)
// and enqueues one timeseries.Point per line onto ing, keyed by the line's
// measurement name. Tags become the point's labels; the "value" field
// becomes its sample value; a line with no "value" field is skipped.
func DecodeLine(dec *lineprotocol.Decoder, ing *Ingester) error {
	for dec.Next() {
		measurement, err := dec.Measurement()
		if err != nil {
			return err
		}
		series := string(measurement)

		var labels []timeseries.Label
		for {
			key, value, err := dec.NextTag()
			if err != nil {
				return err
			}
			if key == nil {
				break
			}
			labels = append(labels, timeseries.Label{Name: string(key), Value: string(value)})
		}

		var (
			value    float64
			hasValue bool
		)
		for {
			key, fv, err := dec.NextField()
			if err != nil {
				return err
			}
			if key == nil {
				break
			}
			if string(key) != valueField {
				continue
			}
			if f, ok := fv.FloatV(); ok {
				value = f
				hasValue = true
			}
		}
		if !hasValue {
			continue
		}

		t, err := dec.Time(lineprotocol.Nanosecond, time.Time{})
		pt := timeseries.Point{Value: value, Labels: labels}
		if err == nil && !t.IsZero() {
			pt.HasSec = true
			pt.HasNsec = true
			pt.Sec = uint64(t.Unix())
			pt.Nsec = uint64(t.Nanosecond())
		}

		ing.enqueue(decodedPoint{Series: series, Point: pt})
	}
	return dec.Err()
}
