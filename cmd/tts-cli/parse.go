package main

import (
	"fmt"
	"strconv"

	"github.com/codepr/tts/internal/wire"
)

func parseCreate(args []string) (wire.Packet, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("usage: create <name> [retention_ms]")
	}
	var retention uint64
	if len(args) > 1 {
		var err error
		retention, err = strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid retention_ms: %w", err)
		}
	}
	return &wire.CreateTS{Name: args[0], Retention: uint32(retention)}, nil
}

func parseDelete(args []string) (wire.Packet, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("usage: delete <name>")
	}
	return &wire.DeleteTS{Name: args[0]}, nil
}

// parseAdd implements: add <name> <ts|*> <value> [label value ...] [- <ts|*> <value> ...]
// Point blocks after the first are separated by a lone "-".
func parseAdd(args []string) (wire.Packet, error) {
	if len(args) < 3 {
		return nil, fmt.Errorf("usage: add <name> <ts|*> <value> [label value ...] [- <ts|*> <value> ...]")
	}
	name := args[0]
	blocks := splitBlocks(args[1:])

	out := &wire.AddPoints{Name: name}
	for _, block := range blocks {
		pt, err := parsePointBlock(block)
		if err != nil {
			return nil, err
		}
		out.Points = append(out.Points, pt)
	}
	return out, nil
}

// parseMAdd implements: madd <name> <ts|*> <value> ... — one point per
// trailing (ts, value) pair, with no label support.
func parseMAdd(args []string) (wire.Packet, error) {
	if len(args) < 3 || (len(args)-1)%2 != 0 {
		return nil, fmt.Errorf("usage: madd <name> <ts|*> <value> ...")
	}
	out := &wire.AddPoints{Name: args[0]}
	rest := args[1:]
	for i := 0; i+1 < len(rest); i += 2 {
		pt, err := parsePointBlock([]string{rest[i], rest[i+1]})
		if err != nil {
			return nil, err
		}
		out.Points = append(out.Points, pt)
	}
	return out, nil
}

func splitBlocks(args []string) [][]string {
	var blocks [][]string
	start := 0
	for i, a := range args {
		if a == "-" {
			blocks = append(blocks, args[start:i])
			start = i + 1
		}
	}
	blocks = append(blocks, args[start:])
	return blocks
}

func parsePointBlock(block []string) (wire.Point, error) {
	if len(block) < 2 {
		return wire.Point{}, fmt.Errorf("malformed point: need <ts|*> <value> [label value ...]")
	}
	pt := wire.Point{}
	if block[0] != "*" {
		sec, nsec, err := normalizeTimestamp(block[0])
		if err != nil {
			return wire.Point{}, err
		}
		pt.HasSec, pt.HasNsec = true, true
		pt.Sec, pt.Nsec = sec, nsec
	}

	value, err := strconv.ParseFloat(block[1], 64)
	if err != nil {
		return wire.Point{}, fmt.Errorf("invalid value %q: %w", block[1], err)
	}
	pt.Value = value

	rest := block[2:]
	if len(rest)%2 != 0 {
		return wire.Point{}, fmt.Errorf("labels must come in name/value pairs")
	}
	for i := 0; i+1 < len(rest); i += 2 {
		pt.Labels = append(pt.Labels, wire.Label{Name: rest[i], Value: rest[i+1]})
	}
	return pt, nil
}

// normalizeTimestamp accepts a 10-digit seconds value, a 13-digit
// milliseconds value, or any other width as nanoseconds passed straight
// through, per §8's boundary behaviors.
func normalizeTimestamp(s string) (sec, nsec uint64, err error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	switch len(s) {
	case 10:
		return n, 0, nil
	case 13:
		return n / 1000, (n % 1000) * 1_000_000, nil
	default:
		return n / 1_000_000_000, n % 1_000_000_000, nil
	}
}

// parseQuery implements: query <name> [* | > <ts> | < <ts> | range <lo> <hi>] [first|last] [avg <window_ms>]
func parseQuery(args []string) (wire.Packet, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("usage: query <name> [* | > <ts> | < <ts> | range <lo> <hi>] [first|last] [avg <window_ms>]")
	}
	q := &wire.Query{Name: args[0]}
	rest := args[1:]

	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case "*":
			// all samples: no range bits set
		case ">":
			if i+1 >= len(rest) {
				return nil, fmt.Errorf("'>' needs a timestamp")
			}
			i++
			sec, nsec, err := normalizeTimestamp(rest[i])
			if err != nil {
				return nil, err
			}
			q.HasMajorOf = true
			q.MajorOf = sec*1_000_000_000 + nsec
		case "<":
			if i+1 >= len(rest) {
				return nil, fmt.Errorf("'<' needs a timestamp")
			}
			i++
			sec, nsec, err := normalizeTimestamp(rest[i])
			if err != nil {
				return nil, err
			}
			q.HasMinorOf = true
			q.MinorOf = sec*1_000_000_000 + nsec
		case "range":
			if i+2 >= len(rest) {
				return nil, fmt.Errorf("'range' needs <lo> <hi>")
			}
			loSec, loNsec, err := normalizeTimestamp(rest[i+1])
			if err != nil {
				return nil, err
			}
			hiSec, hiNsec, err := normalizeTimestamp(rest[i+2])
			if err != nil {
				return nil, err
			}
			q.HasMajorOf, q.MajorOf = true, loSec*1_000_000_000+loNsec
			q.HasMinorOf, q.MinorOf = true, hiSec*1_000_000_000+hiNsec
			i += 2
		case "first":
			q.First = true
		case "last":
			q.Last = true
		case "avg":
			if i+1 >= len(rest) {
				return nil, fmt.Errorf("'avg' needs a window_ms")
			}
			i++
			w, err := strconv.ParseUint(rest[i], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid window_ms: %w", err)
			}
			q.Mean = true
			q.MeanWindow = w
		default:
			return nil, fmt.Errorf("unrecognized query token %q", rest[i])
		}
	}
	return q, nil
}
