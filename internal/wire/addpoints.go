package wire

// Point is one sample within an ADDPOINTS body. HasSec/HasNsec mirror the
// two flag bits that say whether the client supplied that half of the
// timestamp; when absent, the server's wall clock fills it in (§4.4).
type Point struct {
	HasSec  bool
	HasNsec bool
	Sec     uint64
	Nsec    uint64
	Value   float64
	Labels  []Label
}

const (
	addPointsFlagSec  = 1 << 0
	addPointsFlagNsec = 1 << 1
)

// AddPoints is the ADDPOINTS request body: ts_name:[u8]s followed by one or
// more points packed back to back until the body is exhausted.
type AddPoints struct {
	Name   string
	Points []Point
}

func (a *AddPoints) Opcode() Opcode { return OpAddPoints }

func (a *AddPoints) Marshal() []byte {
	p := NewPacker(nil)
	p.PutBytes8([]byte(a.Name))
	for _, pt := range a.Points {
		var flags uint8
		if pt.HasSec {
			flags |= addPointsFlagSec
		}
		if pt.HasNsec {
			flags |= addPointsFlagNsec
		}
		p.PutUint8(flags)
		p.PutFloat64(pt.Value)
		if pt.HasSec {
			p.PutUint64(pt.Sec)
		}
		if pt.HasNsec {
			p.PutUint64(pt.Nsec)
		}
		p.PutUint16(uint16(len(pt.Labels)))
		for _, l := range pt.Labels {
			p.PutBytes16([]byte(l.Name))
			p.PutBytes16([]byte(l.Value))
		}
	}
	return p.Bytes()
}

func unmarshalAddPoints(body []byte) (Packet, error) {
	p := NewUnpacker(body)
	name := p.GetBytes8()
	if name == nil {
		return nil, malformed("ADDPOINTS: truncated ts_name")
	}

	out := &AddPoints{Name: string(name)}
	for p.Remaining() > 0 {
		if p.Remaining() < 1+8 {
			return nil, malformed("ADDPOINTS: truncated point header")
		}
		flags := p.GetUint8()
		pt := Point{
			HasSec:  flags&addPointsFlagSec != 0,
			HasNsec: flags&addPointsFlagNsec != 0,
			Value:   p.GetFloat64(),
		}
		if pt.HasSec {
			if p.Remaining() < 8 {
				return nil, malformed("ADDPOINTS: truncated ts_sec")
			}
			pt.Sec = p.GetUint64()
		}
		if pt.HasNsec {
			if p.Remaining() < 8 {
				return nil, malformed("ADDPOINTS: truncated ts_nsec")
			}
			pt.Nsec = p.GetUint64()
		}
		if p.Remaining() < 2 {
			return nil, malformed("ADDPOINTS: truncated labels_len")
		}
		nlabels := int(p.GetUint16())
		pt.Labels = make([]Label, 0, nlabels)
		for i := 0; i < nlabels; i++ {
			n := p.GetBytes16()
			if n == nil {
				return nil, malformed("ADDPOINTS: truncated label name")
			}
			v := p.GetBytes16()
			if v == nil {
				return nil, malformed("ADDPOINTS: truncated label value")
			}
			pt.Labels = append(pt.Labels, Label{Name: string(n), Value: string(v)})
		}
		out.Points = append(out.Points, pt)
	}
	return out, nil
}
