package wire

const (
	queryFlagMean = 1 << iota
	queryFlagFirst
	queryFlagLast
	queryFlagMajorOf
	queryFlagMinorOf
	queryFlagFilter
)

// Query is the QUERY request body. The conditional fields (MeanWindow,
// MajorOf, MinorOf, Labels) are only meaningful when their matching Has*/
// bool field is set, and are encoded in the fixed order the flags bits
// appear in (§4.2).
type Query struct {
	Name       string
	Mean       bool
	First      bool
	Last       bool
	HasMajorOf bool
	HasMinorOf bool
	Filter     bool

	MeanWindow uint64
	MajorOf    uint64
	MinorOf    uint64
	Labels     []Label
}

func (q *Query) Opcode() Opcode { return OpQuery }

func (q *Query) Marshal() []byte {
	p := NewPacker(nil)
	p.PutBytes8([]byte(q.Name))

	var flags uint8
	if q.Mean {
		flags |= queryFlagMean
	}
	if q.First {
		flags |= queryFlagFirst
	}
	if q.Last {
		flags |= queryFlagLast
	}
	if q.HasMajorOf {
		flags |= queryFlagMajorOf
	}
	if q.HasMinorOf {
		flags |= queryFlagMinorOf
	}
	if q.Filter {
		flags |= queryFlagFilter
	}
	p.PutUint8(flags)

	if q.Mean {
		p.PutUint64(q.MeanWindow)
	}
	if q.HasMajorOf {
		p.PutUint64(q.MajorOf)
	}
	if q.HasMinorOf {
		p.PutUint64(q.MinorOf)
	}
	if q.Filter {
		for _, l := range q.Labels {
			p.PutBytes16([]byte(l.Name))
			p.PutBytes16([]byte(l.Value))
		}
	}
	return p.Bytes()
}

func unmarshalQuery(body []byte) (Packet, error) {
	p := NewUnpacker(body)
	name := p.GetBytes8()
	if name == nil {
		return nil, malformed("QUERY: truncated ts_name")
	}
	if p.Remaining() < 1 {
		return nil, malformed("QUERY: truncated qflags")
	}
	flags := p.GetUint8()
	q := &Query{
		Name:       string(name),
		Mean:       flags&queryFlagMean != 0,
		First:      flags&queryFlagFirst != 0,
		Last:       flags&queryFlagLast != 0,
		HasMajorOf: flags&queryFlagMajorOf != 0,
		HasMinorOf: flags&queryFlagMinorOf != 0,
		Filter:     flags&queryFlagFilter != 0,
	}

	if q.Mean {
		if p.Remaining() < 8 {
			return nil, malformed("QUERY: truncated mean_window")
		}
		q.MeanWindow = p.GetUint64()
	}
	if q.HasMajorOf {
		if p.Remaining() < 8 {
			return nil, malformed("QUERY: truncated major_of")
		}
		q.MajorOf = p.GetUint64()
	}
	if q.HasMinorOf {
		if p.Remaining() < 8 {
			return nil, malformed("QUERY: truncated minor_of")
		}
		q.MinorOf = p.GetUint64()
	}

	if q.Filter {
		for p.Remaining() > 0 {
			n := p.GetBytes16()
			if n == nil {
				return nil, malformed("QUERY: truncated filter label name")
			}
			v := p.GetBytes16()
			if v == nil {
				return nil, malformed("QUERY: truncated filter label value")
			}
			q.Labels = append(q.Labels, Label{Name: string(n), Value: string(v)})
		}
	} else if p.Remaining() != 0 {
		return nil, malformed("QUERY: %d trailing bytes", p.Remaining())
	}
	return q, nil
}
