package wire

// ResultRow is one row of a QUERY_RESPONSE body.
type ResultRow struct {
	Status Status
	Sec    uint64
	Nsec   uint64
	Value  float64
	Labels []Label
}

// QueryResponse is the QUERY_RESPONSE body: zero or more result rows packed
// back to back until the body is exhausted.
type QueryResponse struct {
	Rows []ResultRow
}

func (r *QueryResponse) Opcode() Opcode { return OpQueryResponse }

func (r *QueryResponse) Marshal() []byte {
	p := NewPacker(nil)
	for _, row := range r.Rows {
		p.PutUint8(uint8(row.Status))
		p.PutUint64(row.Sec)
		p.PutUint64(row.Nsec)
		p.PutFloat64(row.Value)
		p.PutUint16(uint16(len(row.Labels)))
		for _, l := range row.Labels {
			p.PutBytes16([]byte(l.Name))
			p.PutBytes16([]byte(l.Value))
		}
	}
	return p.Bytes()
}

func unmarshalQueryResponse(body []byte) (Packet, error) {
	p := NewUnpacker(body)
	out := &QueryResponse{}
	for p.Remaining() > 0 {
		if p.Remaining() < 1+8+8+8+2 {
			return nil, malformed("QUERY_RESPONSE: truncated row header")
		}
		row := ResultRow{
			Status: Status(p.GetUint8()),
			Sec:    p.GetUint64(),
			Nsec:   p.GetUint64(),
			Value:  p.GetFloat64(),
		}
		nlabels := int(p.GetUint16())
		row.Labels = make([]Label, 0, nlabels)
		for i := 0; i < nlabels; i++ {
			n := p.GetBytes16()
			if n == nil {
				return nil, malformed("QUERY_RESPONSE: truncated label name")
			}
			v := p.GetBytes16()
			if v == nil {
				return nil, malformed("QUERY_RESPONSE: truncated label value")
			}
			row.Labels = append(row.Labels, Label{Name: string(n), Value: string(v)})
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}
