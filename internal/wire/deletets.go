package wire

// DeleteTS is the DELETE_TS request body: ts_name:[u8]s.
type DeleteTS struct {
	Name string
}

func (d *DeleteTS) Opcode() Opcode { return OpDeleteTS }

func (d *DeleteTS) Marshal() []byte {
	p := NewPacker(nil)
	p.PutBytes8([]byte(d.Name))
	return p.Bytes()
}

func unmarshalDeleteTS(body []byte) (Packet, error) {
	p := NewUnpacker(body)
	name := p.GetBytes8()
	if name == nil {
		return nil, malformed("DELETE_TS: truncated ts_name")
	}
	if p.Remaining() != 0 {
		return nil, malformed("DELETE_TS: %d trailing bytes", p.Remaining())
	}
	return &DeleteTS{Name: string(name)}, nil
}
