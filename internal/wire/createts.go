package wire

// CreateTS is the CREATE_TS request body: ts_name:[u8]s, retention:u32.
type CreateTS struct {
	Name      string
	Retention uint32
}

func (c *CreateTS) Opcode() Opcode { return OpCreateTS }

func (c *CreateTS) Marshal() []byte {
	p := NewPacker(nil)
	p.PutBytes8([]byte(c.Name))
	p.PutUint32(c.Retention)
	return p.Bytes()
}

func unmarshalCreateTS(body []byte) (Packet, error) {
	p := NewUnpacker(body)
	name := p.GetBytes8()
	if name == nil {
		return nil, malformed("CREATE_TS: truncated ts_name")
	}
	if p.Remaining() < 4 {
		return nil, malformed("CREATE_TS: truncated retention")
	}
	retention := p.GetUint32()
	if p.Remaining() != 0 {
		return nil, malformed("CREATE_TS: %d trailing bytes", p.Remaining())
	}
	return &CreateTS{Name: string(name), Retention: retention}, nil
}
