package wire

import (
	"encoding/binary"
	"fmt"
)

// Opcode identifies the shape of a packet's body. The numeric values are
// part of the wire format and must not be renumbered.
type Opcode uint8

const (
	OpCreateTS      Opcode = 0
	OpDeleteTS      Opcode = 1
	OpAddPoints     Opcode = 2
	OpQuery         Opcode = 3
	OpQueryResponse Opcode = 4
	OpAck           Opcode = 5
)

func (o Opcode) String() string {
	switch o {
	case OpCreateTS:
		return "CREATE_TS"
	case OpDeleteTS:
		return "DELETE_TS"
	case OpAddPoints:
		return "ADDPOINTS"
	case OpQuery:
		return "QUERY"
	case OpQueryResponse:
		return "QUERY_RESPONSE"
	case OpAck:
		return "ACK"
	default:
		return fmt.Sprintf("OPCODE(%d)", uint8(o))
	}
}

// Status is the 2-bit response status carried in the header byte. Requests
// always carry StatusOK (the bits are reserved on the request side).
type Status uint8

const (
	StatusOK         Status = 0
	StatusNotFound   Status = 1
	StatusUnknownCmd Status = 2
	StatusOOM        Status = 3
)

// FrameType distinguishes a request header from a response header.
type FrameType uint8

const (
	TypeRequest  FrameType = 0
	TypeResponse FrameType = 1
)

// Header is the single framing byte, decoded.
type Header struct {
	Type   FrameType
	Opcode Opcode
	Status Status
}

func (h Header) encodeByte() byte {
	return byte(h.Type)<<7 | byte(h.Opcode&0x0f)<<3 | byte(h.Status&0x03)<<1
}

func decodeHeaderByte(b byte) Header {
	return Header{
		Type:   FrameType((b >> 7) & 0x1),
		Opcode: Opcode((b >> 3) & 0x0f),
		Status: Status((b >> 1) & 0x03),
	}
}

// FrameError reports a framing or body-decoding failure. Per the
// dispatcher's state table, a FrameError is always connection-fatal: no
// response is sent back, the connection is closed.
type FrameError struct {
	Reason string
}

func (e *FrameError) Error() string { return "wire: malformed packet: " + e.Reason }

func malformed(format string, args ...any) error {
	return &FrameError{Reason: fmt.Sprintf(format, args...)}
}

// Label is a single name/value tag pair, used in ADDPOINTS, QUERY's filter
// clause, and QUERY_RESPONSE rows.
type Label struct {
	Name  string
	Value string
}

// Packet is implemented by every request/response body type: CreateTS,
// DeleteTS, AddPoints, Query, QueryResponse, Ack.
type Packet interface {
	Opcode() Opcode
	Marshal() []byte
}

// Encode emits a full frame (header byte + u32 body length + body) for p in
// one pass.
func Encode(typ FrameType, status Status, p Packet) []byte {
	body := p.Marshal()
	h := Header{Type: typ, Opcode: p.Opcode(), Status: status}
	out := make([]byte, 5, 5+len(body))
	out[0] = h.encodeByte()
	binary.BigEndian.PutUint32(out[1:5], uint32(len(body)))
	return append(out, body...)
}

// PeekFrameLen reports the total frame length (header + length prefix +
// body) declared by buf's first 5 bytes, and whether those 5 bytes are
// present. The connection buffer calls this to decide how many more bytes
// to read before a frame can be decoded.
func PeekFrameLen(buf []byte) (int, bool) {
	if len(buf) < 5 {
		return 0, false
	}
	n := binary.BigEndian.Uint32(buf[1:5])
	return 5 + int(n), true
}

// Decode reads one complete frame from the front of buf. It returns the
// decoded header, the decoded packet, and the number of bytes consumed.
// Callers must ensure len(buf) is at least the length PeekFrameLen reports;
// Decode itself re-validates this and returns a *FrameError otherwise.
func Decode(buf []byte) (Header, Packet, int, error) {
	total, ok := PeekFrameLen(buf)
	if !ok {
		return Header{}, nil, 0, malformed("short header: need 5 bytes, have %d", len(buf))
	}
	if len(buf) < total {
		return Header{}, nil, 0, malformed("short body: declared %d, have %d", total-5, len(buf)-5)
	}
	h := decodeHeaderByte(buf[0])
	body := buf[5:total]

	p, err := unmarshalBody(h.Opcode, body)
	if err != nil {
		return Header{}, nil, 0, err
	}
	return h, p, total, nil
}

func unmarshalBody(op Opcode, body []byte) (Packet, error) {
	switch op {
	case OpCreateTS:
		return unmarshalCreateTS(body)
	case OpDeleteTS:
		return unmarshalDeleteTS(body)
	case OpAddPoints:
		return unmarshalAddPoints(body)
	case OpQuery:
		return unmarshalQuery(body)
	case OpQueryResponse:
		return unmarshalQueryResponse(body)
	case OpAck:
		return unmarshalAck(body)
	default:
		return nil, malformed("unknown opcode %d", op)
	}
}
