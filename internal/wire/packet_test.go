package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderByteLayout(t *testing.T) {
	h := Header{Type: TypeResponse, Opcode: OpQueryResponse, Status: StatusNotFound}
	b := h.encodeByte()

	// bit 7 type, bits 6..3 opcode, bits 2..1 status, bit 0 reserved.
	assert.Equal(t, byte(1), b>>7&0x1)
	assert.Equal(t, byte(OpQueryResponse), b>>3&0x0f)
	assert.Equal(t, byte(StatusNotFound), b>>1&0x03)

	got := decodeHeaderByte(b)
	assert.Equal(t, h.Type, got.Type)
	assert.Equal(t, h.Opcode, got.Opcode)
	assert.Equal(t, h.Status, got.Status)
}

func TestEncodeDecodeCreateTS(t *testing.T) {
	want := &CreateTS{Name: "cpu.load", Retention: 3600}
	frame := Encode(TypeRequest, StatusOK, want)

	h, p, n, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, len(frame), n)
	assert.Equal(t, TypeRequest, h.Type)
	assert.Equal(t, OpCreateTS, h.Opcode)

	got, ok := p.(*CreateTS)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestEncodeDecodeDeleteTS(t *testing.T) {
	want := &DeleteTS{Name: "cpu.load"}
	frame := Encode(TypeRequest, StatusOK, want)

	h, p, _, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, OpDeleteTS, h.Opcode)
	assert.Equal(t, want, p)
}

func TestEncodeDecodeAddPoints(t *testing.T) {
	want := &AddPoints{
		Name: "cpu.load",
		Points: []Point{
			{HasSec: true, HasNsec: true, Sec: 1000, Nsec: 500, Value: 0.42,
				Labels: []Label{{Name: "host", Value: "a1"}}},
			{Value: 1.5}, // no timestamp supplied, no labels
		},
	}
	frame := Encode(TypeRequest, StatusOK, want)

	h, p, _, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, OpAddPoints, h.Opcode)
	got, ok := p.(*AddPoints)
	require.True(t, ok)
	assert.Equal(t, want.Name, got.Name)
	require.Len(t, got.Points, 2)
	assert.Equal(t, want.Points[0], got.Points[0])
	assert.False(t, got.Points[1].HasSec)
	assert.False(t, got.Points[1].HasNsec)
	assert.Equal(t, 1.5, got.Points[1].Value)
	assert.Empty(t, got.Points[1].Labels)
}

func TestEncodeDecodeQueryRange(t *testing.T) {
	want := &Query{
		Name:       "cpu.load",
		Mean:       true,
		HasMajorOf: true,
		HasMinorOf: true,
		Filter:     true,
		MeanWindow: 60000,
		MajorOf:    1000,
		MinorOf:    9000,
		Labels:     []Label{{Name: "host", Value: "a1"}, {Name: "dc", Value: "fra"}},
	}
	frame := Encode(TypeRequest, StatusOK, want)

	h, p, _, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, OpQuery, h.Opcode)
	assert.Equal(t, want, p)
}

func TestEncodeDecodeQueryFirstLast(t *testing.T) {
	want := &Query{Name: "cpu.load", First: true}
	frame := Encode(TypeRequest, StatusOK, want)
	_, p, _, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, want, p)

	want2 := &Query{Name: "cpu.load", Last: true}
	frame2 := Encode(TypeRequest, StatusOK, want2)
	_, p2, _, err := Decode(frame2)
	require.NoError(t, err)
	assert.Equal(t, want2, p2)
}

func TestEncodeDecodeQueryResponse(t *testing.T) {
	want := &QueryResponse{Rows: []ResultRow{
		{Status: StatusOK, Sec: 1000, Nsec: 0, Value: 1.23, Labels: []Label{{Name: "host", Value: "a1"}}},
		{Status: StatusOK, Sec: 2000, Nsec: 0, Value: 4.56},
	}}
	frame := Encode(TypeResponse, StatusOK, want)

	h, p, _, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, OpQueryResponse, h.Opcode)
	got, ok := p.(*QueryResponse)
	require.True(t, ok)
	require.Len(t, got.Rows, 2)
	assert.Equal(t, want.Rows[0], got.Rows[0])
	assert.Empty(t, got.Rows[1].Labels)
}

func TestEncodeDecodeAck(t *testing.T) {
	frame := Encode(TypeResponse, StatusNotFound, &Ack{})
	h, p, n, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, len(frame), n)
	assert.Equal(t, OpAck, h.Opcode)
	assert.Equal(t, StatusNotFound, h.Status)
	assert.IsType(t, &Ack{}, p)
}

func TestDecodeShortHeader(t *testing.T) {
	_, _, _, err := Decode([]byte{0x00, 0x00})
	require.Error(t, err)
	assert.IsType(t, &FrameError{}, err)
}

func TestDecodeShortBody(t *testing.T) {
	frame := Encode(TypeRequest, StatusOK, &CreateTS{Name: "x", Retention: 1})
	_, _, _, err := Decode(frame[:len(frame)-1])
	require.Error(t, err)
	assert.IsType(t, &FrameError{}, err)
}

func TestDecodeMalformedLengthPrefixExceedsBody(t *testing.T) {
	// Declares a ts_name length prefix (6) longer than the remaining body.
	body := []byte{6, 'a', 'b'}
	frame := make([]byte, 0, 5+len(body))
	h := Header{Type: TypeRequest, Opcode: OpDeleteTS}
	frame = append(frame, h.encodeByte())
	lenBuf := [4]byte{0, 0, 0, byte(len(body))}
	frame = append(frame, lenBuf[:]...)
	frame = append(frame, body...)

	_, _, _, err := Decode(frame)
	require.Error(t, err)
	assert.IsType(t, &FrameError{}, err)
}

func TestDecodeAckRejectsNonEmptyBody(t *testing.T) {
	body := []byte{0x01}
	frame := make([]byte, 0, 5+len(body))
	h := Header{Type: TypeResponse, Opcode: OpAck}
	frame = append(frame, h.encodeByte())
	lenBuf := [4]byte{0, 0, 0, byte(len(body))}
	frame = append(frame, lenBuf[:]...)
	frame = append(frame, body...)

	_, _, _, err := Decode(frame)
	require.Error(t, err)
}

func TestPeekFrameLen(t *testing.T) {
	frame := Encode(TypeRequest, StatusOK, &DeleteTS{Name: "cpu.load"})

	n, ok := PeekFrameLen(frame[:4])
	assert.False(t, ok)
	assert.Zero(t, n)

	n, ok = PeekFrameLen(frame)
	assert.True(t, ok)
	assert.Equal(t, len(frame), n)
}
