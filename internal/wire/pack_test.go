package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackerIntegerRoundTrip(t *testing.T) {
	p := NewPacker(nil)
	p.PutInt8(-12)
	p.PutUint8(250)
	p.PutInt16(-1000)
	p.PutUint16(60000)
	p.PutInt32(-70000)
	p.PutUint32(4000000000)
	p.PutInt64(-1 << 40)
	p.PutUint64(1 << 63)

	u := NewUnpacker(p.Bytes())
	assert.Equal(t, int8(-12), u.GetInt8())
	assert.Equal(t, uint8(250), u.GetUint8())
	assert.Equal(t, int16(-1000), u.GetInt16())
	assert.Equal(t, uint16(60000), u.GetUint16())
	assert.Equal(t, int32(-70000), u.GetInt32())
	assert.Equal(t, uint32(4000000000), u.GetUint32())
	assert.Equal(t, int64(-1<<40), u.GetInt64())
	assert.Equal(t, uint64(1<<63), u.GetUint64())
	assert.Zero(t, u.Remaining())
}

func TestPackerRealRoundTrip(t *testing.T) {
	p := NewPacker(nil)
	p.PutFloat64(3.14159265358979)
	p.PutFloat32(2.71828)
	p.PutFloat16(1.5)

	u := NewUnpacker(p.Bytes())
	assert.InDelta(t, 3.14159265358979, u.GetFloat64(), 1e-12)
	assert.InDelta(t, 2.71828, u.GetFloat32(), 1e-5)
	assert.InDelta(t, 1.5, u.GetFloat16(), 1e-3)
}

func TestPackerFloat16SpecialValues(t *testing.T) {
	cases := []float32{0, -0, 1, -1, 65504, 0.000061035156}
	for _, f := range cases {
		p := NewPacker(nil)
		p.PutFloat16(f)
		u := NewUnpacker(p.Bytes())
		assert.InDelta(t, float64(f), float64(u.GetFloat16()), 1e-2)
	}
}

func TestPackerBytesRunsAreExactLength(t *testing.T) {
	p := NewPacker(nil)
	p.PutBytes8([]byte("hello"))
	p.PutBytes16([]byte("a longer label value"))

	u := NewUnpacker(p.Bytes())
	assert.Equal(t, []byte("hello"), u.GetBytes8())
	assert.Equal(t, []byte("a longer label value"), u.GetBytes16())
}

func TestPackerUnderLengthReadsReturnZeroNotPanic(t *testing.T) {
	u := NewUnpacker([]byte{0x01})
	assert.NotPanics(t, func() {
		assert.Equal(t, uint64(0), u.GetUint64())
	})
	assert.Nil(t, u.GetBytes(10))
}

func TestPackUnpackFormatString(t *testing.T) {
	buf, err := Pack(nil, "bBhHiIqQdg", int8(-1), uint8(2), int16(-3), uint16(4),
		int32(-5), uint32(6), int64(-7), uint64(8), float32(1.5), float64(2.5))
	require.NoError(t, err)

	out, err := Unpack(buf, "bBhHiIqQdg")
	require.NoError(t, err)
	require.Len(t, out, 10)
	assert.Equal(t, int8(-1), out[0])
	assert.Equal(t, uint8(2), out[1])
	assert.Equal(t, int16(-3), out[2])
	assert.Equal(t, uint16(4), out[3])
	assert.Equal(t, int32(-5), out[4])
	assert.Equal(t, uint32(6), out[5])
	assert.Equal(t, int64(-7), out[6])
	assert.Equal(t, uint64(8), out[7])
	assert.InDelta(t, float32(1.5), out[8], 1e-6)
	assert.InDelta(t, float64(2.5), out[9], 1e-12)
}

func TestPackUnpackFormatStringBytes(t *testing.T) {
	buf, err := Pack(nil, "Is", uint32(5), []byte("hello"))
	require.NoError(t, err)

	out, err := Unpack(buf, "Is", 5)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, uint32(5), out[0])
	assert.Equal(t, []byte("hello"), out[1])
}

func TestUnpackUnknownVerb(t *testing.T) {
	_, err := Unpack([]byte{0}, "z")
	assert.Error(t, err)
}
