package bits

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriter(t *testing.T) {
	w := NewWriter(nil)
	w.WriteByte(0x47)
	w.WriteUint16(0x1FFF)
	w.WriteUint24(0x000001)
	w.WriteUint32(0xDEADBEEF)
	w.WriteBytes(1, 2, 3)

	assert.Equal(t, []byte{0x47, 0x1F, 0xFF, 0, 0, 1, 0xDE, 0xAD, 0xBE, 0xEF, 1, 2, 3}, w.Bytes())
	assert.Equal(t, 13, w.Len())

	w.Reset()
	assert.Equal(t, 0, w.Len())
}

func TestWriterBits(t *testing.T) {
	w := NewWriter(nil)
	w.WriteBit(0)          // TEI
	w.WriteBit(1)          // PUSI
	w.WriteBit(0)          // priority
	w.WriteBits16(256, 13) // PID
	assert.Equal(t, []byte{0x41, 0x00}, w.Bytes())
}

func TestReaderTolerant(t *testing.T) {
	r := NewReader([]byte{0x12, 0x34})
	assert.Equal(t, uint16(0x1234), r.ReadUint16())
	assert.False(t, r.EOF)

	// reads past the end return zero values and raise EOF
	assert.Equal(t, uint32(0), r.ReadUint32())
	assert.True(t, r.EOF)
}

func TestReaderBits(t *testing.T) {
	r := NewReader([]byte{0x41, 0x00, 0x1B})
	_ = r.ReadBit()
	assert.Equal(t, byte(1), r.ReadBit())
	_ = r.ReadBit()
	assert.Equal(t, uint16(256), r.ReadBits16(13))
	assert.Equal(t, byte(0x1B), r.ReadByte())
}

func TestRoundTrip(t *testing.T) {
	w := NewWriter(nil)
	w.WriteUint64(0x1_0000_0001)

	r := NewReader(w.Bytes())
	assert.Equal(t, uint64(0x1_0000_0001), r.ReadUint64())
}
