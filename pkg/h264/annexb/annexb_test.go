package annexb

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(t *testing.T, s string) []byte {
	b, err := hex.DecodeString(s)
	require.Nil(t, err)
	return b
}

func TestEncodeToAVCC(t *testing.T) {
	// FFmpeg style: AUD SPS PPS IFrame, mixed 3 and 4 byte start codes
	src := dec(t, "0000000109f0"+"0000000167adbeef"+"00000001688042"+"00000165654321")

	avcc := EncodeToAVCC(src, true)
	require.NotNil(t, avcc)

	assert.Equal(t, dec(t, "00000004"+"67adbeef"+"00000003"+"688042"+"00000004"+"65654321"), avcc)
}

func TestDecodeAVCC(t *testing.T) {
	avcc := dec(t, "00000004"+"67adbeef"+"00000004"+"65654321")

	b := DecodeAVCC(avcc, true)
	assert.Equal(t, dec(t, "00000001"+"67adbeef"+"00000001"+"65654321"), b)

	// safeClone keeps the source intact
	assert.Equal(t, byte(0x04), avcc[3])

	b = DecodeAVCCWithAUD(avcc)
	assert.Equal(t, dec(t, "0000000109f0"+"00000001"+"67adbeef"+"00000001"+"65654321"), b)
}

func TestIndexFrame(t *testing.T) {
	frame1 := dec(t, "00000001"+"67adbeef"+"00000001"+"688042"+"00000001"+"65654321")
	frame2 := dec(t, "00000001"+"419a77")

	b := append(append([]byte(nil), frame1...), frame2...)

	i := IndexFrame(b)
	require.Equal(t, len(frame1), i)
	assert.Equal(t, frame1, b[:i])

	assert.Equal(t, -1, IndexFrame(frame2))
}
