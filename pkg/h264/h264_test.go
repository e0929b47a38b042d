package h264

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sps = []byte{0x67, 0x42, 0xC0, 0x1E, 0xD9, 0x05, 0x89, 0xC8}
var pps = []byte{0x68, 0xCE, 0x06, 0xE2}

func TestConfig(t *testing.T) {
	conf := EncodeConfig(sps, pps)

	assert.Equal(t, byte(1), conf[0])
	assert.Equal(t, []byte{0x42, 0xC0, 0x1E}, conf[1:4])

	profile, sps2, pps2 := DecodeConfig(conf)
	assert.Equal(t, []byte{0x42, 0xC0, 0x1E}, profile)
	assert.Equal(t, sps, sps2)
	assert.Equal(t, pps, pps2)
}

func TestConfigBroken(t *testing.T) {
	_, sps2, pps2 := DecodeConfig(nil)
	assert.Nil(t, sps2)
	assert.Nil(t, pps2)

	conf := EncodeConfig(sps, pps)
	_, sps2, pps2 = DecodeConfig(conf[:10])
	assert.Nil(t, sps2)
	assert.Nil(t, pps2)
}

func TestConfigToCodec(t *testing.T) {
	codec := ConfigToCodec(EncodeConfig(sps, pps))
	require.NotNil(t, codec)
	assert.Equal(t, uint32(90000), codec.ClockRate)
	assert.Contains(t, codec.FmtpLine, "profile-level-id=42c01e")
	assert.Contains(t, codec.FmtpLine, "sprop-parameter-sets=")
}

func TestKeyframe(t *testing.T) {
	iframe := []byte{0, 0, 0, 2, 0x65, 0x88}
	pframe := []byte{0, 0, 0, 2, 0x41, 0x9A}

	assert.Equal(t, byte(NALUTypeIFrame), NALUType(iframe))
	assert.Equal(t, byte(NALUTypePFrame), NALUType(pframe))

	assert.True(t, IsKeyframe(iframe))
	assert.False(t, IsKeyframe(pframe))

	// SPS+PPS prefix before the IDR slice
	au := Join(JoinNALU(sps, pps), iframe)
	assert.True(t, IsKeyframe(au))
}

func TestJoinNALU(t *testing.T) {
	avcc := JoinNALU(sps, nil, pps)
	require.Len(t, avcc, 4+len(sps)+4+len(pps))

	assert.Equal(t, []byte{0, 0, 0, 8}, avcc[:4])
	assert.Equal(t, sps, avcc[4:12])
	assert.Equal(t, []byte{0, 0, 0, 4}, avcc[12:16])
	assert.Equal(t, pps, avcc[16:])
}
