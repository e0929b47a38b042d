package aac

import (
	"encoding/hex"
	"fmt"

	"github.com/tscast/tscast/pkg/bits"
	"github.com/tscast/tscast/pkg/core"
)

const (
	TypeAACMain = 1
	TypeAACLC   = 2
	TypeESCAPE  = 31

	AUTime = 1024 // samples per AAC frame
)

// streamtype=5 - audio stream
const FMTP = "streamtype=5;profile-level-id=1;mode=AAC-hbr;sizelength=13;indexlength=3;indexdeltalength=3;config="

var sampleRates = []uint32{
	96000, 88200, 64000, 48000, 44100, 32000, 24000, 22050, 16000, 12000, 11025, 8000, 7350,
	0, 0, 0, // protection from request sampleRates[15]
}

// ConfigToCodec - build codec from MPEG-4 AudioSpecificConfig
func ConfigToCodec(conf []byte) *core.Codec {
	rd := bits.NewReader(conf)

	codec := &core.Codec{
		FmtpLine:    FMTP + hex.EncodeToString(conf),
		PayloadType: core.PayloadTypeRAW,
	}

	objType := rd.ReadBits(5)
	if objType == TypeESCAPE {
		objType = 32 + rd.ReadBits(6)
	}

	switch objType {
	case TypeAACLC:
		codec.Name = core.CodecAAC
	default:
		codec.Name = fmt.Sprintf("AAC-%X", objType)
	}

	if sampleRateIdx := rd.ReadBits8(4); sampleRateIdx < 0x0F {
		codec.ClockRate = sampleRates[sampleRateIdx]
	} else {
		codec.ClockRate = rd.ReadBits(24)
	}

	codec.Channels = rd.ReadBits16(4)

	return codec
}

func DecodeConfig(b []byte) (objType, sampleFreqIdx, channels byte, sampleRate uint32) {
	rd := bits.NewReader(b)

	objType = rd.ReadBits8(5)
	if objType == 0b11111 {
		objType = 32 + rd.ReadBits8(6)
	}

	sampleFreqIdx = rd.ReadBits8(4)
	if sampleFreqIdx == 0b1111 {
		sampleRate = rd.ReadBits(24)
	} else {
		sampleRate = sampleRates[sampleFreqIdx]
	}

	channels = rd.ReadBits8(4)
	return
}

func EncodeConfig(objType byte, sampleRate uint32, channels uint16) []byte {
	wr := bits.NewWriter(nil)
	wr.WriteBits8(objType, 5)
	wr.WriteBits8(indexOfSampleRate(sampleRate), 4)
	wr.WriteBits16(channels, 4)
	return wr.Bytes()
}

func indexOfSampleRate(rate uint32) byte {
	for i, r := range sampleRates {
		if r == rate {
			return byte(i)
		}
	}
	return 4 // 44100
}
