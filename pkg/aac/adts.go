package aac

import (
	"encoding/hex"

	"github.com/tscast/tscast/pkg/bits"
	"github.com/tscast/tscast/pkg/core"
)

const ADTSHeaderSize = 7

func IsADTS(b []byte) bool {
	return len(b) > ADTSHeaderSize && b[0] == 0xFF && b[1]&0xF6 == 0xF0
}

// ADTSToCodec - build codec from the first ADTS frame header
func ADTSToCodec(b []byte) *core.Codec {
	if !IsADTS(b) {
		return nil
	}

	// https://wiki.multimedia.cx/index.php/ADTS
	rd := bits.NewReader(b)
	_ = rd.ReadBits(12)              // Syncword, all bits must be set to 1
	_ = rd.ReadBit()                 // MPEG Version, set to 0 for MPEG-4 and 1 for MPEG-2
	_ = rd.ReadBits(2)               // Layer, always set to 0
	_ = rd.ReadBit()                 // Protection absence, set to 1 if there is no CRC
	objType := rd.ReadBits8(2) + 1   // Profile, the MPEG-4 Audio Object Type minus 1
	sampleRateIdx := rd.ReadBits8(4) // MPEG-4 Sampling Frequency Index
	_ = rd.ReadBit()                 // Private bit
	channels := rd.ReadBits16(3)     // MPEG-4 Channel Configuration

	wr := bits.NewWriter(nil)
	wr.WriteBits8(objType, 5)
	wr.WriteBits8(sampleRateIdx, 4)
	wr.WriteBits16(channels, 4)
	conf := wr.Bytes()

	return &core.Codec{
		Name:        core.CodecAAC,
		ClockRate:   sampleRates[sampleRateIdx],
		Channels:    channels,
		FmtpLine:    FMTP + hex.EncodeToString(conf),
		PayloadType: core.PayloadTypeRAW,
	}
}

func ReadADTSSize(b []byte) uint16 {
	// AAAAAAAA AAAABCCD EEFFFFGH HHIJKLMM MMMMMMMM MMMOOOOO OOOOOOPP
	_ = b[5] // bounds
	return uint16(b[3]&0x03)<<(8+3) | uint16(b[4])<<3 | uint16(b[5]>>5)
}

func WriteADTSSize(b []byte, size uint16) {
	// AAAAAAAA AAAABCCD EEFFFFGH HHIJKLMM MMMMMMMM MMMOOOOO OOOOOOPP
	_ = b[5] // bounds
	b[3] |= byte(size >> (8 + 3))
	b[4] = byte(size >> 3)
	b[5] |= byte(size << 5)
}

// CodecToADTS - make an ADTS header template (frame length zero)
func CodecToADTS(codec *core.Codec) []byte {
	s := core.Between(codec.FmtpLine, "config=", ";")
	conf, err := hex.DecodeString(s)
	if err != nil || len(conf) < 2 {
		conf = EncodeConfig(TypeAACLC, codec.ClockRate, codec.Channels)
	}

	objType, sampleFreqIdx, channels, _ := DecodeConfig(conf)
	profile := objType - 1

	wr := bits.NewWriter(nil)
	wr.WriteAllBits(1, 12)          // Syncword, all bits must be set to 1
	wr.WriteBit(0)                  // MPEG Version, set to 0 for MPEG-4
	wr.WriteBits8(0, 2)             // Layer, always set to 0
	wr.WriteBit(1)                  // Protection absence, set to 1 if there is no CRC
	wr.WriteBits8(profile, 2)       // Profile, the MPEG-4 Audio Object Type minus 1
	wr.WriteBits8(sampleFreqIdx, 4) // MPEG-4 Sampling Frequency Index
	wr.WriteBit(0)                  // Private bit
	wr.WriteBits8(channels, 3)      // MPEG-4 Channel Configuration
	wr.WriteBit(0)                  // Originality
	wr.WriteBit(0)                  // Home
	wr.WriteBit(0)                  // Copyright ID bit
	wr.WriteBit(0)                  // Copyright ID start
	wr.WriteBits16(0, 13)           // Frame length
	wr.WriteAllBits(1, 11)          // Buffer fullness (variable bitrate)
	wr.WriteBits8(0, 2)             // Number of AAC frames minus 1

	return wr.Bytes()
}

// Wrap - add ADTS header to a raw AAC frame, pass ADTS frames unchanged
func Wrap(codec *core.Codec, frame []byte) []byte {
	if IsADTS(frame) {
		return frame
	}

	adts := CodecToADTS(codec)

	b := make([]byte, ADTSHeaderSize+len(frame))
	copy(b, adts)
	copy(b[ADTSHeaderSize:], frame)
	WriteADTSSize(b, uint16(len(b)))
	return b
}
