// Package mpegts - MPEG-2 Transport Stream muxing for live streaming
// (SRT push, HLS segment recording)
package mpegts

import (
	"time"

	"github.com/tscast/tscast/pkg/bits"
)

const (
	PacketSize = 188
	SyncByte   = 0x47

	// PayloadSize - default output chunk: 7 TS packets, the
	// common payload size for SRT and RTMP-relayed transports
	PayloadSize = 7 * PacketSize
)

const (
	StreamTypeAAC  = 0x0F // AAC with ADTS transport syntax
	StreamTypeH264 = 0x1B
	StreamTypeH265 = 0x24
)

// Fixed single-program layout
const (
	PIDPAT   = 0
	PIDPMT   = 0x0FFF // 4095
	PIDVideo = 0x0100 // 256
	PIDAudio = 0x0101 // 257

	ProgramNumber = 1
)

const (
	StreamIDAudio = 0xC0
	StreamIDVideo = 0xE0
)

// PCRInterval - minimum spacing between clock reference insertions
const PCRInterval = 20 * time.Millisecond

// ToTime - convert duration to 90kHz ticks
func ToTime(d time.Duration) uint64 {
	return uint64(d.Nanoseconds() * 9 / 100_000)
}

// ToPCR - convert duration to 27MHz ticks
func ToPCR(d time.Duration) uint64 {
	return uint64(d.Nanoseconds() * 27 / 1000)
}

const (
	timeOnlyPTS = 0b0010
	timeFirstTS = 0b0011 // PTS of the PTS+DTS pair
	timeOnlyDTS = 0b0001
)

// WriteTime - write 33-bit timestamp in PES 5 byte format
// [flags:4 t32..30:3 1] [t29..22:8] [t21..15:7 1] [t14..7:8] [t6..0:7 1]
func WriteTime(wr *bits.Writer, flags byte, t uint64) {
	wr.WriteByte(flags<<4 | byte(t>>29)&0x0E | 1)
	wr.WriteByte(byte(t >> 22))
	wr.WriteByte(byte(t>>14) | 1)
	wr.WriteByte(byte(t >> 7))
	wr.WriteByte(byte(t<<1) | 1)
}

// ParseTime - read 33-bit timestamp from PES 5 byte format
func ParseTime(b []byte) uint64 {
	_ = b[4] // bounds
	return uint64(b[0]&0x0E)<<29 | uint64(b[1])<<22 | uint64(b[2]>>1)<<15 | uint64(b[3])<<7 | uint64(b[4]>>1)
}

// WritePCR - write 27MHz clock as 33-bit base @ 90kHz + 6 reserved bits + 9-bit extension
func WritePCR(wr *bits.Writer, pcr uint64) {
	base := pcr / 300
	ext := pcr % 300

	wr.WriteBits64(base, 33)
	wr.WriteBits8(0b111111, 6) // Reserved bits (all to 1)
	wr.WriteBits16(uint16(ext), 9)
}

// ParsePCR - read 6 byte PCR back to 27MHz ticks
func ParsePCR(b []byte) uint64 {
	_ = b[5] // bounds
	base := uint64(b[0])<<25 | uint64(b[1])<<17 | uint64(b[2])<<9 | uint64(b[3])<<1 | uint64(b[4]>>7)
	ext := uint64(b[4]&1)<<8 | uint64(b[5])
	return base*300 + ext
}
