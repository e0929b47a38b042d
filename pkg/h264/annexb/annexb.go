// Package annexb converts H264 access units between Annex-B start
// code framing and AVCC length prefix framing.
package annexb

import (
	"bytes"
	"encoding/binary"
)

const StartCode = "\x00\x00\x00\x01"
const startAUD = StartCode + "\x09\xF0"
const startAUDstart = startAUD + StartCode

// EncodeToAVCC - rewrite start codes as 4 byte big endian NALU sizes
// in place, dropping a leading access unit delimiter; a 3 byte start
// code grows the buffer by one byte. Damages b unless safeAppend is
// set (needed when b shares an array with following data).
func EncodeToAVCC(b []byte, safeAppend bool) []byte {
	const minSize = len(StartCode) + 1

	if len(b) < len(startAUDstart) || string(b[:len(StartCode)]) != StartCode {
		return nil
	}

	// FFmpeg puts an AUD NALU in front of every TS access unit
	if string(b[:len(startAUDstart)]) == startAUDstart {
		b = b[6:]
	}

	var start int

	for i, n := minSize, len(b)-minSize; i < n; {
		if b[i] != 0 || b[i+1] != 0 {
			i++
			continue
		}

		if b[i+2] == 1 {
			if safeAppend {
				b = bytes.Clone(b)
				safeAppend = false
			}

			// grow the 3 byte start code to 4 bytes
			b = append(b, 0)
			copy(b[i+1:], b[i:])
			n++
		} else if b[i+2] != 0 || b[i+3] != 1 {
			i++
			continue
		}

		// size of the finished NALU over its start code
		binary.BigEndian.PutUint32(b[start:], uint32(i-start-len(StartCode)))

		start = i
		i += minSize
	}

	binary.BigEndian.PutUint32(b[start:], uint32(len(b)-start-len(StartCode)))

	return b
}

// DecodeAVCC - rewrite 4 byte NALU sizes as start codes in place
func DecodeAVCC(b []byte, safeClone bool) []byte {
	if safeClone {
		b = bytes.Clone(b)
	}
	for i := 0; i < len(b); {
		size := int(binary.BigEndian.Uint32(b[i:]))
		b[i] = 0
		b[i+1] = 0
		b[i+2] = 0
		b[i+3] = 1
		i += 4 + size
	}
	return b
}

// DecodeAVCCWithAUD - same with an access unit delimiter in front,
// some players refuse TS video without it
func DecodeAVCCWithAUD(src []byte) []byte {
	dst := make([]byte, len(startAUD)+len(src))
	copy(dst, startAUD)
	copy(dst[len(startAUD):], src)
	DecodeAVCC(dst[len(startAUD):], false)
	return dst
}

const (
	naluPFrame = 1
	naluSPS    = 7
)

// IndexFrame - offset of the next access unit in an H264 Annex-B
// stream, -1 when b holds a single frame; a new unit starts at a
// PFrame or at the SPS ahead of a keyframe
func IndexFrame(b []byte) int {
	if len(b) < len(startAUDstart) {
		return -1
	}

	for i := len(startAUDstart); ; {
		di := bytes.Index(b[i:], []byte(StartCode))
		if di < 0 {
			break
		}
		i += di + 4 // NALU start

		if i >= len(b) {
			break
		}

		switch b[i] & 0b1_1111 {
		case naluPFrame, naluSPS:
			return i - 4 // back to the start code
		}
	}

	return -1
}
