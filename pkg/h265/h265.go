// Package h265 - HEVC and decoder configuration record helpers
package h265

import (
	"encoding/binary"
)

const (
	NALUTypePFrame  = 1
	NALUTypeIFrame  = 19 // IDR_W_RADL
	NALUTypeIFrame2 = 20 // IDR_N_LP
	NALUTypeIFrame3 = 21 // CRA_NUT
	NALUTypeVPS     = 32
	NALUTypeSPS     = 33
	NALUTypePPS     = 34
)

func NALUType(b []byte) byte {
	return (b[4] >> 1) & 0x3F
}

func IsKeyframe(b []byte) bool {
	for {
		switch NALUType(b) {
		case NALUTypePFrame:
			return false
		case NALUTypeIFrame, NALUTypeIFrame2, NALUTypeIFrame3:
			return true
		}

		size := int(binary.BigEndian.Uint32(b)) + 4
		if size < len(b) {
			b = b[size:]
			continue
		} else {
			return false
		}
	}
}
