package core

import (
	"fmt"
)

type Codec struct {
	Name        string // H264, H265, MPEG4-GENERIC...
	ClockRate   uint32 // 90000, 48000, 44100...
	Channels    uint16 // 0, 1, 2
	FmtpLine    string
	PayloadType uint8
}

func (c *Codec) String() string {
	s := c.Name
	if c.ClockRate != 0 && c.ClockRate != 90000 {
		s = fmt.Sprintf("%s/%d", s, c.ClockRate)
	}
	if c.Channels > 0 {
		s = fmt.Sprintf("%s/%d", s, c.Channels)
	}
	return s
}

func (c *Codec) Clone() *Codec {
	clone := *c
	return &clone
}

func (c *Codec) Kind() string {
	switch c.Name {
	case CodecH264, CodecH265:
		return KindVideo
	}
	return KindAudio
}
