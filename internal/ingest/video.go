package ingest

import (
	"encoding/binary"
	"errors"
	"os"
	"time"

	"github.com/tscast/tscast/pkg/h264"
	"github.com/tscast/tscast/pkg/h264/annexb"
	"github.com/tscast/tscast/pkg/mpegts"
)

// VideoSource - access units from a raw H264 AnnexB capture dump
// with synthetic timestamps at a fixed frame rate
type VideoSource struct {
	frames   [][]byte // AVCC
	config   []byte   // avcC
	interval time.Duration
	pos      int
}

func OpenVideo(path string, fps float64) (*VideoSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if fps <= 0 {
		fps = 30
	}

	s := &VideoSource{
		interval: time.Duration(float64(time.Second) / fps),
	}

	for len(data) > 0 {
		i := annexb.IndexFrame(data)
		if i < 0 {
			i = len(data)
		}

		au := annexb.EncodeToAVCC(data[:i], true)
		data = data[i:]

		if au == nil {
			continue
		}

		if s.config == nil {
			s.config = configFromAU(au)
		}

		s.frames = append(s.frames, au)
	}

	if len(s.frames) == 0 {
		return nil, errors.New("ingest: no video frames: " + path)
	}
	if s.config == nil {
		return nil, errors.New("ingest: no SPS/PPS in stream: " + path)
	}

	return s, nil
}

func (s *VideoSource) StreamType() byte {
	return mpegts.StreamTypeH264
}

// Config - avcC record built from the in stream parameter sets
func (s *VideoSource) Config() []byte {
	return s.config
}

// Next - following access unit, ok is false past the last frame
func (s *VideoSource) Next() (ts time.Duration, au []byte, ok bool) {
	if s.pos == len(s.frames) {
		return 0, nil, false
	}

	ts = time.Duration(s.pos) * s.interval
	au = s.frames[s.pos]
	s.pos++
	return ts, au, true
}

func configFromAU(au []byte) []byte {
	var sps, pps []byte

	for i := 0; i+4 <= len(au); {
		size := int(binary.BigEndian.Uint32(au[i:]))
		if i+4+size > len(au) {
			break
		}

		nalu := au[i+4 : i+4+size]
		if len(nalu) > 0 {
			switch nalu[0] & 0x1F {
			case h264.NALUTypeSPS:
				sps = nalu
			case h264.NALUTypePPS:
				pps = nalu
			}
		}

		i += 4 + size
	}

	if sps == nil || pps == nil {
		return nil
	}

	return h264.EncodeConfig(sps, pps)
}
