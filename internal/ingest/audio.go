package ingest

import (
	"errors"
	"os"
	"time"

	"github.com/tscast/tscast/pkg/aac"
	"github.com/tscast/tscast/pkg/core"
)

// AudioSource - AAC frames from an ADTS capture dump, timestamps
// follow the 1024 samples per frame cadence of the stream clock
type AudioSource struct {
	frames   [][]byte // with ADTS headers
	codec    *core.Codec
	interval time.Duration
	pos      int
}

func OpenAudio(path string) (*AudioSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	codec := aac.ADTSToCodec(data)
	if codec == nil {
		return nil, errors.New("ingest: not an ADTS stream: " + path)
	}
	if codec.ClockRate == 0 {
		// reserved sampling frequency index in the header
		return nil, errors.New("ingest: bad ADTS sample rate: " + path)
	}

	s := &AudioSource{
		codec:    codec,
		interval: time.Duration(aac.AUTime) * time.Second / time.Duration(codec.ClockRate),
	}

	for aac.IsADTS(data) {
		size := int(aac.ReadADTSSize(data))
		if size < aac.ADTSHeaderSize || size > len(data) {
			break
		}

		s.frames = append(s.frames, data[:size])
		data = data[size:]
	}

	if len(s.frames) == 0 {
		return nil, errors.New("ingest: no audio frames: " + path)
	}

	return s, nil
}

func (s *AudioSource) Codec() *core.Codec {
	return s.codec
}

// Next - following frame, ok is false past the last frame
func (s *AudioSource) Next() (ts time.Duration, frame []byte, ok bool) {
	if s.pos == len(s.frames) {
		return 0, nil, false
	}

	ts = time.Duration(s.pos) * s.interval
	frame = s.frames[s.pos]
	s.pos++
	return ts, frame, true
}
