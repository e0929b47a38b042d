package srt

import (
	"net"
	"time"

	srtgo "github.com/zsiec/srtgo"
)

// DefaultLatency - receive buffer latency for the SRT link
const DefaultLatency = 120 * time.Millisecond

// Sink - one SRT caller connection fed with muxed chunks, each chunk
// travels as a single SRT message
type Sink struct {
	conn *srtgo.Conn
}

// Dial - connect to a remote SRT listener in caller mode
func Dial(address, streamID string, latency time.Duration) (*Sink, error) {
	cfg := srtgo.DefaultConfig()
	if latency <= 0 {
		latency = DefaultLatency
	}
	cfg.Latency = latency
	cfg.StreamID = streamID

	conn, err := srtgo.Dial(address, cfg)
	if err != nil {
		return nil, err
	}

	return &Sink{conn: conn}, nil
}

func (s *Sink) WriteChunk(b []byte) error {
	_, err := s.conn.Write(b)
	return err
}

func (s *Sink) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

func (s *Sink) Close() error {
	return s.conn.Close()
}
