package hls

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	Dir            string
	TargetDuration time.Duration // advertised segment duration (default 2s)
	MaxSegments    int           // segment files kept on disk (default 12)
	Window         int           // segments listed in the playlist (default 3)
	Logger         *zerolog.Logger
}

// Segment - one finished media file
type Segment struct {
	Name     string
	Duration time.Duration
}

// Segmenter - sink that writes every segment as its own transport
// stream file and keeps a sliding live playlist over the newest ones
type Segmenter struct {
	mu  sync.Mutex
	log zerolog.Logger

	dir         string
	target      time.Duration
	maxSegments int
	window      int

	file     *os.File
	next     int           // index of the segment being written
	seq      int           // media sequence of segments[0]
	last     time.Duration // stream time of the previous boundary
	segments []Segment
}

func NewSegmenter(cfg Config) (*Segmenter, error) {
	s := &Segmenter{
		log:         zerolog.Nop(),
		dir:         cfg.Dir,
		target:      cfg.TargetDuration,
		maxSegments: cfg.MaxSegments,
		window:      cfg.Window,
	}

	if cfg.Logger != nil {
		s.log = *cfg.Logger
	}
	if s.target <= 0 {
		s.target = 2 * time.Second
	}
	if s.maxSegments <= 0 {
		s.maxSegments = 12
	}
	if s.window <= 0 {
		s.window = 3
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Segmenter) WriteChunk(b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		f, err := os.Create(filepath.Join(s.dir, segmentName(s.next)))
		if err != nil {
			return err
		}
		s.file = f
	}

	_, err := s.file.Write(b)
	return err
}

// Rotate - close the current segment file at the boundary stream
// time and drop files that fell out of the retention window
func (s *Segmenter) Rotate(ts time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.closeFile(); err != nil {
		return err
	}

	s.segments = append(s.segments, Segment{
		Name:     segmentName(s.next),
		Duration: ts - s.last,
	})
	s.last = ts
	s.next++

	for len(s.segments) > s.maxSegments {
		name := s.segments[0].Name
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			s.log.Warn().Err(err).Str("segment", name).Msg("[hls] remove")
		}
		s.segments = s.segments[1:]
		s.seq++
	}

	return nil
}

// Playlist - live media playlist over the newest finished segments
func (s *Segmenter) Playlist() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	skip := 0
	if len(s.segments) > s.window {
		skip = len(s.segments) - s.window
	}
	window := s.segments[skip:]

	target := int(s.target / time.Second)
	for _, seg := range window {
		if n := int(seg.Duration/time.Second) + 1; n > target {
			target = n
		}
	}

	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")
	fmt.Fprintf(&b, "#EXT-X-TARGETDURATION:%d\n", target)
	fmt.Fprintf(&b, "#EXT-X-MEDIA-SEQUENCE:%d\n", s.seq+skip)

	for _, seg := range window {
		fmt.Fprintf(&b, "#EXTINF:%.3f,\n%s\n", seg.Duration.Seconds(), seg.Name)
	}

	return b.String()
}

// Segments - finished segments, oldest first
func (s *Segmenter) Segments() []Segment {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Segment(nil), s.segments...)
}

// Close - release the unfinished segment file, finished segments
// stay on disk
func (s *Segmenter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closeFile()
}

func (s *Segmenter) closeFile() error {
	if s.file == nil {
		return nil
	}

	err := s.file.Close()
	s.file = nil
	return err
}

func segmentName(i int) string {
	return fmt.Sprintf("seg%d.ts", i)
}
