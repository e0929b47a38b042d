package mpegts

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tscast/tscast/pkg/core"
	"github.com/tscast/tscast/pkg/h264"
	"github.com/tscast/tscast/pkg/h265"
)

type chunkSink struct {
	chunks [][]byte
}

func (s *chunkSink) WriteChunk(b []byte) error {
	s.chunks = append(s.chunks, append([]byte(nil), b...))
	return nil
}

func (s *chunkSink) bytes() (b []byte) {
	for _, chunk := range s.chunks {
		b = append(b, chunk...)
	}
	return
}

func (s *chunkSink) packets(t *testing.T) (packets []*Packet) {
	b := s.bytes()
	require.Equal(t, 0, len(b)%PacketSize)

	for i := 0; i < len(b); i += PacketSize {
		pkt := ParsePacket(b[i : i+PacketSize])
		require.NotNil(t, pkt)
		packets = append(packets, pkt)
	}
	return
}

type segmentSink struct {
	chunkSink
	rotations []time.Duration
}

func (s *segmentSink) Rotate(ts time.Duration) error {
	s.rotations = append(s.rotations, ts)
	return nil
}

var testSPS = []byte{0x67, 0x42, 0xC0, 0x1E, 0xD9, 0x05, 0x89, 0xC8}
var testPPS = []byte{0x68, 0xCE, 0x06, 0xE2}

func testVideoConfig() []byte {
	return h264.EncodeConfig(testSPS, testPPS)
}

func testAudioCodec() *core.Codec {
	return &core.Codec{
		Name:      core.CodecAAC,
		ClockRate: 44100,
		Channels:  2,
		FmtpLine:  "streamtype=5;profile-level-id=1;mode=AAC-hbr;config=1210",
	}
}

// AVCC access unit with a single NAL of the wanted size
func testAU(keyframe bool, size int) []byte {
	b := make([]byte, 4+size)
	b[3] = byte(size)
	if size > 0xFF {
		b[2] = byte(size >> 8)
	}
	if keyframe {
		b[4] = 0x65
	} else {
		b[4] = 0x41
	}
	return b
}

// AVCC access unit with a single HEVC NAL of the wanted size
func testAU265(keyframe bool, size int) []byte {
	b := make([]byte, 4+size)
	b[2] = byte(size >> 8)
	b[3] = byte(size)
	if keyframe {
		b[4] = 19 << 1 // IDR_W_RADL
	} else {
		b[4] = 1 << 1
	}
	return b
}

func testVideoConfig265() []byte {
	vps := []byte{0x40, 0x01, 0x0C, 0x01, 0xFF, 0xFF, 0x01, 0x60}
	sps := []byte{0x42, 0x01, 0x01, 0x01, 0x60, 0x00, 0x00, 0x03, 0x00, 0x90}
	pps := []byte{0x44, 0x01, 0xC1, 0x72, 0xB4, 0x62, 0x40}
	return h265.EncodeConfig(vps, sps, pps)
}

func TestWriterGate(t *testing.T) {
	sink := &chunkSink{}
	w := NewWriter(Config{}, sink)
	w.Start()

	// no config yet
	require.Nil(t, w.WriteVideo(0, 0, testAU(true, 100)))
	require.Nil(t, w.WriteAudio(0, make([]byte, 100)))

	// audio still missing
	w.WriteVideoConfig(StreamTypeH264, testVideoConfig())
	require.Nil(t, w.WriteVideo(0, 0, testAU(true, 100)))

	require.Nil(t, w.Stop())
	assert.Len(t, sink.chunks, 0)
}

func TestWriterProgram(t *testing.T) {
	sink := &chunkSink{}
	w := NewWriter(Config{}, sink)
	w.Start()

	w.WriteVideoConfig(StreamTypeH264, testVideoConfig())
	w.WriteAudioConfig(testAudioCodec())

	require.Nil(t, w.WriteVideo(0, 0, testAU(true, 500)))
	require.Nil(t, w.WriteAudio(0, make([]byte, 300)))
	require.Nil(t, w.Stop())

	packets := sink.packets(t)
	require.True(t, len(packets) > 2)

	require.Equal(t, uint16(PIDPAT), packets[0].PID)
	require.Equal(t, uint16(PIDPMT), packets[1].PID)

	pat := ParsePAT(packets[0].Payload)
	require.NotNil(t, pat)
	assert.Equal(t, uint16(ProgramNumber), pat.ProgramNumber)
	assert.Equal(t, uint16(PIDPMT), pat.PMTPID)

	pmt := ParsePMT(packets[1].Payload)
	require.NotNil(t, pmt)
	assert.Equal(t, uint16(PIDVideo), pmt.PCRPID)
	require.Len(t, pmt.Streams, 2)
	assert.Equal(t, ElementaryStream{StreamTypeH264, PIDVideo}, pmt.Streams[0])
	assert.Equal(t, ElementaryStream{StreamTypeAAC, PIDAudio}, pmt.Streams[1])
}

func TestWriterReconfig(t *testing.T) {
	sink := &chunkSink{}
	w := NewWriter(Config{ExpectedMedias: []string{core.KindVideo}}, sink)
	w.Start()
	w.WriteVideoConfig(StreamTypeH264, testVideoConfig())

	for i := 0; i < 30; i++ {
		ts := time.Duration(i) * time.Second / 30
		require.Nil(t, w.WriteVideo(ts, ts, testAU(i == 0, 1000)))
	}

	// stream switches codec mid session
	w.WriteVideoConfig(StreamTypeH265, testVideoConfig265())

	for i := 30; i < 60; i++ {
		ts := time.Duration(i) * time.Second / 30
		require.Nil(t, w.WriteVideo(ts, ts, testAU265(i == 30, 1000)))
	}
	require.Nil(t, w.Stop())

	// the table is resent with a new version and the new stream type
	var pmts []*PMT
	for _, pkt := range sink.packets(t) {
		if pkt.PID == PIDPMT && pkt.PUSI {
			pmt := ParsePMT(pkt.Payload)
			require.NotNil(t, pmt)
			pmts = append(pmts, pmt)
		}
	}

	require.Len(t, pmts, 2)
	assert.Equal(t, byte(0), pmts[0].Version)
	assert.Equal(t, []ElementaryStream{{StreamTypeH264, PIDVideo}}, pmts[0].Streams)
	assert.Equal(t, byte(1), pmts[1].Version)
	assert.Equal(t, []ElementaryStream{{StreamTypeH265, PIDVideo}}, pmts[1].Streams)
}

func TestWriterChunks(t *testing.T) {
	sink := &chunkSink{}
	w := NewWriter(Config{ExpectedMedias: []string{core.KindVideo}}, sink)
	w.Start()
	w.WriteVideoConfig(StreamTypeH264, testVideoConfig())

	total := 0
	for i := 0; i < 60; i++ {
		ts := time.Duration(i) * time.Second / 30
		require.Nil(t, w.WriteVideo(ts, ts, testAU(i%30 == 0, 1000)))
	}
	require.Nil(t, w.Stop())

	require.True(t, len(sink.chunks) > 2)
	for i, chunk := range sink.chunks {
		total += len(chunk)
		if i < len(sink.chunks)-1 {
			require.Len(t, chunk, PayloadSize)
		} else {
			require.True(t, len(chunk) <= PayloadSize)
		}
	}
	require.Equal(t, 0, total%PacketSize)

	// every video packet arrives in continuity order
	expect := byte(0)
	for _, pkt := range sink.packets(t) {
		if pkt.PID != PIDVideo {
			continue
		}
		require.Equal(t, expect, pkt.Counter)
		expect = (expect + 1) & 0xF
	}
}

func TestWriterPCR(t *testing.T) {
	sink := &chunkSink{}
	w := NewWriter(Config{ExpectedMedias: []string{core.KindVideo}}, sink)
	w.Start()
	w.WriteVideoConfig(StreamTypeH264, testVideoConfig())

	// one second of 30 fps video
	for i := 0; i <= 30; i++ {
		ts := time.Duration(i) * time.Second / 30
		require.Nil(t, w.WriteVideo(ts, ts, testAU(i == 0, 2000)))
	}
	require.Nil(t, w.Stop())

	var last uint64
	var count int
	for _, pkt := range sink.packets(t) {
		if pkt.PID != PIDVideo || pkt.Adaptation == nil || !pkt.Adaptation.HasPCR {
			continue
		}
		require.True(t, pkt.Adaptation.PCR >= last)
		last = pkt.Adaptation.PCR
		count++
	}

	// at most one PCR per PCRInterval
	assert.True(t, count > 1)
	assert.True(t, count <= 50)
}

func TestWriterAudioOnly(t *testing.T) {
	sink := &chunkSink{}
	w := NewWriter(Config{ExpectedMedias: []string{core.KindAudio}}, sink)
	w.Start()
	w.WriteAudioConfig(testAudioCodec())

	// one second of 1024 sample AAC frames at 44.1kHz
	for i := 0; i < 43; i++ {
		ts := time.Duration(i) * 1024 * time.Second / 44100
		require.Nil(t, w.WriteAudio(ts, make([]byte, 400)))
	}
	require.Nil(t, w.Stop())

	packets := sink.packets(t)

	pmt := ParsePMT(packets[1].Payload)
	require.NotNil(t, pmt)
	assert.Equal(t, uint16(PIDAudio), pmt.PCRPID)

	var count int
	for _, pkt := range packets {
		if pkt.PID == PIDAudio && pkt.Adaptation != nil && pkt.Adaptation.HasPCR {
			count++
		}
	}
	assert.True(t, count > 1)
}

func TestWriterInterleave(t *testing.T) {
	sink := &chunkSink{}
	w := NewWriter(Config{}, sink)
	w.Start()
	w.WriteVideoConfig(StreamTypeH264, testVideoConfig())
	w.WriteAudioConfig(testAudioCodec())

	require.Nil(t, w.WriteVideo(0, 0, testAU(true, 3000)))
	for i := 0; i < 20; i++ {
		if i%4 == 3 {
			ts := time.Duration(i/4+1) * time.Second / 30
			require.Nil(t, w.WriteVideo(ts, ts, testAU(false, 3000)))
		}
		ts := time.Duration(i) * 1024 * time.Second / 44100
		require.Nil(t, w.WriteAudio(ts, make([]byte, 400)))
	}
	require.Nil(t, w.Stop())

	require.True(t, len(sink.chunks) > 2)
	for i, chunk := range sink.chunks {
		if i < len(sink.chunks)-1 {
			require.Len(t, chunk, PayloadSize)
		}
	}

	// audio backfill keeps video bytes in stream order
	expect := byte(0)
	var mixed bool
	for i, chunk := range sink.chunks {
		var hasAudio, hasVideo bool
		for j := 0; j+PacketSize <= len(chunk); j += PacketSize {
			pkt := ParsePacket(chunk[j : j+PacketSize])
			require.NotNil(t, pkt)
			switch pkt.PID {
			case PIDVideo:
				hasVideo = true
				require.Equal(t, expect, pkt.Counter, "chunk %d", i)
				expect = (expect + 1) & 0xF
			case PIDAudio:
				hasAudio = true
			}
		}
		mixed = mixed || (hasAudio && hasVideo)
	}
	assert.True(t, mixed)
}

func TestWriterChunkSizes(t *testing.T) {
	sink := &chunkSink{}
	w := NewWriter(Config{}, sink)
	w.Start()

	// video blocks of 2000 and 500 bytes through the lookahead
	blocks := [][]byte{
		bytes.Repeat([]byte{0xAA}, 2000),
		bytes.Repeat([]byte{0xBB}, 500),
	}
	for _, b := range blocks {
		require.Nil(t, w.emit(w.pendingLeft()))
		w.pending, w.pendingOff = w.newest, 0
		w.newest = b
	}
	require.Nil(t, w.flush())

	require.Len(t, sink.chunks, 2)
	assert.Len(t, sink.chunks[0], PayloadSize)
	assert.Len(t, sink.chunks[1], 1184)

	// every input byte appears exactly once, in order
	all := sink.bytes()
	assert.True(t, bytes.Equal(blocks[0], all[:2000]))
	assert.True(t, bytes.Equal(blocks[1], all[2000:]))
}

func TestWriterRotate(t *testing.T) {
	sink := &segmentSink{}
	w := NewWriter(Config{
		SegmentDuration: time.Second,
		ExpectedMedias:  []string{core.KindVideo},
	}, sink)
	w.Start()
	w.WriteVideoConfig(StreamTypeH264, testVideoConfig())

	// every frame a keyframe, four per second
	for i := 0; i <= 12; i++ {
		ts := time.Duration(i) * 250 * time.Millisecond
		require.Nil(t, w.WriteVideo(ts, ts, testAU(true, 2000)))
	}
	require.Nil(t, w.Stop())

	require.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}, sink.rotations)

	// tables are rewritten after every rotation
	var tables int
	reset := true
	for _, pkt := range sink.packets(t) {
		switch pkt.PID {
		case PIDPAT:
			tables++
			reset = true
		case PIDVideo:
			if reset {
				require.Equal(t, byte(0), pkt.Counter)
				reset = false
			}
		}
	}
	assert.Equal(t, 1+len(sink.rotations), tables)
}

func TestWriterRotateAudioOnly(t *testing.T) {
	sink := &segmentSink{}
	w := NewWriter(Config{
		SegmentDuration: 500 * time.Millisecond,
		ExpectedMedias:  []string{core.KindAudio},
	}, sink)
	w.Start()
	w.WriteAudioConfig(testAudioCodec())

	for i := 0; i <= 60; i++ {
		ts := time.Duration(i) * 20 * time.Millisecond
		require.Nil(t, w.WriteAudio(ts, make([]byte, 400)))
	}
	require.Nil(t, w.Stop())

	require.Equal(t, []time.Duration{500 * time.Millisecond, time.Second}, sink.rotations)

	// tables are rewritten after every rotation
	var tables int
	reset := true
	for _, pkt := range sink.packets(t) {
		switch pkt.PID {
		case PIDPAT:
			tables++
			reset = true
		case PIDAudio:
			if reset {
				require.Equal(t, byte(0), pkt.Counter)
				reset = false
			}
		}
	}
	assert.Equal(t, 1+len(sink.rotations), tables)
}

func TestWriterRestart(t *testing.T) {
	sink := &chunkSink{}
	w := NewWriter(Config{ExpectedMedias: []string{core.KindVideo}}, sink)

	require.Nil(t, w.Stop()) // stop before start is a no-op

	w.Start()
	w.Start() // idempotent
	w.WriteVideoConfig(StreamTypeH264, testVideoConfig())
	require.Nil(t, w.WriteVideo(0, 0, testAU(true, 500)))
	require.Nil(t, w.Stop())
	require.Nil(t, w.Stop())

	n := len(sink.chunks)
	require.True(t, n > 0)

	// stop clears the stream configuration
	w.Start()
	require.Nil(t, w.WriteVideo(0, 0, testAU(true, 500)))
	require.Nil(t, w.Stop())
	assert.Len(t, sink.chunks, n)
}
