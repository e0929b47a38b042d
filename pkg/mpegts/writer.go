package mpegts

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tscast/tscast/pkg/aac"
	"github.com/tscast/tscast/pkg/bits"
	"github.com/tscast/tscast/pkg/core"
	"github.com/tscast/tscast/pkg/h264"
	"github.com/tscast/tscast/pkg/h264/annexb"
	"github.com/tscast/tscast/pkg/h265"
)

// Sink - consumer of the muxed byte stream, one PayloadSize chunk
// per call (the final chunk of a session may be shorter)
type Sink interface {
	WriteChunk(b []byte) error
}

// RotateSink - sink with segment boundaries (file recording)
type RotateSink interface {
	Sink

	// Rotate is called with the stream time of the boundary after
	// all bytes of the finished segment were written
	Rotate(ts time.Duration) error
}

type Config struct {
	// PayloadSize - output chunk size, must stay fixed for the
	// whole session (default 1316 = 7 TS packets)
	PayloadSize int

	// SegmentDuration - rotation period for RotateSink (default 2s)
	SegmentDuration time.Duration

	// ExpectedMedias - media kinds that must be configured before
	// any output is produced (default video+audio)
	ExpectedMedias []string

	Logger *zerolog.Logger
}

type track struct {
	pid        uint16
	streamID   byte
	streamType byte
	counter    byte
	configured bool
	hasAnchor  bool
	anchor     time.Duration // first frame timestamp, 90kHz zero point
}

// Writer - single program TS muxer: owns PAT/PMT state, continuity
// counters, PCR scheduling, segment rotation and the audio/video
// interleaving into fixed size chunks.
//
// All entry points serialize on one mutex, the sink is called
// synchronously under it: a slow sink stalls packetization instead
// of growing an unbounded queue.
type Writer struct {
	mu   sync.Mutex
	log  zerolog.Logger
	sink Sink

	payloadSize     int
	segmentDuration time.Duration
	expected        []string

	running bool

	video track
	audio track

	videoPS    []byte      // keyframe parameter set prefix (AVCC)
	audioCodec *core.Codec // for ADTS wrapping of raw AAC frames

	patCounter byte
	pmtCounter byte
	pmtVersion byte

	pcrPID  uint16
	pcrTime time.Duration // last PCR emission, stream time
	hasPCR  bool

	programWritten bool

	rotateTime time.Duration // last rotation, video stream time
	hasRotate  bool

	// two-slot video lookahead for audio interleaving
	pending    []byte // oldest video block
	pendingOff int    // sent bytes of pending
	newest     []byte

	out []byte // partial output chunk
}

func NewWriter(cfg Config, sink Sink) *Writer {
	w := &Writer{
		sink:            sink,
		payloadSize:     cfg.PayloadSize,
		segmentDuration: cfg.SegmentDuration,
		expected:        cfg.ExpectedMedias,
		log:             zerolog.Nop(),
	}

	if cfg.Logger != nil {
		w.log = *cfg.Logger
	}
	if w.payloadSize <= 0 {
		w.payloadSize = PayloadSize
	}
	if w.segmentDuration <= 0 {
		w.segmentDuration = 2 * time.Second
	}
	if w.expected == nil {
		w.expected = []string{core.KindVideo, core.KindAudio}
	}

	w.reset()

	return w
}

// Start - standby to running, no-op when already running
func (w *Writer) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return
	}

	w.reset()
	w.running = true
}

// Stop - running to standby, no-op when already stopped; flushes the
// buffered remainder as one final short chunk, then clears all
// counters and stream configuration
func (w *Writer) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	err := w.flush()

	w.reset()
	w.running = false

	return err
}

// WriteVideoConfig - (re)register the video elementary stream from
// an avcC/hvcC decoder configuration record; resets the PID counter
// and bumps the PMT version on format change
func (w *Writer) WriteVideoConfig(streamType byte, conf []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var ps []byte

	switch streamType {
	case StreamTypeH264:
		_, sps, pps := h264.DecodeConfig(conf)
		if sps == nil || pps == nil {
			w.log.Warn().Msg("[mpegts] wrong avcC config")
			return
		}
		ps = h264.JoinNALU(sps, pps)

	case StreamTypeH265:
		_, vps, sps, pps := h265.DecodeConfig(conf)
		if sps == nil {
			w.log.Warn().Msg("[mpegts] wrong hvcC config")
			return
		}
		ps = h264.JoinNALU(vps, sps, pps)

	default:
		w.log.Warn().Uint8("stream_type", streamType).Msg("[mpegts] unsupported video")
		return
	}

	if w.video.configured || w.programWritten {
		w.pmtVersion++ // table changed
	}
	// the updated PAT/PMT goes out ahead of the next sample
	w.programWritten = false
	w.hasPCR = false

	w.video = track{
		pid:        PIDVideo,
		streamID:   StreamIDVideo,
		streamType: streamType,
		configured: true,
	}
	w.videoPS = ps
	w.pcrPID = PIDVideo
}

// WriteAudioConfig - (re)register the AAC elementary stream
func (w *Writer) WriteAudioConfig(codec *core.Codec) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.audio.configured || w.programWritten {
		w.pmtVersion++ // table changed
	}
	w.programWritten = false
	if w.pcrPID == PIDAudio {
		w.hasPCR = false
	}

	w.audio = track{
		pid:        PIDAudio,
		streamID:   StreamIDAudio,
		streamType: StreamTypeAAC,
		configured: true,
	}
	w.audioCodec = codec

	if !w.video.configured {
		w.pcrPID = PIDAudio
	}
}

// WriteVideo - mux one AVCC access unit; frames before both expected
// medias are configured are dropped (live stream policy)
func (w *Writer) WriteVideo(pts, dts time.Duration, au []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.ready(&w.video) {
		return nil
	}

	keyframe := w.videoKeyframe(au)

	if err := w.rotateIf(&w.video, keyframe, dts); err != nil {
		return err
	}

	if err := w.writeProgramIf(); err != nil {
		return err
	}

	if !w.video.hasAnchor {
		w.video.anchor = dts
		w.video.hasAnchor = true
	}

	if keyframe && len(w.videoPS) > 0 {
		au = h264.Join(w.videoPS, au)
	}

	var payload []byte
	if w.video.streamType == StreamTypeH264 {
		payload = annexb.DecodeAVCCWithAUD(au)
	} else {
		payload = annexb.DecodeAVCC(au, true)
	}

	pes := &PES{
		StreamID:     StreamIDVideo,
		PTS:          ToTime(pts - w.video.anchor),
		RandomAccess: keyframe,
		Payload:      payload,
	}
	if dts != pts {
		pes.HasDTS = true
		pes.DTS = ToTime(dts - w.video.anchor)
	}

	w.schedulePCR(pes, &w.video, dts)

	wr := bits.NewWriter(nil)
	pes.PackTo(wr, w.video.pid, &w.video.counter)

	// video goes through the two-slot lookahead: flush the oldest
	// block, shift, store the new block unsent
	err := w.emit(w.pendingLeft())
	w.pending = w.newest
	w.pendingOff = 0
	w.newest = wr.Bytes()

	return err
}

// WriteAudio - mux one AAC frame (raw or ADTS); when a video block
// is pending, its bytes backfill the audio chunk remainder so the
// sink keeps seeing full PayloadSize chunks
func (w *Writer) WriteAudio(pts time.Duration, frame []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.ready(&w.audio) {
		return nil
	}

	// without video every AAC frame is a segment boundary candidate
	if !w.video.configured {
		if err := w.rotateIf(&w.audio, true, pts); err != nil {
			return err
		}
	}

	if err := w.writeProgramIf(); err != nil {
		return err
	}

	if !w.audio.hasAnchor {
		w.audio.anchor = pts
		w.audio.hasAnchor = true
	}

	if w.audioCodec != nil {
		frame = aac.Wrap(w.audioCodec, frame)
	}

	pes := &PES{
		StreamID:     StreamIDAudio,
		PTS:          ToTime(pts - w.audio.anchor),
		RandomAccess: true, // every AAC frame is a sync sample
		Payload:      frame,
	}

	w.schedulePCR(pes, &w.audio, pts)

	wr := bits.NewWriter(nil)
	pes.PackTo(wr, w.audio.pid, &w.audio.counter)

	if err := w.emit(wr.Bytes()); err != nil {
		return err
	}

	// backfill the partial chunk from the pending video block
	for len(w.out) > 0 {
		left := w.pendingLeft()
		if len(left) == 0 {
			break
		}

		n := w.payloadSize - len(w.out)
		if n > len(left) {
			n = len(left)
		}

		if err := w.emit(left[:n]); err != nil {
			return err
		}
		w.pendingOff += n
	}

	if w.pending != nil && w.pendingOff == len(w.pending) {
		w.pending = nil
		w.pendingOff = 0
	}

	return nil
}

// reset - back to the default single program state
func (w *Writer) reset() {
	w.video = track{}
	w.audio = track{}
	w.videoPS = nil
	w.audioCodec = nil
	w.patCounter = 0
	w.pmtCounter = 0
	w.pmtVersion = 0
	w.pcrPID = PIDVideo
	w.hasPCR = false
	w.programWritten = false
	w.hasRotate = false
	w.pending = nil
	w.pendingOff = 0
	w.newest = nil
	w.out = nil
}

func (w *Writer) ready(t *track) bool {
	if !w.running {
		w.log.Debug().Msg("[mpegts] drop sample: writer stopped")
		return false
	}
	if !t.configured || !w.canWrite() {
		w.log.Debug().Msg("[mpegts] drop sample: missing config")
		return false
	}
	return true
}

// canWrite - every expected media kind has a configuration
func (w *Writer) canWrite() bool {
	for _, kind := range w.expected {
		switch kind {
		case core.KindVideo:
			if !w.video.configured {
				return false
			}
		case core.KindAudio:
			if !w.audio.configured {
				return false
			}
		}
	}
	return true
}

func (w *Writer) videoKeyframe(au []byte) bool {
	if len(au) < 5 {
		return false
	}
	if w.video.streamType == StreamTypeH265 {
		return h265.IsKeyframe(au)
	}
	return h264.IsKeyframe(au)
}

// schedulePCR - attach a clock reference to the first packet of the
// PES when this track drives the clock and the interval elapsed
func (w *Writer) schedulePCR(pes *PES, t *track, ts time.Duration) {
	if t.pid != w.pcrPID {
		return
	}

	elapsed := ts - t.anchor
	if w.hasPCR && elapsed-w.pcrTime < PCRInterval {
		return
	}

	pes.HasPCR = true
	pes.PCR = ToPCR(elapsed)
	w.pcrTime = elapsed
	w.hasPCR = true
}

// writeProgramIf - PAT+PMT once both expected media configurations
// are known, ahead of the first media packet
func (w *Writer) writeProgramIf() error {
	if w.programWritten {
		return nil
	}
	w.programWritten = true
	return w.writeProgram()
}

func (w *Writer) writeProgram() error {
	pat := &PAT{
		TransportStreamID: ProgramNumber,
		ProgramNumber:     ProgramNumber,
		PMTPID:            PIDPMT,
	}

	pmt := &PMT{
		ProgramNumber: ProgramNumber,
		Version:       w.pmtVersion,
		PCRPID:        w.pcrPID,
	}
	if w.video.configured {
		pmt.Streams = append(pmt.Streams, ElementaryStream{w.video.streamType, w.video.pid})
	}
	if w.audio.configured {
		pmt.Streams = append(pmt.Streams, ElementaryStream{w.audio.streamType, w.audio.pid})
	}

	wr := bits.NewWriter(nil)
	PackSection(wr, PIDPAT, &w.patCounter, pat.Marshal())
	PackSection(wr, PIDPMT, &w.pmtCounter, pmt.Marshal())

	return w.emit(wr.Bytes())
}

// rotateIf - close the current segment on a sync point of the
// driving track once the segment duration elapsed: flush everything
// buffered, signal the sink, reset the elementary stream counters,
// rewrite the program
func (w *Writer) rotateIf(t *track, keyframe bool, ts time.Duration) error {
	rs, ok := w.sink.(RotateSink)
	if !ok || !keyframe {
		return nil
	}

	if !w.hasRotate {
		w.rotateTime = ts
		w.hasRotate = true
		return nil
	}

	if ts-w.rotateTime < w.segmentDuration {
		return nil
	}

	if err := w.flush(); err != nil {
		return err
	}

	if err := rs.Rotate(ts - t.anchor); err != nil {
		return err
	}

	w.rotateTime = ts
	w.video.counter = 0
	w.audio.counter = 0

	return w.writeProgram()
}

func (w *Writer) pendingLeft() []byte {
	if w.pending == nil {
		return nil
	}
	return w.pending[w.pendingOff:]
}

// flush - push lookahead blocks and the chunk remainder to the sink
func (w *Writer) flush() error {
	if err := w.emit(w.pendingLeft()); err != nil {
		return err
	}
	w.pending = nil
	w.pendingOff = 0

	if err := w.emit(w.newest); err != nil {
		return err
	}
	w.newest = nil

	if len(w.out) > 0 {
		err := w.sink.WriteChunk(w.out)
		w.out = nil
		return err
	}

	return nil
}

// emit - append bytes to the output, handing off every complete
// PayloadSize chunk to the sink
func (w *Writer) emit(b []byte) error {
	if len(b) == 0 {
		return nil
	}

	w.out = append(w.out, b...)

	for len(w.out) >= w.payloadSize {
		if err := w.sink.WriteChunk(w.out[:w.payloadSize]); err != nil {
			return err
		}
		w.out = w.out[w.payloadSize:]
	}

	return nil
}
