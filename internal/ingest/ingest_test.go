package ingest

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tscast/tscast/pkg/core"
	"github.com/tscast/tscast/pkg/h264"
	"github.com/tscast/tscast/pkg/mpegts"
)

type collectSink struct {
	n int
}

func (s *collectSink) WriteChunk(b []byte) error {
	s.n += len(b)
	return nil
}

func writeFile(t *testing.T, name, data string) string {
	b, err := hex.DecodeString(data)
	require.Nil(t, err)

	path := filepath.Join(t.TempDir(), name)
	require.Nil(t, os.WriteFile(path, b, 0644))
	return path
}

// SPS PPS IDR, then one P frame
const annexbDump = "00000001" + "6742c01ed90589c8" +
	"00000001" + "68ce06e2" +
	"00000001" + "65888400203f" +
	"00000001" + "419a778899aa"

// two ADTS frames, AAC-LC 44.1kHz stereo
const adtsDump = "fff15080012120" + "2112" + "fff15080012120" + "3445"

func TestOpenVideo(t *testing.T) {
	src, err := OpenVideo(writeFile(t, "capture.h264", annexbDump), 30)
	require.Nil(t, err)

	require.NotNil(t, src.Config())
	_, sps, pps := h264.DecodeConfig(src.Config())
	assert.Len(t, sps, 8)
	assert.Len(t, pps, 4)

	ts, au, ok := src.Next()
	require.True(t, ok)
	assert.Equal(t, time.Duration(0), ts)
	assert.True(t, h264.IsKeyframe(au))

	ts, au, ok = src.Next()
	require.True(t, ok)
	assert.Equal(t, time.Second/30, ts)
	assert.False(t, h264.IsKeyframe(au))

	_, _, ok = src.Next()
	assert.False(t, ok)
}

func TestOpenAudio(t *testing.T) {
	src, err := OpenAudio(writeFile(t, "capture.aac", adtsDump))
	require.Nil(t, err)

	codec := src.Codec()
	require.NotNil(t, codec)
	assert.Equal(t, core.CodecAAC, codec.Name)
	assert.Equal(t, uint32(44100), codec.ClockRate)

	ts, frame, ok := src.Next()
	require.True(t, ok)
	assert.Equal(t, time.Duration(0), ts)
	assert.Len(t, frame, 9)

	ts, _, ok = src.Next()
	require.True(t, ok)
	assert.Equal(t, 1024*time.Second/44100, ts)

	_, _, ok = src.Next()
	assert.False(t, ok)
}

func TestOpenAudioBadRate(t *testing.T) {
	// sampling frequency index 13 is reserved
	path := writeFile(t, "capture.aac", "fff17480012120"+"2112")

	_, err := OpenAudio(path)
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "sample rate")
}

func TestProduce(t *testing.T) {
	prod := &Producer{}

	var err error
	prod.Video, err = OpenVideo(writeFile(t, "capture.h264", annexbDump), 30)
	require.Nil(t, err)
	prod.Audio, err = OpenAudio(writeFile(t, "capture.aac", adtsDump))
	require.Nil(t, err)

	assert.Equal(t, []string{core.KindVideo, core.KindAudio}, prod.Medias())

	sink := &collectSink{}
	w := mpegts.NewWriter(mpegts.Config{ExpectedMedias: prod.Medias()}, sink)
	w.Start()

	require.Nil(t, prod.Produce(context.Background(), w, false))
	require.Nil(t, w.Stop())

	assert.True(t, sink.n > 0)
	assert.Equal(t, 0, sink.n%mpegts.PacketSize)
}
