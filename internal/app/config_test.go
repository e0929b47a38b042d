package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseConfString(t *testing.T) {
	assert.Equal(t, "{log: {level: trace}}", string(parseConfString("log.level=trace")))
	assert.Equal(t, "{record: {segment: 2s}}", string(parseConfString("record.segment=2s")))

	assert.Nil(t, parseConfString("no pairs here"))
	assert.Nil(t, parseConfString("single=value"))
}

func TestDuration(t *testing.T) {
	var cfg struct {
		Segment Duration `yaml:"segment"`
		Latency Duration `yaml:"latency"`
	}

	err := yaml.Unmarshal([]byte("segment: 2s\nlatency: 120ms"), &cfg)
	require.Nil(t, err)

	assert.Equal(t, 2*time.Second, time.Duration(cfg.Segment))
	assert.Equal(t, 120*time.Millisecond, time.Duration(cfg.Latency))

	err = yaml.Unmarshal([]byte("segment: nonsense"), &cfg)
	assert.NotNil(t, err)
}

func TestLoadConfig(t *testing.T) {
	configs = [][]byte{
		[]byte("record: {video: a.h264}"),
		[]byte("record: {audio: b.aac}"),
	}
	defer func() { configs = nil }()

	var cfg struct {
		Mod struct {
			Video string `yaml:"video"`
			Audio string `yaml:"audio"`
		} `yaml:"record"`
	}

	LoadConfig(&cfg)

	// later configs merge over earlier ones
	assert.Equal(t, "a.h264", cfg.Mod.Video)
	assert.Equal(t, "b.aac", cfg.Mod.Audio)
}
