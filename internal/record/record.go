package record

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/tscast/tscast/internal/app"
	"github.com/tscast/tscast/internal/ingest"
	"github.com/tscast/tscast/pkg/hls"
	"github.com/tscast/tscast/pkg/mpegts"
)

type config struct {
	Video    string       `yaml:"video"`
	Audio    string       `yaml:"audio"`
	FPS      float64      `yaml:"fps"`
	Dir      string       `yaml:"dir"`
	Segment  app.Duration `yaml:"segment"`
	Playlist string       `yaml:"playlist"`
	Realtime bool         `yaml:"realtime"`
}

func Init() {
	var cfg struct {
		Mod config `yaml:"record"`
	}

	cfg.Mod.Dir = "segments"
	cfg.Mod.Playlist = "live.m3u8"

	app.LoadConfig(&cfg)

	if cfg.Mod.Video == "" && cfg.Mod.Audio == "" {
		return
	}

	log = app.GetLogger("record")

	mod := cfg.Mod
	go func() {
		if err := run(context.Background(), mod); err != nil {
			log.Error().Err(err).Msg("[record] failed")
		}
	}()
}

var log zerolog.Logger

func run(ctx context.Context, cfg config) error {
	prod := &ingest.Producer{}

	var err error
	if cfg.Video != "" {
		if prod.Video, err = ingest.OpenVideo(cfg.Video, cfg.FPS); err != nil {
			return err
		}
	}
	if cfg.Audio != "" {
		if prod.Audio, err = ingest.OpenAudio(cfg.Audio); err != nil {
			return err
		}
	}

	seg, err := hls.NewSegmenter(hls.Config{
		Dir:            cfg.Dir,
		TargetDuration: time.Duration(cfg.Segment),
		Logger:         &log,
	})
	if err != nil {
		return err
	}
	defer seg.Close()

	sink := &playlistSink{seg, filepath.Join(cfg.Dir, cfg.Playlist)}

	w := mpegts.NewWriter(mpegts.Config{
		SegmentDuration: time.Duration(cfg.Segment),
		ExpectedMedias:  prod.Medias(),
		Logger:          &log,
	}, sink)

	w.Start()

	log.Info().Str("dir", cfg.Dir).Msg("[record] start")

	if err = prod.Produce(ctx, w, cfg.Realtime); err != nil {
		_ = w.Stop()
		return err
	}

	if err = w.Stop(); err != nil {
		return err
	}

	log.Info().Int("segments", len(seg.Segments())).Msg("[record] done")
	return nil
}

// playlistSink - rewrite the playlist file after every finished
// segment so players can follow the recording live
type playlistSink struct {
	*hls.Segmenter
	path string
}

func (s *playlistSink) Rotate(ts time.Duration) error {
	if err := s.Segmenter.Rotate(ts); err != nil {
		return err
	}
	return os.WriteFile(s.path, []byte(s.Playlist()), 0644)
}
