package push

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tscast/tscast/internal/app"
	"github.com/tscast/tscast/internal/ingest"
	"github.com/tscast/tscast/pkg/mpegts"
	"github.com/tscast/tscast/pkg/srt"
)

type config struct {
	Address  string       `yaml:"address"`
	StreamID string       `yaml:"streamid"`
	Latency  app.Duration `yaml:"latency"`
	Video    string       `yaml:"video"`
	Audio    string       `yaml:"audio"`
	FPS      float64      `yaml:"fps"`
}

func Init() {
	var cfg struct {
		Mod config `yaml:"push"`
	}

	app.LoadConfig(&cfg)

	if cfg.Mod.Address == "" {
		return
	}

	log = app.GetLogger("push")

	mod := cfg.Mod
	go func() {
		if err := run(context.Background(), mod); err != nil {
			log.Error().Err(err).Msg("[push] failed")
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

	sink, err := srt.Dial(cfg.Address, cfg.StreamID, time.Duration(cfg.Latency))
	if err != nil {
		return err
	}
	defer sink.Close()

	log.Info().Str("address", cfg.Address).Msg("[push] connected")

	w := mpegts.NewWriter(mpegts.Config{
		ExpectedMedias: prod.Medias(),
		Logger:         &log,
	}, sink)

	w.Start()

	// live pacing keeps the SRT receive buffer from overrunning
	if err = prod.Produce(ctx, w, true); err != nil {
		_ = w.Stop()
		return err
	}

	return w.Stop()
}
