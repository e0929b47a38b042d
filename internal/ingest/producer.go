package ingest

import (
	"context"
	"time"

	"github.com/tscast/tscast/pkg/core"
	"github.com/tscast/tscast/pkg/mpegts"
)

// Producer - merges file sources into one timestamp ordered feed
// for the muxer, the capture side stand-in
type Producer struct {
	Video *VideoSource
	Audio *AudioSource
}

// Medias - kinds this producer will deliver
func (p *Producer) Medias() []string {
	var medias []string
	if p.Video != nil {
		medias = append(medias, core.KindVideo)
	}
	if p.Audio != nil {
		medias = append(medias, core.KindAudio)
	}
	return medias
}

// Produce - configure the muxer and feed it every frame in timestamp
// order; realtime paces frames on the wall clock
func (p *Producer) Produce(ctx context.Context, w *mpegts.Writer, realtime bool) error {
	if p.Video != nil {
		w.WriteVideoConfig(p.Video.StreamType(), p.Video.Config())
	}
	if p.Audio != nil {
		w.WriteAudioConfig(p.Audio.Codec())
	}

	var videoTS, audioTS time.Duration
	var videoAU, audioFrame []byte
	var hasVideo, hasAudio bool

	if p.Video != nil {
		videoTS, videoAU, hasVideo = p.Video.Next()
	}
	if p.Audio != nil {
		audioTS, audioFrame, hasAudio = p.Audio.Next()
	}

	start := time.Now()

	for hasVideo || hasAudio {
		video := hasVideo && (!hasAudio || videoTS <= audioTS)

		ts := audioTS
		if video {
			ts = videoTS
		}

		if realtime {
			if err := sleep(ctx, start.Add(ts)); err != nil {
				return err
			}
		} else if ctx.Err() != nil {
			return ctx.Err()
		}

		if video {
			if err := w.WriteVideo(videoTS, videoTS, videoAU); err != nil {
				return err
			}
			videoTS, videoAU, hasVideo = p.Video.Next()
		} else {
			if err := w.WriteAudio(audioTS, audioFrame); err != nil {
				return err
			}
			audioTS, audioFrame, hasAudio = p.Audio.Next()
		}
	}

	return nil
}

func sleep(ctx context.Context, deadline time.Time) error {
	d := time.Until(deadline)
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
