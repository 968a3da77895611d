package call

import (
	"context"
	"time"

	"github.com/vango-go/callbridge/pkg/core"
	"github.com/vango-go/callbridge/pkg/session"
	"github.com/vango-go/callbridge/pkg/voice/tts"
)

// preparePlayback makes room for a new reply. If an earlier reply is still
// playing, the carrier's buffer is flushed first so the caller hears the
// new reply immediately instead of stale audio.
func (o *Orchestrator) preparePlayback(leg Leg, sess *session.Session) {
	if !sess.PlaybackActive() {
		return
	}
	if err := leg.SendClearAudio(); err != nil {
		o.logger.Warn("clear audio failed", "stream_id", sess.StreamID, "error", err)
	}
	sess.SetPlaybackActive(false)
	o.metrics.BargeInsTotal.Inc()
	o.logger.Info("interrupted playback for new reply", "stream_id", sess.StreamID)
}

// streamReply synthesizes the reply and paces its chunks to the telephony
// leg at real-time rate, then emits the completion checkpoint. A synthesis
// failure mid-stream stops emission with no checkpoint; the playback flag
// is left for a later playedStream or clearedAudio event to reconcile.
func (o *Orchestrator) streamReply(ctx context.Context, leg Leg, sess *session.Session, text string) error {
	stream, err := o.tts.SynthesizeStream(ctx, tts.Request{
		Text:         text,
		VoiceID:      o.cfg.VoiceID,
		ModelID:      o.cfg.TTSModelID,
		OutputFormat: o.cfg.TTSOutputFormat,
	})
	if err != nil {
		return core.NewTransient("synthesis start failed", err)
	}
	defer stream.Close()

	first := true
	for chunk := range stream.Chunks() {
		if first {
			sess.SetPlaybackActive(true)
			first = false
		}
		if err := leg.SendMedia(chunk, o.cfg.ContentType, o.cfg.SampleRate); err != nil {
			return core.NewTransient("media send failed", err)
		}
		o.metrics.RecordEgress(len(chunk))

		// Suspend for the chunk's playback duration so the carrier's
		// buffer never overruns.
		if err := o.sleep(ctx, chunkDuration(len(chunk), o.cfg.SampleRate)); err != nil {
			return err
		}
	}
	if err := stream.Err(); err != nil {
		return core.NewTransient("synthesis failed mid-stream", err)
	}

	if err := leg.SendCheckpoint(CheckpointAllAudioPlayed); err != nil {
		return core.NewTransient("checkpoint send failed", err)
	}
	o.metrics.CheckpointsTotal.Inc()
	return nil
}

// chunkDuration is the real-time playback length of a chunk of 16-bit
// mono PCM at the given sample rate.
func chunkDuration(n, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(2*sampleRate)
}

func sleepFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
