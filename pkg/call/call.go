// Package call orchestrates one live call: caller audio in, transcription,
// reply generation, and paced synthesized audio back out.
package call

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vango-go/callbridge/pkg/agent"
	"github.com/vango-go/callbridge/pkg/core"
	"github.com/vango-go/callbridge/pkg/metrics"
	"github.com/vango-go/callbridge/pkg/session"
	"github.com/vango-go/callbridge/pkg/telephony/protocol"
	"github.com/vango-go/callbridge/pkg/voice/stt"
	"github.com/vango-go/callbridge/pkg/voice/tts"
)

// CheckpointAllAudioPlayed is echoed back by the carrier once every frame
// of a reply has actually played on the call.
const CheckpointAllAudioPlayed = "all_audio_played"

// Leg is the telephony surface the orchestrator drives. Satisfied by
// *telephony.Leg; tests substitute fakes.
type Leg interface {
	Events() <-chan any
	StreamID() string
	Err() error
	SendMedia(audio []byte, contentType string, sampleRate int) error
	SendCheckpoint(name string) error
	SendClearAudio() error
	Close() error
}

// Config fixes the audio shape and collaborator models for all calls.
type Config struct {
	ContentType     string
	SampleRate      int
	STTModel        string
	VoiceID         string
	TTSModelID      string
	TTSOutputFormat string
}

// Dependencies are the collaborators an Orchestrator needs.
type Dependencies struct {
	Logger    *slog.Logger
	Store     *session.Store
	STT       stt.Provider
	TTS       tts.Provider
	Responder agent.Responder
	Metrics   *metrics.Metrics
}

// Orchestrator runs the duplex pipeline for call streams.
type Orchestrator struct {
	cfg       Config
	logger    *slog.Logger
	store     *session.Store
	stt       stt.Provider
	tts       tts.Provider
	responder agent.Responder
	metrics   *metrics.Metrics

	// pacing hook, replaced in tests
	sleep func(ctx context.Context, d time.Duration) error
}

func NewOrchestrator(cfg Config, deps Dependencies) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.New("")
	}
	return &Orchestrator{
		cfg:       cfg,
		logger:    logger,
		store:     deps.Store,
		stt:       deps.STT,
		tts:       deps.TTS,
		responder: deps.Responder,
		metrics:   m,
		sleep:     sleepFor,
	}
}

// callState is the per-call mutable wiring shared between the telephony
// loop and the transcription loop.
type callState struct {
	mu   sync.Mutex
	sess *session.Session
	stt  stt.Connection
}

func (s *callState) session() *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess
}

func (s *callState) setSession(sess *session.Session) {
	s.mu.Lock()
	s.sess = sess
	s.mu.Unlock()
}

func (s *callState) transcription() stt.Connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stt
}

func (s *callState) setTranscription(conn stt.Connection) {
	s.mu.Lock()
	s.stt = conn
	s.mu.Unlock()
}

// Run drives one call stream until the telephony leg disconnects or ctx
// is canceled. The transcription loop and the telephony loop run
// concurrently and are joined before return.
func (o *Orchestrator) Run(ctx context.Context, leg Leg) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	started := time.Now()
	o.metrics.RecordCallStart()
	status := "ok"
	defer func() {
		o.metrics.RecordCallEnd(status, time.Since(started))
	}()

	state := &callState{}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := o.runTranscription(ctx, leg, state); err != nil && ctx.Err() == nil {
			o.logger.Error("transcription loop failed", "error", err)
			o.metrics.RecordCollaboratorError("stt")
		}
	}()

	err := o.runTelephony(ctx, leg, state)
	cancel()
	wg.Wait()

	if sess := state.session(); sess != nil {
		o.store.Remove(sess.StreamID)
		o.logger.Info("session removed", "stream_id", sess.StreamID)
	}
	if conn := state.transcription(); conn != nil {
		_ = conn.Close()
	}

	if err != nil {
		status = "error"
		return err
	}
	return nil
}

// runTelephony consumes inbound events until the leg disconnects.
func (o *Orchestrator) runTelephony(ctx context.Context, leg Leg, state *callState) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-leg.Events():
			if !ok {
				o.logger.Info("telephony leg disconnected", "stream_id", leg.StreamID())
				if err := leg.Err(); err != nil {
					return core.NewFatalSession(leg.StreamID(), "telephony read failed", err)
				}
				return nil
			}
			o.dispatchEvent(leg, state, ev)
		}
	}
}

func (o *Orchestrator) dispatchEvent(leg Leg, state *callState, ev any) {
	switch e := ev.(type) {
	case protocol.StartEvent:
		sess := o.store.Create(e.Start.StreamID, e.Start.CallID, e.Start.AccountID)
		state.setSession(sess)
		o.logger.Info("stream started",
			"stream_id", e.Start.StreamID,
			"call_id", e.Start.CallID,
			"account_id", e.Start.AccountID)
	case protocol.MediaEvent:
		o.relayMedia(leg, state, e)
	case protocol.DtmfEvent:
		o.logger.Info("dtmf received", "stream_id", leg.StreamID(), "digit", e.Dtmf.Digit)
	case protocol.PlayedStreamEvent:
		if sess := state.session(); sess != nil {
			sess.SetPlaybackActive(false)
		}
		o.logger.Info("playback finished", "stream_id", leg.StreamID(), "name", e.Name)
	case protocol.ClearedAudioEvent:
		o.logger.Info("audio buffer cleared", "stream_id", e.StreamID)
	default:
		o.logger.Warn("unhandled telephony event", "type", typeName(ev))
	}
}

// relayMedia forwards one caller audio frame to transcription. Frames that
// arrive before the transcription connection is up are dropped; the first
// frames of a call can race connection setup.
func (o *Orchestrator) relayMedia(leg Leg, state *callState, e protocol.MediaEvent) {
	conn := state.transcription()
	if conn == nil {
		o.logger.Warn("no transcription connection, dropping frame", "stream_id", leg.StreamID())
		o.metrics.DroppedFramesTotal.Inc()
		return
	}

	raw, err := e.RawMedia()
	if err != nil {
		o.logger.Warn("undecodable media frame", "stream_id", leg.StreamID(), "error", err)
		return
	}
	if err := conn.SendMedia(raw); err != nil {
		o.logger.Warn("media relay failed", "stream_id", leg.StreamID(), "error", err)
		o.metrics.RecordCollaboratorError("stt")
		return
	}
	o.metrics.IngressFramesTotal.Inc()
}

// runTranscription connects to the transcription service and handles its
// turn events until the connection or the call ends.
func (o *Orchestrator) runTranscription(ctx context.Context, leg Leg, state *callState) error {
	conn, err := o.stt.Connect(ctx, stt.Config{
		Model:      o.cfg.STTModel,
		Encoding:   "linear16",
		SampleRate: o.cfg.SampleRate,
	})
	if err != nil {
		return core.NewTransient("transcription connect failed", err)
	}
	state.setTranscription(conn)
	defer conn.Close()

	o.logger.Debug("transcription connected", "provider", o.stt.Name())

	detector := &turnDetector{}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-conn.Events():
			if !ok {
				if err := conn.Err(); err != nil {
					return core.NewTransient("transcription stream failed", err)
				}
				return nil
			}
			if endOfTurn, transcript := detector.observe(o.logger, ev); endOfTurn {
				o.handleTurn(ctx, leg, state, transcript)
			}
		}
	}
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	switch v.(type) {
	case protocol.StartEvent:
		return "start"
	case protocol.MediaEvent:
		return "media"
	case protocol.DtmfEvent:
		return "dtmf"
	case protocol.PlayedStreamEvent:
		return "playedStream"
	case protocol.ClearedAudioEvent:
		return "clearedAudio"
	default:
		return "unknown"
	}
}
