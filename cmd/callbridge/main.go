package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/vango-go/callbridge/pkg/agent"
	"github.com/vango-go/callbridge/pkg/call"
	"github.com/vango-go/callbridge/pkg/gateway/config"
	gatewayserver "github.com/vango-go/callbridge/pkg/gateway/server"
	"github.com/vango-go/callbridge/pkg/metrics"
	"github.com/vango-go/callbridge/pkg/session"
	"github.com/vango-go/callbridge/pkg/voice/stt"
	"github.com/vango-go/callbridge/pkg/voice/tts"
)

type bridgeDeps struct {
	loadConfig   func() (config.Config, error)
	signalNotify func(chan<- os.Signal, ...os.Signal)
	signalStop   func(chan<- os.Signal)
}

func defaultBridgeDeps() bridgeDeps {
	return bridgeDeps{
		loadConfig: config.LoadFromEnv,
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {
			signal.Notify(c, sig...)
		},
		signalStop: signal.Stop,
	}
}

func buildServer(cfg config.Config, logger *slog.Logger) (*gatewayserver.Server, *session.Tracker) {
	store := session.NewStore()
	tracker := session.NewTracker()
	m := metrics.New("callbridge")

	orch := call.NewOrchestrator(
		call.Config{
			ContentType:     cfg.AudioContentType,
			SampleRate:      cfg.AudioSampleRate,
			STTModel:        cfg.DeepgramModel,
			VoiceID:         cfg.ElevenLabsVoiceID,
			TTSModelID:      cfg.ElevenLabsModelID,
			TTSOutputFormat: fmt.Sprintf("pcm_%d", cfg.AudioSampleRate),
		},
		call.Dependencies{
			Logger: logger,
			Store:  store,
			STT:    stt.NewDeepgram(cfg.DeepgramAPIKey),
			TTS:    tts.NewElevenLabs(cfg.ElevenLabsAPIKey),
			Responder: agent.NewOpenAI(cfg.OpenAIAPIKey, agent.OpenAIOptions{
				Model:        cfg.OpenAIModel,
				SystemPrompt: cfg.SystemPrompt,
			}),
			Metrics: m,
		},
	)

	srv := gatewayserver.New(cfg, gatewayserver.Dependencies{
		Logger:       logger,
		Orchestrator: orch,
		Tracker:      tracker,
		Metrics:      m,
	})
	return srv, tracker
}

func buildHTTPServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func runBridge(ctx context.Context, logger *slog.Logger, deps bridgeDeps) error {
	if deps.loadConfig == nil {
		return errors.New("missing loadConfig dependency")
	}
	if deps.signalNotify == nil || deps.signalStop == nil {
		return errors.New("missing signal dependency")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := deps.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	srv, tracker := buildServer(cfg, logger)
	httpSrv := buildHTTPServer(cfg, srv.Handler())

	logger.Info("starting bridge", "addr", cfg.Addr, "sample_rate", cfg.AudioSampleRate)

	listenErrCh := make(chan error, 1)
	go func() {
		err := httpSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErrCh <- err
			return
		}
		listenErrCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	deps.signalNotify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer deps.signalStop(sigCh)

	select {
	case err := <-listenErrCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	// Live calls are not tied to the HTTP server's connections; give them
	// the grace period, then cancel what remains.
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer waitCancel()
	if !tracker.Wait(waitCtx) {
		n := tracker.CancelAll()
		logger.Warn("canceled lingering calls", "count", n)
		finalCtx, finalCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
		defer finalCancel()
		tracker.Wait(finalCtx)
	}

	if err := <-listenErrCh; err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	logger.Info("bridge stopped")
	return nil
}

func runMain(ctx context.Context, stderr io.Writer, deps bridgeDeps) int {
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(stderr, nil))

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(stderr, "callbridge: load .env: %v\n", err)
		return 1
	}

	if err := runBridge(ctx, logger, deps); err != nil {
		fmt.Fprintf(stderr, "callbridge: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(runMain(context.Background(), os.Stderr, defaultBridgeDeps()))
}
