// Package server wires the HTTP surface of the bridge: the answer
// document for incoming calls, carrier callbacks, the media websocket,
// health, and metrics.
package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vango-go/callbridge/pkg/call"
	"github.com/vango-go/callbridge/pkg/gateway/config"
	"github.com/vango-go/callbridge/pkg/gateway/mw"
	"github.com/vango-go/callbridge/pkg/metrics"
	"github.com/vango-go/callbridge/pkg/session"
	"github.com/vango-go/callbridge/pkg/telephony"
)

// Dependencies are the collaborators the server hands each call.
type Dependencies struct {
	Logger       *slog.Logger
	Orchestrator *call.Orchestrator
	Tracker      *session.Tracker
	Metrics      *metrics.Metrics
}

type Server struct {
	cfg      config.Config
	logger   *slog.Logger
	orch     *call.Orchestrator
	tracker  *session.Tracker
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader
	mux      *http.ServeMux
}

func New(cfg config.Config, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		orch:    deps.Orchestrator,
		tracker: deps.Tracker,
		metrics: deps.Metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 << 10,
			WriteBufferSize: 16 << 10,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		mux: http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("POST /answer", s.handleAnswer)
	s.mux.HandleFunc("POST /recording", s.handleRecording)
	s.mux.HandleFunc("POST /hangup", s.handleHangup)
	s.mux.HandleFunc("/ws", s.handleWS)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
}

// Handler returns the full middleware chain.
func (s *Server) Handler() http.Handler {
	return mw.RequestID(mw.Recover(s.logger, mw.AccessLog(s.logger, s.mux)))
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"active_calls": s.tracker.Count(),
	})
}

// handleAnswer returns the XML that tells the carrier how to connect the
// call: optional recording, then the bidirectional media stream.
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	host := r.Host

	wsURL := resolveURL(s.cfg.WebSocketURL, host, "ws", "wss", "/ws")
	recordingURL := ""
	if s.cfg.EnableRecording {
		recordingURL = resolveURL(s.cfg.RecordingCallbackURL, host, "http", "https", "/recording")
	}

	doc := telephony.NewAnswerDocument(
		wsURL,
		s.cfg.AudioContentType,
		s.cfg.AudioSampleRate,
		s.cfg.EnableRecording,
		recordingURL,
	)
	body, err := doc.Render()
	if err != nil {
		s.logger.Error("answer document render failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// resolveURL maps the configured mode to a concrete URL. "auto" derives
// from the request host with the plain scheme, "auto"+secure variants use
// the secure scheme, anything else is taken verbatim.
func resolveURL(mode, host, scheme, secureScheme, path string) string {
	switch mode {
	case "", config.URLModeAuto:
		return scheme + "://" + host + path
	case config.URLModeAutoWSS, config.URLModeAutoTLS:
		return secureScheme + "://" + host + path
	default:
		return mode
	}
}

func (s *Server) handleRecording(w http.ResponseWriter, r *http.Request) {
	s.logCallback(r, "recording callback received")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHangup(w http.ResponseWriter, r *http.Request) {
	s.logCallback(r, "hangup callback received")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) logCallback(r *http.Request, msg string) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	if err != nil {
		s.logger.Error("callback body read failed", "error", err)
		return
	}
	reqID, _ := mw.RequestIDFrom(r.Context())
	s.logger.Info(msg, "request_id", reqID, "body", string(body))
}

// handleWS upgrades the carrier's media connection and runs the call
// pipeline until it ends.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	// The call must outlive the request context: shutdown reaches it
	// through the tracker's cancel, not through the HTTP server.
	connID := "conn_" + uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	unregister := s.tracker.Register(connID, cancel)
	defer unregister()

	s.logger.Info("call connection opened", "conn_id", connID)

	leg := telephony.NewLeg(conn, s.logger)
	go leg.Run()

	if err := s.orch.Run(ctx, leg); err != nil {
		s.logger.Error("call ended with error", "conn_id", connID, "error", err)
	} else {
		s.logger.Info("call ended", "conn_id", connID)
	}
	_ = leg.Close()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
