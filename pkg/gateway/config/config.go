// Package config loads gateway configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Modes for the websocket and recording-callback URLs handed to the
// carrier in the answer document. "auto" derives the URL from the
// request Host; "auto+wss"/"auto+https" do the same with the secure
// scheme; anything else is used verbatim.
const (
	URLModeAuto    = "auto"
	URLModeAutoWSS = "auto+wss"
	URLModeAutoTLS = "auto+https"
)

type Config struct {
	Addr string

	// Collaborator credentials.
	OpenAIAPIKey     string
	DeepgramAPIKey   string
	ElevenLabsAPIKey string

	// Audio shape negotiated with the carrier at call setup.
	AudioSampleRate  int
	AudioContentType string

	// Collaborator models.
	OpenAIModel       string
	DeepgramModel     string
	ElevenLabsVoiceID string
	ElevenLabsModelID string

	SystemPrompt string

	// Answer document controls.
	WebSocketURL         string
	RecordingCallbackURL string
	EnableRecording      bool

	// Operational defaults.
	ReadHeaderTimeout   time.Duration
	ShutdownGracePeriod time.Duration
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                 envOr("CALLBRIDGE_ADDR", ":8000"),
		OpenAIAPIKey:         strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		DeepgramAPIKey:       strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")),
		ElevenLabsAPIKey:     strings.TrimSpace(os.Getenv("ELEVENLABS_API_KEY")),
		AudioSampleRate:      envIntOr("AUDIO_SAMPLE_RATE", 16000),
		AudioContentType:     envOr("AUDIO_CONTENT_TYPE", "audio/x-l16"),
		OpenAIModel:          envOr("OPENAI_MODEL", "gpt-4o-mini"),
		DeepgramModel:        envOr("DEEPGRAM_MODEL", "flux-general-en"),
		ElevenLabsVoiceID:    strings.TrimSpace(os.Getenv("ELEVENLABS_VOICE_ID")),
		ElevenLabsModelID:    envOr("ELEVENLABS_MODEL_ID", "eleven_flash_v2_5"),
		SystemPrompt:         strings.TrimSpace(os.Getenv("SYSTEM_PROMPT")),
		WebSocketURL:         envOr("WEBSOCKET_URL", URLModeAuto),
		RecordingCallbackURL: envOr("RECORDING_CALLBACK_URL", URLModeAuto),
		EnableRecording:      envBoolOr("ENABLE_RECORDING", true),
		ReadHeaderTimeout:    envDurationOr("CALLBRIDGE_READ_HEADER_TIMEOUT", 10*time.Second),
		ShutdownGracePeriod:  envDurationOr("CALLBRIDGE_SHUTDOWN_GRACE_PERIOD", 30*time.Second),
	}

	if cfg.OpenAIAPIKey == "" {
		return Config{}, fmt.Errorf("OPENAI_API_KEY must be set")
	}
	if cfg.DeepgramAPIKey == "" {
		return Config{}, fmt.Errorf("DEEPGRAM_API_KEY must be set")
	}
	if cfg.ElevenLabsAPIKey == "" {
		return Config{}, fmt.Errorf("ELEVENLABS_API_KEY must be set")
	}
	if cfg.ElevenLabsVoiceID == "" {
		return Config{}, fmt.Errorf("ELEVENLABS_VOICE_ID must be set")
	}
	if cfg.AudioSampleRate <= 0 {
		return Config{}, fmt.Errorf("AUDIO_SAMPLE_RATE must be > 0")
	}
	if strings.TrimSpace(cfg.AudioContentType) == "" {
		return Config{}, fmt.Errorf("AUDIO_CONTENT_TYPE must not be empty")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("CALLBRIDGE_READ_HEADER_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("CALLBRIDGE_SHUTDOWN_GRACE_PERIOD must be > 0")
	}

	return cfg, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envBoolOr(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	switch strings.ToLower(raw) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return def
	}
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}
