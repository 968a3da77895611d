package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("DEEPGRAM_API_KEY", "dg-test")
	t.Setenv("ELEVENLABS_API_KEY", "el-test")
	t.Setenv("ELEVENLABS_VOICE_ID", "voice_1")
}

func TestLoadFromEnvDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Addr != ":8000" {
		t.Fatalf("Addr=%q", cfg.Addr)
	}
	if cfg.AudioSampleRate != 16000 || cfg.AudioContentType != "audio/x-l16" {
		t.Fatalf("audio defaults: %+v", cfg)
	}
	if cfg.OpenAIModel != "gpt-4o-mini" || cfg.DeepgramModel != "flux-general-en" || cfg.ElevenLabsModelID != "eleven_flash_v2_5" {
		t.Fatalf("model defaults: %+v", cfg)
	}
	if cfg.WebSocketURL != URLModeAuto || cfg.RecordingCallbackURL != URLModeAuto {
		t.Fatalf("url modes: %+v", cfg)
	}
	if !cfg.EnableRecording {
		t.Fatalf("recording must default on")
	}
	if cfg.ShutdownGracePeriod != 30*time.Second {
		t.Fatalf("ShutdownGracePeriod=%v", cfg.ShutdownGracePeriod)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("CALLBRIDGE_ADDR", ":9999")
	t.Setenv("AUDIO_SAMPLE_RATE", "8000")
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("ENABLE_RECORDING", "false")
	t.Setenv("WEBSOCKET_URL", "wss://bridge.example.com/ws")
	t.Setenv("CALLBRIDGE_SHUTDOWN_GRACE_PERIOD", "5s")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.AudioSampleRate != 8000 || cfg.OpenAIModel != "gpt-4o" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.EnableRecording {
		t.Fatalf("ENABLE_RECORDING=false not applied")
	}
	if cfg.WebSocketURL != "wss://bridge.example.com/ws" {
		t.Fatalf("WebSocketURL=%q", cfg.WebSocketURL)
	}
	if cfg.ShutdownGracePeriod != 5*time.Second {
		t.Fatalf("ShutdownGracePeriod=%v", cfg.ShutdownGracePeriod)
	}
}

func TestLoadFromEnvMissingKeys(t *testing.T) {
	cases := []string{"OPENAI_API_KEY", "DEEPGRAM_API_KEY", "ELEVENLABS_API_KEY", "ELEVENLABS_VOICE_ID"}
	for _, missing := range cases {
		t.Run(missing, func(t *testing.T) {
			setRequired(t)
			t.Setenv(missing, "")
			if _, err := LoadFromEnv(); err == nil {
				t.Fatalf("expected error when %s is unset", missing)
			}
		})
	}
}

func TestLoadFromEnvBadSampleRate(t *testing.T) {
	setRequired(t)
	t.Setenv("AUDIO_SAMPLE_RATE", "-1")
	if _, err := LoadFromEnv(); err == nil {
		t.Fatalf("expected error for non-positive sample rate")
	}
}
