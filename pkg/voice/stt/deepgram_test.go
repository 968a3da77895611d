package stt

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestBuildDeepgramWSURL(t *testing.T) {
	got, err := buildDeepgramWSURL(deepgramDefaultWSBase, Config{
		Model:      "flux-general-en",
		Encoding:   "linear16",
		SampleRate: 16000,
	})
	if err != nil {
		t.Fatalf("buildDeepgramWSURL: %v", err)
	}

	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if u.Scheme != "wss" || u.Host != "api.deepgram.com" || u.Path != "/v2/listen" {
		t.Fatalf("unexpected endpoint %q", got)
	}
	q := u.Query()
	if q.Get("model") != "flux-general-en" {
		t.Fatalf("model=%q", q.Get("model"))
	}
	if q.Get("encoding") != "linear16" {
		t.Fatalf("encoding=%q", q.Get("encoding"))
	}
	if q.Get("sample_rate") != "16000" {
		t.Fatalf("sample_rate=%q", q.Get("sample_rate"))
	}
}

func TestBuildDeepgramWSURLDefaults(t *testing.T) {
	got, err := buildDeepgramWSURL(deepgramDefaultWSBase, Config{})
	if err != nil {
		t.Fatalf("buildDeepgramWSURL: %v", err)
	}
	u, _ := url.Parse(got)
	q := u.Query()
	if q.Get("model") == "" || q.Get("encoding") == "" || q.Get("sample_rate") == "" {
		t.Fatalf("defaults missing in %q", got)
	}
}

func TestTurnEventPredicates(t *testing.T) {
	start := Event{Type: TypeTurnInfo, Event: EventStartOfTurn}
	if !start.IsStartOfTurn() || start.IsEndOfTurn() {
		t.Fatalf("start-of-turn predicates wrong: %+v", start)
	}

	end := Event{Type: TypeTurnInfo, Event: EventEndOfTurn, Transcript: "book a flight"}
	if !end.IsEndOfTurn() || end.IsStartOfTurn() {
		t.Fatalf("end-of-turn predicates wrong: %+v", end)
	}

	other := Event{Type: "ConnectionWarning"}
	if other.IsStartOfTurn() || other.IsEndOfTurn() {
		t.Fatalf("non-turn event must not match predicates: %+v", other)
	}
}

func TestConnectMissingKey(t *testing.T) {
	p := NewDeepgram("")
	if _, err := p.Connect(t.Context(), Config{}); err == nil {
		t.Fatalf("expected error without api key")
	}
}

// TestDeepgramRoundTrip drives the connection against a local websocket
// server speaking the listen protocol.
func TestDeepgramRoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{}
	received := make(chan []byte, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Token test-key" {
			t.Errorf("Authorization=%q", got)
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		msgType, data, err := conn.ReadMessage()
		if err != nil {
			t.Errorf("read: %v", err)
			return
		}
		if msgType != websocket.BinaryMessage {
			t.Errorf("msgType=%d, want binary", msgType)
		}
		received <- data

		_ = conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"type":"TurnInfo","event":"EndOfTurn","transcript":"hello there"}`))

		// Hold the connection open until the client closes it.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	wsBase := "ws" + strings.TrimPrefix(srv.URL, "http")
	p := NewDeepgram("test-key").WithWSBaseURL(wsBase)

	conn, err := p.Connect(t.Context(), Config{SampleRate: 16000})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer conn.Close()

	if err := conn.SendMedia([]byte{0x01, 0x02}); err != nil {
		t.Fatalf("SendMedia: %v", err)
	}

	select {
	case data := <-received:
		if len(data) != 2 {
			t.Fatalf("server received %d bytes, want 2", len(data))
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("server never received media")
	}

	select {
	case ev := <-conn.Events():
		if !ev.IsEndOfTurn() || ev.Transcript != "hello there" {
			t.Fatalf("event=%+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no event delivered")
	}

	if err := conn.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := conn.SendMedia([]byte{0x03}); err == nil {
		t.Fatalf("SendMedia after Close must fail")
	}
}
