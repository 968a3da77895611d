package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const deepgramDefaultWSBase = "wss://api.deepgram.com/v2/listen"

// DeepgramProvider implements Provider against Deepgram's listen v2
// websocket API.
type DeepgramProvider struct {
	apiKey    string
	wsBaseURL string
}

func NewDeepgram(apiKey string) *DeepgramProvider {
	return &DeepgramProvider{
		apiKey:    apiKey,
		wsBaseURL: deepgramDefaultWSBase,
	}
}

// WithWSBaseURL overrides the websocket endpoint. Used by tests and
// self-hosted deployments.
func (d *DeepgramProvider) WithWSBaseURL(base string) *DeepgramProvider {
	if base != "" {
		d.wsBaseURL = base
	}
	return d
}

func (d *DeepgramProvider) Name() string {
	return "deepgram"
}

// Connect dials a listen session. Audio goes up as binary frames; turn
// events come back as JSON.
func (d *DeepgramProvider) Connect(ctx context.Context, cfg Config) (Connection, error) {
	if d.apiKey == "" {
		return nil, fmt.Errorf("deepgram api key is required")
	}

	wsURL, err := buildDeepgramWSURL(d.wsBaseURL, cfg)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Authorization", "Token "+d.apiKey)

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, resp, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("deepgram connect: status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("deepgram connect: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	c := &deepgramConn{
		conn:   conn,
		events: make(chan Event, 64),
		ctx:    ctx,
		cancel: cancel,
	}
	go c.readLoop()
	return c, nil
}

type deepgramConn struct {
	conn    *websocket.Conn
	events  chan Event
	writeMu sync.Mutex
	closed  atomic.Bool
	errMu   sync.Mutex
	err     error
	ctx     context.Context
	cancel  context.CancelFunc
}

type deepgramMessage struct {
	Type       string `json:"type"`
	Event      string `json:"event"`
	Transcript string `json:"transcript"`
}

func (c *deepgramConn) readLoop() {
	defer close(c.events)

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !c.closed.Load() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.setErr(err)
			}
			return
		}

		var msg deepgramMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			// Non-JSON frames are not turn events; skip them.
			continue
		}

		select {
		case c.events <- Event{Type: msg.Type, Event: msg.Event, Transcript: msg.Transcript}:
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *deepgramConn) SendMedia(data []byte) error {
	if c.closed.Load() {
		return fmt.Errorf("transcription connection closed")
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (c *deepgramConn) Events() <-chan Event {
	return c.events
}

func (c *deepgramConn) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

func (c *deepgramConn) setErr(err error) {
	c.errMu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.errMu.Unlock()
}

func (c *deepgramConn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.cancel()

	c.writeMu.Lock()
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()

	return c.conn.Close()
}

func buildDeepgramWSURL(base string, cfg Config) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid deepgram ws url: %w", err)
	}
	if u.Scheme == "" {
		u.Scheme = "wss"
	}

	q := u.Query()
	model := cfg.Model
	if model == "" {
		model = "flux-general-en"
	}
	q.Set("model", model)

	encoding := cfg.Encoding
	if encoding == "" {
		encoding = "linear16"
	}
	q.Set("encoding", encoding)

	sampleRate := cfg.SampleRate
	if sampleRate == 0 {
		sampleRate = 16000
	}
	q.Set("sample_rate", fmt.Sprintf("%d", sampleRate))

	u.RawQuery = q.Encode()
	return u.String(), nil
}
