package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const elevenLabsDefaultBaseURL = "https://api.elevenlabs.io"

// ElevenLabsProvider implements Provider against the ElevenLabs streaming
// synthesis endpoint. Audio comes back as chunked raw PCM over HTTP.
type ElevenLabsProvider struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
}

func NewElevenLabs(apiKey string) *ElevenLabsProvider {
	return NewElevenLabsWithClient(apiKey, nil)
}

func NewElevenLabsWithClient(apiKey string, client *http.Client) *ElevenLabsProvider {
	if client == nil {
		client = &http.Client{}
	}
	return &ElevenLabsProvider{
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: client,
		baseURL:    elevenLabsDefaultBaseURL,
	}
}

// WithBaseURL overrides the API endpoint. Used by tests.
func (e *ElevenLabsProvider) WithBaseURL(base string) *ElevenLabsProvider {
	base = strings.TrimSpace(base)
	if base != "" {
		e.baseURL = base
	}
	return e
}

func (e *ElevenLabsProvider) Name() string {
	return "elevenlabs"
}

type elevenLabsRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id,omitempty"`
}

func (e *ElevenLabsProvider) SynthesizeStream(ctx context.Context, req Request) (*Stream, error) {
	if e.apiKey == "" {
		return nil, fmt.Errorf("elevenlabs api key is required")
	}
	voiceID := strings.TrimSpace(req.VoiceID)
	if voiceID == "" {
		return nil, fmt.Errorf("voice id is required")
	}

	endpoint, err := buildElevenLabsStreamURL(e.baseURL, voiceID, req.OutputFormat)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(elevenLabsRequest{
		Text:    req.Text,
		ModelID: req.ModelID,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("xi-api-key", e.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("elevenlabs synthesis: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	stream := NewStream()
	go func() {
		defer stream.FinishSending()
		defer stream.Close()
		defer resp.Body.Close()

		buf := make([]byte, 4096)
		for {
			n, err := resp.Body.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				if !stream.Send(chunk) {
					return
				}
			}
			if err != nil {
				if err != io.EOF {
					stream.SetError(err)
				}
				return
			}
		}
	}()

	return stream, nil
}

func buildElevenLabsStreamURL(base, voiceID, outputFormat string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid elevenlabs base url: %w", err)
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	u.Path = "/v1/text-to-speech/" + url.PathEscape(voiceID) + "/stream"

	q := u.Query()
	if outputFormat == "" {
		outputFormat = "pcm_16000"
	}
	q.Set("output_format", outputFormat)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
