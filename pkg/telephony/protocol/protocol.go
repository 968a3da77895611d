// Package protocol implements the Plivo bidirectional stream wire format.
//
// Inbound frames are JSON envelopes tagged by an "event" field. Outbound
// frames are playAudio, checkpoint, and clearAudio messages.
package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

type DecodeError struct {
	Code    string
	Message string
	Param   string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Param) == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Param)
}

func badRequest(message, param string) *DecodeError {
	return &DecodeError{Code: "bad_request", Message: message, Param: param}
}

// StartEvent announces a new media stream on a call.
type StartEvent struct {
	Event string    `json:"event"`
	Start StartInfo `json:"start"`
}

type StartInfo struct {
	StreamID  string `json:"streamId"`
	CallID    string `json:"callId"`
	AccountID string `json:"accountId"`
}

// MediaEvent carries one frame of caller audio, base64 in the payload.
type MediaEvent struct {
	Event string    `json:"event"`
	Media MediaInfo `json:"media"`
}

type MediaInfo struct {
	Track       string `json:"track,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	SampleRate  int    `json:"sampleRate,omitempty"`
	Seq         int64  `json:"seq,omitempty"`
	Payload     string `json:"payload"`
}

// RawMedia decodes the base64 audio payload.
func (e MediaEvent) RawMedia() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(e.Media.Payload)
	if err != nil {
		return nil, fmt.Errorf("decode media payload: %w", err)
	}
	return data, nil
}

// DtmfEvent reports a keypad digit pressed by the caller.
type DtmfEvent struct {
	Event string   `json:"event"`
	Dtmf  DtmfInfo `json:"dtmf"`
}

type DtmfInfo struct {
	Digit string `json:"digit"`
}

// PlayedStreamEvent confirms a checkpoint's audio finished playing.
type PlayedStreamEvent struct {
	Event    string `json:"event"`
	StreamID string `json:"streamId,omitempty"`
	Name     string `json:"name"`
}

// ClearedAudioEvent confirms the outbound audio buffer was flushed.
type ClearedAudioEvent struct {
	Event    string `json:"event"`
	StreamID string `json:"streamId,omitempty"`
}

// DecodeEvent parses one inbound frame into its typed event.
func DecodeEvent(data []byte) (any, error) {
	var envelope struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, badRequest("invalid json frame", "")
	}
	typ := strings.TrimSpace(envelope.Event)
	if typ == "" {
		return nil, badRequest("missing event", "event")
	}

	switch typ {
	case "start":
		var msg StartEvent
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid start frame", "")
		}
		if strings.TrimSpace(msg.Start.StreamID) == "" {
			return nil, badRequest("start.streamId is required", "start.streamId")
		}
		return msg, nil
	case "media":
		var msg MediaEvent
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid media frame", "")
		}
		if strings.TrimSpace(msg.Media.Payload) == "" {
			return nil, badRequest("media.payload is required", "media.payload")
		}
		return msg, nil
	case "dtmf":
		var msg DtmfEvent
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid dtmf frame", "")
		}
		return msg, nil
	case "playedStream":
		var msg PlayedStreamEvent
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid playedStream frame", "")
		}
		return msg, nil
	case "clearedAudio":
		var msg ClearedAudioEvent
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid clearedAudio frame", "")
		}
		return msg, nil
	default:
		return nil, badRequest("unsupported event type", "event")
	}
}

// Outbound frames.

type PlayAudioMessage struct {
	Event string         `json:"event"`
	Media PlayAudioMedia `json:"media"`
}

type PlayAudioMedia struct {
	ContentType string `json:"contentType"`
	SampleRate  int    `json:"sampleRate"`
	Payload     string `json:"payload"`
}

// EncodePlayAudio builds a playAudio frame carrying raw audio bytes.
func EncodePlayAudio(audio []byte, contentType string, sampleRate int) ([]byte, error) {
	return json.Marshal(PlayAudioMessage{
		Event: "playAudio",
		Media: PlayAudioMedia{
			ContentType: contentType,
			SampleRate:  sampleRate,
			Payload:     base64.StdEncoding.EncodeToString(audio),
		},
	})
}

type CheckpointMessage struct {
	Event    string `json:"event"`
	StreamID string `json:"streamId"`
	Name     string `json:"name"`
}

// EncodeCheckpoint builds a checkpoint frame. The telephony leg echoes the
// name back in a playedStream event once all earlier audio has played.
func EncodeCheckpoint(streamID, name string) ([]byte, error) {
	return json.Marshal(CheckpointMessage{
		Event:    "checkpoint",
		StreamID: streamID,
		Name:     name,
	})
}

type ClearAudioMessage struct {
	Event    string `json:"event"`
	StreamID string `json:"streamId"`
}

// EncodeClearAudio builds a clearAudio frame that flushes buffered
// playback on the telephony side.
func EncodeClearAudio(streamID string) ([]byte, error) {
	return json.Marshal(ClearAudioMessage{
		Event:    "clearAudio",
		StreamID: streamID,
	})
}
