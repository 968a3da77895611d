package protocol

import (
	"encoding/base64"
	"encoding/json"
	"testing"
)

func TestDecodeStart(t *testing.T) {
	frame := `{"event":"start","start":{"streamId":"s_1","callId":"c_1","accountId":"a_1"}}`
	got, err := DecodeEvent([]byte(frame))
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	msg, ok := got.(StartEvent)
	if !ok {
		t.Fatalf("got %T, want StartEvent", got)
	}
	if msg.Start.StreamID != "s_1" || msg.Start.CallID != "c_1" || msg.Start.AccountID != "a_1" {
		t.Fatalf("start=%+v", msg.Start)
	}
}

func TestDecodeStartMissingStreamID(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"event":"start","start":{"callId":"c_1"}}`))
	if err == nil {
		t.Fatalf("expected error for start without streamId")
	}
	var de *DecodeError
	if !asDecodeError(err, &de) || de.Param != "start.streamId" {
		t.Fatalf("err=%v", err)
	}
}

func TestDecodeMediaRoundTrip(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte{0x00, 0x01, 0x02})
	frame := `{"event":"media","media":{"payload":"` + payload + `","contentType":"audio/x-l16","sampleRate":16000}}`

	got, err := DecodeEvent([]byte(frame))
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	msg := got.(MediaEvent)
	raw, err := msg.RawMedia()
	if err != nil {
		t.Fatalf("RawMedia: %v", err)
	}
	if len(raw) != 3 || raw[2] != 0x02 {
		t.Fatalf("raw=%v", raw)
	}
}

func TestDecodeMediaRequiresPayload(t *testing.T) {
	if _, err := DecodeEvent([]byte(`{"event":"media","media":{}}`)); err == nil {
		t.Fatalf("expected error for media without payload")
	}
}

func TestDecodeControlEvents(t *testing.T) {
	got, err := DecodeEvent([]byte(`{"event":"dtmf","dtmf":{"digit":"5"}}`))
	if err != nil {
		t.Fatalf("dtmf: %v", err)
	}
	if got.(DtmfEvent).Dtmf.Digit != "5" {
		t.Fatalf("dtmf=%+v", got)
	}

	got, err = DecodeEvent([]byte(`{"event":"playedStream","streamId":"s_1","name":"all_audio_played"}`))
	if err != nil {
		t.Fatalf("playedStream: %v", err)
	}
	if got.(PlayedStreamEvent).Name != "all_audio_played" {
		t.Fatalf("playedStream=%+v", got)
	}

	got, err = DecodeEvent([]byte(`{"event":"clearedAudio","streamId":"s_1"}`))
	if err != nil {
		t.Fatalf("clearedAudio: %v", err)
	}
	if got.(ClearedAudioEvent).StreamID != "s_1" {
		t.Fatalf("clearedAudio=%+v", got)
	}
}

func TestDecodeRejectsUnknownAndInvalid(t *testing.T) {
	if _, err := DecodeEvent([]byte(`{"event":"teleport"}`)); err == nil {
		t.Fatalf("unknown event must fail")
	}
	if _, err := DecodeEvent([]byte(`not json`)); err == nil {
		t.Fatalf("invalid json must fail")
	}
	if _, err := DecodeEvent([]byte(`{}`)); err == nil {
		t.Fatalf("missing event must fail")
	}
}

func TestEncodePlayAudio(t *testing.T) {
	data, err := EncodePlayAudio([]byte{0xAA, 0xBB}, "audio/x-l16", 16000)
	if err != nil {
		t.Fatalf("EncodePlayAudio: %v", err)
	}
	var msg PlayAudioMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Event != "playAudio" {
		t.Fatalf("event=%q", msg.Event)
	}
	if msg.Media.ContentType != "audio/x-l16" || msg.Media.SampleRate != 16000 {
		t.Fatalf("media=%+v", msg.Media)
	}
	raw, err := base64.StdEncoding.DecodeString(msg.Media.Payload)
	if err != nil || len(raw) != 2 || raw[0] != 0xAA {
		t.Fatalf("payload=%q err=%v", msg.Media.Payload, err)
	}
}

func TestEncodeCheckpointAndClearAudio(t *testing.T) {
	data, err := EncodeCheckpoint("s_1", "all_audio_played")
	if err != nil {
		t.Fatalf("EncodeCheckpoint: %v", err)
	}
	var cp CheckpointMessage
	if err := json.Unmarshal(data, &cp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if cp.Event != "checkpoint" || cp.StreamID != "s_1" || cp.Name != "all_audio_played" {
		t.Fatalf("checkpoint=%+v", cp)
	}

	data, err = EncodeClearAudio("s_1")
	if err != nil {
		t.Fatalf("EncodeClearAudio: %v", err)
	}
	var ca ClearAudioMessage
	if err := json.Unmarshal(data, &ca); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ca.Event != "clearAudio" || ca.StreamID != "s_1" {
		t.Fatalf("clearAudio=%+v", ca)
	}
}

func asDecodeError(err error, target **DecodeError) bool {
	de, ok := err.(*DecodeError)
	if ok {
		*target = de
	}
	return ok
}
