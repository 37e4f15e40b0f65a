package live

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestDecodeServerMessageEvents(t *testing.T) {
	raw := `{
		"serverContent": {
			"modelTurn": {"parts": [
				{"inlineData": {"mimeType": "audio/pcm;rate=24000", "data": "AQID"}},
				{"text": "ignored"},
				{"inlineData": {"mimeType": "audio/pcm;rate=24000", "data": "BAU="}}
			]},
			"inputTranscription": {"text": "Hola"},
			"outputTranscription": {"text": "Hello"},
			"turnComplete": true
		}
	}`

	msg, err := decodeServerMessage([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	events, err := msg.events()
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	kinds := make([]Kind, len(events))
	for i, ev := range events {
		kinds[i] = ev.Kind
	}

	want := []Kind{AudioDelta, AudioDelta, InputTranscriptDelta, OutputTranscriptDelta, TurnComplete}
	if len(kinds) != len(want) {
		t.Fatalf("got kinds %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("got kinds %v, want %v", kinds, want)
		}
	}

	if !bytes.Equal(events[0].Audio, []byte{1, 2, 3}) {
		t.Errorf("audio 0 = %v", events[0].Audio)
	}
	if !bytes.Equal(events[1].Audio, []byte{4, 5}) {
		t.Errorf("audio 1 = %v", events[1].Audio)
	}
	if events[2].Text != "Hola" || events[3].Text != "Hello" {
		t.Errorf("transcripts = %q, %q", events[2].Text, events[3].Text)
	}
}

func TestDecodeServerMessageWithoutContent(t *testing.T) {
	for _, raw := range []string{
		`{"setupComplete": {}}`,
		`{"goAway": {"timeLeft": "10s"}}`,
		`{"serverContent": {"interrupted": true}}`,
		`{"serverContent": {"inputTranscription": {"text": ""}}}`,
	} {
		msg, err := decodeServerMessage([]byte(raw))
		if err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
		if evs, _ := msg.events(); len(evs) != 0 {
			t.Errorf("%s produced events %v", raw, evs)
		}
	}
}

func TestBadAudioPartKeepsTurn(t *testing.T) {
	raw := `{"serverContent": {
		"modelTurn": {"parts": [
			{"inlineData": {"mimeType": "audio/pcm;rate=24000", "data": "!!notbase64"}},
			{"inlineData": {"mimeType": "audio/pcm;rate=24000", "data": "AQID"}}
		]},
		"outputTranscription": {"text": "Hola"},
		"turnComplete": true
	}}`

	msg, err := decodeServerMessage([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	events, err := msg.events()
	if err == nil {
		t.Error("bad audio part not reported")
	}

	want := []Kind{AudioDelta, OutputTranscriptDelta, TurnComplete}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i, k := range want {
		if events[i].Kind != k {
			t.Errorf("event %d = %v, want %v", i, events[i].Kind, k)
		}
	}
	if !bytes.Equal(events[0].Audio, []byte{1, 2, 3}) {
		t.Errorf("audio = %v", events[0].Audio)
	}
	if events[1].Text != "Hola" {
		t.Errorf("output text = %q", events[1].Text)
	}
}

func TestDecodeServerMessageMalformed(t *testing.T) {
	if _, err := decodeServerMessage([]byte(`{"serverContent":`)); err == nil {
		t.Error("expected error for truncated JSON")
	}
}

func TestSetupMessageShape(t *testing.T) {
	msg := newSetupMessage(Config{Model: "models/test", SystemInstruction: "be brief"})
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	s := string(data)
	for _, want := range []string{
		`"model":"models/test"`,
		`"responseModalities":["AUDIO"]`,
		`"systemInstruction":{"parts":[{"text":"be brief"}]}`,
		`"inputAudioTranscription":{}`,
		`"outputAudioTranscription":{}`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("setup missing %s: %s", want, s)
		}
	}
}

func TestRealtimeInputEncoding(t *testing.T) {
	msg := realtimeInputMessage{RealtimeInput: realtimeInput{
		MediaChunks: []blob{{MimeType: "audio/pcm;rate=16000", Data: []byte{1, 2, 3}}},
	}}
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"realtimeInput":{"mediaChunks":[{"mimeType":"audio/pcm;rate=16000","data":"AQID"}]}}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}
