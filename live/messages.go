package live

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

type setupMessage struct {
	Setup setup `json:"setup"`
}

type setup struct {
	Model                    string           `json:"model"`
	GenerationConfig         generationConfig `json:"generationConfig"`
	SystemInstruction        *content         `json:"systemInstruction,omitempty"`
	InputAudioTranscription  *struct{}        `json:"inputAudioTranscription,omitempty"`
	OutputAudioTranscription *struct{}        `json:"outputAudioTranscription,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities"`
}

type realtimeInputMessage struct {
	RealtimeInput realtimeInput `json:"realtimeInput"`
}

type realtimeInput struct {
	MediaChunks []blob `json:"mediaChunks"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string `json:"text,omitempty"`
	InlineData *blob  `json:"inlineData,omitempty"`
}

// blob data is base64 on the wire, which encoding/json does for []byte.
type blob struct {
	MimeType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

type serverMessage struct {
	SetupComplete *struct{}      `json:"setupComplete,omitempty"`
	ServerContent *serverContent `json:"serverContent,omitempty"`
	GoAway        *goAway        `json:"goAway,omitempty"`
}

// Inbound audio stays base64 text until events decodes it part by part,
// so one bad part cannot spoil the rest of the message.
type serverBlob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type serverPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *serverBlob `json:"inlineData,omitempty"`
}

type modelTurn struct {
	Parts []serverPart `json:"parts"`
}

type serverContent struct {
	ModelTurn           *modelTurn     `json:"modelTurn,omitempty"`
	TurnComplete        bool           `json:"turnComplete,omitempty"`
	Interrupted         bool           `json:"interrupted,omitempty"`
	InputTranscription  *transcription `json:"inputTranscription,omitempty"`
	OutputTranscription *transcription `json:"outputTranscription,omitempty"`
}

type transcription struct {
	Text string `json:"text"`
}

type goAway struct {
	TimeLeft string `json:"timeLeft"`
}

func newSetupMessage(cfg Config) setupMessage {
	s := setup{
		Model: cfg.Model,
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"AUDIO"},
		},
		InputAudioTranscription:  &struct{}{},
		OutputAudioTranscription: &struct{}{},
	}
	if cfg.SystemInstruction != "" {
		s.SystemInstruction = &content{
			Parts: []part{{Text: cfg.SystemInstruction}},
		}
	}
	return setupMessage{Setup: s}
}

func decodeServerMessage(data []byte) (serverMessage, error) {
	var msg serverMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return serverMessage{}, fmt.Errorf("decode server message: %w", err)
	}
	return msg, nil
}

// events flattens one server message into stream events: audio first,
// then the input and output transcripts, then the turn boundary. Audio
// parts that fail to decode are skipped and reported in the error; the
// other events are still returned.
func (m serverMessage) events() ([]Event, error) {
	sc := m.ServerContent
	if sc == nil {
		return nil, nil
	}

	var (
		out  []Event
		errs []error
	)
	if sc.ModelTurn != nil {
		for i, p := range sc.ModelTurn.Parts {
			if p.InlineData == nil || p.InlineData.Data == "" {
				continue
			}
			audio, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				errs = append(errs, fmt.Errorf("audio part %d: %w", i, err))
				continue
			}
			if len(audio) > 0 {
				out = append(out, Audio(audio))
			}
		}
	}
	if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
		out = append(out, InputText(sc.InputTranscription.Text))
	}
	if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
		out = append(out, OutputText(sc.OutputTranscription.Text))
	}
	if sc.TurnComplete {
		out = append(out, EndOfTurn())
	}
	return out, errors.Join(errs...)
}
