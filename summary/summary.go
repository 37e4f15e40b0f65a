// Package summary asks Gemini for a short written recap of a saved
// session, for the salesperson's notes.
package summary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"node.town/autolingo/etc"
	"node.town/autolingo/model"
)

const DefaultModel = "gemini-1.5-flash"

const systemPrompt = `You summarize interpreted conversations between a car salesperson and a customer.

Write a short markdown recap with these sections:
- **Customer interest**: vehicles, trims and features discussed.
- **Money**: prices, trade-in, financing or lease terms mentioned.
- **Concerns**: objections or open questions.
- **Next steps**: anything either side agreed to do.

Use the language of the first speaker. Skip any section with nothing to report.`

type Summarizer struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func New(ctx context.Context, apiKey, modelName string) (*Summarizer, error) {
	if apiKey == "" {
		return nil, errors.New("missing Gemini API key")
	}
	if modelName == "" {
		modelName = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.GenerationConfig.SetMaxOutputTokens(1024)
	model.GenerationConfig.SetTemperature(0.2)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}

	return &Summarizer{client: client, model: model}, nil
}

// Prompt renders the session transcript as the user turn.
func Prompt(s model.SavedSession) string {
	names := map[model.Origin]string{
		model.Source: "Heard",
		model.Target: "Interpreted",
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Session %s, %s\n",
		s.ID, etc.MillisToTime(s.Date).Format("2006-01-02 15:04"))
	for i, sp := range s.Speakers {
		role := "Salesperson"
		if i == 1 {
			role = "Customer"
		}
		fmt.Fprintf(&b, "%s: %s (%s)\n", role, sp.Name, sp.Language)
	}
	b.WriteString("\nTranscript:\n")
	for _, e := range s.Finalized() {
		fmt.Fprintf(&b, "%s %s: %s\n",
			etc.MillisToTime(e.CreatedAt).Format("15:04:05"), names[e.Origin], e.Text)
	}
	return b.String()
}

// Summarize streams the recap to w as it arrives and returns all of it.
func (s *Summarizer) Summarize(ctx context.Context, session model.SavedSession, w io.Writer) (string, error) {
	if len(session.Finalized()) == 0 {
		return "", errors.New("session has no transcript")
	}

	stream := s.model.GenerateContentStream(ctx, genai.Text(Prompt(session)))

	var full strings.Builder
	for {
		resp, err := stream.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return full.String(), fmt.Errorf("error streaming: %w", err)
		}

		chunk := responseText(resp)
		if w != nil {
			if _, err := io.WriteString(w, chunk); err != nil {
				return full.String(), fmt.Errorf("error writing to output: %w", err)
			}
		}
		full.WriteString(chunk)
	}

	return full.String(), nil
}

func (s *Summarizer) Close() error {
	return s.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
