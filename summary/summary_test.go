package summary

import (
	"strings"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"

	"node.town/autolingo/model"
)

func TestPrompt(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.Local).UnixMilli()
	s := model.SavedSession{
		ID:       "abc",
		Date:     at,
		Speakers: model.DefaultSpeakers(),
		Transcript: []model.TranscriptEntry{
			{Origin: model.Source, Text: "¿Cuánto cuesta?", CreatedAt: at, Finalized: true},
			{Origin: model.Target, Text: "How much is it?", CreatedAt: at + 1000, Finalized: true},
			{Origin: model.Source, Text: "draft", CreatedAt: at + 2000},
		},
	}

	got := Prompt(s)
	for _, want := range []string{
		"Session abc, 2024-03-01 10:00",
		"Salesperson: Agent (English)",
		"Customer: Customer (Spanish)",
		"10:00:00 Heard: ¿Cuánto cuesta?",
		"10:00:01 Interpreted: How much is it?",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "draft") {
		t.Error("unfinalized entry leaked into the prompt")
	}
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("**Money**: "), genai.Text("$300/mo")}}},
			{Content: nil},
		},
	}
	if got := responseText(resp); got != "**Money**: $300/mo" {
		t.Errorf("responseText() = %q", got)
	}
}
