package live

import (
	"strings"
	"testing"

	"node.town/autolingo/model"
)

func TestSystemInstruction(t *testing.T) {
	speakers := model.DefaultSpeakers()
	got := SystemInstruction(speakers)

	for _, want := range []string{
		`Agent (Salesperson): Speaks "English".`,
		`Customer: Speaks "Spanish".`,
		"If input is English, translate to Spanish.",
		"If input is Spanish, translate to English.",
		`"Money Factor" -> Lease Interest Rate`,
		"Pure translation only.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("instruction missing %q", want)
		}
	}
}

func TestSystemInstructionSwappedLanguages(t *testing.T) {
	speakers := [2]model.Speaker{
		{ID: "speaker_1", Name: "Rosa", Language: model.Spanish},
		{ID: "speaker_2", Language: model.English},
	}
	got := SystemInstruction(speakers)

	if !strings.Contains(got, `Rosa (Salesperson): Speaks "Spanish".`) {
		t.Errorf("agent line wrong:\n%s", got)
	}
	if !strings.Contains(got, `Customer: Speaks "English".`) {
		t.Errorf("unnamed customer should fall back to the role name:\n%s", got)
	}
	if !strings.Contains(got, "If input is Spanish, translate to English.") {
		t.Errorf("task line wrong:\n%s", got)
	}
}
