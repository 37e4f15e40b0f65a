package model

import (
	"fmt"
	"math"
)

type Language string

const (
	English Language = "English"
	Spanish Language = "Spanish"
)

// Languages lists the selectable languages with their BCP-47 codes.
var Languages = []struct {
	Code  string
	Label Language
}{
	{Code: "en-US", Label: English},
	{Code: "es-ES", Label: Spanish},
}

func (l Language) Valid() bool {
	for _, lang := range Languages {
		if lang.Label == l {
			return true
		}
	}
	return false
}

type Speaker struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Language Language `json:"language"`
}

// DefaultSpeakers returns the agent (primary) and customer (secondary).
func DefaultSpeakers() [2]Speaker {
	return [2]Speaker{
		{ID: "speaker_1", Name: "Agent", Language: English},
		{ID: "speaker_2", Name: "Customer", Language: Spanish},
	}
}

// ValidateSpeakers checks that both speakers have a known language and
// that they do not speak the same one.
func ValidateSpeakers(speakers [2]Speaker) error {
	for _, s := range speakers {
		if !s.Language.Valid() {
			return fmt.Errorf("speaker %s: unknown language %q", s.ID, s.Language)
		}
	}
	if speakers[0].Language == speakers[1].Language {
		return fmt.Errorf("both speakers use %s", speakers[0].Language)
	}
	return nil
}

// Origin says which side of the conversation a transcript line came from.
// Source lines are what the engine heard, target lines are what it spoke.
type Origin string

const (
	Source Origin = "source"
	Target Origin = "target"
)

type TranscriptEntry struct {
	ID        string `json:"id"`
	Origin    Origin `json:"origin"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"createdAt"`
	Finalized bool   `json:"finalized"`
}

type SavedSession struct {
	ID         string            `json:"id"`
	Date       int64             `json:"date"`
	Speakers   [2]Speaker        `json:"speakers"`
	Transcript []TranscriptEntry `json:"transcript"`
}

// Finalized returns the entries that have been committed.
func (s SavedSession) Finalized() []TranscriptEntry {
	var out []TranscriptEntry
	for _, e := range s.Transcript {
		if e.Finalized {
			out = append(out, e)
		}
	}
	return out
}

type TextSize string

const (
	TextNormal TextSize = "normal"
	TextLarge  TextSize = "large"
	TextHuge   TextSize = "huge"
)

var textSizes = []TextSize{TextNormal, TextLarge, TextHuge}

// Next cycles normal -> large -> huge -> normal.
func (t TextSize) Next() TextSize {
	for i, s := range textSizes {
		if s == t {
			return textSizes[(i+1)%len(textSizes)]
		}
	}
	return TextLarge
}

type Settings struct {
	TTSEnabled bool     `json:"ttsEnabled"`
	Volume     float64  `json:"volume"`
	TextSize   TextSize `json:"textSize"`
}

func DefaultSettings() Settings {
	return Settings{TTSEnabled: false, Volume: 1, TextSize: TextLarge}
}

// Gain is the playback gain these settings call for. Disabling speech
// output mutes playback without touching the chosen volume.
func (s Settings) Gain() float64 {
	if !s.TTSEnabled {
		return 0
	}
	return ClampUnit(s.Volume)
}

func ClampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
