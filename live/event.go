package live

import "fmt"

type Kind int

const (
	AudioDelta Kind = iota + 1
	InputTranscriptDelta
	OutputTranscriptDelta
	TurnComplete
	Opened
	Closed
	Errored
)

func (k Kind) String() string {
	switch k {
	case AudioDelta:
		return "audio"
	case InputTranscriptDelta:
		return "input-transcript"
	case OutputTranscriptDelta:
		return "output-transcript"
	case TurnComplete:
		return "turn-complete"
	case Opened:
		return "opened"
	case Closed:
		return "closed"
	case Errored:
		return "errored"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Event is one item of the inbound stream. Audio carries raw 16-bit PCM
// for AudioDelta, Text the fragment for transcript deltas, Err the cause
// for Errored.
type Event struct {
	Kind  Kind
	Audio []byte
	Text  string
	Err   error
}

// Lifecycle reports whether the event is about the connection rather than
// the conversation.
func (e Event) Lifecycle() bool {
	return e.Kind == Opened || e.Kind == Closed || e.Kind == Errored
}

func InputText(s string) Event  { return Event{Kind: InputTranscriptDelta, Text: s} }
func OutputText(s string) Event { return Event{Kind: OutputTranscriptDelta, Text: s} }
func Audio(b []byte) Event      { return Event{Kind: AudioDelta, Audio: b} }
func EndOfTurn() Event          { return Event{Kind: TurnComplete} }
