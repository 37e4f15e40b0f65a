package session

import "node.town/autolingo/model"

type State int

const (
	Connecting State = iota
	Connected
	Disconnected
	Ended
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	case Ended:
		return "ended"
	}
	return "unknown"
}

// Observer is told what the session is doing. Level is called from the
// capture goroutine, everything else from the inbound loop, so
// implementations must be safe for concurrent use and must not block.
type Observer interface {
	Level(level float64)
	Caption(source, target string)
	Committed(entries []model.TranscriptEntry)
	StateChanged(state State)
}

type NopObserver struct{}

func (NopObserver) Level(float64)                     {}
func (NopObserver) Caption(string, string)            {}
func (NopObserver) Committed([]model.TranscriptEntry) {}
func (NopObserver) StateChanged(State)                {}

type multiObserver []Observer

// Observers fans out to every non-nil observer given.
func Observers(observers ...Observer) Observer {
	var m multiObserver
	for _, o := range observers {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}

func (m multiObserver) Level(level float64) {
	for _, o := range m {
		o.Level(level)
	}
}

func (m multiObserver) Caption(source, target string) {
	for _, o := range m {
		o.Caption(source, target)
	}
}

func (m multiObserver) Committed(entries []model.TranscriptEntry) {
	for _, o := range m {
		o.Committed(entries)
	}
}

func (m multiObserver) StateChanged(state State) {
	for _, o := range m {
		o.StateChanged(state)
	}
}
