// Package highlight turns per-tick resolutions into display transitions.
//
// The resolver answers the same question every tick. A Tracker remembers the
// previous answer and emits events only when the screen, line, word or
// instrumental progress actually changes.
package highlight

import (
	"math"

	"github.com/satindergrewal/singalong/internal/screens"
)

// State is the coarse display state.
type State int

const (
	StateIdle State = iota // no line active
	StateLine              // line active, no word
	StateWord              // line and word active
)

func (s State) String() string {
	switch s {
	case StateLine:
		return "line"
	case StateWord:
		return "word"
	default:
		return "idle"
	}
}

// EventType identifies a display transition.
type EventType string

const (
	EventScreen   EventType = "screen"
	EventLine     EventType = "line"
	EventWord     EventType = "word"
	EventProgress EventType = "progress"
	EventReset    EventType = "reset"
)

// Event is one transition for a renderer. Fields not relevant to Type are zero.
type Event struct {
	Type         EventType `json:"type"`
	Time         float64   `json:"time"`
	ScreenIndex  int       `json:"screen"`
	LineIndex    int       `json:"line"`
	WordIndex    int       `json:"word"`
	Text         string    `json:"text,omitempty"`
	Duration     float64   `json:"duration,omitempty"`
	Progress     float64   `json:"progress,omitempty"`
	Instrumental bool      `json:"instrumental,omitempty"`
	Lines        []string  `json:"lines,omitempty"`
}

// Tracker holds the last displayed triple. It is not safe for concurrent use.
type Tracker struct {
	screen  int
	line    int
	word    int
	percent int
	state   State
}

// NewTracker returns a tracker with nothing displayed.
func NewTracker() *Tracker {
	t := &Tracker{}
	t.Reset()
	return t
}

// Reset forgets what is displayed, so the next resolution redraws everything.
func (tr *Tracker) Reset() {
	tr.screen, tr.line, tr.word, tr.percent = -1, -1, -1, -1
	tr.state = StateIdle
}

// State returns the current display state.
func (tr *Tracker) State() State {
	return tr.state
}

// Update compares res against the displayed state and returns the
// transitions needed to bring a renderer up to date. When ok is false the
// display is left unchanged.
func (tr *Tracker) Update(res screens.Resolution, ok bool, at float64) []Event {
	if !ok || res.Screen == nil {
		return nil
	}
	var events []Event

	if res.ScreenIndex != tr.screen {
		lines := make([]string, len(res.Screen.Lines))
		for i, l := range res.Screen.Lines {
			lines[i] = l.RawText
		}
		events = append(events, Event{
			Type:         EventScreen,
			Time:         at,
			ScreenIndex:  res.ScreenIndex,
			LineIndex:    -1,
			WordIndex:    -1,
			Instrumental: res.Screen.Instrumental,
			Lines:        lines,
		})
		tr.screen = res.ScreenIndex
		tr.line, tr.word, tr.percent = -1, -1, -1
	}

	lineChanged := res.LineIndex != tr.line
	if lineChanged {
		events = append(events, Event{
			Type:        EventLine,
			Time:        at,
			ScreenIndex: res.ScreenIndex,
			LineIndex:   res.LineIndex,
			WordIndex:   -1,
		})
		tr.line = res.LineIndex
	}

	if w := res.Word; w != nil && (w.Index != tr.word || lineChanged) {
		events = append(events, Event{
			Type:        EventWord,
			Time:        at,
			ScreenIndex: res.ScreenIndex,
			LineIndex:   res.LineIndex,
			WordIndex:   w.Index,
			Text:        w.Text,
			Duration:    w.Duration,
		})
		tr.word = w.Index
	} else if w == nil {
		tr.word = -1
	}

	if res.Screen.Instrumental {
		p := DisplayProgress(res.Progress)
		if pct := int(math.Round(p * 100)); pct != tr.percent {
			events = append(events, Event{
				Type:         EventProgress,
				Time:         at,
				ScreenIndex:  res.ScreenIndex,
				LineIndex:    res.LineIndex,
				WordIndex:    tr.word,
				Progress:     p,
				Instrumental: true,
			})
			tr.percent = pct
		}
	}

	switch {
	case res.Word != nil:
		tr.state = StateWord
	case res.LineIndex >= 0:
		tr.state = StateLine
	default:
		tr.state = StateIdle
	}
	return events
}

// DisplayProgress clamps a raw resolver progress to [0, 1].
func DisplayProgress(p float64) float64 {
	if math.IsNaN(p) {
		return 0
	}
	return max(0, min(p, 1))
}
