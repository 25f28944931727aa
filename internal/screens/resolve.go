package screens

import "github.com/satindergrewal/singalong/internal/lyrics"

// ActiveWord is the word highlighted at a query time.
type ActiveWord struct {
	lyrics.Word
	Index    int     // position within its line
	Duration float64 // seconds the highlight should take, clamped
}

// Resolution is the answer to a per-tick query.
type Resolution struct {
	Screen      *Screen
	ScreenIndex int
	LineIndex   int         // -1 when no word has started yet on this screen
	Word        *ActiveWord // nil when LineIndex is -1
	Progress    float64     // instrumental screens only, not clamped
}

// Resolve finds the active screen, line and word at time t (seconds).
//
// At t <= 0 the first screen is returned with nothing highlighted. Otherwise
// ok is false when t is outside every screen, including gaps left by the
// synthetic trailing pad, and the caller should leave its display unchanged.
func Resolve(screens []Screen, t float64) (Resolution, bool) {
	if len(screens) == 0 {
		return Resolution{}, false
	}
	if t <= 0 {
		return Resolution{Screen: &screens[0], ScreenIndex: 0, LineIndex: -1}, true
	}

	idx := -1
	for i := range screens {
		if screens[i].Contains(t) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Resolution{}, false
	}
	screen := &screens[idx]
	res := Resolution{Screen: screen, ScreenIndex: idx, LineIndex: -1}

	var (
		found            bool
		latest           float64
		lineIdx, wordIdx int
	)
	for li, line := range screen.Lines {
		for wi, w := range line.Words {
			if w.Timestamp > t {
				continue
			}
			// strict: the first of two identically timed words keeps the highlight
			if !found || w.Timestamp > latest {
				found = true
				latest = w.Timestamp
				lineIdx, wordIdx = li, wi
			}
		}
	}

	if found {
		w := screen.Lines[lineIdx].Words[wordIdx]
		res.LineIndex = lineIdx
		res.Word = &ActiveWord{
			Word:     w,
			Index:    wordIdx,
			Duration: wordDuration(screens, idx, lineIdx, wordIdx),
		}
	}

	if screen.Instrumental {
		res.Progress = (t - screen.Start) / (screen.End - screen.Start)
	}
	return res, true
}

// wordDuration infers how long the word at (screen, line, word) stays active.
func wordDuration(screens []Screen, si, li, wi int) float64 {
	w := screens[si].Lines[li].Words[wi]
	if span, ok := w.Span(); ok {
		return clamp(span)
	}
	next, ok := nextWordTime(screens, si, li, wi)
	if !ok {
		return clamp(DefaultWordDuration)
	}
	return clamp(next - w.Timestamp)
}

func nextWordTime(screens []Screen, si, li, wi int) (float64, bool) {
	lines := screens[si].Lines
	if words := lines[li].Words; wi < len(words)-1 {
		return words[wi+1].Timestamp, true
	}
	for _, l := range lines[li+1:] {
		if len(l.Words) > 0 {
			return l.Words[0].Timestamp, true
		}
	}
	if si < len(screens)-1 {
		for _, l := range screens[si+1].Lines {
			if len(l.Words) > 0 {
				return l.Words[0].Timestamp, true
			}
		}
	}
	return 0, false
}

func clamp(d float64) float64 {
	return max(MinWordDuration, min(d, MaxWordDuration))
}
