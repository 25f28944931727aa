package screens

import (
	"time"

	"github.com/satindergrewal/singalong/internal/lyrics"
)

// Timeline bundles parsed lines with the screens derived from them.
// It is never modified after construction; rebuild it to change offset.
type Timeline struct {
	Lines    []lyrics.Line
	Screens  []Screen
	Offset   time.Duration
	MaxLines int
}

// NewTimeline parses text with offset and paginates the result.
func NewTimeline(text string, offset time.Duration, maxLines int) *Timeline {
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}
	lines := lyrics.Parse(text, offset)
	return &Timeline{
		Lines:    lines,
		Screens:  Generate(lines, maxLines),
		Offset:   offset,
		MaxLines: maxLines,
	}
}

// At resolves the highlight state at t seconds.
func (tl *Timeline) At(t float64) (Resolution, bool) {
	if tl == nil {
		return Resolution{}, false
	}
	return Resolve(tl.Screens, t)
}

// Duration returns the end of the last screen in seconds, or 0 when empty.
func (tl *Timeline) Duration() float64 {
	if tl == nil || len(tl.Screens) == 0 {
		return 0
	}
	return tl.Screens[len(tl.Screens)-1].End
}
