package lyrics

import "strings"

// WordKind tags a Word as a regular lyric word or an instrumental marker.
type WordKind int

const (
	KindRegular WordKind = iota
	KindInstrumental
)

// Word is the smallest timed lyric unit.
type Word struct {
	Text      string
	Timestamp float64 // seconds from track start, offset applied
	Kind      WordKind

	span    float64
	hasSpan bool
}

// Span returns the explicit duration of an instrumental marker, if its source
// line carried an end tag. Regular words never have one.
func (w Word) Span() (float64, bool) {
	if w.Kind != KindInstrumental {
		return 0, false
	}
	return w.span, w.hasSpan
}

// Line is one timestamped lyric row.
type Line struct {
	Timestamp float64
	Words     []Word
	RawText   string
}

// IsInstrumentalText reports whether text marks a musical interlude.
func IsInstrumentalText(text string) bool {
	return strings.Contains(text, "♪") || strings.Contains(text, "INSTRUMENTAL")
}

// Instrumental reports whether the line is an instrumental marker.
func (l Line) Instrumental() bool {
	return IsInstrumentalText(l.RawText)
}

// Blank reports whether the line has no word text. Blank lines act as page breaks.
func (l Line) Blank() bool {
	return strings.TrimSpace(l.RawText) == ""
}
