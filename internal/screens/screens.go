// Package screens paginates parsed lyric lines into display screens and
// resolves which screen, line and word is active at a playback time.
//
// Both operations are pure functions of their inputs. A screen list is built
// once per lyric load or offset change and then queried once per tick.
package screens

import "github.com/satindergrewal/singalong/internal/lyrics"

const (
	DefaultMaxLines     = 4
	TrailingPad         = 5.0 // seconds added after the last line of a final screen
	DefaultWordDuration = 0.5
	MinWordDuration     = 0.1
	MaxWordDuration     = 5.0
)

// Screen is a contiguous window of lines displayed together.
type Screen struct {
	Lines        []lyrics.Line
	Start        float64
	End          float64
	Instrumental bool
}

// Contains reports whether t falls in the half-open interval [Start, End).
func (s Screen) Contains(t float64) bool {
	return s.Start <= t && t < s.End
}

// Generate partitions lines into screens of at most maxLines lines.
// Instrumental lines get a screen of their own and blank lines force a page
// break without becoming part of any screen.
func Generate(lines []lyrics.Line, maxLines int) []Screen {
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}

	var (
		out     []Screen
		pending []lyrics.Line
	)
	flush := func(end float64) {
		out = append(out, Screen{
			Lines: pending,
			Start: pending[0].Timestamp,
			End:   end,
		})
		pending = nil
	}

	for i, line := range lines {
		if line.Instrumental() {
			if len(pending) > 0 {
				flush(line.Timestamp)
			}
			end := line.Timestamp + TrailingPad
			if i < len(lines)-1 {
				end = lines[i+1].Timestamp
			}
			out = append(out, Screen{
				Lines:        []lyrics.Line{line},
				Start:        line.Timestamp,
				End:          end,
				Instrumental: true,
			})
			continue
		}

		if line.Blank() {
			if len(pending) > 0 {
				end := pending[len(pending)-1].Timestamp + TrailingPad
				if next, ok := nextNonBlank(lines[i+1:]); ok {
					end = next.Timestamp
				}
				flush(end)
			}
			continue
		}

		pending = append(pending, line)
		if len(pending) >= maxLines || i == len(lines)-1 {
			end := line.Timestamp + TrailingPad
			if i < len(lines)-1 {
				end = lines[i+1].Timestamp
			}
			flush(end)
		}
	}

	if len(pending) > 0 {
		flush(pending[len(pending)-1].Timestamp + TrailingPad)
	}
	return out
}

func nextNonBlank(lines []lyrics.Line) (lyrics.Line, bool) {
	for _, l := range lines {
		if !l.Blank() {
			return l, true
		}
	}
	return lyrics.Line{}, false
}
