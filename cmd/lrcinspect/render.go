package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/satindergrewal/singalong/internal/highlight"
	"github.com/satindergrewal/singalong/internal/lyrics"
	"github.com/satindergrewal/singalong/internal/screens"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#94a3b8"))

	screenStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fde68a"))

	activeScreenStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#fde68a"))

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a"))

	lineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d4d4d8"))

	sungStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bae6fd"))

	wordStyle = lipgloss.NewStyle().
			Bold(true).
			Underline(true).
			Foreground(lipgloss.Color("#4ade80"))

	instrumentalStyle = lipgloss.NewStyle().
				Italic(true).
				Foreground(lipgloss.Color("#c4b5fd"))
)

// render prints every screen of tl. When at is non-nil the active screen,
// line and word at that time are highlighted and summarised.
func render(w io.Writer, name string, tl *screens.Timeline, at *float64) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s: %d lines, %d screens, offset %v, ends %s",
		name, len(tl.Lines), len(tl.Screens), tl.Offset, lyrics.FormatTimestamp(tl.Duration()))))

	var (
		res screens.Resolution
		ok  bool
	)
	if at != nil {
		res, ok = tl.At(*at)
	}

	for si, s := range tl.Screens {
		active := ok && res.ScreenIndex == si
		header := fmt.Sprintf("Screen %d  [%s, %s)", si+1,
			lyrics.FormatTimestamp(s.Start), lyrics.FormatTimestamp(s.End))
		if s.Instrumental {
			header += "  instrumental"
		}
		if active {
			fmt.Fprintln(w, activeScreenStyle.Render("> "+header))
		} else {
			fmt.Fprintln(w, screenStyle.Render("  "+header))
		}

		for li, l := range s.Lines {
			stamp := timeStyle.Render(lyrics.FormatTimestamp(l.Timestamp))
			var text string
			switch {
			case l.Instrumental():
				text = instrumentalStyle.Render(l.RawText)
			case active && res.LineIndex == li:
				text = renderWords(l, res.Word)
			default:
				text = lineStyle.Render(l.RawText)
			}
			fmt.Fprintf(w, "    %s  %s\n", stamp, text)
		}
	}

	if at != nil {
		fmt.Fprintln(w, summary(*at, res, ok))
	}
}

// renderWords styles words already sung, the active word, and the rest.
func renderWords(l lyrics.Line, active *screens.ActiveWord) string {
	parts := make([]string, len(l.Words))
	for i, word := range l.Words {
		switch {
		case active != nil && i == active.Index:
			parts[i] = wordStyle.Render(word.Text)
		case active != nil && i < active.Index:
			parts[i] = sungStyle.Render(word.Text)
		default:
			parts[i] = lineStyle.Render(word.Text)
		}
	}
	return strings.Join(parts, " ")
}

func summary(at float64, res screens.Resolution, ok bool) string {
	head := fmt.Sprintf("at %s: ", lyrics.FormatTimestamp(at))
	if !ok {
		return titleStyle.Render(head + "no screen")
	}
	s := fmt.Sprintf("screen %d", res.ScreenIndex+1)
	if res.LineIndex >= 0 {
		s += fmt.Sprintf(", line %d", res.LineIndex+1)
	}
	if res.Word != nil {
		s += fmt.Sprintf(", word %q for %.2fs", res.Word.Text, res.Word.Duration)
	}
	if res.Screen.Instrumental {
		s += fmt.Sprintf(", %.0f%% through", highlight.DisplayProgress(res.Progress)*100)
	}
	return titleStyle.Render(head + s)
}
