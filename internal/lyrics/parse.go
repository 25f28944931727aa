package lyrics

import (
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	lineTagRe = regexp.MustCompile(`^\[(\d{2}:\d{2}\.\d{2})\]`)
	endTagRe  = regexp.MustCompile(`\[(\d{2}:\d{2}\.\d{2})\]`)
	wordTokRe = regexp.MustCompile(`<(\d{2}:\d{2}\.\d{2})>([^<]+)`)
	bareTagRe = regexp.MustCompile(`^(\d{2}):(\d{2}\.\d{2})$`)
)

// ParseTimestamp converts "MM:SS.CC" (optionally wrapped in [] or <>) to seconds.
// SS.CC is read as one decimal number, so "05:30.50" is 330.5.
func ParseTimestamp(tag string) (float64, bool) {
	tag = strings.TrimSpace(tag)
	if len(tag) >= 2 {
		switch {
		case tag[0] == '[' && tag[len(tag)-1] == ']', tag[0] == '<' && tag[len(tag)-1] == '>':
			tag = tag[1 : len(tag)-1]
		}
	}
	m := bareTagRe.FindStringSubmatch(tag)
	if m == nil {
		return 0, false
	}
	minutes, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, false
	}
	return float64(minutes)*60 + seconds, true
}

// FormatTimestamp renders seconds as MM:SS.CC. Negative values are prefixed with "-".
func FormatTimestamp(seconds float64) string {
	sign := ""
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	cs := int64(math.Round(seconds * 100))
	return fmt.Sprintf("%s%02d:%02d.%02d", sign, cs/6000, (cs/100)%60, cs%100)
}

// Parse turns word-timed lyric text into lines. Rows without a leading
// [MM:SS.CC] tag are dropped. offset is added to every timestamp; each call
// starts from the raw text, so offsets never accumulate.
func Parse(text string, offset time.Duration) []Line {
	shift := offset.Seconds()
	var lines []Line
	for _, row := range strings.Split(text, "\n") {
		line, ok := parseLine(strings.TrimSpace(row))
		if !ok {
			continue
		}
		line.Timestamp += shift
		for i := range line.Words {
			line.Words[i].Timestamp += shift
		}
		lines = append(lines, line)
	}
	return lines
}

// ParseReader reads all of r and parses it. Only read errors are returned.
func ParseReader(r io.Reader, offset time.Duration) ([]Line, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read lyrics: %w", err)
	}
	return Parse(string(b), offset), nil
}

func parseLine(row string) (Line, bool) {
	m := lineTagRe.FindStringSubmatch(row)
	if m == nil {
		return Line{}, false
	}
	ts, ok := ParseTimestamp(m[1])
	if !ok {
		return Line{}, false
	}
	rest := strings.TrimSpace(row[len(m[0]):])

	var words []Word
	if IsInstrumentalText(rest) {
		w := Word{Text: rest, Timestamp: ts, Kind: KindInstrumental}
		if end := endTagRe.FindStringSubmatch(rest); end != nil {
			if endTs, ok := ParseTimestamp(end[1]); ok {
				w.span = endTs - ts
				w.hasSpan = true
			}
		}
		words = append(words, w)
	} else {
		for _, tok := range wordTokRe.FindAllStringSubmatch(rest, -1) {
			wts, ok := ParseTimestamp(tok[1])
			if !ok {
				continue
			}
			text := strings.TrimSpace(tok[2])
			if text == "" {
				continue
			}
			words = append(words, Word{Text: text, Timestamp: wts})
		}
	}

	texts := make([]string, len(words))
	for i, w := range words {
		texts[i] = w.Text
	}
	return Line{Timestamp: ts, Words: words, RawText: strings.Join(texts, " ")}, true
}
