// Command lrcinspect prints how a word-timed lyric file paginates into
// screens and, with -at, what would be highlighted at a given time.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/satindergrewal/singalong/internal/screens"
)

func main() {
	offsetMs := flag.Int("offset", 0, "lyric offset in milliseconds (positive delays lyrics)")
	maxLines := flag.Int("lines", screens.DefaultMaxLines, "maximum lines per screen")
	at := flag.Float64("at", -1, "resolve the highlight at this many seconds (negative to skip)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: lrcinspect [-offset ms] [-lines n] [-at seconds] file.lrc\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	b, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("read lyrics: %v", err)
	}
	tl := screens.NewTimeline(string(b), time.Duration(*offsetMs)*time.Millisecond, *maxLines)

	var query *float64
	if *at >= 0 {
		query = at
	}
	render(os.Stdout, flag.Arg(0), tl, query)
}
