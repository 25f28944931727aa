// Package session ties the playback clock to the lyric timeline.
//
// A Session owns the current song's Timeline behind an atomic pointer. Loading
// a song or changing the lyric offset builds a new Timeline and swaps it in
// whole, so the tick loop never sees a half-built one. Each tick reads the
// clock, resolves, and publishes the tracker's transitions as one batch.
package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/satindergrewal/singalong/internal/highlight"
	"github.com/satindergrewal/singalong/internal/library"
	"github.com/satindergrewal/singalong/internal/screens"
)

var ErrNoSong = errors.New("no song loaded")

// Clock reports the playback position.
type Clock interface {
	Position() time.Duration
}

// Config holds session parameters.
type Config struct {
	MaxLines      int           // lines per screen unless the song overrides it
	TickRate      int           // resolver updates per second
	DefaultOffset time.Duration // used when a song has no offset of its own
}

// Status is the current state of the session.
type Status struct {
	SongID   string  `json:"song_id"`
	Title    string  `json:"title"`
	Artist   string  `json:"artist,omitempty"`
	OffsetMs int64   `json:"offset_ms"`
	MaxLines int     `json:"max_lines"`
	Position float64 `json:"position"` // seconds
	Duration float64 `json:"lyrics_duration"`
	Screens  int     `json:"screens"`
	State    string  `json:"state"`
	Screen   int     `json:"screen"`
	Line     int     `json:"line"`
	Word     int     `json:"word"`
}

// Session resolves the highlight state of the loaded song on every tick.
type Session struct {
	clock   Clock
	cfg     Config
	eventCh chan []highlight.Event

	timeline atomic.Pointer[screens.Timeline]

	mu       sync.RWMutex
	song     *library.Song
	text     string
	maxLines int
	state    highlight.State
	screen   int
	line     int
	word     int
}

// New creates a session reading positions from clock.
func New(clock Clock, cfg Config) *Session {
	if cfg.MaxLines <= 0 {
		cfg.MaxLines = screens.DefaultMaxLines
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = 60
	}
	return &Session{
		clock:   clock,
		cfg:     cfg,
		eventCh: make(chan []highlight.Event, 64),
		screen:  -1,
		line:    -1,
		word:    -1,
	}
}

// Events returns the channel of per-tick event batches.
func (s *Session) Events() <-chan []highlight.Event {
	return s.eventCh
}

// Load reads song's lyrics and makes it the current song.
func (s *Session) Load(song *library.Song) error {
	text, err := song.Lyrics()
	if err != nil {
		return err
	}
	s.LoadText(song, text)
	return nil
}

// LoadText makes song current with lyrics already read by the caller.
func (s *Session) LoadText(song *library.Song, text string) {
	offset, ok := song.Offset()
	if !ok {
		offset = s.cfg.DefaultOffset
	}
	maxLines := s.cfg.MaxLines
	if song.Meta.MaxLines > 0 {
		maxLines = song.Meta.MaxLines
	}

	tl := screens.NewTimeline(text, offset, maxLines)

	s.mu.Lock()
	s.song = song
	s.text = text
	s.maxLines = maxLines
	s.timeline.Store(tl)
	s.mu.Unlock()

	log.Printf("Lyrics loaded: %s (%d lines, %d screens, offset %v)", song.ID, len(tl.Lines), len(tl.Screens), offset)
}

// SetOffset re-parses the current lyrics with a new offset in milliseconds.
// Positive values delay the lyrics.
func (s *Session) SetOffset(ms int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.song == nil {
		return ErrNoSong
	}
	offset := time.Duration(ms) * time.Millisecond
	s.timeline.Store(screens.NewTimeline(s.text, offset, s.maxLines))
	log.Printf("Lyric offset set to %dms", ms)
	return nil
}

// Offset returns the offset of the current timeline.
func (s *Session) Offset() time.Duration {
	if tl := s.timeline.Load(); tl != nil {
		return tl.Offset
	}
	return 0
}

// Timeline returns the current timeline, or nil before the first Load.
func (s *Session) Timeline() *screens.Timeline {
	return s.timeline.Load()
}

// Resolve answers a one-off query at t seconds against the current timeline.
func (s *Session) Resolve(t float64) (screens.Resolution, bool) {
	return s.timeline.Load().At(t)
}

// Snapshot returns the events that draw the current state from scratch.
func (s *Session) Snapshot() []highlight.Event {
	tl := s.timeline.Load()
	if tl == nil {
		return nil
	}
	pos := s.clock.Position().Seconds()
	res, ok := tl.At(pos)
	events := []highlight.Event{{Type: highlight.EventReset, Time: pos}}
	return append(events, highlight.NewTracker().Update(res, ok, pos)...)
}

// Status returns the current session state.
func (s *Session) Status() Status {
	tl := s.timeline.Load()

	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{
		Position: s.clock.Position().Seconds(),
		State:    s.state.String(),
		Screen:   s.screen,
		Line:     s.line,
		Word:     s.word,
	}
	if s.song != nil {
		st.SongID = s.song.ID
		st.Title = s.song.Title()
		st.Artist = s.song.Meta.Artist
	}
	if tl != nil {
		st.OffsetMs = tl.Offset.Milliseconds()
		st.MaxLines = tl.MaxLines
		st.Duration = tl.Duration()
		st.Screens = len(tl.Screens)
	}
	return st
}

// Run resolves the clock position at TickRate and publishes changes.
// Blocks until ctx is cancelled.
func (s *Session) Run(ctx context.Context) {
	defer close(s.eventCh)

	ticker := time.NewTicker(time.Second / time.Duration(s.cfg.TickRate))
	defer ticker.Stop()

	log.Printf("Lyric session started at %d Hz", s.cfg.TickRate)

	tracker := highlight.NewTracker()
	var shown *screens.Timeline

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		var batch []highlight.Event
		tl := s.timeline.Load()
		pos := s.clock.Position().Seconds()

		if tl != shown {
			tracker.Reset()
			shown = tl
			batch = append(batch, highlight.Event{Type: highlight.EventReset, Time: pos})
		}
		if tl != nil {
			res, ok := tl.At(pos)
			batch = append(batch, tracker.Update(res, ok, pos)...)
			if ok {
				s.record(tracker.State(), res)
			}
		}

		if len(batch) == 0 {
			continue
		}
		select {
		case s.eventCh <- batch:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Session) record(state highlight.State, res screens.Resolution) {
	word := -1
	if res.Word != nil {
		word = res.Word.Index
	}
	s.mu.Lock()
	s.state = state
	s.screen, s.line, s.word = res.ScreenIndex, res.LineIndex, word
	s.mu.Unlock()
}

