package library

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrNotFound  = errors.New("song not found")
	ErrNoLyrics  = errors.New("song has no lyrics file")
	ErrInvalidID = errors.New("invalid song id")
)

const (
	metaFile        = "song.yaml"
	lyricsFile      = "lyrics.lrc"
	instrumentalWAV = "no_vocals.wav"
	leadWAV         = "lead_vocals.wav"
	backingWAV      = "backing_vocals.wav"
)

// Meta is the optional per-song song.yaml.
type Meta struct {
	Title    string `yaml:"title"`
	Artist   string `yaml:"artist"`
	OffsetMs *int   `yaml:"offset_ms"` // nil when the key is absent
	MaxLines int    `yaml:"max_lines"`
	Lyrics   string `yaml:"lyrics"`

	Stems struct {
		Instrumental string `yaml:"instrumental"`
		Lead         string `yaml:"lead"`
		Backing      string `yaml:"backing"`
	} `yaml:"stems"`
}

// Entry is one row of the song list.
type Entry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Song is a resolved song folder.
type Song struct {
	ID   string
	Dir  string
	Meta Meta

	InstrumentalPath string
	LeadPath         string
	BackingPath      string
	LyricsPath       string
}

// Title returns the song.yaml title or the id with dashes turned into spaces.
func (s *Song) Title() string {
	if s.Meta.Title != "" {
		return s.Meta.Title
	}
	return DisplayName(s.ID)
}

// Offset returns the song's own lyric offset. ok is false when song.yaml
// does not set offset_ms; an explicit 0 is a set offset.
func (s *Song) Offset() (offset time.Duration, ok bool) {
	if s.Meta.OffsetMs == nil {
		return 0, false
	}
	return time.Duration(*s.Meta.OffsetMs) * time.Millisecond, true
}

// Lyrics reads the song's lyric text.
func (s *Song) Lyrics() (string, error) {
	b, err := os.ReadFile(s.LyricsPath)
	if err != nil {
		return "", fmt.Errorf("read lyrics %s: %w", s.ID, err)
	}
	return string(b), nil
}

// Library lists and loads songs from one directory.
type Library struct {
	root string
}

// Open returns a library rooted at dir.
func Open(dir string) (*Library, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open library: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("open library: %s is not a directory", dir)
	}
	return &Library{root: dir}, nil
}

// Root returns the library directory.
func (l *Library) Root() string {
	return l.root
}

// DisplayName turns a folder name into a label.
func DisplayName(id string) string {
	return strings.ReplaceAll(id, "-", " ")
}

// List returns the song folders, skipping hidden ones, sorted by id.
func (l *Library) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, fmt.Errorf("list songs: %w", err)
	}
	entries := []Entry{}
	for _, de := range dirEntries {
		if !de.IsDir() || strings.HasPrefix(de.Name(), ".") {
			continue
		}
		e := Entry{ID: de.Name(), Title: DisplayName(de.Name())}
		if m, err := readMeta(filepath.Join(l.root, de.Name())); err == nil && m.Title != "" {
			e.Title = m.Title
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

// Load resolves the files of song id.
func (l *Library) Load(id string) (*Song, error) {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	dir := filepath.Join(l.root, id)
	fi, err := os.Stat(dir)
	if err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	meta, err := readMeta(dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	s := &Song{
		ID:               id,
		Dir:              dir,
		Meta:             meta,
		InstrumentalPath: filepath.Join(dir, orDefault(meta.Stems.Instrumental, instrumentalWAV)),
		LeadPath:         filepath.Join(dir, orDefault(meta.Stems.Lead, leadWAV)),
		BackingPath:      filepath.Join(dir, orDefault(meta.Stems.Backing, backingWAV)),
		LyricsPath:       filepath.Join(dir, orDefault(meta.Lyrics, lyricsFile)),
	}
	if _, err := os.Stat(s.LyricsPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoLyrics, id)
	}
	return s, nil
}

func readMeta(dir string) (Meta, error) {
	var m Meta
	b, err := os.ReadFile(filepath.Join(dir, metaFile))
	if err != nil {
		return m, err
	}
	if err := yaml.Unmarshal(b, &m); err != nil {
		return Meta{}, fmt.Errorf("parse %s in %s: %w", metaFile, filepath.Base(dir), err)
	}
	return m, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return filepath.Base(v)
}
