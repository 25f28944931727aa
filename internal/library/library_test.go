package library

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newLibrary(t *testing.T) *Library {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "bohemian-rhapsody", "lyrics.lrc"), "[00:01.00]<00:01.00>Is")
	writeFile(t, filepath.Join(root, "take-on-me", "lyrics.lrc"), "[00:01.00]<00:01.00>Talking")
	writeFile(t, filepath.Join(root, "take-on-me", "song.yaml"), `
title: Take On Me
artist: a-ha
offset_ms: -250
max_lines: 3
stems:
  lead: vox.wav
`)
	writeFile(t, filepath.Join(root, "no-lyrics", "no_vocals.wav"), "")
	writeFile(t, filepath.Join(root, ".hidden", "lyrics.lrc"), "")
	writeFile(t, filepath.Join(root, "README.txt"), "not a song")

	lib, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return lib
}

func TestOpenRejectsFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	writeFile(t, f, "")
	if _, err := Open(f); err == nil {
		t.Error("Open on a file should fail")
	}
	if _, err := Open(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Open on a missing dir should fail")
	}
}

func TestList(t *testing.T) {
	lib := newLibrary(t)
	entries, err := lib.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []Entry{
		{ID: "bohemian-rhapsody", Title: "bohemian rhapsody"},
		{ID: "no-lyrics", Title: "no lyrics"},
		{ID: "take-on-me", Title: "Take On Me"},
	}
	if len(entries) != len(want) {
		t.Fatalf("List() = %+v, want %+v", entries, want)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entries[%d] = %+v, want %+v", i, entries[i], want[i])
		}
	}
}

func TestListEmpty(t *testing.T) {
	lib, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	entries, err := lib.List()
	if err != nil || entries == nil || len(entries) != 0 {
		t.Errorf("List() = %v, %v; want empty non-nil slice", entries, err)
	}
}

func TestLoadDefaults(t *testing.T) {
	lib := newLibrary(t)
	s, err := lib.Load("bohemian-rhapsody")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Title() != "bohemian rhapsody" {
		t.Errorf("Title() = %q", s.Title())
	}
	if filepath.Base(s.InstrumentalPath) != "no_vocals.wav" ||
		filepath.Base(s.LeadPath) != "lead_vocals.wav" ||
		filepath.Base(s.BackingPath) != "backing_vocals.wav" {
		t.Errorf("stem paths = %s, %s, %s", s.InstrumentalPath, s.LeadPath, s.BackingPath)
	}
	if off, ok := s.Offset(); ok || off != 0 {
		t.Errorf("Offset() = %v, %v; want 0, false", off, ok)
	}
	text, err := s.Lyrics()
	if err != nil || text != "[00:01.00]<00:01.00>Is" {
		t.Errorf("Lyrics() = %q, %v", text, err)
	}
}

func TestLoadWithMeta(t *testing.T) {
	lib := newLibrary(t)
	s, err := lib.Load("take-on-me")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Title() != "Take On Me" || s.Meta.Artist != "a-ha" {
		t.Errorf("meta = %+v", s.Meta)
	}
	if off, ok := s.Offset(); !ok || off != -250*time.Millisecond {
		t.Errorf("Offset() = %v, %v; want -250ms, true", off, ok)
	}
	if s.Meta.MaxLines != 3 {
		t.Errorf("MaxLines = %d, want 3", s.Meta.MaxLines)
	}
	if filepath.Base(s.LeadPath) != "vox.wav" {
		t.Errorf("LeadPath = %s, want vox.wav", s.LeadPath)
	}
}

func TestLoadExplicitZeroOffset(t *testing.T) {
	lib := newLibrary(t)
	writeFile(t, filepath.Join(lib.Root(), "in-sync", "lyrics.lrc"), "[00:01.00]<00:01.00>On")
	writeFile(t, filepath.Join(lib.Root(), "in-sync", "song.yaml"), "offset_ms: 0\n")
	s, err := lib.Load("in-sync")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if off, ok := s.Offset(); !ok || off != 0 {
		t.Errorf("Offset() = %v, %v; want 0, true", off, ok)
	}
}

func TestLoadErrors(t *testing.T) {
	lib := newLibrary(t)
	tests := []struct {
		id   string
		want error
	}{
		{"missing", ErrNotFound},
		{"no-lyrics", ErrNoLyrics},
		{"../etc", ErrInvalidID},
		{"..", ErrInvalidID},
		{".hidden", ErrInvalidID},
		{"", ErrInvalidID},
		{`a\b`, ErrInvalidID},
	}
	for _, tt := range tests {
		if _, err := lib.Load(tt.id); !errors.Is(err, tt.want) {
			t.Errorf("Load(%q) error = %v, want %v", tt.id, err, tt.want)
		}
	}
}

func TestLoadBadMeta(t *testing.T) {
	lib := newLibrary(t)
	writeFile(t, filepath.Join(lib.Root(), "broken", "lyrics.lrc"), "")
	writeFile(t, filepath.Join(lib.Root(), "broken", "song.yaml"), "title: [unterminated")
	if _, err := lib.Load("broken"); err == nil {
		t.Error("Load with malformed song.yaml should fail")
	}
}
