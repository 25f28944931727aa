package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/satindergrewal/singalong/internal/audio"
	"github.com/satindergrewal/singalong/internal/library"
	"github.com/satindergrewal/singalong/internal/lyrics"
	"github.com/satindergrewal/singalong/internal/screens"
	"github.com/satindergrewal/singalong/internal/session"
)

// api serves the control and query endpoints under /api/.
type api struct {
	ctx     context.Context
	lib     *library.Library
	player  *audio.Player
	session *session.Session

	// listeners reports connected stream clients for /api/status.
	listeners func() map[string]int
}

func (a *api) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /songs", a.handleSongIDs)
	mux.HandleFunc("GET /api/songs", a.handleSongs)
	mux.HandleFunc("POST /api/load", a.handleLoad)
	mux.HandleFunc("POST /api/play", a.handlePlay)
	mux.HandleFunc("POST /api/pause", a.handlePause)
	mux.HandleFunc("POST /api/stop", a.handleStop)
	mux.HandleFunc("POST /api/seek", a.handleSeek)
	mux.HandleFunc("POST /api/volume", a.handleVolume)
	mux.HandleFunc("POST /api/offset", a.handleOffset)
	mux.HandleFunc("GET /api/status", a.handleStatus)
	mux.HandleFunc("GET /api/screens", a.handleScreens)
	mux.HandleFunc("GET /api/resolve", a.handleResolve)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(v)
}

func (a *api) handleSongs(w http.ResponseWriter, r *http.Request) {
	songs, err := a.lib.List()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"songs": songs})
}

// handleSongIDs lists bare folder names, the form the browser client expects.
func (a *api) handleSongIDs(w http.ResponseWriter, r *http.Request) {
	songs, err := a.lib.List()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	ids := make([]string, len(songs))
	for i, s := range songs {
		ids[i] = s.ID
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, ids)
}

func (a *api) handleLoad(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		http.Error(w, "invalid song id", http.StatusBadRequest)
		return
	}

	song, err := a.lib.Load(req.ID)
	switch {
	case errors.Is(err, library.ErrInvalidID):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, library.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, library.ErrNoLyrics):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// an unreadable lyric file must leave the current song untouched
	text, err := song.Lyrics()
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	a.player.Stop()
	set := audio.StemSet{ID: song.ID, Title: song.Title()}
	set.Paths[audio.StemInstrumental] = song.InstrumentalPath
	set.Paths[audio.StemLead] = song.LeadPath
	set.Paths[audio.StemBacking] = song.BackingPath
	if err := a.player.Load(a.ctx, set); err != nil {
		log.Printf("Load %s failed: %v", song.ID, err)
		http.Error(w, "load stems failed", http.StatusInternalServerError)
		return
	}
	a.session.LoadText(song, text)
	log.Printf("Now playing: %s", song.Title())
	writeJSON(w, map[string]any{"ok": true, "song": a.session.Status()})
}

func (a *api) handlePlay(w http.ResponseWriter, r *http.Request) {
	if err := a.player.Play(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

func (a *api) handlePause(w http.ResponseWriter, r *http.Request) {
	a.player.Pause()
	writeJSON(w, map[string]any{"ok": true})
}

func (a *api) handleStop(w http.ResponseWriter, r *http.Request) {
	a.player.Stop()
	writeJSON(w, map[string]any{"ok": true})
}

func (a *api) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Position float64 `json:"position"` // seconds
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	a.player.SeekSeconds(req.Position)
	writeJSON(w, map[string]any{"ok": true, "position": a.player.Position().Seconds()})
}

func (a *api) handleVolume(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Stem string  `json:"stem"`
		Gain float64 `json:"gain"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	stem, err := audio.ParseStem(req.Stem)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := a.player.SetGain(stem, req.Gain); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{"ok": true, "gains": a.player.Status().Gains})
}

func (a *api) handleOffset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OffsetMs *int `json:"offset_ms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OffsetMs == nil {
		http.Error(w, "offset_ms required", http.StatusBadRequest)
		return
	}
	if err := a.session.SetOffset(*req.OffsetMs); err != nil {
		if errors.Is(err, session.ErrNoSong) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"ok": true, "offset_ms": a.session.Offset().Milliseconds()})
}

func (a *api) handleStatus(w http.ResponseWriter, r *http.Request) {
	ps := a.player.Status()
	resp := map[string]any{
		"song_id":  ps.ID,
		"title":    ps.Title,
		"playing":  ps.Playing,
		"position": ps.Position.Seconds(),
		"duration": ps.Duration.Seconds(),
		"gains":    ps.Gains,
		"lyrics":   a.session.Status(),
	}
	if a.listeners != nil {
		resp["listeners"] = a.listeners()
	}
	writeJSON(w, resp)
}

type wordView struct {
	Text         string  `json:"text"`
	Time         float64 `json:"time"`
	Instrumental bool    `json:"instrumental,omitempty"`
}

type lineView struct {
	Time  float64    `json:"time"`
	Text  string     `json:"text"`
	Words []wordView `json:"words"`
}

type screenView struct {
	Start        float64    `json:"start"`
	End          float64    `json:"end"`
	Instrumental bool       `json:"instrumental,omitempty"`
	Lines        []lineView `json:"lines"`
}

func viewScreens(ss []screens.Screen) []screenView {
	out := make([]screenView, len(ss))
	for i, s := range ss {
		sv := screenView{Start: s.Start, End: s.End, Instrumental: s.Instrumental, Lines: make([]lineView, len(s.Lines))}
		for j, l := range s.Lines {
			lv := lineView{Time: l.Timestamp, Text: l.RawText, Words: make([]wordView, len(l.Words))}
			for k, w := range l.Words {
				lv.Words[k] = wordView{Text: w.Text, Time: w.Timestamp, Instrumental: w.Kind == lyrics.KindInstrumental}
			}
			sv.Lines[j] = lv
		}
		out[i] = sv
	}
	return out
}

func (a *api) handleScreens(w http.ResponseWriter, r *http.Request) {
	tl := a.session.Timeline()
	if tl == nil {
		http.Error(w, session.ErrNoSong.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{
		"offset_ms": tl.Offset.Milliseconds(),
		"max_lines": tl.MaxLines,
		"duration":  tl.Duration(),
		"screens":   viewScreens(tl.Screens),
	})
}

func (a *api) handleResolve(w http.ResponseWriter, r *http.Request) {
	t, err := strconv.ParseFloat(r.URL.Query().Get("t"), 64)
	if err != nil {
		http.Error(w, "t must be a number of seconds", http.StatusBadRequest)
		return
	}
	res, ok := a.session.Resolve(t)
	resp := map[string]any{"t": t, "ok": ok}
	if ok {
		resp["screen"] = res.ScreenIndex
		resp["line"] = res.LineIndex
		resp["progress"] = res.Progress
		if res.Word != nil {
			resp["word"] = map[string]any{
				"index":    res.Word.Index,
				"text":     res.Word.Text,
				"time":     res.Word.Timestamp,
				"duration": res.Word.Duration,
			}
		}
	}
	writeJSON(w, resp)
}
