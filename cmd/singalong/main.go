package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/satindergrewal/singalong/internal/audio"
	"github.com/satindergrewal/singalong/internal/config"
	"github.com/satindergrewal/singalong/internal/highlight"
	"github.com/satindergrewal/singalong/internal/library"
	"github.com/satindergrewal/singalong/internal/session"
	"github.com/satindergrewal/singalong/internal/stream"
)

func main() {
	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Println("singalong starting up...")

	lib, err := library.Open(cfg.SongsDir)
	if err != nil {
		log.Fatalf("Song library not available: %v", err)
	}

	// Stem player: its frame clock drives the lyrics
	player := audio.NewPlayer([audio.NumStems]float64{
		audio.StemInstrumental: cfg.InstrumentalGain,
		audio.StemLead:         cfg.LeadGain,
		audio.StemBacking:      cfg.BackingGain,
	})
	go player.Run(ctx)

	// Broadcasters: fan-out PCM frames and lyric events to all listeners
	frames := stream.NewFrameBroadcaster()
	go frames.Run(ctx, player.Frames())

	sess := session.New(player, session.Config{
		MaxLines:      cfg.MaxLines,
		TickRate:      cfg.TickRate,
		DefaultOffset: time.Duration(cfg.LyricOffsetMs) * time.Millisecond,
	})
	go sess.Run(ctx)

	events := stream.NewBroadcaster[[]highlight.Event](64)
	go events.Run(ctx, sess.Events())

	webrtcHandler := stream.NewWebRTCHandler(frames, events, sess.Snapshot, cfg.OpusBitrate)

	mux := http.NewServeMux()

	// Audio and lyric streams
	mux.Handle("/stream", stream.NewHTTPHandler(frames, cfg.MP3Kbps))
	mux.Handle("/offer", webrtcHandler)
	mux.Handle("/events", stream.NewEventsHandler(events, sess.Snapshot))

	// Song assets (stems, lyrics, artwork) for clients that play locally
	mux.Handle("/songs/", http.StripPrefix("/songs/", http.FileServer(http.Dir(lib.Root()))))

	a := &api{
		ctx:     ctx,
		lib:     lib,
		player:  player,
		session: sess,
		listeners: func() map[string]int {
			return map[string]int{
				"http":   max(0, frames.ListenerCount()-webrtcHandler.PeerCount()),
				"webrtc": webrtcHandler.PeerCount(),
				"lyrics": events.ListenerCount(),
			}
		},
	}
	a.register(mux)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		server.Close()
	}()

	log.Printf("singalong live on %s (songs: %s)", addr, lib.Root())
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("HTTP server error: %v", err)
	}
}
