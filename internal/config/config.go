package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Server
	Port     int
	SongsDir string

	// Lyrics
	MaxLines      int // lines per screen
	TickRate      int // resolver updates per second
	LyricOffsetMs int // applied when a song has no offset_ms of its own

	// Mixer gains (0 to 1.5)
	InstrumentalGain float64
	LeadGain         float64
	BackingGain      float64

	// Streaming
	OpusBitrate int // bits per second
	MP3Kbps     int
}

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory is applied first; real environment
// variables win over it.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:     envInt("SINGALONG_PORT", 8000),
		SongsDir: envStr("SINGALONG_SONGS_DIR", "songs"),

		MaxLines:      envInt("SINGALONG_MAX_LINES", 4),
		TickRate:      envInt("SINGALONG_TICK_RATE", 60),
		LyricOffsetMs: envInt("SINGALONG_LYRIC_OFFSET_MS", 0),

		InstrumentalGain: envFloat("SINGALONG_INSTRUMENTAL_GAIN", 1.0),
		LeadGain:         envFloat("SINGALONG_LEAD_GAIN", 1.0),
		BackingGain:      envFloat("SINGALONG_BACKING_GAIN", 1.0),

		OpusBitrate: envInt("SINGALONG_OPUS_BITRATE", 128000),
		MP3Kbps:     envInt("SINGALONG_MP3_KBPS", 192),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
