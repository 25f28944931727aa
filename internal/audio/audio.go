package audio

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	SampleRate    = 48000
	Channels      = 2
	BitDepth      = 16
	FrameDuration = 20 * time.Millisecond
	FrameSize     = 960                  // samples per channel per 20ms frame
	FrameSamples  = FrameSize * Channels // total interleaved samples per frame
	FrameBytes    = FrameSamples * 2     // bytes per frame (int16 = 2 bytes)
)

// Stem identifies one of the separated tracks of a song.
type Stem int

const (
	StemInstrumental Stem = iota
	StemLead
	StemBacking
	NumStems
)

var ErrUnknownStem = errors.New("unknown stem")

var stemNames = [NumStems]string{"instrumental", "lead", "backing"}

func (s Stem) String() string {
	if s < 0 || s >= NumStems {
		return fmt.Sprintf("stem(%d)", int(s))
	}
	return stemNames[s]
}

// ParseStem maps a stem name ("instrumental", "lead", "backing") to a Stem.
func ParseStem(name string) (Stem, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range stemNames {
		if n == name {
			return Stem(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStem, name)
}

// StemSet identifies a song's stems for the player.
type StemSet struct {
	ID    string
	Title string
	Paths [NumStems]string
}
