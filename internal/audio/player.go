package audio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"sync"
	"time"
)

// MaxGain is the upper bound accepted by SetGain.
const MaxGain = 1.5

var ErrNotLoaded = errors.New("no song loaded")

// PlayerStatus is a snapshot of the player.
type PlayerStatus struct {
	ID       string             `json:"id"`
	Title    string             `json:"title"`
	Playing  bool               `json:"playing"`
	Position time.Duration      `json:"position"`
	Duration time.Duration      `json:"duration"`
	Gains    map[string]float64 `json:"gains"`
}

// Player mixes a song's stems and outputs PCM frames at real-time rate.
// Its frame counter is the playback clock.
type Player struct {
	frameCh chan []int16

	mu      sync.RWMutex
	set     StemSet
	stems   [NumStems][]int16
	gains   [NumStems]float64
	applied [NumStems]float64
	frame   int
	total   int
	playing bool
}

// NewPlayer creates a player with the given initial stem gains.
func NewPlayer(gains [NumStems]float64) *Player {
	p := &Player{frameCh: make(chan []int16, 100)}
	for i, g := range gains {
		p.gains[i] = clampGain(g)
	}
	p.applied = p.gains
	return p
}

// Frames returns the channel of outgoing PCM frames (20ms each).
func (p *Player) Frames() <-chan []int16 {
	return p.frameCh
}

// Load decodes the stems of set and makes it the current song, stopped at 0.
// A missing stem file plays as silence; at least one stem must decode.
func (p *Player) Load(ctx context.Context, set StemSet) error {
	var (
		wg      sync.WaitGroup
		decoded [NumStems][]int16
		errs    [NumStems]error
	)
	for i, path := range set.Paths {
		if path == "" {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				log.Printf("Stem %s missing for %s, playing silent", Stem(i), set.ID)
				return
			}
			decoded[i], errs[i] = DecodeFile(path)
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := errors.Join(errs[:]...); err != nil {
		return fmt.Errorf("load %s: %w", set.ID, err)
	}
	found := false
	for _, d := range decoded {
		found = found || len(d) > 0
	}
	if !found {
		return fmt.Errorf("load %s: no stems found", set.ID)
	}

	total := p.setStems(set, decoded)
	log.Printf("Loaded: %s (frames: %d)", set.ID, total)
	return nil
}

func (p *Player) setStems(set StemSet, stems [NumStems][]int16) int {
	total := 0
	for _, s := range stems {
		total = max(total, (len(s)+FrameSamples-1)/FrameSamples)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.set = set
	p.stems = stems
	p.total = total
	p.frame = 0
	p.playing = false
	return total
}

// Play starts or resumes playback. Playing from the end restarts the song.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.total == 0 {
		return ErrNotLoaded
	}
	if p.frame >= p.total {
		p.frame = 0
	}
	p.playing = true
	return nil
}

// Pause halts playback and keeps the position.
func (p *Player) Pause() {
	p.mu.Lock()
	p.playing = false
	p.mu.Unlock()
}

// Stop halts playback and rewinds to the start.
func (p *Player) Stop() {
	p.mu.Lock()
	p.playing = false
	p.frame = 0
	p.mu.Unlock()
}

// Seek moves the clock to d, clamped to the song.
func (p *Player) Seek(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frame = min(max(int(d/FrameDuration), 0), p.total)
}

// SeekSeconds is Seek for a position in seconds from an untrusted source.
// The value is clamped to the song before it is converted to a Duration.
func (p *Player) SeekSeconds(sec float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case math.IsNaN(sec) || sec <= 0:
		p.frame = 0
	case sec >= (time.Duration(p.total) * FrameDuration).Seconds():
		p.frame = p.total
	default:
		d := time.Duration(math.Round(sec * float64(time.Second)))
		p.frame = min(int(d/FrameDuration), p.total)
	}
}

// SetGain sets a stem's volume, clamped to [0, MaxGain].
func (p *Player) SetGain(s Stem, gain float64) error {
	if s < 0 || s >= NumStems {
		return fmt.Errorf("%w: %v", ErrUnknownStem, s)
	}
	p.mu.Lock()
	p.gains[s] = clampGain(gain)
	p.mu.Unlock()
	return nil
}

func clampGain(g float64) float64 {
	if math.IsNaN(g) || g < 0 {
		return 0
	}
	return min(g, MaxGain)
}

// Position returns the playback clock.
func (p *Player) Position() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return time.Duration(p.frame) * FrameDuration
}

// Status returns current playback info.
func (p *Player) Status() PlayerStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	st := PlayerStatus{
		ID:       p.set.ID,
		Title:    p.set.Title,
		Playing:  p.playing,
		Position: time.Duration(p.frame) * FrameDuration,
		Duration: time.Duration(p.total) * FrameDuration,
		Gains:    make(map[string]float64, NumStems),
	}
	for i, g := range p.gains {
		st.Gains[Stem(i).String()] = g
	}
	return st
}

// Run emits one mixed frame per tick while playing. Blocks until ctx is cancelled.
func (p *Player) Run(ctx context.Context) {
	defer close(p.frameCh)

	ticker := time.NewTicker(FrameDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame, ok := p.nextFrame()
		if !ok {
			continue
		}
		select {
		case p.frameCh <- frame:
		case <-ctx.Done():
			return
		}
	}
}

// nextFrame mixes the frame under the clock and advances it.
func (p *Player) nextFrame() ([]int16, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return nil, false
	}
	if p.frame >= p.total {
		p.playing = false
		log.Printf("Finished: %s", p.set.ID)
		return nil, false
	}

	lo, hi := p.frame*FrameSamples, (p.frame+1)*FrameSamples
	frames := make([][]int16, NumStems)
	for i, s := range p.stems {
		frames[i] = frameSlice(s, lo, hi)
	}
	out := MixFrames(frames, p.applied[:], p.gains[:])
	if len(out) < FrameSamples {
		out = append(out, make([]int16, FrameSamples-len(out))...)
	}

	p.applied = p.gains
	p.frame++
	return out, true
}

// frameSlice returns samples[lo:hi], truncated at the end of the stem.
func frameSlice(samples []int16, lo, hi int) []int16 {
	if lo >= len(samples) {
		return nil
	}
	return samples[lo:min(hi, len(samples))]
}
