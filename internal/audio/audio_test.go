package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
)

// --- Constants ---

func TestConstants(t *testing.T) {
	// 48kHz * 20ms = 960 samples per channel
	if got := SampleRate * int(FrameDuration/time.Millisecond) / 1000; got != FrameSize {
		t.Errorf("FrameSize mismatch: want %d, got %d", got, FrameSize)
	}
	if FrameSamples != FrameSize*Channels {
		t.Errorf("FrameSamples = %d, want %d", FrameSamples, FrameSize*Channels)
	}
	if FrameBytes != FrameSamples*2 {
		t.Errorf("FrameBytes = %d, want %d", FrameBytes, FrameSamples*2)
	}
}

// --- Stems ---

func TestParseStem(t *testing.T) {
	tests := []struct {
		in   string
		want Stem
	}{
		{"instrumental", StemInstrumental},
		{"lead", StemLead},
		{" Backing ", StemBacking},
	}
	for _, tt := range tests {
		got, err := ParseStem(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseStem(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseStem("drums"); !errors.Is(err, ErrUnknownStem) {
		t.Errorf("ParseStem(drums) error = %v, want ErrUnknownStem", err)
	}
	if s := Stem(7).String(); s != "stem(7)" {
		t.Errorf("Stem(7).String() = %q", s)
	}
}

// --- Smoothstep ---

func TestSmoothstepBoundaries(t *testing.T) {
	tests := []struct {
		input float64
		want  float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.5, 0.5},
		{1, 1},
		{1.5, 1},
	}
	for _, tt := range tests {
		got := Smoothstep(tt.input)
		if got != tt.want {
			t.Errorf("Smoothstep(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestSmoothstepMonotonic(t *testing.T) {
	prev := 0.0
	for i := 1; i <= 100; i++ {
		x := float64(i) / 100.0
		val := Smoothstep(x)
		if val < prev {
			t.Errorf("Smoothstep not monotonic: f(%v)=%v < f(%v)=%v", x, val, float64(i-1)/100.0, prev)
		}
		prev = val
	}
}

// --- MixFrames ---

func TestMixUnityGain(t *testing.T) {
	in := []int16{1000, -1000, 500, -500}
	result := MixFrames([][]int16{in}, []float64{1}, []float64{1})
	for i, v := range result {
		if v != in[i] {
			t.Errorf("sample[%d] = %d, want %d", i, v, in[i])
		}
	}
}

func TestMixSumsStems(t *testing.T) {
	a := []int16{1000, -1000}
	b := []int16{3000, -3000}
	result := MixFrames([][]int16{a, b, nil}, []float64{1, 0.5, 1}, []float64{1, 0.5, 1})
	for i, want := range []int16{2500, -2500} {
		if result[i] != want {
			t.Errorf("sample[%d] = %d, want %d", i, result[i], want)
		}
	}
}

func TestMixClipping(t *testing.T) {
	a := []int16{30000, -30000}
	result := MixFrames([][]int16{a, a}, []float64{1, 1}, []float64{1, 1})
	if result[0] != 32767 {
		t.Errorf("positive overflow = %d, want 32767", result[0])
	}
	if result[1] != -32768 {
		t.Errorf("negative overflow = %d, want -32768", result[1])
	}
}

func TestMixMuteAndPad(t *testing.T) {
	long := []int16{100, 100, 100, 100}
	short := []int16{10, 10}
	result := MixFrames([][]int16{long, short}, []float64{0, 1}, []float64{0, 1})
	want := []int16{10, 10, 0, 0}
	if len(result) != len(want) {
		t.Fatalf("len = %d, want %d", len(result), len(want))
	}
	for i := range want {
		if result[i] != want[i] {
			t.Errorf("sample[%d] = %d, want %d", i, result[i], want[i])
		}
	}
}

func TestMixGainRamp(t *testing.T) {
	in := make([]int16, FrameSamples)
	for i := range in {
		in[i] = 1000
	}
	result := MixFrames([][]int16{in}, []float64{0}, []float64{1})
	if result[0] != 0 || result[1] != 0 {
		t.Errorf("ramp start = %d,%d, want 0,0", result[0], result[1])
	}
	if last := result[len(result)-1]; last < 999 {
		t.Errorf("ramp end = %d, want ~1000", last)
	}
	for i := Channels; i < len(result); i++ {
		if result[i] < result[i-Channels] {
			t.Fatalf("ramp not monotonic at %d", i)
		}
	}
}

// --- Decoding ---

func TestSamplesToBytes(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768, 256}
	buf := SamplesToBytes(samples)
	if len(buf) != len(samples)*2 {
		t.Fatalf("SamplesToBytes length = %d, want %d", len(buf), len(samples)*2)
	}

	// 256 = 0x0100 -> bytes [0x00, 0x01]
	idx := 5 * 2
	if buf[idx] != 0x00 || buf[idx+1] != 0x01 {
		t.Errorf("Sample 256 encoded as [%02x, %02x], want [00, 01]", buf[idx], buf[idx+1])
	}
}

func TestFloatToInt16(t *testing.T) {
	tests := []struct {
		in   float64
		want int16
	}{
		{0, 0},
		{1000.0 / 32768, 1000},
		{-1, -32768},
		{1, 32767},
		{2, 32767},
		{-2, -32768},
	}
	for _, tt := range tests {
		if got := floatToInt16(tt.in); got != tt.want {
			t.Errorf("floatToInt16(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestReadStreamerNative(t *testing.T) {
	got, err := readStreamer(beep.Silence(100), SampleRate)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 200 {
		t.Errorf("len = %d, want 200 interleaved samples", len(got))
	}
}

func TestReadStreamerResamples(t *testing.T) {
	got, err := readStreamer(beep.Silence(44100), 44100)
	if err != nil {
		t.Fatal(err)
	}
	frames := len(got) / Channels
	if frames < 47000 || frames > 49000 {
		t.Errorf("resampled 1s to %d frames, want ~48000", frames)
	}
}

// writeWAV writes a 16-bit stereo PCM WAV file.
func writeWAV(t *testing.T, path string, rate int, samples []int16) {
	t.Helper()
	var buf bytes.Buffer
	dataLen := uint32(len(samples) * 2)
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, 36+dataLen)
	buf.WriteString("WAVEfmt ")
	for _, v := range []any{
		uint32(16), uint16(1), uint16(Channels), uint32(rate),
		uint32(rate * Channels * 2), uint16(Channels * 2), uint16(BitDepth),
	} {
		binary.Write(&buf, binary.LittleEndian, v)
	}
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataLen)
	binary.Write(&buf, binary.LittleEndian, samples)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDecodeWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stem.WAV")
	in := []int16{1000, -1000, 2000, -2000, 0, 32767}
	writeWAV(t, path, SampleRate, in)

	got, err := DecodeFile(path)
	if err != nil {
		t.Fatalf("DecodeFile: %v", err)
	}
	if len(got) != len(in) {
		t.Fatalf("decoded %d samples, want %d", len(got), len(in))
	}
	for i := range in {
		if got[i] != in[i] {
			t.Errorf("sample[%d] = %d, want %d", i, got[i], in[i])
		}
	}
}

func TestDecodeWAVMissing(t *testing.T) {
	if _, err := DecodeFile(filepath.Join(t.TempDir(), "nope.wav")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want ErrNotExist", err)
	}
}

// --- Player unit tests ---

func unityGains() [NumStems]float64 {
	return [NumStems]float64{1, 1, 1}
}

func constant(n int, v int16) []int16 {
	s := make([]int16, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func TestNewPlayerStatus(t *testing.T) {
	p := NewPlayer([NumStems]float64{1, 2, -1})
	st := p.Status()
	if st.ID != "" || st.Playing || st.Position != 0 || st.Duration != 0 {
		t.Errorf("initial status should be zero-valued, got %+v", st)
	}
	if st.Gains["lead"] != MaxGain || st.Gains["backing"] != 0 {
		t.Errorf("gains = %v, want lead clamped to %v and backing to 0", st.Gains, MaxGain)
	}
}

func TestPlayWithoutSong(t *testing.T) {
	p := NewPlayer(unityGains())
	if err := p.Play(); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Play() error = %v, want ErrNotLoaded", err)
	}
}

func TestSetGain(t *testing.T) {
	p := NewPlayer(unityGains())
	if err := p.SetGain(StemLead, 0.25); err != nil {
		t.Fatal(err)
	}
	if g := p.Status().Gains["lead"]; g != 0.25 {
		t.Errorf("lead gain = %v, want 0.25", g)
	}
	if err := p.SetGain(NumStems, 1); !errors.Is(err, ErrUnknownStem) {
		t.Errorf("SetGain(NumStems) error = %v, want ErrUnknownStem", err)
	}
}

func TestTransport(t *testing.T) {
	p := NewPlayer(unityGains())
	p.setStems(StemSet{ID: "song"}, [NumStems][]int16{constant(10*FrameSamples, 1), nil, nil})

	if d := p.Status().Duration; d != 10*FrameDuration {
		t.Errorf("Duration = %v, want %v", d, 10*FrameDuration)
	}
	p.Seek(100 * time.Millisecond)
	if pos := p.Position(); pos != 100*time.Millisecond {
		t.Errorf("Position after Seek = %v, want 100ms", pos)
	}
	p.Seek(time.Hour)
	if pos := p.Position(); pos != 10*FrameDuration {
		t.Errorf("Seek past end = %v, want clamp to %v", pos, 10*FrameDuration)
	}
	if err := p.Play(); err != nil {
		t.Fatal(err)
	}
	if pos := p.Position(); pos != 0 {
		t.Errorf("Play at end should restart, position = %v", pos)
	}

	p.Seek(60 * time.Millisecond)
	p.Pause()
	if st := p.Status(); st.Playing || st.Position != 60*time.Millisecond {
		t.Errorf("after Pause = %+v, want paused at 60ms", st)
	}
	p.Stop()
	if st := p.Status(); st.Playing || st.Position != 0 {
		t.Errorf("after Stop = %+v, want stopped at 0", st)
	}
}

func TestSeekSecondsClamps(t *testing.T) {
	p := NewPlayer(unityGains())
	p.setStems(StemSet{ID: "song"}, [NumStems][]int16{constant(10*FrameSamples, 1), nil, nil})

	tests := []struct {
		sec  float64
		want time.Duration
	}{
		{0.06, 60 * time.Millisecond},
		{1e300, 10 * FrameDuration},
		{math.Inf(1), 10 * FrameDuration},
		{-5, 0},
		{math.Inf(-1), 0},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		p.SeekSeconds(tt.sec)
		if pos := p.Position(); pos != tt.want {
			t.Errorf("SeekSeconds(%v) position = %v, want %v", tt.sec, pos, tt.want)
		}
	}
}

func TestRunEmitsMixedFrames(t *testing.T) {
	p := NewPlayer(unityGains())
	inst := constant(FrameSamples*5/2, 100)
	lead := constant(FrameSamples, 50)
	p.setStems(StemSet{ID: "song"}, [NumStems][]int16{inst, lead, nil})
	if err := p.Play(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	next := func() []int16 {
		t.Helper()
		select {
		case f := <-p.Frames():
			return f
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for frame")
			return nil
		}
	}

	f0, f1, f2 := next(), next(), next()
	for i, f := range [][]int16{f0, f1, f2} {
		if len(f) != FrameSamples {
			t.Fatalf("frame %d len = %d, want %d", i, len(f), FrameSamples)
		}
	}
	if f0[0] != 150 || f1[0] != 100 {
		t.Errorf("mixed samples = %d, %d; want 150, 100", f0[0], f1[0])
	}
	if f2[FrameSamples/2-1] != 100 || f2[FrameSamples/2] != 0 {
		t.Errorf("last frame should be zero-padded after the stem ends")
	}

	deadline := time.Now().Add(2 * time.Second)
	for p.Status().Playing {
		if time.Now().After(deadline) {
			t.Fatal("player did not stop at end of song")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if pos := p.Position(); pos != 3*FrameDuration {
		t.Errorf("Position at end = %v, want %v", pos, 3*FrameDuration)
	}
}

func TestRunClosesFrames(t *testing.T) {
	p := NewPlayer(unityGains())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	cancel()
	<-done
	if _, ok := <-p.Frames(); ok {
		t.Error("Frames() should be closed after Run returns")
	}
}
