package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
)

// resampleQuality is the beep resampler quality (1..64).
const resampleQuality = 4

// DecodeFile decodes an audio file to interleaved stereo int16 samples at 48kHz.
// WAV files are decoded in-process; anything else goes through FFmpeg.
func DecodeFile(path string) ([]int16, error) {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		return decodeWAV(path)
	}
	return decodeFFmpeg(path)
}

func decodeWAV(path string) ([]int16, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	streamer, format, err := wav.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("wav decode %s: %w", path, err)
	}
	defer streamer.Close()

	samples, err := readStreamer(streamer, format.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("wav read %s: %w", path, err)
	}
	return samples, nil
}

// readStreamer drains s, resampling to SampleRate when needed.
func readStreamer(s beep.Streamer, rate beep.SampleRate) ([]int16, error) {
	src := s
	if rate != SampleRate {
		src = beep.Resample(resampleQuality, rate, SampleRate, s)
	}

	buf := make([][2]float64, 4096)
	var out []int16
	for {
		n, ok := src.Stream(buf)
		for _, smp := range buf[:n] {
			out = append(out, floatToInt16(smp[0]), floatToInt16(smp[1]))
		}
		if !ok {
			break
		}
	}
	if err := src.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func floatToInt16(v float64) int16 {
	x := math.Round(v * 32768)
	if x > 32767 {
		return 32767
	}
	if x < -32768 {
		return -32768
	}
	return int16(x)
}

// decodeFFmpeg runs FFmpeg to decode an audio file to raw PCM int16 samples.
func decodeFFmpeg(path string) ([]int16, error) {
	cmd := exec.Command("ffmpeg",
		"-i", path,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", "48000",
		"-ac", "2",
		"-loglevel", "error",
		"pipe:1",
	)

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode %s: %w", path, err)
	}

	// Ensure even byte count for int16 alignment
	if len(out)%2 != 0 {
		out = out[:len(out)-1]
	}

	samples := make([]int16, len(out)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(out[i*2 : i*2+2]))
	}

	return samples, nil
}

// SamplesToBytes converts int16 samples to little-endian bytes.
func SamplesToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}
