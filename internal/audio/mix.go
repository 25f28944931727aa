package audio

// Smoothstep returns the smoothstep interpolation for t in [0,1].
// Formula: 3t^2 - 2t^3.
func Smoothstep(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t * t * (3 - 2*t)
}

// MixFrames sums one frame from each stem. Stem i is scaled by a gain that
// moves from from[i] to to[i] across the frame along a smoothstep curve, so a
// volume change never steps mid-waveform. Nil frames are silent stems and
// short frames are zero-padded. The result has the length of the longest frame.
func MixFrames(frames [][]int16, from, to []float64) []int16 {
	n := 0
	for _, f := range frames {
		n = max(n, len(f))
	}
	result := make([]int16, n)
	if n == 0 {
		return result
	}

	acc := make([]float64, n)
	perFrame := n / Channels
	for s, f := range frames {
		if f == nil {
			continue
		}
		g0, g1 := from[s], to[s]
		for i, v := range f {
			g := g1
			if g0 != g1 && perFrame > 0 {
				g = g0 + (g1-g0)*Smoothstep(float64(i/Channels)/float64(perFrame))
			}
			acc[i] += float64(v) * g
		}
	}

	for i, mixed := range acc {
		// Clip to int16 range
		if mixed > 32767 {
			mixed = 32767
		} else if mixed < -32768 {
			mixed = -32768
		}
		result[i] = int16(mixed)
	}
	return result
}
