package effects

import "math"

// Limiter is a stereo-linked peak limiter. Both channels share one envelope
// so the stereo image does not shift when a single side peaks.
type Limiter struct {
	ceiling float32
	attack  float32 // coefficient
	release float32 // coefficient
	env     float32
}

// NewLimiter creates a limiter.
// ceilingDB: output ceiling in dBFS (e.g. -1)
// attackMs: envelope attack time in ms
// releaseMs: envelope release time in ms
func NewLimiter(sampleRate int, ceilingDB, attackMs, releaseMs float32) *Limiter {
	sr := float64(sampleRate)
	return &Limiter{
		ceiling: float32(math.Pow(10, float64(ceilingDB)/20)),
		attack:  coefficient(attackMs, sr),
		release: coefficient(releaseMs, sr),
	}
}

func coefficient(ms float32, sr float64) float32 {
	if ms <= 0 {
		return 1
	}
	return float32(1.0 - math.Exp(-1.0/(float64(ms)*sr/1000.0)))
}

func (lim *Limiter) Process(l, r float32) (float32, float32) {
	peak := abs32(l)
	if ar := abs32(r); ar > peak {
		peak = ar
	}
	if peak > lim.env {
		lim.env += lim.attack * (peak - lim.env)
	} else {
		lim.env += lim.release * (peak - lim.env)
	}
	gain := float32(1)
	if lim.env > lim.ceiling {
		gain = lim.ceiling / lim.env
	}
	l, r = l*gain, r*gain
	// The envelope lags transients; hard clamp whatever gets through.
	return clamp(l, lim.ceiling), clamp(r, lim.ceiling)
}

// GainReduction returns the current reduction factor (1 = none).
func (lim *Limiter) GainReduction() float32 {
	if lim.env > lim.ceiling {
		return lim.ceiling / lim.env
	}
	return 1
}

func (lim *Limiter) Reset() {
	lim.env = 0
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func clamp(v, limit float32) float32 {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}
