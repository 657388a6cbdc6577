// Package sim generates a synthetic TVOC/eCO2 breath waveform for the
// bundled producer and for tests. The shape is deliberately simple: flat
// ambient level, a gaussian exhalation bump once per period, and a little
// deterministic noise.
package sim

import (
	"math"
	"time"
)

// Breath produces one synthetic sample per Next call at a fixed cadence.
type Breath struct {
	cadence time.Duration
	period  time.Duration // one full breath cycle

	ambientTVOC float64
	ambientECO2 float64
	riseTVOC    float64 // bump height over ambient
	riseECO2    float64
	noise       float64 // noise amplitude as a fraction of ambient

	elapsed time.Duration
}

// NewBreath creates a generator. cadence is the sampling interval (the
// device cadence, typically 2 s); period is the breath cycle length.
func NewBreath(cadence, period time.Duration, ambientTVOC, ambientECO2, riseTVOC, riseECO2, noise float64) *Breath {
	return &Breath{
		cadence:     cadence,
		period:      period,
		ambientTVOC: ambientTVOC,
		ambientECO2: ambientECO2,
		riseTVOC:    riseTVOC,
		riseECO2:    riseECO2,
		noise:       noise,
	}
}

// NewDefaultBreath returns a generator with plausible indoor-air numbers:
// 50 ppb TVOC / 600 ppm eCO2 ambient, exhalations peaking ~60% / ~25%
// above ambient every 40 s.
func NewDefaultBreath(cadence time.Duration) *Breath {
	return NewBreath(cadence, 40*time.Second, 50, 600, 30, 150, 0.01)
}

// Next returns the next (tvoc, eco2) sample and advances time by one
// cadence step.
func (b *Breath) Next() (float64, float64) {
	// Phase within the breath cycle, [0..1).
	phase := math.Mod(b.elapsed.Seconds(), b.period.Seconds()) / b.period.Seconds()
	b.elapsed += b.cadence

	// Exhalation bump centered late in the cycle so the first cycle gives
	// the baseline time to stabilize.
	bump := gauss(phase, 0.75, 0.05)

	tvoc := b.ambientTVOC + b.riseTVOC*bump + b.noiseAt(phase)*b.ambientTVOC
	eco2 := b.ambientECO2 + b.riseECO2*bump + b.noiseAt(phase+0.5)*b.ambientECO2
	return tvoc, eco2
}

func gauss(x, mu, sigma float64) float64 {
	z := (x - mu) / sigma
	return math.Exp(-0.5 * z * z)
}

// noiseAt is cheap deterministic noise in [-noise, +noise].
func (b *Breath) noiseAt(x float64) float64 {
	return b.noise * (2*fract(math.Sin(12345.678*x)*9876.543) - 1)
}

func fract(x float64) float64 { return x - math.Floor(x) }
