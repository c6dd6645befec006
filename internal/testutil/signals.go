// Package testutil provides deterministic test signals and tolerance
// assertions shared by the package tests.
package testutil

import (
	"math"
	"math/rand/v2"
)

// Sine generates a deterministic sine wave starting at phase 0.
func Sine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)

	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}

	return out
}

// Noise generates seeded uniform white noise in [-amplitude, amplitude].
func Noise(seed uint64, amplitude float64, length int) []float64 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	out := make([]float64, length)
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}

	return out
}

// StereoNoise generates two independent seeded noise channels.
func StereoNoise(seed uint64, amplitude float64, length int) (left, right []float64) {
	return Noise(seed, amplitude, length), Noise(seed+1, amplitude, length)
}

// Impulse generates a unit impulse at the given position.
func Impulse(length, pos int) []float64 {
	out := make([]float64, length)
	if pos >= 0 && pos < length {
		out[pos] = 1
	}

	return out
}

// DC generates a constant-valued signal.
func DC(value float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = value
	}

	return out
}
