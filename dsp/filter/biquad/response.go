package biquad

import (
	"math"
	"math/cmplx"
)

// Response evaluates the complex frequency response of the section at the
// given frequency (Hz) for the given sample rate.
func (c Coefficients) Response(freq, sampleRate float64) complex128 {
	w := 2 * math.Pi * freq / sampleRate
	z1 := cmplx.Exp(complex(0, -w))
	z2 := z1 * z1

	num := complex(c.B0, 0) + complex(c.B1, 0)*z1 + complex(c.B2, 0)*z2
	den := complex(1, 0) + complex(c.A1, 0)*z1 + complex(c.A2, 0)*z2

	return num / den
}

// MagnitudeDB returns the magnitude response in dB at the given frequency.
func (c Coefficients) MagnitudeDB(freq, sampleRate float64) float64 {
	mag := cmplx.Abs(c.Response(freq, sampleRate))
	if mag <= 0 {
		return math.Inf(-1)
	}

	return 20 * math.Log10(mag)
}

// Response evaluates the complex frequency response of the whole cascade,
// including the chain gain.
func (c *Chain) Response(freq, sampleRate float64) complex128 {
	h := complex(c.gain, 0)
	for i := range c.sections {
		h *= c.sections[i].Coefficients.Response(freq, sampleRate)
	}

	return h
}
