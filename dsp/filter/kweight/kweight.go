// Package kweight implements the ITU-R BS.1770-4 K-weighting pre-filter.
//
// K-weighting is a two-stage filter applied before mean-square integration
// in loudness measurement: a high-frequency shelving boost modeling the
// acoustic effect of the head, followed by the RLB (revised low-frequency
// B) highpass. Coefficients are derived from the analog prototypes so the
// filter can be designed at any sample rate, matching the BS.1770-4 table
// values at 48 kHz.
package kweight

import (
	"math"

	"github.com/cwbudde/algo-mastering/dsp/filter/biquad"
)

// Analog prototype constants per ITU-R BS.1770-4.
const (
	shelfFreq = 1681.974450955533
	shelfGain = 3.999843853973347 // dB
	shelfQ    = 0.7071752369554196

	highpassFreq = 38.13547087602444
	highpassQ    = 0.5003270373238773

	// Exponent relating the shelf's low-frequency gain to its
	// high-frequency gain in the prototype.
	shelfVbExponent = 0.4996667741545416
)

// Shelf returns the stage-1 high-shelf coefficients at the given sample rate.
func Shelf(sampleRate float64) biquad.Coefficients {
	k := math.Tan(math.Pi * shelfFreq / sampleRate)
	vh := math.Pow(10, shelfGain/20)
	vb := math.Pow(vh, shelfVbExponent)

	a0 := 1 + k/shelfQ + k*k

	return biquad.Coefficients{
		B0: (vh + vb*k/shelfQ + k*k) / a0,
		B1: 2 * (k*k - vh) / a0,
		B2: (vh - vb*k/shelfQ + k*k) / a0,
		A1: 2 * (k*k - 1) / a0,
		A2: (1 - k/shelfQ + k*k) / a0,
	}
}

// Highpass returns the stage-2 RLB highpass coefficients at the given
// sample rate.
func Highpass(sampleRate float64) biquad.Coefficients {
	k := math.Tan(math.Pi * highpassFreq / sampleRate)

	a0 := 1 + k/highpassQ + k*k

	return biquad.Coefficients{
		B0: 1 / a0,
		B1: -2 / a0,
		B2: 1 / a0,
		A1: 2 * (k*k - 1) / a0,
		A2: (1 - k/highpassQ + k*k) / a0,
	}
}

// New returns a [biquad.Chain] with both K-weighting stages at the
// specified sample rate.
//
// Panics if sampleRate <= 0.
func New(sampleRate float64) *biquad.Chain {
	if sampleRate <= 0 {
		panic("kweight: sample rate must be positive")
	}

	return biquad.NewChain([]biquad.Coefficients{
		Shelf(sampleRate),
		Highpass(sampleRate),
	})
}
