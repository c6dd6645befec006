//go:build fastmath

package dynamics

import (
	"math"

	"github.com/meko-christian/algo-approx"
)

// ln2 is the natural logarithm of 2, used for log base conversions.
const ln2 = 0.693147180559945309417232121458

// mathLog2 computes log2(x) using fast approximation.
// Uses the identity: log2(x) = ln(x) / ln(2)
func mathLog2(x float64) float64 {
	return approx.FastLog(x) / ln2
}

// mathPower2 computes 2^x using fast approximation.
// Uses the identity: 2^x = e^(x * ln(2))
func mathPower2(x float64) float64 {
	return approx.FastExp(x * ln2)
}

// mathPower10 computes 10^x using standard library.
// Only called on parameter changes, not in the per-sample path.
func mathPower10(x float64) float64 {
	return math.Pow(10, x)
}

// mathTanh computes tanh(x) via fast exponentials:
// tanh(x) = (e^2x - 1) / (e^2x + 1).
func mathTanh(x float64) float64 {
	if x > 20 {
		return 1
	}
	if x < -20 {
		return -1
	}

	e := approx.FastExp(2 * x)

	return (e - 1) / (e + 1)
}
