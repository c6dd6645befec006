// Package spectrum provides a streaming FFT spectrum analyzer for
// metering displays, plus SIMD-accelerated magnitude and power helpers
// for complex spectra.
package spectrum
