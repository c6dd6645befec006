// Package biquad provides second-order IIR filter sections (biquads) in
// Direct Form II Transposed, plus cascades of sections for higher-order
// filters.
//
// A Section owns its delay-line state exclusively; one Section must never
// be shared between channels. Coefficients are immutable value types and
// may be shared freely.
//
// Block processing dispatches to the best available kernel for the host
// CPU (selected once via algo-vecmath feature detection); sample-by-sample
// processing is always scalar.
package biquad
