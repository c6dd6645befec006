// Package dither provides bit-depth reduction with dither noise and
// optional noise shaping for final-stage output quantization.
//
// The default configuration applies TPDF (triangular PDF) dither at one
// LSB peak amplitude, the standard choice for decorrelating
// quantization error from the program. An optional IIR high-shelf
// shaper pushes the residual error spectrum above the most sensitive
// hearing range.
package dither

import "fmt"

// DitherType selects the probability distribution used for dither noise.
type DitherType int

const (
	// DitherNone applies no dither (plain truncation).
	DitherNone DitherType = iota
	// DitherRectangular uses a uniform (rectangular) PDF.
	DitherRectangular
	// DitherTriangular uses a triangular PDF (TPDF), the difference of
	// two uniform draws. This is the default and the standard choice
	// for mastering.
	DitherTriangular

	ditherTypeCount // sentinel for validation
)

var ditherTypeNames = [ditherTypeCount]string{
	"None", "Rectangular", "Triangular",
}

// String returns the name of the dither type.
func (dt DitherType) String() string {
	if dt >= 0 && dt < ditherTypeCount {
		return ditherTypeNames[dt]
	}

	return fmt.Sprintf("DitherType(%d)", dt)
}

// Valid reports whether dt is a known dither type.
func (dt DitherType) Valid() bool {
	return dt >= 0 && dt < ditherTypeCount
}
