package dynamics

import "math"

const (
	clipTapsPerPhase = 8
	clipKaiserBeta   = 5.0
)

// softClip applies a tanh-based ceiling clipper. Below kneeStart the
// signal passes unchanged; above it the transfer curve asymptotically
// approaches ceiling, so the output magnitude never reaches ceiling.
func softClip(x, kneeStart, ceiling float64) float64 {
	ax := math.Abs(x)
	if ax <= kneeStart {
		return x
	}

	span := ceiling - kneeStart
	shaped := kneeStart + span*mathTanh((ax-kneeStart)/span)

	if x < 0 {
		return -shaped
	}

	return shaped
}

// oversampledClipper runs softClip at an oversampled rate so that
// inter-sample peaks are shaped, not just the sample grid. It is a
// streaming polyphase interpolator, per-point clipper and decimator
// with a windowed-sinc prototype shared between both halves.
type oversampledClipper struct {
	factor int

	// phases[p][k] weights history sample k for fractional position p.
	phases [][]float64
	// anti-alias decimation filter at the oversampled rate.
	down []float64

	hist    []float64 // input history, most recent first
	histHi  []float64 // oversampled clipped history, most recent first
	upBlock []float64 // scratch for the factor interpolated points
}

func newOversampledClipper(factor int) *oversampledClipper {
	proto := interpKernel(factor, clipTapsPerPhase, clipKaiserBeta)

	phases := make([][]float64, factor)
	for p := range phases {
		phases[p] = make([]float64, clipTapsPerPhase)

		var sum float64
		for k := range clipTapsPerPhase {
			phases[p][k] = proto[k*factor+p]
			sum += phases[p][k]
		}

		// Per-phase DC normalization keeps the interpolated level exact.
		if sum != 0 {
			for k := range phases[p] {
				phases[p][k] /= sum
			}
		}
	}

	down := make([]float64, len(proto))

	var dcSum float64
	for i, h := range proto {
		down[i] = h
		dcSum += h
	}
	for i := range down {
		down[i] /= dcSum
	}

	return &oversampledClipper{
		factor:  factor,
		phases:  phases,
		down:    down,
		hist:    make([]float64, clipTapsPerPhase),
		histHi:  make([]float64, len(proto)),
		upBlock: make([]float64, factor),
	}
}

// interpKernel designs a Kaiser-windowed sinc lowpass prototype for
// factor-times interpolation, length factor*tapsPerPhase.
func interpKernel(factor, tapsPerPhase int, beta float64) []float64 {
	length := factor * tapsPerPhase
	kernel := make([]float64, length)
	center := float64(length-1) / 2
	denom := besselI0(beta)

	for i := range kernel {
		t := (float64(i) - center) / float64(factor)
		s := sinc(t)

		// Kaiser window.
		x := 2*float64(i)/float64(length-1) - 1
		w := besselI0(beta*math.Sqrt(1-x*x)) / denom

		kernel[i] = s * w
	}

	return kernel
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}

	px := math.Pi * x

	return math.Sin(px) / px
}

// besselI0 computes the zeroth-order modified Bessel function via its
// power series, which converges quickly for the beta values used here.
func besselI0(x float64) float64 {
	sum := 1.0
	term := 1.0
	half := x / 2

	for k := 1; k < 32; k++ {
		term *= (half / float64(k)) * (half / float64(k))
		sum += term

		if term < 1e-16*sum {
			break
		}
	}

	return sum
}

// processSample clips one sample at the oversampled rate and returns
// the decimated result. The output is delayed by the combined group
// delay of the interpolation and decimation filters.
func (oc *oversampledClipper) processSample(x, kneeStart, ceiling float64) float64 {
	// Shift input history.
	copy(oc.hist[1:], oc.hist[:len(oc.hist)-1])
	oc.hist[0] = x

	// Interpolate factor points, clip each.
	for p := range oc.factor {
		var v float64
		for k, w := range oc.phases[p] {
			v += oc.hist[k] * w
		}

		oc.upBlock[oc.factor-1-p] = softClip(v, kneeStart, ceiling)
	}

	// Push the clipped points into the high-rate history (most recent
	// first) and evaluate the decimation filter once per input sample.
	copy(oc.histHi[oc.factor:], oc.histHi[:len(oc.histHi)-oc.factor])
	copy(oc.histHi[:oc.factor], oc.upBlock)

	var y float64
	for i, w := range oc.down {
		y += oc.histHi[i] * w
	}

	return y
}

// latencySamples reports the clipper's group delay at the base rate.
func (oc *oversampledClipper) latencySamples() int {
	interp := (clipTapsPerPhase - 1) / 2
	decim := (len(oc.down) - 1) / (2 * oc.factor)

	return interp + decim
}

func (oc *oversampledClipper) reset() {
	for i := range oc.hist {
		oc.hist[i] = 0
	}
	for i := range oc.histHi {
		oc.histHi[i] = 0
	}
}
