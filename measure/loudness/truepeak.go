package loudness

import "math"

const (
	peakTapsPerPhase = 12
	peakKaiserBeta   = 5.0
)

// truePeakDetector estimates inter-sample peaks with a polyphase
// Kaiser-windowed-sinc interpolator, per BS.1770-4 Annex 2. The raw
// sample magnitude is checked alongside the interpolated points, so the
// reported peak can never fall below the sample peak.
type truePeakDetector struct {
	phases  [][]float64 // per-phase taps, most recent first
	history []float64
	peak    float64
}

func newTruePeakDetector(factor int) *truePeakDetector {
	return &truePeakDetector{
		phases:  peakInterpPhases(factor, peakTapsPerPhase),
		history: make([]float64, peakTapsPerPhase),
	}
}

func (d *truePeakDetector) process(x float64) {
	copy(d.history[1:], d.history)
	d.history[0] = x

	if ax := math.Abs(x); ax > d.peak {
		d.peak = ax
	}

	for _, phase := range d.phases {
		var y float64
		for k, h := range d.history {
			y += h * phase[k]
		}

		if ay := math.Abs(y); ay > d.peak {
			d.peak = ay
		}
	}
}

func (d *truePeakDetector) max() float64 { return d.peak }

func (d *truePeakDetector) reset() {
	for i := range d.history {
		d.history[i] = 0
	}

	d.peak = 0
}

// peakInterpPhases builds the polyphase decomposition of a windowed-sinc
// interpolation filter. Each phase is normalized to unity DC gain so a
// constant signal interpolates to itself.
func peakInterpPhases(factor, taps int) [][]float64 {
	n := factor * taps
	center := float64(n-1) / 2

	kernel := make([]float64, n)
	for i := range kernel {
		t := (float64(i) - center) / float64(factor)
		kernel[i] = peakSinc(t) * peakKaiser(i, n)
	}

	phases := make([][]float64, factor)
	for p := range phases {
		phase := make([]float64, taps)

		var sum float64

		for k := range phase {
			phase[k] = kernel[p+factor*k]
			sum += phase[k]
		}

		if sum != 0 {
			for k := range phase {
				phase[k] /= sum
			}
		}

		phases[p] = phase
	}

	return phases
}

func peakSinc(t float64) float64 {
	if t == 0 {
		return 1
	}

	return math.Sin(math.Pi*t) / (math.Pi * t)
}

func peakKaiser(i, n int) float64 {
	x := 2*float64(i)/float64(n-1) - 1

	return besselI0(peakKaiserBeta*math.Sqrt(1-x*x)) / besselI0(peakKaiserBeta)
}

// besselI0 is the zeroth-order modified Bessel function of the first
// kind, via its power series.
func besselI0(x float64) float64 {
	sum := 1.0
	term := 1.0
	half := x / 2

	for k := 1; k < 32; k++ {
		term *= half / float64(k)

		sum += term * term
		if term*term < 1e-18*sum {
			break
		}
	}

	return sum
}
