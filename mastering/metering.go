package mastering

import (
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-mastering/measure/loudness"
)

// Snapshot is a metering view of the running chain, for UI display.
// Loudness values come from the canonical BS.1770 meter; the rest are
// block-rate statistics published lock-free by the audio thread.
type Snapshot struct {
	Loudness loudness.Reading `json:"loudness"`

	BandGainReductionDB    []float64 `json:"bandGainReductionDb"`
	LimiterGainReductionDB float64   `json:"limiterGainReductionDb"`

	Correlation float64 `json:"correlation"`
	InputRMSDB  float64 `json:"inputRmsDb"`
	OutputRMSDB float64 `json:"outputRmsDb"`

	SpectrumDB []float64 `json:"spectrumDb,omitempty"`
}

type atomicFloat struct{ bits atomic.Uint64 }

func (f *atomicFloat) store(v float64) { f.bits.Store(math.Float64bits(v)) }
func (f *atomicFloat) load() float64   { return math.Float64frombits(f.bits.Load()) }

const maxMeterBands = 8

// meterBus carries block-rate statistics from the audio thread to
// metering readers. Scalars are word-atomic; the spectrum frame is
// double-buffered and handed over by pointer swap, so neither side ever
// blocks the other.
type meterBus struct {
	numBands atomic.Int32
	bandGR   [maxMeterBands]atomicFloat

	limiterGR   atomicFloat
	correlation atomicFloat
	inputRMS    atomicFloat
	outputRMS   atomicFloat

	specBufs [2][]float64
	specIdx  int // audio thread only
	spectrum atomic.Pointer[[]float64]
}

func newMeterBus(numBins int) *meterBus {
	b := &meterBus{}
	b.specBufs[0] = make([]float64, numBins)
	b.specBufs[1] = make([]float64, numBins)
	b.inputRMS.store(math.Inf(-1))
	b.outputRMS.store(math.Inf(-1))
	b.correlation.store(1)

	return b
}

func (b *meterBus) publishBands(gr []float64) {
	n := len(gr)
	if n > maxMeterBands {
		n = maxMeterBands
	}

	for i := range n {
		b.bandGR[i].store(gr[i])
	}

	b.numBands.Store(int32(n))
}

// publishSpectrum copies a frame into the buffer the readers are not
// holding, then swaps it in.
func (b *meterBus) publishSpectrum(frame []float64) {
	next := b.specBufs[b.specIdx]
	b.specIdx = 1 - b.specIdx

	copy(next, frame)
	b.spectrum.Store(&next)
}

func (b *meterBus) snapshot() Snapshot {
	s := Snapshot{
		LimiterGainReductionDB: b.limiterGR.load(),
		Correlation:            b.correlation.load(),
		InputRMSDB:             b.inputRMS.load(),
		OutputRMSDB:            b.outputRMS.load(),
	}

	n := int(b.numBands.Load())
	s.BandGainReductionDB = make([]float64, n)

	for i := range s.BandGainReductionDB {
		s.BandGainReductionDB[i] = b.bandGR[i].load()
	}

	if frame := b.spectrum.Load(); frame != nil {
		s.SpectrumDB = append([]float64(nil), *frame...)
	}

	return s
}

func (b *meterBus) reset() {
	b.numBands.Store(0)
	b.limiterGR.store(0)
	b.correlation.store(1)
	b.inputRMS.store(math.Inf(-1))
	b.outputRMS.store(math.Inf(-1))
	b.spectrum.Store(nil)
}

// rmsTracker is a one-pole mean-square level follower over a rolling
// window, shared by the input and output level readouts.
type rmsTracker struct {
	coeff float64
	mean  float64
}

func newRMSTracker(sampleRate, windowMs float64) *rmsTracker {
	return &rmsTracker{
		coeff: math.Exp(-math.Ln2 / (windowMs * 0.001 * sampleRate)),
	}
}

func (t *rmsTracker) process(l, r float64) {
	p := 0.5 * (l*l + r*r)
	t.mean = t.coeff*t.mean + (1-t.coeff)*p
}

func (t *rmsTracker) db() float64 {
	if t.mean <= 0 {
		return math.Inf(-1)
	}

	return 10 * math.Log10(t.mean)
}

func (t *rmsTracker) reset() { t.mean = 0 }
