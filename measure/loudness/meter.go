// Package loudness implements an ITU-R BS.1770-4 / EBU R128 loudness
// meter: K-weighted momentary, short-term and gated integrated loudness,
// loudness range, and oversampled true-peak detection, plus delivery
// target tables for compliance checks.
package loudness

import (
	"fmt"
	"math"
	"sync"

	"github.com/cwbudde/algo-mastering/dsp/filter/biquad"
	"github.com/cwbudde/algo-mastering/dsp/filter/kweight"
)

const (
	blockDurationMs = 100.0

	momentaryBlocks = 4  // 400 ms
	shortTermBlocks = 30 // 3 s

	absoluteGateLUFS = -70.0
	relativeGateLU   = -10.0

	// The -0.691 offset cancels the K-weighting gain at 997 Hz so a
	// full-scale stereo sine reads 0 LUFS.
	lufsOffset = -0.691

	histBinLU     = 0.1
	histFloorLUFS = absoluteGateLUFS
	histBins      = 801 // -70 .. +10 LUFS

	lraLowPercentile  = 0.10
	lraHighPercentile = 0.95

	// Gated window powers are stored in fixed-size chunks so a commit
	// never reallocates session-length storage under the lock.
	gatedChunkSize = 512 // 51.2 s of windows at the 100 ms hop
)

// gatedChunk holds a fixed run of absolute-gated window powers. Entries
// below the committed length are never rewritten, so snapshot readers
// may copy them without holding the meter lock.
type gatedChunk struct {
	powers [gatedChunkSize]float64
}

// PowerToLUFS converts a K-weighted mean-square power to loudness.
// Non-positive power (digital silence) maps to -Inf.
func PowerToLUFS(power float64) float64 {
	if power <= 0 {
		return math.Inf(-1)
	}

	return lufsOffset + 10*math.Log10(power)
}

// Meter measures program loudness from a stream of samples.
//
// Samples are K-weighted per channel and integrated into 100 ms power
// blocks. Momentary loudness is the mean of the last 4 blocks,
// short-term the mean of the last 30. Gating windows are the same
// 400 ms means taken at every 100 ms hop; windows above the -70 LUFS
// absolute gate feed the integrated-loudness set and the loudness-range
// histogram.
//
// One goroutine feeds samples; Reading may be called concurrently from
// another. Reset must not race with either.
type Meter struct {
	sampleRate   float64
	channels     int
	oversampling int

	kchains []*biquad.Chain
	peaks   []*truePeakDetector

	blockLen int
	blockPos int
	blockSum float64 // channel-summed squared K-weighted samples

	mu sync.Mutex

	ring      [shortTermBlocks]float64
	ringPos   int
	ringCount int

	momentaryPow float64
	shortTermPow float64

	gatedChunks []*gatedChunk // absolute-gated 400 ms window powers
	gatedLen    int
	hist        [histBins]int
	histCount   int

	maxMomentary float64
	maxShortTerm float64

	truePeak []float64 // published per-channel linear peaks
}

// NewMeter creates a loudness meter at the given sample rate.
func NewMeter(sampleRate float64, opts ...MeterOption) (*Meter, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("loudness meter sample rate must be > 0 and finite: %f", sampleRate)
	}

	cfg := meterConfig{
		channels:     defaultChannels,
		oversampling: defaultOversampling,
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	blockLen := int(math.Round(sampleRate * blockDurationMs / 1000))
	if blockLen < 1 {
		blockLen = 1
	}

	m := &Meter{
		sampleRate:   sampleRate,
		channels:     cfg.channels,
		oversampling: cfg.oversampling,
		blockLen:     blockLen,
		kchains:      make([]*biquad.Chain, cfg.channels),
		peaks:        make([]*truePeakDetector, cfg.channels),
		truePeak:     make([]float64, cfg.channels),
		maxMomentary: math.Inf(-1),
		maxShortTerm: math.Inf(-1),
	}

	for ch := range m.kchains {
		m.kchains[ch] = kweight.New(sampleRate)
		m.peaks[ch] = newTruePeakDetector(cfg.oversampling)
	}

	return m, nil
}

// SampleRate returns the configured sample rate.
func (m *Meter) SampleRate() float64 { return m.sampleRate }

// Channels returns the configured channel count.
func (m *Meter) Channels() int { return m.channels }

// ProcessSample feeds one mono sample. On a stereo meter the sample is
// treated as dual mono.
func (m *Meter) ProcessSample(x float64) {
	if m.channels == 2 {
		m.ProcessStereoSample(x, x)
		return
	}

	m.peaks[0].process(x)

	z := m.kchains[0].ProcessSample(x)
	m.blockSum += z * z
	m.advanceBlock()
}

// ProcessStereoSample feeds one stereo sample pair. On a mono meter the
// pair is folded to mid.
func (m *Meter) ProcessStereoSample(l, r float64) {
	if m.channels == 1 {
		m.ProcessSample((l + r) * 0.5)
		return
	}

	m.peaks[0].process(l)
	m.peaks[1].process(r)

	zl := m.kchains[0].ProcessSample(l)
	zr := m.kchains[1].ProcessSample(r)
	m.blockSum += zl*zl + zr*zr
	m.advanceBlock()
}

// ProcessBlock feeds a mono block.
func (m *Meter) ProcessBlock(buf []float64) {
	for _, x := range buf {
		m.ProcessSample(x)
	}
}

// ProcessStereoBlock feeds matching left and right blocks.
func (m *Meter) ProcessStereoBlock(l, r []float64) error {
	if len(l) != len(r) {
		return fmt.Errorf("channel buffers must have equal length: %d != %d", len(l), len(r))
	}

	for i := range l {
		m.ProcessStereoSample(l[i], r[i])
	}

	return nil
}

func (m *Meter) advanceBlock() {
	m.blockPos++
	if m.blockPos < m.blockLen {
		return
	}

	power := m.blockSum / float64(m.blockLen)
	m.blockPos = 0
	m.blockSum = 0

	m.commitBlock(power)
}

// commitBlock folds a completed 100 ms block into the shared statistics.
// Runs ten times per second, so the lock never contends with per-sample
// work, and the time spent under the lock is bounded regardless of
// session length.
func (m *Meter) commitBlock(power float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ring[m.ringPos] = power

	m.ringPos++
	if m.ringPos == shortTermBlocks {
		m.ringPos = 0
	}

	if m.ringCount < shortTermBlocks {
		m.ringCount++
	}

	if m.ringCount >= momentaryBlocks {
		m.momentaryPow = m.lastBlocksMean(momentaryBlocks)

		l := PowerToLUFS(m.momentaryPow)
		if l > m.maxMomentary {
			m.maxMomentary = l
		}

		// Every momentary value is also a 400 ms gating window at the
		// 100 ms hop.
		if l > absoluteGateLUFS {
			if m.gatedLen%gatedChunkSize == 0 {
				m.gatedChunks = append(m.gatedChunks, &gatedChunk{})
			}

			m.gatedChunks[len(m.gatedChunks)-1].powers[m.gatedLen%gatedChunkSize] = m.momentaryPow
			m.gatedLen++

			m.hist[histBinIndex(l)]++
			m.histCount++
		}
	}

	if m.ringCount == shortTermBlocks {
		m.shortTermPow = m.lastBlocksMean(shortTermBlocks)

		if l := PowerToLUFS(m.shortTermPow); l > m.maxShortTerm {
			m.maxShortTerm = l
		}
	}

	for ch := range m.peaks {
		m.truePeak[ch] = m.peaks[ch].max()
	}
}

// lastBlocksMean averages the n most recent block powers. Caller holds mu.
func (m *Meter) lastBlocksMean(n int) float64 {
	var sum float64

	idx := m.ringPos
	for range n {
		idx--
		if idx < 0 {
			idx = shortTermBlocks - 1
		}

		sum += m.ring[idx]
	}

	return sum / float64(n)
}

func histBinIndex(lufs float64) int {
	idx := int((lufs - histFloorLUFS) / histBinLU)
	if idx < 0 {
		idx = 0
	} else if idx >= histBins {
		idx = histBins - 1
	}

	return idx
}

// Reading returns a snapshot of every meter statistic. Safe to call
// while another goroutine is feeding samples.
func (m *Meter) Reading() Reading {
	m.mu.Lock()

	r := Reading{
		Momentary:    math.Inf(-1),
		ShortTerm:    math.Inf(-1),
		MaxMomentary: m.maxMomentary,
		MaxShortTerm: m.maxShortTerm,
	}

	if m.ringCount >= momentaryBlocks {
		r.Momentary = PowerToLUFS(m.momentaryPow)
	}

	if m.ringCount == shortTermBlocks {
		r.ShortTerm = PowerToLUFS(m.shortTermPow)
	}

	chunks := append([]*gatedChunk(nil), m.gatedChunks...)
	gatedLen := m.gatedLen
	hist := m.hist
	histCount := m.histCount

	peakL := m.truePeak[0]
	peakR := peakL
	if m.channels == 2 {
		peakR = m.truePeak[1]
	}

	m.mu.Unlock()

	r.Integrated = integrateGated(expandGated(chunks, gatedLen))
	r.LoudnessRange = loudnessRange(&hist, histCount)

	r.TruePeakL = linearToDBTP(peakL)
	r.TruePeakR = linearToDBTP(peakR)
	r.TruePeakMax = math.Max(r.TruePeakL, r.TruePeakR)

	return r
}

// IntegratedLUFS returns the gated integrated loudness alone.
func (m *Meter) IntegratedLUFS() float64 {
	m.mu.Lock()
	chunks := append([]*gatedChunk(nil), m.gatedChunks...)
	gatedLen := m.gatedLen
	m.mu.Unlock()

	return integrateGated(expandGated(chunks, gatedLen))
}

// expandGated flattens a chunk snapshot into a contiguous power slice.
// Runs outside the meter lock: the first total entries were committed
// before the snapshot and are never rewritten, while a concurrent
// commit only touches entries past them.
func expandGated(chunks []*gatedChunk, total int) []float64 {
	powers := make([]float64, 0, total)
	for _, c := range chunks {
		n := total - len(powers)
		if n > gatedChunkSize {
			n = gatedChunkSize
		}

		powers = append(powers, c.powers[:n]...)
	}

	return powers
}

// integrateGated applies the BS.1770-4 two-pass gate: windows above the
// absolute gate (already enforced) set a relative threshold 10 LU below
// their power mean; the integrated value is the power mean of windows
// above it.
func integrateGated(powers []float64) float64 {
	if len(powers) == 0 {
		return math.Inf(-1)
	}

	var sum float64
	for _, p := range powers {
		sum += p
	}

	relGate := PowerToLUFS(sum/float64(len(powers))) + relativeGateLU

	var gatedSum float64

	count := 0

	for _, p := range powers {
		if PowerToLUFS(p) > relGate {
			gatedSum += p
			count++
		}
	}

	if count == 0 {
		return math.Inf(-1)
	}

	return PowerToLUFS(gatedSum / float64(count))
}

// loudnessRange is the spread between the 10th and 95th percentile of
// the absolute-gated window loudness distribution.
func loudnessRange(hist *[histBins]int, count int) float64 {
	if count == 0 {
		return 0
	}

	lo := histPercentile(hist, count, lraLowPercentile)
	hi := histPercentile(hist, count, lraHighPercentile)

	if hi <= lo {
		return 0
	}

	return hi - lo
}

func histPercentile(hist *[histBins]int, count int, pct float64) float64 {
	rank := int(math.Ceil(pct * float64(count)))
	if rank < 1 {
		rank = 1
	}

	cum := 0
	for i, n := range hist {
		cum += n
		if cum >= rank {
			return histFloorLUFS + (float64(i)+0.5)*histBinLU
		}
	}

	return histFloorLUFS + (histBins-0.5)*histBinLU
}

func linearToDBTP(peak float64) float64 {
	if peak <= 0 {
		return math.Inf(-1)
	}

	return 20 * math.Log10(peak)
}

// Reset clears all accumulated state for a new program segment. Must
// not be called while samples are being fed.
func (m *Meter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for ch := range m.kchains {
		m.kchains[ch].Reset()
		m.peaks[ch].reset()
		m.truePeak[ch] = 0
	}

	m.blockPos = 0
	m.blockSum = 0
	m.ringPos = 0
	m.ringCount = 0
	m.momentaryPow = 0
	m.shortTermPow = 0
	m.gatedChunks = nil
	m.gatedLen = 0
	m.hist = [histBins]int{}
	m.histCount = 0
	m.maxMomentary = math.Inf(-1)
	m.maxShortTerm = math.Inf(-1)
}
