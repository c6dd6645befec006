// Package mastering wires the DSP stages into the fixed mastering
// chain: input gain -> EQ -> multiband dynamics -> stereo widener ->
// brick-wall limiter -> dither. Configuration is a plain value object
// applied atomically at block boundaries; metering is published
// lock-free for UI readers.
package mastering

import (
	"fmt"
	"math/rand/v2"
	"sync/atomic"

	"github.com/cwbudde/algo-mastering/dsp/core"
	"github.com/cwbudde/algo-mastering/dsp/dither"
	"github.com/cwbudde/algo-mastering/dsp/dynamics"
	"github.com/cwbudde/algo-mastering/dsp/spatial"
	"github.com/cwbudde/algo-mastering/dsp/spectrum"
	"github.com/cwbudde/algo-mastering/measure/loudness"
)

const rmsWindowMs = 300

// Deterministic dither streams keep offline renders reproducible and
// bit-identical to block-wise processing of the same program.
const (
	ditherSeedL = 0x6d617374ff01
	ditherSeedR = 0x6d617374ff02
)

// Processor is the mastering chain. One goroutine calls ProcessBlock;
// SetConfig, ApplyPreset and Metering may be called concurrently from
// control threads.
type Processor struct {
	sampleRate float64

	cfg     Config                 // audio-thread copy of the active config
	current atomic.Pointer[Config] // last accepted config, for Config()
	pending atomic.Pointer[Config] // picked up at the next block start

	inputGainLin float64
	eq           *equalizer
	multiband    *dynamics.Multiband
	widener      *spatial.Widener
	limiter      *dynamics.Limiter
	ditherL      *dither.Quantizer
	ditherR      *dither.Quantizer

	meter    *loudness.Meter
	corr     *spatial.CorrelationMeter
	analyzer *spectrum.Analyzer
	inRMS    *rmsTracker
	outRMS   *rmsTracker

	bus         *meterBus
	grBuf       []float64
	specScratch []float64
}

// NewProcessor creates a mastering chain at the given sample rate.
func NewProcessor(sampleRate float64, cfg Config) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	meter, err := loudness.NewMeter(sampleRate)
	if err != nil {
		return nil, err
	}

	corr, err := spatial.NewCorrelationMeter(sampleRate, rmsWindowMs)
	if err != nil {
		return nil, err
	}

	analyzer, err := spectrum.NewAnalyzer(sampleRate)
	if err != nil {
		return nil, err
	}

	p := &Processor{
		sampleRate:  sampleRate,
		meter:       meter,
		corr:        corr,
		analyzer:    analyzer,
		inRMS:       newRMSTracker(sampleRate, rmsWindowMs),
		outRMS:      newRMSTracker(sampleRate, rmsWindowMs),
		bus:         newMeterBus(analyzer.NumBins()),
		specScratch: make([]float64, analyzer.NumBins()),
	}

	eq, err := newEqualizer(sampleRate, cfg.EQ)
	if err != nil {
		return nil, err
	}

	p.eq = eq

	p.multiband, err = dynamics.NewMultiband(cfg.Bands, cfg.CrossoverOrder, sampleRate)
	if err != nil {
		return nil, err
	}

	p.grBuf = make([]float64, len(cfg.Bands))

	p.widener, err = spatial.NewWidener(sampleRate,
		spatial.WithWidth(cfg.Widener.Width),
		spatial.WithBassMonoFreq(cfg.Widener.BassMonoHz))
	if err != nil {
		return nil, err
	}

	p.limiter, err = buildLimiter(sampleRate, cfg.Limiter)
	if err != nil {
		return nil, err
	}

	p.ditherL, p.ditherR, err = buildDither(sampleRate, cfg.Dither)
	if err != nil {
		return nil, err
	}

	p.inputGainLin = core.DBToLinear(cfg.InputGainDB)
	p.cfg = cfg
	p.current.Store(&cfg)

	return p, nil
}

func buildLimiter(sampleRate float64, cfg LimiterConfig) (*dynamics.Limiter, error) {
	lim, err := dynamics.NewLimiter(sampleRate)
	if err != nil {
		return nil, err
	}

	if err := lim.SetCeiling(cfg.CeilingDB); err != nil {
		return nil, err
	}

	if err := lim.SetRelease(cfg.ReleaseMs); err != nil {
		return nil, err
	}

	if err := lim.SetLookahead(cfg.LookaheadMs); err != nil {
		return nil, err
	}

	if err := lim.SetOversampling(cfg.Oversampling); err != nil {
		return nil, err
	}

	return lim, nil
}

func buildDither(sampleRate float64, cfg DitherConfig) (left, right *dither.Quantizer, err error) {
	if !cfg.Enabled {
		return nil, nil, nil
	}

	dt, err := cfg.ditherType()
	if err != nil {
		return nil, nil, err
	}

	build := func(seed uint64) (*dither.Quantizer, error) {
		opts := []dither.Option{
			dither.WithBitDepth(cfg.BitDepth),
			dither.WithDitherType(dt),
			dither.WithRNG(rand.New(rand.NewPCG(seed, seed>>16))),
		}
		if cfg.ShapingShelfHz > 0 {
			opts = append(opts, dither.WithIIRShelf(cfg.ShapingShelfHz))
		}

		return dither.NewQuantizer(sampleRate, opts...)
	}

	if left, err = build(ditherSeedL); err != nil {
		return nil, nil, err
	}

	if right, err = build(ditherSeedR); err != nil {
		return nil, nil, err
	}

	return left, right, nil
}

// SetConfig validates and stages a new configuration; the audio thread
// picks it up at the start of the next block.
func (p *Processor) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	p.current.Store(&cfg)
	p.pending.Store(&cfg)

	return nil
}

// ApplyPreset resolves a named preset and stages it.
func (p *Processor) ApplyPreset(category, name string) error {
	cfg, err := Preset(category, name)
	if err != nil {
		return err
	}

	return p.SetConfig(cfg)
}

// Config returns the most recently accepted configuration.
func (p *Processor) Config() Config {
	cfg := *p.current.Load()
	cfg.Bands = append([]dynamics.Band(nil), cfg.Bands...)
	cfg.EQ.Bands = append([]EQBand(nil), cfg.EQ.Bands...)

	return cfg
}

// SampleRate returns the configured sample rate.
func (p *Processor) SampleRate() float64 { return p.sampleRate }

// LatencySamples reports the chain latency (the limiter's lookahead and
// oversampling delay; all other stages are zero-latency IIR).
func (p *Processor) LatencySamples() int { return p.limiter.LatencySamples() }

func errLengthMismatch(l, r int) error {
	return fmt.Errorf("channel buffers must have equal length: %d != %d", l, r)
}

// applyConfig reconfigures the running stages. Stages keep their state
// where the topology is unchanged; a changed band layout or dither
// setup rebuilds that stage.
func (p *Processor) applyConfig(cfg *Config) error {
	p.inputGainLin = core.DBToLinear(cfg.InputGainDB)

	if err := p.eq.setConfig(cfg.EQ); err != nil {
		return err
	}

	if len(cfg.Bands) == p.multiband.NumBands() && cfg.CrossoverOrder == p.multiband.Order() {
		for i, b := range cfg.Bands {
			if err := p.multiband.SetBand(i, b); err != nil {
				return err
			}
		}
	} else {
		mb, err := dynamics.NewMultiband(cfg.Bands, cfg.CrossoverOrder, p.sampleRate)
		if err != nil {
			return err
		}

		p.multiband = mb
		p.grBuf = make([]float64, len(cfg.Bands))
	}

	if err := p.widener.SetWidth(cfg.Widener.Width); err != nil {
		return err
	}

	if err := p.widener.SetBassMonoFreq(cfg.Widener.BassMonoHz); err != nil {
		return err
	}

	if err := p.limiter.SetCeiling(cfg.Limiter.CeilingDB); err != nil {
		return err
	}

	if err := p.limiter.SetRelease(cfg.Limiter.ReleaseMs); err != nil {
		return err
	}

	if err := p.limiter.SetLookahead(cfg.Limiter.LookaheadMs); err != nil {
		return err
	}

	if err := p.limiter.SetOversampling(cfg.Limiter.Oversampling); err != nil {
		return err
	}

	if cfg.Dither != p.cfg.Dither {
		l, r, err := buildDither(p.sampleRate, cfg.Dither)
		if err != nil {
			return err
		}

		p.ditherL, p.ditherR = l, r
	}

	p.cfg = *cfg

	return nil
}

// ProcessBlock runs one stereo block through the chain in place and
// updates all meters. Buffers must have equal length.
func (p *Processor) ProcessBlock(left, right []float64) error {
	if len(left) != len(right) {
		return errLengthMismatch(len(left), len(right))
	}

	if cfg := p.pending.Swap(nil); cfg != nil {
		if err := p.applyConfig(cfg); err != nil {
			return err
		}
	}

	for i := range left {
		p.inRMS.process(left[i], right[i])
	}

	if p.inputGainLin != 1 {
		for i := range left {
			left[i] *= p.inputGainLin
			right[i] *= p.inputGainLin
		}
	}

	p.eq.processStereoInPlace(left, right)

	if err := p.multiband.ProcessStereoInPlace(left, right); err != nil {
		return err
	}

	if err := p.widener.ProcessStereoInPlace(left, right); err != nil {
		return err
	}

	p.limiter.ProcessStereoInPlace(left, right)

	// Metering taps the limiter output; dither is the export stage and
	// only adds sub-LSB noise.
	if err := p.meter.ProcessStereoBlock(left, right); err != nil {
		return err
	}

	p.corr.ProcessBlock(left, right)

	for i := range left {
		p.outRMS.process(left[i], right[i])
		p.analyzer.Push(0.5 * (left[i] + right[i]))
	}

	if p.ditherL != nil {
		p.ditherL.ProcessInPlace(left)
		p.ditherR.ProcessInPlace(right)
	}

	p.publishMeters()

	return nil
}

func (p *Processor) publishMeters() {
	p.multiband.GainReductionInto(p.grBuf)
	p.bus.publishBands(p.grBuf)

	p.bus.limiterGR.store(p.limiter.GainReductionDB())
	p.bus.correlation.store(p.corr.Correlation())
	p.bus.inputRMS.store(p.inRMS.db())
	p.bus.outputRMS.store(p.outRMS.db())

	if p.analyzer.MagnitudesDB(p.specScratch) {
		p.bus.publishSpectrum(p.specScratch)
	}
}

// Metering returns the current metering snapshot. Safe to call while
// the audio thread renders.
func (p *Processor) Metering() Snapshot {
	s := p.bus.snapshot()
	s.Loudness = p.meter.Reading()

	return s
}

// LoudnessReading returns the canonical meter's reading alone.
func (p *Processor) LoudnessReading() loudness.Reading {
	return p.meter.Reading()
}

// Reset clears all processing and metering state for a new program
// segment. Must not be called while a block renders.
func (p *Processor) Reset() {
	p.eq.reset()
	p.multiband.Reset()
	p.widener.Reset()
	p.limiter.Reset()

	if p.ditherL != nil {
		p.ditherL.Reset()
		p.ditherR.Reset()
	}

	p.meter.Reset()
	p.corr.Reset()
	p.analyzer.Reset()
	p.inRMS.reset()
	p.outRMS.reset()
	p.bus.reset()
}
