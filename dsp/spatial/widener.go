package spatial

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-mastering/dsp/filter/crossover"
)

const (
	defaultWidenerWidth = 1.0

	minWidenerWidth = 0.0
	maxWidenerWidth = 2.0

	defaultWidenerBassMonoFreq = 0.0 // disabled by default

	minWidenerBassMonoFreq = 20.0
	maxWidenerBassMonoFreq = 500.0

	bassMonoCrossoverOrder = 4
)

// WidenerOption mutates widener construction parameters.
type WidenerOption func(*widenerConfig) error

type widenerConfig struct {
	width        float64
	bassMonoFreq float64 // 0 means disabled
}

// WithWidth sets the stereo width factor.
// 0 = mono, 1 = unchanged, up to 2 = widened.
func WithWidth(width float64) WidenerOption {
	return func(cfg *widenerConfig) error {
		if width < minWidenerWidth || width > maxWidenerWidth ||
			math.IsNaN(width) || math.IsInf(width, 0) {
			return fmt.Errorf("widener width must be in [%g, %g]: %f",
				minWidenerWidth, maxWidenerWidth, width)
		}

		cfg.width = width

		return nil
	}
}

// WithBassMonoFreq enables bass mono mode: frequencies below the given
// crossover (in Hz) are collapsed to mono before the mid/side encode,
// preserving low-end coherence when the image is widened. Set to 0 to
// disable (default). Valid range when enabled: [20, 500] Hz.
func WithBassMonoFreq(freq float64) WidenerOption {
	return func(cfg *widenerConfig) error {
		if freq == 0 {
			cfg.bassMonoFreq = 0
			return nil
		}

		if freq < minWidenerBassMonoFreq || freq > maxWidenerBassMonoFreq ||
			math.IsNaN(freq) || math.IsInf(freq, 0) {
			return fmt.Errorf("widener bass mono freq must be 0 (disabled) or in [%g, %g]: %f",
				minWidenerBassMonoFreq, maxWidenerBassMonoFreq, freq)
		}

		cfg.bassMonoFreq = freq

		return nil
	}
}

// Widener adjusts the width of a stereo image using mid/side processing.
//
// Left/right are encoded into mid (sum) and side (difference), the side
// signal is scaled by the width factor, and the pair is decoded back to
// left/right. The mid signal is never altered, so mono compatibility is
// preserved at any width. Width 1 leaves the signal unchanged, 0
// collapses to mono, and values up to 2 widen the image.
//
// With bass mono enabled, a Linkwitz-Riley crossover splits each channel
// first; the band below the crossover is folded to mono and only the
// remainder is widened, so the reconstruction stays allpass.
//
// Real-time safe, not thread-safe.
type Widener struct {
	sampleRate   float64
	width        float64
	bassMonoFreq float64

	// Bass mono crossovers (nil when disabled).
	xoverL *crossover.Crossover
	xoverR *crossover.Crossover
}

// NewWidener creates a stereo widener with neutral defaults and
// optional overrides.
func NewWidener(sampleRate float64, opts ...WidenerOption) (*Widener, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("widener sample rate must be > 0 and finite: %f", sampleRate)
	}

	cfg := widenerConfig{
		width:        defaultWidenerWidth,
		bassMonoFreq: defaultWidenerBassMonoFreq,
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	w := &Widener{
		sampleRate:   sampleRate,
		width:        cfg.width,
		bassMonoFreq: cfg.bassMonoFreq,
	}

	if cfg.bassMonoFreq > 0 {
		if err := w.rebuildBassMonoFilters(); err != nil {
			return nil, err
		}
	}

	return w, nil
}

// ProcessStereo processes a single stereo sample pair and returns the
// widened left and right outputs.
func (w *Widener) ProcessStereo(left, right float64) (float64, float64) {
	if w.xoverL != nil {
		return w.processStereoWithBassMono(left, right)
	}

	return w.processStereoSimple(left, right)
}

func (w *Widener) processStereoSimple(left, right float64) (float64, float64) {
	mid := (left + right) * 0.5
	side := (left - right) * 0.5

	outL := mid + side*w.width
	outR := mid - side*w.width

	return outL, outR
}

func (w *Widener) processStereoWithBassMono(left, right float64) (float64, float64) {
	bassL, highL := w.xoverL.ProcessSample(left)
	bassR, highR := w.xoverR.ProcessSample(right)

	// Bass band: fold to mono before the M/S encode.
	bassMono := (bassL + bassR) * 0.5

	midHigh := (highL + highR) * 0.5
	sideHigh := (highL - highR) * 0.5

	outL := bassMono + midHigh + sideHigh*w.width
	outR := bassMono + midHigh - sideHigh*w.width

	return outL, outR
}

// ProcessStereoInPlace applies widening to paired left/right buffers in
// place. Both buffers must have the same length.
func (w *Widener) ProcessStereoInPlace(left, right []float64) error {
	if len(left) != len(right) {
		return fmt.Errorf("widener: left and right buffers must have equal length: %d != %d",
			len(left), len(right))
	}

	for i := range left {
		left[i], right[i] = w.ProcessStereo(left[i], right[i])
	}

	return nil
}

// ProcessInterleavedInPlace applies widening to an interleaved stereo
// buffer (L, R, L, R, ...) in place. The buffer length must be even.
func (w *Widener) ProcessInterleavedInPlace(buf []float64) error {
	if len(buf)%2 != 0 {
		return fmt.Errorf("widener: interleaved buffer length must be even: %d", len(buf))
	}

	for i := 0; i < len(buf); i += 2 {
		buf[i], buf[i+1] = w.ProcessStereo(buf[i], buf[i+1])
	}

	return nil
}

// Reset clears internal filter state.
func (w *Widener) Reset() {
	if w.xoverL != nil {
		w.xoverL.Reset()
		w.xoverR.Reset()
	}
}

// SampleRate returns the sample rate in Hz.
func (w *Widener) SampleRate() float64 { return w.sampleRate }

// Width returns the current stereo width factor.
func (w *Widener) Width() float64 { return w.width }

// BassMonoFreq returns the bass mono crossover frequency in Hz, or 0
// when disabled.
func (w *Widener) BassMonoFreq() float64 { return w.bassMonoFreq }

// SetWidth sets the stereo width factor.
// 0 = mono, 1 = unchanged, up to 2 = widened.
func (w *Widener) SetWidth(width float64) error {
	if width < minWidenerWidth || width > maxWidenerWidth ||
		math.IsNaN(width) || math.IsInf(width, 0) {
		return fmt.Errorf("widener width must be in [%g, %g]: %f",
			minWidenerWidth, maxWidenerWidth, width)
	}

	w.width = width

	return nil
}

// SetBassMonoFreq sets the bass mono crossover frequency. Set to 0 to
// disable. Retuning preserves filter state.
func (w *Widener) SetBassMonoFreq(freq float64) error {
	if freq == 0 {
		w.bassMonoFreq = 0
		w.xoverL = nil
		w.xoverR = nil

		return nil
	}

	if freq < minWidenerBassMonoFreq || freq > maxWidenerBassMonoFreq ||
		math.IsNaN(freq) || math.IsInf(freq, 0) {
		return fmt.Errorf("widener bass mono freq must be 0 (disabled) or in [%g, %g]: %f",
			minWidenerBassMonoFreq, maxWidenerBassMonoFreq, freq)
	}

	if w.xoverL != nil {
		if err := w.xoverL.SetFrequency(freq); err != nil {
			return fmt.Errorf("widener: %w", err)
		}
		if err := w.xoverR.SetFrequency(freq); err != nil {
			return fmt.Errorf("widener: %w", err)
		}

		w.bassMonoFreq = freq

		return nil
	}

	w.bassMonoFreq = freq

	return w.rebuildBassMonoFilters()
}

func (w *Widener) rebuildBassMonoFilters() error {
	xl, err := crossover.New(w.bassMonoFreq, bassMonoCrossoverOrder, w.sampleRate)
	if err != nil {
		return fmt.Errorf("widener: %w", err)
	}

	xr, err := crossover.New(w.bassMonoFreq, bassMonoCrossoverOrder, w.sampleRate)
	if err != nil {
		return fmt.Errorf("widener: %w", err)
	}

	w.xoverL = xl
	w.xoverR = xr

	return nil
}
