package dither

import (
	"math"
	"math/rand/v2"
	"testing"
)

func TestNewQuantizerValidation(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate float64
		opts       []Option
		wantErr    bool
	}{
		{"valid defaults", 48000, nil, false},
		{"valid 24 bit", 48000, []Option{WithBitDepth(24)}, false},
		{"valid shelf", 48000, []Option{WithIIRShelf(8000)}, false},
		{"zero sample rate", 0, nil, true},
		{"nan sample rate", math.NaN(), nil, true},
		{"bit depth 0", 48000, []Option{WithBitDepth(0)}, true},
		{"bit depth 33", 48000, []Option{WithBitDepth(33)}, true},
		{"bad dither type", 48000, []Option{WithDitherType(DitherType(9))}, true},
		{"negative amplitude", 48000, []Option{WithDitherAmplitude(-1)}, true},
		{"bad shelf freq", 48000, []Option{WithIIRShelf(-100)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := NewQuantizer(tt.sampleRate, tt.opts...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewQuantizer() err=%v wantErr=%v", err, tt.wantErr)
			}

			if !tt.wantErr && q == nil {
				t.Fatal("NewQuantizer() returned nil without error")
			}
		})
	}
}

func TestQuantizerDefaults(t *testing.T) {
	q, err := NewQuantizer(48000)
	if err != nil {
		t.Fatal(err)
	}

	if q.BitDepth() != 16 {
		t.Errorf("BitDepth() = %d, want 16", q.BitDepth())
	}

	if q.DitherType() != DitherTriangular {
		t.Errorf("DitherType() = %v, want Triangular", q.DitherType())
	}

	if q.DitherAmplitude() != 1.0 {
		t.Errorf("DitherAmplitude() = %f, want 1", q.DitherAmplitude())
	}

	if !q.Limit() {
		t.Error("Limit() = false, want true")
	}
}

// TestQuantizerTruncationWithoutDither verifies plain truncation against
// hand-computed values at 16 bit.
func TestQuantizerTruncationWithoutDither(t *testing.T) {
	q, err := NewQuantizer(48000, WithDitherType(DitherNone))
	if err != nil {
		t.Fatal(err)
	}

	// bitMul = 2^15 - 0.5 = 32767.5
	tests := []struct {
		input float64
		want  int
	}{
		{0, 0},
		{1.5 / 32767.5, 1},
		{-0.5 / 32767.5, -1},
		{0.5, 16383},
		{1.0, 32767},
		{-1.0, -32768},
	}

	for _, tt := range tests {
		if got := q.ProcessInteger(tt.input); got != tt.want {
			t.Errorf("ProcessInteger(%g) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

// TestQuantizerLimiting verifies out-of-range input is clamped to the
// integer range of the bit depth.
func TestQuantizerLimiting(t *testing.T) {
	q, err := NewQuantizer(48000, WithDitherType(DitherNone))
	if err != nil {
		t.Fatal(err)
	}

	if got := q.ProcessInteger(2.0); got != 32767 {
		t.Errorf("ProcessInteger(2) = %d, want 32767", got)
	}

	if got := q.ProcessInteger(-2.0); got != -32768 {
		t.Errorf("ProcessInteger(-2) = %d, want -32768", got)
	}

	q.SetLimit(false)

	if got := q.ProcessInteger(2.0); got <= 32767 {
		t.Errorf("ProcessInteger(2) unlimited = %d, want above 32767", got)
	}
}

// TestQuantizerTPDFErrorBound verifies the quantization error with
// 1 LSB triangular dither never exceeds 2 LSB.
func TestQuantizerTPDFErrorBound(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	q, err := NewQuantizer(48000, WithRNG(rng))
	if err != nil {
		t.Fatal(err)
	}

	for i := range 10000 {
		x := 0.9 * math.Sin(2*math.Pi*float64(i)/100)
		y := q.ProcessSample(x)

		if errLSB := math.Abs(y-x) * 32767.5; errLSB > 2.0 {
			t.Fatalf("sample %d: quantization error %f LSB exceeds 2 LSB", i, errLSB)
		}
	}
}

// TestQuantizerDeterministicWithSeededRNG verifies two quantizers with
// the same seed produce identical output.
func TestQuantizerDeterministicWithSeededRNG(t *testing.T) {
	q1, _ := NewQuantizer(48000, WithRNG(rand.New(rand.NewPCG(42, 0))), WithIIRShelf(8000))
	q2, _ := NewQuantizer(48000, WithRNG(rand.New(rand.NewPCG(42, 0))), WithIIRShelf(8000))

	for i := range 4096 {
		x := 0.7 * math.Sin(2*math.Pi*float64(i)/37)

		if a, b := q1.ProcessSample(x), q2.ProcessSample(x); a != b {
			t.Fatalf("sample %d: outputs diverge: %g vs %g", i, a, b)
		}
	}
}

// TestQuantizerDitherDecorrelatesError verifies TPDF dither keeps a
// sub-LSB tone alive: without dither the tone truncates to a constant
// code, with dither the output toggles between neighboring codes.
func TestQuantizerDitherDecorrelatesError(t *testing.T) {
	// A tone riding at 0.5 LSB with 0.4 LSB swing stays inside one
	// quantization step.
	tone := func(i int) float64 {
		return (0.5 + 0.4*math.Sin(2*math.Pi*float64(i)/100)) / 32767.5
	}

	plain, _ := NewQuantizer(48000, WithDitherType(DitherNone))

	first := plain.ProcessInteger(tone(0))
	for i := 1; i < 1000; i++ {
		if got := plain.ProcessInteger(tone(i)); got != first {
			t.Fatalf("undithered sub-LSB tone should truncate to a constant, got %d then %d", first, got)
		}
	}

	dithered, _ := NewQuantizer(48000, WithRNG(rand.New(rand.NewPCG(3, 4))))

	varies := false
	first = dithered.ProcessInteger(tone(0))
	for i := 1; i < 1000; i++ {
		if dithered.ProcessInteger(tone(i)) != first {
			varies = true
			break
		}
	}

	if !varies {
		t.Error("dithered sub-LSB tone should toggle between codes")
	}
}

// TestIIRShelfShaperMovesNoiseUp verifies the shaped error spectrum has
// less low-frequency energy than the unshaped one.
func TestIIRShelfShaperMovesNoiseUp(t *testing.T) {
	const sampleRate = 48000
	const n = 1 << 15

	errorSignal := func(opts ...Option) []float64 {
		opts = append(opts, WithRNG(rand.New(rand.NewPCG(5, 6))), WithBitDepth(8))

		q, err := NewQuantizer(sampleRate, opts...)
		if err != nil {
			t.Fatal(err)
		}

		out := make([]float64, n)
		for i := range n {
			x := 0.5 * math.Sin(2*math.Pi*997*float64(i)/sampleRate)
			out[i] = q.ProcessSample(x) - x
		}

		return out
	}

	// Measure error power below 2 kHz with a crude Goertzel-style probe
	// at a few frequencies.
	lowPower := func(e []float64) float64 {
		var total float64
		for _, f := range []float64{250.0, 500.0, 1500.0} {
			var re, im float64
			for i, v := range e {
				w := 2 * math.Pi * f * float64(i) / sampleRate
				re += v * math.Cos(w)
				im += v * math.Sin(w)
			}

			total += re*re + im*im
		}

		return total
	}

	unshaped := lowPower(errorSignal())
	shaped := lowPower(errorSignal(WithIIRShelf(3000)))

	if shaped >= unshaped {
		t.Errorf("shaped low-frequency error power %g not below unshaped %g", shaped, unshaped)
	}
}

func TestQuantizerSetters(t *testing.T) {
	q, _ := NewQuantizer(48000)

	if err := q.SetBitDepth(24); err != nil {
		t.Fatalf("SetBitDepth(24) error = %v", err)
	}

	if q.BitDepth() != 24 {
		t.Errorf("BitDepth() = %d, want 24", q.BitDepth())
	}

	if err := q.SetBitDepth(0); err == nil {
		t.Error("expected bit depth validation error")
	}

	if err := q.SetDitherType(DitherRectangular); err != nil {
		t.Fatalf("SetDitherType() error = %v", err)
	}

	if err := q.SetDitherType(DitherType(-1)); err == nil {
		t.Error("expected dither type validation error")
	}

	if err := q.SetDitherAmplitude(0.5); err != nil {
		t.Fatalf("SetDitherAmplitude() error = %v", err)
	}

	if err := q.SetDitherAmplitude(math.Inf(1)); err == nil {
		t.Error("expected amplitude validation error")
	}
}

func TestDitherTypeString(t *testing.T) {
	tests := []struct {
		dt   DitherType
		want string
	}{
		{DitherNone, "None"},
		{DitherRectangular, "Rectangular"},
		{DitherTriangular, "Triangular"},
		{DitherType(9), "DitherType(9)"},
	}

	for _, tt := range tests {
		if got := tt.dt.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
