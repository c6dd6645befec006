package spectrum

import (
	"math"
	"testing"
)

func TestNewAnalyzerValidation(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate float64
		opts       []AnalyzerOption
		wantErr    bool
	}{
		{"valid defaults", 48000, nil, false},
		{"valid 4096", 48000, []AnalyzerOption{WithFFTSize(4096)}, false},
		{"zero sample rate", 0, nil, true},
		{"non power of two", 48000, []AnalyzerOption{WithFFTSize(1000)}, true},
		{"fft too small", 48000, []AnalyzerOption{WithFFTSize(128)}, true},
		{"overlap too low", 48000, []AnalyzerOption{WithOverlap(0.1)}, true},
		{"overlap too high", 48000, []AnalyzerOption{WithOverlap(0.99)}, true},
		{"smoothing negative", 48000, []AnalyzerOption{WithSmoothing(-0.1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewAnalyzer(tt.sampleRate, tt.opts...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewAnalyzer() err=%v wantErr=%v", err, tt.wantErr)
			}

			if !tt.wantErr && a == nil {
				t.Fatal("NewAnalyzer() returned nil without error")
			}
		})
	}
}

func TestAnalyzerNotReadyBeforeFirstFrame(t *testing.T) {
	a, err := NewAnalyzer(48000, WithFFTSize(1024))
	if err != nil {
		t.Fatal(err)
	}

	if a.Ready() {
		t.Fatal("analyzer should not be ready before any input")
	}

	dst := make([]float64, a.NumBins())
	if a.MagnitudesDB(dst) {
		t.Error("MagnitudesDB should report not ready")
	}

	for _, v := range dst {
		if v != analyzerFloorDB {
			t.Fatalf("bin = %f, want floor %f before first frame", v, analyzerFloorDB)
		}
	}

	// One sample short of a full frame.
	a.PushBlock(make([]float64, 1023))
	if a.Ready() {
		t.Error("analyzer ready after 1023 of 1024 samples")
	}

	a.Push(0)
	if !a.Ready() {
		t.Error("analyzer not ready after a full frame")
	}
}

// TestAnalyzerSinePeak verifies a full-scale bin-centered sine reads
// ~0 dBFS at its bin and far less elsewhere.
func TestAnalyzerSinePeak(t *testing.T) {
	const sampleRate = 48000
	const fftSize = 1024

	a, err := NewAnalyzer(sampleRate, WithFFTSize(fftSize), WithSmoothing(0))
	if err != nil {
		t.Fatal(err)
	}

	// Bin 64 center frequency: exactly periodic in the frame.
	bin := 64
	freq := float64(bin) * sampleRate / fftSize

	for i := range fftSize {
		a.Push(math.Sin(2 * math.Pi * freq * float64(i) / sampleRate))
	}

	db := make([]float64, a.NumBins())
	if !a.MagnitudesDB(db) {
		t.Fatal("analyzer not ready")
	}

	if math.Abs(db[bin]) > 0.1 {
		t.Errorf("tone bin = %f dBFS, want ~0", db[bin])
	}

	// Hann leakage is confined to adjacent bins.
	for k := range db {
		if k >= bin-2 && k <= bin+2 {
			continue
		}

		if db[k] > -60 {
			t.Fatalf("bin %d = %f dBFS, want below -60 away from the tone", k, db[k])
		}
	}

	if got := a.BinFrequency(bin); math.Abs(got-freq) > 1e-9 {
		t.Errorf("BinFrequency(%d) = %f, want %f", bin, got, freq)
	}
}

// TestAnalyzerTwoToneLevels verifies the frame magnitude path bin by
// bin: two bin-centered half-scale tones read -6.02 dBFS each and
// everything outside their leakage reads below -60 dBFS.
func TestAnalyzerTwoToneLevels(t *testing.T) {
	const sampleRate = 48000
	const fftSize = 1024

	a, err := NewAnalyzer(sampleRate, WithFFTSize(fftSize), WithSmoothing(0))
	if err != nil {
		t.Fatal(err)
	}

	binA, binB := 32, 96
	freqA := float64(binA) * sampleRate / fftSize
	freqB := float64(binB) * sampleRate / fftSize

	for i := range fftSize {
		n := float64(i)
		a.Push(0.5*math.Sin(2*math.Pi*freqA*n/sampleRate) +
			0.5*math.Sin(2*math.Pi*freqB*n/sampleRate))
	}

	db := make([]float64, a.NumBins())
	if !a.MagnitudesDB(db) {
		t.Fatal("analyzer not ready")
	}

	if math.Abs(db[binA]-(-6.0206)) > 0.1 {
		t.Errorf("bin %d = %f dBFS, want ~-6.02", binA, db[binA])
	}
	if math.Abs(db[binB]-(-6.0206)) > 0.1 {
		t.Errorf("bin %d = %f dBFS, want ~-6.02", binB, db[binB])
	}

	for k := range db {
		if (k >= binA-2 && k <= binA+2) || (k >= binB-2 && k <= binB+2) {
			continue
		}

		if db[k] > -60 {
			t.Fatalf("bin %d = %f dBFS, want below -60 away from the tones", k, db[k])
		}
	}
}

// TestAnalyzerSmoothing verifies frames are exponentially blended.
func TestAnalyzerSmoothing(t *testing.T) {
	const fftSize = 512

	a, err := NewAnalyzer(48000, WithFFTSize(fftSize), WithSmoothing(0.9), WithOverlap(0.5))
	if err != nil {
		t.Fatal(err)
	}

	// First frame: a loud tone. Subsequent frames: silence.
	freq := 16.0 * 48000 / fftSize
	for i := range fftSize {
		a.Push(math.Sin(2 * math.Pi * freq * float64(i) / 48000))
	}

	db := make([]float64, a.NumBins())
	a.MagnitudesDB(db)
	first := db[16]

	a.PushBlock(make([]float64, fftSize))
	a.MagnitudesDB(db)

	if db[16] >= first {
		t.Errorf("smoothed bin should decay after silence: %f -> %f", first, db[16])
	}

	if db[16] < first-40 {
		t.Errorf("bin dropped %f dB in two hops; smoothing 0.9 should decay slowly", first-db[16])
	}
}

func TestAnalyzerCurveDB(t *testing.T) {
	a, err := NewAnalyzer(48000, WithFFTSize(1024), WithSmoothing(0))
	if err != nil {
		t.Fatal(err)
	}

	curve := a.CurveDB([]float64{100, 1000, 10000})
	for _, v := range curve {
		if v != analyzerFloorDB {
			t.Fatalf("curve before first frame = %f, want floor", v)
		}
	}

	freq := 64.0 * 48000 / 1024
	for i := range 1024 {
		a.Push(math.Sin(2 * math.Pi * freq * float64(i) / 48000))
	}

	curve = a.CurveDB([]float64{freq, freq * 4, -10, 1e9})
	if math.Abs(curve[0]) > 0.1 {
		t.Errorf("curve at tone = %f dBFS, want ~0", curve[0])
	}

	if curve[1] > -60 {
		t.Errorf("curve away from tone = %f dBFS, want below -60", curve[1])
	}

	// Out-of-range frequencies clamp to the edge bins.
	if curve[2] != a.CurveDB([]float64{0})[0] {
		t.Error("negative frequency should clamp to DC bin")
	}
}

func TestAnalyzerReset(t *testing.T) {
	a, _ := NewAnalyzer(48000, WithFFTSize(512))

	a.PushBlock(make([]float64, 512))
	if !a.Ready() {
		t.Fatal("analyzer should be ready")
	}

	a.Reset()

	if a.Ready() {
		t.Error("analyzer still ready after reset")
	}
}

func TestMagnitudeHelpers(t *testing.T) {
	in := []complex128{complex(3, 4), complex(0, 0), complex(-1, 0)}

	mag := Magnitude(in)
	want := []float64{5, 0, 1}
	for i := range mag {
		if math.Abs(mag[i]-want[i]) > 1e-12 {
			t.Errorf("Magnitude[%d] = %f, want %f", i, mag[i], want[i])
		}
	}

	pow := Power(in)
	wantPow := []float64{25, 0, 1}
	for i := range pow {
		if math.Abs(pow[i]-wantPow[i]) > 1e-12 {
			t.Errorf("Power[%d] = %f, want %f", i, pow[i], wantPow[i])
		}
	}

	dst := make([]float64, 2)
	MagnitudeFromParts(dst, []float64{3, 0}, []float64{4, 2})
	if dst[0] != 5 || dst[1] != 2 {
		t.Errorf("MagnitudeFromParts = %v, want [5 2]", dst)
	}

	if Magnitude(nil) != nil || Power(nil) != nil {
		t.Error("empty input should return nil")
	}
}
