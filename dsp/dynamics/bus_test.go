package dynamics

import (
	"math"
	"math/rand"
	"testing"
)

func TestNewBusCompressor(t *testing.T) {
	b, err := NewBusCompressor(48000)
	if err != nil {
		t.Fatalf("NewBusCompressor() error = %v", err)
	}

	if b.Threshold() != -10 {
		t.Errorf("default threshold = %f, want -10", b.Threshold())
	}

	if b.RatioStep() != 1 {
		t.Errorf("default ratio step = %d, want 1 (4:1)", b.RatioStep())
	}

	if b.AttackStep() != 4 {
		t.Errorf("default attack step = %d, want 4 (10 ms)", b.AttackStep())
	}

	if b.ReleaseStep() != BusReleaseAuto {
		t.Errorf("default release step = %d, want auto", b.ReleaseStep())
	}

	if _, err := NewBusCompressor(0); err == nil {
		t.Error("expected error for invalid sample rate")
	}
}

func TestBusSteppedControls(t *testing.T) {
	b, _ := NewBusCompressor(48000)

	if err := b.SetRatioStep(2); err != nil {
		t.Fatalf("SetRatioStep(2) error = %v", err)
	}

	if b.core.ratio != 10 {
		t.Errorf("ratio step 2: ratio = %f, want 10", b.core.ratio)
	}

	if err := b.SetAttackStep(0); err != nil {
		t.Fatalf("SetAttackStep(0) error = %v", err)
	}

	if b.core.attackMs != 0.1 {
		t.Errorf("attack step 0: attack = %f ms, want 0.1", b.core.attackMs)
	}

	if err := b.SetReleaseStep(3); err != nil {
		t.Fatalf("SetReleaseStep(3) error = %v", err)
	}

	if b.ReleaseMs() != 1200 {
		t.Errorf("release step 3: release = %f ms, want 1200", b.ReleaseMs())
	}

	tests := []struct {
		name string
		err  error
	}{
		{"ratio step -1", b.SetRatioStep(-1)},
		{"ratio step 3", b.SetRatioStep(3)},
		{"attack step -1", b.SetAttackStep(-1)},
		{"attack step 6", b.SetAttackStep(6)},
		{"release step -2", b.SetReleaseStep(-2)},
		{"release step 4", b.SetReleaseStep(4)},
	}

	for _, tt := range tests {
		if tt.err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}

func TestBusCompressesAboveThreshold(t *testing.T) {
	b, _ := NewBusCompressor(48000)
	_ = b.SetThreshold(-20)
	_ = b.SetReleaseStep(0)

	for range 9600 {
		b.ProcessStereoSample(0.5, 0.5)
	}

	if gr := b.GainReductionDB(); gr <= 1 {
		t.Errorf("gain reduction = %f dB, want > 1 dB", gr)
	}
}

// TestBusAutoReleaseConvergence verifies the program-dependent release:
// transient-heavy material converges toward the minimum release time,
// sustained material toward the maximum.
func TestBusAutoReleaseConvergence(t *testing.T) {
	const sampleRate = 48000

	// Drum-like program: short full-scale bursts with long gaps.
	transient, _ := NewBusCompressor(sampleRate)
	_ = transient.SetReleaseStep(BusReleaseAuto)

	for i := range 3 * sampleRate {
		var x float64
		if i%(sampleRate/4) < 16 {
			x = 1.0
		}

		transient.ProcessStereoSample(x, x)
	}

	span := busAutoMaxMs - busAutoMinMs
	if got := transient.ReleaseMs(); got > busAutoMinMs+0.2*span {
		t.Errorf("transient program: release = %f ms, want near minimum %f ms", got, busAutoMinMs)
	}

	// Pad-like program: a steady moderate sine.
	sustained, _ := NewBusCompressor(sampleRate)
	_ = sustained.SetReleaseStep(BusReleaseAuto)

	for i := range 3 * sampleRate {
		x := 0.4 * math.Sin(2*math.Pi*220*float64(i)/sampleRate)
		sustained.ProcessStereoSample(x, x)
	}

	if got := sustained.ReleaseMs(); got < busAutoMaxMs-0.25*span {
		t.Errorf("sustained program: release = %f ms, want near maximum %f ms", got, busAutoMaxMs)
	}

	if transient.ReleaseMs() >= sustained.ReleaseMs() {
		t.Error("transient release must converge below sustained release")
	}
}

// TestBusAutoReleaseOnNoise verifies auto mode stays within its bounds
// on broadband material.
func TestBusAutoReleaseOnNoise(t *testing.T) {
	b, _ := NewBusCompressor(48000)
	_ = b.SetReleaseStep(BusReleaseAuto)

	rng := rand.New(rand.NewSource(1))
	for range 2 * 48000 {
		x := 0.5 * (2*rng.Float64() - 1)
		b.ProcessStereoSample(x, x)
	}

	ms := b.ReleaseMs()
	if ms < busAutoMinMs || ms > busAutoMaxMs {
		t.Errorf("auto release = %f ms, want within [%f, %f]", ms, busAutoMinMs, busAutoMaxMs)
	}
}

func TestBusStereoLinking(t *testing.T) {
	b, _ := NewBusCompressor(48000)
	_ = b.SetThreshold(-20)
	_ = b.SetReleaseStep(1)

	var gainL, gainR float64
	for range 4800 {
		l, r := b.ProcessStereoSample(0.7, 0.03)
		gainL = l / 0.7
		gainR = r / 0.03
	}

	if diff := math.Abs(gainL - gainR); diff > 1e-12 {
		t.Errorf("stereo gains diverge: left %f, right %f", gainL, gainR)
	}
}

func TestBusResetRestoresDeterministicState(t *testing.T) {
	b, _ := NewBusCompressor(48000)
	_ = b.SetThreshold(-15)

	in := make([]float64, 1024)
	for i := range in {
		in[i] = 0.8 * math.Sin(2*math.Pi*110*float64(i)/48000)
	}

	firstL := make([]float64, len(in))
	for i := range in {
		firstL[i], _ = b.ProcessStereoSample(in[i], in[i])
	}

	b.Reset()

	for i := range in {
		got, _ := b.ProcessStereoSample(in[i], in[i])
		if got != firstL[i] {
			t.Fatalf("sample %d differs after reset: got %g, want %g", i, got, firstL[i])
		}
	}
}
