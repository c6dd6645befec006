package dynamics

import (
	"math"
	"testing"
)

// TestGainCurveBelowThreshold verifies unity gain well under the knee.
func TestGainCurveBelowThreshold(t *testing.T) {
	c, err := newCore(48000)
	if err != nil {
		t.Fatal(err)
	}

	_ = c.setThreshold(-20)
	_ = c.setRatio(4)
	_ = c.setKnee(0)

	for _, dB := range []float64{-60, -40, -25, -20.001} {
		level := math.Pow(10, dB/20)
		if g := c.gainForLevel(level); g != 1.0 {
			t.Errorf("gainForLevel(%g dB) = %f, want 1", dB, g)
		}
	}
}

// TestGainCurveHardKnee verifies the slope above threshold matches the
// ratio: each dB of overshoot is reduced by (1 - 1/ratio) dB.
func TestGainCurveHardKnee(t *testing.T) {
	c, err := newCore(48000)
	if err != nil {
		t.Fatal(err)
	}

	_ = c.setThreshold(-20)
	_ = c.setKnee(0)

	for _, ratio := range []float64{2, 4, 10, 100} {
		_ = c.setRatio(ratio)

		for _, overshootDB := range []float64{1, 6, 12, 24} {
			level := math.Pow(10, (-20+overshootDB)/20)
			gotDB := 20 * math.Log10(c.gainForLevel(level))
			wantDB := -overshootDB * (1 - 1/ratio)

			if diff := math.Abs(gotDB - wantDB); diff > 1e-6 {
				t.Errorf("ratio %g, overshoot %g dB: gain = %f dB, want %f dB",
					ratio, overshootDB, gotDB, wantDB)
			}
		}
	}
}

// TestGainCurveSoftKneeContinuity verifies the soft knee meets the hard
// segments at both knee edges and stays between them inside.
func TestGainCurveSoftKneeContinuity(t *testing.T) {
	c, err := newCore(48000)
	if err != nil {
		t.Fatal(err)
	}

	_ = c.setThreshold(-20)
	_ = c.setRatio(4)
	_ = c.setKnee(6)

	// Just below the knee: unity.
	lo := math.Pow(10, (-20-3.01)/20)
	if g := c.gainForLevel(lo); g != 1.0 {
		t.Errorf("below knee: gain = %f, want 1", g)
	}

	// At the lower knee edge the blend contributes nothing.
	edge := math.Pow(10, (-20-3.0)/20)
	if g := c.gainForLevel(edge); math.Abs(g-1.0) > 1e-9 {
		t.Errorf("lower knee edge: gain = %f, want ~1", g)
	}

	// At the upper knee edge the blend equals the hard-knee value:
	// (w/2 + w/2)^2 / (2w) = w/2 = overshoot.
	upper := math.Pow(10, (-20+3.0)/20)
	gotDB := 20 * math.Log10(c.gainForLevel(upper))
	wantDB := -3.0 * (1 - 1.0/4)

	if diff := math.Abs(gotDB - wantDB); diff > 1e-6 {
		t.Errorf("upper knee edge: gain = %f dB, want %f dB", gotDB, wantDB)
	}

	// Inside the knee: less reduction than the hard curve, more than none.
	mid := math.Pow(10, (-20+1.5)/20)
	g := c.gainForLevel(mid)
	hard := math.Pow(2, -1.5*log2Of10Div20*(1-1.0/4))

	if g <= hard || g >= 1 {
		t.Errorf("inside knee: gain = %f, want in (%f, 1)", g, hard)
	}
}

// TestEnvelopeFollowerDirection verifies attack on rising input and
// release on falling input.
func TestEnvelopeFollowerDirection(t *testing.T) {
	c, err := newCore(48000)
	if err != nil {
		t.Fatal(err)
	}

	_ = c.setAttack(1)
	_ = c.setRelease(100)

	prev := 0.0
	for range 100 {
		env := c.envelopeLevel(1.0)
		if env <= prev {
			t.Fatal("envelope must rise monotonically toward a constant input")
		}

		prev = env
	}

	if prev > 1 {
		t.Fatalf("envelope overshot the input: %f", prev)
	}

	for range 100 {
		env := c.envelopeLevel(0)
		if env >= prev {
			t.Fatal("envelope must fall monotonically after the input drops")
		}

		prev = env
	}
}

// TestTimeConstantHalfLife verifies the release coefficient halves the
// envelope after one release time.
func TestTimeConstantHalfLife(t *testing.T) {
	const sampleRate = 48000

	c, err := newCore(sampleRate)
	if err != nil {
		t.Fatal(err)
	}

	_ = c.setRelease(100)

	c.envelope = 1
	samples := int(0.100 * sampleRate)
	for range samples {
		c.envelopeLevel(0)
	}

	if diff := math.Abs(c.envelope - 0.5); diff > 0.01 {
		t.Errorf("envelope after one release time = %f, want ~0.5", c.envelope)
	}
}

// TestAutoMakeupCompensatesThresholdReduction verifies the auto makeup
// equals the gain reduction a signal at threshold would see.
func TestAutoMakeupCompensatesThresholdReduction(t *testing.T) {
	c, err := newCore(48000)
	if err != nil {
		t.Fatal(err)
	}

	_ = c.setThreshold(-20)
	_ = c.setRatio(4)
	c.setAutoMakeup(true)

	want := 20.0 * (1 - 1.0/4)
	if diff := math.Abs(c.makeupGainDB - want); diff > 1e-9 {
		t.Errorf("auto makeup = %f dB, want %f dB", c.makeupGainDB, want)
	}

	// Manual makeup disables auto.
	_ = c.setMakeupGain(3)
	if c.autoMakeup {
		t.Error("manual makeup must disable auto makeup")
	}
}

func TestGainToReductionDB(t *testing.T) {
	tests := []struct {
		gain float64
		want float64
	}{
		{1.0, 0},
		{1.5, 0},
		{0, 0},
		{-0.5, 0},
		{0.5, 6.0205999132796239},
		{0.1, 20},
	}

	for _, tt := range tests {
		if got := gainToReductionDB(tt.gain); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("gainToReductionDB(%g) = %f, want %f", tt.gain, got, tt.want)
		}
	}
}

// TestAutoReleaseBounds verifies estimator construction limits.
func TestAutoReleaseBounds(t *testing.T) {
	tests := []struct {
		name    string
		min     float64
		max     float64
		wantErr bool
	}{
		{"valid", 50, 1200, false},
		{"inverted", 500, 100, true},
		{"equal", 100, 100, true},
		{"below floor", 0.1, 500, true},
		{"above ceiling", 100, 9000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newAutoRelease(tt.min, tt.max, 48000)
			if (err != nil) != tt.wantErr {
				t.Fatalf("newAutoRelease(%g, %g) err=%v wantErr=%v", tt.min, tt.max, err, tt.wantErr)
			}
		})
	}
}
