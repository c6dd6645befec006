package mastering

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-mastering/measure/loudness"
)

// TestRenderMatchesBlockwise verifies the offline render is
// bit-identical to streaming the same program through a processor.
func TestRenderMatchesBlockwise(t *testing.T) {
	const n = 3 * 48000

	cfg, err := Preset("streaming", "loud")
	if err != nil {
		t.Fatal(err)
	}

	lOff, rOff := stereoNoise(n, 61, 62)
	lRT := append([]float64(nil), lOff...)
	rRT := append([]float64(nil), rOff...)

	offline, err := Render(48000, cfg, lOff, rOff)
	if err != nil {
		t.Fatal(err)
	}

	p, err := NewProcessor(48000, cfg)
	if err != nil {
		t.Fatal(err)
	}

	for start := 0; start < n; start += 1024 {
		if err := p.ProcessBlock(lRT[start:start+1024], rRT[start:start+1024]); err != nil {
			t.Fatal(err)
		}
	}

	for i := range lOff {
		if lOff[i] != lRT[i] || rOff[i] != rRT[i] {
			t.Fatalf("sample %d differs between offline and streaming renders", i)
		}
	}

	if rt := p.LoudnessReading(); rt.Integrated != offline.Integrated {
		t.Errorf("integrated differs: offline %f vs streaming %f", offline.Integrated, rt.Integrated)
	}
}

// TestRenderStreamingScenario runs 10 s of -6 dBFS noise through the
// streaming preset and checks the compliance report against the
// streaming target.
func TestRenderStreamingScenario(t *testing.T) {
	const sampleRate = 48000
	const n = 10 * sampleRate

	cfg, err := Preset("streaming", "default")
	if err != nil {
		t.Fatal(err)
	}

	l, r := stereoNoise(n, 71, 72)

	reading, err := Render(sampleRate, cfg, l, r)
	if err != nil {
		t.Fatal(err)
	}

	if math.IsInf(reading.Integrated, -1) {
		t.Fatal("integrated loudness undefined after 10 s of noise")
	}

	c := loudness.TargetStreaming.Compare(reading)

	// -6 dBFS peaks stay far under the -1 dBTP ceiling.
	if !c.TruePeakCompliant {
		t.Errorf("TruePeakCompliant = false with true peak %f dBTP", reading.TruePeakMax)
	}

	wantWithin := math.Abs(reading.Integrated-loudness.TargetStreaming.IntegratedLUFS) <=
		loudness.TargetStreaming.ToleranceLU

	if c.WithinTolerance != wantWithin {
		t.Errorf("WithinTolerance = %v, want %v at %f LUFS", c.WithinTolerance, wantWithin, reading.Integrated)
	}

	if math.Abs(c.GainAdjustDB-(loudness.TargetStreaming.IntegratedLUFS-reading.Integrated)) > 1e-12 {
		t.Errorf("GainAdjustDB = %f inconsistent with integrated %f", c.GainAdjustDB, reading.Integrated)
	}
}

func TestRenderMismatchedBuffers(t *testing.T) {
	if _, err := Render(48000, DefaultConfig(), make([]float64, 10), make([]float64, 9)); err == nil {
		t.Error("expected length mismatch error")
	}
}
