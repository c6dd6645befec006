package loudness

import (
	"math"
	"testing"
)

func TestNewMeterValidation(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate float64
		opts       []MeterOption
		wantErr    bool
	}{
		{"valid defaults", 48000, nil, false},
		{"valid mono", 48000, []MeterOption{WithChannels(1)}, false},
		{"valid 8x peak", 96000, []MeterOption{WithTruePeakOversampling(8)}, false},
		{"zero sample rate", 0, nil, true},
		{"negative sample rate", -44100, nil, true},
		{"nan sample rate", math.NaN(), nil, true},
		{"three channels", 48000, []MeterOption{WithChannels(3)}, true},
		{"bad oversampling", 48000, []MeterOption{WithTruePeakOversampling(3)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMeter(tt.sampleRate, tt.opts...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewMeter() err=%v wantErr=%v", err, tt.wantErr)
			}

			if !tt.wantErr && m == nil {
				t.Fatal("NewMeter() returned nil without error")
			}
		})
	}
}

func TestPowerToLUFS(t *testing.T) {
	tests := []struct {
		power float64
		want  float64
	}{
		{1, -0.691},
		{2, -0.691 + 10*math.Log10(2)},
		{0.01, -20.691},
	}

	for _, tt := range tests {
		if got := PowerToLUFS(tt.power); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("PowerToLUFS(%g) = %v, want %v", tt.power, got, tt.want)
		}
	}

	if got := PowerToLUFS(0); !math.IsInf(got, -1) {
		t.Errorf("PowerToLUFS(0) = %v, want -Inf", got)
	}

	if got := PowerToLUFS(-1); !math.IsInf(got, -1) {
		t.Errorf("PowerToLUFS(-1) = %v, want -Inf", got)
	}
}

// TestMeterSilence verifies digital silence never produces a finite
// reading.
func TestMeterSilence(t *testing.T) {
	m, err := NewMeter(48000)
	if err != nil {
		t.Fatal(err)
	}

	zeros := make([]float64, 5*48000)
	if err := m.ProcessStereoBlock(zeros, zeros); err != nil {
		t.Fatal(err)
	}

	r := m.Reading()

	for name, v := range map[string]float64{
		"Momentary":    r.Momentary,
		"ShortTerm":    r.ShortTerm,
		"Integrated":   r.Integrated,
		"TruePeakL":    r.TruePeakL,
		"TruePeakR":    r.TruePeakR,
		"TruePeakMax":  r.TruePeakMax,
		"MaxMomentary": r.MaxMomentary,
		"MaxShortTerm": r.MaxShortTerm,
	} {
		if !math.IsInf(v, -1) {
			t.Errorf("%s = %v on silence, want -Inf", name, v)
		}
	}

	if r.LoudnessRange != 0 {
		t.Errorf("LoudnessRange = %v on silence, want 0", r.LoudnessRange)
	}
}

// TestMeterStereoSine verifies a steady 997 Hz stereo sine at -20 dBFS
// reads -20 LUFS on every loudness statistic: the -0.691 offset cancels
// the K-weighting gain at the reference frequency.
func TestMeterStereoSine(t *testing.T) {
	const sampleRate = 48000
	const amp = 0.1 // -20 dBFS

	m, err := NewMeter(sampleRate)
	if err != nil {
		t.Fatal(err)
	}

	for i := range 5 * sampleRate {
		s := amp * math.Sin(2*math.Pi*997*float64(i)/sampleRate)
		m.ProcessStereoSample(s, s)
	}

	r := m.Reading()

	for name, v := range map[string]float64{
		"Momentary":  r.Momentary,
		"ShortTerm":  r.ShortTerm,
		"Integrated": r.Integrated,
	} {
		if math.Abs(v-(-20)) > 0.1 {
			t.Errorf("%s = %f LUFS, want -20 +/- 0.1", name, v)
		}
	}

	if r.MaxMomentary < -20.1 || r.MaxMomentary > -19.5 {
		t.Errorf("MaxMomentary = %f LUFS, want near -20", r.MaxMomentary)
	}

	// Peak of the sine is -20 dBFS; interpolation cannot read lower.
	if r.TruePeakMax < -20.1 || r.TruePeakMax > -19.7 {
		t.Errorf("TruePeakMax = %f dBTP, want near -20", r.TruePeakMax)
	}

	if r.TruePeakL != r.TruePeakR {
		t.Errorf("identical channels: TruePeakL %f != TruePeakR %f", r.TruePeakL, r.TruePeakR)
	}

	if r.LoudnessRange > 0.2 {
		t.Errorf("LoudnessRange = %f LU on a steady tone, want ~0", r.LoudnessRange)
	}
}

// TestMeterGatingExcludesSilence verifies trailing silence does not
// dilute the integrated value.
func TestMeterGatingExcludesSilence(t *testing.T) {
	const sampleRate = 48000
	const amp = 0.25 // ~ -12 LUFS as a stereo tone

	m, err := NewMeter(sampleRate)
	if err != nil {
		t.Fatal(err)
	}

	for i := range 2 * sampleRate {
		s := amp * math.Sin(2*math.Pi*997*float64(i)/sampleRate)
		m.ProcessStereoSample(s, s)
	}

	for range 2 * sampleRate {
		m.ProcessStereoSample(0, 0)
	}

	r := m.Reading()

	// Ungated averaging over the full 4 s would land near -15 LUFS.
	if r.Integrated < -13 || r.Integrated > -11.5 {
		t.Errorf("Integrated = %f LUFS, want near -12 with silence gated out", r.Integrated)
	}

	// The last 400 ms are silent.
	if !math.IsInf(r.Momentary, -1) {
		t.Errorf("Momentary = %f after trailing silence, want -Inf", r.Momentary)
	}
}

// TestMeterLoudnessRangeTwoLevels verifies LRA tracks the spread between
// a loud and a quiet section.
func TestMeterLoudnessRangeTwoLevels(t *testing.T) {
	const sampleRate = 48000

	m, err := NewMeter(sampleRate)
	if err != nil {
		t.Fatal(err)
	}

	// 5 s at -12 LUFS, 5 s at -32 LUFS: 20 LU apart.
	for i := range 5 * sampleRate {
		s := 0.25 * math.Sin(2*math.Pi*997*float64(i)/sampleRate)
		m.ProcessStereoSample(s, s)
	}

	for i := range 5 * sampleRate {
		s := 0.025 * math.Sin(2*math.Pi*997*float64(i)/sampleRate)
		m.ProcessStereoSample(s, s)
	}

	r := m.Reading()

	if r.LoudnessRange < 18.5 || r.LoudnessRange > 21 {
		t.Errorf("LoudnessRange = %f LU, want ~20", r.LoudnessRange)
	}
}

// TestMeterMonoOffset verifies a mono meter reads 3.01 LU below a
// stereo meter fed the same signal on both channels: channel powers sum.
func TestMeterMonoOffset(t *testing.T) {
	const sampleRate = 48000

	mono, err := NewMeter(sampleRate, WithChannels(1))
	if err != nil {
		t.Fatal(err)
	}

	stereo, err := NewMeter(sampleRate)
	if err != nil {
		t.Fatal(err)
	}

	for i := range 3 * sampleRate {
		s := 0.1 * math.Sin(2*math.Pi*997*float64(i)/sampleRate)
		mono.ProcessSample(s)
		stereo.ProcessStereoSample(s, s)
	}

	diff := stereo.IntegratedLUFS() - mono.IntegratedLUFS()
	if math.Abs(diff-10*math.Log10(2)) > 0.05 {
		t.Errorf("stereo - mono = %f LU, want %f", diff, 10*math.Log10(2))
	}
}

// TestMeterGatedStoreSpansChunks verifies the integrated statistics stay
// consistent once the gated window store grows past a single chunk.
func TestMeterGatedStoreSpansChunks(t *testing.T) {
	const sampleRate = 8000

	m, err := NewMeter(sampleRate)
	if err != nil {
		t.Fatal(err)
	}

	// 55 s of steady tone: ~547 gating windows, past the first chunk.
	for i := range 55 * sampleRate {
		s := 0.1 * math.Sin(2*math.Pi*997*float64(i)/sampleRate)
		m.ProcessStereoSample(s, s)
	}

	if m.gatedLen <= gatedChunkSize {
		t.Fatalf("gated windows = %d, want more than one chunk (%d)", m.gatedLen, gatedChunkSize)
	}

	if got, want := len(m.gatedChunks), 2; got != want {
		t.Fatalf("chunks = %d, want %d", got, want)
	}

	r := m.Reading()
	if math.Abs(r.Integrated-r.Momentary) > 0.05 {
		t.Errorf("steady tone: Integrated %f vs Momentary %f, want equal", r.Integrated, r.Momentary)
	}

	if got := m.IntegratedLUFS(); got != r.Integrated {
		t.Errorf("IntegratedLUFS() = %f, Reading().Integrated = %f", got, r.Integrated)
	}
}

// TestMeterConcurrentReading hammers Reading while another goroutine
// feeds samples: snapshots stay well formed and the running maximum
// never moves backwards.
func TestMeterConcurrentReading(t *testing.T) {
	const sampleRate = 8000

	m, err := NewMeter(sampleRate)
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)

		for i := range 20 * sampleRate {
			s := 0.2 * math.Sin(2*math.Pi*997*float64(i)/sampleRate)
			m.ProcessStereoSample(s, s)
		}
	}()

	prevMax := math.Inf(-1)
	for {
		select {
		case <-done:
			if r := m.Reading(); math.IsInf(r.Integrated, -1) {
				t.Error("Integrated undefined after 20 s of tone")
			}
			return
		default:
			r := m.Reading()
			if r.MaxMomentary < prevMax {
				t.Fatalf("MaxMomentary moved backwards: %f -> %f", prevMax, r.MaxMomentary)
			}
			prevMax = r.MaxMomentary

			if !math.IsInf(r.Integrated, -1) && (r.Integrated < -70 || r.Integrated > 0) {
				t.Fatalf("Integrated = %f LUFS, outside the plausible range", r.Integrated)
			}
		}
	}
}

func TestMeterMismatchedBuffers(t *testing.T) {
	m, _ := NewMeter(48000)

	if err := m.ProcessStereoBlock(make([]float64, 10), make([]float64, 11)); err == nil {
		t.Error("expected length mismatch error")
	}
}

func TestMeterReset(t *testing.T) {
	const sampleRate = 48000

	m, err := NewMeter(sampleRate)
	if err != nil {
		t.Fatal(err)
	}

	run := func() Reading {
		for i := range 2 * sampleRate {
			s := 0.3 * math.Sin(2*math.Pi*440*float64(i)/sampleRate)
			m.ProcessStereoSample(s, s)
		}

		return m.Reading()
	}

	first := run()

	m.Reset()

	r := m.Reading()
	if !math.IsInf(r.Integrated, -1) || !math.IsInf(r.TruePeakMax, -1) {
		t.Fatalf("Reading() after Reset() = %+v, want empty", r)
	}

	if second := run(); second != first {
		t.Errorf("reading after reset = %+v, want %+v", second, first)
	}
}
