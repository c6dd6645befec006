package testutil

import (
	"math"
	"testing"
)

func TestSine(t *testing.T) {
	const sampleRate = 48000.0

	s := Sine(1000, sampleRate, 0.5, 4800)

	if len(s) != 4800 {
		t.Fatalf("length = %d, want 4800", len(s))
	}

	if s[0] != 0 {
		t.Errorf("first sample = %v, want 0", s[0])
	}

	// 1 kHz at 48 kHz: sample 12 sits at the positive crest.
	if math.Abs(s[12]-0.5) > 1e-9 {
		t.Errorf("crest sample = %v, want 0.5", s[12])
	}

	for i, v := range s {
		if math.Abs(v) > 0.5 {
			t.Fatalf("sample %d = %v exceeds amplitude 0.5", i, v)
		}
	}
}

func TestNoiseDeterministic(t *testing.T) {
	a := Noise(42, 1, 1000)
	b := Noise(42, 1, 1000)
	c := Noise(43, 1, 1000)

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed diverges at sample %d", i)
		}

		if math.Abs(a[i]) > 1 {
			t.Fatalf("sample %d = %v out of range", i, a[i])
		}
	}

	same := true

	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}

	if same {
		t.Error("different seeds produced identical noise")
	}
}

func TestStereoNoiseChannelsIndependent(t *testing.T) {
	l, r := StereoNoise(7, 0.5, 512)

	if len(l) != 512 || len(r) != 512 {
		t.Fatalf("lengths = %d, %d, want 512", len(l), len(r))
	}

	same := true

	for i := range l {
		if l[i] != r[i] {
			same = false
			break
		}
	}

	if same {
		t.Error("left and right channels are identical")
	}
}

func TestImpulse(t *testing.T) {
	s := Impulse(16, 3)

	for i, v := range s {
		want := 0.0
		if i == 3 {
			want = 1
		}

		if v != want {
			t.Fatalf("sample %d = %v, want %v", i, v, want)
		}
	}

	// Out-of-range position yields silence.
	for _, v := range Impulse(8, 20) {
		if v != 0 {
			t.Fatal("out-of-range impulse position should yield silence")
		}
	}
}

func TestDC(t *testing.T) {
	for _, v := range DC(0.25, 64) {
		if v != 0.25 {
			t.Fatalf("sample = %v, want 0.25", v)
		}
	}
}
