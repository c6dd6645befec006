package core

import "testing"

func TestEnsureLen(t *testing.T) {
	buf := make([]float64, 4, 16)

	got := EnsureLen(buf, 8)
	if len(got) != 8 {
		t.Fatalf("len = %d, want 8", len(got))
	}

	if &got[0] != &buf[0] {
		t.Error("EnsureLen should reuse capacity when possible")
	}

	grown := EnsureLen(buf, 32)
	if len(grown) != 32 {
		t.Fatalf("len = %d, want 32", len(grown))
	}

	if empty := EnsureLen(buf, 0); len(empty) != 0 {
		t.Errorf("len = %d, want 0", len(empty))
	}
}

func TestInterleaveRoundTrip(t *testing.T) {
	left := []float64{1, 2, 3}
	right := []float64{-1, -2, -3}
	inter := make([]float64, 6)

	Interleave(inter, left, right)

	want := []float64{1, -1, 2, -2, 3, -3}
	for i := range want {
		if inter[i] != want[i] {
			t.Fatalf("inter[%d] = %v, want %v", i, inter[i], want[i])
		}
	}

	outL := make([]float64, 3)
	outR := make([]float64, 3)
	Deinterleave(outL, outR, inter)

	for i := range left {
		if outL[i] != left[i] || outR[i] != right[i] {
			t.Fatalf("round trip mismatch at %d: L=%v R=%v", i, outL[i], outR[i])
		}
	}
}
