package testutil

import (
	"math"
	"testing"
)

// RequireSliceNearlyEqual fails t if got and want differ in length or if
// any element pair exceeds eps (absolute tolerance).
func RequireSliceNearlyEqual(t *testing.T, got, want []float64, eps float64) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}

	for i := range got {
		if diff := math.Abs(got[i] - want[i]); diff > eps {
			t.Fatalf("index %d: got %v, want %v (diff %v > eps %v)", i, got[i], want[i], diff, eps)
		}
	}
}

// RequireFinite fails t if any element is NaN or Inf.
func RequireFinite(t *testing.T, data []float64) {
	t.Helper()

	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("index %d: non-finite value %v", i, v)
		}
	}
}

// RMSdB returns the level of a buffer in dBFS, -Inf for silence.
func RMSdB(buf []float64) float64 {
	if len(buf) == 0 {
		return math.Inf(-1)
	}

	var sum float64
	for _, v := range buf {
		sum += v * v
	}

	mean := sum / float64(len(buf))
	if mean <= 0 {
		return math.Inf(-1)
	}

	return 10 * math.Log10(mean)
}

// RequireLevelNearDB fails t unless the buffer's RMS level is within
// tolDB of wantDB.
func RequireLevelNearDB(t *testing.T, buf []float64, wantDB, tolDB float64) {
	t.Helper()

	if got := RMSdB(buf); math.Abs(got-wantDB) > tolDB {
		t.Fatalf("level = %f dB, want %f +/- %f", got, wantDB, tolDB)
	}
}

// MaxAbsDiff returns the maximum absolute difference between two
// equal-length slices.
func MaxAbsDiff(t *testing.T, a, b []float64) float64 {
	t.Helper()

	if len(a) != len(b) {
		t.Fatalf("length mismatch: %d vs %d", len(a), len(b))
	}

	maxDiff := 0.0

	for i := range a {
		if d := math.Abs(a[i] - b[i]); d > maxDiff {
			maxDiff = d
		}
	}

	return maxDiff
}
