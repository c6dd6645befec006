package core

// EnsureLen returns a slice with the requested length, reusing buf capacity if possible.
func EnsureLen(buf []float64, n int) []float64 {
	if n <= 0 {
		return buf[:0]
	}

	if cap(buf) >= n {
		return buf[:n]
	}

	return make([]float64, n)
}

// Zero sets all values in buf to 0.
func Zero(buf []float64) {
	for i := range buf {
		buf[i] = 0
	}
}

// CopyInto copies src into dst and returns the number of copied elements.
func CopyInto(dst, src []float64) int {
	n := min(len(dst), len(src))
	copy(dst[:n], src[:n])

	return n
}

// Deinterleave splits an interleaved stereo buffer (L, R, L, R, ...) into
// left and right channel buffers. All slices must satisfy
// len(interleaved) == 2*len(left) == 2*len(right).
func Deinterleave(left, right, interleaved []float64) {
	n := len(interleaved) / 2
	_ = left[n-1]
	_ = right[n-1]

	for i := range n {
		left[i] = interleaved[2*i]
		right[i] = interleaved[2*i+1]
	}
}

// Interleave packs left and right channel buffers into an interleaved
// stereo buffer (L, R, L, R, ...). All slices must satisfy
// len(interleaved) == 2*len(left) == 2*len(right).
func Interleave(interleaved, left, right []float64) {
	n := len(left)
	_ = interleaved[2*n-1]

	for i := range n {
		interleaved[2*i] = left[i]
		interleaved[2*i+1] = right[i]
	}
}
