package biquad

import (
	"math"
	"math/cmplx"
	"testing"
)

func TestChain_CascadeMatchesSections(t *testing.T) {
	coeffs := []Coefficients{
		{B0: 0.25, B1: 0.5, B2: 0.25, A1: -0.2, A2: 0.04},
		{B0: 0.9, B1: -1.2, B2: 0.4, A1: -0.5, A2: 0.1},
	}

	chain := NewChain(coeffs)
	s0 := NewSection(coeffs[0])
	s1 := NewSection(coeffs[1])

	input := []float64{1, 0.5, -0.3, 0.7, 0, -1, 0.2, 0.8}
	for i, x := range input {
		want := s1.ProcessSample(s0.ProcessSample(x))
		got := chain.ProcessSample(x)
		if !almostEqual(got, want, eps) {
			t.Errorf("sample %d: chain=%.15f, manual cascade=%.15f", i, got, want)
		}
	}
}

func TestChain_ProcessBlockMatchesSample(t *testing.T) {
	coeffs := []Coefficients{
		{B0: 0.25, B1: 0.5, B2: 0.25, A1: -0.2, A2: 0.04},
		{B0: 0.9, B1: -1.2, B2: 0.4, A1: -0.5, A2: 0.1},
	}

	c1 := NewChain(coeffs, WithGain(0.5))
	c2 := NewChain(coeffs, WithGain(0.5))

	input := make([]float64, 37)
	for i := range input {
		input[i] = math.Sin(0.21 * float64(i))
	}

	ref := make([]float64, len(input))
	for i, x := range input {
		ref[i] = c1.ProcessSample(x)
	}

	block := make([]float64, len(input))
	copy(block, input)
	c2.ProcessBlock(block)

	for i := range block {
		if !almostEqual(block[i], ref[i], eps) {
			t.Errorf("sample %d: block=%.15f, sample=%.15f", i, block[i], ref[i])
		}
	}
}

func TestChain_Gain(t *testing.T) {
	chain := NewChain([]Coefficients{passthrough()}, WithGain(2))
	if g := chain.Gain(); g != 2 {
		t.Fatalf("Gain() = %v, want 2", g)
	}

	y := chain.ProcessSample(0.5)
	if !almostEqual(y, 1, eps) {
		t.Errorf("got %v, want 1", y)
	}

	chain.SetGain(0.25)
	y = chain.ProcessSample(1)
	if !almostEqual(y, 0.25, eps) {
		t.Errorf("after SetGain: got %v, want 0.25", y)
	}
}

func TestChain_OrderAndSections(t *testing.T) {
	chain := NewChain([]Coefficients{passthrough(), passthrough(), passthrough()})
	if n := chain.NumSections(); n != 3 {
		t.Errorf("NumSections() = %d, want 3", n)
	}
	if o := chain.Order(); o != 6 {
		t.Errorf("Order() = %d, want 6", o)
	}
}

func TestChain_Reset(t *testing.T) {
	coeffs := []Coefficients{
		{B0: 0.25, B1: 0.5, B2: 0.25, A1: -0.2, A2: 0.04},
		{B0: 0.9, B1: -1.2, B2: 0.4, A1: -0.5, A2: 0.1},
	}
	chain := NewChain(coeffs)

	chain.ProcessSample(1)
	chain.ProcessSample(-0.5)
	chain.Reset()

	for i := range coeffs {
		if st := chain.Section(i).State(); st != [2]float64{0, 0} {
			t.Errorf("section %d state not zero after reset: %v", i, st)
		}
	}
}

func TestChain_UpdateCoefficients_PreservesState(t *testing.T) {
	a := []Coefficients{{B0: 0.25, B1: 0.5, B2: 0.25, A1: -0.2, A2: 0.04}}
	b := []Coefficients{{B0: 0.3, B1: 0.4, B2: 0.3, A1: -0.1, A2: 0.02}}

	chain := NewChain(a)
	chain.ProcessSample(1)
	chain.ProcessSample(0.5)
	saved := chain.Section(0).State()

	// Same section count: delay-line state survives the coefficient swap.
	chain.UpdateCoefficients(b, 1)
	if chain.Section(0).State() != saved {
		t.Errorf("state not preserved: got %v, want %v", chain.Section(0).State(), saved)
	}
	if chain.Section(0).Coefficients != b[0] {
		t.Errorf("coefficients not updated: got %v, want %v", chain.Section(0).Coefficients, b[0])
	}

	// Different section count: sections rebuilt with zero state.
	chain.UpdateCoefficients([]Coefficients{a[0], b[0]}, 0.5)
	if n := chain.NumSections(); n != 2 {
		t.Fatalf("NumSections() = %d, want 2", n)
	}
	if g := chain.Gain(); g != 0.5 {
		t.Errorf("Gain() = %v, want 0.5", g)
	}
	for i := range 2 {
		if st := chain.Section(i).State(); st != [2]float64{0, 0} {
			t.Errorf("section %d state not zero after resize: %v", i, st)
		}
	}
}

func TestResponse_Passthrough(t *testing.T) {
	c := passthrough()
	for _, f := range []float64{0, 100, 1000, 10000} {
		h := c.Response(f, 48000)
		if !almostEqual(cmplx.Abs(h), 1, eps) {
			t.Errorf("f=%v: |H|=%v, want 1", f, cmplx.Abs(h))
		}
	}
}

func TestResponse_TwoTapAverageNull(t *testing.T) {
	// y[n] = 0.5*x[n] + 0.5*x[n-1] has a null at Nyquist and unity at DC.
	c := Coefficients{B0: 0.5, B1: 0.5}

	if db := c.MagnitudeDB(0, 48000); !almostEqual(db, 0, 1e-9) {
		t.Errorf("DC: %v dB, want 0", db)
	}
	if mag := cmplx.Abs(c.Response(24000, 48000)); mag > 1e-12 {
		t.Errorf("Nyquist: |H|=%v, want ~0", mag)
	}
}

func TestChainResponse_ProductOfSections(t *testing.T) {
	coeffs := []Coefficients{
		{B0: 0.25, B1: 0.5, B2: 0.25, A1: -0.2, A2: 0.04},
		{B0: 0.9, B1: -1.2, B2: 0.4, A1: -0.5, A2: 0.1},
	}
	chain := NewChain(coeffs, WithGain(2))

	f, sr := 1234.0, 48000.0
	want := complex(2, 0) * coeffs[0].Response(f, sr) * coeffs[1].Response(f, sr)
	got := chain.Response(f, sr)
	if cmplx.Abs(got-want) > 1e-12 {
		t.Errorf("chain response %v, want %v", got, want)
	}
}
