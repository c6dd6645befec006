//go:build amd64 && !purego

package biquad

import (
	_ "github.com/cwbudde/algo-mastering/dsp/filter/biquad/internal/arch/amd64/avx2" // register AVX2 backend
	_ "github.com/cwbudde/algo-mastering/dsp/filter/biquad/internal/arch/generic"    // register generic backend
)
