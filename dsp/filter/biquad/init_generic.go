//go:build (!amd64 && !arm64) || purego

package biquad

import (
	_ "github.com/cwbudde/algo-mastering/dsp/filter/biquad/internal/arch/generic" // register generic backend
)
