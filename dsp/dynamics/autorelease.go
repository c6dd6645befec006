package dynamics

import (
	"fmt"
	"math"
)

const (
	// Dual-rate envelope time constants for the crest-factor estimate.
	autoFastAttackMs  = 1.0
	autoFastReleaseMs = 50.0
	autoSlowAttackMs  = 50.0
	autoSlowReleaseMs = 500.0

	autoPeakHoldMs = 200.0
	autoSmoothMs   = 100.0

	// Crest factors below the low bound read as fully sustained, above
	// the high bound as fully transient. A sine sits near 1.5 on this
	// scale (held peak and fast envelope, averaged, over mean magnitude).
	autoCrestLow  = 1.7
	autoCrestHigh = 6.0

	// Deep gain reduction shortens the release target.
	autoGRShortenDB = 24.0
)

// autoRelease estimates a program-dependent release time from the
// detector signal. Transient-heavy material (high crest factor) pulls
// the release toward its minimum so pumping recovers quickly; sustained
// material pulls it toward the maximum to avoid breathing.
type autoRelease struct {
	minMs, maxMs float64

	fastAttack  float64
	fastRelease float64
	slowAttack  float64
	slowRelease float64
	peakDecay   float64
	smoothCoeff float64

	fastEnv  float64
	slowEnv  float64
	peakHold float64

	currentMs float64
}

func newAutoRelease(minMs, maxMs, sampleRate float64) (*autoRelease, error) {
	if err := validateSampleRate(sampleRate); err != nil {
		return nil, err
	}

	if minMs < minReleaseMs || maxMs > maxReleaseMs || minMs >= maxMs ||
		!isFinite(minMs) || !isFinite(maxMs) {
		return nil, fmt.Errorf("auto release bounds must satisfy %g <= min < max <= %g ms: [%f, %f]",
			minReleaseMs, maxReleaseMs, minMs, maxMs)
	}

	coeff := func(ms float64) float64 {
		return math.Exp(-math.Ln2 / (ms * 0.001 * sampleRate))
	}

	return &autoRelease{
		minMs:       minMs,
		maxMs:       maxMs,
		fastAttack:  1 - coeff(autoFastAttackMs),
		fastRelease: coeff(autoFastReleaseMs),
		slowAttack:  1 - coeff(autoSlowAttackMs),
		slowRelease: coeff(autoSlowReleaseMs),
		peakDecay:   coeff(autoPeakHoldMs),
		smoothCoeff: 1 - coeff(autoSmoothMs),
		currentMs:   maxMs,
	}, nil
}

// update advances the estimator by one detector sample (a magnitude)
// and the current gain reduction in positive dB, and returns the
// smoothed release target in milliseconds, bounded to [minMs, maxMs].
func (a *autoRelease) update(level, gainReductionDB float64) float64 {
	// Dual-rate followers: fast tracks hits, slow tracks the body.
	if level > a.fastEnv {
		a.fastEnv += (level - a.fastEnv) * a.fastAttack
	} else {
		a.fastEnv = level + (a.fastEnv-level)*a.fastRelease
	}

	if level > a.slowEnv {
		a.slowEnv += (level - a.slowEnv) * a.slowAttack
	} else {
		a.slowEnv = level + (a.slowEnv-level)*a.slowRelease
	}

	a.peakHold *= a.peakDecay
	if level > a.peakHold {
		a.peakHold = level
	}

	// Crest estimate: the held peak and the fast envelope both measure
	// the hits, the slow envelope the body. Averaging peak hold with the
	// fast envelope keeps isolated peaks from dominating the ratio once
	// the fast follower has already recovered.
	crest := 0.5 * (a.peakHold + a.fastEnv) / math.Max(a.slowEnv, 1e-9)

	transientness := (crest - autoCrestLow) / (autoCrestHigh - autoCrestLow)
	if transientness < 0 {
		transientness = 0
	} else if transientness > 1 {
		transientness = 1
	}

	target := a.maxMs - transientness*(a.maxMs-a.minMs)

	// Heavy compression needs faster recovery regardless of crest.
	target /= 1 + gainReductionDB/autoGRShortenDB

	if target < a.minMs {
		target = a.minMs
	} else if target > a.maxMs {
		target = a.maxMs
	}

	a.currentMs += (target - a.currentMs) * a.smoothCoeff

	return a.currentMs
}

func (a *autoRelease) reset() {
	a.fastEnv = 0
	a.slowEnv = 0
	a.peakHold = 0
	a.currentMs = a.maxMs
}
