package loudness

// Reading is a point-in-time snapshot of every meter statistic. All
// loudness values are in LUFS, range in LU, peaks in dBTP. Values that
// are not yet defined (too little program material, or digital silence
// for the peaks) are negative infinity.
type Reading struct {
	Momentary     float64 `json:"momentaryLUFS"`
	ShortTerm     float64 `json:"shortTermLUFS"`
	Integrated    float64 `json:"integratedLUFS"`
	LoudnessRange float64 `json:"loudnessRangeLU"`

	TruePeakL   float64 `json:"truePeakLeftDBTP"`
	TruePeakR   float64 `json:"truePeakRightDBTP"`
	TruePeakMax float64 `json:"truePeakMaxDBTP"`

	MaxMomentary float64 `json:"maxMomentaryLUFS"`
	MaxShortTerm float64 `json:"maxShortTermLUFS"`
}
