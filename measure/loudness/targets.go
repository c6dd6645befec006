package loudness

import "math"

// Target describes a delivery loudness specification.
type Target struct {
	Name           string  `json:"name"`
	IntegratedLUFS float64 `json:"integratedLUFS"`
	MaxTruePeakDB  float64 `json:"maxTruePeakDBTP"`
	ToleranceLU    float64 `json:"toleranceLU"`
	MaxRangeLU     float64 `json:"maxRangeLU"`
}

// Common delivery targets.
var (
	TargetStreaming = Target{
		Name:           "Streaming",
		IntegratedLUFS: -14,
		MaxTruePeakDB:  -1.0,
		ToleranceLU:    1.0,
		MaxRangeLU:     20,
	}

	TargetEBUR128 = Target{
		Name:           "EBU R128",
		IntegratedLUFS: -23,
		MaxTruePeakDB:  -1.0,
		ToleranceLU:    0.5,
		MaxRangeLU:     20,
	}

	TargetATSC = Target{
		Name:           "ATSC A/85",
		IntegratedLUFS: -24,
		MaxTruePeakDB:  -2.0,
		ToleranceLU:    2.0,
		MaxRangeLU:     20,
	}

	TargetCinema = Target{
		Name:           "Cinema",
		IntegratedLUFS: -27,
		MaxTruePeakDB:  -2.0,
		ToleranceLU:    2.0,
		MaxRangeLU:     20,
	}
)

// Comparison reports how a reading stands against a target.
type Comparison struct {
	Target Target `json:"target"`

	// DeviationLU is integrated minus target, positive when too loud.
	DeviationLU float64 `json:"deviationLU"`

	// GainAdjustDB is the static gain that would center the program on
	// the target loudness.
	GainAdjustDB float64 `json:"gainAdjustDB"`

	WithinTolerance   bool `json:"withinTolerance"`
	TruePeakCompliant bool `json:"truePeakCompliant"`
	RangeCompliant    bool `json:"rangeCompliant"`
}

// Compare evaluates a reading against the target. A reading without a
// defined integrated loudness (no gated program material) is never
// within tolerance and needs no gain adjustment.
func (t Target) Compare(r Reading) Comparison {
	c := Comparison{
		Target:            t,
		TruePeakCompliant: r.TruePeakMax <= t.MaxTruePeakDB,
		RangeCompliant:    r.LoudnessRange <= t.MaxRangeLU,
	}

	if math.IsInf(r.Integrated, -1) {
		c.DeviationLU = math.Inf(-1)
		return c
	}

	c.DeviationLU = r.Integrated - t.IntegratedLUFS
	c.GainAdjustDB = -c.DeviationLU
	c.WithinTolerance = math.Abs(c.DeviationLU) <= t.ToleranceLU

	return c
}
