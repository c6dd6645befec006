package mastering

import "github.com/cwbudde/algo-mastering/measure/loudness"

// renderBlockSize is the block length used for offline rendering. Every
// stage is a per-sample state machine, so the rendered output is
// bit-identical for any blocking of the same program.
const renderBlockSize = 512

// Render masters an entire stereo program offline, in place, and
// returns the loudness reading of the processed output. The output is
// delayed by the chain latency, exactly as in real-time use.
func Render(sampleRate float64, cfg Config, left, right []float64) (loudness.Reading, error) {
	p, err := NewProcessor(sampleRate, cfg)
	if err != nil {
		return loudness.Reading{}, err
	}

	return p.RenderInPlace(left, right)
}

// RenderInPlace processes a whole program through the chain block by
// block. The processor is not reset first, so a fresh processor gives a
// deterministic render.
func (p *Processor) RenderInPlace(left, right []float64) (loudness.Reading, error) {
	if len(left) != len(right) {
		return loudness.Reading{}, errLengthMismatch(len(left), len(right))
	}

	for start := 0; start < len(left); start += renderBlockSize {
		end := start + renderBlockSize
		if end > len(left) {
			end = len(left)
		}

		if err := p.ProcessBlock(left[start:end], right[start:end]); err != nil {
			return loudness.Reading{}, err
		}
	}

	return p.LoudnessReading(), nil
}
