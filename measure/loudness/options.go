package loudness

import "fmt"

const (
	defaultChannels     = 2
	defaultOversampling = 4
)

// MeterOption mutates meter construction parameters.
type MeterOption func(*meterConfig) error

type meterConfig struct {
	channels     int
	oversampling int
}

// WithChannels sets the channel count (1 for mono, 2 for stereo;
// default 2). Mono meters report the single channel's true peak on both
// left and right slots.
func WithChannels(channels int) MeterOption {
	return func(cfg *meterConfig) error {
		if channels != 1 && channels != 2 {
			return fmt.Errorf("loudness meter supports 1 or 2 channels: %d", channels)
		}

		cfg.channels = channels

		return nil
	}
}

// WithTruePeakOversampling sets the true-peak interpolation factor
// (2, 4 or 8; default 4).
func WithTruePeakOversampling(factor int) MeterOption {
	return func(cfg *meterConfig) error {
		switch factor {
		case 2, 4, 8:
			cfg.oversampling = factor
			return nil
		default:
			return fmt.Errorf("true-peak oversampling must be 2, 4 or 8: %d", factor)
		}
	}
}
