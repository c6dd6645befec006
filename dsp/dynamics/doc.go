// Package dynamics provides dynamic range processors for mastering:
// a soft-knee compressor, a multiband compressor built on
// Linkwitz-Riley crossovers, a lookahead brick-wall limiter with an
// oversampled soft clipper, and three vintage-style variants (FET,
// optical and bus compression).
//
// All processors share one log2-domain gain computer and envelope
// follower. Stereo processing is linked: the detector follows the
// louder channel and the same gain is applied to both, preserving the
// stereo image.
//
// Processors are single-threaded. Parameter setters must not race
// processing calls; coordinate externally when automating parameters
// from another goroutine.
package dynamics
