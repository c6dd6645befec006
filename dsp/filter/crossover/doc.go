// Package crossover implements Linkwitz-Riley crossover networks for
// splitting audio into frequency bands.
//
// A two-way [Crossover] produces complementary lowpass/highpass outputs
// that sum back to an allpass response. [MultiBand] cascades two-way
// stages into an N-band splitter, the band-splitting topology used by
// the multiband compressor.
package crossover
