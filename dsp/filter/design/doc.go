// Package design provides digital IIR filter coefficient designers.
//
// The functions in this package produce biquad coefficients consumable by
// dsp/filter/biquad for runtime processing. It includes the RBJ-cookbook
// designers (Lowpass, Highpass, Peak, shelves, Allpass) plus higher-order
// Butterworth and Linkwitz-Riley cascades used by the crossover network.
package design
