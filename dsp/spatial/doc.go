// Package spatial provides stereo image processors: a mid/side stereo
// widener with optional bass mono folding, and a rolling correlation
// meter for phase monitoring.
package spatial
