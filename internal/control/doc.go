// Package control holds the controllers that turn a distance reading
// into a fan command percentage: the fuzzy core with its hybrid
// proportional correction, smoothing filter and anti-stall floor, a
// plain proportional baseline and a PID baseline.
package control
