// Package physics provides the reference force-balance model of the
// air-levitated ball.
//
// [BallTube] implements the [plant.System] interface and is used to
// cross-validate identified Hammerstein models, not to fit them. It
// implements [plant.Configurable] for runtime parameter adjustment.
package physics
