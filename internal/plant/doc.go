// Package plant provides the core primitives shared by the levitation
// control and identification packages.
//
// The package defines the fundamental interfaces and types:
//
//   - [State]: vector representing plant state (height, velocity)
//   - [System]: interface for continuous plant dynamics (dX/dt = f(X, u, t))
//   - [Integrator]: numerical stepper interface
//   - [Sample]: one conditioned (actuation, measurement) record
//
// # Thread Safety
//
// States and samples are value types. Objects holding mutable session
// state (controller sessions, simulators) are NOT thread-safe; callers
// needing concurrent sessions must instantiate independent objects.
package plant
