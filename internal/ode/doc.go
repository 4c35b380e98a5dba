// Package ode provides core primitives for integrating lowered dynamical
// systems.
//
// The package defines the fundamental interfaces and types shared by the
// stepping families and the solver adapter:
//
//   - [State]: vector representing system state
//   - [System]: lowered, numerically evaluable right-hand side dY/dt = f(t, Y, inputs)
//   - [Integrator]: adaptive integrator producing a trajectory on a fixed
//     output grid
//   - [Stats]: per-run integration statistics
//
// # Thread Safety
//
// System implementations may carry scratch buffers and are NOT safe for
// concurrent use. Callers needing parallel integrations must use
// independent System and Integrator instances.
package ode
