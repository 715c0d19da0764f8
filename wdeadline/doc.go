// Package wdeadline defines the hardware deadline adapter contract:
// the translation layer between the liveness registry and whatever
// platform mechanism actually enforces the single global deadline.
//
// The contract is deliberately narrow (arm, add and remove participants,
// ping, and query participant status) so that version or API differences
// in the underlying mechanism stay inside the adapter and never leak into
// the registry.
//
// The package also provides [SoftwareDeadline], a pure in-process
// implementation that enforces the deadline by canceling a context
// (or panicking, when armed with panic-on-timeout),
// which serves both as the adapter for hosts with no hardware timer
// and as the reference for writing platform-backed adapters.
package wdeadline
