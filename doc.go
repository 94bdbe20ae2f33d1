// Package engine is the execution core of the Hexaflow low-code platform.
// It interprets directed graphs of typed blocks (triggers, conditions,
// actions) wired by labeled connectors, and performs bounded single-pass
// runs that accumulate a context and produce a per-node trace.
package engine

const (
	// Name is the service name used in logs and health responses
	Name = "flowd"

	// Version is the engine release version
	Version = "0.4.1"
)
