// Package wire holds the runtime contract that wlgen-generated code calls into.
//
// Ownership boundary:
// - argument value types (Id, Fixed, NewId, Fd)
// - message cursor and message stream interfaces
// - object lease / resident wrapper consumed by dispatch
// - a reference in-memory Buffer and byte-stream framing
//
// Generated dispatch functions assume the caller holds exclusive access to the
// target object. Nothing in this package synchronizes.
package wire
