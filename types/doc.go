// Package types defines the shared record types of the CoordFlow engine:
// agent statuses, state snapshots, transition log entries, checkpoints,
// inter-agent messages, and the structured error type used across the
// framework.
//
// Every record here is an explicit serializable type with a fixed JSON
// schema. Components never exchange ad-hoc nested maps; the only opaque
// map is StateData, which carries application payload the framework does
// not interpret.
package types
