// Package coordination implements the agent coordination engine: a per-agent
// status state machine with a validated transition table, an append-only
// transition audit log, synchronous post-commit observer fan-out, whole-session
// checkpointing and restore, error-state recovery, durable inter-agent
// messaging, and handoff coordination between registered agents.
//
// A Session owns one instance of every collaborator and is the unit of
// isolation: distinct sessions share nothing in memory and correlate their
// durable writes by coordination id.
//
// The engine assumes a single writer. The in-memory maps are guarded by
// mutexes for basic safety, but compound flows (transition + checkpoint,
// handoff sequences) assume callers serialize access to one session.
package coordination
