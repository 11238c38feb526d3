// Package coordflow provides a top-level convenience entry point for
// standing up a coordination session with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/coordflow"
//
//	session := coordflow.NewSession(coordflow.SessionConfig{})
//	session := coordflow.NewSession(coordflow.SessionConfig{Store: myStore})
//
// This is a thin wrapper around [coordination.NewSession]; both produce
// identical results. Use this package when you prefer the shorter import
// path.
package coordflow

import (
	"github.com/BaSui01/coordflow/coordination"
)

// Version is the library version.
const Version = "0.1.0"

// SessionConfig configures the session created by [NewSession].
type SessionConfig = coordination.SessionConfig

// Session is one coordination session.
type Session = coordination.Session

// NewSession wires up a coordination session: state store, transition
// audit log, observer hub, persistence, recovery, message broker, and
// coordinator, all sharing one durable document store.
func NewSession(cfg SessionConfig) *Session {
	return coordination.NewSession(cfg)
}
