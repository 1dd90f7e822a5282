// Package errs defines the engine's error taxonomy (spec §7). Each kind is
// a small wrapper struct following the shape of PromptKit's StageError
// (Op/Err, Error(), Unwrap()), so callers can both read a human string and
// errors.As/errors.Is against the wrapped cause.
package errs

import "fmt"

// ConfigErrorKind is returned when graph construction fails: an invalid
// parameter, an unknown node kind, a port mismatch, or a missing required
// parameter. Surfacing: fails graph construction before any node is opened
// (spec §7).
type ConfigErrorKind struct {
	Reason string
	Err    error
}

func (e *ConfigErrorKind) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

func (e *ConfigErrorKind) Unwrap() error { return e.Err }

// ResourceErrorKind is returned when a node's Open fails to allocate a
// resource (socket, file, worker, model). Surfacing: rollback opened nodes,
// exit 1 (spec §7).
type ResourceErrorKind struct {
	Node string
	Err  error
}

func (e *ResourceErrorKind) Error() string {
	return fmt.Sprintf("resource error: node %q: %v", e.Node, e.Err)
}

func (e *ResourceErrorKind) Unwrap() error { return e.Err }

// StreamErrorKind is returned when a transform fails mid-flow: invalid
// chunk payload type, downstream write after destruction, or a foreign
// service error. Surfacing: passed as a stream error on that edge; the
// executor logs and proceeds toward shutdown (spec §7).
type StreamErrorKind struct {
	Node string
	Err  error
}

func (e *StreamErrorKind) Error() string {
	return fmt.Sprintf("stream error: node %q: %v", e.Node, e.Err)
}

func (e *StreamErrorKind) Unwrap() error { return e.Err }

// TimeoutErrorKind is returned when a bounded wait expires (connection,
// inference, teardown). Surfacing: converted to a StreamErrorKind for the
// affected chunk; does not cancel the whole graph unless the node cannot
// recover (spec §7).
type TimeoutErrorKind struct {
	Op  string
	Err error
}

func (e *TimeoutErrorKind) Error() string {
	return fmt.Sprintf("timeout error: %s: %v", e.Op, e.Err)
}

func (e *TimeoutErrorKind) Unwrap() error { return e.Err }

// ExternalRequestErrorKind is returned when the control surface rejects a
// client request. Surfacing: HTTP 417 with Reason describing the cause;
// never affects streaming (spec §7).
type ExternalRequestErrorKind struct {
	Reason string
}

func (e *ExternalRequestErrorKind) Error() string {
	return fmt.Sprintf("external request error: %s", e.Reason)
}

// ShutdownErrorKind is returned when a node's Close call fails. Surfacing:
// logged at warning level, shutdown continues regardless (spec §7).
type ShutdownErrorKind struct {
	Node string
	Err  error
}

func (e *ShutdownErrorKind) Error() string {
	return fmt.Sprintf("shutdown error: node %q: %v", e.Node, e.Err)
}

func (e *ShutdownErrorKind) Unwrap() error { return e.Err }
