package broker

import "fmt"

// ValidationError indicates a malformed or insufficient request, detected
// before any remote interaction.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// ConnectError indicates an authentication or connection failure at session
// creation. Reason carries the transport's diagnostic message.
type ConnectError struct {
	Reason string
}

func (e *ConnectError) Error() string { return "connection failed: " + e.Reason }

// NotFoundError indicates an unknown or already-expired session identifier.
type NotFoundError struct {
	SessionID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("session %q not found", e.SessionID)
}

// ExecutionError indicates a remote command or channel I/O failure during an
// execute or remove operation.
type ExecutionError struct {
	Reason string
}

func (e *ExecutionError) Error() string { return "execution failed: " + e.Reason }
