package node

import "errors"

// Node errors.
var (
	// ErrNoRoles is returned when a handler is configured without any role.
	ErrNoRoles = errors.New("node: no role configured")

	// ErrNoTransport is returned when a handler is configured without a transport.
	ErrNoTransport = errors.New("node: no transport")

	// ErrHeartbeatTooShort is returned when the heartbeat interval does not
	// exceed the standby coalescing window.
	ErrHeartbeatTooShort = errors.New("node: heartbeat interval too short")

	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("node: already started")

	// ErrNotStarted is returned by Stop and Wait before Start.
	ErrNotStarted = errors.New("node: not started")
)
