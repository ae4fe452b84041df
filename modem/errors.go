package modem

import "errors"

var (
	// ErrNoDialer is returned when an Executor is constructed without a
	// Dialer.
	//
	// This indicates a configuration error. A Dialer is required in
	// order to establish a connection to the modem.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrNotInitialized is returned when an operation is attempted on an
	// Executor whose transport was never established.
	ErrNotInitialized = errors.New("executor not initialized")

	// ErrAlreadyClosed is returned when Close is called on an Executor
	// that has already been closed, or when a command is issued after
	// Close.
	ErrAlreadyClosed = errors.New("executor already closed")

	// ErrTransport marks a fault in the underlying channel: the port
	// cannot be written to or read from. It is fatal to the session;
	// the executor does not retry it. Callers may reconnect and retry
	// the whole session.
	ErrTransport = errors.New("transport fault")

	// ErrReadTimeout is returned by Transport.ReadUntil when no final
	// result code arrived before the deadline. The executor translates
	// it into a TIMEOUT-classified response, it never reaches callers.
	ErrReadTimeout = errors.New("read timeout")
)
