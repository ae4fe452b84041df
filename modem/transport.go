package modem

import (
	"context"
	"time"
)

//go:generate go tool mockgen -source=transport.go -destination=mock_transport.go -package=modem

// Transport represents an established, bidirectional channel to a modem.
//
// A Transport is assumed to be already connected and ready for use. It
// provides the low-level I/O primitives required to send AT commands and
// collect their replies. Typical implementations include serial ports,
// TCP connections to emulators, or mocks used for testing.
//
// A Transport is an exclusively owned resource: the executor assumes it
// is the only party reading and writing for the duration of a session.
type Transport interface {
	// Write sends raw bytes to the modem.
	Write(p []byte) (n int, err error)

	// ReadUntil accumulates response text until a final result code
	// (OK, ERROR, +CME ERROR, +CMS ERROR, ...) is seen or the timeout
	// elapses. It returns whatever was collected in both cases; on
	// timeout the error is ErrReadTimeout. Bytes arriving after a
	// timeout belong to no command and must be discarded by the
	// implementation before the next read.
	ReadUntil(ctx context.Context, timeout time.Duration) (string, error)

	// IsOpen reports whether the channel is usable.
	IsOpen() bool

	// Close releases the underlying channel.
	Close() error
}

// Dialer opens a Transport to a modem.
//
// Dialer abstracts how the connection is created (serial port, TCP-based
// emulator, or test double) and is intended to be used during executor
// construction only. Once a Transport is obtained, the Dialer is no
// longer needed.
type Dialer interface {
	// Dial creates and returns a connected Transport. It may perform
	// blocking operations and should respect cancellation and deadlines
	// provided by the context.
	Dial(ctx context.Context) (Transport, error)
}
