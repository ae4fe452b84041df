package modem

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"

	"github.com/veenone/modem-inspector/at"
)

// pollInterval bounds single blocking reads on the port so deadline and
// cancellation checks happen regularly.
const pollInterval = 100 * time.Millisecond

// SerialDialer opens a modem over a serial port using go.bug.st/serial.
type SerialDialer struct {
	// PortName is the device path, e.g. "/dev/ttyUSB0".
	PortName string
	// BaudRate is used when Mode is nil. Zero means 115200.
	BaudRate int
	// Mode overrides the full port configuration when set.
	Mode *serial.Mode
}

func (d SerialDialer) Dial(ctx context.Context) (Transport, error) {
	if ctx == nil {
		return nil, errors.New("inspector: context is nil")
	}
	if d.PortName == "" {
		return nil, errors.New("inspector: serial port name is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := d.Mode
	if mode == nil {
		baud := d.BaudRate
		if baud == 0 {
			baud = 115200
		}
		mode = &serial.Mode{
			BaudRate: baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		}
	}

	port, err := serial.Open(d.PortName, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %q: %w", d.PortName, err)
	}

	return &SerialTransport{port: port, open: true}, nil
}

// SerialTransport adapts a serial.Port to the Transport contract. Reads
// are chunked with a short poll timeout so ReadUntil can enforce its own
// deadline and react to context cancellation.
type SerialTransport struct {
	port serial.Port
	open bool

	// dirty is set when a read deadline expired. The input buffer is
	// flushed before the next write so late bytes from a timed-out
	// command never leak into the next one.
	dirty bool
}

func (t *SerialTransport) Write(p []byte) (int, error) {
	if !t.open {
		return 0, ErrAlreadyClosed
	}
	if t.dirty {
		if err := t.port.ResetInputBuffer(); err != nil {
			return 0, fmt.Errorf("flush input buffer: %w", err)
		}
		t.dirty = false
	}
	return t.port.Write(p)
}

// ReadUntil collects CRLF-framed lines until a final result code is
// seen or the timeout elapses. Each call starts with a fresh buffer;
// partial data from a previous timed-out read is not carried over.
func (t *SerialTransport) ReadUntil(ctx context.Context, timeout time.Duration) (string, error) {
	if !t.open {
		return "", ErrAlreadyClosed
	}

	deadline := time.Now().Add(timeout)
	chunk := make([]byte, 256)
	var (
		buf   []byte
		lines []string
	)

	collected := func() string { return strings.Join(lines, "\n") }

	for {
		if err := ctx.Err(); err != nil {
			return collected(), err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			t.dirty = true
			return collected(), ErrReadTimeout
		}
		poll := remaining
		if poll > pollInterval {
			poll = pollInterval
		}
		if err := t.port.SetReadTimeout(poll); err != nil {
			return collected(), fmt.Errorf("set read timeout: %w", err)
		}

		n, err := t.port.Read(chunk)
		if err != nil {
			return collected(), fmt.Errorf("serial read: %w", err)
		}
		if n == 0 {
			// Poll window expired with no data; loop to re-check the
			// deadline.
			continue
		}
		buf = append(buf, chunk[:n]...)

		for {
			idx := strings.Index(string(buf), at.CRLF)
			if idx < 0 {
				break
			}
			line := string(buf[:idx])
			buf = buf[idx+len(at.CRLF):]
			lines = append(lines, line)
			if at.Classify(strings.TrimSpace(line)) == at.TypeFinal {
				return collected(), nil
			}
		}
	}
}

func (t *SerialTransport) IsOpen() bool {
	return t.open
}

func (t *SerialTransport) Close() error {
	if !t.open {
		return nil
	}
	t.open = false
	return t.port.Close()
}
