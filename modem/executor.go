package modem

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/veenone/modem-inspector/at"
	"github.com/veenone/modem-inspector/plugin"
)

// execState enumerates the states a single command execution moves
// through. The flow is driven by a transition function (execution.step)
// rather than nested branching so retry and timeout edges stay visible.
type execState int

const (
	stateIdle execState = iota
	stateSent
	stateAwaiting
	stateClassified
	stateTimedOut
	stateRetry
	stateTerminal
)

// Executor drives AT commands through a Transport one at a time:
// send, await, classify, retry on transient failure, record.
//
// The executor is synchronous and single-session. One command is fully
// classified, including all retries, before the next is issued; AT
// semantics assume a single outstanding request on the wire. It is not
// safe to call Execute concurrently on the same Executor.
type Executor struct {
	transport Transport
	config    Config
	history   []CommandResponse
	closed    bool

	// sleep waits for a backoff delay, honoring ctx. Replaceable so
	// tests don't spend wall time on retries.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an Executor, dials the transport and probes the modem
// with a basic init sequence (AT, ATE0, AT+CMEE=1). It returns an error
// if the transport cannot be established or the modem does not answer
// the probe.
func New(ctx context.Context, config Config) (*Executor, error) {
	if config.Dialer == nil {
		return nil, ErrNoDialer
	}
	config.setDefaults()

	transport, err := config.Dialer.Dial(ctx)
	if err != nil {
		return nil, err
	}
	if transport == nil {
		return nil, ErrNotInitialized
	}

	e := &Executor{
		transport: transport,
		config:    config,
		sleep:     sleepCtx,
	}

	if err := e.init(ctx); err != nil {
		transport.Close()
		return nil, fmt.Errorf("initialize modem: %w", err)
	}

	return e, nil
}

// init performs the wake-up sequence. Probe responses are not recorded
// in the history; they belong to session setup, not to the inspection.
func (e *Executor) init(ctx context.Context) error {
	settings := execSettings{timeout: e.config.DefaultTimeout, maxRetries: e.config.MaxRetries}

	resp, err := e.execute(ctx, at.CmdAt, settings, false)
	if err != nil {
		return err
	}
	if !resp.Successful() {
		return fmt.Errorf("modem not responding: %s", resp)
	}

	// Echo off keeps response parsing unambiguous. Numeric CME codes
	// are optional on some firmwares, a refusal is not fatal.
	if resp, err = e.execute(ctx, at.CmdEchoOff, settings, false); err != nil {
		return err
	}
	if !resp.Successful() {
		return fmt.Errorf("could not disable echo: %s", resp)
	}
	if resp, err = e.execute(ctx, at.CmdVerboseErrors, settings, false); err != nil {
		return err
	}
	if !resp.Successful() {
		e.config.Logger.Warn("modem rejected CMEE, extended error codes unavailable",
			"status", resp.Status)
	}

	return nil
}

// ExecOption overrides per-command execution settings.
type ExecOption func(*execSettings)

type execSettings struct {
	timeout    time.Duration
	maxRetries int
}

// WithTimeout overrides the configured default timeout for one command.
func WithTimeout(d time.Duration) ExecOption {
	return func(s *execSettings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMaxRetries overrides the configured retry cap for one command.
func WithMaxRetries(n int) ExecOption {
	return func(s *execSettings) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// Execute sends one AT command and drives it to a terminal status.
//
// It always returns a CommandResponse describing what happened; the
// error return is non-nil only for conditions fatal to the session: a
// transport fault (matching ErrTransport) or context cancellation. Plain
// ERROR and timeouts are retried with exponential backoff up to the
// retry cap; +CME ERROR and +CMS ERROR are definitive device answers
// and terminate immediately. The response is appended to the history in
// issuance order.
func (e *Executor) Execute(ctx context.Context, command string, opts ...ExecOption) (CommandResponse, error) {
	settings := execSettings{timeout: e.config.DefaultTimeout, maxRetries: e.config.MaxRetries}
	for _, opt := range opts {
		opt(&settings)
	}
	return e.execute(ctx, command, settings, true)
}

// ExecuteBatch runs plugin commands in order, continuing past
// device-reported errors and timeouts. A transport fault aborts the
// remainder of the batch; the responses gathered so far are returned
// together with the fault.
func (e *Executor) ExecuteBatch(ctx context.Context, defs []plugin.CommandDefinition) ([]CommandResponse, error) {
	responses := make([]CommandResponse, 0, len(defs))
	for _, def := range defs {
		var opts []ExecOption
		if t := def.Timeout(); t > 0 {
			opts = append(opts, WithTimeout(t))
		}
		resp, err := e.Execute(ctx, def.Cmd, opts...)
		responses = append(responses, resp)
		if err != nil {
			return responses, err
		}
	}
	return responses, nil
}

// History returns a copy of the accumulated responses in issuance
// order. Mutating the returned slice does not affect the executor's
// record.
func (e *Executor) History() []CommandResponse {
	return slices.Clone(e.history)
}

// ClearHistory drops the accumulated responses.
func (e *Executor) ClearHistory() {
	e.history = nil
}

// Close shuts down the executor and releases the transport. After
// Close the executor cannot be reused.
func (e *Executor) Close() error {
	if e.closed {
		return ErrAlreadyClosed
	}
	e.closed = true
	if e.transport != nil {
		return e.transport.Close()
	}
	return nil
}

func (e *Executor) execute(ctx context.Context, command string, settings execSettings, record bool) (CommandResponse, error) {
	if e.closed {
		return CommandResponse{}, ErrAlreadyClosed
	}
	if e.transport == nil {
		return CommandResponse{}, ErrNotInitialized
	}

	x := &execution{
		executor: e,
		command:  command,
		settings: settings,
		state:    stateIdle,
		status:   StatusTimeout,
		errCode:  NoErrorCode,
	}

	start := time.Now()
	for x.state != stateTerminal {
		x.step(ctx)
	}

	resp := CommandResponse{
		Command:   command,
		Status:    x.status,
		Raw:       x.raw,
		ErrorCode: x.errCode,
		Elapsed:   time.Since(start),
		Retries:   x.retries,
		Timestamp: time.Now(),
	}

	if record {
		e.history = append(e.history, resp)
	}

	e.config.Logger.Debug("command executed",
		"command", command, "status", resp.Status, "retries", resp.Retries,
		"elapsed", resp.Elapsed)

	return resp, x.fatal
}

// execution is the mutable state of one command's attempt chain.
type execution struct {
	executor *Executor
	command  string
	settings execSettings

	state   execState
	raw     string
	status  Status
	errCode int
	retries int
	fatal   error
}

// step advances the state machine by one transition.
func (x *execution) step(ctx context.Context) {
	switch x.state {
	case stateIdle:
		x.state = stateSent

	case stateSent:
		// Entering Sent writes to the wire; there is no rollback.
		wire := strings.TrimSpace(x.command) + "\r"
		if _, err := x.executor.transport.Write([]byte(wire)); err != nil {
			x.raw = fmt.Sprintf("transport write failed: %v", err)
			x.status = StatusTimeout
			x.fatal = fmt.Errorf("write %q: %w: %v", x.command, ErrTransport, err)
			x.state = stateTerminal
			return
		}
		x.state = stateAwaiting

	case stateAwaiting:
		raw, err := x.executor.transport.ReadUntil(ctx, x.settings.timeout)
		switch {
		case err == nil:
			x.raw = stripEchoText(x.command, raw)
			if strings.TrimSpace(x.raw) == "" {
				// Nothing but whitespace before the reader gave up.
				x.state = stateTimedOut
				return
			}
			x.state = stateClassified

		case errors.Is(err, ErrReadTimeout):
			x.raw = stripEchoText(x.command, raw)
			x.state = stateTimedOut

		case ctx.Err() != nil:
			x.raw = stripEchoText(x.command, raw)
			x.status = StatusTimeout
			x.fatal = ctx.Err()
			x.state = stateTerminal

		default:
			x.raw = fmt.Sprintf("transport read failed: %v", err)
			x.status = StatusTimeout
			x.fatal = fmt.Errorf("read after %q: %w: %v", x.command, ErrTransport, err)
			x.state = stateTerminal
		}

	case stateClassified:
		x.status, x.errCode = ClassifyResponse(x.raw)
		// Classification is fixed here; late bytes arriving after this
		// point belong to no command and are discarded by the transport.
		if x.status == StatusError && x.retries < x.settings.maxRetries {
			x.state = stateRetry
			return
		}
		x.state = stateTerminal

	case stateTimedOut:
		x.status = StatusTimeout
		x.errCode = NoErrorCode
		if x.retries < x.settings.maxRetries {
			x.state = stateRetry
			return
		}
		x.state = stateTerminal

	case stateRetry:
		x.retries++
		delay := BackoffDelay(x.executor.config.RetryBaseDelay, x.executor.config.RetryMaxDelay, x.retries)
		x.executor.config.Logger.Debug("retrying command",
			"command", x.command, "attempt", x.retries, "delay", delay)
		if err := x.executor.sleep(ctx, delay); err != nil {
			x.fatal = err
			x.state = stateTerminal
			return
		}
		x.state = stateSent
	}
}

// BackoffDelay computes the delay before retry attempt n (1-based):
// base * 2^(n-1), capped at max. Delays are non-decreasing across
// attempts and never exceed max.
func BackoffDelay(base, max time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max || d <= 0 {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

func stripEchoText(command, raw string) string {
	if raw == "" {
		return raw
	}
	lines := at.StripEcho(command, strings.Split(raw, "\n"))
	return strings.Join(lines, "\n")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
