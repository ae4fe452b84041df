package modem_test

import (
	gomock "go.uber.org/mock/gomock"

	"github.com/veenone/modem-inspector/modem"
)

type MockSequenceBuilder struct {
	transport *modem.MockTransport
	calls     []any
}

func NewMockSequence(transport *modem.MockTransport) *MockSequenceBuilder {
	return &MockSequenceBuilder{
		transport: transport,
		calls:     []any{},
	}
}

// Command expects one write of cmd followed by one read that yields
// response. Responses are newline-joined lines as ReadUntil returns
// them.
func (b *MockSequenceBuilder) Command(cmd, response string) *MockSequenceBuilder {
	b.calls = append(b.calls,
		b.transport.EXPECT().Write([]byte(cmd+"\r")).Return(len(cmd)+1, nil),
		b.transport.EXPECT().ReadUntil(gomock.Any(), gomock.Any()).Return(response, nil),
	)
	return b
}

// Timeout expects one write of cmd followed by a read that expires.
func (b *MockSequenceBuilder) Timeout(cmd string) *MockSequenceBuilder {
	b.calls = append(b.calls,
		b.transport.EXPECT().Write([]byte(cmd+"\r")).Return(len(cmd)+1, nil),
		b.transport.EXPECT().ReadUntil(gomock.Any(), gomock.Any()).Return("", modem.ErrReadTimeout),
	)
	return b
}

func (b *MockSequenceBuilder) AT() *MockSequenceBuilder {
	return b.Command("AT", "AT\nOK")
}

func (b *MockSequenceBuilder) EchoOff() *MockSequenceBuilder {
	return b.Command("ATE0", "ATE0\nOK")
}

func (b *MockSequenceBuilder) VerboseErrors() *MockSequenceBuilder {
	return b.Command("AT+CMEE=1", "OK")
}

func (b *MockSequenceBuilder) Build() []any {
	return b.calls
}

func initMockCalls(transport *modem.MockTransport) []any {
	return NewMockSequence(transport).
		AT().
		EchoOff().
		VerboseErrors().
		Build()
}
