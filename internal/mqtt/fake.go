package mqtt

import "github.com/sweeney/boilerd/internal/boiler"

// FakeClient records published traffic for test assertions and lets tests
// drive inbound ticks directly, without a broker.
type FakeClient struct {
	Commands []*boiler.Mailbox
	Modes    []boiler.Mode

	PublishCommandsError error
	PublishModeError     error

	Closed    bool
	Connected bool

	handlers map[string]func(*boiler.Mailbox)
}

// NewFakeClient creates a FakeClient for testing.
func NewFakeClient() *FakeClient {
	return &FakeClient{Connected: true, handlers: make(map[string]func(*boiler.Mailbox))}
}

func (f *FakeClient) Subscribe(boilerID string, handler func(*boiler.Mailbox)) error {
	f.handlers[boilerID] = handler
	return nil
}

// DeliverTick invokes the registered handler for boilerID, simulating an
// inbound tick message arriving from the broker.
func (f *FakeClient) DeliverTick(boilerID string, mb *boiler.Mailbox) {
	if h, ok := f.handlers[boilerID]; ok {
		h(mb)
	}
}

func (f *FakeClient) PublishCommands(boilerID string, mb *boiler.Mailbox) error {
	if f.PublishCommandsError != nil {
		return f.PublishCommandsError
	}
	f.Commands = append(f.Commands, mb)
	return nil
}

func (f *FakeClient) PublishMode(boilerID string, mode boiler.Mode) error {
	if f.PublishModeError != nil {
		return f.PublishModeError
	}
	f.Modes = append(f.Modes, mode)
	return nil
}

func (f *FakeClient) IsConnected() bool { return f.Connected }

func (f *FakeClient) Close() error {
	f.Closed = true
	return nil
}

// Reset clears all recorded traffic.
func (f *FakeClient) Reset() {
	f.Commands = nil
	f.Modes = nil
	f.PublishCommandsError = nil
	f.PublishModeError = nil
	f.Closed = false
}
