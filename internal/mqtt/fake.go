package mqtt

import "sync"

// FakePublisher records published messages for test assertions and lets
// tests inject inbound messages with Deliver.
type FakePublisher struct {
	mu sync.Mutex

	// Messages contains all messages that were published.
	Messages []Message

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// SubscribeError, if set, will be returned by Subscribe.
	SubscribeError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool

	subs map[string]Handler
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{subs: make(map[string]Handler)}
}

// Publish records the message.
func (f *FakePublisher) Publish(msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Messages = append(f.Messages, msg)
	return nil
}

// Subscribe records the handler.
func (f *FakePublisher) Subscribe(filter string, handler Handler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SubscribeError != nil {
		return f.SubscribeError
	}
	f.subs[filter] = handler
	return nil
}

// Deliver hands an inbound message to every matching subscription and
// returns how many handlers ran.
func (f *FakePublisher) Deliver(topic string, payload []byte) int {
	f.mu.Lock()
	var hs []Handler
	for filter, h := range f.subs {
		if Match(filter, topic) {
			hs = append(hs, h)
		}
	}
	f.mu.Unlock()

	for _, h := range hs {
		h(topic, payload)
	}
	return len(hs)
}

// Filters returns the subscribed filters.
func (f *FakePublisher) Filters() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.subs))
	for filter := range f.subs {
		out = append(out, filter)
	}
	return out
}

// On returns the payloads published to topic, in order.
func (f *FakePublisher) On(topic string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.Messages {
		if m.Topic == topic {
			out = append(out, string(m.Payload))
		}
	}
	return out
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// Reset clears recorded messages and errors.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Messages = nil
	f.Closed = false
	f.PublishError = nil
	f.SubscribeError = nil
	f.Connected = false
}
