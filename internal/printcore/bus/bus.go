package bus

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Kind identifies a message type on the cross-context bus. The set is closed:
// anything else arriving at the boundary is dropped, not dispatched.
type Kind string

const (
	KindProbeAvailable   Kind = "probe-available"
	KindProbeUnavailable Kind = "probe-unavailable"
	KindPrintStarted     Kind = "print-started"
	KindPrintComplete    Kind = "print-complete"
	KindPrintError       Kind = "print-error"
	KindDeterrenceEvent  Kind = "deterrence-event"
)

var knownKinds = map[Kind]struct{}{
	KindProbeAvailable:   {},
	KindProbeUnavailable: {},
	KindPrintStarted:     {},
	KindPrintComplete:    {},
	KindPrintError:       {},
	KindDeterrenceEvent:  {},
}

// Valid reports whether k belongs to the closed message set.
func (k Kind) Valid() bool {
	_, ok := knownKinds[k]
	return ok
}

// Message is the wire envelope shared by every bus participant. Generation is
// stamped by the publisher and checked by the consumer so that signals from a
// torn-down session cannot influence a newer one.
type Message struct {
	Kind       Kind            `json:"kind"`
	Generation uint64          `json:"generation"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// Decode parses a raw envelope and validates its kind. Unknown kinds and
// malformed JSON return an error so callers can count and drop them.
func Decode(raw []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, fmt.Errorf("bus: malformed envelope: %w", err)
	}
	if !msg.Kind.Valid() {
		return Message{}, fmt.Errorf("bus: unknown kind %q", msg.Kind)
	}
	return msg, nil
}

// Bus is a bounded in-process channel between the render surface, the
// deterrence monitor and the session controller. Publishing never blocks: when
// the buffer is full the message is dropped and the drop hook fires.
type Bus struct {
	mu     sync.Mutex
	ch     chan Message
	closed bool
	onDrop func(Message)
}

// Option configures a Bus.
type Option func(*Bus)

// WithDropHook installs a callback invoked for every dropped message. Used to
// feed metrics.
func WithDropHook(fn func(Message)) Option {
	return func(b *Bus) { b.onDrop = fn }
}

const defaultBuffer = 64

// New creates a bus with the given buffer size (defaultBuffer when size <= 0).
func New(size int, opts ...Option) *Bus {
	if size <= 0 {
		size = defaultBuffer
	}
	b := &Bus{ch: make(chan Message, size)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish enqueues a message for the consumer. Messages published after Close
// or into a full buffer are dropped.
func (b *Bus) Publish(msg Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		b.drop(msg)
		return
	}
	select {
	case b.ch <- msg:
	default:
		b.drop(msg)
	}
}

// Deliver decodes a raw envelope from an external context and publishes it.
// Returns the error from Decode so the caller can reject bad input.
func (b *Bus) Deliver(raw []byte) error {
	msg, err := Decode(raw)
	if err != nil {
		return err
	}
	b.Publish(msg)
	return nil
}

// Messages exposes the consumer side. Only the session controller should
// receive from it.
func (b *Bus) Messages() <-chan Message {
	return b.ch
}

// Close stops the bus. Further publishes are dropped; the channel is closed so
// the consumer loop can drain and exit.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.ch)
}

func (b *Bus) drop(msg Message) {
	if b.onDrop != nil {
		b.onDrop(msg)
	}
}
