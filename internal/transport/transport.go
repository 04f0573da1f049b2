package transport

import (
	"errors"
	"time"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("transport closed")

// Transport delivers detector results to a consumer. Implementations must
// be safe for concurrent use and must not block the poll loop; a transport
// that cannot keep up drops messages.
type Transport interface {
	Send(data any) error
	Close() error
}

// Message is the envelope every tool publishes.
type Message struct {
	Tool    string    `json:"tool"`
	Time    time.Time `json:"time"`
	Payload any       `json:"payload"`
}

// NewMessage stamps payload with the current time.
func NewMessage(tool string, payload any) Message {
	return Message{Tool: tool, Time: time.Now(), Payload: payload}
}

// Multi fans one Send out to several transports. The first error is
// returned after every transport has been tried.
type Multi []Transport

func (m Multi) Send(data any) error {
	var first error
	for _, t := range m {
		if err := t.Send(data); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) Close() error {
	var errs []error
	for _, t := range m {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ Transport = Multi(nil)
