package utils

import (
	"cmp"
	"sync"
)

// MockTransport records every message instead of transmitting it.
type MockTransport struct {
	mu       sync.Mutex
	Messages []any
	Closed   bool
	Err      error
}

// Send stores the message for later inspection.
func (m *MockTransport) Send(msg any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Messages = append(m.Messages, msg)
	return nil
}

func (m *MockTransport) Close() error {
	m.mu.Lock()
	m.Closed = true
	m.mu.Unlock()
	return nil
}

// Sent returns a copy of the recorded messages.
func (m *MockTransport) Sent() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]any(nil), m.Messages...)
}

// Last returns the most recent message, or nil.
func (m *MockTransport) Last() any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Messages) == 0 {
		return nil
	}
	return m.Messages[len(m.Messages)-1]
}

// FindPeakBin returns the index of the largest value in values[startBin:endBin+1].
func FindPeakBin[T cmp.Ordered](values []T, startBin, endBin int) int {
	if len(values) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(values) {
		endBin = len(values) - 1
	}

	peakBin := startBin
	peakValue := values[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if values[bin] > peakValue {
			peakValue = values[bin]
			peakBin = bin
		}
	}

	return peakBin
}
