package udp

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"

	applog "practice/internal/log"
	"practice/internal/transport"
)

var log = applog.For("udp")

// UDPSender sends datagrams to a fixed target.
type UDPSender struct {
	conn   *net.UDPConn
	mu     sync.Mutex // protects conn during Close
	closed bool
}

// NewUDPSender dials targetAddress ("host:port").
func NewUDPSender(targetAddress string) (*UDPSender, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP target address '%s': %w", targetAddress, err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial UDP for target '%s': %w", targetAddress, err)
	}
	log.Infof("sending to %s", conn.RemoteAddr())
	return &UDPSender{conn: conn}, nil
}

// Write sends p as a single datagram.
func (s *UDPSender) Write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return transport.ErrClosed
	}
	if _, err := s.conn.Write(p); err != nil {
		return fmt.Errorf("failed to send UDP packet: %w", err)
	}
	return nil
}

// Send marshals data as JSON and sends it as one datagram, so a UDPSender
// can carry detector results as well as spectrum frames.
func (s *UDPSender) Send(data any) error {
	p, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling %T: %w", data, err)
	}
	return s.Write(p)
}

func (s *UDPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close UDP connection: %w", err)
	}
	return nil
}

var _ transport.Transport = (*UDPSender)(nil)
