// SPDX-License-Identifier: MIT
package udp

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"
)

// FrameSource supplies the values for one packet. Implementations fill dst
// (resizing when needed) and return it; returning nil skips the tick.
type FrameSource interface {
	Frame(dst []float32) []float32
}

// FrameFunc adapts a function to FrameSource.
type FrameFunc func(dst []float32) []float32

func (f FrameFunc) Frame(dst []float32) []float32 { return f(dst) }

// Publisher periodically packs a frame from its source and sends it.
type Publisher struct {
	sender   *UDPSender
	source   FrameSource
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex

	sequenceNum uint32
	frame       []float32
	packet      []byte
}

// NewPublisher creates a publisher. A non-positive interval defaults to 33ms.
func NewPublisher(interval time.Duration, sender *UDPSender, source FrameSource) (*Publisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("udp publisher: sender cannot be nil")
	}
	if source == nil {
		return nil, fmt.Errorf("udp publisher: frame source cannot be nil")
	}
	if interval <= 0 {
		interval = 33 * time.Millisecond
		log.Warnf("invalid publish interval, defaulting to %s", interval)
	}
	return &Publisher{sender: sender, source: source, interval: interval}, nil
}

// Start launches the publish loop. Calling Start while running is a no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		log.Warnf("publisher already running")
		return
	}
	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}
	ticker, done := p.ticker, p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-ticker.C:
				p.publish()
			case <-done:
				return
			}
		}
	}()
}

// Stop ends the loop and waits for it to exit. Safe to call repeatedly.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()
	p.wg.Wait()
	return nil
}

func (p *Publisher) Close() error { return p.Stop() }

/*
Packet layout, big endian:

	| seq uint32 | unix nanos int64 | count uint16 | count x float32 |
*/
const headerSize = 4 + 8 + 2

// EncodePacket appends one packet to dst and returns it.
func EncodePacket(dst []byte, seq uint32, ts int64, values []float32) []byte {
	dst = binary.BigEndian.AppendUint32(dst, seq)
	dst = binary.BigEndian.AppendUint64(dst, uint64(ts))
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(values)))
	for _, v := range values {
		dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}

// DecodePacket is the inverse of EncodePacket.
func DecodePacket(p []byte) (seq uint32, ts int64, values []float32, err error) {
	if len(p) < headerSize {
		return 0, 0, nil, fmt.Errorf("packet too short: %d bytes", len(p))
	}
	seq = binary.BigEndian.Uint32(p)
	ts = int64(binary.BigEndian.Uint64(p[4:]))
	n := int(binary.BigEndian.Uint16(p[12:]))
	if len(p) != headerSize+4*n {
		return 0, 0, nil, fmt.Errorf("packet length %d does not match count %d", len(p), n)
	}
	values = make([]float32, n)
	for i := range values {
		values[i] = math.Float32frombits(binary.BigEndian.Uint32(p[headerSize+4*i:]))
	}
	return seq, ts, values, nil
}

func (p *Publisher) publish() {
	p.frame = p.source.Frame(p.frame)
	if p.frame == nil {
		return
	}
	p.sequenceNum++
	p.packet = EncodePacket(p.packet[:0], p.sequenceNum, time.Now().UnixNano(), p.frame)
	if err := p.sender.Write(p.packet); err != nil {
		log.Debugf("packet %d not sent: %v", p.sequenceNum, err)
		return
	}
	log.Debugf("sent packet %d (%d bytes)", p.sequenceNum, len(p.packet))
}
