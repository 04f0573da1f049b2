// Package app wires sources, detectors and transports into the practice
// tools. A Controller owns the single active capture, a Poller samples it
// on a fixed period, and each Tool turns a snapshot into a result message.
package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	applog "practice/internal/log"
)

var ErrPollerRunning = errors.New("poller already running")

// Poller calls a function on a fixed period until stopped or until its
// context is cancelled. Once Stop returns no further calls are made.
type Poller struct {
	interval time.Duration
	fn       func(ctx context.Context)
	log      *applog.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	doneChan chan struct{}
	wg       sync.WaitGroup

	ticks atomic.Uint64
}

// NewPoller creates a poller. A non-positive interval falls back to 50ms.
func NewPoller(interval time.Duration, fn func(ctx context.Context)) *Poller {
	p := &Poller{fn: fn, log: applog.For("poller")}
	if interval <= 0 {
		interval = 50 * time.Millisecond
		p.log.Warnf("invalid poll interval, defaulting to %s", interval)
	}
	p.interval = interval
	return p
}

// Start launches the poll loop. It returns ErrPollerRunning if the loop is
// already active.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doneChan != nil {
		return ErrPollerRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.doneChan = make(chan struct{})
	done := p.doneChan

	p.wg.Add(1)
	go p.loop(ctx, done)
	p.log.Debugf("polling every %s", p.interval)
	return nil
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.mu.Lock()
			p.release(done)
			p.mu.Unlock()
			return
		case <-done:
			return
		case <-ticker.C:
			// A stop racing the tick wins.
			if ctx.Err() != nil {
				return
			}
			p.ticks.Add(1)
			p.fn(ctx)
		}
	}
}

// Stop cancels the loop and waits for an in-flight call to finish. Safe to
// call repeatedly and before Start.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.doneChan == nil {
		p.mu.Unlock()
		return
	}
	p.release(p.doneChan)
	p.mu.Unlock()
	p.wg.Wait()
}

// release ends the run owning done, if it is still the current one. mu
// must be held.
func (p *Poller) release(done chan struct{}) {
	if p.doneChan == nil || p.doneChan != done {
		return
	}
	p.cancel()
	close(done)
	p.doneChan = nil
}

// Running reports whether the loop has been started and has not been
// stopped or cancelled.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doneChan != nil
}

// Ticks is the number of calls made so far.
func (p *Poller) Ticks() uint64 { return p.ticks.Load() }
