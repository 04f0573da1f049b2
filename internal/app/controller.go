package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"practice/internal/audio"
	applog "practice/internal/log"
	"practice/internal/practice"
	"practice/internal/transport"
)

// OpenFunc acquires and starts a source.
type OpenFunc func(ctx context.Context) (audio.AmplitudeSource, error)

// LiveOpener opens the microphone with opts.
func LiveOpener(opts audio.Options) OpenFunc {
	return func(ctx context.Context) (audio.AmplitudeSource, error) {
		src := audio.NewLiveSource(opts)
		if err := src.Initialize(ctx); err != nil {
			return nil, err
		}
		return src, nil
	}
}

// FileOpener plays the WAV file at path.
func FileOpener(path string, opts audio.Options) OpenFunc {
	return func(ctx context.Context) (audio.AmplitudeSource, error) {
		src := audio.NewPlaybackSource(path, opts)
		if err := src.Initialize(ctx); err != nil {
			return nil, err
		}
		return src, nil
	}
}

// Controller owns the one capture that may be active at a time. Opening a
// new source stops the previous one first, so two tools never hold the
// device concurrently.
type Controller struct {
	log *applog.Logger

	mu    sync.Mutex
	src   audio.AmplitudeSource
	owner string
}

func NewController() *Controller {
	return &Controller{log: applog.For("capture")}
}

// Open stops any active source and starts a new one on behalf of owner.
func (c *Controller) Open(ctx context.Context, owner string, open OpenFunc) (audio.AmplitudeSource, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.src != nil {
		c.log.Infof("releasing capture held by %s for %s", c.owner, owner)
		if err := c.src.Stop(); err != nil {
			c.log.Warnf("stopping previous source: %v", err)
		}
		c.src, c.owner = nil, ""
	}

	src, err := open(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening source for %s: %w", owner, err)
	}
	c.src, c.owner = src, owner
	return src, nil
}

// Source returns the active source, or nil.
func (c *Controller) Source() audio.AmplitudeSource {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.src
}

// Owner names the tool holding the capture, or "".
func (c *Controller) Owner() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owner
}

// Release stops the active source. Safe to call when nothing is open.
func (c *Controller) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.src == nil {
		return nil
	}
	err := c.src.Stop()
	c.src, c.owner = nil, ""
	return err
}

// Runner polls the controller's source and publishes each tool's result.
// With a tracker attached, the run is timed as a practice session.
type Runner struct {
	ctrl    *Controller
	tools   []Tool
	out     transport.Transport
	poller  *Poller
	tracker *practice.Tracker
	log     *applog.Logger
}

func NewRunner(ctrl *Controller, out transport.Transport, tools ...Tool) *Runner {
	return &Runner{ctrl: ctrl, tools: tools, out: out, log: applog.For("runner")}
}

// WithTracker times each run as a session of the first tool.
func (r *Runner) WithTracker(t *practice.Tracker) *Runner {
	r.tracker = t
	return r
}

// Start begins polling every interval.
func (r *Runner) Start(ctx context.Context, interval time.Duration) error {
	if len(r.tools) == 0 {
		return errors.New("runner has no tools")
	}
	r.poller = NewPoller(interval, r.Poll)
	if err := r.poller.Start(ctx); err != nil {
		return err
	}
	if r.tracker != nil {
		if err := r.tracker.Start(r.tools[0].Name()); err != nil {
			r.log.Warnf("not tracking session: %v", err)
		}
	}
	return nil
}

// Poll runs every tool once against the current source. It is what the
// poller calls each tick.
func (r *Runner) Poll(ctx context.Context) {
	src := r.ctrl.Source()
	if src == nil || !src.Ready() {
		return
	}
	for _, t := range r.tools {
		if ctx.Err() != nil {
			return
		}
		payload := t.Poll(src)
		if payload == nil {
			continue
		}
		if err := r.out.Send(transport.NewMessage(t.Name(), payload)); err != nil {
			r.log.Debugf("%s result not sent: %v", t.Name(), err)
		}
	}
}

// Stop halts polling, resets the tools and ends the tracked session.
func (r *Runner) Stop(ctx context.Context) (*practice.Session, error) {
	if r.poller != nil {
		r.poller.Stop()
	}
	for _, t := range r.tools {
		t.Reset()
	}
	if r.tracker == nil {
		return nil, nil
	}
	return r.tracker.End(ctx)
}
