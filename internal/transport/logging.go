package transport

import (
	"encoding/json"
	"sync/atomic"

	applog "practice/internal/log"
)

// LoggingTransport writes every message to the log as JSON.
type LoggingTransport struct {
	log    *applog.Logger
	closed atomic.Bool
}

func NewLoggingTransport() *LoggingTransport {
	l := applog.For("transport")
	l.Debugf("using logging transport")
	return &LoggingTransport{log: l}
}

func (lt *LoggingTransport) Send(data any) error {
	if lt.closed.Load() {
		return ErrClosed
	}
	p, err := json.Marshal(data)
	if err != nil {
		lt.log.Warnf("received %T (marshal error: %v)", data, err)
		return nil
	}
	lt.log.Infof("%s", p)
	return nil
}

func (lt *LoggingTransport) Close() error {
	lt.closed.Store(true)
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
