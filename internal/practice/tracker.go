// Package practice records how long each tool is used and summarises the
// totals for today and the past week.
package practice

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	applog "practice/internal/log"
)

// MinSessionLength is the shortest session worth keeping.
const MinSessionLength = 5 * time.Second

var ErrSessionActive = errors.New("practice session already active")

// Session is one stretch of use of a tool.
type Session struct {
	ID       int64         `json:"id"`
	Tool     string        `json:"tool"`
	Start    time.Time     `json:"start"`
	End      time.Time     `json:"end"`
	Duration time.Duration `json:"duration"`
}

// Repository stores sessions. *Store implements it.
type Repository interface {
	Save(ctx context.Context, s Session) (int64, error)
	Sessions(ctx context.Context, since time.Time) ([]Session, error)
	Clear(ctx context.Context) error
}

// TodayStats covers sessions that started on the current local day.
type TodayStats struct {
	Minutes  int      `json:"minutes"`
	Sessions int      `json:"sessions"`
	Tools    []string `json:"tools"`
}

// WeekStats covers sessions started in the last seven days.
type WeekStats struct {
	Minutes  int `json:"minutes"`
	Sessions int `json:"sessions"`
	Days     int `json:"days"`
}

// Tracker times at most one session at a time.
type Tracker struct {
	repo Repository
	now  func() time.Time
	log  *applog.Logger

	mu      sync.Mutex
	current *Session
}

func NewTracker(repo Repository) *Tracker {
	return &Tracker{repo: repo, now: time.Now, log: applog.For("practice")}
}

// WithClock replaces the time source, for tests.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// Start begins timing tool.
func (t *Tracker) Start(tool string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current != nil {
		return fmt.Errorf("%w: %s", ErrSessionActive, t.current.Tool)
	}
	t.current = &Session{Tool: tool, Start: t.now()}
	t.log.Debugf("session started: %s", tool)
	return nil
}

// End stops the active session and returns it, or nil when none is active.
// Sessions longer than MinSessionLength are saved; duration is whole
// seconds.
func (t *Tracker) End(ctx context.Context) (*Session, error) {
	t.mu.Lock()
	sess := t.current
	t.current = nil
	t.mu.Unlock()
	if sess == nil {
		return nil, nil
	}

	sess.End = t.now()
	sess.Duration = sess.End.Sub(sess.Start).Truncate(time.Second)
	if sess.Duration <= MinSessionLength {
		t.log.Debugf("session %s too short to keep (%s)", sess.Tool, sess.Duration)
		return sess, nil
	}

	id, err := t.repo.Save(ctx, *sess)
	if err != nil {
		return sess, fmt.Errorf("saving session: %w", err)
	}
	sess.ID = id
	t.log.WithFields(applog.Fields{"tool": sess.Tool, "duration": sess.Duration}).Infof("session saved")
	return sess, nil
}

// Active reports whether a session is being timed.
func (t *Tracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current != nil
}

// CurrentDuration is the elapsed time of the active session in whole
// seconds, or 0.
func (t *Tracker) CurrentDuration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return 0
	}
	return t.now().Sub(t.current.Start).Truncate(time.Second)
}

// Today summarises sessions started since local midnight.
func (t *Tracker) Today(ctx context.Context) (TodayStats, error) {
	now := t.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	sessions, err := t.repo.Sessions(ctx, midnight)
	if err != nil {
		return TodayStats{}, err
	}

	stats := TodayStats{Sessions: len(sessions), Tools: []string{}}
	var total time.Duration
	for _, s := range sessions {
		total += s.Duration
		if !slices.Contains(stats.Tools, s.Tool) {
			stats.Tools = append(stats.Tools, s.Tool)
		}
	}
	stats.Minutes = int(total / time.Minute)
	return stats, nil
}

// Week summarises sessions started in the last seven days.
func (t *Tracker) Week(ctx context.Context) (WeekStats, error) {
	now := t.now()
	sessions, err := t.repo.Sessions(ctx, now.Add(-7*24*time.Hour))
	if err != nil {
		return WeekStats{}, err
	}

	days := make(map[string]struct{})
	var total time.Duration
	for _, s := range sessions {
		total += s.Duration
		days[s.Start.In(now.Location()).Format(time.DateOnly)] = struct{}{}
	}
	return WeekStats{
		Minutes:  int(total / time.Minute),
		Sessions: len(sessions),
		Days:     len(days),
	}, nil
}

// Clear discards the active session and all stored history.
func (t *Tracker) Clear(ctx context.Context) error {
	t.mu.Lock()
	t.current = nil
	t.mu.Unlock()
	return t.repo.Clear(ctx)
}
