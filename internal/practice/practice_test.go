package practice

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time           { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "practice.db"))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreSaveAndQuery(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	for i, tool := range []string{"tuner", "metronome", "chords"} {
		start := base.Add(time.Duration(i) * time.Hour)
		id, err := s.Save(ctx, Session{Tool: tool, Start: start, End: start.Add(time.Minute), Duration: time.Minute})
		if err != nil {
			t.Fatalf("Save: %v", err)
		}
		if id == 0 {
			t.Error("Save returned id 0")
		}
	}

	all, err := s.Sessions(ctx, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].Tool != "tuner" || all[2].Tool != "chords" {
		t.Fatalf("sessions = %+v", all)
	}
	if all[1].Duration != time.Minute || !all[1].Start.Equal(base.Add(time.Hour)) {
		t.Errorf("round-tripped session = %+v", all[1])
	}

	recent, err := s.Sessions(ctx, base.Add(90*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 1 || recent[0].Tool != "chords" {
		t.Errorf("sessions since 11:30 = %+v", recent)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.Count(ctx); n != 0 {
		t.Errorf("Count after Clear = %d", n)
	}
}

func TestStoreKeepsNewest(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := range MaxSessions + 5 {
		start := base.Add(time.Duration(i) * time.Minute)
		if _, err := s.Save(ctx, Session{Tool: "bpm", Start: start, End: start.Add(10 * time.Second), Duration: 10 * time.Second}); err != nil {
			t.Fatal(err)
		}
	}
	n, err := s.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != MaxSessions {
		t.Fatalf("Count = %d, want %d", n, MaxSessions)
	}
	all, _ := s.Sessions(ctx, time.Time{})
	if !all[0].Start.Equal(base.Add(5 * time.Minute)) {
		t.Errorf("oldest kept session started %v, want the sixth", all[0].Start)
	}
}

func TestStoreCloseIdempotent(t *testing.T) {
	s := NewStore(":memory:")
	if _, err := s.Count(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestTrackerSessions(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Date(2025, 6, 2, 9, 0, 0, 0, time.Local)}
	tr := NewTracker(newTestStore(t)).WithClock(c.now)

	if err := tr.Start("tuner"); err != nil {
		t.Fatal(err)
	}
	if err := tr.Start("chords"); !errors.Is(err, ErrSessionActive) {
		t.Errorf("second Start = %v, want ErrSessionActive", err)
	}
	c.advance(2*time.Minute + 30*time.Second + 400*time.Millisecond)
	if got := tr.CurrentDuration(); got != 150*time.Second {
		t.Errorf("CurrentDuration = %v", got)
	}

	sess, err := tr.End(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sess == nil || sess.ID == 0 || sess.Duration != 150*time.Second {
		t.Fatalf("ended session = %+v", sess)
	}
	if tr.Active() || tr.CurrentDuration() != 0 {
		t.Error("tracker should be idle after End")
	}

	if sess, err := tr.End(ctx); sess != nil || err != nil {
		t.Errorf("End while idle = %v, %v", sess, err)
	}
}

func TestTrackerDropsShortSessions(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Date(2025, 6, 2, 9, 0, 0, 0, time.Local)}
	store := newTestStore(t)
	tr := NewTracker(store).WithClock(c.now)

	_ = tr.Start("metronome")
	c.advance(5 * time.Second)
	sess, err := tr.End(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sess.ID != 0 {
		t.Error("a 5s session should not be saved")
	}
	if n, _ := store.Count(ctx); n != 0 {
		t.Errorf("Count = %d, want 0", n)
	}
}

func TestTrackerStats(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 18, 0, 0, 0, time.Local)
	c := &clock{}
	tr := NewTracker(newTestStore(t)).WithClock(c.now)

	practise := func(tool string, at time.Time, d time.Duration) {
		c.t = at
		if err := tr.Start(tool); err != nil {
			t.Fatal(err)
		}
		c.advance(d)
		if _, err := tr.End(ctx); err != nil {
			t.Fatal(err)
		}
	}
	practise("tuner", now.Add(-10*24*time.Hour), 30*time.Minute) // outside the week
	practise("chords", now.Add(-3*24*time.Hour), 20*time.Minute)
	practise("metronome", now.Add(-2*24*time.Hour), 15*time.Minute)
	practise("tuner", now.Add(-4*time.Hour), 10*time.Minute)
	practise("metronome", now.Add(-2*time.Hour), 5*time.Minute+50*time.Second)
	practise("tuner", now.Add(-1*time.Hour), 15*time.Minute)
	c.t = now

	today, err := tr.Today(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if today.Sessions != 3 || today.Minutes != 30 {
		t.Errorf("today = %+v, want 3 sessions, 30 minutes", today)
	}
	if !slices.Equal(today.Tools, []string{"tuner", "metronome"}) {
		t.Errorf("today tools = %v", today.Tools)
	}

	week, err := tr.Week(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if week.Sessions != 5 || week.Minutes != 65 || week.Days != 3 {
		t.Errorf("week = %+v, want 5 sessions, 65 minutes, 3 days", week)
	}

	if err := tr.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if week, _ := tr.Week(ctx); week.Sessions != 0 {
		t.Errorf("week after Clear = %+v", week)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00"},
		{7 * time.Second, "0:07"},
		{187 * time.Second, "3:07"},
		{61*time.Minute + 1500*time.Millisecond, "61:01"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatMinutes(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{0, "0m"},
		{45, "45m"},
		{60, "1h"},
		{65, "1h 5m"},
		{120, "2h"},
	}
	for _, tt := range tests {
		if got := FormatMinutes(tt.minutes); got != tt.want {
			t.Errorf("FormatMinutes(%d) = %q, want %q", tt.minutes, got, tt.want)
		}
	}
}

func TestFormatAgo(t *testing.T) {
	now := time.Date(2025, 6, 10, 18, 0, 0, 0, time.UTC)
	if got := FormatAgo(now.Add(-3*time.Hour), now); got != "3 hours ago" {
		t.Errorf("FormatAgo = %q", got)
	}
}
