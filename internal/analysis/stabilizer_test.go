package analysis

import (
	"slices"
	"testing"
)

func TestStabilizerRequiresRepeats(t *testing.T) {
	s := NewChordStabilizer()
	c := &Chord{Root: "C", Type: "Major", Confidence: 90}

	for i := range 3 {
		if got := s.Update(c); got != nil {
			t.Fatalf("poll %d: displayed %s before it was stable", i+1, got.Symbol())
		}
	}
	if got := s.Update(c); got == nil || got.Symbol() != "C" {
		t.Fatalf("fourth poll: got %v, want C", got.Symbol())
	}
	if !slices.Equal(s.History(), []string{"C"}) {
		t.Errorf("history = %v", s.History())
	}

	// A different chord interrupts the run; C stays on display.
	g := &Chord{Root: "G", Type: "Major", Confidence: 90}
	if got := s.Update(g); got.Symbol() != "C" {
		t.Errorf("display switched to %s after one poll", got.Symbol())
	}
	for range 3 {
		s.Update(g)
	}
	if s.Current().Symbol() != "G" {
		t.Errorf("display = %s, want G", s.Current().Symbol())
	}
	if !slices.Equal(s.History(), []string{"G", "C"}) {
		t.Errorf("history = %v, want [G C]", s.History())
	}
}

func TestStabilizerIgnoresLowConfidence(t *testing.T) {
	s := NewChordStabilizer()
	weak := &Chord{Root: "C", Type: UnknownChord, Confidence: 50}
	for range 5 {
		if got := s.Update(weak); got != nil {
			t.Fatalf("low-confidence chord displayed: %s", got.Symbol())
		}
	}
}

func TestStabilizerClearsAfterMisses(t *testing.T) {
	s := NewChordStabilizer()
	c := &Chord{Root: "D", Type: "Minor", Confidence: 100}
	for range 4 {
		s.Update(c)
	}
	for i := range DefaultResetAfterMisses {
		if s.Update(nil) == nil {
			t.Fatalf("display cleared after only %d misses", i+1)
		}
	}
	if s.Update(nil) != nil {
		t.Error("display should clear after more than 10 misses")
	}
	if !slices.Equal(s.History(), []string{"Dm"}) {
		t.Errorf("history = %v, clearing the display keeps history", s.History())
	}
}

func TestStabilizerHistoryBounded(t *testing.T) {
	s := NewChordStabilizer()
	for _, root := range []string{"C", "D", "E", "F", "G", "A", "B"} {
		c := &Chord{Root: root, Type: "Major", Confidence: 90}
		for range 4 {
			s.Update(c)
		}
	}
	if want := []string{"B", "A", "G", "F", "E"}; !slices.Equal(s.History(), want) {
		t.Errorf("history = %v, want %v", s.History(), want)
	}
	s.Reset()
	if s.Current() != nil || len(s.History()) != 0 {
		t.Error("Reset should clear display and history")
	}
}

func TestConfidenceClass(t *testing.T) {
	tests := []struct {
		conf int
		want string
	}{
		{100, "high"}, {80, "high"}, {79, "medium"}, {60, "medium"}, {59, "low"}, {0, "low"},
	}
	for _, tt := range tests {
		if got := ConfidenceClass(tt.conf); got != tt.want {
			t.Errorf("ConfidenceClass(%d) = %q, want %q", tt.conf, got, tt.want)
		}
	}
}
