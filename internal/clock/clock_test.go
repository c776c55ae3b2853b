package clock

import (
	"testing"
	"time"
)

func TestRealClock(t *testing.T) {
	c := &RealClock{}
	before := time.Now()
	now := c.Now()
	if now.Before(before) {
		t.Errorf("RealClock.Now went backwards: %v < %v", now, before)
	}
}

func TestMockClock(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	if !c.Now().Equal(start) {
		t.Errorf("expected %v, got %v", start, c.Now())
	}

	c.Advance(90 * time.Second)
	want := start.Add(90 * time.Second)
	if !c.Now().Equal(want) {
		t.Errorf("expected %v after Advance, got %v", want, c.Now())
	}

	if got := c.Since(start); got != 90*time.Second {
		t.Errorf("Since: expected 90s, got %v", got)
	}
	if got := c.Until(start.Add(2 * time.Minute)); got != 30*time.Second {
		t.Errorf("Until: expected 30s, got %v", got)
	}

	c.Set(start)
	if !c.Now().Equal(start) {
		t.Errorf("Set did not reset the clock")
	}
}
