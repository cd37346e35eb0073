package server

import (
	"testing"
	"time"
)

func TestFloodguardWindowAndMute(t *testing.T) {
	now := time.Unix(1000, 0)
	g := NewFloodguard(FloodguardConfig{
		TimesPerInterval: 2,
		IntervalLength:   10 * time.Second,
		MuteLength:       time.Minute,
	})
	g.clock = func() time.Time { return now }

	if wait := g.RecordAttempt(); wait != 0 {
		t.Fatalf("first attempt should pass, got wait %v", wait)
	}
	now = now.Add(time.Second)
	if wait := g.RecordAttempt(); wait != 0 {
		t.Fatalf("second attempt should pass, got wait %v", wait)
	}

	now = now.Add(time.Second)
	if wait := g.RecordAttempt(); wait != time.Minute {
		t.Fatalf("third attempt inside the window should mute for 1m, got %v", wait)
	}
	if !g.Muted() {
		t.Fatalf("guard should report muted")
	}

	now = now.Add(30 * time.Second)
	if wait := g.RecordAttempt(); wait != 30*time.Second {
		t.Fatalf("attempt mid-mute should report remaining 30s, got %v", wait)
	}

	now = now.Add(31 * time.Second)
	if wait := g.RecordAttempt(); wait != 0 {
		t.Fatalf("attempt after mute expiry should pass, got %v", wait)
	}
	if g.Muted() {
		t.Fatalf("guard should no longer be muted")
	}
}

func TestFloodguardSpacedAttemptsNeverMute(t *testing.T) {
	now := time.Unix(1000, 0)
	g := NewFloodguard(FloodguardConfig{
		TimesPerInterval: 3,
		IntervalLength:   10 * time.Second,
		MuteLength:       time.Minute,
	})
	g.clock = func() time.Time { return now }

	for i := 0; i < 20; i++ {
		if wait := g.RecordAttempt(); wait != 0 {
			t.Fatalf("attempt %d should pass, got wait %v", i, wait)
		}
		now = now.Add(4 * time.Second)
	}
}

func TestFloodguardZeroWindowCoerced(t *testing.T) {
	g := NewFloodguard(FloodguardConfig{TimesPerInterval: 0, IntervalLength: time.Second, MuteLength: time.Second})
	if len(g.times) != 1 {
		t.Fatalf("window of 0 should be coerced to 1, got %d", len(g.times))
	}
	if wait := g.RecordAttempt(); wait != 0 {
		t.Fatalf("first attempt should always pass, got %v", wait)
	}
}
