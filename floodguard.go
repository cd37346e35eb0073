package server

import "time"

// FloodguardConfig describes one sliding-window limiter class.
type FloodguardConfig struct {
	TimesPerInterval int           `yaml:"times_per_interval" json:"times_per_interval"`
	IntervalLength   time.Duration `yaml:"interval_length" json:"interval_length"`
	MuteLength       time.Duration `yaml:"mute_length" json:"mute_length"`
}

// Floodguard is a sliding-window counter over the last N action timestamps
// plus a single active mute. Callers are expected to skip the guard for
// moderators and room owners. Not safe for concurrent use; every guard
// belongs to exactly one session and is driven under that session's hub
// lock.
type Floodguard struct {
	cfg     FloodguardConfig
	times   []time.Time
	counter int
	mutedAt time.Time
	clock   func() time.Time
}

// NewFloodguard builds a guard with an empty window. The zero timestamps in
// the ring compare as far in the past, so the first N attempts always pass.
func NewFloodguard(cfg FloodguardConfig) *Floodguard {
	if cfg.TimesPerInterval < 1 {
		cfg.TimesPerInterval = 1
	}
	return &Floodguard{
		cfg:   cfg,
		times: make([]time.Time, cfg.TimesPerInterval),
		clock: time.Now,
	}
}

// RecordAttempt registers one attempt and returns how long the caller must
// wait before the action is allowed. Zero means the attempt was accepted
// and counted. time.Time carries a monotonic reading, so wall-clock jumps
// do not corrupt the window.
func (g *Floodguard) RecordAttempt() time.Duration {
	now := g.clock()

	if !g.mutedAt.IsZero() {
		elapsed := now.Sub(g.mutedAt)
		if elapsed < g.cfg.MuteLength {
			return g.cfg.MuteLength - elapsed
		}
		g.mutedAt = time.Time{}
	}

	n := g.cfg.TimesPerInterval
	oldest := g.times[((g.counter-n+1)%n+n)%n]
	if !oldest.IsZero() && now.Sub(oldest) < g.cfg.IntervalLength {
		g.mutedAt = now
		return g.cfg.MuteLength
	}

	g.counter = (g.counter + 1) % n
	g.times[g.counter] = now
	return 0
}

// Muted reports whether the guard currently has an active mute.
func (g *Floodguard) Muted() bool {
	if g.mutedAt.IsZero() {
		return false
	}
	return g.clock().Sub(g.mutedAt) < g.cfg.MuteLength
}
