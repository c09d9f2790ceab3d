package analyzer

import (
	"time"

	"github.com/bdougie/visionstream/internal/frame"
)

// Gate decides which frames are sent for analysis. It is owned by the
// producer context and must not be shared.
//
// A frame is analyzed when no analysis is in flight and either nothing has
// been analyzed yet, one of the two timestamps is invalid, the timestamp
// went backwards, or at least interval has passed since the last analysis
// started.
type Gate struct {
	interval   time.Duration
	inProgress bool
	last       time.Duration
	hasLast    bool
}

// NewGate creates a gate with the given minimum spacing.
func NewGate(interval time.Duration) *Gate {
	return &Gate{interval: interval}
}

// SetInterval changes the minimum spacing between analyses.
func (g *Gate) SetInterval(d time.Duration) {
	g.interval = d
}

// ShouldAnalyze reports whether a frame at pts should start an analysis.
func (g *Gate) ShouldAnalyze(pts time.Duration) bool {
	if g.inProgress {
		return false
	}
	if !g.hasLast {
		return true
	}
	// Invalid timestamps never block analysis
	if !frame.TimestampValid(pts) || !frame.TimestampValid(g.last) {
		return true
	}
	// A timestamp earlier than the last analysis means a seek or restart
	if pts < g.last {
		return true
	}
	return pts-g.last >= g.interval
}

// Begin records that an analysis for the frame at pts is in flight.
func (g *Gate) Begin(pts time.Duration) {
	g.inProgress = true
	g.last = pts
	g.hasLast = true
}

// Complete marks the in-flight analysis as finished.
func (g *Gate) Complete() {
	g.inProgress = false
}

// InProgress reports whether an analysis is in flight.
func (g *Gate) InProgress() bool {
	return g.inProgress
}

// Reset forgets all timing state.
func (g *Gate) Reset() {
	g.inProgress = false
	g.hasLast = false
	g.last = 0
}
