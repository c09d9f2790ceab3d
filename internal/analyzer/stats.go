package analyzer

import "sync/atomic"

type counters struct {
	framesSeen       atomic.Int64
	jobsSubmitted    atomic.Int64
	resultsDelivered atomic.Int64
	transportErrors  atomic.Int64
	apiErrors        atomic.Int64
	encodeErrors     atomic.Int64
	skipped          atomic.Int64
}

// Stats is a snapshot of the element's activity.
type Stats struct {
	FramesSeen       int64
	JobsSubmitted    int64
	ResultsDelivered int64
	TransportErrors  int64
	APIErrors        int64
	EncodeErrors     int64
	Skipped          int64
	JobsQueued       int
	ResultsQueued    int
	Running          bool
}

// Stats returns the current counters. Safe from any goroutine.
func (e *Element) Stats() Stats {
	return Stats{
		FramesSeen:       e.stats.framesSeen.Load(),
		JobsSubmitted:    e.stats.jobsSubmitted.Load(),
		ResultsDelivered: e.stats.resultsDelivered.Load(),
		TransportErrors:  e.stats.transportErrors.Load(),
		APIErrors:        e.stats.apiErrors.Load(),
		EncodeErrors:     e.stats.encodeErrors.Load(),
		Skipped:          e.stats.skipped.Load(),
		JobsQueued:       e.jobs.Len(),
		ResultsQueued:    e.results.Len(),
		Running:          e.isRunning(),
	}
}
