package analyzer

import (
	"github.com/google/uuid"

	"github.com/bdougie/visionstream/internal/frame"
	"github.com/bdougie/visionstream/internal/models"
)

// DrainResults delivers every queued result in order and returns how many
// it handled. It runs on the producer context, normally from the idle
// source installed by Start.
func (e *Element) DrainResults() int {
	n := 0
	for {
		res, ok := e.results.TryPop()
		if !ok {
			return n
		}
		e.deliver(res)
		n++
	}
}

func (e *Element) deliver(res *models.Result) {
	defer res.Release()

	// Results from before a restart must not clear the gate for a newer job
	if res.JobID == e.inflight {
		e.gate.Complete()
		e.inflight = uuid.Nil
	}

	p := pendingDescription{text: res.Description, set: true, sourcePTS: frame.ClockTimeNone}
	if res.Frame != nil {
		p.sourceID = res.Frame.ID
		p.sourcePTS = res.Frame.PTS
	}
	e.setPending(p)
	e.stats.resultsDelivered.Add(1)

	e.logger.Info("analysis complete",
		"job", res.JobID,
		"pts", frame.FormatTimestamp(p.sourcePTS),
		"description", res.Description)

	if e.Config().OutputMetadata {
		return
	}

	e.handlersMu.RLock()
	handlers := make([]DescriptionHandler, len(e.handlers))
	copy(handlers, e.handlers)
	e.handlersMu.RUnlock()

	for _, h := range handlers {
		h(res.Description, res.Frame)
	}
}
