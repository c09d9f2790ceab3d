package analyzer

import (
	"context"
	"errors"

	"github.com/bdougie/visionstream/internal/gemini"
	"github.com/bdougie/visionstream/internal/models"
)

// runWorker is the single background worker. It performs one describe call
// at a time and exits on the first job it pops after the element stopped.
func (e *Element) runWorker() {
	defer e.workers.Done()

	for {
		job := e.jobs.Pop()

		// Exit is decided under mu: Start either finds this worker alive or
		// spawns a replacement.
		e.mu.Lock()
		if !e.running {
			e.workerAlive = false
			e.mu.Unlock()
			job.Release()
			e.logger.Debug("worker exiting")
			return
		}
		e.mu.Unlock()

		if job.IsPoison() {
			job.Release()
			continue
		}

		res := e.process(job)
		e.results.Push(res)

		e.mu.Lock()
		if e.source != nil {
			e.source.SetReady()
		}
		e.mu.Unlock()
	}
}

// process runs the describe call for job and always yields a result.
// Failures become the description so the producer still sees an outcome.
func (e *Element) process(job *models.Job) *models.Result {
	defer job.Release()

	description, err := e.describer.Describe(context.Background(), gemini.RequestFromJob(job))
	if err != nil {
		var transportErr *gemini.TransportError
		var apiErr *gemini.APIError
		switch {
		case errors.As(err, &transportErr):
			e.stats.transportErrors.Add(1)
			e.logger.Error("request failed", "job", job.ID, "error", err)
		case errors.As(err, &apiErr):
			e.stats.apiErrors.Add(1)
			e.logger.Warn("API returned an error", "job", job.ID, "status", apiErr.StatusCode, "error", err)
		default:
			e.stats.transportErrors.Add(1)
			e.logger.Error("analysis failed", "job", job.ID, "error", err)
		}
		description = err.Error()
	}
	if description == "" {
		description = gemini.NoDescription
	}

	return models.NewResult(job, description)
}
