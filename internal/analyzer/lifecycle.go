package analyzer

import (
	"github.com/bdougie/visionstream/internal/mainloop"
	"github.com/bdougie/visionstream/internal/models"
)

// Start launches the worker if needed and hooks result delivery into the
// loop. Analysis timing starts over. Calling Start on a running element is
// a no-op.
func (e *Element) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if e.running {
		return nil
	}
	e.running = true
	e.epoch.Add(1)

	if !e.workerAlive {
		e.workerAlive = true
		e.workers.Add(1)
		go e.runWorker()
	}

	if e.loop != nil {
		src := mainloop.NewIdleSource(func() bool {
			e.DrainResults()
			return true
		})
		src.Attach(e.loop)
		e.source = src
		// Results left over from a previous run
		if e.results.Len() > 0 {
			src.SetReady()
		}
	}

	e.logger.Info("analyzer started", "model", e.cfg.Model, "interval", e.cfg.Interval())
	return nil
}

// Stop asks the worker to exit after its current job and detaches result
// delivery. It does not wait; queued jobs stay queued until the next Start
// or Close.
func (e *Element) Stop() error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = false
	src := e.source
	e.source = nil
	e.mu.Unlock()

	e.jobs.Push(models.NewPoisonJob())
	if src != nil {
		src.Destroy()
	}

	e.logger.Info("analyzer stopped")
	return nil
}

// Close stops the element, waits for the worker's in-flight call to finish
// and releases every job and result still queued. The pending description
// is dropped. The element cannot be started again.
func (e *Element) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	if err := e.Stop(); err != nil {
		return err
	}
	e.workers.Wait()

	var jobs, results int
	for {
		job, ok := e.jobs.TryPop()
		if !ok {
			break
		}
		if !job.IsPoison() {
			jobs++
		}
		job.Release()
	}
	for {
		res, ok := e.results.TryPop()
		if !ok {
			break
		}
		results++
		res.Release()
	}

	e.setPending(pendingDescription{})

	e.logger.Info("analyzer closed", "dropped_jobs", jobs, "dropped_results", results)
	return nil
}
