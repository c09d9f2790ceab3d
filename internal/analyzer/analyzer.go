// Package analyzer describes live video frames with a remote vision model
// without blocking the pipeline that produces them.
//
// An Element sits in the producer's single-threaded context. For each frame
// it asks its Gate whether an analysis is due, encodes the frame inline and
// queues a job for the single background worker, which performs the
// blocking API call. Results come back through a second queue and an idle
// source on the producer's mainloop.Loop, where they update the pending
// description and are attached to buffers or handed to handlers.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/bdougie/visionstream/internal/config"
	"github.com/bdougie/visionstream/internal/encoder"
	"github.com/bdougie/visionstream/internal/frame"
	"github.com/bdougie/visionstream/internal/gemini"
	"github.com/bdougie/visionstream/internal/mainloop"
	"github.com/bdougie/visionstream/internal/models"
	"github.com/bdougie/visionstream/internal/queue"
)

var (
	ErrClosed        = errors.New("analyzer is closed")
	ErrNoDescriber   = errors.New("analyzer requires a describer")
	ErrInvalidFormat = errors.New("invalid input format")
)

// Describer turns an encoded image and prompt into a description.
type Describer interface {
	Describe(ctx context.Context, req gemini.Request) (string, error)
}

// DescriptionHandler receives descriptions in event mode. buf is the frame
// that was analyzed; it is only guaranteed to live for the duration of the
// call, so handlers that keep it must Ref it.
type DescriptionHandler func(description string, buf *frame.Buffer)

// Analyzer is the capability set the host pipeline drives.
type Analyzer interface {
	Start() error
	Stop() error
	Close() error
	Configure(cfg config.Config) error
	OnFrame(buf *frame.Buffer) error
	OnConfigChange(info frame.Info) error
}

var _ Analyzer = (*Element)(nil)

// pendingDescription is the latest description and the frame it came from.
type pendingDescription struct {
	text      string
	sourceID  uuid.UUID
	sourcePTS time.Duration
	set       bool
}

// Element is the frame analyzer.
//
// OnFrame, OnConfigChange and DrainResults must be called from the producer
// context (the goroutine running the mainloop.Loop). Start, Stop, Close,
// Configure and OnDescription are safe from any goroutine.
type Element struct {
	logger    *slog.Logger
	describer Describer
	loop      *mainloop.Loop

	jobs    *queue.Queue[*models.Job]
	results *queue.Queue[*models.Result]

	// Lifecycle state shared with the worker
	mu          sync.Mutex
	cfg         config.Config
	running     bool
	closed      bool
	workerAlive bool
	source      *mainloop.Source
	workers     sync.WaitGroup
	epoch       atomic.Uint64

	handlersMu sync.RWMutex
	handlers   []DescriptionHandler

	// Written on delivery, cleared by Close
	pendingMu sync.Mutex
	pending   pendingDescription

	// Producer context only
	gate          *Gate
	inflight      uuid.UUID
	seenEpoch     uint64
	inputInfo     frame.Info
	warnedNoKey   bool
	warnedStopped bool

	stats counters
}

// New creates an element that delivers results on loop. A nil loop means
// the caller drains results itself with DrainResults.
func New(loop *mainloop.Loop, describer Describer, logger *slog.Logger) (*Element, error) {
	if describer == nil {
		return nil, ErrNoDescriber
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg := config.Default()
	return &Element{
		logger:    logger.With("component", "analyzer"),
		describer: describer,
		loop:      loop,
		jobs:      queue.New[*models.Job](),
		results:   queue.New[*models.Result](),
		cfg:       cfg,
		gate:      NewGate(cfg.Interval()),
	}, nil
}

// Configure validates and installs cfg. Jobs already queued keep the
// settings they were created with.
func (e *Element) Configure(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.StopSequences = append([]string(nil), cfg.StopSequences...)

	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()

	e.logger.Debug("configuration updated",
		"model", cfg.Model,
		"interval", cfg.Interval(),
		"output_metadata", cfg.OutputMetadata)
	return nil
}

// Config returns a copy of the current configuration.
func (e *Element) Config() config.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// OnConfigChange records the negotiated input format, used for buffers
// that carry no format of their own.
func (e *Element) OnConfigChange(info frame.Info) error {
	if err := encoder.CheckFormat(info.Format); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}
	if info.Format.IsPacked() {
		if err := encoder.CheckDimensions(info); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidFormat, err)
		}
	}
	e.inputInfo = info
	e.logger.Info("input format set", "format", info.String())
	return nil
}

// OnDescription registers h for event-mode delivery. Handlers run on the
// producer context in registration order.
func (e *Element) OnDescription(h DescriptionHandler) {
	e.handlersMu.Lock()
	e.handlers = append(e.handlers, h)
	e.handlersMu.Unlock()
}

// OnFrame processes one frame from the pipeline. The caller keeps its own
// reference to buf. An error means the frame could not be encoded; the
// stream may continue.
func (e *Element) OnFrame(buf *frame.Buffer) error {
	e.stats.framesSeen.Add(1)

	// Start resets timing; the reset itself happens here so the gate is
	// only ever touched from the producer context.
	if ep := e.epoch.Load(); ep != e.seenEpoch {
		e.gate.Reset()
		e.inflight = uuid.Nil
		e.seenEpoch = ep
	}

	cfg := e.Config()
	e.gate.SetInterval(cfg.Interval())

	if e.gate.ShouldAnalyze(buf.PTS) {
		if err := e.submit(buf, cfg); err != nil {
			return err
		}
	}

	e.applyPending(buf, cfg)
	return nil
}

// submit encodes buf and queues it for the worker.
func (e *Element) submit(buf *frame.Buffer, cfg config.Config) error {
	if !cfg.HasCredential() {
		if !e.warnedNoKey {
			e.logger.Warn("API key not set, skipping analysis")
			e.warnedNoKey = true
		}
		e.stats.skipped.Add(1)
		return nil
	}
	e.warnedNoKey = false

	if !e.isRunning() {
		if !e.warnedStopped {
			e.logger.Warn("worker not running, skipping analysis", "frame", buf.ID)
			e.warnedStopped = true
		}
		e.stats.skipped.Add(1)
		return nil
	}
	e.warnedStopped = false

	info := buf.Info
	if info.IsZero() {
		info = e.inputInfo
	}

	image, err := encoder.Encode(info, buf.Map())
	if err != nil {
		e.stats.encodeErrors.Add(1)
		e.logger.Error("failed to encode frame", "frame", buf.ID, "format", info.String(), "error", err)
		return fmt.Errorf("failed to encode frame %s: %w", buf.ID, err)
	}

	job := &models.Job{
		ID:         uuid.New(),
		Image:      image,
		MIMEType:   encoder.MIMEType,
		APIKey:     cfg.APIKey,
		Prompt:     cfg.Prompt,
		Model:      cfg.Model,
		Generation: cfg.Generation(),
		Frame:      buf.Ref(),
	}

	e.gate.Begin(buf.PTS)
	e.inflight = job.ID
	e.jobs.Push(job)
	e.stats.jobsSubmitted.Add(1)

	e.logger.Info("queued frame for analysis",
		"job", job.ID,
		"frame", buf.ID,
		"pts", frame.FormatTimestamp(buf.PTS),
		"bytes", len(image))
	return nil
}

// applyPending attaches the latest description to buf in metadata mode.
// Shared buffers are skipped; the description stays pending for the next
// writable one.
func (e *Element) applyPending(buf *frame.Buffer, cfg config.Config) {
	if !cfg.OutputMetadata {
		return
	}
	p := e.pendingSnapshot()
	if !p.set {
		return
	}
	meta := frame.DescriptionMeta{
		Description: p.text,
		SourceID:    p.sourceID,
		SourcePTS:   p.sourcePTS,
	}
	if err := buf.AddMeta(meta); err != nil {
		e.logger.Debug("buffer not writable, description deferred", "frame", buf.ID)
	}
}

func (e *Element) pendingSnapshot() pendingDescription {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	return e.pending
}

func (e *Element) setPending(p pendingDescription) {
	e.pendingMu.Lock()
	e.pending = p
	e.pendingMu.Unlock()
}

// AnalysisInProgress reports whether a job is in flight. Producer context
// only.
func (e *Element) AnalysisInProgress() bool {
	return e.gate.InProgress()
}

// PendingDescription returns the latest delivered description.
func (e *Element) PendingDescription() (string, bool) {
	p := e.pendingSnapshot()
	return p.text, p.set
}

func (e *Element) isRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}
