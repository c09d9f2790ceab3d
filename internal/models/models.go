package models

import (
	"github.com/google/uuid"

	"github.com/bdougie/visionstream/internal/frame"
)

// GenerationConfig holds the optional generation parameters. A nil field
// is left out of the request so the service applies its own default.
type GenerationConfig struct {
	StopSequences   []string `json:"stopSequences,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	TopK            *int     `json:"topK,omitempty"`
}

// IsZero reports whether no parameter is set.
func (g GenerationConfig) IsZero() bool {
	return len(g.StopSequences) == 0 && g.Temperature == nil && g.MaxOutputTokens == nil &&
		g.TopP == nil && g.TopK == nil
}

// Clone returns a deep copy so a job never shares mutable state with the
// live configuration.
func (g GenerationConfig) Clone() GenerationConfig {
	out := GenerationConfig{}
	if len(g.StopSequences) > 0 {
		out.StopSequences = append([]string(nil), g.StopSequences...)
	}
	if g.Temperature != nil {
		v := *g.Temperature
		out.Temperature = &v
	}
	if g.MaxOutputTokens != nil {
		v := *g.MaxOutputTokens
		out.MaxOutputTokens = &v
	}
	if g.TopP != nil {
		v := *g.TopP
		out.TopP = &v
	}
	if g.TopK != nil {
		v := *g.TopK
		out.TopK = &v
	}
	return out
}

// Job represents a frame queued for analysis
type Job struct {
	ID uuid.UUID

	// Image is the encoded payload, owned by the job.
	Image    []byte
	MIMEType string

	APIKey     string
	Prompt     string
	Model      string
	Generation GenerationConfig

	// Frame is the analyzed buffer. The job holds one reference to it.
	Frame *frame.Buffer
}

// NewPoisonJob returns the sentinel used to unblock the worker on shutdown.
func NewPoisonJob() *Job {
	return &Job{}
}

// IsPoison reports whether j carries no work.
func (j *Job) IsPoison() bool {
	return j.Image == nil && j.Prompt == "" && j.Frame == nil
}

// TakeFrame moves the frame reference out of the job.
func (j *Job) TakeFrame() *frame.Buffer {
	f := j.Frame
	j.Frame = nil
	return f
}

// Release drops everything the job owns. Safe to call more than once.
func (j *Job) Release() {
	if f := j.TakeFrame(); f != nil {
		f.Unref()
	}
	j.Image = nil
	j.APIKey = ""
	j.Prompt = ""
	j.Generation = GenerationConfig{}
}

// Result represents the outcome of analyzing one job
type Result struct {
	JobID       uuid.UUID
	Description string

	// Frame is the buffer the description belongs to, moved from the job.
	Frame *frame.Buffer
}

// NewResult builds the result for j, taking over its frame reference.
func NewResult(j *Job, description string) *Result {
	return &Result{
		JobID:       j.ID,
		Description: description,
		Frame:       j.TakeFrame(),
	}
}

// Release drops the frame reference. Safe to call more than once.
func (r *Result) Release() {
	if r.Frame != nil {
		r.Frame.Unref()
		r.Frame = nil
	}
}
