package models

import (
	"testing"

	"github.com/bdougie/visionstream/internal/frame"
)

func TestJobOwnershipMovesToResult(t *testing.T) {
	released := 0
	buf := frame.NewBuffer([]byte{1}, 0, frame.WithReleaseFunc(func(*frame.Buffer) { released++ }))

	job := &Job{Image: []byte{1, 2}, Prompt: "p", Frame: buf.Ref()}
	buf.Unref() // host drops its reference

	res := NewResult(job, "a dog")
	if job.Frame != nil {
		t.Fatal("job still references the frame after NewResult")
	}

	// Releasing the job must not touch the moved reference.
	job.Release()
	if released != 0 {
		t.Fatalf("frame released by job after move")
	}

	res.Release()
	res.Release()
	if released != 1 {
		t.Fatalf("release count = %d, want 1", released)
	}
}

func TestPoisonJob(t *testing.T) {
	if !NewPoisonJob().IsPoison() {
		t.Error("NewPoisonJob should be poison")
	}
	if (&Job{Image: []byte{1}, Prompt: "describe"}).IsPoison() {
		t.Error("job with work should not be poison")
	}
}

func TestGenerationConfigClone(t *testing.T) {
	temp := 0.0
	topK := 5
	g := GenerationConfig{StopSequences: []string{"END"}, Temperature: &temp, TopK: &topK}

	c := g.Clone()
	*g.Temperature = 1.5
	g.StopSequences[0] = "changed"

	if *c.Temperature != 0 {
		t.Errorf("clone shares temperature: %v", *c.Temperature)
	}
	if c.StopSequences[0] != "END" {
		t.Errorf("clone shares stop sequences: %v", c.StopSequences)
	}
	if c.MaxOutputTokens != nil || c.TopP != nil {
		t.Error("unset fields must stay unset")
	}
	if c.IsZero() {
		t.Error("clone with values reported zero")
	}
	if !(GenerationConfig{}).IsZero() {
		t.Error("empty config should be zero")
	}
}
