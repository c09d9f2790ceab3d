package frame

import (
	"testing"
	"time"
)

func TestBufferRefCounting(t *testing.T) {
	released := 0
	b := NewBuffer([]byte{1, 2, 3}, time.Second, WithReleaseFunc(func(*Buffer) { released++ }))

	if !b.IsWritable() {
		t.Fatal("new buffer should be writable")
	}

	b.Ref()
	if b.IsWritable() {
		t.Error("buffer with two references should not be writable")
	}
	if got := b.RefCount(); got != 2 {
		t.Errorf("RefCount() = %d, want 2", got)
	}

	b.Unref()
	if released != 0 {
		t.Fatalf("released early: %d", released)
	}
	b.Unref()
	if released != 1 {
		t.Fatalf("release hook ran %d times, want 1", released)
	}
	if b.Map() != nil {
		t.Error("data should be dropped after release")
	}
}

func TestBufferUnrefPanicsAfterRelease(t *testing.T) {
	b := NewBuffer(nil, ClockTimeNone)
	b.Unref()

	defer func() {
		if recover() == nil {
			t.Error("expected panic on double Unref")
		}
	}()
	b.Unref()
}

func TestAddMetaRequiresWritable(t *testing.T) {
	b := NewBuffer([]byte{0}, 0)
	b.Ref()

	if err := b.AddMeta(DescriptionMeta{Description: "shared"}); err != ErrNotWritable {
		t.Fatalf("AddMeta on shared buffer: err = %v, want ErrNotWritable", err)
	}
	b.Unref()

	if err := b.AddMeta(DescriptionMeta{Description: "a cat"}); err != nil {
		t.Fatalf("AddMeta: %v", err)
	}
	m, ok := b.Description()
	if !ok || m.Description != "a cat" {
		t.Errorf("Description() = %+v, %v", m, ok)
	}
	if n := len(b.Metas()); n != 1 {
		t.Errorf("len(Metas()) = %d, want 1", n)
	}
}

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		ts   time.Duration
		want string
	}{
		{ClockTimeNone, "none"},
		{0, "0.000000000"},
		{1500 * time.Millisecond, "1.500000000"},
	}
	for _, tt := range tests {
		if got := FormatTimestamp(tt.ts); got != tt.want {
			t.Errorf("FormatTimestamp(%v) = %q, want %q", tt.ts, got, tt.want)
		}
	}
}

func TestInfoSize(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want int
	}{
		{"rgb packed", Info{Format: FormatRGB, Width: 4, Height: 2}, 24},
		{"rgba packed", Info{Format: FormatRGBA, Width: 4, Height: 2}, 32},
		{"padded stride", Info{Format: FormatBGR, Width: 3, Height: 2, Stride: 12}, 24},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.Size(); got != tt.want {
				t.Errorf("Size() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("BGRA")
	if err != nil || f != FormatBGRA {
		t.Fatalf("ParseFormat(BGRA) = %v, %v", f, err)
	}
	if _, err := ParseFormat("unknown"); err == nil {
		t.Error("ParseFormat(unknown) should fail")
	}
}
