// Package frame holds the frame buffers exchanged between the host pipeline
// and the analyzer.
//
// Buffers are reference counted. The host owns the first reference; any
// component that keeps a buffer beyond the call it received it in takes its
// own reference with Ref and gives it back with Unref, exactly once.
package frame

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ClockTimeNone marks a presentation timestamp as unavailable.
const ClockTimeNone time.Duration = -1

// TimestampValid reports whether ts is a usable presentation timestamp.
func TimestampValid(ts time.Duration) bool {
	return ts >= 0
}

// FormatTimestamp renders ts as seconds.nanoseconds, or "none".
func FormatTimestamp(ts time.Duration) string {
	if !TimestampValid(ts) {
		return "none"
	}
	return fmt.Sprintf("%d.%09d", ts/time.Second, ts%time.Second)
}

// Buffer is an immutable frame plus the metadata attached to it.
type Buffer struct {
	// ID traces a buffer through logs and results.
	ID uuid.UUID

	// PTS is the presentation timestamp, ClockTimeNone if unknown.
	PTS time.Duration

	// Info describes the pixel layout of Data. A zero Info means the
	// negotiated stream format applies.
	Info Info

	data      []byte
	refs      atomic.Int32
	onRelease func(*Buffer)

	metaMu sync.Mutex
	metas  []DescriptionMeta
}

// Option configures a Buffer at construction.
type Option func(*Buffer)

// WithInfo sets the pixel layout of the buffer.
func WithInfo(info Info) Option {
	return func(b *Buffer) { b.Info = info }
}

// WithReleaseFunc registers fn to run once the last reference is dropped.
func WithReleaseFunc(fn func(*Buffer)) Option {
	return func(b *Buffer) { b.onRelease = fn }
}

// NewBuffer wraps data in a Buffer holding a single reference. The caller
// must not modify data afterwards.
func NewBuffer(data []byte, pts time.Duration, opts ...Option) *Buffer {
	b := &Buffer{
		ID:   uuid.New(),
		PTS:  pts,
		data: data,
	}
	b.refs.Store(1)
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Ref takes an additional reference and returns b for convenience.
func (b *Buffer) Ref() *Buffer {
	if b.refs.Add(1) <= 1 {
		panic("frame: Ref on released buffer")
	}
	return b
}

// Unref drops a reference. The release hook runs when the count hits zero.
func (b *Buffer) Unref() {
	n := b.refs.Add(-1)
	switch {
	case n == 0:
		if b.onRelease != nil {
			b.onRelease(b)
		}
		b.data = nil
	case n < 0:
		panic("frame: Unref on released buffer")
	}
}

// RefCount returns the current number of references.
func (b *Buffer) RefCount() int {
	return int(b.refs.Load())
}

// IsWritable reports whether the caller holds the only reference.
func (b *Buffer) IsWritable() bool {
	return b.refs.Load() == 1
}

// Map returns the frame bytes for reading. The slice must not be modified.
func (b *Buffer) Map() []byte {
	return b.data
}

// Size returns the number of bytes in the buffer.
func (b *Buffer) Size() int {
	return len(b.data)
}

func (b *Buffer) String() string {
	return fmt.Sprintf("buffer %s pts=%s", b.ID, FormatTimestamp(b.PTS))
}
