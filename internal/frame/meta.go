package frame

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotWritable is returned when metadata is added to a shared buffer.
var ErrNotWritable = errors.New("frame: buffer is not writable")

// DescriptionMeta is buffer-scoped metadata carrying a scene description.
type DescriptionMeta struct {
	Description string

	// SourceID and SourcePTS identify the frame that was analyzed, which is
	// usually an earlier frame than the one carrying the meta.
	SourceID  uuid.UUID
	SourcePTS time.Duration
}

// AddMeta attaches m to the buffer. Only the sole owner may do so.
func (b *Buffer) AddMeta(m DescriptionMeta) error {
	if !b.IsWritable() {
		return ErrNotWritable
	}
	b.metaMu.Lock()
	b.metas = append(b.metas, m)
	b.metaMu.Unlock()
	return nil
}

// Metas returns a copy of the metadata attached to the buffer.
func (b *Buffer) Metas() []DescriptionMeta {
	b.metaMu.Lock()
	defer b.metaMu.Unlock()
	out := make([]DescriptionMeta, len(b.metas))
	copy(out, b.metas)
	return out
}

// Description returns the most recently attached description, if any.
func (b *Buffer) Description() (DescriptionMeta, bool) {
	b.metaMu.Lock()
	defer b.metaMu.Unlock()
	if len(b.metas) == 0 {
		return DescriptionMeta{}, false
	}
	return b.metas[len(b.metas)-1], true
}
