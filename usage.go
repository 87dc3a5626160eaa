package tbdr

import (
	"errors"

	"github.com/gogpu/wgpu/core/track"
)

// MarkResourceUsed records that b reads r, or writes it when write is set.
// A nil or destroyed resource and a flushed batch are ignored.
//
// A write makes b the writer of r and drops the write record of the
// previous writer. A read adds b to the readers of r. Each record holds a
// reference to b until b is flushed or r is destroyed.
//
// The records are bookkeeping only: hazards between batches are resolved
// by the caller.
func (b *Batch) MarkResourceUsed(r *Resource, write bool) {
	if r == nil {
		return
	}
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()
	b.markUsedLocked(r, write, track.BufferUsesNone)
}

// markUsedLocked records the access and, for buffers, merges uses into the
// batch usage scope. Incompatible uses are counted as hazards.
func (b *Batch) markUsedLocked(r *Resource, write bool, uses track.BufferUses) {
	if r == nil || r.destroyed || b.flushed {
		return
	}
	idx := r.tracking.Index()
	if !b.reads.IsOwned(idx) && !b.writes.IsOwned(idx) {
		b.resources = append(b.resources, r)
	}

	if write {
		if r.writer != b {
			if prev := r.writer; prev != nil {
				prev.writes.SetOwned(idx, false)
				prev.Release()
			}
			b.Retain()
			r.writer = b
			b.writes.SetOwned(idx, true)
		}
	} else if !b.reads.IsOwned(idx) {
		b.Retain()
		r.readers[b] = struct{}{}
		b.reads.SetOwned(idx, true)
	}

	if uses == track.BufferUsesNone || r.desc.Kind != KindBuffer {
		return
	}
	if err := b.bufferUses.SetUsage(idx, uses); err != nil {
		var conflict *track.UsageConflictError
		if errors.As(err, &conflict) {
			b.hazards++
			Logger().Debug("tbdr: buffer usage conflict",
				"seqno", b.seqno,
				"resource", r.desc.Label,
				"existing", uint32(conflict.Existing),
				"new", uint32(conflict.New))
		}
	}
}

// Reads reports whether b holds a read record of r.
func (b *Batch) Reads(r *Resource) bool {
	if r == nil {
		return false
	}
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()
	_, ok := r.readers[b]
	return ok
}

// Writes reports whether b is the pending writer of r.
func (b *Batch) Writes(r *Resource) bool {
	if r == nil {
		return false
	}
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()
	return r.writer == b
}

// BufferUses returns the merged buffer uses of r recorded in b.
func (b *Batch) BufferUses(r *Resource) track.BufferUses {
	if r == nil {
		return track.BufferUsesNone
	}
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()
	return b.bufferUses.GetUsage(r.tracking.Index())
}

// Resources returns the resources b holds a record of, in first-use order.
func (b *Batch) Resources() []*Resource {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()
	out := make([]*Resource, 0, len(b.resources))
	seen := make(map[*Resource]bool, len(b.resources))
	for _, r := range b.resources {
		if seen[r] {
			continue
		}
		if _, ok := r.readers[b]; ok || r.writer == b {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}
