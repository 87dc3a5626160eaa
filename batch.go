// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package tbdr

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/core"
	"github.com/gogpu/wgpu/core/track"

	"github.com/gogpu/tbdr/cmdstream"
)

// queryBufferSize is the byte size of the per-batch query buffer.
const queryBufferSize = 256

// Batch is one deferred unit of tiled GPU work: the draws and clears of a
// render pass, recorded into three command streams and replayed by a
// TileExecutor per tile at flush.
//
// The gmem stream is the root of the stream tree. It drives the tiles and
// calls the draw and binning streams, its children. All three are deleted
// together when the last reference is released.
//
// A Batch is reference counted. The creating Context holds one reference
// until the batch is flushed, and every Resource with a pending read or
// write record holds one until the record is dropped. Batch masks are only
// mutated from the owning Context's goroutine.
type Batch struct {
	dev   *Device
	ctx   *Context
	seqno uint64
	ref   *core.ResourceRef

	gmem    *cmdstream.Stream
	draw    *cmdstream.Stream
	binning *cmdstream.Stream

	fb    Framebuffer
	query *Resource

	cleared        BufferMask
	partialCleared BufferMask
	restore        BufferMask
	resolve        BufferMask
	gmemReason     GmemReason
	needsFlush     bool
	flushed        bool

	numDraws       int
	numVertices    uint64
	clearedScissor [numClearGroups]Rect
	maxScissor     Rect
	extent         Rect

	clearColor   [MaxColorTargets]gputypes.Color
	clearDepth   float32
	clearStencil uint32

	// Guarded by dev.mu.
	reads      track.ResourceMetadata
	writes     track.ResourceMetadata
	bufferUses *track.BufferUsageScope
	resources  []*Resource
	hazards    int
}

// NewBatch creates a batch owned by ctx with a reference count of one.
// The owner may be nil, in which case the caller holds the reference and
// must Release it. On allocation failure the error wraps ErrStreamAlloc.
func (d *Device) NewBatch(owner *Context) (*Batch, error) {
	seq := d.nextSeqno()
	b := &Batch{
		dev:        d,
		ctx:        owner,
		seqno:      seq,
		reads:      track.NewResourceMetadata(),
		writes:     track.NewResourceMetadata(),
		bufferUses: track.NewBufferUsageScope(),
	}

	var err error
	if b.gmem, err = d.streams.NewStream(fmt.Sprintf("batch%d.gmem", seq), d.cfg.StreamCapacity); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStreamAlloc, err)
	}
	if b.draw, err = d.streams.NewStream(fmt.Sprintf("batch%d.draw", seq), d.cfg.StreamCapacity); err != nil {
		d.streams.DeleteStream(b.gmem)
		return nil, fmt.Errorf("%w: %w", ErrStreamAlloc, err)
	}
	if b.binning, err = d.streams.NewStream(fmt.Sprintf("batch%d.binning", seq), d.cfg.StreamCapacity); err != nil {
		d.streams.DeleteStream(b.draw)
		d.streams.DeleteStream(b.gmem)
		return nil, fmt.Errorf("%w: %w", ErrStreamAlloc, err)
	}
	b.gmem.AddChild(b.draw)
	b.gmem.AddChild(b.binning)

	b.query, err = d.NewResource(ResourceDescriptor{
		Label: fmt.Sprintf("batch%d.query", seq),
		Kind:  KindBuffer,
		Size:  queryBufferSize,
		Usage: UsageQuery,
	})
	if err != nil {
		b.deleteStreams()
		return nil, err
	}

	if owner != nil {
		b.fb = owner.fb
	}
	b.ref = core.NewResourceRef(fmt.Sprintf("batch%d", seq), b.destroy)
	d.batches.Add(1)

	Logger().Debug("tbdr: batch created", "seqno", seq)
	return b, nil
}

// destroy runs when the last reference is released. It must not take the
// device lock: the final release may happen while it is held.
func (b *Batch) destroy() {
	b.deleteStreams()
	b.query.destroyed = true
	b.query.tracking.Release()
	b.dev.batches.Add(-1)
	Logger().Debug("tbdr: batch destroyed", "seqno", b.seqno, "draws", b.numDraws)
}

// deleteStreams frees the children before their parent.
func (b *Batch) deleteStreams() {
	b.dev.streams.DeleteStream(b.draw)
	b.dev.streams.DeleteStream(b.binning)
	b.dev.streams.DeleteStream(b.gmem)
}

// Retain adds a reference.
func (b *Batch) Retain() {
	b.ref.Clone()
}

// Release drops a reference. The last release deletes the command streams.
func (b *Batch) Release() {
	b.ref.Drop()
}

// RefCount returns the current number of references.
func (b *Batch) RefCount() int {
	return int(b.ref.RefCount())
}

// CheckSize flushes the batch when the draw or gmem stream is close to
// full, or after every draw when DebugFlush is set. Streams never grow, so
// this is the only backpressure.
func (b *Batch) CheckSize() error {
	if b.flushed {
		return nil
	}
	if b.dev.cfg.Debug&DebugFlush != 0 || b.lowOnSpace() {
		return b.Flush()
	}
	return nil
}

// lowOnSpace reports whether the draw or gmem stream has less than the
// flush threshold left. Clears go to either one.
func (b *Batch) lowOnSpace() bool {
	return min(b.draw.Remaining(), b.gmem.Remaining()) < b.dev.cfg.FlushThreshold
}

// Flush hands the batch to the owning context's executor when it holds
// work, drops every resource usage record and the context's reference.
// Only the first call has an effect. After Flush the batch is read-only.
//
// The executor runs synchronously; one that renders asynchronously must
// Retain the batch.
func (b *Batch) Flush() error {
	if b.flushed {
		return nil
	}
	b.flushed = true

	ctx := b.ctx
	var err error
	if b.needsFlush && ctx != nil && ctx.executor != nil {
		err = ctx.executor.ExecuteTiles(b)
	}
	Logger().Debug("tbdr: batch flushed",
		"seqno", b.seqno,
		"draws", b.numDraws,
		"cleared", b.cleared,
		"restore", b.restore,
		"resolve", b.resolve,
		"gmemReason", b.gmemReason)

	b.dev.mu.Lock()
	b.dropRecordsLocked()
	b.dev.mu.Unlock()

	if ctx != nil {
		b.ctx = nil
		if ctx.batch == b {
			ctx.batch = nil
		}
		ctx.stats.Flushes++
		b.Release()
	}

	if err != nil {
		Logger().Warn("tbdr: tile execution failed", "seqno", b.seqno, "err", err)
		return fmt.Errorf("tbdr: flush batch %d: %w", b.seqno, err)
	}
	return nil
}

// dropRecordsLocked releases every read and write record of b.
func (b *Batch) dropRecordsLocked() {
	for _, r := range b.resources {
		if r.writer == b {
			r.writer = nil
			b.Release()
		}
		if _, ok := r.readers[b]; ok {
			delete(r.readers, b)
			b.Release()
		}
	}
	b.resources = nil
	b.reads.Clear()
	b.writes.Clear()
	b.bufferUses.Clear()
}

// Seqno returns the creation sequence number, starting at 1.
func (b *Batch) Seqno() uint64 { return b.seqno }

// Device returns the device that created b.
func (b *Batch) Device() *Device { return b.dev }

// Context returns the owning context, or nil once flushed.
func (b *Batch) Context() *Context { return b.ctx }

// Framebuffer returns the framebuffer bound when b was created.
func (b *Batch) Framebuffer() Framebuffer { return b.fb }

// GmemStream returns the root tile-control stream.
func (b *Batch) GmemStream() *cmdstream.Stream { return b.gmem }

// DrawStream returns the draw stream, a child of GmemStream.
func (b *Batch) DrawStream() *cmdstream.Stream { return b.draw }

// BinningStream returns the binning stream, a child of GmemStream.
func (b *Batch) BinningStream() *cmdstream.Stream { return b.binning }

// Query returns the internal query buffer.
func (b *Batch) Query() *Resource { return b.query }

// Cleared returns the buffers fully cleared before any draw touched them.
func (b *Batch) Cleared() BufferMask { return b.cleared }

// PartialCleared returns the buffers cleared through a partial scissor.
func (b *Batch) PartialCleared() BufferMask { return b.partialCleared }

// Restore returns the buffers loaded into tile memory before rendering.
func (b *Batch) Restore() BufferMask { return b.restore }

// Resolve returns the buffers stored back to memory after rendering.
func (b *Batch) Resolve() BufferMask { return b.resolve }

// GmemReason returns why the batch must render through tile memory.
func (b *Batch) GmemReason() GmemReason { return b.gmemReason }

// NeedsFlush reports whether a backend queued work into the batch.
func (b *Batch) NeedsFlush() bool { return b.needsFlush }

// Flushed reports whether Flush was called.
func (b *Batch) Flushed() bool { return b.flushed }

// NumDraws returns the number of recorded draws.
func (b *Batch) NumDraws() int { return b.numDraws }

// NumVertices returns the number of vertices of all recorded draws,
// counting instances.
func (b *Batch) NumVertices() uint64 { return b.numVertices }

// ClearedScissor returns the rectangle of the last partial clear of group g.
func (b *Batch) ClearedScissor(g ClearGroup) Rect { return b.clearedScissor[g] }

// MaxScissor returns the union of all draw scissors.
func (b *Batch) MaxScissor() Rect { return b.maxScissor }

// Extent returns the union of the scissors of every draw and clear: pixels
// outside it are neither read nor written by the batch.
func (b *Batch) Extent() Rect { return b.extent }

// ClearColor returns the clear value of color target i.
func (b *Batch) ClearColor(i int) gputypes.Color { return b.clearColor[i] }

// ClearDepth returns the depth clear value.
func (b *Batch) ClearDepth() float32 { return b.clearDepth }

// ClearStencil returns the stencil clear value.
func (b *Batch) ClearStencil() uint32 { return b.clearStencil }

// Hazards returns the number of incompatible buffer usages seen in the batch.
func (b *Batch) Hazards() int {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()
	return b.hazards
}

// String returns a short description for logs.
func (b *Batch) String() string {
	return fmt.Sprintf("batch%d{draws=%d cleared=%v restore=%v resolve=%v}",
		b.seqno, b.numDraws, b.cleared, b.restore, b.resolve)
}
