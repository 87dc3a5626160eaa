package tbdr

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/core/track"
)

// Clear clears buffers of the bound framebuffer inside the active scissor.
//
// Buffers not restored by an earlier draw of the batch become cleared: a
// full-area clear adds them to Cleared, so the executor clears tile memory
// instead of loading it, while a scissored clear adds them to
// PartialCleared and records the rectangle of each group. Cleared buffers
// always join Resolve. The batch is only updated once the backend has
// recorded the clear, and is flushed when its streams run low.
func (c *Context) Clear(buffers BufferMask, color gputypes.Color, depth float32, stencil uint32) error {
	if c.closed {
		return ErrContextClosed
	}
	if !c.renderEnabled() {
		c.stats.Skipped++
		return nil
	}

	b, err := c.Batch()
	if err != nil {
		return err
	}

	buffers &= b.fb.Attached()
	scissor := c.ActiveScissor()
	if buffers == 0 || scissor.Empty() {
		c.stats.Skipped++
		return nil
	}

	if c.dev.cfg.Debug&DebugMsgs != 0 {
		Logger().Debug("tbdr: clear", "seqno", b.seqno, "buffers", buffers, "scissor", scissor)
	}

	req := &ClearRequest{
		Buffers: buffers,
		Color:   color,
		Depth:   depth,
		Stencil: stencil,
		Scissor: scissor,
	}
	if err := c.backend.Clear(c, b, req); err != nil {
		return fmt.Errorf("tbdr: %s clear: %w", c.backend.Name(), err)
	}

	cleared := buffers &^ b.restore
	if scissor == b.fb.Bounds() {
		b.cleared |= cleared
	} else {
		b.partialCleared |= cleared
		if cleared.Any(BufferColor) {
			b.clearedScissor[GroupColor] = scissor
		}
		if cleared.Any(BufferDepth) {
			b.clearedScissor[GroupDepth] = scissor
		}
		if cleared.Any(BufferStencil) {
			b.clearedScissor[GroupStencil] = scissor
		}
	}

	b.resolve |= buffers
	b.extent = b.extent.Union(scissor)
	b.needsFlush = true
	if buffers.Any(BufferDepthStencil) {
		b.gmemReason |= GmemClearsDepthStencil
	}

	for i := 0; i < MaxColorTargets; i++ {
		if buffers.Has(BufferColorN(i)) {
			b.clearColor[i] = color
		}
	}
	if buffers.Has(BufferDepth) {
		b.clearDepth = depth
	}
	if buffers.Has(BufferStencil) {
		b.clearStencil = stencil
	}

	c.markClearTargets(b, buffers)
	c.stats.Clears++

	if b.lowOnSpace() {
		return b.Flush()
	}
	return nil
}

func (c *Context) markClearTargets(b *Batch, buffers BufferMask) {
	c.dev.mu.Lock()
	defer c.dev.mu.Unlock()

	for i, cb := range b.fb.Colors {
		if buffers.Has(BufferColorN(i)) {
			b.markUsedLocked(cb, true, track.BufferUsesNone)
		}
	}
	if buffers.Any(BufferDepthStencil) {
		b.markUsedLocked(b.fb.DepthStencil, true, track.BufferUsesNone)
	}
	b.markUsedLocked(b.query, true, track.BufferUsesQueryResolve)
}
