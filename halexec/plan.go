package halexec

import (
	"errors"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/tbdr"
	"github.com/gogpu/tbdr/format"
	"github.com/gogpu/tbdr/tiles"
)

// Mode is how a batch is rendered.
type Mode uint8

// Render modes.
const (
	// ModeGmem renders bin by bin in tile memory.
	ModeGmem Mode = iota
	// ModeBypass renders directly to system memory in a single pass.
	ModeBypass
)

// String returns "gmem" or "bypass".
func (m Mode) String() string {
	if m == ModeBypass {
		return "bypass"
	}
	return "gmem"
}

// Plan is the render plan of one batch.
type Plan struct {
	Mode   Mode
	Reason string
	Layout *tiles.Layout

	// Visible holds the bins the batch draws or clears into. The others
	// are skipped.
	Visible *tiles.Visibility

	batch *tbdr.Batch
	fb    tbdr.Framebuffer
}

// PlanBatch decides between tile and bypass rendering and computes the bin
// layout.
//
// Batches without a GMEM reason and with few draws bypass tile memory:
// loading and storing every bin costs more than the draws save. The nogmem
// debug flag forces bypass and nobin forces tiling.
func PlanBatch(b *tbdr.Batch) (*Plan, error) {
	cfg := b.Device().Config()
	p := &Plan{batch: b, fb: b.Framebuffer()}

	switch {
	case cfg.Debug&tbdr.DebugNoGmem != 0:
		p.Mode, p.Reason = ModeBypass, "nogmem"
	case cfg.Debug&tbdr.DebugNoBypass != 0:
		p.Mode, p.Reason = ModeGmem, "nobin"
	case cfg.BypassDraws > 0 && b.GmemReason() == 0 && b.NumDraws() <= cfg.BypassDraws:
		p.Mode, p.Reason = ModeBypass, "few draws"
	default:
		p.Mode, p.Reason = ModeGmem, b.GmemReason().String()
	}

	if p.Mode == ModeGmem {
		layout, err := tiles.ForFramebuffer(&p.fb, cfg)
		switch {
		case errors.Is(err, tiles.ErrDoesNotFit):
			p.Mode, p.Reason = ModeBypass, "does not fit"
		case err != nil:
			return nil, err
		default:
			p.Layout = layout
		}
	}
	if p.Mode == ModeBypass {
		p.Layout = tiles.Single(p.fb.Width, p.fb.Height)
	}

	p.Visible = tiles.NewVisibility(p.Layout)
	if p.Mode == ModeBypass {
		p.Visible.MarkAll()
	} else {
		p.Visible.MarkRect(b.Extent())
	}
	return p, nil
}

// LoadOp returns how buffer buf is initialized in bin.
//
// Fully cleared buffers are cleared. A partially cleared buffer is cleared
// in bins its clear rectangle covers; since a clear after a restoring draw
// is not recorded as a clear, no earlier draw is lost. Everything else is
// loaded.
func (p *Plan) LoadOp(buf tbdr.BufferMask, bin tbdr.Rect) gputypes.LoadOp {
	b := p.batch
	if b.Cleared().Has(buf) {
		return gputypes.LoadOpClear
	}
	if b.PartialCleared().Has(buf) && b.ClearedScissor(groupOf(buf)).Contains(bin) {
		return gputypes.LoadOpClear
	}
	return gputypes.LoadOpLoad
}

// StoreOp returns whether buffer buf is written back after a bin. Resolved
// buffers are stored and the tile memory of the others is discarded. Bypass
// rendering stores everything.
func (p *Plan) StoreOp(buf tbdr.BufferMask) gputypes.StoreOp {
	if p.Mode == ModeBypass || p.batch.Resolve().Has(buf) {
		return gputypes.StoreOpStore
	}
	return gputypes.StoreOpDiscard
}

func groupOf(buf tbdr.BufferMask) tbdr.ClearGroup {
	switch {
	case buf.Has(tbdr.BufferDepth):
		return tbdr.GroupDepth
	case buf.Has(tbdr.BufferStencil):
		return tbdr.GroupStencil
	}
	return tbdr.GroupColor
}

// Traffic returns the bytes a bin moves between tile and system memory:
// restored buffers are read, resolved buffers are written. Bypass
// rendering moves nothing.
func (p *Plan) Traffic(bin tbdr.Rect) (restore, resolve uint64) {
	if p.Mode == ModeBypass {
		return 0, 0
	}
	b := p.batch
	area := uint64(bin.Width()) * uint64(bin.Height()) * uint64(max(p.fb.Samples, 1))
	add := func(buf tbdr.BufferMask, bytes uint64) {
		if b.Restore().Has(buf) && p.LoadOp(buf, bin) == gputypes.LoadOpLoad {
			restore += area * bytes
		}
		if b.Resolve().Has(buf) {
			resolve += area * bytes
		}
	}
	for i, c := range p.fb.Colors {
		if c != nil {
			add(tbdr.BufferColorN(i), pixelBytes(c.Format()))
		}
	}
	if zs := p.fb.DepthStencil; zs != nil {
		for _, buf := range []tbdr.BufferMask{tbdr.BufferDepth, tbdr.BufferStencil} {
			add(buf, aspectBytes(zs.Format(), buf))
		}
	}
	return restore, resolve
}

func pixelBytes(f gputypes.TextureFormat) uint64 {
	d := format.Describe(f)
	if d == nil {
		return 0
	}
	return uint64((d.BlockBits/(d.BlockWidth*d.BlockHeight) + 7) / 8)
}

// aspectBytes splits combined depth/stencil formats between their aspects.
func aspectBytes(f gputypes.TextureFormat, buf tbdr.BufferMask) uint64 {
	switch {
	case buf.Has(tbdr.BufferDepth) && f.HasDepth() && f.HasStencil():
		return min(pixelBytes(f)-1, 4)
	case buf.Has(tbdr.BufferStencil) && f.HasDepth() && f.HasStencil():
		return 1
	case buf.Has(tbdr.BufferDepth) && f.HasDepth(), buf.Has(tbdr.BufferStencil) && f.HasStencil():
		return pixelBytes(f)
	}
	return 0
}
