package tbdr

import (
	"fmt"
	"strings"
)

// MaxColorTargets is the number of color render targets.
const MaxColorTargets = 8

// BufferMask is a set of framebuffer buffers.
type BufferMask uint16

// Framebuffer buffers.
const (
	BufferColor0 BufferMask = 1 << iota
	BufferColor1
	BufferColor2
	BufferColor3
	BufferColor4
	BufferColor5
	BufferColor6
	BufferColor7
	BufferDepth
	BufferStencil

	// BufferColor covers all color targets.
	BufferColor = BufferColor0 | BufferColor1 | BufferColor2 | BufferColor3 |
		BufferColor4 | BufferColor5 | BufferColor6 | BufferColor7
	// BufferDepthStencil covers the depth and stencil aspects.
	BufferDepthStencil = BufferDepth | BufferStencil
	// BufferAll covers every buffer.
	BufferAll = BufferColor | BufferDepthStencil
)

// BufferColorN returns the mask of color target i.
func BufferColorN(i int) BufferMask {
	return BufferColor0 << uint(i)
}

// Has reports whether every buffer of o is in m.
func (m BufferMask) Has(o BufferMask) bool { return m&o == o }

// Any reports whether m and o share a buffer.
func (m BufferMask) Any(o BufferMask) bool { return m&o != 0 }

// String returns the buffers as "COLOR0|DEPTH", or "NONE".
func (m BufferMask) String() string {
	if m == 0 {
		return "NONE"
	}
	var parts []string
	for i := 0; i < MaxColorTargets; i++ {
		if m.Has(BufferColorN(i)) {
			parts = append(parts, fmt.Sprintf("COLOR%d", i))
		}
	}
	if m.Has(BufferDepth) {
		parts = append(parts, "DEPTH")
	}
	if m.Has(BufferStencil) {
		parts = append(parts, "STENCIL")
	}
	return strings.Join(parts, "|")
}

// GmemReason is a set of reasons that force rendering through tile memory
// instead of directly to system memory.
type GmemReason uint8

// Tile memory reasons.
const (
	GmemMSAA GmemReason = 1 << iota
	GmemBlendEnabled
	GmemLogicOpEnabled
	GmemDepthEnabled
	GmemStencilEnabled
	GmemClearsDepthStencil
)

var gmemReasonNames = [...]string{"MSAA", "BLEND", "LOGICOP", "DEPTH", "STENCIL", "CLEARS_ZS"}

// String returns the reasons as "BLEND|DEPTH", or "NONE".
func (r GmemReason) String() string {
	if r == 0 {
		return "NONE"
	}
	var parts []string
	for i, n := range gmemReasonNames {
		if r&(1<<i) != 0 {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, "|")
}

// ClearGroup indexes the cleared-scissor rectangles of a batch.
type ClearGroup int

// Clear groups.
const (
	GroupColor ClearGroup = iota
	GroupDepth
	GroupStencil
	numClearGroups
)

// Rect is a half-open pixel rectangle [MinX, MaxX) x [MinY, MaxY).
type Rect struct {
	MinX, MinY uint32
	MaxX, MaxY uint32
}

// RectWH returns the rectangle at the origin of size w x h.
func RectWH(w, h uint32) Rect {
	return Rect{MaxX: w, MaxY: h}
}

// Width returns the horizontal extent.
func (r Rect) Width() uint32 {
	if r.MaxX <= r.MinX {
		return 0
	}
	return r.MaxX - r.MinX
}

// Height returns the vertical extent.
func (r Rect) Height() uint32 {
	if r.MaxY <= r.MinY {
		return 0
	}
	return r.MaxY - r.MinY
}

// Empty reports whether r covers no pixel.
func (r Rect) Empty() bool {
	return r.Width() == 0 || r.Height() == 0
}

// Intersect returns the largest rectangle inside both r and o.
func (r Rect) Intersect(o Rect) Rect {
	out := Rect{
		MinX: max(r.MinX, o.MinX),
		MinY: max(r.MinY, o.MinY),
		MaxX: min(r.MaxX, o.MaxX),
		MaxY: min(r.MaxY, o.MaxY),
	}
	if out.Empty() {
		return Rect{}
	}
	return out
}

// Union returns the smallest rectangle containing r and o. Empty rectangles
// are ignored.
func (r Rect) Union(o Rect) Rect {
	switch {
	case r.Empty():
		return o
	case o.Empty():
		return r
	}
	return Rect{
		MinX: min(r.MinX, o.MinX),
		MinY: min(r.MinY, o.MinY),
		MaxX: max(r.MaxX, o.MaxX),
		MaxY: max(r.MaxY, o.MaxY),
	}
}

// Contains reports whether o lies inside r.
func (r Rect) Contains(o Rect) bool {
	return o.MinX >= r.MinX && o.MinY >= r.MinY && o.MaxX <= r.MaxX && o.MaxY <= r.MaxY
}
