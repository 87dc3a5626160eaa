package tiles

import (
	"math/bits"

	"github.com/gogpu/tbdr"
)

// Visibility is the set of bins of a layout that some draw or clear
// touches, one bit per bin in row-major order. Bins outside the set need
// neither a load nor a store.
type Visibility struct {
	words  []uint64
	layout *Layout
}

// NewVisibility returns an empty set over the bins of l.
func NewVisibility(l *Layout) *Visibility {
	return &Visibility{words: make([]uint64, (len(l.Bins)+63)/64), layout: l}
}

// Mark adds the bin at grid position (x, y). Positions outside the grid
// are ignored.
func (v *Visibility) Mark(x, y int) {
	l := v.layout
	if x < 0 || x >= l.NX || y < 0 || y >= l.NY {
		return
	}
	i := y*l.NX + x
	v.words[i/64] |= 1 << (i & 63)
}

// MarkRect adds every bin intersecting the pixel rectangle r.
func (v *Visibility) MarkRect(r tbdr.Rect) {
	l := v.layout
	r = r.Intersect(tbdr.Rect{MaxX: l.Width, MaxY: l.Height})
	if r.Empty() || l.BinW == 0 || l.BinH == 0 {
		return
	}
	x0, x1 := int(r.MinX/l.BinW), int((r.MaxX-1)/l.BinW)
	y0, y1 := int(r.MinY/l.BinH), int((r.MaxY-1)/l.BinH)
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			v.Mark(x, y)
		}
	}
}

// MarkAll adds every bin.
func (v *Visibility) MarkAll() {
	n := len(v.layout.Bins)
	for i := range v.words {
		v.words[i] = ^uint64(0)
	}
	if rem := n % 64; rem != 0 {
		v.words[len(v.words)-1] = 1<<rem - 1
	}
}

// Has reports whether bin i of the layout is in the set.
func (v *Visibility) Has(i int) bool {
	if i < 0 || i >= len(v.layout.Bins) {
		return false
	}
	return v.words[i/64]&(1<<(i&63)) != 0
}

// Count returns the number of bins in the set.
func (v *Visibility) Count() int {
	n := 0
	for _, w := range v.words {
		n += bits.OnesCount64(w)
	}
	return n
}
