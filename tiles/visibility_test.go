package tiles

import (
	"testing"

	"github.com/gogpu/tbdr"
)

func TestVisibility(t *testing.T) {
	// 4x2 bins of 32x16 over a 100x30 framebuffer; the last column and row
	// are clipped.
	l := grid(100, 30, 32, 16)
	tests := []struct {
		name  string
		rects []tbdr.Rect
		want  []int
	}{
		{"empty", nil, nil},
		{"one pixel", []tbdr.Rect{{MinX: 40, MinY: 20, MaxX: 41, MaxY: 21}}, []int{5}},
		{"bin edge", []tbdr.Rect{{MaxX: 32, MaxY: 16}}, []int{0}},
		{"across bins", []tbdr.Rect{{MinX: 31, MinY: 15, MaxX: 33, MaxY: 17}}, []int{0, 1, 4, 5}},
		{"clipped edge", []tbdr.Rect{{MinX: 96, MinY: 16, MaxX: 200, MaxY: 200}}, []int{7}},
		{"outside", []tbdr.Rect{{MinX: 100, MinY: 0, MaxX: 120, MaxY: 10}}, nil},
		{"empty rect", []tbdr.Rect{{MinX: 10, MinY: 10, MaxX: 10, MaxY: 20}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewVisibility(l)
			for _, r := range tt.rects {
				v.MarkRect(r)
			}
			want := make(map[int]bool)
			for _, i := range tt.want {
				want[i] = true
			}
			for i := range l.Bins {
				if v.Has(i) != want[i] {
					t.Errorf("Has(%d) = %v, want %v", i, v.Has(i), want[i])
				}
			}
			if v.Count() != len(tt.want) {
				t.Errorf("Count() = %d, want %d", v.Count(), len(tt.want))
			}
		})
	}
}

func TestVisibilityMarkAll(t *testing.T) {
	tests := []struct {
		name   string
		nx, ny uint32
	}{
		{"partial word", 5, 3},
		{"full word", 8, 8},
		{"two words", 10, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := grid(tt.nx*16, tt.ny*16, 16, 16)
			v := NewVisibility(l)
			v.MarkAll()
			if got, want := v.Count(), int(tt.nx*tt.ny); got != want {
				t.Errorf("Count() = %d, want %d", got, want)
			}
			if v.Has(l.Len()) || v.Has(-1) {
				t.Error("Has() true outside the layout")
			}
		})
	}
}
