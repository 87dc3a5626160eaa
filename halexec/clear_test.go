package halexec

import (
	"strings"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/tbdr"
	"github.com/gogpu/tbdr/tiles"
)

func TestClearShaderWGSL(t *testing.T) {
	tests := []struct {
		name      string
		targets   int
		wantFrag  bool
		wantLocal string
	}{
		{"depth only", 0, false, ""},
		{"one target", 1, true, "@location(0) c0"},
		{"three targets", 3, true, "@location(2) c2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := clearShaderWGSL(tt.targets)
			if got := strings.Contains(src, "fn fs_main"); got != tt.wantFrag {
				t.Errorf("fragment stage = %v, want %v", got, tt.wantFrag)
			}
			if tt.wantLocal != "" && !strings.Contains(src, tt.wantLocal) {
				t.Errorf("source lacks %q:\n%s", tt.wantLocal, src)
			}
			words, err := compileWGSL(src)
			if err != nil {
				t.Fatalf("compileWGSL() error = %v", err)
			}
			if len(words) == 0 || words[0] != 0x07230203 {
				t.Errorf("compileWGSL() = %d words, want a SPIR-V module", len(words))
			}
		})
	}
}

func TestExecuteClearDraws(t *testing.T) {
	r := newRig(t)
	red := gputypes.Color{R: 1, A: 1}
	inner := tbdr.Rect{MinX: 8, MinY: 8, MaxX: 24, MaxY: 24}
	r.ctx.SetScissor(inner)
	if err := r.ctx.Clear(tbdr.BufferColor, red, 0, 0); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	r.ctx.DisableScissor()
	r.blend()
	r.triangles(t, 1)
	r.flush(t)

	if len(r.hal.passes) != 2 {
		t.Fatalf("passes = %d, want 2", len(r.hal.passes))
	}
	bin0 := r.hal.passes[0]
	if got := bin0.desc.ColorAttachments[0].LoadOp; got != gputypes.LoadOpLoad {
		t.Errorf("bin 0 color LoadOp = %v, want Load under a partial clear", got)
	}
	if len(bin0.blends) != 1 || bin0.blends[0] != red {
		t.Errorf("bin 0 blend constants = %v, want [%v]", bin0.blends, red)
	}
	if len(bin0.scissors) < 2 || bin0.scissors[0] != inner {
		t.Errorf("bin 0 scissors = %v, want the clear rectangle first", bin0.scissors)
	}
	if len(bin0.draws) != 2 || bin0.draws[0] != "draw 3 1 0 0" {
		t.Errorf("bin 0 draws = %v, want the clear then the triangle", bin0.draws)
	}
	if bin1 := r.hal.passes[1]; len(bin1.blends) != 0 || len(bin1.draws) != 1 {
		t.Errorf("bin 1 = %d clears, %d draws, want 0 and 1", len(bin1.blends), len(bin1.draws))
	}
	if st := r.exec.Stats(); st.ClearDraws != 1 || st.Draws != 2 {
		t.Errorf("Stats() = %+v, want 1 clear draw and 2 draws", st)
	}
}

func TestExecuteClearRedundant(t *testing.T) {
	r := newRig(t)
	r.ctx.SetScissor(tbdr.Rect{MaxX: 32, MaxY: 64})
	if err := r.ctx.Clear(tbdr.BufferColor, gputypes.Color{G: 0.1, A: 1}, 0, 0); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	r.ctx.DisableScissor()
	r.blend()
	r.triangles(t, 1)
	r.flush(t)

	if st := r.exec.Stats(); st.ClearDraws != 0 {
		t.Errorf("ClearDraws = %d, want 0 when the load operation clears the bin", st.ClearDraws)
	}
}

func TestExecuteClearSequence(t *testing.T) {
	red := gputypes.Color{R: 1, A: 1}
	blue := gputypes.Color{B: 1, A: 1}
	left := tbdr.Rect{MaxX: 16, MaxY: 64}
	tests := []struct {
		name       string
		clears     []tbdr.Rect
		colors     []gputypes.Color
		wantBlends []gputypes.Color
	}{
		{"overwritten", []tbdr.Rect{{}, {}}, []gputypes.Color{red, blue}, nil},
		{"partial then full", []tbdr.Rect{left, {}}, []gputypes.Color{red, blue}, nil},
		{"full then partial", []tbdr.Rect{{}, left}, []gputypes.Color{red, blue}, []gputypes.Color{red, blue}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t)
			for i, sc := range tt.clears {
				if sc.Empty() {
					r.ctx.DisableScissor()
				} else {
					r.ctx.SetScissor(sc)
				}
				if err := r.ctx.Clear(tbdr.BufferColor, tt.colors[i], 0, 0); err != nil {
					t.Fatalf("Clear() error = %v", err)
				}
			}
			r.ctx.DisableScissor()
			r.blend()
			r.triangles(t, 1)
			r.flush(t)

			bin0 := r.hal.passes[0]
			if got := bin0.desc.ColorAttachments[0].ClearValue; got != blue {
				t.Errorf("bin 0 clear value = %v, want the last clear %v", got, blue)
			}
			if len(bin0.blends) != len(tt.wantBlends) {
				t.Fatalf("bin 0 blend constants = %v, want %v", bin0.blends, tt.wantBlends)
			}
			for i, want := range tt.wantBlends {
				if bin0.blends[i] != want {
					t.Errorf("bin 0 clear %d = %v, want %v", i, bin0.blends[i], want)
				}
			}
		})
	}
}

func TestExecuteClearAfterDraw(t *testing.T) {
	r := newRig(t)
	binds := 0
	r.exec.hook = func(hal.RenderPassEncoder, *tbdr.Batch, tiles.Bin) { binds++ }
	r.blend()
	r.triangles(t, 1)
	r.ctx.SetScissor(tbdr.Rect{MaxX: 64, MaxY: 16})
	if err := r.ctx.Clear(tbdr.BufferDepthStencil, gputypes.Color{}, 0.25, 3); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	r.ctx.DisableScissor()
	r.flush(t)

	for i, p := range r.hal.passes {
		if len(p.draws) != 2 {
			t.Errorf("pass %d draws = %v, want the triangle then the clear", i, p.draws)
		}
		want := [][2]float32{{0.25, 0.25}, {0, 1}}
		if len(p.depths) != 2 || p.depths[0] != want[0] || p.depths[1] != want[1] {
			t.Errorf("pass %d viewport depths = %v, want %v", i, p.depths, want)
		}
		if len(p.stencils) != 1 || p.stencils[0] != 3 {
			t.Errorf("pass %d stencil references = %v, want [3]", i, p.stencils)
		}
	}
	if binds != 4 {
		t.Errorf("hook calls = %d, want 2 per pass", binds)
	}
	if st := r.exec.Stats(); st.ClearDraws != 2 {
		t.Errorf("ClearDraws = %d, want one per bin", st.ClearDraws)
	}
}

func TestClearPipelinesReleased(t *testing.T) {
	r := newRig(t)
	for _, sc := range []tbdr.Rect{{MaxX: 8, MaxY: 8}, {MinX: 8, MaxX: 16, MaxY: 8}} {
		r.ctx.SetScissor(sc)
		if err := r.ctx.Clear(tbdr.BufferColor|tbdr.BufferDepth, gputypes.Color{B: 1}, 1, 0); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
	}
	r.flush(t)

	// One pipeline for the color target and one for depth, shared by both
	// clears.
	if r.hal.pipelines != 2 {
		t.Errorf("pipelines = %d, want 2", r.hal.pipelines)
	}
	if err := r.exec.Close(); err != nil {
		t.Fatal(err)
	}
	if r.hal.released != r.hal.pipelines {
		t.Errorf("released %d of %d pipelines", r.hal.released, r.hal.pipelines)
	}
}
