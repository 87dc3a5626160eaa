package pm4

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/tbdr"
	"github.com/gogpu/tbdr/backend"
	"github.com/gogpu/tbdr/cmdstream"
	_ "github.com/gogpu/tbdr/primconv"
)

type rig struct {
	dev   *tbdr.Device
	ctx   *tbdr.Context
	color *tbdr.Resource
	zs    *tbdr.Resource
}

func newRig(t *testing.T) *rig {
	t.Helper()
	t.Setenv(tbdr.DebugEnv, "")
	dev, err := tbdr.NewDevice(tbdr.WithStreamCapacity(1024), tbdr.WithFlushThreshold(128))
	if err != nil {
		t.Fatal(err)
	}
	ctx, err := dev.NewContext(tbdr.WithBackend(New()))
	if err != nil {
		t.Fatal(err)
	}
	r := &rig{dev: dev, ctx: ctx}
	r.color = r.texture(t, gputypes.TextureFormatBGRA8Unorm, tbdr.UsageColorTarget)
	r.zs = r.texture(t, gputypes.TextureFormatDepth24PlusStencil8, tbdr.UsageDepthStencil)
	err = ctx.SetFramebuffer(tbdr.Framebuffer{
		Width:        64,
		Height:       64,
		Colors:       []*tbdr.Resource{r.color},
		DepthStencil: r.zs,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = ctx.Close() })
	return r
}

func (r *rig) texture(t *testing.T, f gputypes.TextureFormat, usage tbdr.Usage) *tbdr.Resource {
	t.Helper()
	res, err := r.dev.NewResource(tbdr.ResourceDescriptor{
		Kind: tbdr.KindTexture, Format: f, Width: 64, Height: 64, Usage: usage,
	})
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func (r *rig) buffer(t *testing.T, usage tbdr.Usage) *tbdr.Resource {
	t.Helper()
	res, err := r.dev.NewResource(tbdr.ResourceDescriptor{Kind: tbdr.KindBuffer, Size: 256, Usage: usage})
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func (r *rig) batch(t *testing.T) *tbdr.Batch {
	t.Helper()
	b, err := r.ctx.Batch()
	if err != nil {
		t.Fatal(err)
	}
	return b
}

// packets collects the packets of s.
func packets(t *testing.T, s *cmdstream.Stream) []cmdstream.Packet {
	t.Helper()
	var out []cmdstream.Packet
	for p, err := range s.Packets() {
		if err != nil {
			t.Fatalf("Packets() error = %v", err)
		}
		out = append(out, p)
	}
	return out
}

func ops(ps []cmdstream.Packet) []string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = OpName(p.Op)
	}
	return names
}

func TestDrawPackets(t *testing.T) {
	r := newRig(t)
	for range 2 {
		if err := r.ctx.Draw(&tbdr.DrawInfo{Mode: tbdr.TopologyTriangles, Start: 3, Count: 6, InstanceCount: 2}); err != nil {
			t.Fatalf("Draw() error = %v", err)
		}
	}
	b := r.batch(t)

	draw := packets(t, b.DrawStream())
	if got, want := strings.Join(ops(draw), " "), "SCISSOR DRAW_AUTO DRAW_AUTO"; got != want {
		t.Errorf("draw stream = %s, want %s", got, want)
	}
	if sc := UnpackRect(draw[0].Payload[0], draw[0].Payload[1]); sc != tbdr.RectWH(64, 64) {
		t.Errorf("scissor = %+v, want the framebuffer", sc)
	}
	want := []uint32{primTriangles, 6, 2, 3, 0}
	for i, w := range want {
		if draw[1].Payload[i] != w {
			t.Errorf("DRAW_AUTO payload = %v, want %v", draw[1].Payload, want)
			break
		}
	}

	bin := packets(t, b.BinningStream())
	if got := strings.Join(ops(bin), " "); got != "BIN_DRAW BIN_DRAW" {
		t.Errorf("binning stream = %s, want two BIN_DRAW", got)
	}
	if !b.NeedsFlush() {
		t.Error("pm4 draws must queue work")
	}
}

func TestDrawScissorChange(t *testing.T) {
	r := newRig(t)
	_ = r.ctx.Draw(&tbdr.DrawInfo{Mode: tbdr.TopologyPoints, Count: 1})
	r.ctx.SetScissor(tbdr.Rect{MinX: 4, MinY: 8, MaxX: 16, MaxY: 32})
	_ = r.ctx.Draw(&tbdr.DrawInfo{Mode: tbdr.TopologyPoints, Count: 1})

	draw := packets(t, r.batch(t).DrawStream())
	if got := strings.Join(ops(draw), " "); got != "SCISSOR DRAW_AUTO SCISSOR DRAW_AUTO" {
		t.Fatalf("draw stream = %s", got)
	}
	if sc := UnpackRect(draw[2].Payload[0], draw[2].Payload[1]); sc != (tbdr.Rect{MinX: 4, MinY: 8, MaxX: 16, MaxY: 32}) {
		t.Errorf("scissor = %+v", sc)
	}
}

func TestDrawVertexFetch(t *testing.T) {
	r := newRig(t)
	vs, err := r.dev.NewVertexState([]gputypes.VertexAttribute{
		{Format: gputypes.VertexFormatFloat32x3, ShaderLocation: 0},
		{Format: gputypes.VertexFormatUnorm8x4, Offset: 12, ShaderLocation: 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	r.ctx.State().Vertex = vs
	_ = r.ctx.Draw(&tbdr.DrawInfo{Mode: tbdr.TopologyTriangles, Count: 3})
	_ = r.ctx.Draw(&tbdr.DrawInfo{Mode: tbdr.TopologyTriangles, Count: 3})

	draw := packets(t, r.batch(t).DrawStream())
	if got := strings.Join(ops(draw), " "); got != "SCISSOR VERTEX_FETCH DRAW_AUTO DRAW_AUTO" {
		t.Fatalf("draw stream = %s", got)
	}
	fetch := draw[1].Payload
	if len(fetch) != 4 {
		t.Fatalf("VERTEX_FETCH payload = %v, want 2 elements", fetch)
	}
	e := vs.Elements[1]
	if fetch[2] != 1|uint32(e.Encoding.Data)<<8|uint32(e.Encoding.Num)<<16 || fetch[3] != 12 {
		t.Errorf("element 1 = %08X, want location 1 at offset 12", fetch[2:])
	}

	// A new batch reprograms the layout.
	if err := r.ctx.Flush(); err != nil {
		t.Fatal(err)
	}
	_ = r.ctx.Draw(&tbdr.DrawInfo{Mode: tbdr.TopologyTriangles, Count: 3})
	if got := strings.Join(ops(packets(t, r.batch(t).DrawStream())), " "); got != "SCISSOR VERTEX_FETCH DRAW_AUTO" {
		t.Errorf("draw stream after flush = %s", got)
	}
}

func TestDrawIndexed(t *testing.T) {
	r := newRig(t)
	ib := r.buffer(t, tbdr.UsageIndex)
	err := r.ctx.Draw(&tbdr.DrawInfo{
		Mode:             tbdr.TopologyTriangleStrip,
		Start:            4,
		Count:            9,
		Index:            ib,
		IndexFormat:      gputypes.IndexFormatUint32,
		IndexOffset:      16,
		IndexBias:        -2,
		PrimitiveRestart: true,
		RestartIndex:     0xFFFFFFFF,
	})
	if err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	draw := packets(t, r.batch(t).DrawStream())
	p := draw[len(draw)-1]
	if p.Op != OpDrawIndex {
		t.Fatalf("last packet = %s, want DRAW_INDEX", OpName(p.Op))
	}
	want := []uint32{primTriStrip, 9, 1, 4, 0, 1, math.MaxUint32 - 1, uint32(ib.Index()), 16, 1<<31 | 0x7FFFFFFF}
	for i, w := range want {
		if p.Payload[i] != w {
			t.Errorf("DRAW_INDEX payload = %v, want %v", p.Payload, want)
			break
		}
	}
}

func TestDrawIndirect(t *testing.T) {
	r := newRig(t)
	args := r.buffer(t, tbdr.UsageIndirect)
	if err := r.ctx.Draw(&tbdr.DrawInfo{Mode: tbdr.TopologyLines, Indirect: args, IndirectOffset: 32}); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	b := r.batch(t)
	draw := packets(t, b.DrawStream())
	if p := draw[len(draw)-1]; p.Op != OpDrawIndirect || p.Payload[2] != uint32(args.Index()) || p.Payload[3] != 32 {
		t.Errorf("last packet = %v, want DRAW_INDIRECT of the args buffer", p)
	}
	if n := len(packets(t, b.BinningStream())); n != 0 {
		t.Errorf("binning stream has %d packets, indirect draws are not binned", n)
	}
}

func TestDrawIndexedIndirect(t *testing.T) {
	r := newRig(t)
	args := r.buffer(t, tbdr.UsageIndirect)
	ib := r.buffer(t, tbdr.UsageIndex)
	err := r.ctx.Draw(&tbdr.DrawInfo{
		Mode:           tbdr.TopologyTriangles,
		Indirect:       args,
		IndirectOffset: 8,
		Index:          ib,
		IndexFormat:    gputypes.IndexFormatUint32,
		IndexOffset:    4,
	})
	if err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	draw := packets(t, r.batch(t).DrawStream())
	p := draw[len(draw)-1]
	want := []uint32{primTriangles, 1, uint32(args.Index()), 8, 1, uint32(ib.Index()), 4}
	if p.Op != OpDrawIndirect || len(p.Payload) != len(want) {
		t.Fatalf("last packet = %v, want DRAW_INDIRECT %v", p, want)
	}
	for i, w := range want {
		if p.Payload[i] != w {
			t.Errorf("DRAW_INDIRECT payload = %v, want %v", p.Payload, want)
			break
		}
	}
}

func TestDrawBadIndexFormat(t *testing.T) {
	r := newRig(t)
	err := r.ctx.Draw(&tbdr.DrawInfo{Mode: tbdr.TopologyTriangles, Count: 3, Index: r.buffer(t, tbdr.UsageIndex)})
	if !errors.Is(err, tbdr.ErrInvalidDescriptor) {
		t.Errorf("Draw() error = %v, want ErrInvalidDescriptor", err)
	}
}

func TestDrawQuadsConverted(t *testing.T) {
	r := newRig(t)
	if err := r.ctx.Draw(&tbdr.DrawInfo{Mode: tbdr.TopologyQuads, Count: 8}); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	draw := packets(t, r.batch(t).DrawStream())
	p := draw[len(draw)-1]
	if p.Op != OpDrawIndex || p.Payload[0] != primTriangles || p.Payload[1] != 12 {
		t.Errorf("last packet = %s %v, want 12 indexed triangles", OpName(p.Op), p.Payload)
	}
	if r.ctx.Stats().Converted != 1 {
		t.Errorf("Stats().Converted = %d, want 1", r.ctx.Stats().Converted)
	}
}

func TestClearPackets(t *testing.T) {
	r := newRig(t)
	r.ctx.SetScissor(tbdr.Rect{MinX: 0, MinY: 0, MaxX: 32, MaxY: 16})
	if err := r.ctx.Clear(tbdr.BufferAll, gputypes.Color{R: 0.5, G: 0.25, B: 0, A: 1}, 1, 0x80); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	gmem := packets(t, r.batch(t).GmemStream())
	if got := strings.Join(ops(gmem), " "); got != "CLEAR_COLOR CLEAR_DEPTH_STENCIL" {
		t.Fatalf("gmem stream = %s", got)
	}

	cc := gmem[0].Payload
	enc := r.color.Encoding()
	if cc[0] != 0 || cc[1] != uint32(enc.Color) || cc[2] != uint32(enc.Swap) {
		t.Errorf("CLEAR_COLOR target = %v, want mrt 0 with the BGRA8 encoding", cc[:3])
	}
	if sc := UnpackRect(cc[3], cc[4]); sc != (tbdr.Rect{MaxX: 32, MaxY: 16}) {
		t.Errorf("CLEAR_COLOR scissor = %+v", sc)
	}
	if math.Float32frombits(cc[5]) != 0.5 || math.Float32frombits(cc[8]) != 1 {
		t.Errorf("CLEAR_COLOR rgba = %v", cc[5:])
	}

	zs := gmem[1].Payload
	if zs[0] != uint32(r.zs.Encoding().Depth) || tbdr.BufferMask(zs[1]) != tbdr.BufferDepthStencil {
		t.Errorf("CLEAR_DEPTH_STENCIL target = %v", zs[:2])
	}
	if math.Float32frombits(zs[4]) != 1 || zs[5] != 0x80 {
		t.Errorf("CLEAR_DEPTH_STENCIL values = %v", zs[4:])
	}
}

func TestClearAfterDraw(t *testing.T) {
	r := newRig(t)
	if err := r.ctx.Draw(&tbdr.DrawInfo{Mode: tbdr.TopologyTriangles, Count: 3}); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if err := r.ctx.Clear(tbdr.BufferColor, gputypes.Color{A: 1}, 0, 0); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	b := r.batch(t)
	if n := len(packets(t, b.GmemStream())); n != 0 {
		t.Errorf("gmem stream has %d packets, want 0", n)
	}
	draw := ops(packets(t, b.DrawStream()))
	if got := draw[len(draw)-2:]; got[0] != "DRAW_AUTO" || got[1] != "CLEAR_COLOR" {
		t.Errorf("draw stream ends with %v, want DRAW_AUTO CLEAR_COLOR", got)
	}
}

func TestDisassemble(t *testing.T) {
	r := newRig(t)
	_ = r.ctx.Clear(tbdr.BufferColor, gputypes.Color{A: 1}, 0, 0)
	_ = r.ctx.Draw(&tbdr.DrawInfo{Mode: tbdr.TopologyTriangles, Count: 3})
	b := r.batch(t)
	if err := b.GmemStream().Call(b.DrawStream()); err != nil {
		t.Fatal(err)
	}

	lines, err := Disassemble(b.GmemStream())
	if err != nil {
		t.Fatalf("Disassemble() error = %v", err)
	}
	want := []string{
		"CLEAR_COLOR mrt=0",
		"CALL",
		"  SCISSOR (0,0)-(64,64)",
		"  DRAW_AUTO prim=4 count=3 instances=1",
	}
	if len(lines) != len(want) {
		t.Fatalf("Disassemble() = %q", lines)
	}
	for i, w := range want {
		if !strings.HasPrefix(lines[i], w) {
			t.Errorf("line %d = %q, want prefix %q", i, lines[i], w)
		}
	}
}

// tinyAllocator hands out streams too small for any draw.
type tinyAllocator struct{}

func (tinyAllocator) NewStream(label string, _ int) (*cmdstream.Stream, error) {
	return cmdstream.New(label, 4)
}

func (tinyAllocator) DeleteStream(*cmdstream.Stream) {}

func TestOverflowReported(t *testing.T) {
	t.Setenv(tbdr.DebugEnv, "")
	dev, err := tbdr.NewDevice(tbdr.WithStreamAllocator(tinyAllocator{}))
	if err != nil {
		t.Fatal(err)
	}
	ctx, err := dev.NewContext(tbdr.WithBackend(New()))
	if err != nil {
		t.Fatal(err)
	}
	defer ctx.Close()
	rt, err := dev.NewResource(tbdr.ResourceDescriptor{
		Kind: tbdr.KindTexture, Format: gputypes.TextureFormatRGBA8Unorm, Width: 8, Height: 8, Usage: tbdr.UsageColorTarget,
	})
	if err != nil {
		t.Fatal(err)
	}
	_ = ctx.SetFramebuffer(tbdr.Framebuffer{Width: 8, Height: 8, Colors: []*tbdr.Resource{rt}})
	if err := ctx.Draw(&tbdr.DrawInfo{Mode: tbdr.TopologyTriangles, Count: 3}); !errors.Is(err, cmdstream.ErrOverflow) {
		t.Errorf("Draw() error = %v, want ErrOverflow", err)
	}
}

func TestClearsFlushBeforeOverflow(t *testing.T) {
	tests := []struct {
		name  string
		draws int
	}{
		{"clears only", 0},
		{"clears after a draw", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t)
			first := r.batch(t)
			first.Retain()
			defer first.Release()
			for i := 0; i < tt.draws; i++ {
				if err := r.ctx.Draw(&tbdr.DrawInfo{Mode: tbdr.TopologyTriangles, Count: 3}); err != nil {
					t.Fatalf("Draw() error = %v", err)
				}
			}
			for i := 0; i < 500; i++ {
				if err := r.ctx.Clear(tbdr.BufferColor, gputypes.Color{A: 1}, 0, 0); err != nil {
					t.Fatalf("clear %d: Clear() error = %v", i, err)
				}
			}
			if !first.Flushed() {
				t.Error("first batch was never flushed")
			}
			if err := r.ctx.Draw(&tbdr.DrawInfo{Mode: tbdr.TopologyTriangles, Count: 3}); err != nil {
				t.Errorf("Draw() after the clears error = %v", err)
			}
		})
	}
}

func TestLargestRecordsFitThreshold(t *testing.T) {
	r := newRig(t)
	colors := make([]*tbdr.Resource, tbdr.MaxColorTargets)
	for i := range colors {
		colors[i] = r.texture(t, gputypes.TextureFormatRGBA8Unorm, tbdr.UsageColorTarget)
	}
	err := r.ctx.SetFramebuffer(tbdr.Framebuffer{Width: 64, Height: 64, Colors: colors, DepthStencil: r.zs})
	if err != nil {
		t.Fatal(err)
	}

	attrs := make([]gputypes.VertexAttribute, tbdr.MaxVertexElements)
	for i := range attrs {
		attrs[i] = gputypes.VertexAttribute{Format: gputypes.VertexFormatFloat32x4, Offset: uint64(16 * i), ShaderLocation: uint32(i)}
	}
	vs, err := r.dev.NewVertexState(attrs)
	if err != nil {
		t.Fatal(err)
	}
	r.ctx.State().Vertex = vs

	b := r.batch(t)
	if err := r.ctx.Clear(tbdr.BufferAll, gputypes.Color{}, 1, 0); err != nil {
		t.Fatal(err)
	}
	if n := b.GmemStream().Len(); n > tbdr.MinFlushThreshold {
		t.Errorf("clear of every buffer wrote %d words, more than MinFlushThreshold %d", n, tbdr.MinFlushThreshold)
	}

	err = r.ctx.Draw(&tbdr.DrawInfo{
		Mode:             tbdr.TopologyTriangles,
		Count:            3,
		Index:            r.buffer(t, tbdr.UsageIndex),
		IndexFormat:      gputypes.IndexFormatUint32,
		PrimitiveRestart: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if n := b.DrawStream().Len(); n > tbdr.MinFlushThreshold {
		t.Errorf("indexed draw with a full vertex fetch wrote %d words, more than MinFlushThreshold %d", n, tbdr.MinFlushThreshold)
	}
}

func TestRegistered(t *testing.T) {
	if !backend.IsRegistered(backend.BackendPM4) {
		t.Fatal("pm4 is not registered")
	}
	if got := backend.DefaultName(); got != backend.BackendPM4 {
		t.Errorf("DefaultName() = %q, want pm4", got)
	}
	if b := backend.Get(backend.BackendPM4); b == nil || b.Topologies() != Topologies {
		t.Errorf("Get(pm4) = %v", b)
	}
}

func TestOpName(t *testing.T) {
	if got := OpName(cmdstream.Opcode(0x7E)); got != "OP_7E" {
		t.Errorf("OpName(0x7E) = %q", got)
	}
}
