package halexec

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/tbdr"
	"github.com/gogpu/tbdr/backend/pm4"
	"github.com/gogpu/tbdr/cmdstream"
)

// Clears that a load operation cannot express, because their rectangle
// covers part of a bin or they follow draws, are drawn as a full-screen
// triangle scissored to the clear rectangle. The fragment shader writes 1
// and the blend factor selects the blend constant, so one pipeline serves
// every clear color. Depth comes from a viewport whose depth range is the
// clear value and stencil from the stencil reference.

const clearVertexWGSL = `@vertex
fn vs_main(@builtin(vertex_index) index: u32) -> @builtin(position) vec4<f32> {
    let x = f32((index << 1u) & 2u) * 2.0 - 1.0;
    let y = f32(index & 2u) * 2.0 - 1.0;
    return vec4<f32>(x, y, 0.0, 1.0);
}
`

// clearShaderWGSL returns the clear shader for n color targets.
func clearShaderWGSL(n int) string {
	if n == 0 {
		return clearVertexWGSL
	}
	var b strings.Builder
	b.WriteString("struct Targets {\n")
	for i := range n {
		fmt.Fprintf(&b, "    @location(%d) c%d: vec4<f32>,\n", i, i)
	}
	b.WriteString("}\n\n")
	b.WriteString(clearVertexWGSL)
	b.WriteString("\n@fragment\nfn fs_main() -> Targets {\n    return Targets(")
	for i := range n {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("vec4<f32>(1.0, 1.0, 1.0, 1.0)")
	}
	b.WriteString(");\n}\n")
	return b.String()
}

// compileWGSL compiles WGSL source to SPIR-V words.
func compileWGSL(src string) ([]uint32, error) {
	spirv, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("halexec: compile clear shader: %w", err)
	}
	words := make([]uint32, len(spirv)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirv[i*4:])
	}
	return words, nil
}

// clearTarget identifies the attachment a clear pipeline writes.
type clearTarget struct {
	colors  string // color formats of the pass
	zs      gputypes.TextureFormat
	samples uint32
	mrt     int // compacted color target, -1 for depth/stencil
	buffers tbdr.BufferMask
}

// clearer owns the shader modules and pipelines of clear draws. It is
// used under the executor lock.
type clearer struct {
	device    hal.Device
	layout    hal.PipelineLayout
	modules   map[int]hal.ShaderModule
	pipelines map[clearTarget]hal.RenderPipeline
}

func (c *clearer) module(n int) (hal.ShaderModule, error) {
	if m, ok := c.modules[n]; ok {
		return m, nil
	}
	words, err := compileWGSL(clearShaderWGSL(n))
	if err != nil {
		return nil, err
	}
	m, err := c.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  fmt.Sprintf("tbdr.clear%d", n),
		Source: hal.ShaderSource{SPIRV: words},
	})
	if err != nil {
		return nil, fmt.Errorf("halexec: create clear shader: %w", err)
	}
	if c.modules == nil {
		c.modules = make(map[int]hal.ShaderModule)
	}
	c.modules[n] = m
	return m, nil
}

func (c *clearer) pipeline(fb *tbdr.Framebuffer, mrt int, buffers tbdr.BufferMask) (hal.RenderPipeline, error) {
	var formats []gputypes.TextureFormat
	for _, cb := range fb.Colors {
		if cb != nil {
			formats = append(formats, cb.Format())
		}
	}
	key := clearTarget{colors: fmt.Sprint(formats), samples: max(fb.Samples, 1), mrt: mrt, buffers: buffers}
	if fb.DepthStencil != nil {
		key.zs = fb.DepthStencil.Format()
	}
	if p, ok := c.pipelines[key]; ok {
		return p, nil
	}

	module, err := c.module(len(formats))
	if err != nil {
		return nil, err
	}
	if c.layout == nil {
		c.layout, err = c.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{Label: "tbdr.clear"})
		if err != nil {
			return nil, fmt.Errorf("halexec: create clear layout: %w", err)
		}
	}

	desc := &hal.RenderPipelineDescriptor{
		Label:       fmt.Sprintf("tbdr.clear(%d,%v)", mrt, buffers),
		Layout:      c.layout,
		Vertex:      hal.VertexState{Module: module, EntryPoint: "vs_main"},
		Primitive:   gputypes.PrimitiveState{Topology: gputypes.PrimitiveTopologyTriangleList},
		Multisample: gputypes.MultisampleState{Count: key.samples, Mask: 0xFFFFFFFF},
	}
	if len(formats) > 0 {
		constant := gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorConstant,
			DstFactor: gputypes.BlendFactorZero,
			Operation: gputypes.BlendOperationAdd,
		}
		targets := make([]gputypes.ColorTargetState, len(formats))
		for i, f := range formats {
			targets[i] = gputypes.ColorTargetState{Format: f, WriteMask: gputypes.ColorWriteMaskNone}
			if i == mrt {
				targets[i].Blend = &gputypes.BlendState{Color: constant, Alpha: constant}
				targets[i].WriteMask = gputypes.ColorWriteMaskAll
			}
		}
		desc.Fragment = &hal.FragmentState{Module: module, EntryPoint: "fs_main", Targets: targets}
	}
	if fb.DepthStencil != nil {
		replace := hal.StencilFaceState{
			Compare:     gputypes.CompareFunctionAlways,
			FailOp:      hal.StencilOperationKeep,
			DepthFailOp: hal.StencilOperationKeep,
			PassOp:      hal.StencilOperationReplace,
		}
		ds := &hal.DepthStencilState{
			Format:            key.zs,
			DepthWriteEnabled: buffers.Has(tbdr.BufferDepth),
			DepthCompare:      gputypes.CompareFunctionAlways,
			StencilFront:      replace,
			StencilBack:       replace,
			StencilReadMask:   0xFF,
		}
		if buffers.Has(tbdr.BufferStencil) {
			ds.StencilWriteMask = 0xFF
		}
		desc.DepthStencil = ds
	}

	p, err := c.device.CreateRenderPipeline(desc)
	if err != nil {
		return nil, fmt.Errorf("halexec: create clear pipeline: %w", err)
	}
	if c.pipelines == nil {
		c.pipelines = make(map[clearTarget]hal.RenderPipeline)
	}
	c.pipelines[key] = p
	return p, nil
}

func (c *clearer) destroy() {
	for _, p := range c.pipelines {
		c.device.DestroyRenderPipeline(p)
	}
	for _, m := range c.modules {
		c.device.DestroyShaderModule(m)
	}
	if c.layout != nil {
		c.device.DestroyPipelineLayout(c.layout)
	}
	c.pipelines, c.modules, c.layout = nil, nil, nil
}

// clearPacket is a decoded clear packet of the pm4 streams.
type clearPacket struct {
	mrt     int // framebuffer color slot, -1 for depth/stencil
	buffers tbdr.BufferMask
	rect    tbdr.Rect
	color   gputypes.Color
	depth   float32
	stencil uint32
}

func decodeClear(p cmdstream.Packet) (clearPacket, bool) {
	w := p.Payload
	switch {
	case p.Op == pm4.OpClearColor && len(w) == 9:
		return clearPacket{
			mrt:     int(w[0]),
			buffers: tbdr.BufferColorN(int(w[0])),
			rect:    pm4.UnpackRect(w[3], w[4]),
			color: gputypes.Color{
				R: float64(math.Float32frombits(w[5])),
				G: float64(math.Float32frombits(w[6])),
				B: float64(math.Float32frombits(w[7])),
				A: float64(math.Float32frombits(w[8])),
			},
		}, true
	case p.Op == pm4.OpClearDepthStencil && len(w) == 6:
		return clearPacket{
			mrt:     -1,
			buffers: tbdr.BufferMask(w[1]) & tbdr.BufferDepthStencil,
			rect:    pm4.UnpackRect(w[2], w[3]),
			depth:   math.Float32frombits(w[4]),
			stencil: w[5],
		}, true
	}
	return clearPacket{}, false
}

// redundant reports whether the load operations of bin already produce
// the result of clear c.
func (r *recorder) redundant(c clearPacket, bin tbdr.Rect) bool {
	if !c.rect.Contains(bin) {
		return false
	}
	b := r.b
	for _, buf := range []tbdr.BufferMask{tbdr.BufferDepth, tbdr.BufferStencil} {
		if c.mrt < 0 && c.buffers.Has(buf) && r.plan.LoadOp(buf, bin) != gputypes.LoadOpClear {
			return false
		}
	}
	switch {
	case c.mrt >= 0:
		return r.plan.LoadOp(c.buffers, bin) == gputypes.LoadOpClear && packedColor(b.ClearColor(c.mrt)) == c.color
	case c.buffers.Has(tbdr.BufferDepth) && b.ClearDepth() != c.depth:
		return false
	case c.buffers.Has(tbdr.BufferStencil) && b.ClearStencil() != c.stencil:
		return false
	}
	return true
}

// packedColor rounds c to the precision of a clear packet.
func packedColor(c gputypes.Color) gputypes.Color {
	return gputypes.Color{
		R: float64(float32(c.R)),
		G: float64(float32(c.G)),
		B: float64(float32(c.B)),
		A: float64(float32(c.A)),
	}
}

// drawClear records clear c clipped to bin. It reports whether anything
// was drawn.
func (r *recorder) drawClear(pass hal.RenderPassEncoder, c clearPacket, bin tbdr.Rect) (bool, error) {
	rect := c.rect.Intersect(bin)
	if rect.Empty() {
		return false, nil
	}
	fb := r.b.Framebuffer()
	mrt := -1
	if c.mrt >= 0 {
		if c.mrt >= len(fb.Colors) || fb.Colors[c.mrt] == nil {
			return false, nil
		}
		mrt = 0
		for _, cb := range fb.Colors[:c.mrt] {
			if cb != nil {
				mrt++
			}
		}
	} else if fb.DepthStencil == nil || c.buffers == 0 {
		return false, nil
	}

	p, err := r.e.clears.pipeline(&fb, mrt, c.buffers)
	if err != nil {
		return false, err
	}
	pass.SetPipeline(p)
	setScissor(pass, rect)
	if c.mrt >= 0 {
		color := c.color
		pass.SetBlendConstant(&color)
		pass.Draw(3, 1, 0, 0)
	} else {
		w, h := float32(fb.Width), float32(fb.Height)
		pass.SetStencilReference(c.stencil)
		pass.SetViewport(0, 0, w, h, c.depth, c.depth)
		pass.Draw(3, 1, 0, 0)
		pass.SetViewport(0, 0, w, h, 0, 1)
	}
	r.e.stats.ClearDraws++
	return true, nil
}

// replayClears draws the clears of the GMEM stream that the load
// operations of bin do not cover. A clear overwritten in the whole bin by
// a later one is dropped.
func (r *recorder) replayClears(pass hal.RenderPassEncoder, bin tbdr.Rect) error {
	var clears []clearPacket
	err := r.b.GmemStream().Replay(func(p cmdstream.Packet) error {
		if c, ok := decodeClear(p); ok && !c.rect.Intersect(bin).Empty() {
			clears = append(clears, c)
		}
		return nil
	})
	if err != nil {
		return err
	}

	live := make([]bool, len(clears))
	var covered tbdr.BufferMask
	for i := len(clears) - 1; i >= 0; i-- {
		c := clears[i]
		if c.buffers&^covered == 0 {
			continue
		}
		live[i] = true
		if c.rect.Contains(bin) {
			covered |= c.buffers
		}
	}

	var drawn tbdr.BufferMask
	for i, c := range clears {
		if !live[i] || (c.buffers&drawn == 0 && r.redundant(c, bin)) {
			continue
		}
		if _, err := r.drawClear(pass, c, bin); err != nil {
			return err
		}
		drawn |= c.buffers
	}
	return nil
}
