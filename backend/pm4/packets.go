package pm4

import (
	"fmt"
	"math"
	"strings"

	"github.com/gogpu/tbdr"
	"github.com/gogpu/tbdr/cmdstream"
)

// Opcodes of the pm4 backend.
const (
	// OpScissor sets the window scissor: [minX | minY<<16, maxX | maxY<<16].
	OpScissor = cmdstream.OpBackendBase + iota
	// OpVertexFetch programs the fetch constants: two words per element,
	// [location | data<<8 | num<<16, offset].
	OpVertexFetch
	// OpDrawAuto draws non-indexed:
	// [prim, count, instances, start, startInstance].
	OpDrawAuto
	// OpDrawIndex draws indexed: [prim, count, instances, start,
	// startInstance, indexSize, bias, buffer, offset, restart].
	OpDrawIndex
	// OpDrawIndirect draws from a buffer: [prim, indexed, buffer, offset,
	// indexSize, indexBuffer, indexOffset].
	OpDrawIndirect
	// OpBinDraw is the position-only draw of the binning pass, with the
	// payload of OpDrawAuto or OpDrawIndex.
	OpBinDraw
	// OpClearColor clears one color target in GMEM:
	// [mrt, colorFormat, swap, scissor0, scissor1, r, g, b, a].
	OpClearColor
	// OpClearDepthStencil clears the depth/stencil target in GMEM:
	// [depthFormat, buffers, scissor0, scissor1, depth, stencil].
	OpClearDepthStencil
)

var opNames = map[cmdstream.Opcode]string{
	cmdstream.OpNop:     "NOP",
	cmdstream.OpCall:    "CALL",
	OpScissor:           "SCISSOR",
	OpVertexFetch:       "VERTEX_FETCH",
	OpDrawAuto:          "DRAW_AUTO",
	OpDrawIndex:         "DRAW_INDEX",
	OpDrawIndirect:      "DRAW_INDIRECT",
	OpBinDraw:           "BIN_DRAW",
	OpClearColor:        "CLEAR_COLOR",
	OpClearDepthStencil: "CLEAR_DEPTH_STENCIL",
}

// OpName returns the mnemonic of op.
func OpName(op cmdstream.Opcode) string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("OP_%02X", uint8(op))
}

// Primitive type codes.
const (
	primPoints    = 1
	primLines     = 2
	primLineStrip = 3
	primTriangles = 4
	primTriStrip  = 5
	primTriFan    = 6
	primLineLoop  = 7
)

var primCodes = map[tbdr.Topology]uint32{
	tbdr.TopologyPoints:        primPoints,
	tbdr.TopologyLines:         primLines,
	tbdr.TopologyLineStrip:     primLineStrip,
	tbdr.TopologyTriangles:     primTriangles,
	tbdr.TopologyTriangleStrip: primTriStrip,
	tbdr.TopologyTriangleFan:   primTriFan,
	tbdr.TopologyLineLoop:      primLineLoop,
}

// Topologies drawn natively. Quads, quad strips and polygons are converted.
var Topologies = tbdr.MaskOf(
	tbdr.TopologyPoints, tbdr.TopologyLines, tbdr.TopologyLineStrip,
	tbdr.TopologyLineLoop, tbdr.TopologyTriangles, tbdr.TopologyTriangleStrip,
	tbdr.TopologyTriangleFan,
)

func packRect(r tbdr.Rect) (uint32, uint32) {
	return r.MinX&0xFFFF | r.MinY<<16, r.MaxX&0xFFFF | r.MaxY<<16
}

// UnpackRect decodes a rectangle encoded in two words.
func UnpackRect(w0, w1 uint32) tbdr.Rect {
	return tbdr.Rect{MinX: w0 & 0xFFFF, MinY: w0 >> 16, MaxX: w1 & 0xFFFF, MaxY: w1 >> 16}
}

// Disassemble returns one line per packet of s, expanding calls into child
// streams with indentation.
func Disassemble(s *cmdstream.Stream) ([]string, error) {
	var lines []string
	err := disassemble(s, 0, &lines)
	return lines, err
}

func disassemble(s *cmdstream.Stream, depth int, lines *[]string) error {
	if depth > 8 {
		return fmt.Errorf("pm4: call depth exceeded in %s", s.Label())
	}
	indent := strings.Repeat("  ", depth)
	for p, err := range s.Packets() {
		if err != nil {
			return err
		}
		*lines = append(*lines, indent+describe(p))
		if p.Op == cmdstream.OpCall && len(p.Payload) == 1 {
			children := s.Children()
			i := int(p.Payload[0])
			if i >= len(children) {
				return fmt.Errorf("pm4: %s calls missing child %d", s.Label(), i)
			}
			if err := disassemble(children[i], depth+1, lines); err != nil {
				return err
			}
		}
	}
	return nil
}

func describe(p cmdstream.Packet) string {
	name := OpName(p.Op)
	w := p.Payload
	switch {
	case p.Op == OpScissor && len(w) == 2:
		r := UnpackRect(w[0], w[1])
		return fmt.Sprintf("%s (%d,%d)-(%d,%d)", name, r.MinX, r.MinY, r.MaxX, r.MaxY)
	case (p.Op == OpDrawAuto || p.Op == OpDrawIndex || p.Op == OpBinDraw) && len(w) >= 3:
		return fmt.Sprintf("%s prim=%d count=%d instances=%d", name, w[0], w[1], w[2])
	case p.Op == OpClearColor && len(w) == 9:
		return fmt.Sprintf("%s mrt=%d fmt=%d swap=%d rgba=(%g,%g,%g,%g)", name, w[0], w[1], w[2],
			math.Float32frombits(w[5]), math.Float32frombits(w[6]),
			math.Float32frombits(w[7]), math.Float32frombits(w[8]))
	case p.Op == OpClearDepthStencil && len(w) == 6:
		return fmt.Sprintf("%s fmt=%d buffers=%v depth=%g stencil=%d", name, w[0],
			tbdr.BufferMask(w[1]), math.Float32frombits(w[4]), w[5])
	}
	return fmt.Sprintf("%s %08X", name, w)
}
