// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package pm4 encodes draws and clears as type-3 command packets.
//
// Draws go to the draw stream with a scissor and, when the vertex layout
// changed, the fetch constants. A position-only copy of every draw goes to
// the binning stream for the visibility pass. Clears are programmed into
// the GMEM stream, since they execute per bin while tile memory is live.
//
// The backend registers itself as "pm4" on import:
//
//	import _ "github.com/gogpu/tbdr/backend/pm4"
package pm4

import (
	"fmt"
	"math"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/tbdr"
	"github.com/gogpu/tbdr/backend"
	"github.com/gogpu/tbdr/cmdstream"
)

func init() {
	backend.Register(backend.BackendPM4, func() tbdr.Backend {
		return New()
	})
}

// Backend emits pm4 packets. A Backend serves one context.
type Backend struct {
	// Last programmed state, reset per batch.
	seqno   uint64
	vertex  *tbdr.VertexState
	scissor tbdr.Rect
}

// New returns a pm4 backend.
func New() *Backend {
	return &Backend{}
}

// Name returns "pm4".
func (be *Backend) Name() string { return backend.BackendPM4 }

// Topologies returns the natively drawn topologies.
func (be *Backend) Topologies() tbdr.TopologyMask { return Topologies }

// Draw emits info into the draw and binning streams of b.
func (be *Backend) Draw(c *tbdr.Context, b *tbdr.Batch, info *tbdr.DrawInfo) (bool, error) {
	prim, ok := primCodes[info.Mode]
	if !ok {
		return false, fmt.Errorf("%w: %v", tbdr.ErrUnsupportedTopology, info.Mode)
	}
	fresh := be.seqno != b.Seqno()
	if fresh {
		be.seqno = b.Seqno()
		be.vertex = nil
	}

	draw := b.DrawStream()
	if sc := c.ActiveScissor(); fresh || sc != be.scissor {
		w0, w1 := packRect(sc)
		if err := draw.Packet(OpScissor, w0, w1); err != nil {
			return false, err
		}
		be.scissor = sc
	}
	if vs := c.State().Vertex; vs != nil && vs != be.vertex {
		if err := draw.Packet(OpVertexFetch, fetchConstants(vs)...); err != nil {
			return false, err
		}
		be.vertex = vs
	}

	op, payload, err := drawPacket(prim, info)
	if err != nil {
		return false, err
	}
	if err := draw.Packet(op, payload...); err != nil {
		return false, err
	}
	if op != OpDrawIndirect {
		if err := b.BinningStream().Packet(OpBinDraw, payload...); err != nil {
			return false, err
		}
	}
	return true, nil
}

func drawPacket(prim uint32, info *tbdr.DrawInfo) (cmdstream.Opcode, []uint32, error) {
	var size uint32
	if info.Indexed() {
		switch info.IndexFormat {
		case gputypes.IndexFormatUint16:
			size = 0
		case gputypes.IndexFormatUint32:
			size = 1
		default:
			return 0, nil, fmt.Errorf("%w: index format %v", tbdr.ErrInvalidDescriptor, info.IndexFormat)
		}
	}

	if info.Indirect != nil {
		payload := []uint32{prim, 0, uint32(info.Indirect.Index()), uint32(info.IndirectOffset), 0, 0, 0}
		if info.Indexed() {
			payload[1] = 1
			payload[4], payload[5], payload[6] = size, uint32(info.Index.Index()), uint32(info.IndexOffset)
		}
		return OpDrawIndirect, payload, nil
	}
	if !info.Indexed() {
		return OpDrawAuto, []uint32{
			prim, info.Count, info.Instances(), info.Start, info.StartInstance,
		}, nil
	}

	restart := uint32(0)
	if info.PrimitiveRestart {
		restart = 1<<31 | info.RestartIndex&0x7FFFFFFF
	}
	return OpDrawIndex, []uint32{
		prim, info.Count, info.Instances(), info.Start, info.StartInstance,
		size, uint32(info.IndexBias), uint32(info.Index.Index()), uint32(info.IndexOffset), restart,
	}, nil
}

func fetchConstants(vs *tbdr.VertexState) []uint32 {
	words := make([]uint32, 0, 2*len(vs.Elements))
	for _, e := range vs.Elements {
		words = append(words,
			e.ShaderLocation&0xFF|uint32(e.Encoding.Data)<<8|uint32(e.Encoding.Num)<<16,
			uint32(e.Offset))
	}
	return words
}

// Clear programs the clear of every requested buffer into the GMEM stream.
// Clears that follow draws go to the draw stream to keep their order.
func (be *Backend) Clear(_ *tbdr.Context, b *tbdr.Batch, req *tbdr.ClearRequest) error {
	fb := b.Framebuffer()
	out := b.GmemStream()
	if b.NumDraws() > 0 {
		out = b.DrawStream()
	}
	s0, s1 := packRect(req.Scissor)

	for i, cb := range fb.Colors {
		if cb == nil || !req.Buffers.Has(tbdr.BufferColorN(i)) {
			continue
		}
		enc := cb.Encoding()
		err := out.Packet(OpClearColor,
			uint32(i), uint32(enc.Color), uint32(enc.Swap), s0, s1,
			math.Float32bits(float32(req.Color.R)),
			math.Float32bits(float32(req.Color.G)),
			math.Float32bits(float32(req.Color.B)),
			math.Float32bits(float32(req.Color.A)))
		if err != nil {
			return err
		}
	}

	if zs := req.Buffers & tbdr.BufferDepthStencil; zs != 0 && fb.DepthStencil != nil {
		err := out.Packet(OpClearDepthStencil,
			uint32(fb.DepthStencil.Encoding().Depth), uint32(zs), s0, s1,
			math.Float32bits(req.Depth), req.Stencil)
		if err != nil {
			return err
		}
	}
	return nil
}
