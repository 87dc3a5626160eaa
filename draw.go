package tbdr

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/core/track"
)

// Topology is a primitive topology, including the legacy ones that tilers
// draw through conversion.
type Topology uint8

// Primitive topologies.
const (
	TopologyPoints Topology = iota
	TopologyLines
	TopologyLineLoop
	TopologyLineStrip
	TopologyTriangles
	TopologyTriangleStrip
	TopologyTriangleFan
	TopologyQuads
	TopologyQuadStrip
	TopologyPolygon
	numTopologies
)

var topologyNames = [numTopologies]string{
	"POINTS", "LINES", "LINE_LOOP", "LINE_STRIP", "TRIANGLES",
	"TRIANGLE_STRIP", "TRIANGLE_FAN", "QUADS", "QUAD_STRIP", "POLYGON",
}

// String returns the topology name.
func (t Topology) String() string {
	if t < numTopologies {
		return topologyNames[t]
	}
	return fmt.Sprintf("Topology(%d)", uint8(t))
}

// TopologyFrom converts a WebGPU primitive topology.
func TopologyFrom(t gputypes.PrimitiveTopology) Topology {
	switch t {
	case gputypes.PrimitiveTopologyPointList:
		return TopologyPoints
	case gputypes.PrimitiveTopologyLineList:
		return TopologyLines
	case gputypes.PrimitiveTopologyLineStrip:
		return TopologyLineStrip
	case gputypes.PrimitiveTopologyTriangleStrip:
		return TopologyTriangleStrip
	default:
		return TopologyTriangles
	}
}

// TopologyMask is a set of topologies.
type TopologyMask uint16

// Topology sets.
const (
	// ListTopologies are the topologies every backend draws.
	ListTopologies = TopologyMask(1<<TopologyPoints | 1<<TopologyLines | 1<<TopologyTriangles)
	// WebGPUTopologies adds the strips.
	WebGPUTopologies = ListTopologies | TopologyMask(1<<TopologyLineStrip|1<<TopologyTriangleStrip)
)

// MaskOf returns the set holding ts.
func MaskOf(ts ...Topology) TopologyMask {
	var m TopologyMask
	for _, t := range ts {
		m |= 1 << t
	}
	return m
}

// Has reports whether t is in m.
func (m TopologyMask) Has(t Topology) bool {
	return t < numTopologies && m&(1<<t) != 0
}

// DrawInfo describes one draw call.
type DrawInfo struct {
	Mode Topology

	// Start is the first vertex, or the first index of indexed draws.
	Start uint32
	Count uint32

	// InstanceCount of zero draws one instance.
	InstanceCount uint32
	StartInstance uint32

	// IndexBias is added to every index of indexed draws.
	IndexBias int32

	// Index makes the draw indexed.
	Index       *Resource
	IndexFormat gputypes.IndexFormat
	IndexOffset uint64

	// Indirect takes the draw parameters from a buffer.
	Indirect       *Resource
	IndirectOffset uint64

	PrimitiveRestart bool
	RestartIndex     uint32
}

// Indexed reports whether the draw reads an index buffer.
func (info *DrawInfo) Indexed() bool {
	return info.Index != nil
}

// Instances returns the effective instance count.
func (info *DrawInfo) Instances() uint32 {
	return max(info.InstanceCount, 1)
}

// Backend emits the hardware commands of draws and clears into the batch
// streams. One backend exists per GPU architecture.
type Backend interface {
	// Name identifies the backend in the registry.
	Name() string

	// Topologies returns the topologies drawn without conversion.
	Topologies() TopologyMask

	// Draw emits info into b. It reports whether work was queued.
	Draw(c *Context, b *Batch, info *DrawInfo) (queued bool, err error)

	// Clear programs the clear of req.Buffers into b.
	Clear(c *Context, b *Batch, req *ClearRequest) error
}

// ClearRequest is a clear handed to the Backend.
type ClearRequest struct {
	Buffers BufferMask
	Color   gputypes.Color
	Depth   float32
	Stencil uint32

	// Scissor is the cleared area, clipped to the framebuffer.
	Scissor Rect
}

// TileExecutor renders a flushed batch tile by tile.
type TileExecutor interface {
	ExecuteTiles(b *Batch) error
}

// PrimitiveConverter draws topologies the backend cannot, usually by
// generating an index list and calling Context.Draw again with a list
// topology.
type PrimitiveConverter interface {
	ConvertAndDraw(c *Context, info *DrawInfo) error
}

// Draw records a draw into the active batch.
//
// Draws outside the scissor, without vertices or disabled by the render
// condition are skipped. Topologies the backend cannot draw go to the
// primitive converter. Otherwise every bound resource is marked used under
// the device lock and the backend emits the draw. The batch masks and
// counters change only once the backend succeeds; a failed draw keeps only
// its resource usage records and tile memory reasons. The batch is flushed
// when its streams run low.
func (c *Context) Draw(info *DrawInfo) error {
	if info == nil {
		return ErrNilDrawInfo
	}
	if c.closed {
		return ErrContextClosed
	}
	if !c.renderEnabled() || c.ActiveScissor().Empty() || (info.Count == 0 && info.Indirect == nil) {
		c.stats.Skipped++
		return nil
	}

	if !c.backend.Topologies().Has(info.Mode) {
		if c.converter == nil {
			return fmt.Errorf("%w: %v on %s", ErrUnsupportedTopology, info.Mode, c.backend.Name())
		}
		c.stats.Converted++
		return c.converter.ConvertAndDraw(c, info)
	}

	b, err := c.Batch()
	if err != nil {
		return err
	}

	touched := c.markDrawResources(b, info)

	if c.dev.cfg.Debug&DebugMsgs != 0 {
		Logger().Debug("tbdr: draw",
			"seqno", b.seqno,
			"mode", info.Mode,
			"count", info.Count,
			"instances", info.Instances(),
			"touched", touched)
	}

	queued, err := c.backend.Draw(c, b, info)
	if err != nil {
		return fmt.Errorf("tbdr: %s draw: %w", c.backend.Name(), err)
	}

	b.restore |= touched &^ b.cleared
	b.resolve |= touched
	b.numDraws++
	b.numVertices += uint64(info.Count) * uint64(info.Instances())
	b.maxScissor = b.maxScissor.Union(c.ActiveScissor())
	b.extent = b.extent.Union(c.ActiveScissor())
	if queued {
		b.needsFlush = true
	}
	c.stats.Draws++
	return b.CheckSize()
}

// markDrawResources marks everything a draw accesses under one hold of the
// device lock and returns the framebuffer buffers it touches.
func (c *Context) markDrawResources(b *Batch, info *DrawInfo) BufferMask {
	s := &c.state
	fb := &b.fb
	var touched BufferMask

	c.dev.mu.Lock()
	defer c.dev.mu.Unlock()

	if zs := fb.DepthStencil; zs != nil {
		aspects := zs.zsBuffers()
		var used BufferMask
		write := false
		if aspects.Has(BufferDepth) && s.depthEnabled() {
			used |= BufferDepth
			b.gmemReason |= GmemDepthEnabled
			write = write || s.depthWriteEnabled()
		}
		if aspects.Has(BufferStencil) && s.stencilEnabled() {
			used |= BufferStencil
			b.gmemReason |= GmemStencilEnabled
			write = write || s.stencilWriteEnabled()
		}
		if used != 0 {
			touched |= used
			b.markUsedLocked(zs, write, track.BufferUsesNone)
		}
	}

	for i, cb := range fb.Colors {
		if cb == nil {
			continue
		}
		touched |= BufferColorN(i)
		b.markUsedLocked(cb, true, track.BufferUsesNone)
		if s.Blend[i] != nil {
			b.gmemReason |= GmemBlendEnabled
		}
	}
	if touched.Any(BufferColor) && s.LogicOpEnabled {
		b.gmemReason |= GmemLogicOpEnabled
	}
	if max(fb.Samples, 1) > 1 {
		b.gmemReason |= GmemMSAA
	}

	for _, vb := range s.VertexBuffers {
		b.markUsedLocked(vb, false, track.BufferUsesVertex)
	}
	b.markUsedLocked(info.Index, false, track.BufferUsesIndex)
	b.markUsedLocked(info.Indirect, false, track.BufferUsesIndirect)
	for _, tex := range s.Textures {
		b.markUsedLocked(tex, false, track.BufferUsesNone)
	}
	for _, sb := range s.StorageBuffers {
		if sb.Writable {
			b.markUsedLocked(sb.Resource, true, track.BufferUsesStorageWrite)
		} else {
			b.markUsedLocked(sb.Resource, false, track.BufferUsesStorageRead)
		}
	}
	for _, so := range s.StreamOut {
		b.markUsedLocked(so, true, track.BufferUsesStorageWrite)
	}
	b.markUsedLocked(b.query, true, track.BufferUsesQueryResolve)

	return touched
}
