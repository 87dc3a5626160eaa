package backend

import (
	"github.com/gogpu/tbdr"
)

// NullBackend accepts every draw and clear without emitting commands.
// Batches still collect resource usage and buffer masks, which makes it
// useful for measuring the batch bookkeeping alone.
type NullBackend struct {
	draws  int
	clears int
}

// allTopologies is every topology, so nothing goes through conversion.
var allTopologies = tbdr.MaskOf(
	tbdr.TopologyPoints, tbdr.TopologyLines, tbdr.TopologyLineLoop,
	tbdr.TopologyLineStrip, tbdr.TopologyTriangles, tbdr.TopologyTriangleStrip,
	tbdr.TopologyTriangleFan, tbdr.TopologyQuads, tbdr.TopologyQuadStrip,
	tbdr.TopologyPolygon,
)

// init registers the null backend on package import.
func init() {
	Register(BackendNull, func() tbdr.Backend {
		return &NullBackend{}
	})
}

// NewNullBackend creates a new null backend.
func NewNullBackend() *NullBackend {
	return &NullBackend{}
}

// Name returns the backend identifier.
func (b *NullBackend) Name() string {
	return BackendNull
}

// Topologies returns every topology.
func (b *NullBackend) Topologies() tbdr.TopologyMask {
	return allTopologies
}

// Draw counts the draw. It never queues work, so flushes of batches with
// only draws skip tile execution.
func (b *NullBackend) Draw(*tbdr.Context, *tbdr.Batch, *tbdr.DrawInfo) (bool, error) {
	b.draws++
	return false, nil
}

// Clear counts the clear.
func (b *NullBackend) Clear(*tbdr.Context, *tbdr.Batch, *tbdr.ClearRequest) error {
	b.clears++
	return nil
}

// Counts returns the number of draws and clears received.
func (b *NullBackend) Counts() (draws, clears int) {
	return b.draws, b.clears
}
