package tbdr

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/core/track"

	"github.com/gogpu/tbdr/format"
)

// ResourceKind distinguishes buffers from textures.
type ResourceKind uint8

// Resource kinds.
const (
	KindBuffer ResourceKind = iota
	KindTexture
)

// String returns "buffer" or "texture".
func (k ResourceKind) String() string {
	if k == KindTexture {
		return "texture"
	}
	return "buffer"
}

// Usage is the set of ways a resource may be bound.
type Usage uint32

// Resource usages.
const (
	UsageSampled Usage = 1 << iota
	UsageColorTarget
	UsageDepthStencil
	UsageVertex
	UsageIndex
	UsageIndirect
	UsageStorage
	UsageStreamOut
	UsageQuery

	textureUsages = UsageSampled | UsageColorTarget | UsageDepthStencil
)

// ResourceDescriptor describes a resource to create.
type ResourceDescriptor struct {
	Label string
	Kind  ResourceKind

	// Format is the texel format of textures.
	Format gputypes.TextureFormat

	// Size is the byte size of buffers.
	Size uint64

	// Width, Height and Samples describe textures. Zero samples means one.
	Width   uint32
	Height  uint32
	Samples uint32

	Usage Usage

	// Handle is an opaque backend object, such as a hal.TextureView used by
	// the hal executor, or host memory for index data.
	Handle any
}

// Resource is a GPU buffer or texture whose use by batches is tracked.
type Resource struct {
	dev      *Device
	desc     ResourceDescriptor
	enc      format.Encoding
	tracking *track.TrackingData

	// Guarded by dev.mu.
	writer    *Batch
	readers   map[*Batch]struct{}
	destroyed bool
}

// NewResource creates a resource after checking that its format has a
// hardware encoding for every requested usage.
func (d *Device) NewResource(desc ResourceDescriptor) (*Resource, error) {
	if desc.Samples == 0 {
		desc.Samples = 1
	}
	var enc format.Encoding
	switch desc.Kind {
	case KindBuffer:
		if desc.Size == 0 {
			return nil, fmt.Errorf("%w: %q: zero size buffer", ErrInvalidDescriptor, desc.Label)
		}
		if desc.Usage&textureUsages != 0 {
			return nil, fmt.Errorf("%w: %q: texture usage on a buffer", ErrInvalidDescriptor, desc.Label)
		}
	case KindTexture:
		if desc.Width == 0 || desc.Height == 0 {
			return nil, fmt.Errorf("%w: %q: zero extent %dx%d", ErrInvalidDescriptor, desc.Label, desc.Width, desc.Height)
		}
		switch desc.Samples {
		case 1, 2, 4, 8:
		default:
			return nil, fmt.Errorf("%w: %q: %d samples", ErrInvalidDescriptor, desc.Label, desc.Samples)
		}
		if format.Describe(desc.Format) == nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, desc.Format)
		}
		enc = format.Translate(desc.Format)
		if err := checkUsage(desc, enc); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q: kind %d", ErrInvalidDescriptor, desc.Label, desc.Kind)
	}

	return &Resource{
		dev:      d,
		desc:     desc,
		enc:      enc,
		tracking: track.NewTrackingData(d.trackers),
		readers:  make(map[*Batch]struct{}),
	}, nil
}

func checkUsage(desc ResourceDescriptor, enc format.Encoding) error {
	if desc.Usage&UsageSampled != 0 && !enc.Sampleable() {
		return fmt.Errorf("%w: %v cannot be sampled", ErrUnsupportedFormat, desc.Format)
	}
	if desc.Usage&UsageColorTarget != 0 && !enc.ColorRenderable() {
		return fmt.Errorf("%w: %v cannot be a color target", ErrUnsupportedFormat, desc.Format)
	}
	if desc.Usage&UsageDepthStencil != 0 {
		// Stencil8 has no depth format; it samples as 8 and backs
		// stencil-only targets.
		if !enc.DepthRenderable() && desc.Format != gputypes.TextureFormatStencil8 {
			return fmt.Errorf("%w: %v cannot be a depth/stencil target", ErrUnsupportedFormat, desc.Format)
		}
	}
	return nil
}

// Label returns the debug label.
func (r *Resource) Label() string { return r.desc.Label }

// Kind returns whether r is a buffer or a texture.
func (r *Resource) Kind() ResourceKind { return r.desc.Kind }

// Descriptor returns the descriptor r was created from.
func (r *Resource) Descriptor() ResourceDescriptor { return r.desc }

// Format returns the texel format of a texture.
func (r *Resource) Format() gputypes.TextureFormat { return r.desc.Format }

// Encoding returns the hardware encoding of a texture format.
func (r *Resource) Encoding() format.Encoding { return r.enc }

// Samples returns the sample count of a texture.
func (r *Resource) Samples() uint32 { return r.desc.Samples }

// Handle returns the backend object attached at creation.
func (r *Resource) Handle() any { return r.desc.Handle }

// Index returns the dense tracker index of r.
func (r *Resource) Index() track.TrackerIndex { return r.tracking.Index() }

// zsBuffers returns the buffers r provides as a depth/stencil attachment.
func (r *Resource) zsBuffers() BufferMask {
	var m BufferMask
	if r.desc.Format.HasDepth() {
		m |= BufferDepth
	}
	if r.desc.Format.HasStencil() {
		m |= BufferStencil
	}
	return m
}

// Writer returns the batch holding a pending write of r, or nil.
func (r *Resource) Writer() *Batch {
	r.dev.mu.Lock()
	defer r.dev.mu.Unlock()
	return r.writer
}

// Readers returns the batches holding pending reads of r in creation order.
func (r *Resource) Readers() []*Batch {
	r.dev.mu.Lock()
	out := make([]*Batch, 0, len(r.readers))
	for b := range r.readers {
		out = append(out, b)
	}
	r.dev.mu.Unlock()

	slices.SortFunc(out, func(a, b *Batch) int {
		return cmp.Compare(a.seqno, b.seqno)
	})
	return out
}

// Destroyed reports whether Destroy was called.
func (r *Resource) Destroyed() bool {
	r.dev.mu.Lock()
	defer r.dev.mu.Unlock()
	return r.destroyed
}

// Destroy drops every usage record of r and frees its tracker index.
// Destroyed resources are ignored by later usage marking.
func (r *Resource) Destroy() {
	r.dev.mu.Lock()
	defer r.dev.mu.Unlock()
	if r.destroyed {
		return
	}
	r.destroyed = true
	r.dropRecordsLocked()
	r.tracking.Release()
}

// dropRecordsLocked removes r from the read and write sets of all batches
// and releases the references they held.
func (r *Resource) dropRecordsLocked() {
	idx := r.tracking.Index()
	if w := r.writer; w != nil {
		r.writer = nil
		w.writes.SetOwned(idx, false)
		w.Release()
	}
	for b := range r.readers {
		delete(r.readers, b)
		b.reads.SetOwned(idx, false)
		b.Release()
	}
}
