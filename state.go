package tbdr

import (
	"fmt"
	"slices"

	"github.com/gogpu/gputypes"
)

// Framebuffer is the set of render targets of a context.
type Framebuffer struct {
	Width   uint32
	Height  uint32
	Samples uint32

	// Colors holds up to MaxColorTargets targets. Nil entries are unbound.
	Colors []*Resource

	// DepthStencil is the depth and/or stencil target, or nil.
	DepthStencil *Resource
}

// Bounds returns the render area.
func (fb *Framebuffer) Bounds() Rect {
	return RectWH(fb.Width, fb.Height)
}

// Attached returns the buffers backed by a bound target.
func (fb *Framebuffer) Attached() BufferMask {
	var m BufferMask
	for i, c := range fb.Colors {
		if c != nil {
			m |= BufferColorN(i)
		}
	}
	if fb.DepthStencil != nil {
		m |= fb.DepthStencil.zsBuffers()
	}
	return m
}

func (fb *Framebuffer) validate() error {
	if fb.Width == 0 || fb.Height == 0 {
		return fmt.Errorf("%w: %dx%d", ErrEmptyFramebuffer, fb.Width, fb.Height)
	}
	if len(fb.Colors) > MaxColorTargets {
		return fmt.Errorf("%w: %d > %d", ErrTooManyTargets, len(fb.Colors), MaxColorTargets)
	}
	samples := max(fb.Samples, 1)
	check := func(r *Resource, want Usage, what string) error {
		if r.destroyed {
			return fmt.Errorf("%w: %s %q", ErrResourceDestroyed, what, r.desc.Label)
		}
		if r.desc.Kind != KindTexture || r.desc.Usage&want == 0 {
			return fmt.Errorf("%w: %s %q lacks render target usage", ErrInvalidDescriptor, what, r.desc.Label)
		}
		if r.desc.Samples != samples {
			return fmt.Errorf("%w: %s %q has %d samples, framebuffer %d",
				ErrSampleMismatch, what, r.desc.Label, r.desc.Samples, samples)
		}
		return nil
	}
	for i, c := range fb.Colors {
		if c == nil {
			continue
		}
		if err := check(c, UsageColorTarget, fmt.Sprintf("color%d", i)); err != nil {
			return err
		}
	}
	if fb.DepthStencil != nil {
		if err := check(fb.DepthStencil, UsageDepthStencil, "depth/stencil"); err != nil {
			return err
		}
	}
	return nil
}

func (fb *Framebuffer) equal(o *Framebuffer) bool {
	return fb.Width == o.Width &&
		fb.Height == o.Height &&
		max(fb.Samples, 1) == max(o.Samples, 1) &&
		fb.DepthStencil == o.DepthStencil &&
		slices.Equal(fb.Colors, o.Colors)
}

// StorageBinding is a storage buffer bound to a shader.
type StorageBinding struct {
	Resource *Resource
	Writable bool
}

// State is the pipeline state read by Draw. Callers mutate it directly
// through Context.State between draws.
type State struct {
	// ScissorEnabled restricts rendering to Scissor.
	ScissorEnabled bool
	Scissor        Rect

	// Blend holds the blend state of each color target; nil disables
	// blending for that target.
	Blend [MaxColorTargets]*gputypes.BlendState

	LogicOpEnabled bool

	// DepthStencil is the depth/stencil test state; nil disables both tests.
	DepthStencil *gputypes.DepthStencilState

	// Vertex is the vertex fetch layout, created by Device.NewVertexState.
	Vertex        *VertexState
	VertexBuffers []*Resource

	Textures       []*Resource
	StorageBuffers []StorageBinding

	// StreamOut holds the transform feedback targets.
	StreamOut []*Resource
}

func (s *State) depthEnabled() bool {
	ds := s.DepthStencil
	if ds == nil {
		return false
	}
	return ds.DepthWriteEnabled ||
		(ds.DepthCompare != gputypes.CompareFunctionUndefined && ds.DepthCompare != gputypes.CompareFunctionAlways)
}

func (s *State) depthWriteEnabled() bool {
	return s.DepthStencil != nil && s.DepthStencil.DepthWriteEnabled
}

func (s *State) stencilEnabled() bool {
	ds := s.DepthStencil
	if ds == nil {
		return false
	}
	return faceActive(&ds.StencilFront) || faceActive(&ds.StencilBack)
}

func (s *State) stencilWriteEnabled() bool {
	ds := s.DepthStencil
	if ds == nil || ds.StencilWriteMask == 0 {
		return false
	}
	return faceWrites(&ds.StencilFront) || faceWrites(&ds.StencilBack)
}

func faceActive(f *gputypes.StencilFaceState) bool {
	if f.Compare != gputypes.CompareFunctionUndefined && f.Compare != gputypes.CompareFunctionAlways {
		return true
	}
	return faceWrites(f)
}

func faceWrites(f *gputypes.StencilFaceState) bool {
	return writesStencil(f.FailOp) || writesStencil(f.DepthFailOp) || writesStencil(f.PassOp)
}

func writesStencil(op gputypes.StencilOperation) bool {
	return op != gputypes.StencilOperationUndefined && op != gputypes.StencilOperationKeep
}
