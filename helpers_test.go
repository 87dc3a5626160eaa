package tbdr

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/tbdr/cmdstream"
)

var errOutOfMemory = errors.New("out of memory")

// countingAllocator counts the deletions of every stream it created.
type countingAllocator struct {
	pool      *cmdstream.Pool
	created   []*cmdstream.Stream
	deletes   map[*cmdstream.Stream]int
	failAfter int
}

func newCountingAllocator(capacity int) *countingAllocator {
	return &countingAllocator{
		pool:    cmdstream.NewPool(capacity),
		deletes: make(map[*cmdstream.Stream]int),
	}
}

func (a *countingAllocator) NewStream(label string, capacity int) (*cmdstream.Stream, error) {
	if a.failAfter > 0 && len(a.created) >= a.failAfter {
		return nil, errOutOfMemory
	}
	s, err := a.pool.NewStream(label, capacity)
	if err != nil {
		return nil, err
	}
	a.created = append(a.created, s)
	return s, nil
}

func (a *countingAllocator) DeleteStream(s *cmdstream.Stream) {
	a.deletes[s]++
	a.pool.DeleteStream(s)
}

// fakeBackend records draws and clears, optionally emitting words into the
// draw stream for draws and the gmem stream for clears.
type fakeBackend struct {
	topologies TopologyMask
	emit       int
	clearEmit  int
	idle       bool
	err        error

	draws  []DrawInfo
	clears []ClearRequest
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Topologies() TopologyMask {
	if f.topologies == 0 {
		return WebGPUTopologies
	}
	return f.topologies
}

func (f *fakeBackend) Draw(_ *Context, b *Batch, info *DrawInfo) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.draws = append(f.draws, *info)
	if f.emit > 0 {
		if err := b.DrawStream().Emit(make([]uint32, f.emit)...); err != nil {
			return false, err
		}
	}
	return !f.idle, nil
}

func (f *fakeBackend) Clear(_ *Context, b *Batch, req *ClearRequest) error {
	if f.err != nil {
		return f.err
	}
	if f.clearEmit > 0 {
		if err := b.GmemStream().Emit(make([]uint32, f.clearEmit)...); err != nil {
			return err
		}
	}
	f.clears = append(f.clears, *req)
	return nil
}

// fakeExecutor records the batches handed to it.
type fakeExecutor struct {
	seqnos []uint64
	masks  []BufferMask
	err    error
}

func (e *fakeExecutor) ExecuteTiles(b *Batch) error {
	e.seqnos = append(e.seqnos, b.Seqno())
	e.masks = append(e.masks, b.Resolve())
	return e.err
}

func newTestDevice(t *testing.T, opts ...Option) *Device {
	t.Helper()
	t.Setenv(DebugEnv, "")
	opts = append([]Option{WithStreamCapacity(512), WithFlushThreshold(128)}, opts...)
	dev, err := NewDevice(opts...)
	if err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}
	return dev
}

func newTexture(t *testing.T, dev *Device, f gputypes.TextureFormat, samples uint32, usage Usage) *Resource {
	t.Helper()
	r, err := dev.NewResource(ResourceDescriptor{
		Label:   f.String(),
		Kind:    KindTexture,
		Format:  f,
		Width:   64,
		Height:  64,
		Samples: samples,
		Usage:   usage,
	})
	if err != nil {
		t.Fatalf("NewResource(%v) error = %v", f, err)
	}
	return r
}

func newBuffer(t *testing.T, dev *Device, label string, usage Usage) *Resource {
	t.Helper()
	r, err := dev.NewResource(ResourceDescriptor{Label: label, Kind: KindBuffer, Size: 1024, Usage: usage})
	if err != nil {
		t.Fatalf("NewResource(%q) error = %v", label, err)
	}
	return r
}

type testRig struct {
	dev   *Device
	ctx   *Context
	be    *fakeBackend
	exec  *fakeExecutor
	color *Resource
	zs    *Resource
}

// newRig returns a context drawing to a 64x64 RGBA8 target and a
// Depth24PlusStencil8 buffer.
func newRig(t *testing.T, opts ...Option) *testRig {
	t.Helper()
	dev := newTestDevice(t, opts...)
	r := &testRig{
		dev:   dev,
		be:    &fakeBackend{},
		exec:  &fakeExecutor{},
		color: newTexture(t, dev, gputypes.TextureFormatRGBA8Unorm, 1, UsageColorTarget|UsageSampled),
		zs:    newTexture(t, dev, gputypes.TextureFormatDepth24PlusStencil8, 1, UsageDepthStencil),
	}
	ctx, err := dev.NewContext(WithBackend(r.be), WithExecutor(r.exec))
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	t.Cleanup(func() { ctx.Close() })
	r.ctx = ctx

	fb := Framebuffer{Width: 64, Height: 64, Colors: []*Resource{r.color}, DepthStencil: r.zs}
	if err := ctx.SetFramebuffer(fb); err != nil {
		t.Fatalf("SetFramebuffer() error = %v", err)
	}
	return r
}

func (r *testRig) batch(t *testing.T) *Batch {
	t.Helper()
	b, err := r.ctx.Batch()
	if err != nil {
		t.Fatalf("Batch() error = %v", err)
	}
	return b
}

func triangles(count uint32) *DrawInfo {
	return &DrawInfo{Mode: TopologyTriangles, Count: count}
}
