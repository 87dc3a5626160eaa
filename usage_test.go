package tbdr

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/core/track"
)

func TestMarkResourceUsedNil(t *testing.T) {
	dev := newTestDevice(t)
	b, err := dev.NewBatch(nil)
	if err != nil {
		t.Fatalf("NewBatch() error = %v", err)
	}
	defer b.Release()

	b.MarkResourceUsed(nil, true)
	b.MarkResourceUsed(nil, false)
	if b.RefCount() != 1 {
		t.Errorf("RefCount() = %d after nil marks, want 1", b.RefCount())
	}
}

func TestMarkResourceUsedRecords(t *testing.T) {
	dev := newTestDevice(t)
	tex := newTexture(t, dev, gputypes.TextureFormatRGBA8Unorm, 1, UsageSampled)
	b, err := dev.NewBatch(nil)
	if err != nil {
		t.Fatalf("NewBatch() error = %v", err)
	}
	defer b.Release()

	b.MarkResourceUsed(tex, false)
	b.MarkResourceUsed(tex, false)
	if !b.Reads(tex) || b.Writes(tex) {
		t.Errorf("Reads() = %v, Writes() = %v, want true, false", b.Reads(tex), b.Writes(tex))
	}
	if b.RefCount() != 2 {
		t.Errorf("RefCount() = %d after repeated reads, want 2", b.RefCount())
	}

	b.MarkResourceUsed(tex, true)
	b.MarkResourceUsed(tex, true)
	if !b.Writes(tex) || tex.Writer() != b {
		t.Error("write not recorded")
	}
	if b.RefCount() != 3 {
		t.Errorf("RefCount() = %d after repeated writes, want 3", b.RefCount())
	}
	if readers := tex.Readers(); len(readers) != 1 || readers[0] != b {
		t.Errorf("Readers() = %v, want [%v]", readers, b)
	}
}

func TestMarkResourceUsedWriterHandoff(t *testing.T) {
	dev := newTestDevice(t)
	buf := newBuffer(t, dev, "ssbo", UsageStorage)
	b1, _ := dev.NewBatch(nil)
	b2, _ := dev.NewBatch(nil)
	defer b1.Release()
	defer b2.Release()

	b1.MarkResourceUsed(buf, true)
	b2.MarkResourceUsed(buf, true)

	if buf.Writer() != b2 {
		t.Errorf("Writer() = %v, want %v", buf.Writer(), b2)
	}
	if b1.Writes(buf) {
		t.Error("previous writer kept its write record")
	}
	if b1.RefCount() != 1 || b2.RefCount() != 2 {
		t.Errorf("RefCount() = %d, %d, want 1, 2", b1.RefCount(), b2.RefCount())
	}

	b1.MarkResourceUsed(buf, false)
	b2.MarkResourceUsed(buf, false)
	readers := buf.Readers()
	if len(readers) != 2 || readers[0] != b1 || readers[1] != b2 {
		t.Errorf("Readers() = %v, want [%v %v] in creation order", readers, b1, b2)
	}
}

func TestResourceDestroyDropsRecords(t *testing.T) {
	dev := newTestDevice(t)
	buf := newBuffer(t, dev, "vbo", UsageVertex)
	b, _ := dev.NewBatch(nil)
	defer b.Release()

	before := dev.LiveResources()
	b.MarkResourceUsed(buf, false)
	b.MarkResourceUsed(buf, true)
	buf.Destroy()
	buf.Destroy()

	if b.RefCount() != 1 {
		t.Errorf("RefCount() = %d after Destroy, want 1", b.RefCount())
	}
	if b.Reads(buf) || b.Writes(buf) {
		t.Error("records survive Destroy")
	}
	if got := dev.LiveResources(); got != before-1 {
		t.Errorf("LiveResources() = %d, want %d", got, before-1)
	}

	b.MarkResourceUsed(buf, true)
	if b.Writes(buf) {
		t.Error("destroyed resource recorded")
	}
}

func TestFlushDropsRecords(t *testing.T) {
	r := newRig(t)
	vbo := newBuffer(t, r.dev, "vbo", UsageVertex)
	r.ctx.State().VertexBuffers = []*Resource{vbo}

	if err := r.ctx.Draw(triangles(3)); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	b := r.batch(t)
	if !b.Reads(vbo) || !b.Writes(r.color) || !b.Writes(b.Query()) {
		t.Fatal("draw did not record its resources")
	}

	b.Retain()
	defer b.Release()
	if err := r.ctx.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if b.RefCount() != 1 {
		t.Errorf("RefCount() = %d after flush, want 1", b.RefCount())
	}
	if r.color.Writer() != nil || len(vbo.Readers()) != 0 {
		t.Error("records survive flush")
	}
}

func TestBufferUsageHazards(t *testing.T) {
	r := newRig(t)
	buf := newBuffer(t, r.dev, "shared", UsageVertex|UsageStorage)
	st := r.ctx.State()
	st.VertexBuffers = []*Resource{buf}

	if err := r.ctx.Draw(triangles(3)); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	b := r.batch(t)
	if got := b.BufferUses(buf); got != track.BufferUsesVertex {
		t.Errorf("BufferUses() = %#x, want Vertex", uint32(got))
	}
	if b.Hazards() != 0 {
		t.Errorf("Hazards() = %d after read-only use, want 0", b.Hazards())
	}

	st.VertexBuffers = nil
	st.StorageBuffers = []StorageBinding{{Resource: buf, Writable: true}}
	if err := r.ctx.Draw(triangles(3)); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if b.Hazards() != 1 {
		t.Errorf("Hazards() = %d after vertex then storage write, want 1", b.Hazards())
	}
	if !b.Writes(buf) || !b.Reads(buf) {
		t.Error("storage write not recorded next to the vertex read")
	}
}

func TestBatchResources(t *testing.T) {
	r := newRig(t)
	vbo := newBuffer(t, r.dev, "vbo", UsageVertex)
	r.ctx.State().VertexBuffers = []*Resource{vbo}
	for range 2 {
		if err := r.ctx.Draw(triangles(3)); err != nil {
			t.Fatalf("Draw() error = %v", err)
		}
	}
	b := r.batch(t)

	got := b.Resources()
	want := []*Resource{r.color, vbo, b.Query()}
	if len(got) != len(want) {
		t.Fatalf("Resources() = %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Resources()[%d] = %q, want %q", i, got[i].Label(), want[i].Label())
		}
	}

	vbo.Destroy()
	if n := len(b.Resources()); n != 2 {
		t.Errorf("Resources() after Destroy = %d entries, want 2", n)
	}
}
