package backend

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/tbdr"
)

func TestNullBackendName(t *testing.T) {
	b := NewNullBackend()
	if b.Name() != "null" {
		t.Errorf("Name() = %q, want %q", b.Name(), "null")
	}
}

func TestNullBackendTopologies(t *testing.T) {
	b := NewNullBackend()
	for mode := tbdr.TopologyPoints; mode <= tbdr.TopologyPolygon; mode++ {
		if !b.Topologies().Has(mode) {
			t.Errorf("Topologies() lacks %v", mode)
		}
	}
}

func TestNullBackendCounts(t *testing.T) {
	t.Setenv(tbdr.DebugEnv, "")
	dev, err := tbdr.NewDevice()
	if err != nil {
		t.Fatal(err)
	}
	b := NewNullBackend()
	ctx, err := dev.NewContext(tbdr.WithBackend(b))
	if err != nil {
		t.Fatal(err)
	}
	defer ctx.Close()

	rt, err := dev.NewResource(tbdr.ResourceDescriptor{
		Kind:   tbdr.KindTexture,
		Format: gputypes.TextureFormatRGBA8Unorm,
		Width:  32,
		Height: 32,
		Usage:  tbdr.UsageColorTarget,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := ctx.SetFramebuffer(tbdr.Framebuffer{Width: 32, Height: 32, Colors: []*tbdr.Resource{rt}}); err != nil {
		t.Fatal(err)
	}
	if err := ctx.Draw(&tbdr.DrawInfo{Mode: tbdr.TopologyQuads, Count: 4}); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if err := ctx.Clear(tbdr.BufferColor, gputypes.Color{}, 0, 0); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	draws, clears := b.Counts()
	if draws != 1 || clears != 1 {
		t.Errorf("Counts() = %d, %d, want 1, 1", draws, clears)
	}
	if ctx.Stats().Converted != 0 {
		t.Error("null backend draw went through conversion")
	}
}

func TestRegistryRegisterAndGet(t *testing.T) {
	// Null backend is auto-registered via init()
	if !IsRegistered("null") {
		t.Error("null backend should be auto-registered")
	}

	b := Get("null")
	if b == nil {
		t.Fatal("Get(null) returned nil")
	}
	if b.Name() != "null" {
		t.Errorf("Get(null).Name() = %q, want %q", b.Name(), "null")
	}
}

func TestRegistryGetUnregistered(t *testing.T) {
	b := Get("nonexistent")
	if b != nil {
		t.Error("Get(nonexistent) should return nil")
	}
}

func TestRegistryAvailable(t *testing.T) {
	available := Available()
	if !slices.Contains(available, "null") {
		t.Error("Available() should include 'null'")
	}
	if !slices.IsSorted(available) {
		t.Errorf("Available() = %v, want sorted", available)
	}
}

func TestRegistryDefault(t *testing.T) {
	b := Default()
	if b == nil {
		t.Fatal("Default() returned nil")
	}
	// Null is the default when no packet backend is linked in.
	if b.Name() != "null" || DefaultName() != "null" {
		t.Errorf("Default() = %q, DefaultName() = %q, want null", b.Name(), DefaultName())
	}
}

func TestRegistryPriority(t *testing.T) {
	Register(BackendPM4, func() tbdr.Backend { return &namedBackend{name: BackendPM4} })
	defer Unregister(BackendPM4)

	if got := DefaultName(); got != BackendPM4 {
		t.Errorf("DefaultName() = %q, want %q", got, BackendPM4)
	}
}

func TestRegistryMustDefault(t *testing.T) {
	// Should not panic when null backend is available
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("MustDefault() panicked: %v", r)
		}
	}()
	b := MustDefault()
	if b == nil {
		t.Error("MustDefault() returned nil")
	}
}

func TestRegistryMustDefaultPanics(t *testing.T) {
	Unregister(BackendNull)
	defer Register(BackendNull, func() tbdr.Backend { return &NullBackend{} })

	defer func() {
		if recover() == nil {
			t.Error("MustDefault() did not panic with no backends")
		}
	}()
	MustDefault()
}

func TestNewContext(t *testing.T) {
	t.Setenv(tbdr.DebugEnv, "")
	dev, err := tbdr.NewDevice()
	if err != nil {
		t.Fatal(err)
	}
	ctx, err := NewContext(dev)
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	defer ctx.Close()
	if ctx.Backend().Name() != "null" {
		t.Errorf("Backend().Name() = %q, want null", ctx.Backend().Name())
	}

	custom := &namedBackend{name: "custom"}
	ctx2, err := NewContext(dev, tbdr.WithBackend(custom))
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	defer ctx2.Close()
	if ctx2.Backend() != custom {
		t.Error("an explicit backend must take precedence")
	}
}

func TestNewContextNoBackend(t *testing.T) {
	Unregister(BackendNull)
	defer Register(BackendNull, func() tbdr.Backend { return &NullBackend{} })

	dev, err := tbdr.NewDevice()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewContext(dev); !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("NewContext() error = %v, want ErrBackendNotAvailable", err)
	}
}

func TestRegistryUnregister(t *testing.T) {
	// Register a test backend
	Register("test-backend", func() tbdr.Backend { return &NullBackend{} })

	if !IsRegistered("test-backend") {
		t.Error("test-backend should be registered")
	}

	Unregister("test-backend")

	if IsRegistered("test-backend") {
		t.Error("test-backend should be unregistered")
	}
}

func TestRegistryIsRegistered(t *testing.T) {
	if !IsRegistered("null") {
		t.Error("null should be registered")
	}
	if IsRegistered("nonexistent") {
		t.Error("nonexistent should not be registered")
	}
}

type namedBackend struct {
	NullBackend
	name string
}

func (b *namedBackend) Name() string { return b.name }
