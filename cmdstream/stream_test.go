package cmdstream

import (
	"errors"
	"testing"
)

func TestStreamEmitOverflow(t *testing.T) {
	s, err := New("draw", 4)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.Emit(1, 2, 3); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	if got := s.Remaining(); got != 1 {
		t.Errorf("Remaining() = %d, want 1", got)
	}

	err = s.Emit(4, 5)
	if !errors.Is(err, ErrOverflow) {
		t.Fatalf("Emit() error = %v, want ErrOverflow", err)
	}
	if s.Len() != 3 {
		t.Errorf("Len() = %d after failed Emit, want 3", s.Len())
	}
	if s.Cap() != 4 {
		t.Errorf("Cap() = %d, want 4 (streams never grow)", s.Cap())
	}
}

func TestNewInvalidCapacity(t *testing.T) {
	for _, c := range []int{0, -1} {
		if _, err := New("x", c); !errors.Is(err, ErrInvalidCapacity) {
			t.Errorf("New(%d) error = %v, want ErrInvalidCapacity", c, err)
		}
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	tests := []struct {
		op Opcode
		n  int
	}{
		{OpNop, 0},
		{OpCall, 1},
		{OpBackendBase + 3, 17},
		{0xFF, MaxPayload},
	}
	for _, tt := range tests {
		op, n, ok := ParseHeader(Header(tt.op, tt.n))
		if !ok || op != tt.op || n != tt.n {
			t.Errorf("ParseHeader(Header(%v, %d)) = %v, %d, %v", tt.op, tt.n, op, n, ok)
		}
	}
	if _, _, ok := ParseHeader(0x1234); ok {
		t.Error("ParseHeader(raw word) ok = true, want false")
	}
}

func TestPackets(t *testing.T) {
	s, _ := New("gmem", 16)
	if err := s.Packet(OpBackendBase, 7, 8); err != nil {
		t.Fatal(err)
	}
	if err := s.Packet(OpNop); err != nil {
		t.Fatal(err)
	}

	var ops []Opcode
	var payloads int
	for p, err := range s.Packets() {
		if err != nil {
			t.Fatalf("Packets() error = %v", err)
		}
		ops = append(ops, p.Op)
		payloads += len(p.Payload)
	}
	if len(ops) != 2 || ops[0] != OpBackendBase || ops[1] != OpNop {
		t.Errorf("ops = %v", ops)
	}
	if payloads != 2 {
		t.Errorf("payload words = %d, want 2", payloads)
	}
}

func TestPacketsMalformed(t *testing.T) {
	s, _ := New("bad", 4)
	// Header announcing three payload words followed by only one.
	_ = s.Emit(Header(OpNop, 3), 0)

	var gotErr error
	for _, err := range s.Packets() {
		gotErr = err
	}
	if !errors.Is(gotErr, ErrMalformed) {
		t.Errorf("Packets() error = %v, want ErrMalformed", gotErr)
	}
}

func TestReplayExpandsCalls(t *testing.T) {
	root, _ := New("gmem", 32)
	draw, _ := New("draw", 32)
	bin, _ := New("binning", 32)
	root.AddChild(draw)
	root.AddChild(bin)

	_ = draw.Packet(OpBackendBase+1, 10)
	_ = bin.Packet(OpBackendBase+2, 20)

	_ = root.Packet(OpBackendBase, 1)
	if err := root.Call(bin); err != nil {
		t.Fatalf("Call(bin) error = %v", err)
	}
	if err := root.Call(draw); err != nil {
		t.Fatalf("Call(draw) error = %v", err)
	}

	var got []uint32
	err := root.Replay(func(p Packet) error {
		got = append(got, uint32(p.Op), p.Payload[0])
		return nil
	})
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	want := []uint32{uint32(OpBackendBase), 1, uint32(OpBackendBase + 2), 20, uint32(OpBackendBase + 1), 10}
	if len(got) != len(want) {
		t.Fatalf("Replay() visited %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Replay() visited %v, want %v", got, want)
		}
	}
}

func TestCallNotChild(t *testing.T) {
	a, _ := New("a", 4)
	b, _ := New("b", 4)
	if err := a.Call(b); !errors.Is(err, ErrNotChild) {
		t.Errorf("Call() error = %v, want ErrNotChild", err)
	}
}

func TestPacketFloats(t *testing.T) {
	s, _ := New("f", 4)
	if err := s.PacketFloats(OpBackendBase, 1.0, 0.5); err != nil {
		t.Fatal(err)
	}
	w := s.Words()
	if w[1] != 0x3F800000 || w[2] != 0x3F000000 {
		t.Errorf("payload = %08X, want [3F800000 3F000000]", w[1:])
	}
}
