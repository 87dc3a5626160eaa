package cmdstream

import (
	"fmt"
	"iter"
)

// Opcode identifies a packet.
type Opcode uint8

// Opcodes shared by all streams. Backends define their own opcodes above
// OpBackendBase.
const (
	OpNop  Opcode = 0x10
	OpCall Opcode = 0x3F

	OpBackendBase Opcode = 0x40
)

// MaxPayload is the largest payload a packet header can describe.
const MaxPayload = 0x3FFF

const packetType3 = 3 << 30

// Header encodes a packet header: type 3, payload length n, opcode op.
func Header(op Opcode, n int) uint32 {
	return packetType3 | uint32(n&MaxPayload)<<16 | uint32(op)
}

// ParseHeader decodes a packet header.
func ParseHeader(w uint32) (op Opcode, n int, ok bool) {
	if w&(3<<30) != packetType3 {
		return 0, 0, false
	}
	return Opcode(w & 0xFF), int(w>>16) & MaxPayload, true
}

// Packet is a decoded packet. Payload aliases the stream buffer.
type Packet struct {
	Op      Opcode
	Payload []uint32
}

// String returns the opcode and payload in hex.
func (p Packet) String() string {
	return fmt.Sprintf("op=0x%02X %08X", uint8(p.Op), p.Payload)
}

// Packets iterates over the packets of s without expanding calls. Iteration
// stops after yielding a non-nil error for a malformed packet.
func (s *Stream) Packets() iter.Seq2[Packet, error] {
	return func(yield func(Packet, error) bool) {
		words := s.buf
		for i := 0; i < len(words); {
			op, n, ok := ParseHeader(words[i])
			if !ok || i+1+n > len(words) {
				yield(Packet{}, fmt.Errorf("%w: %s at word %d", ErrMalformed, s.label, i))
				return
			}
			if !yield(Packet{Op: op, Payload: words[i+1 : i+1+n]}, nil) {
				return
			}
			i += 1 + n
		}
	}
}
