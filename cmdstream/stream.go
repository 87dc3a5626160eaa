// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package cmdstream provides fixed-capacity GPU command streams.
//
// A Stream is a sequence of 32-bit packets. Streams never grow: a packet
// that does not fit fails with ErrOverflow, and the owner is expected to
// flush its work before capacity runs out. Streams form a tree: a root
// stream owns its children and reaches them through Call packets, which
// Replay expands in place.
package cmdstream

import (
	"errors"
	"fmt"
	"math"
)

// Stream errors.
var (
	// ErrOverflow is returned when a packet exceeds the remaining capacity.
	ErrOverflow = errors.New("cmdstream: packet exceeds remaining capacity")

	// ErrInvalidCapacity is returned when a stream is requested with a
	// non-positive capacity.
	ErrInvalidCapacity = errors.New("cmdstream: invalid capacity")

	// ErrFreed is returned when writing to a stream that was deleted.
	ErrFreed = errors.New("cmdstream: stream freed")

	// ErrExhausted is returned when an allocator has no streams left.
	ErrExhausted = errors.New("cmdstream: allocator exhausted")

	// ErrNotChild is returned when calling a stream that is not a child
	// of the caller.
	ErrNotChild = errors.New("cmdstream: stream is not a child")

	// ErrMalformed is returned by Replay for a truncated or unknown packet.
	ErrMalformed = errors.New("cmdstream: malformed packet")
)

// Stream is a fixed-capacity command stream.
type Stream struct {
	label    string
	buf      []uint32
	children []*Stream
	freed    bool
}

// New returns a stream backed by a freshly allocated buffer of capacity
// words. Most callers obtain streams from an Allocator instead.
func New(label string, capacity int) (*Stream, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	return &Stream{label: label, buf: make([]uint32, 0, capacity)}, nil
}

// Label returns the debug label.
func (s *Stream) Label() string { return s.label }

// Len returns the number of words written.
func (s *Stream) Len() int { return len(s.buf) }

// Cap returns the capacity in words.
func (s *Stream) Cap() int { return cap(s.buf) }

// Remaining returns the number of words that can still be written.
func (s *Stream) Remaining() int { return cap(s.buf) - len(s.buf) }

// Words returns the written words. The slice aliases the stream buffer and
// is only valid until the next write or Reset.
func (s *Stream) Words() []uint32 { return s.buf }

// Freed reports whether the stream was returned to its allocator.
func (s *Stream) Freed() bool { return s.freed }

// Emit appends raw words. Either all words are written or none.
func (s *Stream) Emit(words ...uint32) error {
	if s.freed {
		return ErrFreed
	}
	if len(words) > s.Remaining() {
		return fmt.Errorf("%w: %s needs %d words, %d left", ErrOverflow, s.label, len(words), s.Remaining())
	}
	s.buf = append(s.buf, words...)
	return nil
}

// Packet appends a packet with opcode op and the given payload.
func (s *Stream) Packet(op Opcode, payload ...uint32) error {
	if len(payload) > MaxPayload {
		return fmt.Errorf("%w: payload of %d words", ErrMalformed, len(payload))
	}
	if s.freed {
		return ErrFreed
	}
	if 1+len(payload) > s.Remaining() {
		return fmt.Errorf("%w: %s needs %d words, %d left", ErrOverflow, s.label, 1+len(payload), s.Remaining())
	}
	s.buf = append(s.buf, Header(op, len(payload)))
	s.buf = append(s.buf, payload...)
	return nil
}

// PacketFloats appends a packet whose payload is float32 bit patterns.
func (s *Stream) PacketFloats(op Opcode, values ...float32) error {
	payload := make([]uint32, len(values))
	for i, v := range values {
		payload[i] = math.Float32bits(v)
	}
	return s.Packet(op, payload...)
}

// AddChild makes c a child of s. The parent owns its children: they are
// replayed through Call packets and must be deleted no later than s.
func (s *Stream) AddChild(c *Stream) {
	s.children = append(s.children, c)
}

// Children returns the child streams in insertion order.
func (s *Stream) Children() []*Stream { return s.children }

// Call appends a packet that replays child c at this point.
func (s *Stream) Call(c *Stream) error {
	for i, ch := range s.children {
		if ch == c {
			return s.Packet(OpCall, uint32(i))
		}
	}
	return fmt.Errorf("%w: %s in %s", ErrNotChild, c.label, s.label)
}

// Reset discards the written words, keeping capacity and children.
func (s *Stream) Reset() {
	s.buf = s.buf[:0]
}

// Replay visits every packet of s in order, expanding Call packets into the
// packets of the referenced child.
func (s *Stream) Replay(visit func(Packet) error) error {
	return s.replay(visit, 0)
}

const maxCallDepth = 8

func (s *Stream) replay(visit func(Packet) error, depth int) error {
	if depth > maxCallDepth {
		return fmt.Errorf("%w: call depth exceeds %d", ErrMalformed, maxCallDepth)
	}
	for p, err := range s.Packets() {
		if err != nil {
			return err
		}
		if p.Op != OpCall {
			if err := visit(p); err != nil {
				return err
			}
			continue
		}
		if len(p.Payload) != 1 || int(p.Payload[0]) >= len(s.children) {
			return fmt.Errorf("%w: bad call in %s", ErrMalformed, s.label)
		}
		if err := s.children[p.Payload[0]].replay(visit, depth+1); err != nil {
			return err
		}
	}
	return nil
}
