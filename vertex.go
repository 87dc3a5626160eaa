package tbdr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/tbdr/format"
	"github.com/gogpu/tbdr/internal/lru"
)

// VertexElement is one translated vertex attribute.
type VertexElement struct {
	gputypes.VertexAttribute
	Encoding format.VertexEncoding
}

// VertexState is a vertex fetch layout with its hardware encodings,
// translated once at pipeline creation.
type VertexState struct {
	Elements []VertexElement
}

// vertexStateCacheSize bounds the vertex states a device keeps for reuse.
const vertexStateCacheSize = 256

// NewVertexState translates attrs. Formats the hardware cannot fetch yield
// ErrUnsupportedFormat, more than MaxVertexElements attributes
// ErrTooManyAttributes.
//
// Identical layouts return the same *VertexState, so backends comparing
// state pointers program the fetch constants once.
func (d *Device) NewVertexState(attrs []gputypes.VertexAttribute) (*VertexState, error) {
	return d.vertexStates.GetOrCreate(vertexKey(attrs), func() (*VertexState, error) {
		return translateVertexState(attrs)
	})
}

// VertexStateStats returns the use of the vertex state cache.
func (d *Device) VertexStateStats() lru.Stats {
	return d.vertexStates.Stats()
}

func translateVertexState(attrs []gputypes.VertexAttribute) (*VertexState, error) {
	if len(attrs) > MaxVertexElements {
		return nil, fmt.Errorf("%w: %d, at most %d", ErrTooManyAttributes, len(attrs), MaxVertexElements)
	}
	vs := &VertexState{Elements: make([]VertexElement, 0, len(attrs))}
	for i, a := range attrs {
		enc := format.TranslateVertex(a.Format)
		if !enc.Valid() {
			return nil, fmt.Errorf("%w: attribute %d (location %d): %v",
				ErrUnsupportedFormat, i, a.ShaderLocation, a.Format)
		}
		vs.Elements = append(vs.Elements, VertexElement{VertexAttribute: a, Encoding: enc})
	}
	return vs, nil
}

func vertexKey(attrs []gputypes.VertexAttribute) string {
	var b strings.Builder
	buf := make([]byte, 0, 32)
	for _, a := range attrs {
		buf = strconv.AppendUint(buf[:0], uint64(a.Format), 16)
		buf = append(buf, ':')
		buf = strconv.AppendUint(buf, a.Offset, 16)
		buf = append(buf, ':')
		buf = strconv.AppendUint(buf, uint64(a.ShaderLocation), 16)
		buf = append(buf, ';')
		b.Write(buf)
	}
	return b.String()
}
