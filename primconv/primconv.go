// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package primconv draws topologies a backend cannot draw natively.
//
// Fans, quads, quad strips, polygons and line loops, and strips on list-only
// backends, are rewritten into an index list of triangles or lines. The
// generated index buffer lives in host memory and is referenced by the
// batch that draws it; it is destroyed once that batch has been flushed.
//
// Importing the package installs Default as the converter of new contexts:
//
//	import _ "github.com/gogpu/tbdr/primconv"
package primconv

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/tbdr"
)

// Errors returned by ConvertAndDraw.
var (
	// ErrIndirect is returned for indirect draws, whose vertex count is not
	// known on the host.
	ErrIndirect = errors.New("primconv: cannot convert an indirect draw")

	// ErrNoHostData is returned when the index buffer of a draw has no
	// host memory to read from.
	ErrNoHostData = errors.New("primconv: index buffer has no host data")

	// ErrNoListTopology is returned when the backend draws neither triangle
	// nor line lists.
	ErrNoListTopology = errors.New("primconv: backend has no list topology")
)

// Default is the converter installed by init.
var Default = New()

func init() {
	tbdr.SetDefaultPrimitiveConverter(Default)
}

// IndexReader reads the indices of an index buffer.
type IndexReader interface {
	ReadIndices(r *tbdr.Resource, f gputypes.IndexFormat, offset uint64, start, count uint32) ([]uint32, error)
}

// Uploader creates the index buffer of a converted draw.
type Uploader interface {
	UploadIndices(dev *tbdr.Device, label string, f gputypes.IndexFormat, indices []uint32) (*tbdr.Resource, error)
}

// HostMemory reads and creates index buffers whose handle is a []byte.
type HostMemory struct{}

// ReadIndices calls the package function ReadIndices.
func (HostMemory) ReadIndices(r *tbdr.Resource, f gputypes.IndexFormat, offset uint64, start, count uint32) ([]uint32, error) {
	return ReadIndices(r, f, offset, start, count)
}

// UploadIndices calls IndexBuffer.
func (HostMemory) UploadIndices(dev *tbdr.Device, label string, f gputypes.IndexFormat, indices []uint32) (*tbdr.Resource, error) {
	return IndexBuffer(dev, label, f, indices)
}

// Option configures a Converter.
type Option func(*Converter)

// WithIndexReader sets how source index buffers are read.
func WithIndexReader(r IndexReader) Option {
	return func(cv *Converter) {
		cv.reader = r
	}
}

// WithUploader sets how generated indices become an index buffer.
func WithUploader(u Uploader) Option {
	return func(cv *Converter) {
		cv.uploader = u
	}
}

// Converter rewrites draws into list topologies. It is safe for concurrent
// use by several contexts.
type Converter struct {
	reader   IndexReader
	uploader Uploader

	mu    sync.Mutex
	temps []temp
}

// temp is a generated index buffer and the batch reading it.
type temp struct {
	res   *tbdr.Resource
	batch *tbdr.Batch
}

// New returns a converter working on host memory unless configured
// otherwise.
func New(opts ...Option) *Converter {
	cv := &Converter{reader: HostMemory{}, uploader: HostMemory{}}
	for _, opt := range opts {
		opt(cv)
	}
	return cv
}

// ConvertAndDraw rewrites info into a list draw and submits it to c.
func (cv *Converter) ConvertAndDraw(c *tbdr.Context, info *tbdr.DrawInfo) error {
	if info.Indirect != nil {
		return fmt.Errorf("%w: %v", ErrIndirect, info.Mode)
	}
	target, ok := ListTopology(info.Mode)
	if !ok {
		return fmt.Errorf("%w: %v", tbdr.ErrUnsupportedTopology, info.Mode)
	}
	if !c.Backend().Topologies().Has(target) {
		return fmt.Errorf("%w: %v for %v", ErrNoListTopology, target, info.Mode)
	}
	cv.reap()

	src, err := cv.sourceIndices(info)
	if err != nil {
		return err
	}
	var out []uint32
	for _, run := range splitRestart(src, info) {
		out = Generate(info.Mode, run, out)
	}
	if len(out) == 0 {
		return nil
	}

	f := gputypes.IndexFormatUint16
	for _, i := range out {
		if i >= math.MaxUint16 {
			f = gputypes.IndexFormatUint32
			break
		}
	}
	res, err := cv.uploader.UploadIndices(c.Device(), "primconv.indices", f, out)
	if err != nil {
		return err
	}
	b, err := c.Batch()
	if err != nil {
		res.Destroy()
		return err
	}
	cv.mu.Lock()
	cv.temps = append(cv.temps, temp{res: res, batch: b})
	cv.mu.Unlock()

	draw := &tbdr.DrawInfo{
		Mode:          target,
		Count:         uint32(len(out)),
		InstanceCount: info.InstanceCount,
		StartInstance: info.StartInstance,
		Index:         res,
		IndexFormat:   f,
	}
	if info.Indexed() {
		draw.IndexBias = info.IndexBias
	}
	return c.Draw(draw)
}

// Pending returns the number of generated index buffers not yet released.
func (cv *Converter) Pending() int {
	cv.mu.Lock()
	defer cv.mu.Unlock()
	return len(cv.temps)
}

// reap destroys the index buffers of flushed batches.
func (cv *Converter) reap() {
	cv.mu.Lock()
	defer cv.mu.Unlock()
	live := cv.temps[:0]
	for _, t := range cv.temps {
		if t.batch.Flushed() {
			t.res.Destroy()
			continue
		}
		live = append(live, t)
	}
	clear(cv.temps[len(live):])
	cv.temps = live
}

// Close destroys every generated index buffer. Batches still referencing
// them lose their records, so Close is called after the contexts using the
// converter are closed.
func (cv *Converter) Close() {
	cv.mu.Lock()
	defer cv.mu.Unlock()
	for _, t := range cv.temps {
		t.res.Destroy()
	}
	cv.temps = nil
}

// ListTopology returns the list topology mode is drawn as.
func ListTopology(mode tbdr.Topology) (tbdr.Topology, bool) {
	switch mode {
	case tbdr.TopologyPoints:
		return tbdr.TopologyPoints, true
	case tbdr.TopologyLines, tbdr.TopologyLineStrip, tbdr.TopologyLineLoop:
		return tbdr.TopologyLines, true
	case tbdr.TopologyTriangles, tbdr.TopologyTriangleStrip, tbdr.TopologyTriangleFan,
		tbdr.TopologyQuads, tbdr.TopologyQuadStrip, tbdr.TopologyPolygon:
		return tbdr.TopologyTriangles, true
	}
	return 0, false
}

// sourceIndices returns the vertex numbers of a draw: the index buffer
// contents for indexed draws, Start..Start+Count-1 otherwise.
func (cv *Converter) sourceIndices(info *tbdr.DrawInfo) ([]uint32, error) {
	if !info.Indexed() {
		src := make([]uint32, info.Count)
		for i := range src {
			src[i] = info.Start + uint32(i)
		}
		return src, nil
	}
	return cv.reader.ReadIndices(info.Index, info.IndexFormat, info.IndexOffset, info.Start, info.Count)
}

// splitRestart splits src at the restart index of indexed draws with
// primitive restart enabled.
func splitRestart(src []uint32, info *tbdr.DrawInfo) [][]uint32 {
	if !info.Indexed() || !info.PrimitiveRestart {
		return [][]uint32{src}
	}
	var runs [][]uint32
	begin := 0
	for i, v := range src {
		if v == info.RestartIndex {
			runs = append(runs, src[begin:i])
			begin = i + 1
		}
	}
	return append(runs, src[begin:])
}

// Generate appends the list indices of one primitive run of mode to out.
// Incomplete trailing primitives are dropped.
func Generate(mode tbdr.Topology, v []uint32, out []uint32) []uint32 {
	n := len(v)
	switch mode {
	case tbdr.TopologyPoints:
		out = append(out, v...)
	case tbdr.TopologyLines:
		out = append(out, v[:n-n%2]...)
	case tbdr.TopologyLineStrip:
		for i := 0; i+1 < n; i++ {
			out = append(out, v[i], v[i+1])
		}
	case tbdr.TopologyLineLoop:
		if n < 2 {
			break
		}
		for i := 0; i+1 < n; i++ {
			out = append(out, v[i], v[i+1])
		}
		out = append(out, v[n-1], v[0])
	case tbdr.TopologyTriangles:
		out = append(out, v[:n-n%3]...)
	case tbdr.TopologyTriangleStrip:
		for i := 0; i+2 < n; i++ {
			if i%2 == 0 {
				out = append(out, v[i], v[i+1], v[i+2])
			} else {
				out = append(out, v[i+1], v[i], v[i+2])
			}
		}
	case tbdr.TopologyTriangleFan, tbdr.TopologyPolygon:
		for i := 1; i+1 < n; i++ {
			out = append(out, v[0], v[i], v[i+1])
		}
	case tbdr.TopologyQuads:
		for i := 0; i+3 < n; i += 4 {
			out = append(out,
				v[i], v[i+1], v[i+3],
				v[i+1], v[i+2], v[i+3])
		}
	case tbdr.TopologyQuadStrip:
		for i := 0; i+3 < n; i += 2 {
			out = append(out,
				v[i], v[i+1], v[i+3],
				v[i], v[i+3], v[i+2])
		}
	}
	return out
}

// IndexBuffer creates an index buffer resource holding indices in host
// memory.
func IndexBuffer(dev *tbdr.Device, label string, f gputypes.IndexFormat, indices []uint32) (*tbdr.Resource, error) {
	size := f.Size()
	if size == 0 {
		return nil, fmt.Errorf("%w: index format %v", tbdr.ErrInvalidDescriptor, f)
	}
	data := make([]byte, uint32(len(indices))*size)
	for i, v := range indices {
		if size == 2 {
			binary.LittleEndian.PutUint16(data[i*2:], uint16(v))
		} else {
			binary.LittleEndian.PutUint32(data[i*4:], v)
		}
	}
	return dev.NewResource(tbdr.ResourceDescriptor{
		Label:  label,
		Kind:   tbdr.KindBuffer,
		Size:   uint64(len(data)),
		Usage:  tbdr.UsageIndex,
		Handle: data,
	})
}

// ReadIndices reads count indices starting at index start from a host
// memory index buffer.
func ReadIndices(r *tbdr.Resource, f gputypes.IndexFormat, offset uint64, start, count uint32) ([]uint32, error) {
	data, ok := r.Handle().([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoHostData, r.Label())
	}
	size := uint64(f.Size())
	if size == 0 {
		return nil, fmt.Errorf("%w: index format %v", tbdr.ErrInvalidDescriptor, f)
	}
	begin := offset + uint64(start)*size
	end := begin + uint64(count)*size
	if end > uint64(len(data)) {
		return nil, fmt.Errorf("primconv: %q: indices %d..%d out of range", r.Label(), start, start+count)
	}
	out := make([]uint32, count)
	for i := range out {
		p := begin + uint64(i)*size
		if size == 2 {
			out[i] = uint32(binary.LittleEndian.Uint16(data[p:]))
		} else {
			out[i] = binary.LittleEndian.Uint32(data[p:])
		}
	}
	return out, nil
}
