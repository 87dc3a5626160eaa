// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package halexec executes flushed batches on a wgpu HAL device.
//
// Each batch becomes one command buffer. In tile mode every bin is a render
// pass scissored to the bin, with load operations derived from the clear
// and restore masks of the batch; the pm4 draw stream is replayed into
// every pass. In bypass mode a single pass covers the framebuffer.
//
// Attachments and buffers are resolved through tbdr.Resource handles:
// textures must carry a hal.TextureView, buffers a hal.Buffer. Index
// buffers in host memory ([]byte handles, as generated by primconv) are
// uploaded for the duration of the submission.
//
// Clears that a load operation cannot express are drawn with a clear
// pipeline compiled from WGSL. Unbound color slots are omitted from the
// passes. Pipelines and bindings of the draws are outside the scope of the
// executor; a PassHook binds them at the start of every pass and again
// after every clear drawn between draws.
package halexec

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/tbdr"
	"github.com/gogpu/tbdr/backend/pm4"
	"github.com/gogpu/tbdr/cmdstream"
	"github.com/gogpu/tbdr/tiles"
)

// Errors returned by the executor.
var (
	// ErrNoDevice is returned when the device or queue is nil.
	ErrNoDevice = errors.New("halexec: device and queue are required")

	// ErrNoHalProvider is returned when a provider does not expose HAL types.
	ErrNoHalProvider = errors.New("halexec: provider does not expose HAL types")

	// ErrNoView is returned for an attachment without a hal.TextureView.
	ErrNoView = errors.New("halexec: attachment has no hal.TextureView")

	// ErrNoBuffer is returned for a buffer without a hal.Buffer or host data.
	ErrNoBuffer = errors.New("halexec: buffer has no hal.Buffer")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("halexec: executor closed")
)

// PassHook is called after each render pass begins, before the draws are
// replayed. It binds the pipeline and resources of the pass.
type PassHook func(pass hal.RenderPassEncoder, b *tbdr.Batch, bin tiles.Bin)

// Option configures an Executor.
type Option func(*Executor)

// WithPassHook sets the hook called at the start of every pass.
func WithPassHook(h PassHook) Option {
	return func(e *Executor) {
		e.hook = h
	}
}

// Stats counts the work of an executor.
type Stats struct {
	Batches      int
	Bypassed     int
	Passes       int
	Draws        int
	Culled       int // draws whose scissor misses the bin
	SkippedBins  int // bins no draw or clear touches
	ClearDraws   int // clears drawn instead of loaded
	Uploads      int
	Submissions  int
	RestoreBytes uint64
	ResolveBytes uint64
}

// Executor renders flushed batches with a HAL device. It implements
// tbdr.TileExecutor and is safe for concurrent use.
type Executor struct {
	device hal.Device
	queue  hal.Queue
	hook   PassHook
	log    atomic.Pointer[slog.Logger]
	clears clearer

	mu      sync.Mutex
	pending []submission
	stats   Stats
	closed  bool
}

// submission is an in-flight command buffer and what it keeps alive.
type submission struct {
	index   uint64
	cmd     hal.CommandBuffer
	enc     hal.CommandEncoder
	uploads []hal.Buffer
}

// New returns an executor submitting to queue.
func New(device hal.Device, queue hal.Queue, opts ...Option) (*Executor, error) {
	if device == nil || queue == nil {
		return nil, ErrNoDevice
	}
	e := &Executor{device: device, queue: queue, clears: clearer{device: device}}
	for _, opt := range opts {
		opt(e)
	}
	e.log.Store(tbdr.Logger())
	return e, nil
}

// FromProvider returns an executor on the device of a provider, such as a
// gpucontext.DeviceProvider, that implements HalDevice() any and
// HalQueue() any returning hal.Device and hal.Queue.
func FromProvider(provider any, opts ...Option) (*Executor, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHalProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHalProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHalProvider)
	}
	return New(device, queue, opts...)
}

// SetLogger sets the executor logger. Contexts using the executor keep it
// in sync with tbdr.SetLogger.
func (e *Executor) SetLogger(l *slog.Logger) {
	if l == nil {
		l = tbdr.Logger()
	}
	e.log.Store(l)
}

func (e *Executor) logger() *slog.Logger { return e.log.Load() }

// Stats returns the work counters.
func (e *Executor) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Pending returns the number of submissions not yet known to be complete.
func (e *Executor) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// ExecuteTiles records and submits b.
func (e *Executor) ExecuteTiles(b *tbdr.Batch) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	e.reclaim(e.queue.PollCompleted())

	plan, err := PlanBatch(b)
	if err != nil {
		return err
	}
	e.logger().Debug("halexec: executing batch",
		"seqno", b.Seqno(),
		"mode", plan.Mode,
		"reason", plan.Reason,
		"layout", plan.Layout)

	label := fmt.Sprintf("tbdr.batch%d", b.Seqno())
	enc, err := e.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return fmt.Errorf("halexec: create encoder: %w", err)
	}
	if err := enc.BeginEncoding(label); err != nil {
		enc.Destroy()
		return fmt.Errorf("halexec: begin encoding: %w", err)
	}

	r := &recorder{
		e:         e,
		b:         b,
		plan:      plan,
		resources: make(map[uint32]*tbdr.Resource),
		uploaded:  make(map[*tbdr.Resource]hal.Buffer),
	}
	for _, res := range b.Resources() {
		r.resources[uint32(res.Index())] = res
	}

	for i, bin := range plan.Layout.Bins {
		if !plan.Visible.Has(i) {
			e.stats.SkippedBins++
			continue
		}
		if err = r.renderBin(enc, bin); err != nil {
			break
		}
	}

	var cmd hal.CommandBuffer
	if err == nil {
		cmd, err = enc.EndEncoding()
	} else {
		enc.DiscardEncoding()
	}
	var index uint64
	if err == nil {
		index, err = e.queue.Submit([]hal.CommandBuffer{cmd})
		if err != nil {
			e.device.FreeCommandBuffer(cmd)
		}
	}
	if err != nil {
		r.destroyUploads()
		enc.Destroy()
		return err
	}

	e.pending = append(e.pending, submission{index: index, cmd: cmd, enc: enc, uploads: r.uploads()})
	e.stats.Batches++
	e.stats.Submissions++
	if plan.Mode == ModeBypass {
		e.stats.Bypassed++
	}
	return nil
}

// reclaim frees the submissions completed up to index completed.
func (e *Executor) reclaim(completed uint64) {
	live := e.pending[:0]
	for _, s := range e.pending {
		if s.index > completed {
			live = append(live, s)
			continue
		}
		e.release(s)
	}
	clear(e.pending[len(live):])
	e.pending = live
}

func (e *Executor) release(s submission) {
	e.device.FreeCommandBuffer(s.cmd)
	s.enc.Destroy()
	for _, buf := range s.uploads {
		e.device.DestroyBuffer(buf)
	}
}

// Close waits for the device to idle and frees every submission. The
// device and queue stay owned by the caller.
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	err := e.device.WaitIdle()
	for _, s := range e.pending {
		e.release(s)
	}
	e.pending = nil
	e.clears.destroy()
	if err != nil {
		return fmt.Errorf("halexec: wait idle: %w", err)
	}
	return nil
}

// recorder encodes one batch.
type recorder struct {
	e         *Executor
	b         *tbdr.Batch
	plan      *Plan
	resources map[uint32]*tbdr.Resource
	uploaded  map[*tbdr.Resource]hal.Buffer
}

func (r *recorder) renderBin(enc hal.CommandEncoder, bin tiles.Bin) error {
	desc, err := r.passDescriptor(bin.Rect)
	if err != nil {
		return err
	}
	// Uploads are recorded before the pass begins.
	if err := r.prepareUploads(); err != nil {
		return err
	}

	pass := enc.BeginRenderPass(desc)
	err = r.replayClears(pass, bin.Rect)
	if err == nil {
		setScissor(pass, bin.Rect)
		r.bind(pass, bin)
		err = r.replay(pass, bin)
	}
	pass.End()
	if err != nil {
		return err
	}

	restore, resolve := r.plan.Traffic(bin.Rect)
	r.e.stats.Passes++
	r.e.stats.RestoreBytes += restore
	r.e.stats.ResolveBytes += resolve
	return nil
}

func (r *recorder) passDescriptor(bin tbdr.Rect) (*hal.RenderPassDescriptor, error) {
	fb := r.b.Framebuffer()
	desc := &hal.RenderPassDescriptor{
		Label:            fmt.Sprintf("tbdr.batch%d.bin(%d,%d)", r.b.Seqno(), bin.MinX, bin.MinY),
		ColorAttachments: make([]hal.RenderPassColorAttachment, 0, len(fb.Colors)),
	}
	for i, c := range fb.Colors {
		if c == nil {
			continue
		}
		view, ok := c.Handle().(hal.TextureView)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrNoView, c.Label())
		}
		desc.ColorAttachments = append(desc.ColorAttachments, hal.RenderPassColorAttachment{
			View:       view,
			LoadOp:     r.plan.LoadOp(tbdr.BufferColorN(i), bin),
			StoreOp:    r.plan.StoreOp(tbdr.BufferColorN(i)),
			ClearValue: r.b.ClearColor(i),
		})
	}
	if zs := fb.DepthStencil; zs != nil {
		view, ok := zs.Handle().(hal.TextureView)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrNoView, zs.Label())
		}
		att := &hal.RenderPassDepthStencilAttachment{View: view}
		if zs.Format().HasDepth() {
			att.DepthLoadOp = r.plan.LoadOp(tbdr.BufferDepth, bin)
			att.DepthStoreOp = r.plan.StoreOp(tbdr.BufferDepth)
			att.DepthClearValue = r.b.ClearDepth()
		}
		if zs.Format().HasStencil() {
			att.StencilLoadOp = r.plan.LoadOp(tbdr.BufferStencil, bin)
			att.StencilStoreOp = r.plan.StoreOp(tbdr.BufferStencil)
			att.StencilClearValue = r.b.ClearStencil()
		}
		desc.DepthStencilAttachment = att
	}
	return desc, nil
}

// prepareUploads copies host index data referenced by the draw stream into
// device buffers.
func (r *recorder) prepareUploads() error {
	return r.b.DrawStream().Replay(func(p cmdstream.Packet) error {
		switch {
		case p.Op == pm4.OpDrawIndex:
			_, err := r.buffer(p.Payload[7])
			return err
		case p.Op == pm4.OpDrawIndirect && p.Payload[1] != 0:
			_, err := r.buffer(p.Payload[5])
			return err
		}
		return nil
	})
}

// buffer resolves the device buffer of the resource with tracker index idx.
func (r *recorder) buffer(idx uint32) (hal.Buffer, error) {
	res, ok := r.resources[idx]
	if !ok {
		return nil, fmt.Errorf("%w: tracker index %d is not recorded in batch %d", ErrNoBuffer, idx, r.b.Seqno())
	}
	switch h := res.Handle().(type) {
	case hal.Buffer:
		return h, nil
	case []byte:
		if buf, ok := r.uploaded[res]; ok {
			return buf, nil
		}
		buf, err := r.e.device.CreateBuffer(&hal.BufferDescriptor{
			Label: res.Label(),
			Size:  uint64(len(h)),
			Usage: gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, fmt.Errorf("halexec: upload %q: %w", res.Label(), err)
		}
		if err := r.e.queue.WriteBuffer(buf, 0, h); err != nil {
			r.e.device.DestroyBuffer(buf)
			return nil, fmt.Errorf("halexec: upload %q: %w", res.Label(), err)
		}
		r.uploaded[res] = buf
		r.e.stats.Uploads++
		return buf, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNoBuffer, res.Label())
}

func (r *recorder) uploads() []hal.Buffer {
	out := make([]hal.Buffer, 0, len(r.uploaded))
	for _, buf := range r.uploaded {
		out = append(out, buf)
	}
	return out
}

func (r *recorder) destroyUploads() {
	for _, buf := range r.uploaded {
		r.e.device.DestroyBuffer(buf)
	}
}

func (r *recorder) bind(pass hal.RenderPassEncoder, bin tiles.Bin) {
	if hook := r.e.hook; hook != nil {
		hook(pass, r.b, bin)
	}
}

// replay issues the draws of the batch into pass, clipped to bin.
func (r *recorder) replay(pass hal.RenderPassEncoder, bin tiles.Bin) error {
	visible := true
	scissor := bin.Rect
	return r.b.DrawStream().Replay(func(p cmdstream.Packet) error {
		w := p.Payload
		switch p.Op {
		case pm4.OpScissor:
			scissor = pm4.UnpackRect(w[0], w[1]).Intersect(bin.Rect)
			visible = !scissor.Empty()
			if visible {
				setScissor(pass, scissor)
			}
		case pm4.OpClearColor, pm4.OpClearDepthStencil:
			c, ok := decodeClear(p)
			if !ok {
				return nil
			}
			drawn, err := r.drawClear(pass, c, bin.Rect)
			if err != nil || !drawn {
				return err
			}
			if visible {
				setScissor(pass, scissor)
			}
			r.bind(pass, bin)
		case pm4.OpDrawAuto:
			if !visible {
				r.e.stats.Culled++
				return nil
			}
			pass.Draw(w[1], w[2], w[3], w[4])
			r.e.stats.Draws++
		case pm4.OpDrawIndex:
			if !visible {
				r.e.stats.Culled++
				return nil
			}
			buf, err := r.buffer(w[7])
			if err != nil {
				return err
			}
			pass.SetIndexBuffer(buf, indexFormat(w[5]), uint64(w[8]))
			pass.DrawIndexed(w[1], w[2], w[3], int32(w[6]), w[4])
			r.e.stats.Draws++
		case pm4.OpDrawIndirect:
			if !visible {
				r.e.stats.Culled++
				return nil
			}
			args, ok := r.resources[w[2]]
			if !ok {
				return fmt.Errorf("%w: indirect arguments at tracker index %d", ErrNoBuffer, w[2])
			}
			buf, ok := args.Handle().(hal.Buffer)
			if !ok {
				return fmt.Errorf("%w: indirect arguments %q", ErrNoBuffer, args.Label())
			}
			if w[1] == 0 {
				pass.DrawIndirect(buf, uint64(w[3]))
				r.e.stats.Draws++
				return nil
			}
			ib, err := r.buffer(w[5])
			if err != nil {
				return err
			}
			pass.SetIndexBuffer(ib, indexFormat(w[4]), uint64(w[6]))
			pass.DrawIndexedIndirect(buf, uint64(w[3]))
			r.e.stats.Draws++
		}
		return nil
	})
}

func indexFormat(size uint32) gputypes.IndexFormat {
	if size == 1 {
		return gputypes.IndexFormatUint32
	}
	return gputypes.IndexFormatUint16
}

func setScissor(pass hal.RenderPassEncoder, r tbdr.Rect) {
	pass.SetScissorRect(r.MinX, r.MinY, r.Width(), r.Height())
}
