// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package tbdr

import (
	"sync"
)

// Context is a single submission stream: the current framebuffer and
// pipeline state, and the batch collecting their draws and clears.
//
// A Context is not safe for concurrent use. Contexts of one Device may run
// on different goroutines; their resource usage records are serialized by
// the device lock.
type Context struct {
	dev       *Device
	backend   Backend
	executor  TileExecutor
	converter PrimitiveConverter
	cond      func() bool

	fb     Framebuffer
	state  State
	batch  *Batch
	stats  Stats
	closed bool
}

// Stats counts the work of a context.
type Stats struct {
	Draws     int
	Clears    int
	Skipped   int
	Converted int
	Batches   int
	Flushes   int
}

// ContextOption configures a Context during creation.
type ContextOption func(*contextOptions)

type contextOptions struct {
	backend   Backend
	executor  TileExecutor
	converter PrimitiveConverter
	cond      func() bool
}

// WithBackend sets the draw/clear backend. It is required.
func WithBackend(b Backend) ContextOption {
	return func(o *contextOptions) {
		o.backend = b
	}
}

// WithExecutor sets the executor receiving flushed batches. Without one,
// flushed batches are dropped after bookkeeping.
func WithExecutor(e TileExecutor) ContextOption {
	return func(o *contextOptions) {
		o.executor = e
	}
}

// WithPrimitiveConverter sets the converter for topologies the backend
// cannot draw, overriding the default one.
func WithPrimitiveConverter(pc PrimitiveConverter) ContextOption {
	return func(o *contextOptions) {
		o.converter = pc
	}
}

// WithRenderCondition sets the render condition, see SetRenderCondition.
func WithRenderCondition(cond func() bool) ContextOption {
	return func(o *contextOptions) {
		o.cond = cond
	}
}

var (
	defaultConverterMu sync.RWMutex
	defaultConverter   PrimitiveConverter
)

// SetDefaultPrimitiveConverter sets the converter of contexts created
// without WithPrimitiveConverter. The primconv package installs itself on
// import:
//
//	import _ "github.com/gogpu/tbdr/primconv"
func SetDefaultPrimitiveConverter(pc PrimitiveConverter) {
	defaultConverterMu.Lock()
	defer defaultConverterMu.Unlock()
	defaultConverter = pc
}

// DefaultPrimitiveConverter returns the converter set by
// SetDefaultPrimitiveConverter, or nil.
func DefaultPrimitiveConverter() PrimitiveConverter {
	defaultConverterMu.RLock()
	defer defaultConverterMu.RUnlock()
	return defaultConverter
}

// NewContext creates a context drawing through a backend.
//
// Example:
//
//	ctx, err := dev.NewContext(
//	    tbdr.WithBackend(pm4.New()),
//	    tbdr.WithExecutor(exec),
//	)
func (d *Device) NewContext(opts ...ContextOption) (*Context, error) {
	o := contextOptions{converter: DefaultPrimitiveConverter()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.backend == nil {
		return nil, ErrNilBackend
	}

	c := &Context{
		dev:       d,
		backend:   o.backend,
		executor:  o.executor,
		converter: o.converter,
		cond:      o.cond,
	}
	attachLogger(c.executor)
	Logger().Debug("tbdr: context created", "backend", c.backend.Name())
	return c, nil
}

// Device returns the device of c.
func (c *Context) Device() *Device { return c.dev }

// Backend returns the draw/clear backend.
func (c *Context) Backend() Backend { return c.backend }

// State returns the pipeline state for modification.
func (c *Context) State() *State { return &c.state }

// Stats returns the work counters.
func (c *Context) Stats() Stats { return c.stats }

// Framebuffer returns the bound framebuffer.
func (c *Context) Framebuffer() Framebuffer { return c.fb }

// SetFramebuffer binds render targets. Changing the framebuffer flushes the
// active batch, since a batch renders to a single set of targets.
func (c *Context) SetFramebuffer(fb Framebuffer) error {
	if c.closed {
		return ErrContextClosed
	}
	fb.Samples = max(fb.Samples, 1)
	fb.Colors = append([]*Resource(nil), fb.Colors...)
	c.dev.mu.Lock()
	err := fb.validate()
	c.dev.mu.Unlock()
	if err != nil {
		return err
	}
	if c.fb.equal(&fb) {
		return nil
	}

	var flushErr error
	if c.batch != nil {
		flushErr = c.batch.Flush()
	}
	c.fb = fb
	return flushErr
}

// SetScissor enables the scissor rectangle r.
func (c *Context) SetScissor(r Rect) {
	c.state.ScissorEnabled = true
	c.state.Scissor = r
}

// DisableScissor renders to the whole framebuffer.
func (c *Context) DisableScissor() {
	c.state.ScissorEnabled = false
}

// ActiveScissor returns the area draws and clears affect: the scissor
// clipped to the framebuffer, or the whole framebuffer.
func (c *Context) ActiveScissor() Rect {
	bounds := c.fb.Bounds()
	if !c.state.ScissorEnabled {
		return bounds
	}
	return c.state.Scissor.Intersect(bounds)
}

// SetRenderCondition sets a predicate consulted by every draw and clear;
// when it returns false the call is skipped. Nil always renders.
func (c *Context) SetRenderCondition(cond func() bool) {
	c.cond = cond
}

func (c *Context) renderEnabled() bool {
	return c.cond == nil || c.cond()
}

// Batch returns the active batch, creating one when needed.
func (c *Context) Batch() (*Batch, error) {
	if c.closed {
		return nil, ErrContextClosed
	}
	if c.batch != nil {
		return c.batch, nil
	}
	b, err := c.dev.NewBatch(c)
	if err != nil {
		return nil, err
	}
	c.batch = b
	c.stats.Batches++
	return b, nil
}

// Flush flushes the active batch, if any.
func (c *Context) Flush() error {
	if c.batch == nil {
		return nil
	}
	return c.batch.Flush()
}

// Close flushes the active batch and releases the context. Closing twice
// is a no-op.
func (c *Context) Close() error {
	if c.closed {
		return nil
	}
	err := c.Flush()
	c.closed = true
	detachLogger(c.executor)
	return err
}
