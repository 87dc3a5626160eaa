// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package tbdr

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/gogpu/wgpu/core/track"

	"github.com/gogpu/tbdr/cmdstream"
	"github.com/gogpu/tbdr/internal/lru"
)

// Device is the batch allocator of one GPU. It hands out batch sequence
// numbers and resource tracker indices, and holds the coarse lock guarding
// every resource usage record of its contexts.
//
// A Device is safe for concurrent use. Contexts created from it are not.
type Device struct {
	cfg     Config
	streams cmdstream.Allocator

	// mu guards Resource.writer, Resource.readers and the read/write sets
	// and resource lists of every batch.
	mu sync.Mutex

	seq      atomic.Uint64
	batches  atomic.Int64
	trackers *track.SharedTrackerIndexAllocator

	vertexStates *lru.Cache[string, *VertexState]
}

// NewDevice creates a device. Debug flags from the TBDR_DEBUG environment
// variable are added to the configured ones.
//
// Example:
//
//	cfg, err := tbdr.LoadConfig("tbdr.toml")
//	if err != nil {
//	    return err
//	}
//	dev, err := tbdr.NewDevice(tbdr.WithConfig(cfg))
func NewDevice(opts ...Option) (*Device, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if env, ok := os.LookupEnv(DebugEnv); ok {
		flags, err := ParseDebug(env)
		if err != nil {
			Logger().Warn("tbdr: ignoring debug flags", "env", DebugEnv, "err", err)
		}
		cfg.Debug |= flags
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d := &Device{
		cfg:      cfg,
		streams:  cfg.StreamAllocator,
		trackers: track.NewSharedTrackerIndexAllocator(),

		vertexStates: lru.New[string, *VertexState](vertexStateCacheSize),
	}
	if d.streams == nil {
		d.streams = cmdstream.NewPool(cfg.StreamCapacity)
	}

	Logger().Info("tbdr: device created",
		"streamCapacity", cfg.StreamCapacity,
		"flushThreshold", cfg.FlushThreshold,
		"debug", cfg.Debug.String())
	return d, nil
}

// Config returns the device configuration.
func (d *Device) Config() Config {
	return d.cfg
}

// LiveBatches returns the number of batches created and not yet destroyed.
func (d *Device) LiveBatches() int {
	return int(d.batches.Load())
}

// LiveResources returns the number of tracker indices in use.
func (d *Device) LiveResources() int {
	return d.trackers.Size()
}

// nextSeqno returns the next batch sequence number, starting at 1.
func (d *Device) nextSeqno() uint64 {
	return d.seq.Add(1)
}
