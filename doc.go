// Package tbdr tracks the deferred work of a tile-based GPU: batches of
// draws and clears, the resources they read and write, and the tile memory
// bookkeeping that decides what is loaded, cleared and stored per tile.
//
// # Overview
//
// A [Device] allocates batches and resources. A [Context] holds the
// framebuffer and pipeline state of one submission stream and records its
// draws and clears into the active [Batch]:
//
//	dev, err := tbdr.NewDevice()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ctx, err := dev.NewContext(tbdr.WithBackend(pm4.New()), tbdr.WithExecutor(exec))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ctx.Close()
//
//	_ = ctx.SetFramebuffer(tbdr.Framebuffer{Width: 800, Height: 600, Colors: []*tbdr.Resource{rt}})
//	_ = ctx.Clear(tbdr.BufferColor, gputypes.Color{A: 1}, 1, 0)
//	_ = ctx.Draw(&tbdr.DrawInfo{Mode: tbdr.TopologyTriangles, Count: 3})
//	_ = ctx.Flush()
//
// # Batches
//
// A batch owns three fixed-capacity command streams: gmem, the root, which
// drives the tiles, and its children draw and binning. The batch tracks
// which buffers were cleared, which must be restored into tile memory
// before rendering and which must be resolved to memory afterwards, and why
// tile memory is needed at all ([GmemReason]). Streams never grow: when the
// draw stream runs low the batch is flushed to the [TileExecutor].
//
// Batches are reference counted. The context and every pending resource
// usage record hold a reference; the last release frees the streams.
//
// # Resource tracking
//
// Every resource has a dense tracker index. Draws and clears record, under
// one device-wide lock per call, which resources the batch reads and
// writes. The records are dropped when the batch is flushed.
//
// # Formats
//
// Resource and vertex formats are translated to hardware encodings by the
// [github.com/gogpu/tbdr/format] package when they are created, so
// unsupported formats fail early with [ErrUnsupportedFormat].
//
// # Logging
//
// tbdr is silent by default. See [SetLogger].
package tbdr
