// Package backend provides a pluggable registry of draw backends.
//
// A backend turns the draws and clears of a tbdr.Context into the command
// packets of one GPU family, written into the streams of the active batch.
// The tbdr package owns batching and resource tracking; backends own the
// encoding.
//
// # Backend Registration
//
// Backends are registered via init() functions and selected at runtime.
// The null backend is automatically registered on import:
//
//	import _ "github.com/gogpu/tbdr/backend"
//
// The packet backend registers itself the same way:
//
//	import _ "github.com/gogpu/tbdr/backend/pm4"
//
// # Backend Selection
//
// Use Default() to get the best available backend, or Get() to request
// a specific backend by name:
//
//	// Get the default (best available) backend
//	b := backend.Default()
//
//	// Or request a specific backend
//	b := backend.Get("pm4")
//
// # Usage with Context
//
//	dev, err := tbdr.NewDevice()
//	if err != nil {
//		log.Fatal(err)
//	}
//	ctx, err := backend.NewContext(dev, tbdr.WithExecutor(exec))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer ctx.Close()
//
// # Available Backends
//
// - "pm4": type-3 command packets for tile-based GPUs
// - "null": records nothing (always available)
package backend
