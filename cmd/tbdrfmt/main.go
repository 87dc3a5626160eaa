// Command tbdrfmt prints the hardware encodings of texture and vertex
// formats and the tile layouts of framebuffers.
//
// Usage:
//
//	tbdrfmt [options]
//
// Examples:
//
//	tbdrfmt                         # Every texture format
//	tbdrfmt -f bgra                 # Formats whose name contains "bgra"
//	tbdrfmt -vertex                 # Every vertex format
//	tbdrfmt -layout 1920x1080       # Bins of a 1920x1080 RGBA8 + D24S8 target
//	tbdrfmt -layout 1920x1080 -config tbdr.toml
//	tbdrfmt -packets                # Disassemble a sample batch
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/tbdr"
	"github.com/gogpu/tbdr/backend"
	"github.com/gogpu/tbdr/backend/pm4"
	"github.com/gogpu/tbdr/cmdstream"
	"github.com/gogpu/tbdr/format"
	_ "github.com/gogpu/tbdr/primconv"
	"github.com/gogpu/tbdr/tiles"
)

var (
	filter  = flag.String("f", "", "only formats whose name contains this text")
	vertex  = flag.Bool("vertex", false, "print vertex formats instead of texture formats")
	layout  = flag.String("layout", "", "print the bins of a WIDTHxHEIGHT framebuffer")
	cpp     = flag.Int("cpp", 8, "bytes per pixel over all attachments, for -layout")
	config  = flag.String("config", "", "device configuration file (.toml, .yaml)")
	packets = flag.Bool("packets", false, "disassemble a sample batch")
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("tbdrfmt: ")
	flag.Usage = usage
	flag.Parse()

	cfg := tbdr.DefaultConfig()
	if *config != "" {
		var err error
		if cfg, err = tbdr.LoadConfig(*config); err != nil {
			log.Fatal(err)
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	var err error
	switch {
	case *layout != "":
		err = printLayout(w, *layout, *cpp, cfg)
	case *packets:
		err = printPackets(w, cfg)
	case *vertex:
		printVertexFormats(w, *filter)
	default:
		printTextureFormats(w, *filter)
	}
	if err != nil {
		log.Fatal(err)
	}
	if err := w.Flush(); err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: tbdrfmt [options]\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
}

func matches(name, filter string) bool {
	return filter == "" || strings.Contains(strings.ToLower(name), strings.ToLower(filter))
}

func printTextureFormats(w *tabwriter.Writer, filter string) {
	fmt.Fprintln(w, "FORMAT\tTEX\tCOLOR\tSWAP\tENDIAN\tDEPTH\tUSAGE")
	for _, id := range format.TextureFormats() {
		if !matches(id.String(), filter) {
			continue
		}
		e := format.Translate(id)
		fmt.Fprintf(w, "%s\t%v\t%v\t%v\t%v\t%v\t%s\n", id, e.Tex, e.Color, e.Swap, e.Endian, e.Depth, usages(e))
	}
}

// usages abbreviates the ways a format can be bound: sampled, color, depth.
func usages(e format.Encoding) string {
	var b strings.Builder
	for _, u := range []struct {
		ok   bool
		flag byte
	}{{e.Sampleable(), 'S'}, {e.ColorRenderable(), 'C'}, {e.DepthRenderable(), 'D'}} {
		if u.ok {
			b.WriteByte(u.flag)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}

func printVertexFormats(w *tabwriter.Writer, filter string) {
	fmt.Fprintln(w, "FORMAT\tDATA\tNUM")
	for _, vf := range format.VertexFormats() {
		if !matches(vf.String(), filter) {
			continue
		}
		e := format.TranslateVertex(vf)
		fmt.Fprintf(w, "%s\t%v\t%v\n", vf, e.Data, e.Num)
	}
}

func printLayout(w *tabwriter.Writer, size string, cpp int, cfg tbdr.Config) error {
	var width, height uint32
	if _, err := fmt.Sscanf(size, "%dx%d", &width, &height); err != nil {
		return fmt.Errorf("bad -layout %q: %w", size, err)
	}
	l, err := tiles.Compute(width, height, cpp, cfg.GmemSize, tiles.Options{
		AlignW: cfg.BinAlignW,
		AlignH: cfg.BinAlignH,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%dx%d at %d bytes per pixel, %d bytes of gmem: %v\n", width, height, cpp, cfg.GmemSize, l)
	fmt.Fprintln(w, "BIN\tX\tY\tW\tH")
	for i, bin := range l.Bins {
		fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\n", i, bin.Rect.MinX, bin.Rect.MinY, bin.Rect.Width(), bin.Rect.Height())
	}
	return nil
}

// printPackets records a clear and a few draws with the default backend and
// prints the resulting streams.
func printPackets(w *tabwriter.Writer, cfg tbdr.Config) error {
	dev, err := tbdr.NewDevice(tbdr.WithConfig(cfg))
	if err != nil {
		return err
	}
	ctx, err := backend.NewContext(dev)
	if err != nil {
		return err
	}
	defer ctx.Close()

	color, err := dev.NewResource(tbdr.ResourceDescriptor{
		Label: "color", Kind: tbdr.KindTexture, Format: gputypes.TextureFormatBGRA8Unorm,
		Width: 256, Height: 256, Usage: tbdr.UsageColorTarget,
	})
	if err != nil {
		return err
	}
	if err := ctx.SetFramebuffer(tbdr.Framebuffer{Width: 256, Height: 256, Colors: []*tbdr.Resource{color}}); err != nil {
		return err
	}
	if err := ctx.Clear(tbdr.BufferColor, gputypes.Color{A: 1}, 1, 0); err != nil {
		return err
	}
	ctx.SetScissor(tbdr.Rect{MinX: 16, MinY: 16, MaxX: 128, MaxY: 128})
	for _, info := range []*tbdr.DrawInfo{
		{Mode: tbdr.TopologyTriangles, Count: 3},
		{Mode: tbdr.TopologyQuads, Count: 8},
	} {
		if err := ctx.Draw(info); err != nil {
			return err
		}
	}

	b, err := ctx.Batch()
	if err != nil {
		return err
	}
	if ctx.Backend().Name() == backend.BackendPM4 {
		if err := b.GmemStream().Call(b.DrawStream()); err != nil {
			return err
		}
	}
	fmt.Fprintf(w, "backend %s, %v\n", ctx.Backend().Name(), b)
	for _, s := range []*cmdstream.Stream{b.GmemStream(), b.BinningStream()} {
		lines, err := pm4.Disassemble(s)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "\n%s (%d words):\n", s.Label(), len(s.Words()))
		for _, line := range lines {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	return nil
}
