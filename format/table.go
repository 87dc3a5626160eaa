package format

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

func un(n uint8) Channel { return Channel{Size: n, Type: ChannelUnsigned, Normalized: true} }
func sn(n uint8) Channel { return Channel{Size: n, Type: ChannelSigned, Normalized: true} }
func up(n uint8) Channel { return Channel{Size: n, Type: ChannelUnsigned, PureInteger: true} }
func sp(n uint8) Channel { return Channel{Size: n, Type: ChannelSigned, PureInteger: true} }
func fl(n uint8) Channel { return Channel{Size: n, Type: ChannelFloat} }
func vd(n uint8) Channel { return Channel{Size: n, Type: ChannelVoid} }

const (
	sx = SwizzleX
	sy = SwizzleY
	sz = SwizzleZ
	sw = SwizzleW
	s0 = SwizzleZero
	s1 = SwizzleOne
	s_ = SwizzleNone
)

var (
	swzX001 = [4]Swizzle{sx, s0, s0, s1}
	swzXY01 = [4]Swizzle{sx, sy, s0, s1}
	swzXYZ1 = [4]Swizzle{sx, sy, sz, s1}
	swzXYZW = [4]Swizzle{sx, sy, sz, sw}
	swzZYXW = [4]Swizzle{sz, sy, sx, sw}
	swzX___ = [4]Swizzle{sx, s_, s_, s_}
	swz_X__ = [4]Swizzle{s_, sx, s_, s_}
	swzXY__ = [4]Swizzle{sx, sy, s_, s_}
)

var (
	textureTable map[gputypes.TextureFormat]*Descriptor
	vertexTable  map[gputypes.VertexFormat]*Descriptor
)

// Describe returns the descriptor of a texture format, or nil when the
// format is undefined or unknown.
func Describe(id gputypes.TextureFormat) *Descriptor {
	return textureTable[id]
}

// DescribeVertex returns the descriptor of a vertex attribute format, or nil
// when the format is undefined or unknown.
func DescribeVertex(vf gputypes.VertexFormat) *Descriptor {
	return vertexTable[vf]
}

// TextureFormats returns every texture format with a descriptor, in
// ascending identifier order.
func TextureFormats() []gputypes.TextureFormat {
	out := make([]gputypes.TextureFormat, 0, len(textureTable))
	for id := gputypes.TextureFormatR8Unorm; id <= gputypes.TextureFormatASTC12x12UnormSrgb; id++ {
		if _, ok := textureTable[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// VertexFormats returns every vertex format with a descriptor, in ascending
// identifier order.
func VertexFormats() []gputypes.VertexFormat {
	out := make([]gputypes.VertexFormat, 0, len(vertexTable))
	for vf := gputypes.VertexFormatUint8x2; vf <= gputypes.VertexFormatUnorm1010102; vf++ {
		if _, ok := vertexTable[vf]; ok {
			out = append(out, vf)
		}
	}
	return out
}

func plain(id gputypes.TextureFormat, cs Colorspace, swz [4]Swizzle, ch ...Channel) {
	d := &Descriptor{
		Format:     id,
		Name:       id.String(),
		NrChannels: len(ch),
		Swizzle:    swz,
		Colorspace: cs,
		Layout:     LayoutPlain,
	}
	copy(d.Channels[:], ch)
	textureTable[id] = d.finalize()
}

func packed(id gputypes.TextureFormat, swz [4]Swizzle, bits int, ch ...Channel) {
	d := &Descriptor{
		Format:     id,
		Name:       id.String(),
		NrChannels: len(ch),
		Swizzle:    swz,
		Layout:     LayoutOther,
		BlockBits:  bits,
	}
	copy(d.Channels[:], ch)
	textureTable[id] = d.finalize()
}

func block(id gputypes.TextureFormat, swz [4]Swizzle, w, h int, bits uint8) {
	cs := ColorspaceRGB
	if id.IsSrgb() {
		cs = ColorspaceSRGB
	}
	d := &Descriptor{
		Format:      id,
		Name:        id.String(),
		NrChannels:  1,
		Swizzle:     swz,
		Colorspace:  cs,
		Layout:      LayoutCompressed,
		BlockWidth:  w,
		BlockHeight: h,
		BlockBits:   int(bits),
	}
	d.Channels[0] = vd(bits)
	textureTable[id] = d.finalize()
}

func vertex(vf gputypes.VertexFormat, swz [4]Swizzle, ch ...Channel) {
	d := &Descriptor{
		Name:       vf.String(),
		NrChannels: len(ch),
		Swizzle:    swz,
		Layout:     LayoutPlain,
	}
	copy(d.Channels[:], ch)
	vertexTable[vf] = d.finalize()
}

// srgbPair registers a linear format and its sRGB twin with identical
// channels.
func srgbPair(lin, srgb gputypes.TextureFormat, swz [4]Swizzle, ch ...Channel) {
	plain(lin, ColorspaceRGB, swz, ch...)
	plain(srgb, ColorspaceSRGB, swz, ch...)
}

func init() {
	textureTable = make(map[gputypes.TextureFormat]*Descriptor, 101)
	vertexTable = make(map[gputypes.VertexFormat]*Descriptor, 31)

	rgb := ColorspaceRGB

	// 8-bit
	plain(gputypes.TextureFormatR8Unorm, rgb, swzX001, un(8))
	plain(gputypes.TextureFormatR8Snorm, rgb, swzX001, sn(8))
	plain(gputypes.TextureFormatR8Uint, rgb, swzX001, up(8))
	plain(gputypes.TextureFormatR8Sint, rgb, swzX001, sp(8))

	// 16-bit
	plain(gputypes.TextureFormatR16Unorm, rgb, swzX001, un(16))
	plain(gputypes.TextureFormatR16Snorm, rgb, swzX001, sn(16))
	plain(gputypes.TextureFormatR16Uint, rgb, swzX001, up(16))
	plain(gputypes.TextureFormatR16Sint, rgb, swzX001, sp(16))
	plain(gputypes.TextureFormatR16Float, rgb, swzX001, fl(16))
	plain(gputypes.TextureFormatRG8Unorm, rgb, swzXY01, un(8), un(8))
	plain(gputypes.TextureFormatRG8Snorm, rgb, swzXY01, sn(8), sn(8))
	plain(gputypes.TextureFormatRG8Uint, rgb, swzXY01, up(8), up(8))
	plain(gputypes.TextureFormatRG8Sint, rgb, swzXY01, sp(8), sp(8))

	// 32-bit
	plain(gputypes.TextureFormatR32Float, rgb, swzX001, fl(32))
	plain(gputypes.TextureFormatR32Uint, rgb, swzX001, up(32))
	plain(gputypes.TextureFormatR32Sint, rgb, swzX001, sp(32))
	plain(gputypes.TextureFormatRG16Unorm, rgb, swzXY01, un(16), un(16))
	plain(gputypes.TextureFormatRG16Snorm, rgb, swzXY01, sn(16), sn(16))
	plain(gputypes.TextureFormatRG16Uint, rgb, swzXY01, up(16), up(16))
	plain(gputypes.TextureFormatRG16Sint, rgb, swzXY01, sp(16), sp(16))
	plain(gputypes.TextureFormatRG16Float, rgb, swzXY01, fl(16), fl(16))
	srgbPair(gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb, swzXYZW,
		un(8), un(8), un(8), un(8))
	plain(gputypes.TextureFormatRGBA8Snorm, rgb, swzXYZW, sn(8), sn(8), sn(8), sn(8))
	plain(gputypes.TextureFormatRGBA8Uint, rgb, swzXYZW, up(8), up(8), up(8), up(8))
	plain(gputypes.TextureFormatRGBA8Sint, rgb, swzXYZW, sp(8), sp(8), sp(8), sp(8))
	srgbPair(gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb, swzZYXW,
		un(8), un(8), un(8), un(8))

	// Packed 32-bit
	plain(gputypes.TextureFormatRGB10A2Uint, rgb, swzXYZW, up(10), up(10), up(10), up(2))
	plain(gputypes.TextureFormatRGB10A2Unorm, rgb, swzXYZW, un(10), un(10), un(10), un(2))
	packed(gputypes.TextureFormatRG11B10Ufloat, swzXYZ1, 32, fl(11), fl(11), fl(10))
	packed(gputypes.TextureFormatRGB9E5Ufloat, swzXYZ1, 32, fl(9), fl(9), fl(9))

	// 64-bit
	plain(gputypes.TextureFormatRG32Float, rgb, swzXY01, fl(32), fl(32))
	plain(gputypes.TextureFormatRG32Uint, rgb, swzXY01, up(32), up(32))
	plain(gputypes.TextureFormatRG32Sint, rgb, swzXY01, sp(32), sp(32))
	plain(gputypes.TextureFormatRGBA16Unorm, rgb, swzXYZW, un(16), un(16), un(16), un(16))
	plain(gputypes.TextureFormatRGBA16Snorm, rgb, swzXYZW, sn(16), sn(16), sn(16), sn(16))
	plain(gputypes.TextureFormatRGBA16Uint, rgb, swzXYZW, up(16), up(16), up(16), up(16))
	plain(gputypes.TextureFormatRGBA16Sint, rgb, swzXYZW, sp(16), sp(16), sp(16), sp(16))
	plain(gputypes.TextureFormatRGBA16Float, rgb, swzXYZW, fl(16), fl(16), fl(16), fl(16))

	// 128-bit
	plain(gputypes.TextureFormatRGBA32Float, rgb, swzXYZW, fl(32), fl(32), fl(32), fl(32))
	plain(gputypes.TextureFormatRGBA32Uint, rgb, swzXYZW, up(32), up(32), up(32), up(32))
	plain(gputypes.TextureFormatRGBA32Sint, rgb, swzXYZW, sp(32), sp(32), sp(32), sp(32))

	// Depth/stencil
	zs := ColorspaceZS
	plain(gputypes.TextureFormatStencil8, zs, swz_X__, up(8))
	plain(gputypes.TextureFormatDepth16Unorm, zs, swzX___, un(16))
	plain(gputypes.TextureFormatDepth24Plus, zs, swzX___, un(24), vd(8))
	plain(gputypes.TextureFormatDepth24PlusStencil8, zs, swzXY__, un(24), up(8))
	plain(gputypes.TextureFormatDepth32Float, zs, swzX___, fl(32))
	plain(gputypes.TextureFormatDepth32FloatStencil8, zs, swzXY__, fl(32), up(8), vd(24))

	// BC
	block(gputypes.TextureFormatBC1RGBAUnorm, swzXYZW, 4, 4, 64)
	block(gputypes.TextureFormatBC1RGBAUnormSrgb, swzXYZW, 4, 4, 64)
	block(gputypes.TextureFormatBC2RGBAUnorm, swzXYZW, 4, 4, 128)
	block(gputypes.TextureFormatBC2RGBAUnormSrgb, swzXYZW, 4, 4, 128)
	block(gputypes.TextureFormatBC3RGBAUnorm, swzXYZW, 4, 4, 128)
	block(gputypes.TextureFormatBC3RGBAUnormSrgb, swzXYZW, 4, 4, 128)
	block(gputypes.TextureFormatBC4RUnorm, swzX001, 4, 4, 64)
	block(gputypes.TextureFormatBC4RSnorm, swzX001, 4, 4, 64)
	block(gputypes.TextureFormatBC5RGUnorm, swzXY01, 4, 4, 128)
	block(gputypes.TextureFormatBC5RGSnorm, swzXY01, 4, 4, 128)
	block(gputypes.TextureFormatBC6HRGBUfloat, swzXYZ1, 4, 4, 128)
	block(gputypes.TextureFormatBC6HRGBFloat, swzXYZ1, 4, 4, 128)
	block(gputypes.TextureFormatBC7RGBAUnorm, swzXYZW, 4, 4, 128)
	block(gputypes.TextureFormatBC7RGBAUnormSrgb, swzXYZW, 4, 4, 128)

	// ETC2/EAC
	block(gputypes.TextureFormatETC2RGB8Unorm, swzXYZ1, 4, 4, 64)
	block(gputypes.TextureFormatETC2RGB8UnormSrgb, swzXYZ1, 4, 4, 64)
	block(gputypes.TextureFormatETC2RGB8A1Unorm, swzXYZW, 4, 4, 64)
	block(gputypes.TextureFormatETC2RGB8A1UnormSrgb, swzXYZW, 4, 4, 64)
	block(gputypes.TextureFormatETC2RGBA8Unorm, swzXYZW, 4, 4, 128)
	block(gputypes.TextureFormatETC2RGBA8UnormSrgb, swzXYZW, 4, 4, 128)
	block(gputypes.TextureFormatEACR11Unorm, swzX001, 4, 4, 64)
	block(gputypes.TextureFormatEACR11Snorm, swzX001, 4, 4, 64)
	block(gputypes.TextureFormatEACRG11Unorm, swzXY01, 4, 4, 128)
	block(gputypes.TextureFormatEACRG11Snorm, swzXY01, 4, 4, 128)

	// ASTC: Unorm/UnormSrgb pairs in footprint order.
	astc := [...][2]int{
		{4, 4}, {5, 4}, {5, 5}, {6, 5}, {6, 6}, {8, 5}, {8, 6}, {8, 8},
		{10, 5}, {10, 6}, {10, 8}, {10, 10}, {12, 10}, {12, 12},
	}
	for i, fp := range astc {
		id := gputypes.TextureFormatASTC4x4Unorm + gputypes.TextureFormat(2*i)
		block(id, swzXYZW, fp[0], fp[1], 128)
		block(id+1, swzXYZW, fp[0], fp[1], 128)
	}

	// Vertex attributes
	vertex(gputypes.VertexFormatUint8x2, swzXY01, up(8), up(8))
	vertex(gputypes.VertexFormatUint8x4, swzXYZW, up(8), up(8), up(8), up(8))
	vertex(gputypes.VertexFormatSint8x2, swzXY01, sp(8), sp(8))
	vertex(gputypes.VertexFormatSint8x4, swzXYZW, sp(8), sp(8), sp(8), sp(8))
	vertex(gputypes.VertexFormatUnorm8x2, swzXY01, un(8), un(8))
	vertex(gputypes.VertexFormatUnorm8x4, swzXYZW, un(8), un(8), un(8), un(8))
	vertex(gputypes.VertexFormatSnorm8x2, swzXY01, sn(8), sn(8))
	vertex(gputypes.VertexFormatSnorm8x4, swzXYZW, sn(8), sn(8), sn(8), sn(8))
	vertex(gputypes.VertexFormatUint16x2, swzXY01, up(16), up(16))
	vertex(gputypes.VertexFormatUint16x4, swzXYZW, up(16), up(16), up(16), up(16))
	vertex(gputypes.VertexFormatSint16x2, swzXY01, sp(16), sp(16))
	vertex(gputypes.VertexFormatSint16x4, swzXYZW, sp(16), sp(16), sp(16), sp(16))
	vertex(gputypes.VertexFormatUnorm16x2, swzXY01, un(16), un(16))
	vertex(gputypes.VertexFormatUnorm16x4, swzXYZW, un(16), un(16), un(16), un(16))
	vertex(gputypes.VertexFormatSnorm16x2, swzXY01, sn(16), sn(16))
	vertex(gputypes.VertexFormatSnorm16x4, swzXYZW, sn(16), sn(16), sn(16), sn(16))
	vertex(gputypes.VertexFormatFloat16x2, swzXY01, fl(16), fl(16))
	vertex(gputypes.VertexFormatFloat16x4, swzXYZW, fl(16), fl(16), fl(16), fl(16))
	vertex(gputypes.VertexFormatFloat32, swzX001, fl(32))
	vertex(gputypes.VertexFormatFloat32x2, swzXY01, fl(32), fl(32))
	vertex(gputypes.VertexFormatFloat32x3, swzXYZ1, fl(32), fl(32), fl(32))
	vertex(gputypes.VertexFormatFloat32x4, swzXYZW, fl(32), fl(32), fl(32), fl(32))
	vertex(gputypes.VertexFormatUint32, swzX001, up(32))
	vertex(gputypes.VertexFormatUint32x2, swzXY01, up(32), up(32))
	vertex(gputypes.VertexFormatUint32x3, swzXYZ1, up(32), up(32), up(32))
	vertex(gputypes.VertexFormatUint32x4, swzXYZW, up(32), up(32), up(32), up(32))
	vertex(gputypes.VertexFormatSint32, swzX001, sp(32))
	vertex(gputypes.VertexFormatSint32x2, swzXY01, sp(32), sp(32))
	vertex(gputypes.VertexFormatSint32x3, swzXYZ1, sp(32), sp(32), sp(32))
	vertex(gputypes.VertexFormatSint32x4, swzXYZW, sp(32), sp(32), sp(32), sp(32))
	vertex(gputypes.VertexFormatUnorm1010102, swzXYZW, un(10), un(10), un(10), un(2))
}

// String returns a compact description such as "RGBA8Unorm[un8 un8 un8 un8 xyzw]".
func (d *Descriptor) String() string {
	if d == nil {
		return "<nil>"
	}
	s := d.Name + "["
	for i := 0; i < d.NrChannels; i++ {
		c := d.Channels[i]
		var p string
		switch {
		case c.Type == ChannelVoid:
			p = "x"
		case c.Type == ChannelFloat:
			p = "f"
		case c.Type == ChannelFixed:
			p = "h"
		case c.Type == ChannelSigned && c.Normalized:
			p = "sn"
		case c.Type == ChannelSigned && c.PureInteger:
			p = "sp"
		case c.Type == ChannelSigned:
			p = "s"
		case c.Normalized:
			p = "un"
		case c.PureInteger:
			p = "up"
		default:
			p = "u"
		}
		s += fmt.Sprintf("%s%d ", p, c.Size)
	}
	return s + d.SwizzleString() + "]"
}
