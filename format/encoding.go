package format

import "github.com/gogpu/gputypes"

// Encoding bundles every hardware code of one texture format.
type Encoding struct {
	Format gputypes.TextureFormat
	Tex    Fmt
	Color  ColorFormat
	Swap   Swap
	Endian EndianSwap
	Depth  DepthFormat
}

// Translate computes the hardware encoding of texture format id. Unknown
// formats translate to all sentinels.
func Translate(id gputypes.TextureFormat) Encoding {
	d := Describe(id)
	e := Encoding{
		Format: id,
		Tex:    TexFormat(id, d, d.FirstNonVoid()),
		Color:  ColorFormatOf(d),
		Swap:   ColorSwap(d, false),
		Depth:  DepthFormatOf(id),
	}
	e.Endian = ColorEndianSwap(e.Color)
	return e
}

// Sampleable reports whether the format can be bound as a texture.
func (e Encoding) Sampleable() bool {
	return e.Tex.Valid()
}

// ColorRenderable reports whether the format can be bound as a color target.
func (e Encoding) ColorRenderable() bool {
	return e.Color.Valid() && e.Swap.Valid() && !e.Format.IsDepthStencil()
}

// DepthRenderable reports whether the format can back a depth buffer.
func (e Encoding) DepthRenderable() bool {
	return e.Depth.Valid()
}

// VertexEncoding is the fetch encoding of a vertex attribute format.
type VertexEncoding struct {
	Format gputypes.VertexFormat
	Data   Fmt
	Num    NumFormat
}

// TranslateVertex computes the fetch encoding of vertex format vf.
func TranslateVertex(vf gputypes.VertexFormat) VertexEncoding {
	d := DescribeVertex(vf)
	first := d.FirstNonVoid()
	return VertexEncoding{
		Format: vf,
		Data:   VertexDataFormat(d, first),
		Num:    VertexNumFormat(d, first),
	}
}

// Valid reports whether the attribute can be fetched.
func (v VertexEncoding) Valid() bool {
	return v.Data.Valid()
}
