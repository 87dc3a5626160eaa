package format

import "github.com/gogpu/gputypes"

// ChannelType is the numeric type of a single format channel.
type ChannelType uint8

// Channel types.
const (
	ChannelVoid ChannelType = iota
	ChannelUnsigned
	ChannelSigned
	ChannelFixed
	ChannelFloat
)

// String returns the channel type name.
func (t ChannelType) String() string {
	switch t {
	case ChannelVoid:
		return "void"
	case ChannelUnsigned:
		return "unsigned"
	case ChannelSigned:
		return "signed"
	case ChannelFixed:
		return "fixed"
	case ChannelFloat:
		return "float"
	default:
		return "unknown"
	}
}

// Channel describes one stored channel of a format.
type Channel struct {
	Size        uint8
	Type        ChannelType
	Normalized  bool
	PureInteger bool
}

// IsVoid reports whether the channel carries no data.
func (c Channel) IsVoid() bool {
	return c.Type == ChannelVoid || c.Size == 0
}

// Colorspace classifies how channel values are interpreted.
type Colorspace uint8

// Colorspaces.
const (
	ColorspaceRGB Colorspace = iota
	ColorspaceSRGB
	ColorspaceZS
	ColorspaceYUV
)

// String returns the colorspace name.
func (c Colorspace) String() string {
	switch c {
	case ColorspaceRGB:
		return "rgb"
	case ColorspaceSRGB:
		return "srgb"
	case ColorspaceZS:
		return "zs"
	case ColorspaceYUV:
		return "yuv"
	default:
		return "unknown"
	}
}

// Layout is the memory organization of a format.
type Layout uint8

// Layouts.
const (
	// LayoutPlain formats store each texel as a fixed set of channels.
	LayoutPlain Layout = iota
	// LayoutCompressed formats store blocks of texels (BC, ETC2, EAC, ASTC).
	LayoutCompressed
	// LayoutOther covers packed formats that are neither plain nor
	// block compressed, such as shared-exponent floats.
	LayoutOther
)

// String returns the layout name.
func (l Layout) String() string {
	switch l {
	case LayoutPlain:
		return "plain"
	case LayoutCompressed:
		return "compressed"
	case LayoutOther:
		return "other"
	default:
		return "unknown"
	}
}

// Swizzle selects the source of one output lane.
type Swizzle uint8

// Swizzle selectors. SwizzleX..SwizzleW name stored channels 0..3.
const (
	SwizzleX Swizzle = iota
	SwizzleY
	SwizzleZ
	SwizzleW
	SwizzleZero
	SwizzleOne
	SwizzleNone
)

// String returns the one-letter swizzle notation.
func (s Swizzle) String() string {
	switch s {
	case SwizzleX:
		return "x"
	case SwizzleY:
		return "y"
	case SwizzleZ:
		return "z"
	case SwizzleW:
		return "w"
	case SwizzleZero:
		return "0"
	case SwizzleOne:
		return "1"
	default:
		return "_"
	}
}

// Descriptor is the abstract description of a texture or vertex format.
// Descriptors returned by Describe and DescribeVertex are shared and must
// not be modified.
type Descriptor struct {
	// Format is the texture format identity, or TextureFormatUndefined for
	// vertex-only descriptors.
	Format gputypes.TextureFormat
	Name   string

	Channels   [4]Channel
	NrChannels int

	// Swizzle maps output lanes (r, g, b, a) to stored channels.
	Swizzle [4]Swizzle

	Colorspace Colorspace
	Layout     Layout

	// IsMixed is set when the non-void channels differ in type or
	// normalization.
	IsMixed bool
	// IsArray is set when the format is an array of equally sized,
	// byte-aligned, same-typed channels.
	IsArray bool

	BlockWidth  int
	BlockHeight int
	BlockBits   int
}

// FirstNonVoid returns the index of the first channel with a non-void type
// and a non-zero size, or -1 when every channel is void.
func (d *Descriptor) FirstNonVoid() int {
	if d == nil {
		return -1
	}
	for i := 0; i < d.NrChannels; i++ {
		if !d.Channels[i].IsVoid() {
			return i
		}
	}
	return -1
}

// SwizzleString returns the swizzle in four-letter notation, e.g. "zyxw".
func (d *Descriptor) SwizzleString() string {
	var b [4]byte
	for i, s := range d.Swizzle {
		b[i] = s.String()[0]
	}
	return string(b[:])
}

// hasSizes reports whether the leading channels have exactly the given sizes
// and no other channel is present.
func (d *Descriptor) hasSizes(sizes ...uint8) bool {
	if d.NrChannels != len(sizes) {
		return false
	}
	for i, s := range sizes {
		if d.Channels[i].Size != s {
			return false
		}
	}
	return true
}

// uniformSize reports whether every channel shares the size of channel 0.
func (d *Descriptor) uniformSize() bool {
	for i := 1; i < d.NrChannels; i++ {
		if d.Channels[i].Size != d.Channels[0].Size {
			return false
		}
	}
	return true
}

// finalize derives the block size and the mixed/array flags from channels.
func (d *Descriptor) finalize() *Descriptor {
	if d.BlockWidth == 0 {
		d.BlockWidth, d.BlockHeight = 1, 1
	}
	if d.BlockBits == 0 {
		for i := 0; i < d.NrChannels; i++ {
			d.BlockBits += int(d.Channels[i].Size)
		}
	}

	first := d.FirstNonVoid()
	if first < 0 || d.Layout != LayoutPlain {
		return d
	}
	ref := d.Channels[first]
	array := true
	for i := 0; i < d.NrChannels; i++ {
		c := d.Channels[i]
		if c.IsVoid() {
			array = false
			continue
		}
		if c.Type != ref.Type || c.Normalized != ref.Normalized || c.PureInteger != ref.PureInteger {
			d.IsMixed = true
		}
		if c.Size != ref.Size {
			array = false
		}
	}
	size := ref.Size
	d.IsArray = array && !d.IsMixed && size%8 == 0 && size&(size-1) == 0
	return d
}
