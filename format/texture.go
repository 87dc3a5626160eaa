package format

import "github.com/gogpu/gputypes"

// TexFormat returns the sampling data format of texture format id described
// by d, whose first non-void channel is first. It returns FmtInvalid when d
// is nil or the format cannot be sampled.
func TexFormat(id gputypes.TextureFormat, d *Descriptor, first int) Fmt {
	if d == nil {
		return FmtInvalid
	}

	switch d.Colorspace {
	case ColorspaceZS:
		switch id {
		case gputypes.TextureFormatDepth16Unorm:
			return Fmt16
		case gputypes.TextureFormatDepth24Plus, gputypes.TextureFormatDepth24PlusStencil8:
			return Fmt8_24
		case gputypes.TextureFormatStencil8:
			return Fmt8
		case gputypes.TextureFormatDepth32Float:
			return Fmt32
		case gputypes.TextureFormatDepth32FloatStencil8:
			return FmtX24_8_32
		default:
			return FmtInvalid
		}
	case ColorspaceYUV:
		return FmtInvalid
	case ColorspaceSRGB:
		if d.NrChannels != 1 && d.NrChannels != 4 {
			return FmtInvalid
		}
	}

	if d.Layout == LayoutCompressed {
		switch id {
		case gputypes.TextureFormatBC2RGBAUnorm, gputypes.TextureFormatBC2RGBAUnormSrgb:
			return FmtBC2
		case gputypes.TextureFormatBC3RGBAUnorm, gputypes.TextureFormatBC3RGBAUnormSrgb:
			return FmtBC3
		}
	}

	switch id {
	case gputypes.TextureFormatRGB9E5Ufloat:
		return Fmt5_9_9_9
	case gputypes.TextureFormatRG11B10Ufloat:
		return Fmt10_11_11
	}

	if d.IsMixed {
		return FmtInvalid
	}
	// Remaining block-compressed and packed layouts have no sampler path.
	if d.Layout != LayoutPlain {
		return FmtInvalid
	}

	if !d.uniformSize() {
		switch {
		case d.hasSizes(5, 6, 5):
			return Fmt5_6_5
		case d.hasSizes(5, 5, 5, 1):
			return Fmt1_5_5_5
		case d.hasSizes(10, 10, 10, 2):
			return Fmt2_10_10_10
		}
		return FmtInvalid
	}

	if first < 0 || first > 3 {
		return FmtInvalid
	}

	// The channel type only affects the numeric format.
	switch d.Channels[first].Size {
	case 4:
		if d.NrChannels == 4 {
			return Fmt4_4_4_4
		}
	case 8:
		switch d.NrChannels {
		case 1:
			return Fmt8
		case 2:
			return Fmt8_8
		case 4:
			return Fmt8_8_8_8
		}
	case 16:
		switch d.NrChannels {
		case 1:
			return Fmt16
		case 2:
			return Fmt16_16
		case 4:
			return Fmt16_16_16_16
		}
	case 32:
		switch d.NrChannels {
		case 1:
			return Fmt32
		case 2:
			return Fmt32_32
		case 4:
			return Fmt32_32_32_32
		}
	}
	return FmtInvalid
}
