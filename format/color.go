package format

import "github.com/gogpu/gputypes"

// ColorFormatOf returns the color render-target format of d, keyed by
// channel count and sizes. Only plain layouts are renderable; mixed channel
// types are accepted for depth/stencil formats only.
func ColorFormatOf(d *Descriptor) ColorFormat {
	if d == nil || d.Layout != LayoutPlain {
		return ColorInvalid
	}
	if d.IsMixed && d.Colorspace != ColorspaceZS {
		return ColorInvalid
	}
	if d.FirstNonVoid() < 0 {
		return ColorInvalid
	}

	switch d.NrChannels {
	case 1:
		switch d.Channels[0].Size {
		case 8:
			return Color8
		case 16:
			return Color16
		case 32:
			return Color32
		}
	case 2:
		if d.uniformSize() {
			switch d.Channels[0].Size {
			case 8:
				return Color8_8
			case 16:
				return Color16_16
			case 32:
				return Color32_32
			}
		} else if d.hasSizes(8, 24) {
			return Color24_8
		} else if d.hasSizes(24, 8) {
			return Color8_24
		}
	case 3:
		if d.hasSizes(5, 6, 5) {
			return Color5_6_5
		} else if d.hasSizes(32, 8, 24) {
			return ColorX24_8_32Float
		}
	case 4:
		if d.uniformSize() {
			switch d.Channels[0].Size {
			case 4:
				return Color4_4_4_4
			case 8:
				return Color8_8_8_8
			case 16:
				return Color16_16_16_16
			case 32:
				return Color32_32_32_32
			}
		} else if d.hasSizes(5, 5, 5, 1) {
			return Color1_5_5_5
		} else if d.hasSizes(10, 10, 10, 2) {
			return Color2_10_10_10
		}
	}
	return ColorInvalid
}

// ColorEndianSwap returns the byte swap the color block applies to a color
// format on memory access. Only little-endian hosts are supported, so no swap is
// ever required.
func ColorEndianSwap(ColorFormat) EndianSwap {
	return EndianNone
}

// DepthFormatOf returns the depth buffer format of texture format id.
// Stencil-only formats have no depth encoding.
func DepthFormatOf(id gputypes.TextureFormat) DepthFormat {
	switch id {
	case gputypes.TextureFormatDepth16Unorm:
		return Depth16
	case gputypes.TextureFormatDepth24Plus, gputypes.TextureFormatDepth24PlusStencil8:
		return Depth8_24
	case gputypes.TextureFormatDepth32Float, gputypes.TextureFormatDepth32FloatStencil8:
		return Depth32Float
	default:
		return DepthInvalid
	}
}

// ColorSwap returns the component swap that routes the stored channels of d
// to the output lanes given by its swizzle. doEndianSwap selects the mirrored
// code for layouts whose byte order is reversed by the endian swap.
func ColorSwap(d *Descriptor, doEndianSwap bool) Swap {
	if d == nil || d.Layout != LayoutPlain {
		return SwapInvalid
	}
	swz := d.Swizzle
	has := func(lane int, s Swizzle) bool { return swz[lane] == s }

	switch d.NrChannels {
	case 1:
		switch {
		case has(0, SwizzleX):
			return SwapStd
		case has(3, SwizzleX):
			return SwapAltRev
		}
	case 2:
		switch {
		case has(0, SwizzleX) && has(1, SwizzleY),
			has(0, SwizzleX) && has(1, SwizzleNone),
			has(0, SwizzleNone) && has(1, SwizzleY):
			return SwapStd
		case has(0, SwizzleY) && has(1, SwizzleX),
			has(0, SwizzleY) && has(1, SwizzleNone),
			has(0, SwizzleNone) && has(1, SwizzleX):
			return pick(doEndianSwap, SwapStd, SwapStdRev)
		case has(0, SwizzleX) && has(3, SwizzleY):
			return SwapAlt
		case has(0, SwizzleY) && has(3, SwizzleX):
			return SwapAltRev
		}
	case 3:
		switch {
		case has(0, SwizzleX):
			return pick(doEndianSwap, SwapStdRev, SwapStd)
		case has(0, SwizzleZ):
			return SwapStdRev
		}
	case 4:
		// Lanes 0 and 3 may be unused; the middle lanes decide.
		switch {
		case has(1, SwizzleY) && has(2, SwizzleZ):
			return SwapStd
		case has(1, SwizzleZ) && has(2, SwizzleY):
			return SwapStdRev
		case has(1, SwizzleY) && has(2, SwizzleX):
			return SwapAlt
		case has(1, SwizzleZ) && has(2, SwizzleW):
			if d.IsArray {
				return SwapAltRev
			}
			return pick(doEndianSwap, SwapAlt, SwapAltRev)
		}
	}
	return SwapInvalid
}

func pick[T any](cond bool, a, b T) T {
	if cond {
		return a
	}
	return b
}
