package format

import "fmt"

// Fmt is a hardware surface data format, used for texture sampling and
// vertex fetch.
type Fmt uint32

// Surface data formats.
const (
	Fmt8           Fmt = 0x01
	Fmt4_4         Fmt = 0x02
	Fmt3_3_2       Fmt = 0x03
	Fmt16          Fmt = 0x05
	Fmt8_8         Fmt = 0x07
	Fmt5_6_5       Fmt = 0x08
	Fmt6_5_5       Fmt = 0x09
	Fmt1_5_5_5     Fmt = 0x0A
	Fmt4_4_4_4     Fmt = 0x0B
	Fmt5_5_5_1     Fmt = 0x0C
	Fmt32          Fmt = 0x0D
	Fmt16_16       Fmt = 0x0F
	Fmt8_24        Fmt = 0x11
	Fmt24_8        Fmt = 0x13
	Fmt10_11_11    Fmt = 0x15
	Fmt11_11_10    Fmt = 0x17
	Fmt2_10_10_10  Fmt = 0x19
	Fmt8_8_8_8     Fmt = 0x1A
	Fmt10_10_10_2  Fmt = 0x1B
	FmtX24_8_32    Fmt = 0x1C
	Fmt32_32       Fmt = 0x1D
	Fmt16_16_16_16 Fmt = 0x1F
	Fmt32_32_32_32 Fmt = 0x22
	Fmt5_9_9_9     Fmt = 0x2C
	Fmt32_32_32    Fmt = 0x2F
	FmtBC1         Fmt = 0x31
	FmtBC2         Fmt = 0x32
	FmtBC3         Fmt = 0x33
	FmtBC4         Fmt = 0x34
	FmtBC5         Fmt = 0x35
	FmtBC6         Fmt = 0x36
	FmtBC7         Fmt = 0x37

	// FmtInvalid marks a format without hardware encoding.
	FmtInvalid Fmt = ^Fmt(0)
)

var fmtNames = map[Fmt]string{
	Fmt8: "8", Fmt4_4: "4_4", Fmt3_3_2: "3_3_2", Fmt16: "16", Fmt8_8: "8_8",
	Fmt5_6_5: "5_6_5", Fmt6_5_5: "6_5_5", Fmt1_5_5_5: "1_5_5_5", Fmt4_4_4_4: "4_4_4_4",
	Fmt5_5_5_1: "5_5_5_1", Fmt32: "32", Fmt16_16: "16_16", Fmt8_24: "8_24", Fmt24_8: "24_8",
	Fmt10_11_11: "10_11_11", Fmt11_11_10: "11_11_10", Fmt2_10_10_10: "2_10_10_10",
	Fmt8_8_8_8: "8_8_8_8", Fmt10_10_10_2: "10_10_10_2", FmtX24_8_32: "X24_8_32",
	Fmt32_32: "32_32", Fmt16_16_16_16: "16_16_16_16", Fmt32_32_32_32: "32_32_32_32",
	Fmt5_9_9_9: "5_9_9_9", Fmt32_32_32: "32_32_32", FmtBC1: "BC1", FmtBC2: "BC2",
	FmtBC3: "BC3", FmtBC4: "BC4", FmtBC5: "BC5", FmtBC6: "BC6", FmtBC7: "BC7",
}

// Valid reports whether f is a real hardware encoding.
func (f Fmt) Valid() bool { return f != FmtInvalid }

// String returns the hardware name of the format, e.g. "FMT_8_8_8_8".
func (f Fmt) String() string {
	if n, ok := fmtNames[f]; ok {
		return "FMT_" + n
	}
	if !f.Valid() {
		return "FMT_INVALID"
	}
	return fmt.Sprintf("FMT(0x%X)", uint32(f))
}

// NumFormat is the numeric interpretation of fetched vertex data.
type NumFormat uint8

// Numeric formats.
const (
	NumUnorm NumFormat = iota
	NumSnorm
	NumUscaled
	NumSscaled
	NumUint
	NumSint
	NumFloat
)

// String returns the numeric format name.
func (n NumFormat) String() string {
	switch n {
	case NumUnorm:
		return "UNORM"
	case NumSnorm:
		return "SNORM"
	case NumUscaled:
		return "USCALED"
	case NumSscaled:
		return "SSCALED"
	case NumUint:
		return "UINT"
	case NumSint:
		return "SINT"
	case NumFloat:
		return "FLOAT"
	default:
		return fmt.Sprintf("NumFormat(%d)", uint8(n))
	}
}

// IsSigned reports whether the numeric format sign-extends fetched data.
func (n NumFormat) IsSigned() bool {
	return n == NumSnorm || n == NumSscaled || n == NumSint
}

// ColorFormat is a hardware color render-target format.
type ColorFormat uint32

// Color target formats.
const (
	Color8             ColorFormat = 0x01
	Color3_3_2         ColorFormat = 0x03
	Color16            ColorFormat = 0x05
	Color8_8           ColorFormat = 0x07
	Color5_6_5         ColorFormat = 0x08
	Color6_5_5         ColorFormat = 0x09
	Color1_5_5_5       ColorFormat = 0x0A
	Color4_4_4_4       ColorFormat = 0x0B
	Color5_5_5_1       ColorFormat = 0x0C
	Color32            ColorFormat = 0x0D
	Color16_16         ColorFormat = 0x0F
	Color8_24          ColorFormat = 0x11
	Color24_8          ColorFormat = 0x13
	Color10_11_11      ColorFormat = 0x15
	Color11_11_10      ColorFormat = 0x17
	Color2_10_10_10    ColorFormat = 0x19
	Color8_8_8_8       ColorFormat = 0x1A
	Color10_10_10_2    ColorFormat = 0x1B
	ColorX24_8_32Float ColorFormat = 0x1C
	Color32_32         ColorFormat = 0x1D
	Color16_16_16_16   ColorFormat = 0x1F
	Color32_32_32_32   ColorFormat = 0x22

	// ColorInvalid marks a format that cannot be rendered to.
	ColorInvalid ColorFormat = ^ColorFormat(0)
)

var colorNames = map[ColorFormat]string{
	Color8: "8", Color3_3_2: "3_3_2", Color16: "16", Color8_8: "8_8", Color5_6_5: "5_6_5",
	Color6_5_5: "6_5_5", Color1_5_5_5: "1_5_5_5", Color4_4_4_4: "4_4_4_4",
	Color5_5_5_1: "5_5_5_1", Color32: "32", Color16_16: "16_16", Color8_24: "8_24",
	Color24_8: "24_8", Color10_11_11: "10_11_11", Color11_11_10: "11_11_10",
	Color2_10_10_10: "2_10_10_10", Color8_8_8_8: "8_8_8_8", Color10_10_10_2: "10_10_10_2",
	ColorX24_8_32Float: "X24_8_32_FLOAT", Color32_32: "32_32",
	Color16_16_16_16: "16_16_16_16", Color32_32_32_32: "32_32_32_32",
}

// Valid reports whether c is a real hardware encoding.
func (c ColorFormat) Valid() bool { return c != ColorInvalid }

// String returns the hardware name of the format, e.g. "COLOR_8_8_8_8".
func (c ColorFormat) String() string {
	if n, ok := colorNames[c]; ok {
		return "COLOR_" + n
	}
	if !c.Valid() {
		return "COLOR_INVALID"
	}
	return fmt.Sprintf("COLOR(0x%X)", uint32(c))
}

// DepthFormat is a hardware depth buffer format.
type DepthFormat uint32

// Depth buffer formats.
const (
	Depth16      DepthFormat = 0x01
	Depth8_24    DepthFormat = 0x03
	Depth32Float DepthFormat = 0x06

	// DepthInvalid marks a format that cannot back a depth buffer.
	DepthInvalid DepthFormat = ^DepthFormat(0)
)

// Valid reports whether d is a real hardware encoding.
func (d DepthFormat) Valid() bool { return d != DepthInvalid }

// String returns the hardware name of the depth format.
func (d DepthFormat) String() string {
	switch d {
	case Depth16:
		return "DEPTH_16"
	case Depth8_24:
		return "DEPTH_8_24"
	case Depth32Float:
		return "DEPTH_32_FLOAT"
	case DepthInvalid:
		return "DEPTH_INVALID"
	default:
		return fmt.Sprintf("DEPTH(0x%X)", uint32(d))
	}
}

// Swap is the color component swap applied when writing a render target.
type Swap uint32

// Component swaps.
const (
	SwapStd    Swap = 0
	SwapAlt    Swap = 1
	SwapStdRev Swap = 2
	SwapAltRev Swap = 3

	// SwapInvalid marks a swizzle the hardware cannot express.
	SwapInvalid Swap = ^Swap(0)
)

// Valid reports whether s is a real hardware encoding.
func (s Swap) Valid() bool { return s != SwapInvalid }

// String returns the hardware name of the swap.
func (s Swap) String() string {
	switch s {
	case SwapStd:
		return "SWAP_STD"
	case SwapAlt:
		return "SWAP_ALT"
	case SwapStdRev:
		return "SWAP_STD_REV"
	case SwapAltRev:
		return "SWAP_ALT_REV"
	case SwapInvalid:
		return "SWAP_INVALID"
	default:
		return fmt.Sprintf("SWAP(%d)", uint32(s))
	}
}

// EndianSwap is the byte swap applied by the color block on memory access.
type EndianSwap uint32

// Endian swaps.
const (
	EndianNone  EndianSwap = 0
	Endian8In16 EndianSwap = 1
	Endian8In32 EndianSwap = 2
)

// String returns the hardware name of the endian swap.
func (e EndianSwap) String() string {
	switch e {
	case EndianNone:
		return "ENDIAN_NONE"
	case Endian8In16:
		return "ENDIAN_8IN16"
	case Endian8In32:
		return "ENDIAN_8IN32"
	default:
		return fmt.Sprintf("ENDIAN(%d)", uint32(e))
	}
}
