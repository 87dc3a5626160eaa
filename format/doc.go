// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package format translates pixel and vertex format descriptions into the
// hardware encodings programmed into tile-based GPU state.
//
// A [Descriptor] describes a format channel by channel: bit size, numeric
// type, normalization, the swizzle that maps stored channels to output lanes,
// the colorspace and the memory layout. [Describe] and [DescribeVertex]
// return the descriptor of every WebGPU texture and vertex format.
//
// The translation functions are pure. They never return errors: when a
// format has no hardware encoding, the result is the all-ones sentinel of
// the code type, reported by its Valid method. Callers check Valid before
// programming hardware state and fall back or disable the feature otherwise.
//
//	d := format.Describe(gputypes.TextureFormatBGRA8Unorm)
//	first := d.FirstNonVoid()
//	tex := format.TexFormat(d.Format, d, first)      // Fmt8_8_8_8
//	swap := format.ColorSwap(d, false)               // SwapAlt
//
// Formats are translated at resource and pipeline creation time, never per
// draw, so the lookups favour plain switches over precomputed tables.
package format
