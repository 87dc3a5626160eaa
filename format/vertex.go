package format

// VertexDataFormat returns the fetch data format of a vertex attribute
// described by d, whose first non-void channel is first. Every channel must
// share the size of channel first; the type only selects the NumFormat.
//
// Three-channel 8 and 16 bit attributes share the four-channel code: the
// fetch unit has no three-component variant at those sizes.
func VertexDataFormat(d *Descriptor, first int) Fmt {
	if d == nil {
		return FmtInvalid
	}
	if first >= 0 && first < d.NrChannels && d.Channels[first].Type == ChannelFixed {
		return FmtInvalid
	}
	if d.hasSizes(10, 10, 10, 2) {
		return Fmt2_10_10_10
	}
	if first < 0 || first >= d.NrChannels {
		return FmtInvalid
	}

	c := d.Channels[first]
	for i := 0; i < d.NrChannels; i++ {
		if d.Channels[i].Size != c.Size {
			return FmtInvalid
		}
	}

	switch c.Size {
	case 8:
		switch d.NrChannels {
		case 1:
			return Fmt8
		case 2:
			return Fmt8_8
		case 3, 4:
			return Fmt8_8_8_8
		}
	case 16:
		switch d.NrChannels {
		case 1:
			return Fmt16
		case 2:
			return Fmt16_16
		case 3, 4:
			return Fmt16_16_16_16
		}
	case 32:
		// No 32-bit normalized or scaled fetch.
		if c.Type != ChannelFloat && !c.PureInteger {
			return FmtInvalid
		}
		switch d.NrChannels {
		case 1:
			return Fmt32
		case 2:
			return Fmt32_32
		case 3:
			return Fmt32_32_32
		case 4:
			return Fmt32_32_32_32
		}
	}
	return FmtInvalid
}

// VertexNumFormat returns how fetched vertex data is converted, derived from
// the type of channel first alone.
func VertexNumFormat(d *Descriptor, first int) NumFormat {
	if d == nil || first < 0 || first >= d.NrChannels {
		return NumFloat
	}
	c := d.Channels[first]
	switch c.Type {
	case ChannelSigned:
		switch {
		case c.Normalized:
			return NumSnorm
		case c.PureInteger:
			return NumSint
		default:
			return NumSscaled
		}
	case ChannelUnsigned:
		switch {
		case c.Normalized:
			return NumUnorm
		case c.PureInteger:
			return NumUint
		default:
			return NumUscaled
		}
	default:
		return NumFloat
	}
}
