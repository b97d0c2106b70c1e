// Package ttnmapper implements the decoder for TTN Mapper GPS uplink payloads.
package ttnmapper

// Format tags carried in the first payload byte
const (
	TagPosition      = 0x01
	TagPositionAlt   = 0x02
	TagPositionExtra = 0x05
)

// Fixed-point divisors
const (
	LatitudeScale  = 93206.0
	LongitudeScale = 46603.0
	HDOPScale      = 1000.0
)

// Minimum packet sizes, tag byte included
const (
	MinPositionLength         = 7  // tag(1) + lat(3) + lon(3)
	MinPositionExtendedLength = 11 // tag(1) + lat(3) + lon(3) + alt(2) + hdop(2)
)

// Field layout
const (
	latOffset  = 1
	lonOffset  = 4
	altOffset  = 7
	hdopOffset = 9

	coordWidth = 3
	altWidth   = 2
	hdopWidth  = 2
)

// ProtocolName is stored on positions produced by this decoder.
const ProtocolName = "ttnmapper"
