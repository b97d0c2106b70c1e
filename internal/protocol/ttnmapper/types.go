package ttnmapper

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrPacketTooShort   = errors.New("data too short for ttnmapper payload")
	ErrUnsupportedWidth = errors.New("unsupported field width")
	ErrFieldOutOfRange  = errors.New("field out of range")
)

// Format identifies the payload layout by its tag byte.
type Format byte

const (
	Format1 Format = TagPosition
	Format2 Format = TagPositionAlt
	Format5 Format = TagPositionExtra
)

func (f Format) String() string {
	switch f {
	case Format1:
		return "format1"
	case Format2:
		return "format2"
	case Format5:
		return "format5"
	default:
		return fmt.Sprintf("unknown_0x%02x", byte(f))
	}
}

// IsKnownFormat reports whether tag selects one of the supported layouts.
func IsKnownFormat(tag byte) bool {
	_, ok := MinLength(tag)
	return ok
}

// MinLength returns the number of bytes a payload with the given tag needs.
func MinLength(tag byte) (int, bool) {
	switch tag {
	case TagPosition, TagPositionAlt:
		return MinPositionLength, true
	case TagPositionExtra:
		return MinPositionExtendedLength, true
	default:
		return 0, false
	}
}

// Fix is the result of decoding one payload: Position, PositionExtended or NoResult.
type Fix interface {
	isFix()
}

// Position is a two-field fix sent with tag 1 or tag 2.
type Position struct {
	Format    Format  `json:"format"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PositionExtended is the tag 5 fix with altitude in meters and HDOP.
type PositionExtended struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  int     `json:"altitude"`
	HDOP      float64 `json:"hdop"`
}

// NoResult means the tag matched no known format. It is not an error.
type NoResult struct {
	Tag byte `json:"tag"`
}

func (Position) isFix()         {}
func (PositionExtended) isFix() {}
func (NoResult) isFix()         {}

// Coordinates returns latitude and longitude of a fix. ok is false for NoResult.
func Coordinates(fix Fix) (lat, lon float64, ok bool) {
	switch f := fix.(type) {
	case Position:
		return f.Latitude, f.Longitude, true
	case PositionExtended:
		return f.Latitude, f.Longitude, true
	default:
		return 0, 0, false
	}
}
