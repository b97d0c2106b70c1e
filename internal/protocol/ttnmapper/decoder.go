package ttnmapper

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ttnmapper/internal/core/model"
)

// Decoder turns TTN Mapper uplink payloads into fixes. The zero value is
// ready to use and logs nothing; a Decoder holds no per-call state and may
// be shared between goroutines.
type Decoder struct {
	debug  bool
	logger zerolog.Logger
}

var defaultDecoder Decoder

func NewDecoder() *Decoder {
	return &Decoder{
		logger: log.Logger.With().Str("component", ProtocolName).Logger(),
	}
}

// NewDecoderWithLogger returns a decoder that logs through logger.
func NewDecoderWithLogger(logger zerolog.Logger) *Decoder {
	return &Decoder{
		logger: logger.With().Str("component", ProtocolName).Logger(),
	}
}

func (d *Decoder) EnableDebug(enable bool) {
	d.debug = enable
}

func (d *Decoder) logDebug() *zerolog.Event {
	if !d.debug {
		return nil
	}
	return d.logger.Debug()
}

// Decode decodes payload with a shared decoder.
func Decode(payload []byte, port int) (Fix, error) {
	return defaultDecoder.Decode(payload, port)
}

// Decode selects a parser by the tag in payload[0]. Tags 1 and 2 share one
// layout. An unknown tag yields NoResult and a nil error. port is accepted
// for symmetry with the delivering network and is not used.
func (d *Decoder) Decode(payload []byte, port int) (Fix, error) {
	if len(payload) < 1 {
		return nil, fmt.Errorf("%w: empty payload", ErrPacketTooShort)
	}

	tag := payload[0]
	d.logDebug().Int("port", port).Str("format", Format(tag).String()).Int("length", len(payload)).Msg("decoding payload")

	var (
		fix Fix
		err error
	)
	switch tag {
	case TagPosition, TagPositionAlt:
		fix, err = parsePosition(payload)
	case TagPositionExtra:
		fix, err = parsePositionExtended(payload)
	default:
		d.logDebug().Uint8("tag", tag).Msg("unknown format tag")
		return NoResult{Tag: tag}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", Format(tag), err)
	}

	d.logDebug().Interface("fix", fix).Msg("decoded payload")
	return fix, nil
}

func validateLength(payload []byte) error {
	need, _ := MinLength(payload[0])
	if len(payload) < need {
		return fmt.Errorf("%w: got %d bytes, need at least %d", ErrPacketTooShort, len(payload), need)
	}
	return nil
}

func parsePosition(payload []byte) (Position, error) {
	if err := validateLength(payload); err != nil {
		return Position{}, err
	}
	return Position{
		Format:    Format(payload[0]),
		Latitude:  float64(IntLSB(payload, latOffset, coordWidth)) / LatitudeScale,
		Longitude: float64(IntLSB(payload, lonOffset, coordWidth)) / LongitudeScale,
	}, nil
}

func parsePositionExtended(payload []byte) (PositionExtended, error) {
	if err := validateLength(payload); err != nil {
		return PositionExtended{}, err
	}
	return PositionExtended{
		Latitude:  float64(IntNetworkOrder(payload, latOffset, coordWidth)) / LatitudeScale,
		Longitude: float64(IntNetworkOrder(payload, lonOffset, coordWidth)) / LongitudeScale,
		Altitude:  int(IntNetworkOrder(payload, altOffset, altWidth)),
		HDOP:      float64(IntNetworkOrder(payload, hdopOffset, hdopWidth)) / HDOPScale,
	}, nil
}

// ToPosition converts a fix into a position record. It returns nil for NoResult.
func (d *Decoder) ToPosition(deviceID string, port int, fix Fix) *model.Position {
	var position *model.Position

	switch f := fix.(type) {
	case Position:
		position = model.NewPosition(deviceID, f.Latitude, f.Longitude)
		position.Format = f.Format.String()
	case PositionExtended:
		position = model.NewPosition(deviceID, f.Latitude, f.Longitude)
		position.Format = Format5.String()
		position.SetExtended(f.Altitude, f.HDOP)
		position.Status["altitude"] = f.Altitude
		position.Status["hdop"] = f.HDOP
	default:
		return nil
	}

	position.Port = port
	position.Protocol = ProtocolName
	return position
}
