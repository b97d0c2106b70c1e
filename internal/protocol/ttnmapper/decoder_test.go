package ttnmapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const epsilon = 1e-9

func TestDecoder(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    Fix
		wantErr error
	}{
		{
			name: "format 1 position",
			data: []byte{
				0x01,             // Tag
				0x10, 0x27, 0x00, // Latitude, LSB first
				0xE0, 0xD4, 0xFF, // Longitude, LSB first
			},
			want: Position{
				Format:    Format1,
				Latitude:  10000 / LatitudeScale,
				Longitude: -11040 / LongitudeScale,
			},
		},
		{
			name: "format 2 shares the format 1 layout",
			data: []byte{
				0x02,
				0x10, 0x27, 0x00,
				0xE0, 0xD4, 0xFF,
			},
			want: Position{
				Format:    Format2,
				Latitude:  10000 / LatitudeScale,
				Longitude: -11040 / LongitudeScale,
			},
		},
		{
			name: "format 5 extended position",
			data: []byte{
				0x05,             // Tag
				0x00, 0x27, 0x10, // Latitude, network order
				0x00, 0xD4, 0xE0, // Longitude, network order
				0x00, 0x64, // Altitude
				0x03, 0xE8, // HDOP
			},
			want: PositionExtended{
				Latitude:  10000 / LatitudeScale,
				Longitude: 54496 / LongitudeScale,
				Altitude:  100,
				HDOP:      1.0,
			},
		},
		{
			name: "format 5 negative altitude",
			data: []byte{
				0x05,
				0x00, 0x27, 0x10,
				0x00, 0xD4, 0xE0,
				0xFF, 0x38,
				0x03, 0xE8,
			},
			want: PositionExtended{
				Latitude:  10000 / LatitudeScale,
				Longitude: 54496 / LongitudeScale,
				Altitude:  -200,
				HDOP:      1.0,
			},
		},
		{
			name: "format 5 southern western fix",
			data: []byte{
				0x05,
				0xFF, 0xD8, 0xF0, // -10000
				0xFF, 0x2B, 0x20, // -54496
				0x01, 0xF4, // 500
				0x00, 0x7B, // 123
			},
			want: PositionExtended{
				Latitude:  -10000 / LatitudeScale,
				Longitude: -54496 / LongitudeScale,
				Altitude:  500,
				HDOP:      0.123,
			},
		},
		{
			name: "trailing bytes are ignored",
			data: []byte{0x01, 0x10, 0x27, 0x00, 0xE0, 0xD4, 0xFF, 0xAA, 0xBB},
			want: Position{
				Format:    Format1,
				Latitude:  10000 / LatitudeScale,
				Longitude: -11040 / LongitudeScale,
			},
		},
		{
			name: "unknown tag",
			data: []byte{0x09, 0x00, 0x00, 0x00},
			want: NoResult{Tag: 0x09},
		},
		{
			name: "unknown tag without fields",
			data: []byte{0x00},
			want: NoResult{Tag: 0x00},
		},
		{
			name:    "empty payload",
			data:    []byte{},
			wantErr: ErrPacketTooShort,
		},
		{
			name:    "format 1 truncated",
			data:    []byte{0x01, 0x10, 0x27, 0x00, 0xE0, 0xD4},
			wantErr: ErrPacketTooShort,
		},
		{
			name:    "format 2 truncated",
			data:    []byte{0x02},
			wantErr: ErrPacketTooShort,
		},
		{
			name:    "format 5 truncated",
			data:    []byte{0x05, 0x00, 0x27, 0x10, 0x00, 0xD4, 0xE0, 0x00, 0x64, 0x03},
			wantErr: ErrPacketTooShort,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoder := NewDecoder()
			decoder.EnableDebug(true)

			got, err := decoder.Decode(tt.data, 1)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			compareFix(t, tt.want, got)
		})
	}
}

func compareFix(t *testing.T, want, got Fix) {
	t.Helper()

	switch w := want.(type) {
	case Position:
		g, ok := got.(Position)
		require.True(t, ok, "got %T, want Position", got)
		assert.Equal(t, w.Format, g.Format)
		assert.InDelta(t, w.Latitude, g.Latitude, epsilon)
		assert.InDelta(t, w.Longitude, g.Longitude, epsilon)
	case PositionExtended:
		g, ok := got.(PositionExtended)
		require.True(t, ok, "got %T, want PositionExtended", got)
		assert.InDelta(t, w.Latitude, g.Latitude, epsilon)
		assert.InDelta(t, w.Longitude, g.Longitude, epsilon)
		assert.Equal(t, w.Altitude, g.Altitude)
		assert.InDelta(t, w.HDOP, g.HDOP, epsilon)
	default:
		assert.Equal(t, want, got)
	}
}

func TestDecodeScenarioValues(t *testing.T) {
	fix, err := Decode([]byte{0x01, 0x10, 0x27, 0x00, 0xE0, 0xD4, 0xFF}, 1)
	require.NoError(t, err)

	lat, lon, ok := Coordinates(fix)
	require.True(t, ok)
	assert.InDelta(t, 0.10729, lat, 1e-5)
	assert.InDelta(t, -0.23689, lon, 1e-5)

	fix, err = Decode([]byte{0x05, 0x00, 0x27, 0x10, 0x00, 0xD4, 0xE0, 0x00, 0x64, 0x03, 0xE8}, 2)
	require.NoError(t, err)

	lat, lon, ok = Coordinates(fix)
	require.True(t, ok)
	assert.InDelta(t, 0.10729, lat, 1e-5)
	assert.InDelta(t, 1.16937, lon, 1e-5)
}

func TestDecodeIgnoresPort(t *testing.T) {
	data := []byte{0x05, 0x00, 0x27, 0x10, 0x00, 0xD4, 0xE0, 0x00, 0x64, 0x03, 0xE8}

	want, err := Decode(data, 1)
	require.NoError(t, err)
	for _, port := range []int{0, 2, 15, 223} {
		got, err := Decode(data, port)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestDecodeDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := rapid.SliceOfN(rapid.Byte(), 0, 16).Draw(t, "data")
		port := rapid.IntRange(0, 255).Draw(t, "port")

		first, firstErr := Decode(data, port)
		second, secondErr := Decode(data, port)

		assert.Equal(t, first, second)
		assert.Equal(t, firstErr, secondErr)
		if firstErr == nil {
			assert.NotNil(t, first)
		}
	})
}

func TestFormatString(t *testing.T) {
	assert.Equal(t, "format1", Format1.String())
	assert.Equal(t, "format2", Format2.String())
	assert.Equal(t, "format5", Format5.String())
	assert.Equal(t, "unknown_0x09", Format(0x09).String())
}

func TestMinLength(t *testing.T) {
	n, ok := MinLength(TagPosition)
	assert.True(t, ok)
	assert.Equal(t, MinPositionLength, n)

	n, ok = MinLength(TagPositionExtra)
	assert.True(t, ok)
	assert.Equal(t, MinPositionExtendedLength, n)

	assert.False(t, IsKnownFormat(0x03))
	assert.True(t, IsKnownFormat(TagPositionAlt))
}

func TestToPosition(t *testing.T) {
	decoder := NewDecoder()

	position := decoder.ToPosition("mapper-1", 2, PositionExtended{Latitude: 1.5, Longitude: -2.5, Altitude: -200, HDOP: 1.2})
	require.NotNil(t, position)
	assert.Equal(t, "mapper-1", position.DeviceID)
	assert.Equal(t, 2, position.Port)
	assert.Equal(t, ProtocolName, position.Protocol)
	assert.Equal(t, "format5", position.Format)
	require.NotNil(t, position.Altitude)
	assert.Equal(t, -200, *position.Altitude)
	require.NotNil(t, position.HDOP)
	assert.InDelta(t, 1.2, *position.HDOP, epsilon)

	position = decoder.ToPosition("mapper-1", 1, Position{Format: Format2, Latitude: 1, Longitude: 2})
	require.NotNil(t, position)
	assert.Equal(t, "format2", position.Format)
	assert.Nil(t, position.Altitude)
	assert.Nil(t, position.HDOP)

	assert.Nil(t, decoder.ToPosition("mapper-1", 1, NoResult{Tag: 9}))
}
