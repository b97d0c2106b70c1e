// Package geo validates decoded coordinates and derives grid references for them.
package geo

import (
	"errors"
	"fmt"

	"github.com/golang/geo/s2"
	"github.com/tzneal/coordconv"
)

// CellLevel is the S2 level used for cell tokens, roughly 10 m cells.
const CellLevel = 20

// DefaultMGRSPrecision gives 1 m MGRS references.
const DefaultMGRSPrecision = 5

var ErrInvalidCoordinate = errors.New("invalid coordinate value")

// Grid holds the references derived for one coordinate pair.
type Grid struct {
	CellToken string `json:"cellToken"`
	UTM       string `json:"utm,omitempty"`
	MGRS      string `json:"mgrs,omitempty"`
}

// LatLng builds an s2.LatLng from decimal degrees.
func LatLng(lat, lon float64) s2.LatLng {
	return s2.LatLngFromDegrees(lat, lon)
}

// ValidateCoordinates checks if coordinates are within valid ranges
func ValidateCoordinates(lat, lon float64) error {
	if !LatLng(lat, lon).IsValid() {
		return fmt.Errorf("%w: lat=%.6f, lon=%.6f", ErrInvalidCoordinate, lat, lon)
	}
	return nil
}

// GridFor computes the S2 cell token, UTM and MGRS references for a fix.
// UTM and MGRS stay empty where the converters reject the coordinate, e.g.
// in the polar regions.
func GridFor(lat, lon float64, mgrsPrecision int) (Grid, error) {
	if err := ValidateCoordinates(lat, lon); err != nil {
		return Grid{}, err
	}
	if mgrsPrecision < 0 || mgrsPrecision > 5 {
		mgrsPrecision = DefaultMGRSPrecision
	}

	ll := LatLng(lat, lon)
	grid := Grid{
		CellToken: s2.CellIDFromLatLng(ll).Parent(CellLevel).ToToken(),
	}

	if utm, err := coordconv.DefaultUTMConverter.ConvertFromGeodetic(ll, 0); err == nil {
		grid.UTM = fmt.Sprintf("%d%c %.0f %.0f", utm.Zone, hemisphereRune(utm.Hemisphere), utm.Easting, utm.Northing)
	}
	if mgrs, err := coordconv.DefaultMGRSConverter.ConvertFromGeodetic(ll, mgrsPrecision); err == nil {
		grid.MGRS = fmt.Sprint(mgrs)
	}

	return grid, nil
}

func hemisphereRune(h coordconv.Hemisphere) rune {
	switch h {
	case coordconv.HemisphereNorth:
		return 'N'
	case coordconv.HemisphereSouth:
		return 'S'
	default:
		return '?'
	}
}
