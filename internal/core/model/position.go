package model

import (
	"time"
	"ttnmapper/internal/core/util"
	"ttnmapper/internal/geo"
)

type Position struct {
	ID        string                 `json:"id"`
	DeviceID  string                 `json:"deviceId"`
	Timestamp time.Time              `json:"timestamp"`
	Port      int                    `json:"port"`
	Format    string                 `json:"format"`
	Latitude  float64                `json:"latitude"`
	Longitude float64                `json:"longitude"`
	Altitude  *int                   `json:"altitude,omitempty"` // meters, format 5 only
	HDOP      *float64               `json:"hdop,omitempty"`     // format 5 only
	Protocol  string                 `json:"protocol"`
	Valid     bool                   `json:"valid"` // coordinates within range
	Grid      *geo.Grid              `json:"grid,omitempty"`
	Status    map[string]interface{} `json:"status,omitempty"` // Additional status information
}

func NewPosition(deviceID string, lat, lon float64) *Position {
	return &Position{
		ID:        util.GenerateID(),
		DeviceID:  deviceID,
		Timestamp: time.Now().UTC(),
		Latitude:  lat,
		Longitude: lon,
		Protocol:  "unknown",
		Valid:     true,
		Status:    make(map[string]interface{}),
	}
}

// SetExtended records the altitude and HDOP of an extended fix.
func (p *Position) SetExtended(altitude int, hdop float64) {
	p.Altitude = &altitude
	p.HDOP = &hdop
}
