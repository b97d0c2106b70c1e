package model

import (
	"time"
)

const (
	DeviceStatusInactive = "inactive"
	DeviceStatusActive   = "active"
)

// Device is a sender of uplinks, keyed by the device ID the network reports.
type Device struct {
	ID         string    `json:"id"`
	Status     string    `json:"status"`
	LastUpdate time.Time `json:"lastUpdate"`
	PositionID string    `json:"positionId,omitempty"`
	Port       int       `json:"port"`
	Protocol   string    `json:"protocol"`
	Uplinks    int       `json:"uplinks"`
	CreatedAt  time.Time `json:"createdAt"`
}

func NewDevice(id, protocol string) *Device {
	now := time.Now().UTC()
	return &Device{
		ID:         id,
		Status:     DeviceStatusInactive,
		LastUpdate: now,
		CreatedAt:  now,
		Protocol:   protocol,
	}
}

// Touch records a decoded position for the device. The position only
// becomes the current one if it is not older than the current one.
func (d *Device) Touch(position *Position) {
	d.Uplinks++
	d.Status = DeviceStatusActive
	if d.PositionID != "" && position.Timestamp.Before(d.LastUpdate) {
		return
	}
	d.PositionID = position.ID
	d.LastUpdate = position.Timestamp
	d.Port = position.Port
}
