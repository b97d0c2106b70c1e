package repository

import (
	"ttnmapper/internal/core/model"
)

type PositionRepository interface {
	Create(position *model.Position) error
	FindByID(id string) (*model.Position, error)
	FindByDeviceID(deviceID string) ([]*model.Position, error)
	FindLatestByDeviceID(deviceID string) (*model.Position, error)
}
