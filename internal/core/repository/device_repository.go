package repository

import (
	"ttnmapper/internal/core/model"
)

type DeviceRepository interface {
	Create(device *model.Device) error
	Update(device *model.Device) error
	Delete(id string) error
	FindByID(id string) (*model.Device, error)
	FindAll() ([]*model.Device, error)
}
