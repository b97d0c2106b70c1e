package service

import (
	"ttnmapper/internal/core/model"
	"ttnmapper/internal/core/repository"
)

type DeviceService interface {
	GetDevice(id string) (*model.Device, error)
	GetAllDevices() ([]*model.Device, error)
	DeleteDevice(id string) error
	// LatestPositions returns the last stored position of every device, in device ID order.
	LatestPositions() ([]*model.Position, error)
}

type deviceService struct {
	deviceRepo   repository.DeviceRepository
	positionRepo repository.PositionRepository
}

func NewDeviceService(deviceRepo repository.DeviceRepository, positionRepo repository.PositionRepository) DeviceService {
	return &deviceService{
		deviceRepo:   deviceRepo,
		positionRepo: positionRepo,
	}
}

func (s *deviceService) GetDevice(id string) (*model.Device, error) {
	if id == "" {
		return nil, ErrInvalidDevice
	}
	return s.deviceRepo.FindByID(id)
}

func (s *deviceService) GetAllDevices() ([]*model.Device, error) {
	return s.deviceRepo.FindAll()
}

func (s *deviceService) DeleteDevice(id string) error {
	if id == "" {
		return ErrInvalidDevice
	}
	return s.deviceRepo.Delete(id)
}

func (s *deviceService) LatestPositions() ([]*model.Position, error) {
	devices, err := s.deviceRepo.FindAll()
	if err != nil {
		return nil, err
	}

	positions := make([]*model.Position, 0, len(devices))
	for _, device := range devices {
		if device.PositionID == "" {
			continue
		}
		position, err := s.positionRepo.FindByID(device.PositionID)
		if err != nil {
			return nil, err
		}
		if position != nil {
			positions = append(positions, position)
		}
	}
	return positions, nil
}
