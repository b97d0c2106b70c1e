package repository

import (
	"fmt"
	"sync"
	"ttnmapper/internal/core/model"
)

// inMemoryPositionRepository keeps positions for the life of the process.
// Per-device slices are in insertion order.
type inMemoryPositionRepository struct {
	positions map[string]*model.Position
	byDevice  map[string][]*model.Position
	mutex     sync.RWMutex
}

func NewInMemoryPositionRepository() PositionRepository {
	return &inMemoryPositionRepository{
		positions: make(map[string]*model.Position),
		byDevice:  make(map[string][]*model.Position),
	}
}

func (r *inMemoryPositionRepository) Create(position *model.Position) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.positions[position.ID]; exists {
		return fmt.Errorf("position with ID %s already exists", position.ID)
	}

	r.positions[position.ID] = position
	r.byDevice[position.DeviceID] = append(r.byDevice[position.DeviceID], position)
	return nil
}

func (r *inMemoryPositionRepository) FindByID(id string) (*model.Position, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if position, exists := r.positions[id]; exists {
		return position, nil
	}
	return nil, nil
}

func (r *inMemoryPositionRepository) FindByDeviceID(deviceID string) ([]*model.Position, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	positions := r.byDevice[deviceID]
	result := make([]*model.Position, len(positions))
	copy(result, positions)
	return result, nil
}

func (r *inMemoryPositionRepository) FindLatestByDeviceID(deviceID string) (*model.Position, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var latest *model.Position
	for _, position := range r.byDevice[deviceID] {
		// later inserts win ties
		if latest == nil || !position.Timestamp.Before(latest.Timestamp) {
			latest = position
		}
	}
	return latest, nil
}
