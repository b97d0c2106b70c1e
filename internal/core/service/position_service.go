package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"ttnmapper/internal/core/model"
	"ttnmapper/internal/core/repository"
	"ttnmapper/internal/geo"
	"ttnmapper/internal/protocol/ttnmapper"
	"ttnmapper/internal/uplink"
)

var (
	ErrInvalidDevice = errors.New("invalid device ID")
	ErrNoFix         = errors.New("payload carries no known position format")
)

type PositionService interface {
	ProcessUplink(u uplink.Uplink) (*model.Position, error)
	ProcessBatch(ctx context.Context, uplinks []uplink.Uplink) []Result
	GetDevicePositions(deviceID string) ([]*model.Position, error)
	GetLatestPosition(deviceID string) (*model.Position, error)
}

// Options controls enrichment and concurrency of the position service.
type Options struct {
	Grid          bool
	MGRSPrecision int
	Workers       int
	Debug         bool
	Logger        *zerolog.Logger
}

// Result is the outcome for one uplink of a batch.
type Result struct {
	Uplink   uplink.Uplink
	Position *model.Position
	Err      error
}

type positionService struct {
	positionRepo repository.PositionRepository
	deviceRepo   repository.DeviceRepository
	decoder      *ttnmapper.Decoder
	opts         Options
	logger       zerolog.Logger

	// serialises find-or-create of devices
	deviceMu sync.Mutex
}

func NewPositionService(positionRepo repository.PositionRepository, deviceRepo repository.DeviceRepository, opts Options) PositionService {
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}

	decoder := ttnmapper.NewDecoderWithLogger(logger)
	decoder.EnableDebug(opts.Debug)

	return &positionService{
		positionRepo: positionRepo,
		deviceRepo:   deviceRepo,
		decoder:      decoder,
		opts:         opts,
		logger:       logger.With().Str("component", "position_service").Logger(),
	}
}

func (s *positionService) ProcessUplink(u uplink.Uplink) (*model.Position, error) {
	if u.DeviceID == "" {
		return nil, ErrInvalidDevice
	}

	fix, err := s.decoder.Decode(u.Payload, u.Port)
	if err != nil {
		return nil, err
	}

	position := s.decoder.ToPosition(u.DeviceID, u.Port, fix)
	if position == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoFix, ttnmapper.Format(u.Payload[0]))
	}
	if !u.ReceivedAt.IsZero() {
		position.Timestamp = u.ReceivedAt
	}

	s.enrich(position)

	if err := s.positionRepo.Create(position); err != nil {
		return nil, err
	}
	if err := s.touchDevice(position); err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("device", position.DeviceID).
		Str("format", position.Format).
		Float64("lat", position.Latitude).
		Float64("lon", position.Longitude).
		Msg("stored position")
	return position, nil
}

// enrich flags out-of-range fixes and attaches grid references.
func (s *positionService) enrich(position *model.Position) {
	if err := geo.ValidateCoordinates(position.Latitude, position.Longitude); err != nil {
		position.Valid = false
		position.Status["invalidCoordinate"] = true
		s.logger.Warn().Err(err).Str("device", position.DeviceID).Msg("decoded fix out of range")
		return
	}
	if !s.opts.Grid {
		return
	}

	grid, err := geo.GridFor(position.Latitude, position.Longitude, s.opts.MGRSPrecision)
	if err != nil {
		s.logger.Warn().Err(err).Str("device", position.DeviceID).Msg("grid reference failed")
		return
	}
	position.Grid = &grid
}

func (s *positionService) touchDevice(position *model.Position) error {
	s.deviceMu.Lock()
	defer s.deviceMu.Unlock()

	device, err := s.deviceRepo.FindByID(position.DeviceID)
	if err != nil {
		return err
	}
	if device == nil {
		device = model.NewDevice(position.DeviceID, ttnmapper.ProtocolName)
		if err := s.deviceRepo.Create(device); err != nil {
			return err
		}
	}

	device.Touch(position)
	return s.deviceRepo.Update(device)
}

// ProcessBatch processes uplinks on up to Options.Workers goroutines. Results
// are in input order; a failing uplink does not stop the others. Uplinks not
// yet started when ctx is done get ctx.Err().
func (s *positionService) ProcessBatch(ctx context.Context, uplinks []uplink.Uplink) []Result {
	results := make([]Result, len(uplinks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	for i, u := range uplinks {
		if err := ctx.Err(); err != nil {
			results[i] = Result{Uplink: u, Err: err}
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = Result{Uplink: u, Err: err}
				return nil
			}
			position, err := s.ProcessUplink(u)
			results[i] = Result{Uplink: u, Position: position, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (s *positionService) GetDevicePositions(deviceID string) ([]*model.Position, error) {
	if deviceID == "" {
		return nil, ErrInvalidDevice
	}
	return s.positionRepo.FindByDeviceID(deviceID)
}

func (s *positionService) GetLatestPosition(deviceID string) (*model.Position, error) {
	if deviceID == "" {
		return nil, ErrInvalidDevice
	}
	return s.positionRepo.FindLatestByDeviceID(deviceID)
}
