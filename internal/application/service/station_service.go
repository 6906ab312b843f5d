package service

import (
	"context"
	"time"

	"github.com/webgradeuz/fuelbonus/internal/application/port"
	"github.com/webgradeuz/fuelbonus/internal/domain/entity"
)

// StationService manages fuel stations
type StationService interface {
	Create(ctx context.Context, name, address string) (*entity.Station, error)
	GetByID(ctx context.Context, id int64) (*entity.Station, error)
	List(ctx context.Context) ([]*entity.Station, error)
}

type stationServiceImpl struct {
	stationRepo port.StationRepository
	logger      Logger
	now         func() time.Time
}

// NewStationService creates a new StationService
func NewStationService(stationRepo port.StationRepository, logger Logger) StationService {
	return &stationServiceImpl{
		stationRepo: stationRepo,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *stationServiceImpl) Create(ctx context.Context, name, address string) (*entity.Station, error) {
	station := &entity.Station{
		Name:      name,
		Address:   address,
		CreatedAt: s.now(),
	}
	if err := s.stationRepo.Create(ctx, station); err != nil {
		s.logger.Error("Failed to create station", "error", err, "name", name)
		return nil, err
	}
	s.logger.Info("Station created", "id", station.ID, "name", name)
	return station, nil
}

func (s *stationServiceImpl) GetByID(ctx context.Context, id int64) (*entity.Station, error) {
	return s.stationRepo.GetByID(ctx, id)
}

func (s *stationServiceImpl) List(ctx context.Context) ([]*entity.Station, error) {
	return s.stationRepo.List(ctx)
}
