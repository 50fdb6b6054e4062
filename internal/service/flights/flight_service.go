package flights

import (
	"context"

	"github.com/avetkin/flighttracker/internal/domain"
	"github.com/avetkin/flighttracker/internal/repository"
)

type FlightUseCase interface {
	List(ctx context.Context) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
}

type FlightCache interface {
	GetFlights(ctx context.Context) ([]domain.Flight, error)
	SetFlights(ctx context.Context, flights []domain.Flight) error
}

type FlightService struct {
	repo  repository.FlightRepository
	cache FlightCache
}

func NewFlightService(repo repository.FlightRepository, cache FlightCache) *FlightService {
	return &FlightService{repo: repo, cache: cache}
}

func (s *FlightService) List(ctx context.Context) ([]domain.Flight, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetFlights(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	flights, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.SetFlights(ctx, flights)
	}
	return flights, nil
}

func (s *FlightService) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	return s.repo.GetByID(ctx, id)
}

var _ FlightUseCase = (*FlightService)(nil)
