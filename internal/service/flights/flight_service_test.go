package flights

import (
	"context"
	"errors"
	"testing"

	"github.com/avetkin/flighttracker/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockFlightRepository struct {
	mock.Mock
}

func (m *MockFlightRepository) List(ctx context.Context) ([]domain.Flight, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetFlights(ctx context.Context) ([]domain.Flight, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockCache) SetFlights(ctx context.Context, flights []domain.Flight) error {
	args := m.Called(ctx, flights)
	return args.Error(0)
}

func demoList() []domain.Flight {
	return []domain.Flight{
		{
			ID:       2,
			Airline:  "IndiGo",
			BaseFare: 18000,
			From:     "Mumbai",
			To:       "Delhi",
		},
	}
}

func TestFlightService_List_CacheMiss(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}

	service := NewFlightService(mockRepo, mockCache)

	ctx := context.Background()
	flights := demoList()

	// Кэш пустой
	mockCache.On("GetFlights", ctx).Return(([]domain.Flight)(nil), nil).Once()
	mockRepo.On("List", ctx).Return(flights, nil).Once()
	mockCache.On("SetFlights", ctx, flights).Return(nil).Once()

	result, err := service.List(ctx)

	assert.NoError(t, err)
	assert.Equal(t, flights, result)

	mockCache.AssertExpectations(t)
	mockRepo.AssertExpectations(t)
}

func TestFlightService_List_CacheHit(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}

	service := NewFlightService(mockRepo, mockCache)

	ctx := context.Background()
	flights := demoList()

	// Данные есть в кэше
	mockCache.On("GetFlights", ctx).Return(flights, nil).Once()

	result, err := service.List(ctx)

	assert.NoError(t, err)
	assert.Equal(t, flights, result)

	mockCache.AssertExpectations(t)
	mockRepo.AssertNotCalled(t, "List")
	mockCache.AssertNotCalled(t, "SetFlights")
}

func TestFlightService_List_CacheError(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}

	service := NewFlightService(mockRepo, mockCache)

	ctx := context.Background()
	flights := demoList()

	// Ошибка кэша не фатальна, идем в репозиторий
	mockCache.On("GetFlights", ctx).Return(([]domain.Flight)(nil), errors.New("cache error")).Once()
	mockRepo.On("List", ctx).Return(flights, nil).Once()
	mockCache.On("SetFlights", ctx, flights).Return(nil).Once()

	result, err := service.List(ctx)

	assert.NoError(t, err)
	assert.Equal(t, flights, result)

	mockCache.AssertExpectations(t)
	mockRepo.AssertExpectations(t)
}

func TestFlightService_List_RepositoryError(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}

	service := NewFlightService(mockRepo, mockCache)

	ctx := context.Background()

	expectedErr := errors.New("database error")
	mockCache.On("GetFlights", ctx).Return(([]domain.Flight)(nil), nil).Once()
	mockRepo.On("List", ctx).Return([]domain.Flight{}, expectedErr).Once()

	result, err := service.List(ctx)

	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, expectedErr, err)

	mockCache.AssertExpectations(t)
	mockRepo.AssertExpectations(t)
	mockCache.AssertNotCalled(t, "SetFlights")
}

func TestFlightService_GetByID_Success(t *testing.T) {
	mockRepo := &MockFlightRepository{}

	service := NewFlightService(mockRepo, nil)

	ctx := context.Background()
	flight := &domain.Flight{ID: 2, Airline: "IndiGo", BaseFare: 18000}

	mockRepo.On("GetByID", ctx, int64(2)).Return(flight, nil).Once()

	result, err := service.GetByID(ctx, 2)

	assert.NoError(t, err)
	assert.Equal(t, flight, result)

	mockRepo.AssertExpectations(t)
}

func TestFlightService_GetByID_NotFound(t *testing.T) {
	mockRepo := &MockFlightRepository{}

	service := NewFlightService(mockRepo, nil)

	ctx := context.Background()
	mockRepo.On("GetByID", ctx, int64(999)).Return(nil, domain.ErrFlightNotFound).Once()

	result, err := service.GetByID(ctx, 999)

	assert.ErrorIs(t, err, domain.ErrFlightNotFound)
	assert.Nil(t, result)

	mockRepo.AssertExpectations(t)
}

func TestFlightService_NoCache(t *testing.T) {
	mockRepo := &MockFlightRepository{}

	service := NewFlightService(mockRepo, nil)

	ctx := context.Background()
	flights := demoList()

	// Должен вызываться только репозиторий
	mockRepo.On("List", ctx).Return(flights, nil).Once()

	result, err := service.List(ctx)

	assert.NoError(t, err)
	assert.Equal(t, flights, result)

	mockRepo.AssertExpectations(t)
}
