package repository

import (
	"context"
	"errors"

	"github.com/avetkin/flighttracker/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FlightRepository interface {
	List(ctx context.Context) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
}

type PGFlightRepository struct {
	db *pgxpool.Pool
}

func NewFlightRepository(db *pgxpool.Pool) FlightRepository {
	return &PGFlightRepository{db: db}
}

const flightColumns = `id, airline, base_fare, departure, arrival, duration, stops, rating, from_city, to_city, flight_date, aircraft, terminal, gate, baggage, created_at, updated_at`

func scanFlight(row pgx.Row) (*domain.Flight, error) {
	var f domain.Flight
	err := row.Scan(&f.ID, &f.Airline, &f.BaseFare, &f.Departure, &f.Arrival, &f.Duration, &f.Stops, &f.Rating, &f.From, &f.To, &f.Date, &f.Aircraft, &f.Terminal, &f.Gate, &f.Baggage, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *PGFlightRepository) List(ctx context.Context) ([]domain.Flight, error) {
	rows, err := r.db.Query(ctx, `SELECT `+flightColumns+` FROM flights ORDER BY departure`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, *f)
	}
	return flights, rows.Err()
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	row := r.db.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1`, id)
	f, err := scanFlight(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFlightNotFound
		}
		return nil, err
	}
	return f, nil
}

var _ FlightRepository = (*PGFlightRepository)(nil)
