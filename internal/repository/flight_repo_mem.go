package repository

import (
	"context"
	"sort"

	"github.com/avetkin/flighttracker/internal/domain"
)

// MemFlightRepository is the demo inventory: a fixed table keyed by
// small ids, used when no database is configured.
type MemFlightRepository struct {
	flights map[int64]domain.Flight
}

func NewMemFlightRepository() *MemFlightRepository {
	r := &MemFlightRepository{flights: make(map[int64]domain.Flight)}
	for _, f := range demoFlights() {
		r.flights[f.ID] = f
	}
	return r
}

func demoFlights() []domain.Flight {
	return []domain.Flight{
		{
			ID: 1, Airline: "Air India", BaseFare: 25000,
			Departure: "08:30", Arrival: "11:45", Duration: "3h 15m", Stops: "Non-stop",
			Rating: 4.2, From: "Mumbai", To: "Delhi", Date: "2024-02-15",
			Aircraft: "Boeing 737-800", Terminal: "Terminal 2", Gate: "Gate A12", Baggage: "25kg included",
		},
		{
			ID: 2, Airline: "IndiGo", BaseFare: 18000,
			Departure: "14:20", Arrival: "17:35", Duration: "3h 15m", Stops: "Non-stop",
			Rating: 4.5, From: "Mumbai", To: "Delhi", Date: "2024-02-15",
			Aircraft: "Airbus A320", Terminal: "Terminal 1", Gate: "Gate B8", Baggage: "15kg included",
		},
		{
			ID: 3, Airline: "SpiceJet", BaseFare: 22000,
			Departure: "06:45", Arrival: "12:30", Duration: "5h 45m", Stops: "1 stop",
			Rating: 4.0, From: "Mumbai", To: "Delhi", Date: "2024-02-15",
			Aircraft: "Boeing 737 MAX", Terminal: "Terminal 2", Gate: "Gate C15", Baggage: "20kg included",
		},
		{
			ID: 4, Airline: "Vistara", BaseFare: 28000,
			Departure: "19:15", Arrival: "22:30", Duration: "3h 15m", Stops: "Non-stop",
			Rating: 4.3, From: "Mumbai", To: "Delhi", Date: "2024-02-15",
			Aircraft: "Airbus A321", Terminal: "Terminal 2", Gate: "Gate A5", Baggage: "30kg included",
		},
	}
}

func (r *MemFlightRepository) List(ctx context.Context) ([]domain.Flight, error) {
	flights := make([]domain.Flight, 0, len(r.flights))
	for _, f := range r.flights {
		flights = append(flights, f)
	}
	sort.Slice(flights, func(i, j int) bool { return flights[i].ID < flights[j].ID })
	return flights, nil
}

func (r *MemFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	f, ok := r.flights[id]
	if !ok {
		return nil, domain.ErrFlightNotFound
	}
	return &f, nil
}

var _ FlightRepository = (*MemFlightRepository)(nil)
