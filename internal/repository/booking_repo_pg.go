package repository

import (
	"context"

	"github.com/avetkin/flighttracker/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BookingArchive keeps the durable history of confirmed bookings shown
// on the dashboard.
type BookingArchive interface {
	Insert(ctx context.Context, rec domain.BookingRecord) error
	ListByEmail(ctx context.Context, email string) ([]domain.BookingRecord, error)
}

type PGBookingArchive struct {
	db *pgxpool.Pool
}

func NewBookingArchive(db *pgxpool.Pool) BookingArchive {
	return &PGBookingArchive{db: db}
}

func (r *PGBookingArchive) Insert(ctx context.Context, rec domain.BookingRecord) error {
	_, err := r.db.Exec(ctx, `INSERT INTO bookings (reference, flight_id, airline, from_city, to_city, passengers, amount_paid, contact_email, confirmed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.Reference, rec.FlightID, rec.Airline, rec.From, rec.To, rec.Passengers, rec.AmountPaid, rec.ContactEmail, rec.ConfirmedAt)
	return err
}

func (r *PGBookingArchive) ListByEmail(ctx context.Context, email string) ([]domain.BookingRecord, error) {
	rows, err := r.db.Query(ctx, `SELECT reference, flight_id, airline, from_city, to_city, passengers, amount_paid, contact_email, confirmed_at
		FROM bookings WHERE contact_email=$1 ORDER BY confirmed_at DESC`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.BookingRecord
	for rows.Next() {
		var rec domain.BookingRecord
		if err := rows.Scan(&rec.Reference, &rec.FlightID, &rec.Airline, &rec.From, &rec.To, &rec.Passengers, &rec.AmountPaid, &rec.ContactEmail, &rec.ConfirmedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

var _ BookingArchive = (*PGBookingArchive)(nil)
