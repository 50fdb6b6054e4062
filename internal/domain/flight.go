package domain

import "time"

// Flight is a single offer from the inventory. Read-only to the booking
// flow once fetched.
type Flight struct {
	ID        int64   `json:"id"`
	Airline   string  `json:"airline"`
	BaseFare  int64   `json:"base_fare"`
	Departure string  `json:"departure"`
	Arrival   string  `json:"arrival"`
	Duration  string  `json:"duration"`
	Stops     string  `json:"stops"`
	Rating    float64 `json:"rating"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	Date      string  `json:"date"`
	Aircraft  string  `json:"aircraft"`
	Terminal  string  `json:"terminal"`
	Gate      string  `json:"gate"`
	Baggage   string  `json:"baggage"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
