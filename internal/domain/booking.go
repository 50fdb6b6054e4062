package domain

import "time"

type Step int

const (
	StepPassengerDetails Step = iota + 1
	StepContactInformation
	StepPayment
	StepConfirmation
)

func (s Step) String() string {
	switch s {
	case StepPassengerDetails:
		return "passenger_details"
	case StepContactInformation:
		return "contact_information"
	case StepPayment:
		return "payment"
	case StepConfirmation:
		return "confirmation"
	default:
		return "unknown"
	}
}

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

type SeatPreference string

const (
	SeatWindow SeatPreference = "window"
	SeatAisle  SeatPreference = "aisle"
	SeatMiddle SeatPreference = "middle"
)

type Passenger struct {
	FirstName      string         `json:"first_name"`
	LastName       string         `json:"last_name"`
	Age            int            `json:"age"`
	Gender         Gender         `json:"gender"`
	SeatPreference SeatPreference `json:"seat_preference"`
}

type ContactInfo struct {
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// BookingAttempt is one in-progress purchase of a flight. It lives in
// memory for the duration of the flow and is discarded when the user
// leaves or restarts.
type BookingAttempt struct {
	ID            string        `json:"id"`
	Flight        *Flight       `json:"flight"`
	Passengers    []Passenger   `json:"passengers"`
	Contact       ContactInfo   `json:"contact"`
	Step          Step          `json:"step"`
	PaymentStatus PaymentStatus `json:"payment_status"`

	// OrderRef is regenerated for every checkout opened against this
	// attempt; BookingRef is assigned once on confirmation.
	OrderRef         string `json:"order_ref,omitempty"`
	BookingRef       string `json:"booking_ref,omitempty"`
	PaymentPending   bool   `json:"payment_pending"`
	LastPaymentError string `json:"last_payment_error,omitempty"`

	// Total is derived, never stored: the controller recomputes it on
	// every snapshot it hands out.
	Total int64 `json:"total"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BookingRecord is the durable trace of a confirmed attempt: it goes to
// the archive, onto the identity's booking list and out as an event.
type BookingRecord struct {
	Reference    string    `json:"reference"`
	FlightID     int64     `json:"flight_id"`
	Airline      string    `json:"airline"`
	From         string    `json:"from"`
	To           string    `json:"to"`
	Passengers   int       `json:"passengers"`
	AmountPaid   int64     `json:"amount_paid"`
	ContactEmail string    `json:"contact_email"`
	ConfirmedAt  time.Time `json:"confirmed_at"`
}
