package domain

import "errors"

var (
	ErrFlightNotFound     = errors.New("flight not found")
	ErrAttemptNotFound    = errors.New("booking attempt not found")
	ErrNoPassengers       = errors.New("at least one passenger is required")
	ErrPassengerIndex     = errors.New("passenger index out of range")
	ErrUnknownField       = errors.New("unknown field")
	ErrInvalidFieldValue  = errors.New("invalid field value")
	ErrNotAtPaymentStep   = errors.New("booking is not at the payment step")
	ErrPaymentInProgress  = errors.New("a payment is already in progress")
	ErrCheckoutNotOpen    = errors.New("no open checkout matches this order reference")
	ErrPaymentRequired    = errors.New("confirmation requires a successful payment")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrPaymentDeclined    = errors.New("payment declined")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrEmailTaken         = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNoCurrentUser      = errors.New("no user is signed in")
)
