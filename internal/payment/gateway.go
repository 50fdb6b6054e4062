package payment

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

type OutcomeKind string

const (
	OutcomeSucceeded OutcomeKind = "succeeded"
	OutcomeFailed    OutcomeKind = "failed"
	OutcomeDismissed OutcomeKind = "dismissed"
)

// Outcome is the gateway's final word on one checkout. Dismissed means
// the user closed the widget; it is not an error.
type Outcome struct {
	Kind      OutcomeKind `json:"kind"`
	PaymentID string      `json:"payment_id,omitempty"`
	Reason    string      `json:"reason,omitempty"`
}

type Prefill struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

type Theme struct {
	Color string `json:"color"`
}

type Retry struct {
	Enabled  bool `json:"enabled"`
	MaxCount int  `json:"max_count"`
}

// CheckoutRequest mirrors the hosted checkout's open() options. Amount
// is in minor currency units.
type CheckoutRequest struct {
	Key         string            `json:"key"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Image       string            `json:"image,omitempty"`
	OrderRef    string            `json:"order_ref"`
	Prefill     Prefill           `json:"prefill"`
	Notes       map[string]string `json:"notes,omitempty"`
	Theme       Theme             `json:"theme"`
	Retry       Retry             `json:"retry"`
}

// Gateway wraps a third-party hosted checkout. Ready reports whether the
// widget can be opened at all; it must stay distinct from a payment
// decision, since a failed script load is not a decline.
type Gateway interface {
	Ready(ctx context.Context) error
	Open(ctx context.Context, req CheckoutRequest) (<-chan Outcome, error)
}

// NewOrderRef builds an opaque order reference for one checkout.
func NewOrderRef(now time.Time) string {
	return fmt.Sprintf("order_%d_%d", now.UnixMilli(), rand.Intn(1000))
}
