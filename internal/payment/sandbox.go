package payment

import (
	"context"
	"time"

	"github.com/avetkin/flighttracker/internal/domain"
	"github.com/google/uuid"
)

// Decision maps a checkout request to its outcome. The default approves
// everything, the way the wrapped gateway's test mode approves its test
// cards.
type Decision func(req CheckoutRequest) Outcome

func Approve(req CheckoutRequest) Outcome {
	return Outcome{Kind: OutcomeSucceeded, PaymentID: "pay_" + uuid.NewString()[:12]}
}

// Sandbox simulates the hosted checkout widget: Open resolves the
// outcome asynchronously after a short latency, like the real widget's
// handler callback. With available=false it behaves like a failed
// script load.
type Sandbox struct {
	available bool
	latency   time.Duration
	decide    Decision
}

type SandboxOption func(*Sandbox)

func WithLatency(d time.Duration) SandboxOption {
	return func(s *Sandbox) { s.latency = d }
}

func WithDecision(d Decision) SandboxOption {
	return func(s *Sandbox) {
		if d != nil {
			s.decide = d
		}
	}
}

func WithAvailable(ok bool) SandboxOption {
	return func(s *Sandbox) { s.available = ok }
}

func NewSandbox(opts ...SandboxOption) *Sandbox {
	s := &Sandbox{
		available: true,
		latency:   100 * time.Millisecond,
		decide:    Approve,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sandbox) Ready(ctx context.Context) error {
	if !s.available {
		return domain.ErrGatewayUnavailable
	}
	return nil
}

func (s *Sandbox) Open(ctx context.Context, req CheckoutRequest) (<-chan Outcome, error) {
	if !s.available {
		return nil, domain.ErrGatewayUnavailable
	}

	out := make(chan Outcome, 1)
	go func() {
		defer close(out)
		select {
		case <-ctx.Done():
			out <- Outcome{Kind: OutcomeDismissed}
		case <-time.After(s.latency):
			out <- s.decide(req)
		}
	}()
	return out, nil
}

var _ Gateway = (*Sandbox)(nil)
