package email

import (
	"context"
	"fmt"

	"github.com/avetkin/flighttracker/internal/kafka"
)

type Sender struct{}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	fmt.Printf("send confirmation email to %s: booking %s, %s %s -> %s, %d passenger(s), total %d\n",
		event.Email, event.Reference, event.Airline, event.From, event.To, event.Passengers, event.AmountPaid)
	return nil
}
