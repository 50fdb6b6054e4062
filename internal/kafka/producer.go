package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// BookingEvent is published when an attempt reaches confirmation.
type BookingEvent struct {
	Type        string    `json:"type"`
	Reference   string    `json:"reference"`
	FlightID    int64     `json:"flight_id"`
	Airline     string    `json:"airline"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Passengers  int       `json:"passengers"`
	AmountPaid  int64     `json:"amount_paid"`
	Email       string    `json:"email"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	})
}

func (p *Producer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
