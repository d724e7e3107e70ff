// README: Reservation lifecycle notifications published to Kafka.
package reservation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"chauffeur/internal/logger"
)

// Notification is the message body consumed by downstream mailers.
type Notification struct {
	Type          string    `json:"type"`
	ReservationID string    `json:"reservation_id"`
	Status        Status    `json:"status"`
	CustomerID    string    `json:"customer_id"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	Departure     string    `json:"departure_address"`
	Arrival       string    `json:"arrival_address"`
	PickupAt      time.Time `json:"pickup_at"`
	Price         float64   `json:"price"`
	Currency      string    `json:"currency"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func newNotification(r *Reservation, at time.Time) Notification {
	return Notification{
		Type:          "reservation." + string(r.Status),
		ReservationID: string(r.ID),
		Status:        r.Status,
		CustomerID:    r.CustomerID,
		CustomerName:  r.CustomerName,
		CustomerEmail: r.CustomerEmail,
		Departure:     r.DepartureAddress,
		Arrival:       r.ArrivalAddress,
		PickupAt:      r.PickupAt,
		Price:         r.Price.Float(),
		Currency:      r.Price.Currency,
		OccurredAt:    at,
	}
}

type Publisher interface {
	Publish(ctx context.Context, n Notification) error
}

type KafkaPublisher struct {
	writer *kafka.Writer
}

// publishBatchTimeout bounds how long a single WriteMessages call waits for a
// batch to fill; each reservation transition writes one message.
const publishBatchTimeout = 10 * time.Millisecond

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: publishBatchTimeout,
	}}
}

// Publish keys messages by reservation id so one reservation's events stay ordered.
func (p *KafkaPublisher) Publish(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(n.ReservationID),
		Value: body,
		Time:  n.OccurredAt,
	}); err != nil {
		return fmt.Errorf("write notification: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher stands in for Kafka when no brokers are configured.
type LogPublisher struct {
	log *logger.Logger
}

func NewLogPublisher(log *logger.Logger) *LogPublisher {
	return &LogPublisher{log: log.WithField("component", "reservation_events")}
}

func (p *LogPublisher) Publish(_ context.Context, n Notification) error {
	p.log.WithFields(map[string]any{
		"type":           n.Type,
		"reservation_id": n.ReservationID,
		"price":          n.Price,
	}).Info("reservation notification")
	return nil
}
