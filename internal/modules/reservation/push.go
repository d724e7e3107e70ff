// README: Staff push notifications over Firebase Cloud Messaging for new and cancelled bookings.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"firebase.google.com/go/v4/messaging"
)

// MessageSender is satisfied by *messaging.Client.
type MessageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// PushPublisher notifies the staff devices subscribed to topic.
type PushPublisher struct {
	client MessageSender
	topic  string
}

func NewPushPublisher(client MessageSender, topic string) *PushPublisher {
	return &PushPublisher{client: client, topic: topic}
}

// Publish only pushes statuses that need a human: new and cancelled bookings.
func (p *PushPublisher) Publish(ctx context.Context, n Notification) error {
	var title string
	switch n.Status {
	case StatusPending:
		title = "New booking"
	case StatusCancelled:
		title = "Booking cancelled"
	default:
		return nil
	}

	msg := &messaging.Message{
		Topic: p.topic,
		Data: map[string]string{
			"type":           n.Type,
			"reservation_id": n.ReservationID,
			"status":         string(n.Status),
			"pickup_at":      n.PickupAt.Format(time.RFC3339),
			"price":          strconv.FormatFloat(n.Price, 'f', 2, 64),
			"currency":       n.Currency,
		},
		Notification: &messaging.Notification{
			Title: title,
			Body:  fmt.Sprintf("%s, %s to %s, %.2f %s", n.PickupAt.Format("02/01 15:04"), n.Departure, n.Arrival, n.Price, n.Currency),
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}
	if _, err := p.client.Send(ctx, msg); err != nil {
		return fmt.Errorf("send push for reservation %s: %w", n.ReservationID, err)
	}
	return nil
}

// Publishers fans a notification out to every publisher and joins their errors.
type Publishers []Publisher

func (ps Publishers) Publish(ctx context.Context, n Notification) error {
	var errs []error
	for _, p := range ps {
		if err := p.Publish(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
