package reservation

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"chauffeur/internal/logger"
	"chauffeur/internal/types"
)

func TestNewNotification(t *testing.T) {
	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	r := &Reservation{
		ID:            "r-1",
		CustomerID:    "c-1",
		CustomerEmail: "c@example.com",
		Status:        StatusConfirmed,
		Price:         types.Money{Amount: 6550, Currency: "EUR"},
	}
	n := newNotification(r, at)
	if n.Type != "reservation.confirmed" || n.Price != 65.5 || !n.OccurredAt.Equal(at) {
		t.Fatalf("notification = %+v", n)
	}

	body, err := json.Marshal(n)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), `"reservation_id":"r-1"`) {
		t.Errorf("body = %s", body)
	}
}

func TestLogPublisher(t *testing.T) {
	log, err := logger.New(logger.Config{Level: "info", Format: "json"})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	log.SetOutput(&buf)

	p := NewLogPublisher(log)
	if err := p.Publish(context.Background(), Notification{Type: "reservation.pending", ReservationID: "r-9"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"reservation_id":"r-9"`) {
		t.Errorf("log = %s", buf.String())
	}
}

func TestNewKafkaPublisher_ShortBatchTimeout(t *testing.T) {
	p := NewKafkaPublisher([]string{"localhost:9092"}, "reservations")
	defer p.Close()

	if p.writer.BatchTimeout <= 0 || p.writer.BatchTimeout > 50*time.Millisecond {
		t.Errorf("BatchTimeout = %v, want a few milliseconds", p.writer.BatchTimeout)
	}
	if p.writer.Topic != "reservations" {
		t.Errorf("Topic = %q", p.writer.Topic)
	}
	if p.writer.Addr == nil || p.writer.Addr.String() != "localhost:9092" {
		t.Errorf("Addr = %v", p.writer.Addr)
	}
}
