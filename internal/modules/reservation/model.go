// README: Reservation aggregate and status definitions.
package reservation

import (
	"time"

	"chauffeur/internal/types"
)

type Status string

const (
	StatusNone      Status = "none"
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

const (
	ActorCustomer = "customer"
	ActorAdmin    = "admin"
)

type Reservation struct {
	ID               types.ID    `json:"id"`
	CustomerID       string      `json:"customer_id"`
	CustomerName     string      `json:"customer_name"`
	CustomerEmail    string      `json:"customer_email"`
	CustomerPhone    string      `json:"customer_phone"`
	DepartureAddress string      `json:"departure_address"`
	ArrivalAddress   string      `json:"arrival_address"`
	PickupAt         time.Time   `json:"pickup_at"`
	Passengers       int         `json:"passengers"`
	Luggage          int         `json:"luggage"`
	Notes            *string     `json:"notes,omitempty"`
	DistanceKm       *float64    `json:"distance_km,omitempty"`
	Price            types.Money `json:"price"`
	DepartureZone    string      `json:"departure_zone"`
	ArrivalZone      string      `json:"arrival_zone"`
	PricingMethod    string      `json:"pricing_method"`
	Status           Status      `json:"status"`
	StatusVersion    int         `json:"-"`
	CreatedAt        time.Time   `json:"created_at"`
	ConfirmedAt      *time.Time  `json:"confirmed_at,omitempty"`
	CompletedAt      *time.Time  `json:"completed_at,omitempty"`
	CancelledAt      *time.Time  `json:"cancelled_at,omitempty"`
	CancelReason     *string     `json:"cancel_reason,omitempty"`
}

type Event struct {
	ID            int64
	ReservationID types.ID
	FromStatus    Status
	ToStatus      Status
	ActorType     string
	ActorID       *string
	CreatedAt     time.Time
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// AllowedTransitions is the reservation lifecycle as code.
var AllowedTransitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
