// README: Reservation service prices bookings and drives their status transitions.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"chauffeur/internal/logger"
	"chauffeur/internal/modules/pricing"
	"chauffeur/internal/types"
)

var (
	ErrInvalidState = errors.New("invalid state transition")
	ErrNotFound     = errors.New("reservation not found")
	ErrConflict     = errors.New("reservation state conflict")
	ErrForbidden    = errors.New("reservation belongs to another customer")
	ErrBadRequest   = errors.New("bad request")
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type Repository interface {
	Create(ctx context.Context, r *Reservation) error
	Get(ctx context.Context, id types.ID) (*Reservation, error)
	List(ctx context.Context, f ListFilter) ([]Reservation, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, reason *string) (bool, error)
	AppendEvent(ctx context.Context, e *Event) error
}

type Pricer interface {
	CalculatePrice(ctx context.Context, req pricing.Request) (pricing.Quote, error)
}

// DistanceProvider estimates the driving distance between two addresses.
type DistanceProvider interface {
	DistanceKm(ctx context.Context, origin, destination string) (float64, error)
}

type ListFilter struct {
	Status     Status
	CustomerID string
	Limit      int
}

type CreateCommand struct {
	CustomerID       string    `validate:"required"`
	CustomerName     string    `validate:"required,max=120"`
	CustomerEmail    string    `validate:"required,email"`
	CustomerPhone    string    `validate:"required,min=6,max=32"`
	DepartureAddress string    `validate:"required,max=300"`
	ArrivalAddress   string    `validate:"required,max=300"`
	PickupAt         time.Time `validate:"required"`
	Passengers       int       `validate:"gte=1,lte=8"`
	Luggage          int       `validate:"gte=0,lte=10"`
	Notes            string    `validate:"max=1000"`
	DistanceKm       *float64  `validate:"omitempty,gte=0"`
}

type TransitionCommand struct {
	ID        types.ID
	ActorType string
	ActorID   string
	Reason    string
}

type Service struct {
	store     Repository
	pricing   Pricer
	distances DistanceProvider
	publisher Publisher
	validate  *validator.Validate
	log       *logger.Logger
	now       func() time.Time
}

// NewService wires the booking flow. distances may be nil, in which case
// routes that need a distance must carry one in the request.
func NewService(store Repository, pricer Pricer, distances DistanceProvider, publisher Publisher, log *logger.Logger) *Service {
	return &Service{
		store:     store,
		pricing:   pricer,
		distances: distances,
		publisher: publisher,
		validate:  validator.New(),
		log:       log.WithField("component", "reservation"),
		now:       time.Now,
	}
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Reservation, error) {
	cmd.DepartureAddress = strings.TrimSpace(cmd.DepartureAddress)
	cmd.ArrivalAddress = strings.TrimSpace(cmd.ArrivalAddress)
	if err := s.validate.Struct(cmd); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadRequest, err.Error())
	}
	now := s.now()
	if !cmd.PickupAt.After(now) {
		return nil, fmt.Errorf("%w: pickup_at must be in the future", ErrBadRequest)
	}

	distance := cmd.DistanceKm
	if distance == nil && s.distances != nil {
		d, err := s.distances.DistanceKm(ctx, cmd.DepartureAddress, cmd.ArrivalAddress)
		if err != nil {
			s.log.WithError(err).Warn("distance lookup failed")
		} else {
			distance = &d
		}
	}

	quote, err := s.pricing.CalculatePrice(ctx, pricing.Request{
		Departure:  cmd.DepartureAddress,
		Arrival:    cmd.ArrivalAddress,
		DistanceKm: distance,
	})
	if err != nil {
		return nil, err
	}

	r := &Reservation{
		ID:               types.NewID(),
		CustomerID:       cmd.CustomerID,
		CustomerName:     strings.TrimSpace(cmd.CustomerName),
		CustomerEmail:    strings.ToLower(strings.TrimSpace(cmd.CustomerEmail)),
		CustomerPhone:    strings.TrimSpace(cmd.CustomerPhone),
		DepartureAddress: cmd.DepartureAddress,
		ArrivalAddress:   cmd.ArrivalAddress,
		PickupAt:         cmd.PickupAt.UTC(),
		Passengers:       cmd.Passengers,
		Luggage:          cmd.Luggage,
		DistanceKm:       distance,
		Price:            types.MoneyFromFloat(quote.Price, quote.Currency),
		DepartureZone:    quote.DepartureZone,
		ArrivalZone:      quote.ArrivalZone,
		PricingMethod:    quote.Method,
		Status:           StatusPending,
		CreatedAt:        now,
	}
	if notes := strings.TrimSpace(cmd.Notes); notes != "" {
		r.Notes = &notes
	}
	if err := s.store.Create(ctx, r); err != nil {
		return nil, err
	}

	actorID := cmd.CustomerID
	s.appendEvent(ctx, &Event{
		ReservationID: r.ID,
		FromStatus:    StatusNone,
		ToStatus:      StatusPending,
		ActorType:     ActorCustomer,
		ActorID:       &actorID,
		CreatedAt:     now,
	})
	s.publish(ctx, r, now)
	return r, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Reservation, error) {
	return s.store.Get(ctx, id)
}

// GetForCustomer hides reservations of other customers.
func (s *Service) GetForCustomer(ctx context.Context, id types.ID, customerID string) (*Reservation, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.CustomerID != customerID {
		return nil, ErrForbidden
	}
	return r, nil
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Reservation, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrBadRequest, f.Status)
	}
	switch {
	case f.Limit <= 0:
		f.Limit = defaultListLimit
	case f.Limit > maxListLimit:
		f.Limit = maxListLimit
	}
	return s.store.List(ctx, f)
}

func (s *Service) Confirm(ctx context.Context, cmd TransitionCommand) (*Reservation, error) {
	return s.transition(ctx, cmd, StatusConfirmed)
}

func (s *Service) Complete(ctx context.Context, cmd TransitionCommand) (*Reservation, error) {
	return s.transition(ctx, cmd, StatusCompleted)
}

// Cancel is allowed to the owning customer and to admins.
func (s *Service) Cancel(ctx context.Context, cmd TransitionCommand) (*Reservation, error) {
	return s.transition(ctx, cmd, StatusCancelled)
}

func (s *Service) transition(ctx context.Context, cmd TransitionCommand, to Status) (*Reservation, error) {
	r, err := s.store.Get(ctx, cmd.ID)
	if err != nil {
		return nil, err
	}
	if cmd.ActorType == ActorCustomer && r.CustomerID != cmd.ActorID {
		return nil, ErrForbidden
	}
	if !CanTransition(r.Status, to) {
		return nil, ErrInvalidState
	}

	var reason *string
	if to == StatusCancelled {
		v := strings.TrimSpace(cmd.Reason)
		if v == "" {
			v = cmd.ActorType + "_cancel"
		}
		reason = &v
	}
	ok, err := s.store.UpdateStatus(ctx, r.ID, r.Status, to, r.StatusVersion, reason)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}

	now := s.now()
	from := r.Status
	r.Status = to
	r.StatusVersion++
	switch to {
	case StatusConfirmed:
		r.ConfirmedAt = &now
	case StatusCompleted:
		r.CompletedAt = &now
	case StatusCancelled:
		r.CancelledAt = &now
		r.CancelReason = reason
	}

	var actorID *string
	if cmd.ActorID != "" {
		actorID = &cmd.ActorID
	}
	s.appendEvent(ctx, &Event{
		ReservationID: r.ID,
		FromStatus:    from,
		ToStatus:      to,
		ActorType:     cmd.ActorType,
		ActorID:       actorID,
		CreatedAt:     now,
	})
	s.publish(ctx, r, now)
	return r, nil
}

func (s *Service) appendEvent(ctx context.Context, e *Event) {
	if err := s.store.AppendEvent(ctx, e); err != nil {
		s.log.WithError(err).WithField("reservation_id", string(e.ReservationID)).Warn("reservation event not recorded")
	}
}

func (s *Service) publish(ctx context.Context, r *Reservation, at time.Time) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, newNotification(r, at)); err != nil {
		s.log.WithError(err).WithField("reservation_id", string(r.ID)).Warn("reservation notification not published")
	}
}
