// README: Reservation store backed by PostgreSQL.
package reservation

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chauffeur/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const selectColumns = `
	SELECT id, customer_id, customer_name, customer_email, customer_phone,
	       departure_address, arrival_address, pickup_at, passengers, luggage, notes,
	       distance_km, price_cents, currency, departure_zone, arrival_zone, pricing_method,
	       status, status_version, created_at, confirmed_at, completed_at, cancelled_at, cancel_reason
	FROM reservations`

func (s *Store) Create(ctx context.Context, r *Reservation) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO reservations (
			id, customer_id, customer_name, customer_email, customer_phone,
			departure_address, arrival_address, pickup_at, passengers, luggage, notes,
			distance_km, price_cents, currency, departure_zone, arrival_zone, pricing_method,
			status, status_version, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16, $17,
			$18, $19, $20
		)`,
		string(r.ID), r.CustomerID, r.CustomerName, r.CustomerEmail, r.CustomerPhone,
		r.DepartureAddress, r.ArrivalAddress, r.PickupAt, r.Passengers, r.Luggage, r.Notes,
		r.DistanceKm, r.Price.Amount, r.Price.Currency, r.DepartureZone, r.ArrivalZone, r.PricingMethod,
		string(r.Status), r.StatusVersion, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Reservation, error) {
	r, err := scanReservation(s.db.QueryRow(ctx, selectColumns+` WHERE id = $1`, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	return r, nil
}

// List returns the newest reservations first. Empty filters match everything.
func (s *Store) List(ctx context.Context, f ListFilter) ([]Reservation, error) {
	rows, err := s.db.Query(ctx, selectColumns+`
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR customer_id = $2)
		ORDER BY created_at DESC
		LIMIT $3`,
		string(f.Status), f.CustomerID, f.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	var out []Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reservations: %w", err)
	}
	return out, nil
}

// UpdateStatus moves a reservation from one status to another only if nobody
// else changed it since version was read.
func (s *Store) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, reason *string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE reservations
		SET status = $1,
		    status_version = status_version + 1,
		    confirmed_at = CASE WHEN $1 = 'confirmed' THEN NOW() ELSE confirmed_at END,
		    completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE completed_at END,
		    cancelled_at = CASE WHEN $1 = 'cancelled' THEN NOW() ELSE cancelled_at END,
		    cancel_reason = COALESCE($2, cancel_reason)
		WHERE id = $3 AND status = $4 AND status_version = $5`,
		string(to), reason, string(id), string(from), version,
	)
	if err != nil {
		return false, fmt.Errorf("update reservation status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO reservation_events (
			reservation_id, from_status, to_status, actor_type, actor_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.ReservationID), string(e.FromStatus), string(e.ToStatus), e.ActorType, e.ActorID, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append reservation event: %w", err)
	}
	return nil
}

func scanReservation(row pgx.Row) (*Reservation, error) {
	var r Reservation
	var id, status string
	err := row.Scan(
		&id, &r.CustomerID, &r.CustomerName, &r.CustomerEmail, &r.CustomerPhone,
		&r.DepartureAddress, &r.ArrivalAddress, &r.PickupAt, &r.Passengers, &r.Luggage, &r.Notes,
		&r.DistanceKm, &r.Price.Amount, &r.Price.Currency, &r.DepartureZone, &r.ArrivalZone, &r.PricingMethod,
		&status, &r.StatusVersion, &r.CreatedAt, &r.ConfirmedAt, &r.CompletedAt, &r.CancelledAt, &r.CancelReason,
	)
	if err != nil {
		return nil, err
	}
	r.ID = types.ID(id)
	r.Status = Status(status)
	return &r, nil
}
