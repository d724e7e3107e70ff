// README: Zone store backed by PostgreSQL.
package zone

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// LoadSnapshot reads zones, locations and pricings inside one read-only
// repeatable-read transaction so the three lists agree with each other.
func (s *Store) LoadSnapshot(ctx context.Context) (Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return Snapshot{}, fmt.Errorf("begin snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	zones, err := listZones(ctx, tx)
	if err != nil {
		return Snapshot{}, err
	}
	pricings, err := listPricings(ctx, tx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Zones: zones, Pricings: pricings}, nil
}

func (s *Store) ListZones(ctx context.Context) ([]Zone, error) {
	return listZones(ctx, s.db)
}

func (s *Store) ListPricings(ctx context.Context) ([]Pricing, error) {
	return listPricings(ctx, s.db)
}

func listZones(ctx context.Context, q querier) ([]Zone, error) {
	rows, err := q.Query(ctx, `
		SELECT id, code, name, description, priority, created_at, updated_at
		FROM zones
		ORDER BY priority DESC, code ASC`)
	if err != nil {
		return nil, fmt.Errorf("list zones: %w", err)
	}
	defer rows.Close()

	var zones []Zone
	index := make(map[string]int)
	for rows.Next() {
		var z Zone
		if err := rows.Scan(&z.ID, &z.Code, &z.Name, &z.Description, &z.Priority, &z.CreatedAt, &z.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan zone: %w", err)
		}
		index[z.Code] = len(zones)
		zones = append(zones, z)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate zones: %w", err)
	}

	locRows, err := q.Query(ctx, `
		SELECT l.id, z.code, l.value, l.type
		FROM zone_locations l
		JOIN zones z ON z.id = l.zone_id
		ORDER BY z.code ASC, l.type ASC, l.value ASC`)
	if err != nil {
		return nil, fmt.Errorf("list zone locations: %w", err)
	}
	defer locRows.Close()

	for locRows.Next() {
		var loc Location
		var typ string
		if err := locRows.Scan(&loc.ID, &loc.ZoneCode, &loc.Value, &typ); err != nil {
			return nil, fmt.Errorf("scan zone location: %w", err)
		}
		loc.Type = LocationType(typ)
		i, ok := index[loc.ZoneCode]
		if !ok {
			continue
		}
		zones[i].Locations = append(zones[i].Locations, loc)
	}
	if err := locRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate zone locations: %w", err)
	}
	return zones, nil
}

func listPricings(ctx context.Context, q querier) ([]Pricing, error) {
	rows, err := q.Query(ctx, `
		SELECT p.id, f.code, t.code, p.price::float8, p.is_distance_based,
		       p.base_price::float8, p.price_per_km::float8
		FROM zone_pricings p
		JOIN zones f ON f.id = p.from_zone_id
		JOIN zones t ON t.id = p.to_zone_id
		ORDER BY f.code ASC, t.code ASC`)
	if err != nil {
		return nil, fmt.Errorf("list zone pricings: %w", err)
	}
	defer rows.Close()

	var pricings []Pricing
	for rows.Next() {
		var p Pricing
		if err := rows.Scan(&p.ID, &p.FromZone, &p.ToZone, &p.Price, &p.IsDistanceBased, &p.BasePrice, &p.PricePerKm); err != nil {
			return nil, fmt.Errorf("scan zone pricing: %w", err)
		}
		pricings = append(pricings, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate zone pricings: %w", err)
	}
	return pricings, nil
}

func (s *Store) CreateZone(ctx context.Context, z *Zone) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO zones (code, name, description, priority)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		z.Code, z.Name, z.Description, z.Priority,
	).Scan(&z.ID, &z.CreatedAt, &z.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrZoneExists
	}
	if err != nil {
		return fmt.Errorf("create zone: %w", err)
	}
	return nil
}

func (s *Store) UpdateZone(ctx context.Context, z *Zone) error {
	err := s.db.QueryRow(ctx, `
		UPDATE zones
		SET name = $2, description = $3, priority = $4, updated_at = NOW()
		WHERE code = $1
		RETURNING id, created_at, updated_at`,
		z.Code, z.Name, z.Description, z.Priority,
	).Scan(&z.ID, &z.CreatedAt, &z.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrZoneNotFound
	}
	if err != nil {
		return fmt.Errorf("update zone: %w", err)
	}
	return nil
}

func (s *Store) DeleteZone(ctx context.Context, code string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM zones WHERE code = $1`, code)
	if isForeignKeyViolation(err) {
		return ErrZoneInUse
	}
	if err != nil {
		return fmt.Errorf("delete zone: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrZoneNotFound
	}
	return nil
}

func (s *Store) AddLocation(ctx context.Context, loc *Location) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO zone_locations (zone_id, value, type)
		SELECT id, $2, $3 FROM zones WHERE code = $1
		RETURNING id`,
		loc.ZoneCode, loc.Value, string(loc.Type),
	).Scan(&loc.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrZoneNotFound
	}
	if err != nil {
		return fmt.Errorf("add zone location: %w", err)
	}
	return nil
}

func (s *Store) DeleteLocation(ctx context.Context, zoneCode string, id int64) error {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM zone_locations l
		USING zones z
		WHERE l.zone_id = z.id AND z.code = $1 AND l.id = $2`,
		zoneCode, id,
	)
	if err != nil {
		return fmt.Errorf("delete zone location: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLocationNotFound
	}
	return nil
}

// UpsertPricing inserts or replaces the single row of the ordered pair.
func (s *Store) UpsertPricing(ctx context.Context, p *Pricing) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO zone_pricings (from_zone_id, to_zone_id, price, is_distance_based, base_price, price_per_km)
		SELECT f.id, t.id, $3, $4, $5, $6
		FROM zones f, zones t
		WHERE f.code = $1 AND t.code = $2
		ON CONFLICT (from_zone_id, to_zone_id) DO UPDATE
		SET price = EXCLUDED.price,
		    is_distance_based = EXCLUDED.is_distance_based,
		    base_price = EXCLUDED.base_price,
		    price_per_km = EXCLUDED.price_per_km,
		    updated_at = NOW()
		RETURNING id`,
		p.FromZone, p.ToZone, p.Price, p.IsDistanceBased, p.BasePrice, p.PricePerKm,
	).Scan(&p.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrZoneNotFound
	}
	if err != nil {
		return fmt.Errorf("upsert zone pricing: %w", err)
	}
	return nil
}

func (s *Store) DeletePricing(ctx context.Context, from, to string) error {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM zone_pricings p
		USING zones f, zones t
		WHERE p.from_zone_id = f.id AND p.to_zone_id = t.id
		  AND f.code = $1 AND t.code = $2`,
		from, to,
	)
	if err != nil {
		return fmt.Errorf("delete zone pricing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPricingNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
