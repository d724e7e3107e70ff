// README: Zone reference data: zones, their address patterns, and directional zone-pair fares.
package zone

import "time"

// FallbackCode is assigned to addresses that match no configured pattern.
const FallbackCode = "OTHER"

type LocationType string

const (
	LocationPostalCode LocationType = "postal_code"
	LocationCity       LocationType = "city"
	LocationPlace      LocationType = "place"
)

type Zone struct {
	ID          int64      `json:"id"`
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	Priority    int        `json:"priority"`
	Locations   []Location `json:"locations"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type Location struct {
	ID       int64        `json:"id"`
	ZoneCode string       `json:"zone_code"`
	Value    string       `json:"value"`
	Type     LocationType `json:"type"`
}

// Pricing is a directional fare rule; (A,B) and (B,A) are separate rows.
type Pricing struct {
	ID              int64    `json:"id"`
	FromZone        string   `json:"from_zone"`
	ToZone          string   `json:"to_zone"`
	Price           *float64 `json:"price,omitempty"`
	IsDistanceBased bool     `json:"is_distance_based"`
	BasePrice       *float64 `json:"base_price,omitempty"`
	PricePerKm      *float64 `json:"price_per_km,omitempty"`
}

// Snapshot is one consistent read of all reference data.
type Snapshot struct {
	Zones    []Zone    `json:"zones"`
	Pricings []Pricing `json:"pricings"`
}
