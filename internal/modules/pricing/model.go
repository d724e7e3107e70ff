// README: Quote request/response and tariff definitions.
package pricing

import "chauffeur/internal/modules/zone"

const (
	MethodFlat     = "flat"
	MethodDistance = "distance"
	MethodDefault  = "default"
)

type Request struct {
	Departure  string
	Arrival    string
	DistanceKm *float64
}

type Quote struct {
	Price         float64 `json:"price"`
	Currency      string  `json:"currency"`
	DepartureZone string  `json:"departure_zone"`
	ArrivalZone   string  `json:"arrival_zone"`
	Method        string  `json:"method"`
}

// Tariff is applied to zone pairs without a configured fare.
type Tariff struct {
	Base     float64 `json:"base"`
	PerKm    float64 `json:"per_km"`
	Currency string  `json:"currency"`
}

func DefaultTariff() Tariff {
	return Tariff{Base: 30, PerKm: 2.5, Currency: "EUR"}
}

// Tables is the read-only view of the active configuration.
type Tables struct {
	Zones    []zone.Zone    `json:"zones"`
	Pricings []zone.Pricing `json:"pricings"`
	Default  Tariff         `json:"default"`
	Problems []string       `json:"problems,omitempty"`
}
