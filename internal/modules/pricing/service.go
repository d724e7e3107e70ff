// README: Pricing service resolves a fare from the zones of both addresses.
package pricing

import (
	"context"
	"errors"
	"math"

	"github.com/shopspring/decimal"

	"chauffeur/internal/logger"
	"chauffeur/internal/modules/zone"
)

var (
	ErrDistanceRequired = errors.New("distance_km is required for this route")
	ErrInvalidDistance  = errors.New("distance_km must be a finite, non-negative number")
)

type CatalogSource interface {
	Catalog(ctx context.Context) (*zone.Catalog, error)
}

type Service struct {
	catalogs CatalogSource
	tariff   Tariff
	log      *logger.Logger
}

func NewService(catalogs CatalogSource, tariff Tariff, log *logger.Logger) *Service {
	return &Service{catalogs: catalogs, tariff: tariff, log: log.WithField("component", "pricing")}
}

// CalculatePrice classifies both addresses and prices the ordered zone pair.
// Flat fares ignore DistanceKm; distance-based and default fares require it.
// A catalog with integrity problems refuses every quote.
func (s *Service) CalculatePrice(ctx context.Context, req Request) (Quote, error) {
	cat, err := s.catalogs.Catalog(ctx)
	if err != nil {
		return Quote{}, err
	}
	if err := cat.Err(); err != nil {
		s.log.WithError(err).Error("quote refused")
		return Quote{}, err
	}

	q := Quote{
		Currency:      s.tariff.Currency,
		DepartureZone: cat.Classify(req.Departure),
		ArrivalZone:   cat.Classify(req.Arrival),
	}

	p, ok := cat.Lookup(q.DepartureZone, q.ArrivalZone)
	switch {
	case ok && !p.IsDistanceBased:
		q.Method = MethodFlat
		q.Price = round2(decimal.NewFromFloat(*p.Price))
	case ok:
		d, err := distance(req.DistanceKm)
		if err != nil {
			return Quote{}, err
		}
		q.Method = MethodDistance
		q.Price = fare(*p.BasePrice, *p.PricePerKm, d)
	default:
		d, err := distance(req.DistanceKm)
		if err != nil {
			return Quote{}, err
		}
		q.Method = MethodDefault
		q.Price = fare(s.tariff.Base, s.tariff.PerKm, d)
	}
	return q, nil
}

// Tables returns zones in rule order, the pricing table and the default tariff.
func (s *Service) Tables(ctx context.Context) (Tables, error) {
	cat, err := s.catalogs.Catalog(ctx)
	if err != nil {
		return Tables{}, err
	}
	snap := cat.Snapshot()
	return Tables{
		Zones:    snap.Zones,
		Pricings: snap.Pricings,
		Default:  s.tariff,
		Problems: cat.Problems(),
	}, nil
}

func distance(km *float64) (float64, error) {
	if km == nil {
		return 0, ErrDistanceRequired
	}
	d := *km
	if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
		return 0, ErrInvalidDistance
	}
	return d, nil
}

// fare computes base + perKm*d on the decimal values of its inputs, so
// 30 + 2.5*4.202 is 40.505 and rounds to 40.51.
func fare(base, perKm, d float64) float64 {
	v := decimal.NewFromFloat(base).Add(decimal.NewFromFloat(perKm).Mul(decimal.NewFromFloat(d)))
	return round2(v)
}

// round2 rounds half away from zero to cents; amounts here are never negative.
func round2(v decimal.Decimal) float64 {
	f, _ := v.Round(2).Float64()
	return f
}
