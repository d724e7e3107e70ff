// README: Zone service validates administrative writes and invalidates the catalog cache after each one.
package zone

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"chauffeur/internal/logger"
)

var (
	ErrZoneNotFound     = errors.New("zone not found")
	ErrZoneExists       = errors.New("zone code already exists")
	ErrZoneInUse        = errors.New("zone is referenced by a pricing")
	ErrReservedCode     = errors.New("zone code is reserved")
	ErrLocationNotFound = errors.New("zone location not found")
	ErrPricingNotFound  = errors.New("zone pricing not found")
	ErrBadRequest       = errors.New("bad request")
)

type Repository interface {
	ListZones(ctx context.Context) ([]Zone, error)
	ListPricings(ctx context.Context) ([]Pricing, error)
	CreateZone(ctx context.Context, z *Zone) error
	UpdateZone(ctx context.Context, z *Zone) error
	DeleteZone(ctx context.Context, code string) error
	AddLocation(ctx context.Context, loc *Location) error
	DeleteLocation(ctx context.Context, zoneCode string, id int64) error
	UpsertPricing(ctx context.Context, p *Pricing) error
	DeletePricing(ctx context.Context, from, to string) error
}

type Invalidator interface {
	Invalidate(ctx context.Context) error
}

var zoneCodePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

type ZoneInput struct {
	Code        string  `json:"code" validate:"required,max=32,zonecode"`
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Priority    int     `json:"priority" validate:"gte=-1000,lte=1000"`
}

type LocationInput struct {
	Value string       `json:"value" validate:"required,max=100"`
	Type  LocationType `json:"type" validate:"required,oneof=postal_code city place"`
}

type PricingInput struct {
	FromZone        string   `json:"from_zone" validate:"required,zonecode"`
	ToZone          string   `json:"to_zone" validate:"required,zonecode"`
	Price           *float64 `json:"price" validate:"omitempty,gte=0"`
	IsDistanceBased bool     `json:"is_distance_based"`
	BasePrice       *float64 `json:"base_price" validate:"omitempty,gte=0"`
	PricePerKm      *float64 `json:"price_per_km" validate:"omitempty,gte=0"`
}

type Service struct {
	repo     Repository
	cache    Invalidator
	validate *validator.Validate
	log      *logger.Logger
}

func NewService(repo Repository, cache Invalidator, log *logger.Logger) *Service {
	v := validator.New()
	_ = v.RegisterValidation("zonecode", func(fl validator.FieldLevel) bool {
		return zoneCodePattern.MatchString(fl.Field().String())
	})
	return &Service{
		repo:     repo,
		cache:    cache,
		validate: v,
		log:      log.WithField("component", "zone_service"),
	}
}

func (s *Service) ListZones(ctx context.Context) ([]Zone, error) {
	return s.repo.ListZones(ctx)
}

func (s *Service) ListPricings(ctx context.Context) ([]Pricing, error) {
	return s.repo.ListPricings(ctx)
}

func (s *Service) CreateZone(ctx context.Context, in ZoneInput) (*Zone, error) {
	z, err := s.zoneFromInput(in)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateZone(ctx, z); err != nil {
		return nil, err
	}
	s.invalidate(ctx, "zone created", z.Code)
	return z, nil
}

// UpdateZone changes name, description and priority; the code is the key.
func (s *Service) UpdateZone(ctx context.Context, code string, in ZoneInput) (*Zone, error) {
	in.Code = code
	z, err := s.zoneFromInput(in)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateZone(ctx, z); err != nil {
		return nil, err
	}
	s.invalidate(ctx, "zone updated", z.Code)
	return z, nil
}

func (s *Service) DeleteZone(ctx context.Context, code string) error {
	code = normalizeCode(code)
	if err := s.repo.DeleteZone(ctx, code); err != nil {
		return err
	}
	s.invalidate(ctx, "zone deleted", code)
	return nil
}

func (s *Service) AddLocation(ctx context.Context, code string, in LocationInput) (*Location, error) {
	in.Value = strings.TrimSpace(in.Value)
	in.Type = LocationType(strings.ToLower(strings.TrimSpace(string(in.Type))))
	if err := s.check(in); err != nil {
		return nil, err
	}
	loc := &Location{ZoneCode: normalizeCode(code), Value: in.Value, Type: in.Type}
	if err := s.repo.AddLocation(ctx, loc); err != nil {
		return nil, err
	}
	s.invalidate(ctx, "zone location added", loc.ZoneCode)
	return loc, nil
}

func (s *Service) DeleteLocation(ctx context.Context, code string, id int64) error {
	code = normalizeCode(code)
	if id <= 0 {
		return fmt.Errorf("%w: invalid location id", ErrBadRequest)
	}
	if err := s.repo.DeleteLocation(ctx, code, id); err != nil {
		return err
	}
	s.invalidate(ctx, "zone location deleted", code)
	return nil
}

// UpsertPricing stores the fare of one ordered pair. Amounts irrelevant to
// the chosen kind are cleared.
func (s *Service) UpsertPricing(ctx context.Context, in PricingInput) (*Pricing, error) {
	in.FromZone = normalizeCode(in.FromZone)
	in.ToZone = normalizeCode(in.ToZone)
	if err := s.check(in); err != nil {
		return nil, err
	}
	if in.FromZone == FallbackCode || in.ToZone == FallbackCode {
		return nil, ErrReservedCode
	}

	p := &Pricing{FromZone: in.FromZone, ToZone: in.ToZone, IsDistanceBased: in.IsDistanceBased}
	if in.IsDistanceBased {
		if in.BasePrice == nil || in.PricePerKm == nil {
			return nil, fmt.Errorf("%w: distance-based pricing needs base_price and price_per_km", ErrBadRequest)
		}
		p.BasePrice, p.PricePerKm = in.BasePrice, in.PricePerKm
	} else {
		if in.Price == nil {
			return nil, fmt.Errorf("%w: flat pricing needs price", ErrBadRequest)
		}
		p.Price = in.Price
	}

	if err := s.repo.UpsertPricing(ctx, p); err != nil {
		return nil, err
	}
	s.invalidate(ctx, "zone pricing stored", p.FromZone+"->"+p.ToZone)
	return p, nil
}

func (s *Service) DeletePricing(ctx context.Context, from, to string) error {
	from, to = normalizeCode(from), normalizeCode(to)
	if err := s.repo.DeletePricing(ctx, from, to); err != nil {
		return err
	}
	s.invalidate(ctx, "zone pricing deleted", from+"->"+to)
	return nil
}

func (s *Service) zoneFromInput(in ZoneInput) (*Zone, error) {
	in.Code = normalizeCode(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	if err := s.check(in); err != nil {
		return nil, err
	}
	if in.Code == FallbackCode {
		return nil, ErrReservedCode
	}
	if in.Description != nil && strings.TrimSpace(*in.Description) == "" {
		in.Description = nil
	}
	return &Zone{Code: in.Code, Name: in.Name, Description: in.Description, Priority: in.Priority}, nil
}

func (s *Service) check(in any) error {
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %s", ErrBadRequest, err.Error())
	}
	return nil
}

// invalidate never fails the write; peers converge within the cache ttl.
func (s *Service) invalidate(ctx context.Context, what, subject string) {
	s.log.WithField("subject", subject).Info(what)
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.WithError(err).Warn("zone cache invalidation failed")
	}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
