// README: In-memory zone repository for service and HTTP tests.
package zonetest

import (
	"context"
	"sort"
	"sync"

	"chauffeur/internal/modules/zone"
)

// Repo is an in-memory zone.Repository that also serves snapshots, so
// admin writes become visible to pricing once the cache is invalidated.
type Repo struct {
	mu       sync.Mutex
	zones    map[string]*zone.Zone
	pricings map[[2]string]zone.Pricing
	nextID   int64
}

func NewRepo(seed zone.Snapshot) *Repo {
	r := &Repo{zones: map[string]*zone.Zone{}, pricings: map[[2]string]zone.Pricing{}}
	for _, z := range seed.Zones {
		z := z
		r.nextID++
		z.ID = r.nextID
		z.Locations = nil
		r.zones[z.Code] = &z
	}
	for _, z := range seed.Zones {
		for _, l := range z.Locations {
			l := l
			l.ZoneCode = z.Code
			_ = r.AddLocation(context.Background(), &l)
		}
	}
	for _, p := range seed.Pricings {
		p := p
		_ = r.UpsertPricing(context.Background(), &p)
	}
	return r
}

func (r *Repo) LoadSnapshot(ctx context.Context) (zone.Snapshot, error) {
	zones, _ := r.ListZones(ctx)
	pricings, _ := r.ListPricings(ctx)
	return zone.Snapshot{Zones: zones, Pricings: pricings}, nil
}

func (r *Repo) ListZones(context.Context) ([]zone.Zone, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]zone.Zone, 0, len(r.zones))
	for _, z := range r.zones {
		cp := *z
		cp.Locations = append([]zone.Location(nil), z.Locations...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *Repo) ListPricings(context.Context) ([]zone.Pricing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]zone.Pricing, 0, len(r.pricings))
	for _, p := range r.pricings {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FromZone != out[j].FromZone {
			return out[i].FromZone < out[j].FromZone
		}
		return out[i].ToZone < out[j].ToZone
	})
	return out, nil
}

func (r *Repo) CreateZone(_ context.Context, z *zone.Zone) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.zones[z.Code]; ok {
		return zone.ErrZoneExists
	}
	r.nextID++
	z.ID = r.nextID
	cp := *z
	r.zones[z.Code] = &cp
	return nil
}

func (r *Repo) UpdateZone(_ context.Context, z *zone.Zone) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.zones[z.Code]
	if !ok {
		return zone.ErrZoneNotFound
	}
	cur.Name, cur.Description, cur.Priority = z.Name, z.Description, z.Priority
	z.ID = cur.ID
	return nil
}

func (r *Repo) DeleteZone(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.zones[code]; !ok {
		return zone.ErrZoneNotFound
	}
	for k := range r.pricings {
		if k[0] == code || k[1] == code {
			return zone.ErrZoneInUse
		}
	}
	delete(r.zones, code)
	return nil
}

func (r *Repo) AddLocation(_ context.Context, loc *zone.Location) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	z, ok := r.zones[loc.ZoneCode]
	if !ok {
		return zone.ErrZoneNotFound
	}
	r.nextID++
	loc.ID = r.nextID
	z.Locations = append(z.Locations, *loc)
	return nil
}

func (r *Repo) DeleteLocation(_ context.Context, code string, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	z, ok := r.zones[code]
	if !ok {
		return zone.ErrLocationNotFound
	}
	for i, l := range z.Locations {
		if l.ID == id {
			z.Locations = append(z.Locations[:i], z.Locations[i+1:]...)
			return nil
		}
	}
	return zone.ErrLocationNotFound
}

func (r *Repo) UpsertPricing(_ context.Context, p *zone.Pricing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.zones[p.FromZone] == nil || r.zones[p.ToZone] == nil {
		return zone.ErrZoneNotFound
	}
	key := [2]string{p.FromZone, p.ToZone}
	if cur, ok := r.pricings[key]; ok {
		p.ID = cur.ID
	} else {
		r.nextID++
		p.ID = r.nextID
	}
	r.pricings[key] = *p
	return nil
}

func (r *Repo) DeletePricing(_ context.Context, from, to string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := [2]string{from, to}
	if _, ok := r.pricings[key]; !ok {
		return zone.ErrPricingNotFound
	}
	delete(r.pricings, key)
	return nil
}

// Locations returns the stored locations of code.
func (r *Repo) Locations(code string) []zone.Location {
	r.mu.Lock()
	defer r.mu.Unlock()
	if z, ok := r.zones[code]; ok {
		return append([]zone.Location(nil), z.Locations...)
	}
	return nil
}

// Zone returns a copy of the stored zone.
func (r *Repo) Zone(code string) (zone.Zone, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	z, ok := r.zones[code]
	if !ok {
		return zone.Zone{}, false
	}
	return *z, true
}
