// README: Compiled, immutable view of zones and pricings with integrity checks.
package zone

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrIntegrity marks reference data an administrator has to fix.
var ErrIntegrity = errors.New("zone configuration integrity error")

type pairKey struct{ from, to string }

// Catalog is the immutable, compiled form of one Snapshot.
type Catalog struct {
	snapshot Snapshot
	rules    RuleList
	pricings map[pairKey]Pricing
	problems []string
}

// NewCatalog compiles snap. Integrity problems do not stop compilation;
// they are reported by Problems and Err.
func NewCatalog(snap Snapshot) *Catalog {
	c := &Catalog{pricings: make(map[pairKey]Pricing, len(snap.Pricings))}

	zones := append([]Zone(nil), snap.Zones...)
	sort.SliceStable(zones, func(i, j int) bool {
		if zones[i].Priority != zones[j].Priority {
			return zones[i].Priority > zones[j].Priority
		}
		return zones[i].Code < zones[j].Code
	})

	known := make(map[string]bool, len(zones))
	for _, z := range zones {
		if known[z.Code] {
			c.problems = append(c.problems, fmt.Sprintf("duplicate zone code %s", z.Code))
		}
		known[z.Code] = true
	}

	var problems []string
	c.rules, problems = CompileRules(zones)
	c.problems = append(c.problems, problems...)

	pricings := append([]Pricing(nil), snap.Pricings...)
	sort.SliceStable(pricings, func(i, j int) bool {
		if pricings[i].FromZone != pricings[j].FromZone {
			return pricings[i].FromZone < pricings[j].FromZone
		}
		return pricings[i].ToZone < pricings[j].ToZone
	})
	for _, p := range pricings {
		key := pairKey{p.FromZone, p.ToZone}
		if !known[p.FromZone] || !known[p.ToZone] {
			c.problems = append(c.problems, fmt.Sprintf("pricing %s->%s references an unknown zone", p.FromZone, p.ToZone))
			continue
		}
		if _, dup := c.pricings[key]; dup {
			c.problems = append(c.problems, fmt.Sprintf("duplicate pricing %s->%s", p.FromZone, p.ToZone))
			continue
		}
		if msg := checkPricing(p); msg != "" {
			c.problems = append(c.problems, fmt.Sprintf("pricing %s->%s %s", p.FromZone, p.ToZone, msg))
			continue
		}
		c.pricings[key] = p
	}

	c.snapshot = Snapshot{Zones: zones, Pricings: pricings}
	return c
}

func checkPricing(p Pricing) string {
	if p.IsDistanceBased {
		if p.BasePrice == nil || p.PricePerKm == nil {
			return "is distance-based but lacks base_price or price_per_km"
		}
		if *p.BasePrice < 0 || *p.PricePerKm < 0 {
			return "has a negative amount"
		}
		return ""
	}
	if p.Price == nil {
		return "is flat but has no price"
	}
	if *p.Price < 0 {
		return "has a negative amount"
	}
	return ""
}

// Classify maps a free-text address to a zone code, FallbackCode when nothing matches.
func (c *Catalog) Classify(address string) string {
	return c.rules.Classify(address)
}

// Lookup returns the fare rule for the ordered pair (from, to).
func (c *Catalog) Lookup(from, to string) (Pricing, bool) {
	p, ok := c.pricings[pairKey{from, to}]
	return p, ok
}

func (c *Catalog) Rules() RuleList { return c.rules }

// Snapshot returns the zones (in rule order) and pricings the catalog was built from.
func (c *Catalog) Snapshot() Snapshot { return c.snapshot }

func (c *Catalog) Problems() []string { return c.problems }

// Err wraps ErrIntegrity with every problem found, or returns nil.
func (c *Catalog) Err() error {
	if len(c.problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrIntegrity, strings.Join(c.problems, "; "))
}
