// README: Address classification rules compiled from zone locations.
package zone

import (
	"sort"
	"strings"
)

// Rule is one address pattern of one zone, flattened for evaluation.
type Rule struct {
	Priority     int
	ZoneCode     string
	LocationType LocationType
	Pattern      string // lower-cased
}

// RuleList is evaluated top to bottom; the first matching rule decides.
//
// Order: priority DESC, zone code ASC, location type ASC, pattern ASC.
// Zone codes are unique, so the rules of one zone stay contiguous and the
// first matching rule belongs to the first matching zone.
type RuleList []Rule

// CompileRules flattens zones into a sorted RuleList. Empty patterns are
// skipped and returned as problems since they would match any address.
func CompileRules(zones []Zone) (RuleList, []string) {
	var rules RuleList
	var problems []string
	for _, z := range zones {
		for _, loc := range z.Locations {
			pattern := strings.ToLower(strings.TrimSpace(loc.Value))
			if pattern == "" {
				problems = append(problems, "zone "+z.Code+" has an empty location pattern")
				continue
			}
			rules = append(rules, Rule{
				Priority:     z.Priority,
				ZoneCode:     z.Code,
				LocationType: loc.Type,
				Pattern:      pattern,
			})
		}
	}
	sort.SliceStable(rules, func(i, j int) bool {
		a, b := rules[i], rules[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.ZoneCode != b.ZoneCode {
			return a.ZoneCode < b.ZoneCode
		}
		if a.LocationType != b.LocationType {
			return a.LocationType < b.LocationType
		}
		return a.Pattern < b.Pattern
	})
	return rules, problems
}

// Match returns the first rule contained in address (case-insensitive substring).
func (rl RuleList) Match(address string) (Rule, bool) {
	addr := strings.ToLower(address)
	for _, r := range rl {
		if strings.Contains(addr, r.Pattern) {
			return r, true
		}
	}
	return Rule{}, false
}

// Classify returns the zone code for address, or FallbackCode.
func (rl RuleList) Classify(address string) string {
	if r, ok := rl.Match(address); ok {
		return r.ZoneCode
	}
	return FallbackCode
}
