// README: Paris reference data shared by tests; mirrors the seed migration.
package zonetest

import (
	"context"
	"fmt"
	"sync"

	"chauffeur/internal/modules/zone"
)

func f(v float64) *float64 { return &v }

// ParisSnapshot returns Paris intra-muros, the premium and standard
// suburbs, and their fares. Every call returns fresh slices.
func ParisSnapshot() zone.Snapshot {
	paris := zone.Zone{Code: "PARIS", Name: "Paris intra-muros", Priority: 10}
	for i := 1; i <= 20; i++ {
		paris.Locations = append(paris.Locations, zone.Location{
			ZoneCode: "PARIS", Value: fmt.Sprintf("750%02d", i), Type: zone.LocationPostalCode,
		})
	}
	paris.Locations = append(paris.Locations, zone.Location{ZoneCode: "PARIS", Value: "Paris", Type: zone.LocationCity})

	premium := zone.Zone{Code: "PREMIUM_BANLIEUE", Name: "Proche banlieue premium", Priority: 5}
	for _, l := range []struct {
		v string
		t zone.LocationType
	}{
		{"92200", zone.LocationPostalCode},
		{"92300", zone.LocationPostalCode},
		{"92100", zone.LocationPostalCode},
		{"94300", zone.LocationPostalCode},
		{"94160", zone.LocationPostalCode},
		{"Neuilly-sur-Seine", zone.LocationCity},
		{"Levallois-Perret", zone.LocationCity},
		{"Boulogne-Billancourt", zone.LocationCity},
		{"Vincennes", zone.LocationCity},
		{"Saint-Mandé", zone.LocationCity},
	} {
		premium.Locations = append(premium.Locations, zone.Location{ZoneCode: premium.Code, Value: l.v, Type: l.t})
	}

	standard := zone.Zone{Code: "STANDARD_BANLIEUE", Name: "Banlieue standard", Priority: 1}
	for _, l := range []struct {
		v string
		t zone.LocationType
	}{
		{"93100", zone.LocationPostalCode},
		{"93200", zone.LocationPostalCode},
		{"94200", zone.LocationPostalCode},
		{"92000", zone.LocationPostalCode},
		{"Montreuil", zone.LocationCity},
		{"Saint-Denis", zone.LocationCity},
		{"Ivry-sur-Seine", zone.LocationCity},
		{"Nanterre", zone.LocationCity},
	} {
		standard.Locations = append(standard.Locations, zone.Location{ZoneCode: standard.Code, Value: l.v, Type: l.t})
	}

	return zone.Snapshot{
		Zones: []zone.Zone{paris, premium, standard},
		Pricings: []zone.Pricing{
			{FromZone: "PARIS", ToZone: "PARIS", Price: f(50)},
			{FromZone: "PARIS", ToZone: "PREMIUM_BANLIEUE", Price: f(65)},
			{FromZone: "PREMIUM_BANLIEUE", ToZone: "PARIS", Price: f(65)},
			{FromZone: "PARIS", ToZone: "STANDARD_BANLIEUE", Price: f(55)},
			{FromZone: "STANDARD_BANLIEUE", ToZone: "PARIS", Price: f(55)},
			{FromZone: "PREMIUM_BANLIEUE", ToZone: "PREMIUM_BANLIEUE", Price: f(45)},
			{FromZone: "STANDARD_BANLIEUE", ToZone: "STANDARD_BANLIEUE", Price: f(40)},
			{FromZone: "PREMIUM_BANLIEUE", ToZone: "STANDARD_BANLIEUE", IsDistanceBased: true, BasePrice: f(35), PricePerKm: f(1.8)},
			{FromZone: "STANDARD_BANLIEUE", ToZone: "PREMIUM_BANLIEUE", IsDistanceBased: true, BasePrice: f(35), PricePerKm: f(1.8)},
		},
	}
}

// Loader is an in-memory zone.SnapshotLoader that counts loads.
type Loader struct {
	mu    sync.Mutex
	snap  zone.Snapshot
	err   error
	calls int
}

func NewLoader(snap zone.Snapshot) *Loader {
	return &Loader{snap: snap}
}

func (l *Loader) LoadSnapshot(context.Context) (zone.Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return l.snap, l.err
}

func (l *Loader) Set(snap zone.Snapshot) {
	l.mu.Lock()
	l.snap = snap
	l.mu.Unlock()
}

func (l *Loader) Fail(err error) {
	l.mu.Lock()
	l.err = err
	l.mu.Unlock()
}

func (l *Loader) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}
