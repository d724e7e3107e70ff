// README: Reservation service tests (flow, authorization, concurrency) on an in-memory repository.
package reservation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"chauffeur/internal/logger"
	"chauffeur/internal/modules/pricing"
	"chauffeur/internal/modules/zone"
	"chauffeur/internal/modules/zone/zonetest"
	"chauffeur/internal/types"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusNone, StatusConfirmed, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

type memStore struct {
	mu     sync.Mutex
	rows   map[types.ID]Reservation
	events []Event
}

func newMemStore() *memStore {
	return &memStore{rows: map[types.ID]Reservation{}}
}

func (m *memStore) Create(_ context.Context, r *Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[r.ID] = *r
	return nil
}

func (m *memStore) Get(_ context.Context, id types.ID) (*Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *memStore) List(_ context.Context, f ListFilter) ([]Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Reservation
	for _, r := range m.rows {
		if (f.Status == "" || r.Status == f.Status) && (f.CustomerID == "" || r.CustomerID == f.CustomerID) {
			out = append(out, r)
		}
	}
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memStore) UpdateStatus(_ context.Context, id types.ID, from, to Status, version int, reason *string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || r.Status != from || r.StatusVersion != version {
		return false, nil
	}
	r.Status = to
	r.StatusVersion++
	if reason != nil {
		r.CancelReason = reason
	}
	m.rows[id] = r
	return true, nil
}

func (m *memStore) AppendEvent(_ context.Context, e *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *e)
	return nil
}

type fixedDistance struct {
	km    float64
	err   error
	calls int
}

func (f *fixedDistance) DistanceKm(context.Context, string, string) (float64, error) {
	f.calls++
	return f.km, f.err
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent []Notification
}

func (p *recordingPublisher) Publish(_ context.Context, n Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, n)
	return nil
}

func (p *recordingPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, n := range p.sent {
		out = append(out, n.Type)
	}
	return out
}

var testNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, distances DistanceProvider) (*Service, *memStore, *recordingPublisher) {
	t.Helper()
	cache := zone.NewCache(zonetest.NewLoader(zonetest.ParisSnapshot()), nil, time.Minute, logger.Discard())
	pricer := pricing.NewService(cache, pricing.DefaultTariff(), logger.Discard())
	store := newMemStore()
	pub := &recordingPublisher{}
	svc := NewService(store, pricer, distances, pub, logger.Discard())
	svc.now = func() time.Time { return testNow }
	return svc, store, pub
}

func validCommand() CreateCommand {
	return CreateCommand{
		CustomerID:       "cust-1",
		CustomerName:     "Jeanne Martin",
		CustomerEmail:    "Jeanne.Martin@example.com",
		CustomerPhone:    "+33612345678",
		DepartureAddress: "Gare de Lyon, 75012 Paris",
		ArrivalAddress:   "Vincennes, 94300",
		PickupAt:         testNow.Add(24 * time.Hour),
		Passengers:       2,
		Luggage:          1,
	}
}

func TestCreate_FlatRoute(t *testing.T) {
	svc, store, pub := newTestService(t, nil)
	r, err := svc.Create(context.Background(), validCommand())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.Price.Amount != 6500 || r.Price.Currency != "EUR" {
		t.Errorf("price = %+v, want 6500 EUR", r.Price)
	}
	if r.DepartureZone != "PARIS" || r.ArrivalZone != "PREMIUM_BANLIEUE" || r.PricingMethod != pricing.MethodFlat {
		t.Errorf("zones = %s->%s method %s", r.DepartureZone, r.ArrivalZone, r.PricingMethod)
	}
	if r.Status != StatusPending {
		t.Errorf("status = %s", r.Status)
	}
	if r.CustomerEmail != "jeanne.martin@example.com" {
		t.Errorf("email = %s", r.CustomerEmail)
	}
	if _, err := store.Get(context.Background(), r.ID); err != nil {
		t.Errorf("not stored: %v", err)
	}
	if len(store.events) != 1 || store.events[0].ToStatus != StatusPending {
		t.Errorf("events = %+v", store.events)
	}
	if got := pub.kinds(); len(got) != 1 || got[0] != "reservation.pending" {
		t.Errorf("notifications = %v", got)
	}
}

func TestCreate_DefaultTariffUsesDistanceProvider(t *testing.T) {
	dist := &fixedDistance{km: 18}
	svc, _, _ := newTestService(t, dist)
	cmd := validCommand()
	cmd.DepartureAddress = "Paris 75001"
	cmd.ArrivalAddress = "Versailles, 78000"

	r, err := svc.Create(context.Background(), cmd)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if dist.calls != 1 {
		t.Errorf("distance calls = %d", dist.calls)
	}
	if r.Price.Amount != 7500 || r.PricingMethod != pricing.MethodDefault {
		t.Errorf("price = %+v method %s", r.Price, r.PricingMethod)
	}
	if r.DistanceKm == nil || *r.DistanceKm != 18 {
		t.Errorf("distance = %v", r.DistanceKm)
	}
}

func TestCreate_ExplicitDistanceSkipsProvider(t *testing.T) {
	dist := &fixedDistance{km: 99}
	svc, _, _ := newTestService(t, dist)
	cmd := validCommand()
	cmd.ArrivalAddress = "Versailles"
	d := 10.0
	cmd.DistanceKm = &d

	r, err := svc.Create(context.Background(), cmd)
	if err != nil {
		t.Fatal(err)
	}
	if dist.calls != 0 {
		t.Errorf("provider called %d times", dist.calls)
	}
	if r.Price.Amount != 5500 {
		t.Errorf("price = %d, want 5500", r.Price.Amount)
	}
}

func TestCreate_MissingDistanceIsRejected(t *testing.T) {
	tests := []struct {
		name      string
		distances DistanceProvider
	}{
		{"no provider", nil},
		{"provider fails", &fixedDistance{err: errors.New("ZERO_RESULTS")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, pub := newTestService(t, tt.distances)
			cmd := validCommand()
			cmd.ArrivalAddress = "Versailles"
			_, err := svc.Create(context.Background(), cmd)
			if !errors.Is(err, pricing.ErrDistanceRequired) {
				t.Fatalf("err = %v, want ErrDistanceRequired", err)
			}
			if len(store.rows) != 0 || len(pub.kinds()) != 0 {
				t.Error("rejected booking left side effects")
			}
		})
	}
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateCommand)
	}{
		{"missing name", func(c *CreateCommand) { c.CustomerName = "" }},
		{"bad email", func(c *CreateCommand) { c.CustomerEmail = "not-an-email" }},
		{"blank departure", func(c *CreateCommand) { c.DepartureAddress = "   " }},
		{"no passengers", func(c *CreateCommand) { c.Passengers = 0 }},
		{"too many passengers", func(c *CreateCommand) { c.Passengers = 9 }},
		{"pickup in past", func(c *CreateCommand) { c.PickupAt = testNow.Add(-time.Minute) }},
		{"negative distance", func(c *CreateCommand) { d := -1.0; c.DistanceKm = &d }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestService(t, nil)
			cmd := validCommand()
			tt.mutate(&cmd)
			if _, err := svc.Create(context.Background(), cmd); !errors.Is(err, ErrBadRequest) {
				t.Fatalf("err = %v, want ErrBadRequest", err)
			}
		})
	}
}

func TestLifecycle(t *testing.T) {
	svc, store, pub := newTestService(t, nil)
	ctx := context.Background()
	r, err := svc.Create(ctx, validCommand())
	if err != nil {
		t.Fatal(err)
	}
	admin := TransitionCommand{ID: r.ID, ActorType: ActorAdmin, ActorID: "admin-1"}

	if _, err := svc.Complete(ctx, admin); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("complete pending: err = %v", err)
	}
	got, err := svc.Confirm(ctx, admin)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if got.Status != StatusConfirmed || got.ConfirmedAt == nil {
		t.Errorf("after confirm: %+v", got)
	}
	if _, err := svc.Complete(ctx, admin); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := svc.Cancel(ctx, admin); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("cancel completed: err = %v", err)
	}

	stored, _ := store.Get(ctx, r.ID)
	if stored.Status != StatusCompleted || stored.StatusVersion != 2 {
		t.Errorf("stored = %s v%d", stored.Status, stored.StatusVersion)
	}
	want := []string{"reservation.pending", "reservation.confirmed", "reservation.completed"}
	gotTypes := pub.kinds()
	if len(gotTypes) != len(want) {
		t.Fatalf("notifications = %v", gotTypes)
	}
	for i := range want {
		if gotTypes[i] != want[i] {
			t.Errorf("notification %d = %s, want %s", i, gotTypes[i], want[i])
		}
	}
}

func TestCancel_Ownership(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()
	r, _ := svc.Create(ctx, validCommand())

	if _, err := svc.Cancel(ctx, TransitionCommand{ID: r.ID, ActorType: ActorCustomer, ActorID: "someone-else"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign cancel: err = %v", err)
	}
	got, err := svc.Cancel(ctx, TransitionCommand{ID: r.ID, ActorType: ActorCustomer, ActorID: "cust-1"})
	if err != nil {
		t.Fatalf("own cancel: %v", err)
	}
	if got.CancelReason == nil || *got.CancelReason != "customer_cancel" {
		t.Errorf("reason = %v", got.CancelReason)
	}
}

func TestGetForCustomer(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()
	r, _ := svc.Create(ctx, validCommand())

	if _, err := svc.GetForCustomer(ctx, r.ID, "cust-1"); err != nil {
		t.Errorf("owner: %v", err)
	}
	if _, err := svc.GetForCustomer(ctx, r.ID, "cust-2"); !errors.Is(err, ErrForbidden) {
		t.Errorf("other: %v", err)
	}
	if _, err := svc.GetForCustomer(ctx, "missing", "cust-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing: %v", err)
	}
}

func TestList(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := svc.Create(ctx, validCommand()); err != nil {
			t.Fatal(err)
		}
	}
	got, err := svc.List(ctx, ListFilter{Status: StatusPending, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
	if _, err := svc.List(ctx, ListFilter{Status: "lost"}); !errors.Is(err, ErrBadRequest) {
		t.Errorf("unknown status err = %v", err)
	}
}

func TestConcurrentConfirmVsCancel(t *testing.T) {
	svc, store, _ := newTestService(t, nil)
	ctx := context.Background()
	r, err := svc.Create(ctx, validCommand())
	if err != nil {
		t.Fatal(err)
	}

	start := make(chan struct{})
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		<-start
		_, err := svc.Confirm(ctx, TransitionCommand{ID: r.ID, ActorType: ActorAdmin})
		errs <- err
	}()
	go func() {
		defer wg.Done()
		<-start
		_, err := svc.Cancel(ctx, TransitionCommand{ID: r.ID, ActorType: ActorCustomer, ActorID: "cust-1"})
		errs <- err
	}()
	close(start)
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if !errors.Is(err, ErrConflict) && !errors.Is(err, ErrInvalidState) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	// Confirm then cancel is a legal sequence, so both may succeed; at least one must.
	if success == 0 {
		t.Fatal("no transition succeeded")
	}
	final, _ := store.Get(ctx, r.ID)
	if final.StatusVersion != success {
		t.Errorf("version = %d, successes = %d", final.StatusVersion, success)
	}
}
