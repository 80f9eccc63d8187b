package ticketing_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/jacentio/ticketer/internal/clock"
	"github.com/jacentio/ticketer/internal/metrics"
	"github.com/jacentio/ticketer/internal/testutil"
	"github.com/jacentio/ticketer/store"
	"github.com/jacentio/ticketer/ticketing"
)

// --- Events ---

func TestCreateEvent_RoundTrip(t *testing.T) {
	f := newFixture(t, ticketing.Options{})
	ctx := context.Background()

	created, err := f.svc.CreateEvent(ctx, ticketing.EventPayload{
		Name:        "Launch",
		Description: "Product launch",
		Date:        "2024-05-01",
		StartTime:   "18:30",
		Location:    "Pier 9",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if created.ID != 1 {
		t.Errorf("expected id 1, got %d", created.ID)
	}
	if created.CreatedAt != clock.Nanos(epoch) {
		t.Errorf("expected created_at %d, got %d", clock.Nanos(epoch), created.CreatedAt)
	}
	if created.UpdatedAt != nil {
		t.Errorf("expected nil updated_at, got %d", *created.UpdatedAt)
	}
	if len(created.AttendeeIDs) != 0 || len(created.TicketIDs) != 0 {
		t.Errorf("expected empty lists, got attendees %v tickets %v", created.AttendeeIDs, created.TicketIDs)
	}

	got := f.mustEvent(t, created.ID)
	if got.Name != "Launch" || got.Description != "Product launch" || got.Date != "2024-05-01" ||
		got.StartTime != "18:30" || got.Location != "Pier 9" {
		t.Errorf("expected stored fields to match payload, got %+v", got)
	}
	if got.CreatedAt != created.CreatedAt {
		t.Errorf("expected created_at %d, got %d", created.CreatedAt, got.CreatedAt)
	}
}

func TestUpdateEvent(t *testing.T) {
	f := newFixture(t, ticketing.Options{})
	ctx := context.Background()

	e := f.event(t, "Launch")
	u := f.user(t, "alice")
	f.ticket(t, e.ID, u.ID)

	f.clock.Advance(time.Hour)
	updated, err := f.svc.UpdateEvent(ctx, e.ID, ticketing.EventPayload{
		Name:     "Launch v2",
		Date:     "2024-06-01",
		Location: "Online",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := clock.Nanos(epoch.Add(time.Hour))
	if updated.UpdatedAt == nil || *updated.UpdatedAt != want {
		t.Errorf("expected updated_at %d, got %v", want, updated.UpdatedAt)
	}
	if updated.CreatedAt != e.CreatedAt {
		t.Errorf("expected created_at to be kept, got %d", updated.CreatedAt)
	}

	got := f.mustEvent(t, e.ID)
	if got.Name != "Launch v2" || got.Date != "2024-06-01" || got.Location != "Online" || got.StartTime != "" {
		t.Errorf("expected payload fields to be replaced, got %+v", got)
	}
	if !slices.Equal(got.AttendeeIDs, []uint64{u.ID}) {
		t.Errorf("expected attendees to be kept, got %v", got.AttendeeIDs)
	}
	if len(got.TicketIDs) != 1 {
		t.Errorf("expected tickets to be kept, got %v", got.TicketIDs)
	}
}

func TestUpdateEvent_NotFound(t *testing.T) {
	f := newFixture(t, ticketing.Options{})

	_, err := f.svc.UpdateEvent(context.Background(), 42, ticketing.EventPayload{Name: "x"})
	expectNotFound(t, err, ticketing.KindEvent, 42)
	if err.Error() != "event id:42 does not exist" {
		t.Errorf("expected message 'event id:42 does not exist', got %q", err.Error())
	}
}

func TestDeleteEvent(t *testing.T) {
	f := newFixture(t, ticketing.Options{})
	ctx := context.Background()

	e := f.event(t, "Launch")

	msg, err := f.svc.DeleteEvent(ctx, e.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg != "event id: 1 deleted" {
		t.Errorf("expected 'event id: 1 deleted', got %q", msg)
	}

	_, err = f.svc.Event(ctx, e.ID)
	expectNotFound(t, err, ticketing.KindEvent, e.ID)

	_, err = f.svc.DeleteEvent(ctx, e.ID)
	expectNotFound(t, err, ticketing.KindEvent, e.ID)
}

func TestAllEvents_OrderedByID(t *testing.T) {
	f := newFixture(t, ticketing.Options{})
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		f.event(t, name)
	}
	f.user(t, "alice")

	events, err := f.svc.AllEvents(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i, name := range []string{"a", "b", "c"} {
		if events[i].Name != name || events[i].ID != uint64(i+1) {
			t.Errorf("expected event %d to be %q, got %d %q", i, name, events[i].ID, events[i].Name)
		}
	}
}

func TestAllEvents_Empty(t *testing.T) {
	f := newFixture(t, ticketing.Options{})

	events, err := f.svc.AllEvents(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected no events, got %d", len(events))
	}
}

func TestEventAttendees(t *testing.T) {
	f := newFixture(t, ticketing.Options{})
	ctx := context.Background()

	e := f.event(t, "Launch")
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	f.ticket(t, e.ID, bob.ID)
	f.ticket(t, e.ID, alice.ID)
	f.ticket(t, e.ID, bob.ID)

	users, err := f.svc.EventAttendees(ctx, e.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 attendees, got %d", len(users))
	}
	if users[0].ID != bob.ID || users[1].ID != alice.ID {
		t.Errorf("expected attendees [bob alice], got [%s %s]", users[0].Name, users[1].Name)
	}

	if _, err := f.svc.DeleteUser(ctx, alice.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	_, err = f.svc.EventAttendees(ctx, e.ID)
	expectNotFound(t, err, ticketing.KindUser, alice.ID)
}

func TestEventTickets(t *testing.T) {
	f := newFixture(t, ticketing.Options{})
	ctx := context.Background()

	e := f.event(t, "Launch")
	u := f.user(t, "alice")
	t1 := f.ticket(t, e.ID, u.ID)
	t2 := f.ticket(t, e.ID, u.ID)

	tickets, err := f.svc.EventTickets(ctx, e.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tickets) != 2 || tickets[0].ID != t1.ID || tickets[1].ID != t2.ID {
		t.Errorf("expected tickets [%d %d], got %v", t1.ID, t2.ID, tickets)
	}

	if _, err := f.svc.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	_, err = f.svc.EventTickets(ctx, e.ID)
	expectNotFound(t, err, ticketing.KindUser, u.ID)

	_, err = f.svc.EventTickets(ctx, 99)
	expectNotFound(t, err, ticketing.KindEvent, 99)
}

func TestCreateEvent_TooLarge(t *testing.T) {
	f := newFixture(t, ticketing.Options{})
	ctx := context.Background()

	_, err := f.svc.CreateEvent(ctx, ticketing.EventPayload{
		Name:        "big",
		Description: strings.Repeat("x", 2048),
	})
	if !errors.Is(err, store.ErrRecordTooLarge) {
		t.Fatalf("expected ErrRecordTooLarge, got %v", err)
	}

	// The id was consumed even though nothing was stored.
	e := f.event(t, "small")
	if e.ID != 2 {
		t.Errorf("expected id 2 after a failed create, got %d", e.ID)
	}
}

// --- Users ---

func TestCreateUser_RoundTrip(t *testing.T) {
	f := newFixture(t, ticketing.Options{})

	u := f.user(t, "alice")
	got := f.mustUser(t, u.ID)

	if got.Name != "alice" || got.Email != "alice@x.com" || got.Password != "secret" {
		t.Errorf("expected stored fields to match payload, got %+v", got)
	}
	if len(got.TicketIDs) != 0 || len(got.EventIDs) != 0 {
		t.Errorf("expected empty lists, got tickets %v events %v", got.TicketIDs, got.EventIDs)
	}
	if got.UpdatedAt != nil {
		t.Error("expected nil updated_at")
	}
}

func TestUpdateUser(t *testing.T) {
	f := newFixture(t, ticketing.Options{})
	ctx := context.Background()

	u := f.user(t, "alice")
	f.clock.Advance(time.Minute)

	updated, err := f.svc.UpdateUser(ctx, u.ID, ticketing.UserPayload{Name: "Alice", Email: "alice@y.com", Password: "p2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.UpdatedAt == nil || *updated.UpdatedAt != clock.Nanos(epoch.Add(time.Minute)) {
		t.Errorf("expected updated_at to be refreshed, got %v", updated.UpdatedAt)
	}

	got := f.mustUser(t, u.ID)
	if got.Name != "Alice" || got.Email != "alice@y.com" || got.Password != "p2" {
		t.Errorf("expected updated fields, got %+v", got)
	}

	_, err = f.svc.UpdateUser(ctx, 77, ticketing.UserPayload{})
	expectNotFound(t, err, ticketing.KindUser, 77)
}

func TestDeleteUser_Twice(t *testing.T) {
	f := newFixture(t, ticketing.Options{})
	ctx := context.Background()

	u := f.user(t, "alice")

	msg, err := f.svc.DeleteUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg != "user id: 1 deleted" {
		t.Errorf("expected 'user id: 1 deleted', got %q", msg)
	}

	_, err = f.svc.DeleteUser(ctx, u.ID)
	expectNotFound(t, err, ticketing.KindUser, u.ID)
}

func TestAllUsers(t *testing.T) {
	f := newFixture(t, ticketing.Options{})

	f.user(t, "alice")
	f.event(t, "Launch")
	f.user(t, "bob")

	users, err := f.svc.AllUsers(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 2 || users[0].Name != "alice" || users[1].Name != "bob" {
		t.Errorf("expected [alice bob], got %v", users)
	}
	if users[1].ID != 3 {
		t.Errorf("expected bob to have id 3, got %d", users[1].ID)
	}
}

// --- Identifiers ---

func TestIDs_SharedAndMonotonic(t *testing.T) {
	f := newFixture(t, ticketing.Options{})
	ctx := context.Background()

	e := f.event(t, "a")
	if _, err := f.svc.DeleteEvent(ctx, e.ID); err != nil {
		t.Fatalf("delete event: %v", err)
	}
	u := f.user(t, "alice")
	e2 := f.event(t, "b")
	tk := f.ticket(t, e2.ID, u.ID)

	got := []uint64{e.ID, u.ID, e2.ID, tk.ID}
	if !slices.Equal(got, []uint64{1, 2, 3, 4}) {
		t.Errorf("expected ids [1 2 3 4], got %v", got)
	}
}

func TestIDs_ConcurrentCreatesAreUnique(t *testing.T) {
	f := newFixture(t, ticketing.Options{})
	ctx := context.Background()

	const n = 20
	ids := make([]uint64, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := f.svc.CreateUser(ctx, ticketing.UserPayload{Name: "u"})
			if err != nil {
				t.Errorf("create user: %v", err)
				return
			}
			ids[i] = u.ID
		}()
	}
	wg.Wait()

	slices.Sort(ids)
	for i, id := range ids {
		if id != uint64(i+1) {
			t.Fatalf("expected ids 1..%d without gaps or repeats, got %v", n, ids)
		}
	}
}

func TestCreate_CounterFailure(t *testing.T) {
	f := newFixture(t, ticketing.Options{})
	ctx := context.Background()

	f.fake.FailNext(f.cfg.CounterTable, testutil.OpUpdate, errors.New("throttled"))
	_, err := f.svc.CreateEvent(ctx, ticketing.EventPayload{Name: "x"})

	var nc *ticketing.NotCreatedError
	if !errors.As(err, &nc) {
		t.Fatalf("expected NotCreatedError, got %v", err)
	}
	if nc.Msg != "Failed to increment ID counter" {
		t.Errorf("expected counter message, got %q", nc.Msg)
	}
	if !errors.Is(err, ticketing.ErrNotCreated) {
		t.Error("expected errors.Is(err, ErrNotCreated)")
	}
	if f.fake.Len(f.cfg.EventTable) != 0 {
		t.Error("expected no event to be stored")
	}

	f.fake.FailNext(f.cfg.CounterTable, testutil.OpUpdate, errors.New("throttled"))
	if _, err := f.svc.CreateUser(ctx, ticketing.UserPayload{Name: "x"}); !errors.Is(err, ticketing.ErrNotCreated) {
		t.Errorf("expected ErrNotCreated from CreateUser, got %v", err)
	}

	// A failed allocation issues no id.
	e := f.event(t, "after")
	if e.ID != 1 {
		t.Errorf("expected id 1, got %d", e.ID)
	}
}

// --- Metrics ---

func TestOperationsMetric(t *testing.T) {
	f := newFixture(t, ticketing.Options{})
	ctx := context.Background()

	ok := metrics.Operations.WithLabelValues("user", "get", metrics.OutcomeOK)
	failed := metrics.Operations.WithLabelValues("user", "get", metrics.OutcomeError)
	okBefore := promtest.ToFloat64(ok)
	failedBefore := promtest.ToFloat64(failed)

	u := f.user(t, "alice")
	if _, err := f.svc.User(ctx, u.ID); err != nil {
		t.Fatalf("get user: %v", err)
	}
	if _, err := f.svc.User(ctx, 999); err == nil {
		t.Fatal("expected error for missing user")
	}

	if got := promtest.ToFloat64(ok) - okBefore; got != 1 {
		t.Errorf("expected 1 ok get, got %v", got)
	}
	if got := promtest.ToFloat64(failed) - failedBefore; got != 1 {
		t.Errorf("expected 1 failed get, got %v", got)
	}
}
