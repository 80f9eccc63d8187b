package ticketing_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jacentio/ticketer/internal/clock"
	"github.com/jacentio/ticketer/internal/testutil"
	"github.com/jacentio/ticketer/store"
	"github.com/jacentio/ticketer/ticketing"
)

var epoch = time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc   *ticketing.Service
	fake  *testutil.FakeDynamo
	clock *clock.Manual
	cfg   store.Config
}

func newFixture(t *testing.T, opts ticketing.Options) *fixture {
	t.Helper()

	cfg := store.DefaultConfig()
	fake := testutil.NewProvisionedFake(t, cfg)
	c := clock.NewManual(epoch)

	opts.Clock = c
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	st := store.NewWithRegistry(fake, cfg, ticketing.NewRegistry(cfg))
	return &fixture{
		svc:   ticketing.New(st, opts),
		fake:  fake,
		clock: c,
		cfg:   cfg,
	}
}

func (f *fixture) event(t *testing.T, name string) *ticketing.Event {
	t.Helper()
	e, err := f.svc.CreateEvent(context.Background(), ticketing.EventPayload{
		Name:      name,
		Date:      "2024-05-01",
		StartTime: "19:00",
		Location:  "Main Hall",
	})
	if err != nil {
		t.Fatalf("create event %q: %v", name, err)
	}
	return e
}

func (f *fixture) user(t *testing.T, name string) *ticketing.User {
	t.Helper()
	u, err := f.svc.CreateUser(context.Background(), ticketing.UserPayload{
		Name:     name,
		Email:    name + "@x.com",
		Password: "secret",
	})
	if err != nil {
		t.Fatalf("create user %q: %v", name, err)
	}
	return u
}

func (f *fixture) ticket(t *testing.T, eventID, userID uint64) *ticketing.Ticket {
	t.Helper()
	tk, err := f.svc.CreateTicket(context.Background(), ticketing.TicketPayload{EventID: eventID, UserID: userID})
	if err != nil {
		t.Fatalf("create ticket for event %d user %d: %v", eventID, userID, err)
	}
	return tk
}

func (f *fixture) mustEvent(t *testing.T, id uint64) *ticketing.Event {
	t.Helper()
	e, err := f.svc.Event(context.Background(), id)
	if err != nil {
		t.Fatalf("get event %d: %v", id, err)
	}
	return e
}

func (f *fixture) mustUser(t *testing.T, id uint64) *ticketing.User {
	t.Helper()
	u, err := f.svc.User(context.Background(), id)
	if err != nil {
		t.Fatalf("get user %d: %v", id, err)
	}
	return u
}

// expectNotFound fails unless err is a NotFoundError for kind and id.
func expectNotFound(t *testing.T, err error, kind ticketing.Kind, id uint64) {
	t.Helper()

	var nf *ticketing.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if nf.Kind != kind || nf.ID != id {
		t.Errorf("expected not found %s id:%d, got %s id:%d", kind, id, nf.Kind, nf.ID)
	}
	if !errors.Is(err, ticketing.ErrNotFound) {
		t.Error("expected errors.Is(err, ErrNotFound)")
	}
}
