package ticketing

import (
	"context"

	"github.com/jacentio/ticketer/store"
)

// Tables is the store context the service operates on: one table per
// record kind plus the shared id counter.
type Tables struct {
	Events  *store.Table[Event]
	Users   *store.Table[User]
	Tickets *store.Table[Ticket]
	IDs     *store.Counter

	store *store.Store
}

// NewTables opens the tables named in the store's config.
func NewTables(s *store.Store) *Tables {
	cfg := s.Config()
	return &Tables{
		Events:  store.NewTable[Event](s, cfg.EventTable),
		Users:   store.NewTable[User](s, cfg.UserTable),
		Tickets: store.NewTable[Ticket](s, cfg.TicketTable),
		IDs:     s.Counter(),
		store:   s,
	}
}

// NewRegistry describes the inline relationship lists for the tables in
// cfg whose targets refer back to the owner. Tickets name their event and
// user; a user names no event, so attendee_ids is not registered.
func NewRegistry(cfg store.Config) *store.Registry {
	r := store.NewRegistry()
	r.Register(store.Relationship{
		OwnerType:   string(KindEvent),
		OwnerTable:  cfg.EventTable,
		ListAttr:    "ticket_ids",
		TargetType:  string(KindTicket),
		TargetTable: cfg.TicketTable,
	})
	r.Register(store.Relationship{
		OwnerType:   string(KindUser),
		OwnerTable:  cfg.UserTable,
		ListAttr:    "ticket_ids",
		TargetType:  string(KindTicket),
		TargetTable: cfg.TicketTable,
	})
	return r
}

func (t *Tables) event(ctx context.Context, id uint64) (*store.Entry[Event], error) {
	entry, err := t.Events.Get(ctx, id)
	if err != nil {
		return nil, lookupError(KindEvent, id, err)
	}
	return entry, nil
}

func (t *Tables) user(ctx context.Context, id uint64) (*store.Entry[User], error) {
	entry, err := t.Users.Get(ctx, id)
	if err != nil {
		return nil, lookupError(KindUser, id, err)
	}
	return entry, nil
}

func (t *Tables) ticket(ctx context.Context, id uint64) (*store.Entry[Ticket], error) {
	entry, err := t.Tickets.Get(ctx, id)
	if err != nil {
		return nil, lookupError(KindTicket, id, err)
	}
	return entry, nil
}

// mustExist returns a NotFoundError unless a record of kind exists at id.
func (t *Tables) mustExist(ctx context.Context, kind Kind, id uint64) error {
	var table string
	switch kind {
	case KindEvent:
		table = t.Events.Name()
	case KindUser:
		table = t.Users.Name()
	default:
		table = t.Tickets.Name()
	}

	ok, err := t.store.Exists(ctx, table, id)
	if err != nil {
		return lookupError(kind, id, err)
	}
	if !ok {
		return &NotFoundError{Kind: kind, ID: id}
	}
	return nil
}
