package ticketing

import (
	"context"
	"slices"

	"github.com/jacentio/ticketer/internal/clock"
	"github.com/jacentio/ticketer/store"
)

// Relations maintains the inline relationship lists. Every method is a
// single read-modify-write of one record, committed with the version it
// read, and is independent of every other call.
type Relations struct {
	tables *Tables
	clock  clock.Clock
}

// NewRelations returns a Relations over tables stamping updates with c.
func NewRelations(tables *Tables, c clock.Clock) *Relations {
	if c == nil {
		c = clock.NewSystem()
	}
	return &Relations{tables: tables, clock: c}
}

// AddAttendee adds userID to the event's attendees. It reports whether the
// list changed; an attendee already present is left alone.
func (r *Relations) AddAttendee(ctx context.Context, eventID, userID uint64) (bool, error) {
	return modify(ctx, r.tables.event, r.tables.Events, eventID, func(e *Event) bool {
		if slices.Contains(e.AttendeeIDs, userID) {
			return false
		}
		e.AttendeeIDs = append(e.AttendeeIDs, userID)
		e.UpdatedAt = r.stamp()
		return true
	})
}

// RemoveAttendee drops userID from the event's attendees. It undoes an
// AddAttendee that is part of a failed unit of work.
func (r *Relations) RemoveAttendee(ctx context.Context, eventID, userID uint64) (bool, error) {
	var present bool
	_, err := modify(ctx, r.tables.event, r.tables.Events, eventID, func(e *Event) bool {
		present = slices.Contains(e.AttendeeIDs, userID)
		e.AttendeeIDs = without(e.AttendeeIDs, userID)
		e.UpdatedAt = r.stamp()
		return true
	})
	return present && err == nil, err
}

// AddTicketToEvent adds ticketID to the event's tickets.
func (r *Relations) AddTicketToEvent(ctx context.Context, eventID, ticketID uint64) (bool, error) {
	return modify(ctx, r.tables.event, r.tables.Events, eventID, func(e *Event) bool {
		if slices.Contains(e.TicketIDs, ticketID) {
			return false
		}
		e.TicketIDs = append(e.TicketIDs, ticketID)
		e.UpdatedAt = r.stamp()
		return true
	})
}

// AddTicketToUser adds ticketID to the user's tickets.
func (r *Relations) AddTicketToUser(ctx context.Context, userID, ticketID uint64) (bool, error) {
	return modify(ctx, r.tables.user, r.tables.Users, userID, func(u *User) bool {
		if slices.Contains(u.TicketIDs, ticketID) {
			return false
		}
		u.TicketIDs = append(u.TicketIDs, ticketID)
		u.UpdatedAt = r.stamp()
		return true
	})
}

// RemoveTicketFromUser removes every occurrence of ticketID from the
// user's tickets. The user is rewritten even when the id was absent; the
// result reports whether it was present.
func (r *Relations) RemoveTicketFromUser(ctx context.Context, userID, ticketID uint64) (bool, error) {
	var present bool
	_, err := modify(ctx, r.tables.user, r.tables.Users, userID, func(u *User) bool {
		present = slices.Contains(u.TicketIDs, ticketID)
		u.TicketIDs = without(u.TicketIDs, ticketID)
		u.UpdatedAt = r.stamp()
		return true
	})
	return present && err == nil, err
}

// RemoveTicketFromEvent removes every occurrence of ticketID from the
// event's tickets. The event is rewritten even when the id was absent.
func (r *Relations) RemoveTicketFromEvent(ctx context.Context, eventID, ticketID uint64) (bool, error) {
	var present bool
	_, err := modify(ctx, r.tables.event, r.tables.Events, eventID, func(e *Event) bool {
		present = slices.Contains(e.TicketIDs, ticketID)
		e.TicketIDs = without(e.TicketIDs, ticketID)
		e.UpdatedAt = r.stamp()
		return true
	})
	return present && err == nil, err
}

func (r *Relations) stamp() *uint64 {
	now := clock.Nanos(r.clock.Now())
	return &now
}

// modify loads the record at id, applies fn, and writes it back if fn
// reports a change.
func modify[T any](
	ctx context.Context,
	load func(context.Context, uint64) (*store.Entry[T], error),
	table *store.Table[T],
	id uint64,
	fn func(*T) bool,
) (bool, error) {
	entry, err := load(ctx, id)
	if err != nil {
		return false, err
	}

	value := entry.Value
	if !fn(&value) {
		return false, nil
	}
	if _, err := table.Update(ctx, id, value, entry.Version); err != nil {
		return false, err
	}
	return true, nil
}

func without(ids []uint64, id uint64) []uint64 {
	return slices.DeleteFunc(ids, func(v uint64) bool { return v == id })
}
