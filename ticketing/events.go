package ticketing

import (
	"context"
	"fmt"
)

// AllEvents returns every event ordered by id.
func (s *Service) AllEvents(ctx context.Context) (events []*Event, err error) {
	defer s.enter(KindEvent, "get_all")(&err)

	entries, err := s.tables.Events.All(ctx)
	if err != nil {
		return nil, err
	}
	return values(entries), nil
}

// Event returns the event with id.
func (s *Service) Event(ctx context.Context, id uint64) (event *Event, err error) {
	defer s.enter(KindEvent, "get")(&err)

	entry, err := s.tables.event(ctx, id)
	if err != nil {
		return nil, err
	}
	return &entry.Value, nil
}

// CreateEvent stores a new event with a fresh id and no attendees or tickets.
func (s *Service) CreateEvent(ctx context.Context, p EventPayload) (event *Event, err error) {
	defer s.enter(KindEvent, "create")(&err)

	id, err := s.allocate(ctx)
	if err != nil {
		return nil, err
	}

	e := Event{
		ID:          id,
		Name:        p.Name,
		Description: p.Description,
		Date:        p.Date,
		StartTime:   p.StartTime,
		Location:    p.Location,
		AttendeeIDs: []uint64{},
		TicketIDs:   []uint64{},
		CreatedAt:   s.now(),
	}
	if _, err := s.tables.Events.Create(ctx, id, e); err != nil {
		return nil, fmt.Errorf("store event id:%d: %w", id, err)
	}
	return &e, nil
}

// UpdateEvent overwrites the payload fields of the event with id.
// Relationship lists and created_at are kept.
func (s *Service) UpdateEvent(ctx context.Context, id uint64, p EventPayload) (event *Event, err error) {
	defer s.enter(KindEvent, "update")(&err)

	entry, err := s.tables.event(ctx, id)
	if err != nil {
		return nil, err
	}

	e := entry.Value
	e.Name = p.Name
	e.Description = p.Description
	e.Date = p.Date
	e.StartTime = p.StartTime
	e.Location = p.Location
	now := s.now()
	e.UpdatedAt = &now

	if _, err := s.tables.Events.Update(ctx, id, e, entry.Version); err != nil {
		return nil, fmt.Errorf("store event id:%d: %w", id, err)
	}
	return &e, nil
}

// DeleteEvent removes the event with id. Tickets for the event are not
// touched and keep referencing it.
func (s *Service) DeleteEvent(ctx context.Context, id uint64) (msg string, err error) {
	defer s.enter(KindEvent, "delete")(&err)

	existed, err := s.tables.Events.Delete(ctx, id)
	if err != nil {
		return "", fmt.Errorf("delete event id:%d: %w", id, err)
	}
	if !existed {
		return "", &NotFoundError{Kind: KindEvent, ID: id}
	}
	return fmt.Sprintf("event id: %d deleted", id), nil
}

// EventAttendees returns the users attending the event, in the order they
// were added. Any attendee id that no longer resolves fails the call.
func (s *Service) EventAttendees(ctx context.Context, id uint64) (users []*User, err error) {
	defer s.enter(KindEvent, "get_attendees")(&err)

	entry, err := s.tables.event(ctx, id)
	if err != nil {
		return nil, err
	}

	users = make([]*User, 0, len(entry.Value.AttendeeIDs))
	for _, userID := range entry.Value.AttendeeIDs {
		u, err := s.tables.user(ctx, userID)
		if err != nil {
			return nil, err
		}
		users = append(users, &u.Value)
	}
	return users, nil
}

// EventTickets returns the tickets issued for the event. A listed ticket
// that no longer resolves, or whose user no longer resolves, fails the call.
func (s *Service) EventTickets(ctx context.Context, id uint64) (tickets []*Ticket, err error) {
	defer s.enter(KindEvent, "get_tickets")(&err)

	entry, err := s.tables.event(ctx, id)
	if err != nil {
		return nil, err
	}

	tickets = make([]*Ticket, 0, len(entry.Value.TicketIDs))
	for _, ticketID := range entry.Value.TicketIDs {
		t, err := s.tables.ticket(ctx, ticketID)
		if err != nil {
			return nil, err
		}
		if err := s.tables.mustExist(ctx, KindUser, t.Value.UserID); err != nil {
			return nil, err
		}
		tickets = append(tickets, &t.Value)
	}
	return tickets, nil
}
