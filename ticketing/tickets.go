package ticketing

import (
	"context"
	"errors"
	"fmt"
)

// Step names of the ticket units of work.
const (
	stepPersistTicket      = "persist_ticket"
	stepAddEventAttendee   = "add_event_attendee"
	stepAddUserTicket      = "add_user_ticket"
	stepAddEventTicket     = "add_event_ticket"
	stepRemoveUserTicket   = "remove_user_ticket"
	stepRemoveEventTicket  = "remove_event_ticket"
	stepCommitTicket       = "commit_ticket"
	stepDeleteTicketRecord = "delete_ticket"
)

// AllTickets returns every ticket ordered by id.
func (s *Service) AllTickets(ctx context.Context) (tickets []*Ticket, err error) {
	defer s.enter(KindTicket, "get_all")(&err)

	entries, err := s.tables.Tickets.All(ctx)
	if err != nil {
		return nil, err
	}
	return values(entries), nil
}

// Ticket returns the ticket with id.
func (s *Service) Ticket(ctx context.Context, id uint64) (ticket *Ticket, err error) {
	defer s.enter(KindTicket, "get")(&err)

	entry, err := s.tables.ticket(ctx, id)
	if err != nil {
		return nil, err
	}
	return &entry.Value, nil
}

// CreateTicket issues a ticket for p.UserID to p.EventID. The ticket is
// stored first, then linked as an attendee, into the user's tickets and
// into the event's tickets, each as its own commit. The event and user
// are not checked up front; a missing one fails its link step.
//
// A failed link step, or a failed id allocation, returns an
// *AssociationError. After a link failure it carries the stored ticket.
func (s *Service) CreateTicket(ctx context.Context, p TicketPayload) (ticket *Ticket, err error) {
	defer s.enter(KindTicket, "create")(&err)

	id, err := s.allocate(ctx)
	if err != nil {
		return nil, &AssociationError{
			Msg: fmt.Sprintf("Failed to increment ID counter: %v", err),
			Err: err,
		}
	}

	t := Ticket{
		ID:        id,
		EventID:   p.EventID,
		UserID:    p.UserID,
		CreatedAt: s.now(),
	}

	u := newUnitOfWork(s.logger, "create_ticket", "ticketID", id, "eventID", p.EventID, "userID", p.UserID)
	u.add(stepPersistTicket, func(ctx context.Context) (undoFunc, error) {
		if _, err := s.tables.Tickets.Create(ctx, id, t); err != nil {
			return nil, fmt.Errorf("store ticket id:%d: %w", id, err)
		}
		return func(ctx context.Context) error {
			_, err := s.tables.Tickets.Delete(ctx, id)
			return err
		}, nil
	})
	u.add(stepAddEventAttendee, s.addAttendeeStep(p.EventID, p.UserID, false))
	u.add(stepAddUserTicket, s.addUserTicketStep(p.UserID, id))
	u.add(stepAddEventTicket, s.addEventTicketStep(p.EventID, id))

	out, err := u.run(ctx, s.opts.Compensate)
	if err == nil {
		return &t, nil
	}

	var msg string
	switch out.failedStep {
	case stepPersistTicket:
		return nil, err
	case stepAddEventAttendee:
		msg = fmt.Sprintf("Could not add attendee to event id:%d", p.EventID)
	case stepAddUserTicket:
		msg = fmt.Sprintf("Could not add ticket id:%d to user id:%d", id, p.UserID)
	default:
		msg = fmt.Sprintf("Could not add ticket id:%d to event id:%d", id, p.EventID)
	}
	return nil, &AssociationError{Msg: msg, Ticket: t, RolledBack: out.rolledBack, Err: err}
}

// UpdateTicket moves the ticket to p.UserID and p.EventID. A changed user
// or event is unlinked from the old record and linked into the new one,
// and the resulting user is recorded as an attendee of the resulting
// event, before the ticket itself is committed. An unchanged event that
// no longer exists does not block the move. Link failures are
// returned as they are; steps already committed stay committed unless
// compensation is enabled.
func (s *Service) UpdateTicket(ctx context.Context, id uint64, p TicketPayload) (ticket *Ticket, err error) {
	defer s.enter(KindTicket, "update")(&err)

	entry, err := s.tables.ticket(ctx, id)
	if err != nil {
		return nil, err
	}
	current := entry.Value

	u := newUnitOfWork(s.logger, "update_ticket", "ticketID", id)
	if p.UserID != current.UserID {
		u.add(stepRemoveUserTicket, s.removeUserTicketStep(current.UserID, id, false))
		u.add(stepAddUserTicket, s.addUserTicketStep(p.UserID, id))
	}
	if p.EventID != current.EventID {
		u.add(stepRemoveEventTicket, s.removeEventTicketStep(current.EventID, id, false))
		u.add(stepAddEventTicket, s.addEventTicketStep(p.EventID, id))
	}
	if p.EventID != current.EventID {
		u.add(stepAddEventAttendee, s.addAttendeeStep(p.EventID, p.UserID, false))
	} else if p.UserID != current.UserID {
		// The event is unchanged and may have been deleted since.
		u.add(stepAddEventAttendee, s.addAttendeeStep(p.EventID, p.UserID, true))
	}

	t := current
	t.UserID = p.UserID
	t.EventID = p.EventID
	now := s.now()
	t.UpdatedAt = &now

	u.add(stepCommitTicket, func(ctx context.Context) (undoFunc, error) {
		if _, err := s.tables.Tickets.Update(ctx, id, t, entry.Version); err != nil {
			return nil, fmt.Errorf("store ticket id:%d: %w", id, err)
		}
		return nil, nil
	})

	if _, err := u.run(ctx, s.opts.Compensate); err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteTicket unlinks the ticket from its user and event, then removes
// it. If either owner is missing the delete stops there and the ticket is
// kept, unless TolerateMissingOwners is set.
func (s *Service) DeleteTicket(ctx context.Context, id uint64) (msg string, err error) {
	defer s.enter(KindTicket, "delete")(&err)

	entry, err := s.tables.ticket(ctx, id)
	if err != nil {
		return "", err
	}
	t := entry.Value

	u := newUnitOfWork(s.logger, "delete_ticket", "ticketID", id)
	u.add(stepRemoveUserTicket, s.removeUserTicketStep(t.UserID, id, s.opts.TolerateMissingOwners))
	u.add(stepRemoveEventTicket, s.removeEventTicketStep(t.EventID, id, s.opts.TolerateMissingOwners))
	u.add(stepDeleteTicketRecord, func(ctx context.Context) (undoFunc, error) {
		existed, err := s.tables.Tickets.Delete(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("delete ticket id:%d: %w", id, err)
		}
		if !existed {
			return nil, &NotFoundError{Kind: KindTicket, ID: id}
		}
		return nil, nil
	})

	if _, err := u.run(ctx, s.opts.Compensate); err != nil {
		return "", err
	}
	return fmt.Sprintf("ticket id: %d deleted", id), nil
}

// addAttendeeStep records userID as attending eventID. With
// tolerateMissing, an event that no longer exists is skipped.
func (s *Service) addAttendeeStep(eventID, userID uint64, tolerateMissing bool) stepFunc {
	return func(ctx context.Context) (undoFunc, error) {
		added, err := s.relations.AddAttendee(ctx, eventID, userID)
		if tolerateMissing && errors.Is(err, ErrNotFound) {
			s.logger.Warn("event already gone, skipping attendee", "eventID", eventID, "userID", userID)
			return nil, nil
		}
		if err != nil || !added {
			return nil, err
		}
		return func(ctx context.Context) error {
			_, err := s.relations.RemoveAttendee(ctx, eventID, userID)
			return err
		}, nil
	}
}

func (s *Service) addUserTicketStep(userID, ticketID uint64) stepFunc {
	return func(ctx context.Context) (undoFunc, error) {
		added, err := s.relations.AddTicketToUser(ctx, userID, ticketID)
		if err != nil || !added {
			return nil, err
		}
		return func(ctx context.Context) error {
			_, err := s.relations.RemoveTicketFromUser(ctx, userID, ticketID)
			return err
		}, nil
	}
}

func (s *Service) addEventTicketStep(eventID, ticketID uint64) stepFunc {
	return func(ctx context.Context) (undoFunc, error) {
		added, err := s.relations.AddTicketToEvent(ctx, eventID, ticketID)
		if err != nil || !added {
			return nil, err
		}
		return func(ctx context.Context) error {
			_, err := s.relations.RemoveTicketFromEvent(ctx, eventID, ticketID)
			return err
		}, nil
	}
}

// removeUserTicketStep unlinks ticketID from the user. With tolerateMissing,
// a user that no longer exists counts as already unlinked.
func (s *Service) removeUserTicketStep(userID, ticketID uint64, tolerateMissing bool) stepFunc {
	return func(ctx context.Context) (undoFunc, error) {
		removed, err := s.relations.RemoveTicketFromUser(ctx, userID, ticketID)
		if tolerateMissing && errors.Is(err, ErrNotFound) {
			s.logger.Warn("user already gone, skipping unlink", "userID", userID, "ticketID", ticketID)
			return nil, nil
		}
		if err != nil || !removed {
			return nil, err
		}
		return func(ctx context.Context) error {
			_, err := s.relations.AddTicketToUser(ctx, userID, ticketID)
			return err
		}, nil
	}
}

// removeEventTicketStep unlinks ticketID from the event. With
// tolerateMissing, an event that no longer exists counts as already unlinked.
func (s *Service) removeEventTicketStep(eventID, ticketID uint64, tolerateMissing bool) stepFunc {
	return func(ctx context.Context) (undoFunc, error) {
		removed, err := s.relations.RemoveTicketFromEvent(ctx, eventID, ticketID)
		if tolerateMissing && errors.Is(err, ErrNotFound) {
			s.logger.Warn("event already gone, skipping unlink", "eventID", eventID, "ticketID", ticketID)
			return nil, nil
		}
		if err != nil || !removed {
			return nil, err
		}
		return func(ctx context.Context) error {
			_, err := s.relations.AddTicketToEvent(ctx, eventID, ticketID)
			return err
		}, nil
	}
}
