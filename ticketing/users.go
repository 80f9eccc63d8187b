package ticketing

import (
	"context"
	"fmt"
)

// AllUsers returns every user ordered by id.
func (s *Service) AllUsers(ctx context.Context) (users []*User, err error) {
	defer s.enter(KindUser, "get_all")(&err)

	entries, err := s.tables.Users.All(ctx)
	if err != nil {
		return nil, err
	}
	return values(entries), nil
}

// User returns the user with id.
func (s *Service) User(ctx context.Context, id uint64) (user *User, err error) {
	defer s.enter(KindUser, "get")(&err)

	entry, err := s.tables.user(ctx, id)
	if err != nil {
		return nil, err
	}
	return &entry.Value, nil
}

// CreateUser stores a new user with a fresh id and no tickets.
func (s *Service) CreateUser(ctx context.Context, p UserPayload) (user *User, err error) {
	defer s.enter(KindUser, "create")(&err)

	id, err := s.allocate(ctx)
	if err != nil {
		return nil, err
	}

	u := User{
		ID:        id,
		Name:      p.Name,
		Email:     p.Email,
		Password:  p.Password,
		EventIDs:  []uint64{},
		TicketIDs: []uint64{},
		CreatedAt: s.now(),
	}
	if _, err := s.tables.Users.Create(ctx, id, u); err != nil {
		return nil, fmt.Errorf("store user id:%d: %w", id, err)
	}
	return &u, nil
}

// UpdateUser overwrites the payload fields of the user with id.
func (s *Service) UpdateUser(ctx context.Context, id uint64, p UserPayload) (user *User, err error) {
	defer s.enter(KindUser, "update")(&err)

	entry, err := s.tables.user(ctx, id)
	if err != nil {
		return nil, err
	}

	u := entry.Value
	u.Name = p.Name
	u.Email = p.Email
	u.Password = p.Password
	now := s.now()
	u.UpdatedAt = &now

	if _, err := s.tables.Users.Update(ctx, id, u, entry.Version); err != nil {
		return nil, fmt.Errorf("store user id:%d: %w", id, err)
	}
	return &u, nil
}

// DeleteUser removes the user with id. The user's tickets are not touched.
func (s *Service) DeleteUser(ctx context.Context, id uint64) (msg string, err error) {
	defer s.enter(KindUser, "delete")(&err)

	existed, err := s.tables.Users.Delete(ctx, id)
	if err != nil {
		return "", fmt.Errorf("delete user id:%d: %w", id, err)
	}
	if !existed {
		return "", &NotFoundError{Kind: KindUser, ID: id}
	}
	return fmt.Sprintf("user id: %d deleted", id), nil
}

// UserTickets returns the user's tickets. A listed ticket that no longer
// resolves, or whose event no longer resolves, fails the call.
func (s *Service) UserTickets(ctx context.Context, id uint64) (tickets []*Ticket, err error) {
	defer s.enter(KindUser, "get_tickets")(&err)

	entry, err := s.tables.user(ctx, id)
	if err != nil {
		return nil, err
	}

	tickets = make([]*Ticket, 0, len(entry.Value.TicketIDs))
	for _, ticketID := range entry.Value.TicketIDs {
		t, err := s.tables.ticket(ctx, ticketID)
		if err != nil {
			return nil, err
		}
		if err := s.tables.mustExist(ctx, KindEvent, t.Value.EventID); err != nil {
			return nil, err
		}
		tickets = append(tickets, &t.Value)
	}
	return tickets, nil
}
