package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/jacentio/ticketer/ticketing"
)

// command runs one resource verb against the service and prints the result.
type command struct {
	svc *ticketing.Service
	out io.Writer
}

func (c *command) dispatch(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: ticketctl %s <verb> [ID] [flags]", args[0])
	}
	resource, verb, rest := args[0], args[1], args[2:]

	switch resource {
	case "event":
		return c.event(ctx, verb, rest)
	case "user":
		return c.user(ctx, verb, rest)
	case "ticket":
		return c.ticket(ctx, verb, rest)
	default:
		return fmt.Errorf("unknown resource %q", resource)
	}
}

func (c *command) event(ctx context.Context, verb string, args []string) error {
	var p ticketing.EventPayload
	flagSet := pflag.NewFlagSet("event "+verb, pflag.ContinueOnError)
	flagSet.StringVar(&p.Name, "name", "", "event name")
	flagSet.StringVar(&p.Description, "description", "", "event description")
	flagSet.StringVar(&p.Date, "date", "", "event date, e.g. 2024-05-01")
	flagSet.StringVar(&p.StartTime, "start-time", "", "start time, e.g. 19:00")
	flagSet.StringVar(&p.Location, "location", "", "venue")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	switch verb {
	case "list":
		return c.print(c.svc.AllEvents(ctx))
	case "create":
		return c.print(c.svc.CreateEvent(ctx, p))
	}

	id, err := idArg(flagSet)
	if err != nil {
		return err
	}
	switch verb {
	case "get":
		return c.print(c.svc.Event(ctx, id))
	case "update":
		return c.print(c.svc.UpdateEvent(ctx, id, p))
	case "delete":
		return c.print(c.svc.DeleteEvent(ctx, id))
	case "attendees":
		return c.print(c.svc.EventAttendees(ctx, id))
	case "tickets":
		return c.print(c.svc.EventTickets(ctx, id))
	default:
		return fmt.Errorf("unknown event verb %q", verb)
	}
}

func (c *command) user(ctx context.Context, verb string, args []string) error {
	var p ticketing.UserPayload
	flagSet := pflag.NewFlagSet("user "+verb, pflag.ContinueOnError)
	flagSet.StringVar(&p.Name, "name", "", "user name")
	flagSet.StringVar(&p.Email, "email", "", "email address")
	flagSet.StringVar(&p.Password, "password", "", "password")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	switch verb {
	case "list":
		return c.print(c.svc.AllUsers(ctx))
	case "create":
		return c.print(c.svc.CreateUser(ctx, p))
	}

	id, err := idArg(flagSet)
	if err != nil {
		return err
	}
	switch verb {
	case "get":
		return c.print(c.svc.User(ctx, id))
	case "update":
		return c.print(c.svc.UpdateUser(ctx, id, p))
	case "delete":
		return c.print(c.svc.DeleteUser(ctx, id))
	case "tickets":
		return c.print(c.svc.UserTickets(ctx, id))
	default:
		return fmt.Errorf("unknown user verb %q", verb)
	}
}

func (c *command) ticket(ctx context.Context, verb string, args []string) error {
	var p ticketing.TicketPayload
	flagSet := pflag.NewFlagSet("ticket "+verb, pflag.ContinueOnError)
	flagSet.Uint64Var(&p.EventID, "event", 0, "event id")
	flagSet.Uint64Var(&p.UserID, "user", 0, "user id")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	switch verb {
	case "list":
		return c.print(c.svc.AllTickets(ctx))
	case "create":
		return c.print(c.svc.CreateTicket(ctx, p))
	}

	id, err := idArg(flagSet)
	if err != nil {
		return err
	}
	switch verb {
	case "get":
		return c.print(c.svc.Ticket(ctx, id))
	case "update":
		return c.print(c.svc.UpdateTicket(ctx, id, p))
	case "delete":
		return c.print(c.svc.DeleteTicket(ctx, id))
	default:
		return fmt.Errorf("unknown ticket verb %q", verb)
	}
}

// associationReport is printed when ticket creation stored a ticket but
// could not link it, so the caller can repair or delete it.
type associationReport struct {
	Error      string           `json:"error"`
	Ticket     ticketing.Ticket `json:"ticket"`
	RolledBack bool             `json:"rolled_back"`
}

// print writes v as indented JSON, or returns err. A partially created
// ticket is written out before err is returned.
func (c *command) print(v any, err error) error {
	if err != nil {
		var assocErr *ticketing.AssociationError
		if errors.As(err, &assocErr) && assocErr.Ticket.ID != 0 {
			if encErr := c.encode(associationReport{
				Error:      assocErr.Error(),
				Ticket:     assocErr.Ticket,
				RolledBack: assocErr.RolledBack,
			}); encErr != nil {
				return errors.Join(err, encErr)
			}
		}
		return err
	}
	return c.encode(v)
}

func (c *command) encode(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func idArg(flagSet *pflag.FlagSet) (uint64, error) {
	if flagSet.NArg() != 1 {
		return 0, fmt.Errorf("%s: expected exactly one ID argument", flagSet.Name())
	}
	id, err := strconv.ParseUint(flagSet.Arg(0), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid ID %q", flagSet.Name(), flagSet.Arg(0))
	}
	return id, nil
}
