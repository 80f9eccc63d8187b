package ticketing

import (
	"errors"
	"fmt"

	"github.com/jacentio/ticketer/store"
)

var (
	// ErrNotFound matches every NotFoundError.
	ErrNotFound = errors.New("ticketer: referenced record does not exist")

	// ErrNotCreated matches every NotCreatedError.
	ErrNotCreated = errors.New("ticketer: identifier could not be allocated")
)

// NotFoundError reports an id that does not resolve in its table.
type NotFoundError struct {
	Kind Kind
	ID   uint64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s id:%d does not exist", e.Kind, e.ID)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NotCreatedError reports that the id counter could not be advanced.
// No id was issued.
type NotCreatedError struct {
	Msg string
	Err error
}

func (e *NotCreatedError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

// Is reports whether target is ErrNotCreated.
func (e *NotCreatedError) Is(target error) bool {
	return target == ErrNotCreated
}

func (e *NotCreatedError) Unwrap() error {
	return e.Err
}

// AssociationError is returned by ticket creation when a step after id
// allocation failed. Ticket is the ticket as it was persisted (zero when
// allocation itself failed). Unless RolledBack is set, the ticket and any
// links made before the failure are still committed, and the caller
// decides whether to retry the missing link or delete the ticket.
type AssociationError struct {
	Msg        string
	Ticket     Ticket
	RolledBack bool
	Err        error
}

func (e *AssociationError) Error() string {
	return e.Msg
}

func (e *AssociationError) Unwrap() error {
	return e.Err
}

// lookupError converts a store miss into a NotFoundError.
func lookupError(kind Kind, id uint64, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return &NotFoundError{Kind: kind, ID: id}
	}
	return fmt.Errorf("load %s id:%d: %w", kind, id, err)
}
