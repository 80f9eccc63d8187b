package ticketing

// Kind names a record kind.
type Kind string

const (
	KindEvent  Kind = "event"
	KindUser   Kind = "user"
	KindTicket Kind = "ticket"
)

// Event is a scheduled occurrence users hold tickets for.
type Event struct {
	ID          uint64   `cbor:"id" json:"id"`
	Name        string   `cbor:"name" json:"name"`
	Description string   `cbor:"description" json:"description"`
	Date        string   `cbor:"date" json:"date"`
	StartTime   string   `cbor:"start_time" json:"start_time"`
	Location    string   `cbor:"location" json:"location"`
	AttendeeIDs []uint64 `cbor:"attendee_ids" json:"attendee_ids"`
	TicketIDs   []uint64 `cbor:"ticket_ids" json:"ticket_ids"`
	CreatedAt   uint64   `cbor:"created_at" json:"created_at"`
	UpdatedAt   *uint64  `cbor:"updated_at" json:"updated_at,omitempty"`
}

// User holds tickets. Password is stored as given.
type User struct {
	ID       uint64 `cbor:"id" json:"id"`
	Name     string `cbor:"name" json:"name"`
	Email    string `cbor:"email" json:"email"`
	Password string `cbor:"password" json:"password"`
	// EventIDs is carried for record compatibility and never populated.
	EventIDs  []uint64 `cbor:"event_ids" json:"event_ids"`
	TicketIDs []uint64 `cbor:"ticket_ids" json:"ticket_ids"`
	CreatedAt uint64   `cbor:"created_at" json:"created_at"`
	UpdatedAt *uint64  `cbor:"updated_at" json:"updated_at,omitempty"`
}

// Ticket admits one user to one event.
type Ticket struct {
	ID        uint64  `cbor:"id" json:"id"`
	EventID   uint64  `cbor:"event_id" json:"event_id"`
	UserID    uint64  `cbor:"user_id" json:"user_id"`
	CreatedAt uint64  `cbor:"created_at" json:"created_at"`
	UpdatedAt *uint64 `cbor:"updated_at" json:"updated_at,omitempty"`
}

// EventPayload carries the caller-settable fields of an Event.
type EventPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	Location    string `json:"location"`
}

// UserPayload carries the caller-settable fields of a User.
type UserPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TicketPayload carries the caller-settable fields of a Ticket.
type TicketPayload struct {
	EventID uint64 `json:"event_id"`
	UserID  uint64 `json:"user_id"`
}
