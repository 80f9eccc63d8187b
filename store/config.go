package store

const (
	// DefaultMaxRecordSize is the encoded body bound used when none is configured.
	DefaultMaxRecordSize = 1024

	minRecordSize = 64

	// maxRecordSize keeps bodies under the 400KB DynamoDB item limit.
	maxRecordSize = 400 * 1024
)

// Config holds configuration for the Store.
type Config struct {
	// EventTable is the name of the events table.
	// Default: "ticketer_events"
	EventTable string

	// UserTable is the name of the users table.
	// Default: "ticketer_users"
	UserTable string

	// TicketTable is the name of the tickets table.
	// Default: "ticketer_tickets"
	TicketTable string

	// CounterTable holds the id counter item.
	// Default: "ticketer_counters"
	CounterTable string

	// CounterName is the key of the id counter item within CounterTable.
	// Default: "ids"
	CounterName string

	// MaxRecordSize bounds the CBOR-encoded body of every record, in bytes.
	// Text fields must be sized so records stay under it.
	// Default: 1024
	// Range: 64 to 409600
	MaxRecordSize int
}

// DefaultConfig returns the reference deployment settings.
func DefaultConfig() Config {
	return Config{
		EventTable:    "ticketer_events",
		UserTable:     "ticketer_users",
		TicketTable:   "ticketer_tickets",
		CounterTable:  "ticketer_counters",
		CounterName:   "ids",
		MaxRecordSize: DefaultMaxRecordSize,
	}
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	d := DefaultConfig()
	if c.EventTable == "" {
		c.EventTable = d.EventTable
	}
	if c.UserTable == "" {
		c.UserTable = d.UserTable
	}
	if c.TicketTable == "" {
		c.TicketTable = d.TicketTable
	}
	if c.CounterTable == "" {
		c.CounterTable = d.CounterTable
	}
	if c.CounterName == "" {
		c.CounterName = d.CounterName
	}
	if c.MaxRecordSize == 0 {
		c.MaxRecordSize = d.MaxRecordSize
	}
	if c.MaxRecordSize < minRecordSize {
		c.MaxRecordSize = minRecordSize
	}
	if c.MaxRecordSize > maxRecordSize {
		c.MaxRecordSize = maxRecordSize
	}
}
