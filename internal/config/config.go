// Package config provides environment configuration management.
package config

import (
	"github.com/caarlos0/env/v11"

	"github.com/jacentio/ticketer/store"
)

// Config holds all environment configuration for the binaries.
type Config struct {
	EventTable    string `env:"EVENT_TABLE"     envDefault:"ticketer_events"`
	UserTable     string `env:"USER_TABLE"      envDefault:"ticketer_users"`
	TicketTable   string `env:"TICKET_TABLE"    envDefault:"ticketer_tickets"`
	CounterTable  string `env:"COUNTER_TABLE"   envDefault:"ticketer_counters"`
	CounterName   string `env:"ID_COUNTER_NAME" envDefault:"ids"`
	MaxRecordSize int    `env:"MAX_RECORD_SIZE" envDefault:"1024"`

	// DynamoDBEndpoint overrides the service endpoint (DynamoDB Local).
	DynamoDBEndpoint string `env:"DYNAMODB_ENDPOINT"`

	Compensate            bool `env:"COMPENSATE_ON_FAILURE"   envDefault:"false"`
	TolerateMissingOwners bool `env:"TOLERATE_MISSING_OWNERS" envDefault:"false"`

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// LoadConfig parses environment variables into Config struct.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Store returns the store settings.
func (c *Config) Store() store.Config {
	return store.Config{
		EventTable:    c.EventTable,
		UserTable:     c.UserTable,
		TicketTable:   c.TicketTable,
		CounterTable:  c.CounterTable,
		CounterName:   c.CounterName,
		MaxRecordSize: c.MaxRecordSize,
	}
}
