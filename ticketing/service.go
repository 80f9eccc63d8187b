package ticketing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jacentio/ticketer/internal/clock"
	"github.com/jacentio/ticketer/internal/metrics"
	"github.com/jacentio/ticketer/store"
)

// Options configures a Service.
type Options struct {
	// Clock stamps created_at and updated_at. Default: system clock.
	Clock clock.Clock

	// Logger receives unit-of-work logs. Default: slog.Default().
	Logger *slog.Logger

	// Compensate undoes the committed steps of a ticket operation that
	// fails partway. When false, partial results stay committed.
	Compensate bool

	// TolerateMissingOwners lets DeleteTicket proceed when the ticket's
	// event or user no longer exists. When false, the delete fails with
	// NotFound and the ticket is kept.
	TolerateMissingOwners bool
}

// Service exposes the Event, User and Ticket operations.
//
// Operations on one Service run one at a time, each to completion.
// Records written by other processes are guarded by the store's
// optimistic versions instead.
type Service struct {
	mu        sync.Mutex
	tables    *Tables
	relations *Relations
	clock     clock.Clock
	logger    *slog.Logger
	opts      Options
}

// New creates a Service over the tables of s.
func New(s *store.Store, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = clock.NewSystem()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	tables := NewTables(s)
	return &Service{
		tables:    tables,
		relations: NewRelations(tables, opts.Clock),
		clock:     opts.Clock,
		logger:    opts.Logger,
		opts:      opts,
	}
}

// Relations returns the relationship maintainer the service uses.
// Calls made through it are not serialized with service operations.
func (s *Service) Relations() *Relations {
	return s.relations
}

// enter serializes an operation and returns the func that ends it,
// recording its outcome. Use as: defer s.enter(kind, op)(&err).
func (s *Service) enter(kind Kind, op string) func(*error) {
	s.mu.Lock()
	start := time.Now()

	return func(errp *error) {
		s.mu.Unlock()

		outcome := metrics.OutcomeOK
		if errp != nil && *errp != nil {
			outcome = metrics.OutcomeError
		}
		metrics.Operations.WithLabelValues(string(kind), op, outcome).Inc()
		metrics.OperationDuration.WithLabelValues(string(kind), op).Observe(time.Since(start).Seconds())
	}
}

func (s *Service) now() uint64 {
	return clock.Nanos(s.clock.Now())
}

// allocate issues the next id shared by every record kind.
func (s *Service) allocate(ctx context.Context) (uint64, error) {
	id, err := s.tables.IDs.Next(ctx)
	if err != nil {
		return 0, &NotCreatedError{Msg: "Failed to increment ID counter", Err: err}
	}
	return id, nil
}

func values[T any](entries []*store.Entry[T]) []*T {
	out := make([]*T, 0, len(entries))
	for _, e := range entries {
		value := e.Value
		out = append(out, &value)
	}
	return out
}
