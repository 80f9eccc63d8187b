//go:build e2e

// Package e2e contains end-to-end integration tests using real DynamoDB tables.
// Run with: go test -tags=e2e -v ./e2e/...
//
// Credentials come from the default AWS chain. Set DYNAMODB_ENDPOINT to run
// against DynamoDB Local.
package e2e

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"

	"github.com/jacentio/ticketer/internal/config"
	"github.com/jacentio/ticketer/store"
	"github.com/jacentio/ticketer/ticketing"
)

// Table names - unique per test run to avoid conflicts
const tablePrefix = "ticketer-e2e-test"

var (
	testID   string
	storeCfg store.Config

	ddbClient *dynamodb.Client
	testStore *store.Store
)

// --- Test Setup & Teardown ---

func TestMain(m *testing.M) {
	// Generate unique test ID
	testID = uuid.New().String()[:8]
	storeCfg = store.Config{
		EventTable:   fmt.Sprintf("%s-%s-events", tablePrefix, testID),
		UserTable:    fmt.Sprintf("%s-%s-users", tablePrefix, testID),
		TicketTable:  fmt.Sprintf("%s-%s-tickets", tablePrefix, testID),
		CounterTable: fmt.Sprintf("%s-%s-counters", tablePrefix, testID),
	}

	fmt.Printf("Test ID: %s\n", testID)

	ctx := context.Background()
	envCfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	ddbClient, err = envCfg.DynamoDB(ctx)
	if err != nil {
		fmt.Printf("Failed to create DynamoDB client: %v\n", err)
		os.Exit(1)
	}

	if err := createTables(ctx); err != nil {
		fmt.Printf("Failed to create tables: %v\n", err)
		os.Exit(1)
	}

	testStore = store.NewWithRegistry(ddbClient, storeCfg, ticketing.NewRegistry(storeCfg))

	code := m.Run()

	if err := deleteTables(ctx); err != nil {
		fmt.Printf("Failed to delete tables: %v\n", err)
	}

	os.Exit(code)
}

func tableNames() []string {
	return []string{storeCfg.EventTable, storeCfg.UserTable, storeCfg.TicketTable, storeCfg.CounterTable}
}

func createTables(ctx context.Context) error {
	fmt.Println("Creating test tables...")

	if err := store.Provision(ctx, ddbClient, storeCfg); err != nil {
		return err
	}

	// Wait for all tables to be active
	for _, tableName := range tableNames() {
		waiter := dynamodb.NewTableExistsWaiter(ddbClient)
		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(tableName),
		}, 2*time.Minute); err != nil {
			return fmt.Errorf("wait for table %s: %w", tableName, err)
		}
	}

	fmt.Println("All tables created and active")
	return nil
}

func deleteTables(ctx context.Context) error {
	fmt.Println("Deleting test tables...")

	for _, tableName := range tableNames() {
		_, err := ddbClient.DeleteTable(ctx, &dynamodb.DeleteTableInput{
			TableName: aws.String(tableName),
		})
		if err != nil {
			fmt.Printf("Warning: failed to delete table %s: %v\n", tableName, err)
		}
	}

	fmt.Println("Tables deleted")
	return nil
}

func newService(opts ticketing.Options) *ticketing.Service {
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return ticketing.New(testStore, opts)
}

// --- Service Tests ---

func TestTicketScenario(t *testing.T) {
	ctx := context.Background()
	svc := newService(ticketing.Options{})

	e, err := svc.CreateEvent(ctx, ticketing.EventPayload{Name: "Launch", Date: "2024-05-01"})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	u, err := svc.CreateUser(ctx, ticketing.UserPayload{Name: "alice", Email: "alice@x.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	tk, err := svc.CreateTicket(ctx, ticketing.TicketPayload{EventID: e.ID, UserID: u.ID})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}

	gotEvent, err := svc.Event(ctx, e.ID)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if !slices.Equal(gotEvent.AttendeeIDs, []uint64{u.ID}) {
		t.Errorf("expected attendees [%d], got %v", u.ID, gotEvent.AttendeeIDs)
	}
	gotUser, err := svc.User(ctx, u.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if !slices.Equal(gotUser.TicketIDs, []uint64{tk.ID}) {
		t.Errorf("expected user tickets [%d], got %v", tk.ID, gotUser.TicketIDs)
	}

	if _, err := svc.DeleteEvent(ctx, e.ID); err != nil {
		t.Fatalf("delete event: %v", err)
	}

	_, err = svc.UserTickets(ctx, u.ID)
	var nf *ticketing.NotFoundError
	if !errors.As(err, &nf) || nf.Kind != ticketing.KindEvent || nf.ID != e.ID {
		t.Errorf("expected NotFound naming event %d, got %v", e.ID, err)
	}
}

func TestCreateTicket_CompensatedOnMissingUser(t *testing.T) {
	ctx := context.Background()
	svc := newService(ticketing.Options{Compensate: true})

	e, err := svc.CreateEvent(ctx, ticketing.EventPayload{Name: "Compensated"})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	_, err = svc.CreateTicket(ctx, ticketing.TicketPayload{EventID: e.ID, UserID: 1 << 60})
	var assoc *ticketing.AssociationError
	if !errors.As(err, &assoc) {
		t.Fatalf("expected AssociationError, got %v", err)
	}
	if !assoc.RolledBack {
		t.Error("expected rollback")
	}

	gotEvent, err := svc.Event(ctx, e.ID)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if len(gotEvent.AttendeeIDs) != 0 {
		t.Errorf("expected attendee link to be undone, got %v", gotEvent.AttendeeIDs)
	}
	if _, err := svc.Ticket(ctx, assoc.Ticket.ID); !errors.Is(err, ticketing.ErrNotFound) {
		t.Errorf("expected ticket to be removed, got %v", err)
	}
}

func TestDeleteTicket_Idempotent(t *testing.T) {
	ctx := context.Background()
	svc := newService(ticketing.Options{})

	e, _ := svc.CreateEvent(ctx, ticketing.EventPayload{Name: "Delete"})
	u, _ := svc.CreateUser(ctx, ticketing.UserPayload{Name: "bob"})
	tk, err := svc.CreateTicket(ctx, ticketing.TicketPayload{EventID: e.ID, UserID: u.ID})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}

	if _, err := svc.DeleteTicket(ctx, tk.ID); err != nil {
		t.Fatalf("delete ticket: %v", err)
	}
	if _, err := svc.DeleteTicket(ctx, tk.ID); !errors.Is(err, ticketing.ErrNotFound) {
		t.Errorf("expected NotFound on second delete, got %v", err)
	}
}

// --- Store Tests ---

func TestCounter_ConcurrentUnique(t *testing.T) {
	ctx := context.Background()
	counter := testStore.Counter()

	const n = 25
	ids := make([]uint64, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := counter.Next(ctx)
			if err != nil {
				t.Errorf("next: %v", err)
				return
			}
			ids[i] = id
		}()
	}
	wg.Wait()

	slices.Sort(ids)
	if len(slices.Compact(ids)) != n {
		t.Errorf("expected %d unique ids, got %v", n, ids)
	}
}

func TestUpdate_OptimisticLockFailure(t *testing.T) {
	ctx := context.Background()
	table := store.NewTable[ticketing.User](testStore, storeCfg.UserTable)

	id, err := testStore.Counter().Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	entry, err := table.Create(ctx, id, ticketing.User{ID: id, Name: "carol"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := table.Update(ctx, id, ticketing.User{ID: id, Name: "carol2"}, entry.Version); err != nil {
		t.Fatalf("first update: %v", err)
	}
	_, err = table.Update(ctx, id, ticketing.User{ID: id, Name: "carol3"}, entry.Version)
	if !errors.Is(err, store.ErrConcurrentModification) {
		t.Errorf("expected ErrConcurrentModification, got %v", err)
	}
}
