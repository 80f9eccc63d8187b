package testutil

import (
	"context"
	"testing"

	"github.com/jacentio/ticketer/store"
)

// NewProvisionedFake returns a fake with every table in cfg created.
func NewProvisionedFake(tb testing.TB, cfg store.Config) *FakeDynamo {
	tb.Helper()

	fake := NewFakeDynamo()
	if err := store.Provision(context.Background(), fake, cfg); err != nil {
		tb.Fatalf("provision fake tables: %v", err)
	}
	return fake
}
