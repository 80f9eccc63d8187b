// ticket-auditor is a Lambda function subscribed to the event and user
// table streams. It reports records still referencing a removed event or
// user.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/jacentio/ticketer/internal/config"
	"github.com/jacentio/ticketer/internal/logger"
	"github.com/jacentio/ticketer/store"
	"github.com/jacentio/ticketer/stream"
	"github.com/jacentio/ticketer/ticketing"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	client, err := cfg.DynamoDB(context.Background())
	if err != nil {
		return err
	}

	storeCfg := cfg.Store()
	st := store.NewWithRegistry(client, storeCfg, ticketing.NewRegistry(storeCfg))
	handler := stream.NewHandler(st, st.Registry(), log)

	log.Info("auditor starting",
		"events", storeCfg.EventTable,
		"users", storeCfg.UserTable,
		"relationships", len(st.Registry().AllRelationships()),
	)
	lambda.Start(handler.HandleRemovals)
	return nil
}
