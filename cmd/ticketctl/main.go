// ticketctl manages events, users and tickets stored in DynamoDB.
//
// Usage:
//
//	ticketctl [global flags] init
//	ticketctl [global flags] event  list|get|create|update|delete|attendees|tickets [ID] [flags]
//	ticketctl [global flags] user   list|get|create|update|delete|tickets [ID] [flags]
//	ticketctl [global flags] ticket list|get|create|update|delete [ID] [flags]
//
// Table names and behaviour switches come from the environment (see
// internal/config); global flags override the behaviour switches.
// Results are written to stdout as JSON.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/pflag"

	"github.com/jacentio/ticketer/internal/config"
	"github.com/jacentio/ticketer/internal/logger"
	"github.com/jacentio/ticketer/store"
	"github.com/jacentio/ticketer/ticketing"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	flagSet := pflag.NewFlagSet("ticketctl", pflag.ContinueOnError)
	flagSet.SetInterspersed(false)
	flagSet.BoolVar(&cfg.Compensate, "compensate", cfg.Compensate, "undo committed steps when a ticket operation fails partway")
	flagSet.BoolVar(&cfg.TolerateMissingOwners, "tolerate-missing-owners", cfg.TolerateMissingOwners, "let ticket deletion proceed when its event or user is gone")
	flagSet.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	flagSet.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: text or json")
	flagSet.StringVar(&cfg.DynamoDBEndpoint, "endpoint", cfg.DynamoDBEndpoint, "DynamoDB endpoint override")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printUsage(flagSet)
			return nil
		}
		return err
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		printUsage(flagSet)
		return errors.New("missing command")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	client, err := cfg.DynamoDB(ctx)
	if err != nil {
		return err
	}
	storeCfg := cfg.Store()

	if rest[0] == "init" {
		if err := store.Provision(ctx, client, storeCfg); err != nil {
			return err
		}
		log.Info("tables provisioned",
			"events", storeCfg.EventTable,
			"users", storeCfg.UserTable,
			"tickets", storeCfg.TicketTable,
			"counters", storeCfg.CounterTable,
		)
		return nil
	}

	st := store.NewWithRegistry(client, storeCfg, ticketing.NewRegistry(storeCfg))
	svc := ticketing.New(st, ticketing.Options{
		Logger:                log,
		Compensate:            cfg.Compensate,
		TolerateMissingOwners: cfg.TolerateMissingOwners,
	})

	cmd := &command{svc: svc, out: os.Stdout}
	return cmd.dispatch(ctx, rest)
}

func printUsage(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `ticketctl manages events, users and tickets.

Usage:
  ticketctl [global flags] init
  ticketctl [global flags] event  list|get|create|update|delete|attendees|tickets [ID] [flags]
  ticketctl [global flags] user   list|get|create|update|delete|tickets [ID] [flags]
  ticketctl [global flags] ticket list|get|create|update|delete [ID] [flags]

Global flags:
%s`, flagSet.FlagUsages())
}
