// Package stream provides a DynamoDB Streams handler that audits record
// removals for references left behind.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/ticketer/internal/codec"
	"github.com/jacentio/ticketer/internal/metrics"
	"github.com/jacentio/ticketer/store"
)

// Checker reports whether a record exists. *store.Store implements it.
type Checker interface {
	Exists(ctx context.Context, table string, id uint64) (bool, error)
}

// Handler processes DynamoDB stream events for removed records.
//
// Deleting an event or user does not cascade, so records named in the
// removed record's relationship lists may still point back at it. The
// handler reports each one; it never writes.
type Handler struct {
	checker  Checker
	registry *store.Registry
	logger   *slog.Logger
}

// NewHandler creates a new stream handler.
func NewHandler(checker Checker, registry *store.Registry, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = store.NewRegistry()
	}
	return &Handler{
		checker:  checker,
		registry: registry,
		logger:   logger,
	}
}

// Finding is one record still referencing a removed owner.
type Finding struct {
	OwnerType   string
	OwnerID     uint64
	ListAttr    string
	TargetType  string
	TargetTable string
	TargetID    uint64
}

// HandleRemovals audits every REMOVE record in event.
// This function is designed to be used as an AWS Lambda handler.
func (h *Handler) HandleRemovals(ctx context.Context, event events.DynamoDBEvent) error {
	for i := range event.Records {
		record := &event.Records[i]
		if _, err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process record",
				"eventID", record.EventID,
				"error", err,
			)
			return err // Will retry, eventually DLQ
		}
	}
	return nil
}

// processRecord audits a single stream record and returns what it found.
func (h *Handler) processRecord(ctx context.Context, record *events.DynamoDBEventRecord) ([]Finding, error) {
	if record.EventName != "REMOVE" {
		return nil, nil
	}

	table := tableFromARN(record.EventSourceArn)
	ownerType, ok := h.registry.OwnerTypeForTable(table)
	if !ok {
		return nil, nil
	}

	ownerID, ok := getNumberAttr(record.Change.Keys, store.AttrID)
	if !ok {
		ownerID, _ = getNumberAttr(record.Change.OldImage, store.AttrID)
	}

	body := getBinaryAttr(record.Change.OldImage, store.AttrBody)
	if body == nil {
		h.logger.Warn("removed record has no old image, skipping",
			"table", table,
			"id", ownerID,
		)
		return nil, nil
	}

	var fields map[string]any
	if err := codec.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("decode %s id:%d: %w", ownerType, ownerID, err)
	}

	var findings []Finding
	for _, rel := range h.registry.ListsOf(ownerType) {
		for _, targetID := range idList(fields[rel.ListAttr]) {
			exists, err := h.checker.Exists(ctx, rel.TargetTable, targetID)
			if err != nil {
				return findings, fmt.Errorf("check %s id:%d: %w", rel.TargetType, targetID, err)
			}
			if !exists {
				continue
			}

			h.logger.Warn("dangling reference",
				"owner", ownerType,
				"ownerID", ownerID,
				"list", rel.ListAttr,
				"target", rel.TargetType,
				"targetID", targetID,
			)
			metrics.DanglingReferences.WithLabelValues(ownerType, rel.TargetType).Inc()
			findings = append(findings, Finding{
				OwnerType:   ownerType,
				OwnerID:     ownerID,
				ListAttr:    rel.ListAttr,
				TargetType:  rel.TargetType,
				TargetTable: rel.TargetTable,
				TargetID:    targetID,
			})
		}
	}

	h.logger.Info("removal audited",
		"owner", ownerType,
		"ownerID", ownerID,
		"dangling", len(findings),
	)
	return findings, nil
}

// tableFromARN extracts the table name from a stream ARN of the form
// arn:aws:dynamodb:<region>:<account>:table/<name>/stream/<label>.
func tableFromARN(arn string) string {
	_, rest, ok := strings.Cut(arn, ":table/")
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(rest, "/")
	return name
}

// idList converts a generically decoded CBOR array into ids. Entries that
// are not non-negative integers are skipped.
func idList(v any) []uint64 {
	items, ok := v.([]any)
	if !ok {
		return nil
	}

	ids := make([]uint64, 0, len(items))
	for _, item := range items {
		switch n := item.(type) {
		case uint64:
			ids = append(ids, n)
		case int64:
			if n >= 0 {
				ids = append(ids, uint64(n))
			}
		}
	}
	return ids
}

// getNumberAttr extracts an unsigned number attribute from a DynamoDB stream image.
func getNumberAttr(image map[string]events.DynamoDBAttributeValue, key string) (uint64, bool) {
	if v, ok := image[key]; ok {
		if v.DataType() == events.DataTypeNumber {
			n, err := strconv.ParseUint(v.Number(), 10, 64)
			return n, err == nil
		}
	}
	return 0, false
}

// getBinaryAttr extracts a binary attribute from a DynamoDB stream image.
func getBinaryAttr(image map[string]events.DynamoDBAttributeValue, key string) []byte {
	if v, ok := image[key]; ok {
		if v.DataType() == events.DataTypeBinary {
			return v.Binary()
		}
	}
	return nil
}
