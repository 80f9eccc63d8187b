package store

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// PK represents a DynamoDB primary key.
type PK map[string]types.AttributeValue

// Attribute names of the stored item layout.
const (
	// AttrID is the numeric partition key of record tables.
	AttrID = "id"

	// AttrVersion is the optimistic lock version, starting at 1.
	AttrVersion = "version"

	// AttrBody holds the CBOR-encoded record.
	AttrBody = "body"

	// AttrCounterName is the string partition key of the counter table.
	AttrCounterName = "name"

	// AttrCounterValue is the current value of a counter item.
	AttrCounterValue = "value"
)

// Entry is a decoded record together with its storage metadata.
type Entry[T any] struct {
	// ID is the record's key.
	ID uint64

	// Version is the optimistic lock version the record was read at.
	Version int64

	// Value is the decoded record. Every read decodes a fresh copy.
	Value T
}
