package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// API is the subset of the DynamoDB client the store uses.
// *dynamodb.Client satisfies it.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Store provides DynamoDB operations for id-keyed records.
type Store struct {
	client   API
	config   Config
	registry *Registry
}

// New creates a new Store instance.
func New(client API, config Config) *Store {
	config.validate()
	return &Store{
		client: client,
		config: config,
	}
}

// NewWithRegistry creates a new Store instance with a relationship registry.
func NewWithRegistry(client API, config Config, registry *Registry) *Store {
	config.validate()
	return &Store{
		client:   client,
		config:   config,
		registry: registry,
	}
}

// Registry returns the relationship registry, or nil if not set.
func (s *Store) Registry() *Registry {
	return s.registry
}

// Config returns the validated configuration.
func (s *Store) Config() Config {
	return s.config
}

// Counter returns the shared id allocator.
func (s *Store) Counter() *Counter {
	return &Counter{
		client: s.client,
		table:  s.config.CounterTable,
		name:   s.config.CounterName,
	}
}

// Exists reports whether a record with id exists in table, without
// decoding its body.
func (s *Store) Exists(ctx context.Context, table string, id uint64) (bool, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:            aws.String(table),
		Key:                  recordKey(id),
		ProjectionExpression: aws.String("#id"),
		ExpressionAttributeNames: map[string]string{
			"#id": AttrID,
		},
	})
	if err != nil {
		return false, err
	}
	return result.Item != nil, nil
}

// Counter is a durable monotonic id allocator backed by a single
// DynamoDB item. The atomic ADD makes every returned value unique, even
// across processes.
type Counter struct {
	client API
	table  string
	name   string
}

// Next advances the counter and returns the new value. The first call on
// an empty table returns 1. On error no id has been issued.
func (c *Counter) Next(ctx context.Context) (uint64, error) {
	result, err := c.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(c.table),
		Key: map[string]types.AttributeValue{
			AttrCounterName: &types.AttributeValueMemberS{Value: c.name},
		},
		UpdateExpression: aws.String("ADD #value :one"),
		ExpressionAttributeNames: map[string]string{
			"#value": AttrCounterValue,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("advance counter %q: %w", c.name, err)
	}

	var value uint64
	attr, ok := result.Attributes[AttrCounterValue]
	if !ok {
		return 0, fmt.Errorf("advance counter %q: no value returned", c.name)
	}
	if err := attributevalue.Unmarshal(attr, &value); err != nil {
		return 0, fmt.Errorf("advance counter %q: %w", c.name, err)
	}
	if value == 0 {
		return 0, fmt.Errorf("advance counter %q: non-positive value", c.name)
	}
	return value, nil
}

// recordKey builds the primary key for a record id.
func recordKey(id uint64) PK {
	return PK{AttrID: &types.AttributeValueMemberN{Value: strconv.FormatUint(id, 10)}}
}
