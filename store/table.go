package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/ticketer/internal/codec"
)

// Table is a durable id → record mapping for one record kind.
type Table[T any] struct {
	client  API
	name    string
	maxSize int
}

// NewTable returns the table called name, sharing the store's client and
// size bound.
func NewTable[T any](s *Store, name string) *Table[T] {
	return &Table[T]{
		client:  s.client,
		name:    name,
		maxSize: s.config.MaxRecordSize,
	}
}

// Name returns the DynamoDB table name.
func (t *Table[T]) Name() string {
	return t.name
}

// Get retrieves a record by id, returning ErrNotFound if it is missing.
func (t *Table[T]) Get(ctx context.Context, id uint64) (*Entry[T], error) {
	result, err := t.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(t.name),
		Key:            recordKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}
	return decodeEntry[T](t.name, result.Item)
}

// Create stores a new record at id with version 1.
func (t *Table[T]) Create(ctx context.Context, id uint64, value T) (*Entry[T], error) {
	item, err := t.item(id, 1, value)
	if err != nil {
		return nil, err
	}

	_, err = t.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(t.name),
		Item:                     item,
		ConditionExpression:      aws.String(NotExistsCondition()),
		ExpressionAttributeNames: NotExistsNames(),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}

	return &Entry[T]{ID: id, Version: 1, Value: value}, nil
}

// Update replaces the record at id, provided it is still at expectedVersion.
func (t *Table[T]) Update(ctx context.Context, id uint64, value T, expectedVersion int64) (*Entry[T], error) {
	item, err := t.item(id, expectedVersion+1, value)
	if err != nil {
		return nil, err
	}

	_, err = t.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(t.name),
		Item:                      item,
		ConditionExpression:       aws.String(VersionCondition()),
		ExpressionAttributeNames:  VersionNames(),
		ExpressionAttributeValues: VersionValues(expectedVersion),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return nil, ErrConcurrentModification
		}
		return nil, err
	}

	return &Entry[T]{ID: id, Version: expectedVersion + 1, Value: value}, nil
}

// Delete removes the record at id. It reports whether a record existed.
func (t *Table[T]) Delete(ctx context.Context, id uint64) (bool, error) {
	result, err := t.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(t.name),
		Key:          recordKey(id),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return false, err
	}
	return len(result.Attributes) > 0, nil
}

// All returns every record in the table, ordered by id.
func (t *Table[T]) All(ctx context.Context) ([]*Entry[T], error) {
	var entries []*Entry[T]
	paginator := dynamodb.NewScanPaginator(t.client, &dynamodb.ScanInput{
		TableName:      aws.String(t.name),
		ConsistentRead: aws.Bool(true),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range page.Items {
			entry, err := decodeEntry[T](t.name, raw)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

// item encodes value into the stored item layout, enforcing the size bound.
func (t *Table[T]) item(id uint64, version int64, value T) (map[string]types.AttributeValue, error) {
	body, err := codec.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode %s id:%d: %w", t.name, id, err)
	}
	if len(body) > t.maxSize {
		return nil, fmt.Errorf("%w: %s id:%d is %d bytes, limit %d", ErrRecordTooLarge, t.name, id, len(body), t.maxSize)
	}

	return map[string]types.AttributeValue{
		AttrID:      &types.AttributeValueMemberN{Value: strconv.FormatUint(id, 10)},
		AttrVersion: &types.AttributeValueMemberN{Value: strconv.FormatInt(version, 10)},
		AttrBody:    &types.AttributeValueMemberB{Value: body},
	}, nil
}

// decodeEntry converts a stored item into an Entry.
func decodeEntry[T any](table string, raw map[string]types.AttributeValue) (*Entry[T], error) {
	entry := &Entry[T]{}

	idAttr, ok := raw[AttrID].(*types.AttributeValueMemberN)
	if !ok {
		return nil, fmt.Errorf("decode %s: item has no numeric id", table)
	}
	id, err := strconv.ParseUint(idAttr.Value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode %s: id %q: %w", table, idAttr.Value, err)
	}
	entry.ID = id

	if v, ok := raw[AttrVersion].(*types.AttributeValueMemberN); ok {
		entry.Version, _ = strconv.ParseInt(v.Value, 10, 64)
	}

	body, ok := raw[AttrBody].(*types.AttributeValueMemberB)
	if !ok {
		return nil, fmt.Errorf("decode %s id:%d: item has no body", table, id)
	}
	if err := codec.Unmarshal(body.Value, &entry.Value); err != nil {
		return nil, fmt.Errorf("decode %s id:%d: %w", table, id, err)
	}

	return entry, nil
}
