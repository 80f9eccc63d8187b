// Package testutil provides an in-memory DynamoDB stand-in for tests.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Operation names used for fault injection and call counting.
const (
	OpGet    = "GetItem"
	OpPut    = "PutItem"
	OpDelete = "DeleteItem"
	OpUpdate = "UpdateItem"
	OpScan   = "Scan"
)

type item = map[string]types.AttributeValue

type fakeTable struct {
	hashKey string
	items   map[string]item
}

type fault struct {
	err  error
	once bool
}

// FakeDynamo is an in-memory implementation of the DynamoDB calls the
// store makes. It understands the expression forms the store issues:
// conditions built from attribute_exists, attribute_not_exists and
// equality joined by AND, and update expressions made of a single ADD or
// SET clause. Tables are created with CreateTable (so store.Provision can
// target a fake) and are keyed by their hash key only.
//
// FakeDynamo is safe for concurrent use.
type FakeDynamo struct {
	mu     sync.Mutex
	tables map[string]*fakeTable
	faults map[string]fault
	calls  map[string]int
}

// NewFakeDynamo returns an empty fake with no tables.
func NewFakeDynamo() *FakeDynamo {
	return &FakeDynamo{
		tables: make(map[string]*fakeTable),
		faults: make(map[string]fault),
		calls:  make(map[string]int),
	}
}

// FailNext makes the next op against table return err.
func (f *FakeDynamo) FailNext(table, op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults[table+"/"+op] = fault{err: err, once: true}
}

// FailAlways makes every op against table return err until ClearFaults.
func (f *FakeDynamo) FailAlways(table, op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults[table+"/"+op] = fault{err: err}
}

// ClearFaults removes all injected failures.
func (f *FakeDynamo) ClearFaults() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults = make(map[string]fault)
}

// Calls returns how many times op was invoked against table, including
// calls that failed.
func (f *FakeDynamo) Calls(table, op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[table+"/"+op]
}

// Len returns the number of items stored in table.
func (f *FakeDynamo) Len(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tables[table]; ok {
		return len(t.items)
	}
	return 0
}

// CreateTable registers a table using the first HASH element of the key schema.
func (f *FakeDynamo) CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := aws.ToString(params.TableName)
	if _, ok := f.tables[name]; ok {
		return nil, &types.ResourceInUseException{Message: aws.String("Table already exists: " + name)}
	}

	var hashKey string
	for _, el := range params.KeySchema {
		if el.KeyType == types.KeyTypeHash {
			hashKey = aws.ToString(el.AttributeName)
		}
	}
	if hashKey == "" {
		return nil, fmt.Errorf("fake: table %s has no hash key", name)
	}

	f.tables[name] = &fakeTable{hashKey: hashKey, items: make(map[string]item)}
	return &dynamodb.CreateTableOutput{
		TableDescription: &types.TableDescription{TableName: aws.String(name)},
	}, nil
}

// GetItem implements store.API.
func (f *FakeDynamo) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, err := f.begin(aws.ToString(params.TableName), OpGet)
	if err != nil {
		return nil, err
	}
	key, err := keyString(t.hashKey, params.Key)
	if err != nil {
		return nil, err
	}

	existing, ok := t.items[key]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: copyItem(existing)}, nil
}

// PutItem implements store.API.
func (f *FakeDynamo) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, err := f.begin(aws.ToString(params.TableName), OpPut)
	if err != nil {
		return nil, err
	}
	key, err := keyString(t.hashKey, params.Item)
	if err != nil {
		return nil, err
	}

	existing := t.items[key]
	if err := checkCondition(aws.ToString(params.ConditionExpression), existing, params.ExpressionAttributeNames, params.ExpressionAttributeValues); err != nil {
		return nil, err
	}

	t.items[key] = copyItem(params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

// DeleteItem implements store.API.
func (f *FakeDynamo) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, err := f.begin(aws.ToString(params.TableName), OpDelete)
	if err != nil {
		return nil, err
	}
	key, err := keyString(t.hashKey, params.Key)
	if err != nil {
		return nil, err
	}

	existing, ok := t.items[key]
	if err := checkCondition(aws.ToString(params.ConditionExpression), existing, params.ExpressionAttributeNames, params.ExpressionAttributeValues); err != nil {
		return nil, err
	}
	delete(t.items, key)

	out := &dynamodb.DeleteItemOutput{}
	if ok && params.ReturnValues == types.ReturnValueAllOld {
		out.Attributes = existing
	}
	return out, nil
}

// UpdateItem implements store.API for "ADD #n :v" and "SET #n = :v".
func (f *FakeDynamo) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, err := f.begin(aws.ToString(params.TableName), OpUpdate)
	if err != nil {
		return nil, err
	}
	key, err := keyString(t.hashKey, params.Key)
	if err != nil {
		return nil, err
	}

	existing := t.items[key]
	if err := checkCondition(aws.ToString(params.ConditionExpression), existing, params.ExpressionAttributeNames, params.ExpressionAttributeValues); err != nil {
		return nil, err
	}

	updated := copyItem(existing)
	if updated == nil {
		updated = copyItem(params.Key)
	}

	fields := strings.Fields(aws.ToString(params.UpdateExpression))
	var attr string
	switch {
	case len(fields) == 3 && fields[0] == "ADD":
		attr = resolveName(fields[1], params.ExpressionAttributeNames)
		delta, ok := params.ExpressionAttributeValues[fields[2]].(*types.AttributeValueMemberN)
		if !ok {
			return nil, fmt.Errorf("fake: ADD needs a numeric value, got %q", fields[2])
		}
		sum, err := addNumbers(updated[attr], delta.Value)
		if err != nil {
			return nil, err
		}
		updated[attr] = &types.AttributeValueMemberN{Value: sum}
	case len(fields) == 4 && fields[0] == "SET" && fields[2] == "=":
		attr = resolveName(fields[1], params.ExpressionAttributeNames)
		value, ok := params.ExpressionAttributeValues[fields[3]]
		if !ok {
			return nil, fmt.Errorf("fake: missing value %q", fields[3])
		}
		updated[attr] = value
	default:
		return nil, fmt.Errorf("fake: unsupported update expression %q", aws.ToString(params.UpdateExpression))
	}

	t.items[key] = updated

	out := &dynamodb.UpdateItemOutput{}
	switch params.ReturnValues {
	case types.ReturnValueUpdatedNew:
		out.Attributes = item{attr: updated[attr]}
	case types.ReturnValueAllNew:
		out.Attributes = copyItem(updated)
	}
	return out, nil
}

// Scan implements store.API. Items are returned in a single page in key order.
func (f *FakeDynamo) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, err := f.begin(aws.ToString(params.TableName), OpScan)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(t.items))
	for k := range t.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := &dynamodb.ScanOutput{}
	for _, k := range keys {
		out.Items = append(out.Items, copyItem(t.items[k]))
	}
	out.Count = int32(len(out.Items))
	out.ScannedCount = out.Count
	return out, nil
}

// begin records the call, applies injected faults and resolves the table.
// Callers hold f.mu.
func (f *FakeDynamo) begin(table, op string) (*fakeTable, error) {
	id := table + "/" + op
	f.calls[id]++

	if flt, ok := f.faults[id]; ok {
		if flt.once {
			delete(f.faults, id)
		}
		return nil, flt.err
	}

	t, ok := f.tables[table]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("Requested resource not found: " + table)}
	}
	return t, nil
}

func keyString(hashKey string, attrs item) (string, error) {
	switch v := attrs[hashKey].(type) {
	case *types.AttributeValueMemberS:
		return "S:" + v.Value, nil
	case *types.AttributeValueMemberN:
		// Zero-pad so lexical order matches numeric order for scans.
		n, err := strconv.ParseUint(v.Value, 10, 64)
		if err != nil {
			return "N:" + v.Value, nil
		}
		return fmt.Sprintf("N:%020d", n), nil
	default:
		return "", fmt.Errorf("fake: key attribute %q missing or unsupported", hashKey)
	}
}

func checkCondition(expr string, existing item, names map[string]string, values map[string]types.AttributeValue) error {
	if expr == "" {
		return nil
	}

	for _, clause := range strings.Split(expr, " AND ") {
		clause = strings.TrimSpace(clause)
		ok, err := evalClause(clause, existing, names, values)
		if err != nil {
			return err
		}
		if !ok {
			return &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
		}
	}
	return nil
}

func evalClause(clause string, existing item, names map[string]string, values map[string]types.AttributeValue) (bool, error) {
	if arg, ok := unwrapCall(clause, "attribute_not_exists"); ok {
		_, present := existing[resolveName(arg, names)]
		return !present, nil
	}
	if arg, ok := unwrapCall(clause, "attribute_exists"); ok {
		_, present := existing[resolveName(arg, names)]
		return present, nil
	}

	parts := strings.Split(clause, " = ")
	if len(parts) != 2 {
		return false, fmt.Errorf("fake: unsupported condition %q", clause)
	}
	want, ok := values[strings.TrimSpace(parts[1])]
	if !ok {
		return false, fmt.Errorf("fake: missing value %q", parts[1])
	}
	have, present := existing[resolveName(strings.TrimSpace(parts[0]), names)]
	if !present {
		return false, nil
	}
	return attrEqual(have, want), nil
}

func unwrapCall(clause, fn string) (string, bool) {
	if strings.HasPrefix(clause, fn+"(") && strings.HasSuffix(clause, ")") {
		return clause[len(fn)+1 : len(clause)-1], true
	}
	return "", false
}

func resolveName(token string, names map[string]string) string {
	if strings.HasPrefix(token, "#") {
		if name, ok := names[token]; ok {
			return name
		}
	}
	return token
}

func attrEqual(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberB:
		bv, ok := b.(*types.AttributeValueMemberB)
		return ok && bytes.Equal(av.Value, bv.Value)
	}
	return false
}

func addNumbers(current types.AttributeValue, delta string) (string, error) {
	d, err := strconv.ParseInt(delta, 10, 64)
	if err != nil {
		return "", fmt.Errorf("fake: delta %q: %w", delta, err)
	}
	if current == nil {
		return strconv.FormatInt(d, 10), nil
	}
	n, ok := current.(*types.AttributeValueMemberN)
	if !ok {
		return "", fmt.Errorf("fake: ADD target is not a number")
	}
	c, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return "", fmt.Errorf("fake: current %q: %w", n.Value, err)
	}
	return strconv.FormatInt(c+d, 10), nil
}

func copyItem(src item) item {
	if src == nil {
		return nil
	}
	dst := make(item, len(src))
	for k, v := range src {
		if b, ok := v.(*types.AttributeValueMemberB); ok {
			dst[k] = &types.AttributeValueMemberB{Value: bytes.Clone(b.Value)}
			continue
		}
		dst[k] = v
	}
	return dst
}
