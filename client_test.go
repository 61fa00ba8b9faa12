package dynadoc

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/slackmgr/dynadoc/attr"
)

// ==================== Connect Tests ====================

func TestConnect_Success(t *testing.T) {
	t.Parallel()
	mock := &mockAPI{}
	cfg := aws.Config{}
	client := New(&cfg, WithAPI(mock))

	err := client.Connect(context.Background())
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if client.client != mock {
		t.Error("expected injected API to be used")
	}
}

func TestConnect_InvalidOptions(t *testing.T) {
	t.Parallel()
	cfg := aws.Config{}
	client := New(&cfg, WithAPI(&mockAPI{}), WithBatchWriteSize(26))

	err := client.Connect(context.Background())
	if err == nil {
		t.Fatal("expected error for invalid options")
	}
	if !strings.Contains(err.Error(), "invalid DynamoDB options") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestConnect_BuildsSDKClient(t *testing.T) {
	t.Parallel()
	cfg := aws.Config{Region: "eu-west-1"}
	client := New(&cfg, WithEndpoint("http://localhost:8000"), WithMaxRetryAttempts(5))

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, ok := client.client.(*dynamodb.Client); !ok {
		t.Errorf("expected *dynamodb.Client, got %T", client.client)
	}
}

func TestOperations_NotConnected(t *testing.T) {
	t.Parallel()
	client := New(&aws.Config{}, WithAPI(&mockAPI{}))

	_, _, err := client.Get(context.Background(), "docs", "a")
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}

	_, err = client.CreateItems(context.Background(), "docs", []attr.Document{{}})
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}

func TestConnect_Metrics(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	mock := &mockAPI{
		getItemFunc: func(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			return nil, errors.New("boom")
		},
	}

	first := newTestClient(mock, WithMetricsRegisterer(reg))
	second := New(&aws.Config{}, WithAPI(mock), WithMetricsRegisterer(reg))
	if err := second.Connect(context.Background()); err != nil {
		t.Fatalf("expected second client to reuse collectors, got %v", err)
	}

	_, _, _ = first.Get(context.Background(), "docs", "a")
	_, _, _ = second.Get(context.Background(), "docs", "b")
	_, _, _ = second.Get(context.Background(), "", "b")

	if got := testutil.ToFloat64(first.metrics.operations.WithLabelValues("docs", opGet, outcomeError)); got != 2 {
		t.Errorf("expected 2 failed gets, got %v", got)
	}
	if got := testutil.ToFloat64(first.metrics.operations.WithLabelValues("", opGet, outcomeError)); got != 1 {
		t.Errorf("expected 1 failed get without table, got %v", got)
	}
	if got := testutil.CollectAndCount(first.metrics.duration); got != 2 {
		t.Errorf("expected 2 duration series, got %d", got)
	}
}

// ==================== Get Tests ====================

func TestGet_Success(t *testing.T) {
	t.Parallel()
	mock := &mockAPI{
		getItemFunc: func(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			if aws.ToString(params.TableName) != "docs" {
				t.Errorf("expected table docs, got %s", aws.ToString(params.TableName))
			}
			if !reflect.DeepEqual(params.Key, idItem("a1")) {
				t.Errorf("unexpected key %v", params.Key)
			}
			return &dynamodb.GetItemOutput{
				Item: map[string]dynamodbtypes.AttributeValue{
					"id":    avS("a1"),
					"count": avN("3"),
					"tags":  &dynamodbtypes.AttributeValueMemberSS{Value: []string{"x"}},
				},
			}, nil
		},
	}
	client := newTestClient(mock)

	doc, found, err := client.Get(context.Background(), "docs", "a1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !found {
		t.Fatal("expected document to be found")
	}

	want := attr.Document{
		"id":    attr.String("a1"),
		"count": attr.Number("3"),
		"tags":  attr.StringSet{"x"},
	}
	if !attr.Equal(want, doc) {
		t.Errorf("expected %v, got %v", want, doc)
	}
}

func TestGet_NotFound(t *testing.T) {
	t.Parallel()
	client := newTestClient(&mockAPI{})

	doc, found, err := client.Get(context.Background(), "docs", "missing")
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if found || doc != nil {
		t.Errorf("expected no document, got %v", doc)
	}
}

func TestGet_EmptyID(t *testing.T) {
	t.Parallel()
	called := false
	mock := &mockAPI{
		getItemFunc: func(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			called = true
			return &dynamodb.GetItemOutput{}, nil
		},
	}
	client := newTestClient(mock)

	_, _, err := client.Get(context.Background(), "docs", "")
	if !errors.Is(err, attr.ErrEmptyValueNotAllowed) {
		t.Errorf("expected ErrEmptyValueNotAllowed, got %v", err)
	}
	if called {
		t.Error("expected no service call")
	}
}

func TestGet_EmptyTable(t *testing.T) {
	t.Parallel()
	client := newTestClient(&mockAPI{})

	_, _, err := client.Get(context.Background(), "", "a")
	if err == nil {
		t.Error("expected error, got nil")
	}
}

func TestGet_ServiceError(t *testing.T) {
	t.Parallel()
	mock := &mockAPI{
		getItemFunc: func(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			return nil, &dynamodbtypes.ResourceNotFoundException{Message: aws.String("no table")}
		},
	}
	client := newTestClient(mock)

	_, _, err := client.Get(context.Background(), "docs", "a")

	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected ServiceError, got %T", err)
	}
	if svcErr.Table != "docs" {
		t.Errorf("expected table docs, got %s", svcErr.Table)
	}
	if svcErr.Code() != "ResourceNotFoundException" {
		t.Errorf("expected ResourceNotFoundException code, got %q", svcErr.Code())
	}

	var notFound *dynamodbtypes.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		t.Error("expected SDK error to be preserved")
	}
}

func TestGet_MalformedItem(t *testing.T) {
	t.Parallel()
	mock := &mockAPI{
		getItemFunc: func(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			return &dynamodb.GetItemOutput{
				Item: map[string]dynamodbtypes.AttributeValue{
					"id":  avS("a"),
					"odd": &dynamodbtypes.UnknownUnionMember{Tag: "X"},
				},
			}, nil
		},
	}
	client := newTestClient(mock)

	_, _, err := client.Get(context.Background(), "docs", "a")
	if !errors.Is(err, attr.ErrUnknownTypeTag) {
		t.Errorf("expected ErrUnknownTypeTag, got %v", err)
	}
}

// ==================== GetItems Tests ====================

func TestGetItems_Empty(t *testing.T) {
	t.Parallel()
	called := false
	mock := &mockAPI{
		batchGetItemFunc: func(_ context.Context, _ *dynamodb.BatchGetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
			called = true
			return &dynamodb.BatchGetItemOutput{}, nil
		},
	}
	client := newTestClient(mock)

	docs, err := client.GetItems(context.Background(), "docs", nil)
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if docs == nil || len(docs) != 0 {
		t.Errorf("expected empty slice, got %v", docs)
	}
	if called {
		t.Error("expected no service call")
	}
}

func TestGetItems_ChunksKeys(t *testing.T) {
	t.Parallel()
	var batchSizes []int
	mock := &mockAPI{
		batchGetItemFunc: func(_ context.Context, params *dynamodb.BatchGetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
			request := params.RequestItems["docs"]
			if !aws.ToBool(request.ConsistentRead) {
				t.Error("expected consistent read")
			}
			batchSizes = append(batchSizes, len(request.Keys))
			return &dynamodb.BatchGetItemOutput{
				Responses: map[string][]map[string]dynamodbtypes.AttributeValue{
					"docs": request.Keys,
				},
			}, nil
		},
	}
	client := newTestClient(mock)

	ids := make([]string, 0, 151)
	for i := range 150 {
		ids = append(ids, "id-"+strconv.Itoa(i))
	}
	ids = append(ids, "id-0")

	docs, err := client.GetItems(context.Background(), "docs", ids)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(docs) != 150 {
		t.Errorf("expected 150 documents, got %d", len(docs))
	}
	if !reflect.DeepEqual(batchSizes, []int{100, 50}) {
		t.Errorf("expected batches of 100 and 50, got %v", batchSizes)
	}
}

func TestGetItems_RetryUnprocessedKeys(t *testing.T) {
	t.Parallel()
	callCount := 0
	mock := &mockAPI{
		batchGetItemFunc: func(_ context.Context, params *dynamodb.BatchGetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
			callCount++
			keys := params.RequestItems["docs"].Keys
			if callCount == 1 {
				return &dynamodb.BatchGetItemOutput{
					Responses: map[string][]map[string]dynamodbtypes.AttributeValue{"docs": keys[:1]},
					UnprocessedKeys: map[string]dynamodbtypes.KeysAndAttributes{
						"docs": {Keys: keys[1:], ConsistentRead: aws.Bool(true)},
					},
				}, nil
			}
			return &dynamodb.BatchGetItemOutput{
				Responses: map[string][]map[string]dynamodbtypes.AttributeValue{"docs": keys},
			}, nil
		},
	}
	client := newTestClient(mock)

	docs, err := client.GetItems(context.Background(), "docs", []string{"a", "b"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("expected 2 documents, got %d", len(docs))
	}
	if callCount != 2 {
		t.Errorf("expected 2 calls (1 initial + 1 retry), got %d", callCount)
	}
}

func TestGetItems_UnprocessedKeysExhausted(t *testing.T) {
	t.Parallel()
	callCount := 0
	mock := &mockAPI{
		batchGetItemFunc: func(_ context.Context, params *dynamodb.BatchGetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
			callCount++
			return &dynamodb.BatchGetItemOutput{UnprocessedKeys: params.RequestItems}, nil
		},
	}
	client := newTestClient(mock, WithUnprocessedRetries(2, time.Millisecond))

	_, err := client.GetItems(context.Background(), "docs", []string{"a"})
	if !errors.Is(err, ErrUnprocessedItems) {
		t.Errorf("expected ErrUnprocessedItems, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

// ==================== List Tests ====================

func TestList_Pagination(t *testing.T) {
	t.Parallel()
	callCount := 0
	mock := &mockAPI{
		scanFunc: func(_ context.Context, params *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
			callCount++

			cond, ok := params.ScanFilter["status"]
			if !ok || cond.ComparisonOperator != dynamodbtypes.ComparisonOperatorEq {
				t.Errorf("unexpected scan filter %v", params.ScanFilter)
			}
			if !reflect.DeepEqual(cond.AttributeValueList, []dynamodbtypes.AttributeValue{avS("open")}) {
				t.Errorf("unexpected filter values %v", cond.AttributeValueList)
			}

			if callCount == 1 {
				if params.ExclusiveStartKey != nil {
					t.Error("expected no start key on first page")
				}
				return &dynamodb.ScanOutput{
					Items:            []map[string]dynamodbtypes.AttributeValue{idItem("a"), idItem("b")},
					LastEvaluatedKey: idItem("b"),
				}, nil
			}

			if !reflect.DeepEqual(params.ExclusiveStartKey, idItem("b")) {
				t.Errorf("unexpected start key %v", params.ExclusiveStartKey)
			}
			return &dynamodb.ScanOutput{
				Items: []map[string]dynamodbtypes.AttributeValue{idItem("c")},
			}, nil
		},
	}
	client := newTestClient(mock)

	docs, err := client.List(context.Background(), "docs", []Condition{Equal("status", attr.String("open"))})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(docs) != 3 {
		t.Errorf("expected 3 documents, got %d", len(docs))
	}
	if callCount != 2 {
		t.Errorf("expected 2 scan calls, got %d", callCount)
	}
}

func TestList_NoConditions(t *testing.T) {
	t.Parallel()
	mock := &mockAPI{
		scanFunc: func(_ context.Context, params *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
			if params.ScanFilter != nil {
				t.Errorf("expected no scan filter, got %v", params.ScanFilter)
			}
			return &dynamodb.ScanOutput{}, nil
		},
	}
	client := newTestClient(mock)

	docs, err := client.List(context.Background(), "docs", nil)
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if docs == nil || len(docs) != 0 {
		t.Errorf("expected empty slice, got %v", docs)
	}
}

func TestList_InvalidConditions(t *testing.T) {
	t.Parallel()
	client := newTestClient(&mockAPI{})

	_, err := client.List(context.Background(), "docs", []Condition{
		Equal("a", attr.Int(1)),
		GreaterThan("a", attr.Int(0)),
	})
	if err == nil || !strings.Contains(err.Error(), "duplicate condition") {
		t.Errorf("expected duplicate condition error, got %v", err)
	}

	_, err = client.List(context.Background(), "docs", []Condition{Equal("a", attr.String(""))})
	if !errors.Is(err, attr.ErrEmptyValueNotAllowed) {
		t.Errorf("expected ErrEmptyValueNotAllowed, got %v", err)
	}
}

// ==================== Query Tests ====================

func TestQuery_ExpressionWithOptions(t *testing.T) {
	t.Parallel()
	callCount := 0
	mock := &mockAPI{
		queryFunc: func(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			callCount++
			if aws.ToString(params.KeyConditionExpression) != "#o = :o" {
				t.Errorf("unexpected key condition %s", aws.ToString(params.KeyConditionExpression))
			}
			if params.ExpressionAttributeNames["#o"] != "owner" {
				t.Errorf("unexpected names %v", params.ExpressionAttributeNames)
			}
			if !reflect.DeepEqual(params.ExpressionAttributeValues[":o"], avS("u1")) {
				t.Errorf("unexpected values %v", params.ExpressionAttributeValues)
			}
			if aws.ToString(params.IndexName) != "by-owner" {
				t.Errorf("unexpected index %s", aws.ToString(params.IndexName))
			}
			if params.ScanIndexForward == nil || *params.ScanIndexForward {
				t.Error("expected descending order")
			}
			if aws.ToInt32(params.Limit) != 3 {
				t.Errorf("expected limit 3, got %d", aws.ToInt32(params.Limit))
			}

			page := strconv.Itoa(callCount)
			return &dynamodb.QueryOutput{
				Items:            []map[string]dynamodbtypes.AttributeValue{idItem(page + "a"), idItem(page + "b")},
				LastEvaluatedKey: idItem(page + "b"),
			}, nil
		},
	}
	client := newTestClient(mock)

	docs, err := client.Query(context.Background(), "docs", &Expression{
		Expression: "#o = :o",
		Names:      map[string]string{"#o": "owner"},
		Values:     map[string]attr.Value{":o": attr.String("u1")},
	}, &QueryOptions{Index: "by-owner", Reverse: true, Limit: 3})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(docs) != 3 {
		t.Errorf("expected 3 documents, got %d", len(docs))
	}
	if callCount != 2 {
		t.Errorf("expected 2 query calls, got %d", callCount)
	}
}

func TestQuery_Conditions(t *testing.T) {
	t.Parallel()
	mock := &mockAPI{
		queryFunc: func(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			if params.KeyConditionExpression != nil {
				t.Error("expected no key condition expression")
			}
			if params.KeyConditions["owner"].ComparisonOperator != dynamodbtypes.ComparisonOperatorEq {
				t.Errorf("unexpected key conditions %v", params.KeyConditions)
			}
			if len(params.KeyConditions["created"].AttributeValueList) != 2 {
				t.Errorf("expected 2 values for between, got %v", params.KeyConditions["created"])
			}
			if params.QueryFilter["archived"].ComparisonOperator != dynamodbtypes.ComparisonOperatorNull {
				t.Errorf("unexpected query filter %v", params.QueryFilter)
			}
			if params.ScanIndexForward != nil {
				t.Error("expected default order")
			}
			return &dynamodb.QueryOutput{
				Items: []map[string]dynamodbtypes.AttributeValue{idItem("a")},
			}, nil
		},
	}
	client := newTestClient(mock)

	docs, err := client.Query(context.Background(), "docs", Conditions{
		Equal("owner", attr.String("u1")),
		Between("created", attr.Int(1), attr.Int(9)),
	}, &QueryOptions{Filter: []Condition{NotExists("archived")}})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(docs) != 1 {
		t.Errorf("expected 1 document, got %d", len(docs))
	}
}

func TestQuery_InvalidInput(t *testing.T) {
	t.Parallel()
	called := false
	mock := &mockAPI{
		queryFunc: func(_ context.Context, _ *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			called = true
			return &dynamodb.QueryOutput{}, nil
		},
	}
	client := newTestClient(mock)
	ctx := context.Background()

	if _, err := client.Query(ctx, "docs", nil, nil); err == nil {
		t.Error("expected error for nil key condition")
	}
	if _, err := client.Query(ctx, "docs", Conditions{}, nil); err == nil {
		t.Error("expected error for empty conditions")
	}
	if _, err := client.Query(ctx, "docs", &Expression{}, nil); err == nil {
		t.Error("expected error for empty expression")
	}
	var nilExpr *Expression
	if _, err := client.Query(ctx, "docs", nilExpr, nil); err == nil {
		t.Error("expected error for nil expression")
	}
	if _, err := client.Query(ctx, "docs", &Expression{Expression: "id = :id"}, &QueryOptions{Filter: []Condition{Exists("a")}}); err == nil {
		t.Error("expected error when mixing expression and filter conditions")
	}
	if _, err := client.Query(ctx, "docs", Conditions{Equal("id", attr.String("a"))}, &QueryOptions{Limit: -1}); err == nil {
		t.Error("expected error for negative limit")
	}
	if called {
		t.Error("expected no service call")
	}
}

// ==================== Create Tests ====================

func TestCreate_AssignsID(t *testing.T) {
	t.Parallel()
	mock := &mockAPI{
		putItemFunc: func(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			if !reflect.DeepEqual(params.Item[IDAttr], avS("gen-1")) {
				t.Errorf("expected generated id, got %v", params.Item[IDAttr])
			}
			if params.ReturnValues != dynamodbtypes.ReturnValueAllOld {
				t.Errorf("expected ALL_OLD, got %s", params.ReturnValues)
			}
			if params.ReturnConsumedCapacity != dynamodbtypes.ReturnConsumedCapacityTotal {
				t.Errorf("expected TOTAL, got %s", params.ReturnConsumedCapacity)
			}
			if params.ReturnItemCollectionMetrics != dynamodbtypes.ReturnItemCollectionMetricsSize {
				t.Errorf("expected SIZE, got %s", params.ReturnItemCollectionMetrics)
			}
			if params.ConditionExpression != nil {
				t.Error("expected no condition expression")
			}
			return &dynamodb.PutItemOutput{
				ConsumedCapacity: &dynamodbtypes.ConsumedCapacity{CapacityUnits: aws.Float64(1)},
			}, nil
		},
	}
	client := newTestClient(mock, WithIDGenerator(func() string { return "gen-1" }))

	doc := attr.Document{"name": attr.String("Ada")}
	got, err := client.Create(context.Background(), "docs", doc, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got[IDAttr] != attr.String("gen-1") {
		t.Errorf("expected id gen-1, got %v", got[IDAttr])
	}
	if doc[IDAttr] != attr.String("gen-1") {
		t.Error("expected caller's document to receive the id")
	}
}

func TestCreate_KeepsExistingID(t *testing.T) {
	t.Parallel()
	mock := &mockAPI{
		putItemFunc: func(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			if !reflect.DeepEqual(params.Item[IDAttr], avS("mine")) {
				t.Errorf("expected id mine, got %v", params.Item[IDAttr])
			}
			return &dynamodb.PutItemOutput{}, nil
		},
	}
	client := newTestClient(mock, WithIDGenerator(func() string { return "gen" }))

	_, err := client.Create(context.Background(), "docs", attr.Document{"id": attr.String("mine")}, nil)
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestCreate_ConditionFailed(t *testing.T) {
	t.Parallel()
	mock := &mockAPI{
		putItemFunc: func(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			if aws.ToString(params.ConditionExpression) != "attribute_not_exists(#id)" {
				t.Errorf("unexpected condition %s", aws.ToString(params.ConditionExpression))
			}
			if params.ExpressionAttributeNames["#id"] != "id" {
				t.Errorf("unexpected names %v", params.ExpressionAttributeNames)
			}
			if params.ExpressionAttributeValues != nil {
				t.Errorf("expected no values, got %v", params.ExpressionAttributeValues)
			}
			return nil, &dynamodbtypes.ConditionalCheckFailedException{Message: aws.String("exists")}
		},
	}
	client := newTestClient(mock)

	_, err := client.Create(context.Background(), "docs", attr.Document{"id": attr.String("a")}, &Expression{
		Expression: "attribute_not_exists(#id)",
		Names:      map[string]string{"#id": "id"},
	})
	if !IsConditionalCheckFailed(err) {
		t.Errorf("expected conditional check failure, got %v", err)
	}
}

func TestCreate_InvalidDocument(t *testing.T) {
	t.Parallel()
	called := false
	mock := &mockAPI{
		putItemFunc: func(_ context.Context, _ *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			called = true
			return &dynamodb.PutItemOutput{}, nil
		},
	}
	client := newTestClient(mock)

	_, err := client.Create(context.Background(), "docs", attr.Document{"id": attr.String("a"), "bad": attr.Binary{}}, nil)
	if !errors.Is(err, attr.ErrEmptyValueNotAllowed) {
		t.Errorf("expected ErrEmptyValueNotAllowed, got %v", err)
	}

	noID := attr.Document{"bad": attr.StringSet{}}
	if _, err := client.Create(context.Background(), "docs", noID, nil); err == nil {
		t.Error("expected error for empty set")
	}
	if _, ok := noID[IDAttr]; ok {
		t.Errorf("expected no id on a document that failed to encode, got %v", noID[IDAttr])
	}

	_, err = client.Create(context.Background(), "docs", nil, nil)
	if err == nil {
		t.Error("expected error for nil document")
	}

	if called {
		t.Error("expected no service call")
	}
}

// ==================== Update Tests ====================

func TestUpdate_DeleteFalsy(t *testing.T) {
	t.Parallel()
	var got map[string]dynamodbtypes.AttributeValueUpdate
	mock := &mockAPI{
		updateItemFunc: func(_ context.Context, params *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
			if !reflect.DeepEqual(params.Key, idItem("u1")) {
				t.Errorf("unexpected key %v", params.Key)
			}
			if params.ReturnValues != dynamodbtypes.ReturnValueAllNew {
				t.Errorf("expected ALL_NEW, got %s", params.ReturnValues)
			}
			if params.ReturnConsumedCapacity != dynamodbtypes.ReturnConsumedCapacityTotal {
				t.Errorf("expected TOTAL, got %s", params.ReturnConsumedCapacity)
			}
			if params.ReturnItemCollectionMetrics != dynamodbtypes.ReturnItemCollectionMetricsSize {
				t.Errorf("expected SIZE, got %s", params.ReturnItemCollectionMetrics)
			}
			got = params.AttributeUpdates
			return &dynamodb.UpdateItemOutput{}, nil
		},
	}
	client := newTestClient(mock)

	doc := attr.Document{
		"id":    attr.String("u1"),
		"name":  attr.String("x"),
		"count": attr.Int(0),
		"flag":  attr.Bool(false),
		"note":  attr.String(""),
		"gone":  attr.Null{},
		"keep":  attr.Bool(true),
	}

	if _, err := client.Update(context.Background(), "docs", doc); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if _, ok := got[IDAttr]; ok {
		t.Error("expected id not to be updated")
	}

	for _, name := range []string{"count", "flag", "note", "gone"} {
		if got[name].Action != dynamodbtypes.AttributeActionDelete {
			t.Errorf("expected %s to be deleted, got %v", name, got[name].Action)
		}
	}

	if got["name"].Action != dynamodbtypes.AttributeActionPut || !reflect.DeepEqual(got["name"].Value, avS("x")) {
		t.Errorf("unexpected update for name: %v", got["name"])
	}
	if !reflect.DeepEqual(got["keep"].Value, &dynamodbtypes.AttributeValueMemberBOOL{Value: true}) {
		t.Errorf("unexpected update for keep: %v", got["keep"])
	}
}

func TestUpdate_DeleteNullOnly(t *testing.T) {
	t.Parallel()
	var got map[string]dynamodbtypes.AttributeValueUpdate
	mock := &mockAPI{
		updateItemFunc: func(_ context.Context, params *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
			got = params.AttributeUpdates
			return &dynamodb.UpdateItemOutput{}, nil
		},
	}
	client := newTestClient(mock, WithUpdatePolicy(DeleteNullOnly))

	_, err := client.Update(context.Background(), "docs", attr.Document{
		"id":    attr.String("u1"),
		"count": attr.Int(0),
		"flag":  attr.Bool(false),
		"gone":  nil,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !reflect.DeepEqual(got["count"].Value, avN("0")) {
		t.Errorf("expected count to be stored, got %v", got["count"])
	}
	if !reflect.DeepEqual(got["flag"].Value, &dynamodbtypes.AttributeValueMemberBOOL{Value: false}) {
		t.Errorf("expected flag to be stored, got %v", got["flag"])
	}
	if got["gone"].Action != dynamodbtypes.AttributeActionDelete {
		t.Errorf("expected gone to be deleted, got %v", got["gone"])
	}

	// The empty string cannot be stored, so it is rejected rather than dropped.
	_, err = client.Update(context.Background(), "docs", attr.Document{"id": attr.String("u1"), "note": attr.String("")})
	if !errors.Is(err, attr.ErrEmptyValueNotAllowed) {
		t.Errorf("expected ErrEmptyValueNotAllowed, got %v", err)
	}
}

func TestUpdate_MissingID(t *testing.T) {
	t.Parallel()
	client := newTestClient(&mockAPI{})

	for _, doc := range []attr.Document{
		{"name": attr.String("x")},
		{"id": attr.Null{}, "name": attr.String("x")},
		{"id": attr.String(""), "name": attr.String("x")},
	} {
		_, err := client.Update(context.Background(), "docs", doc)
		if !errors.Is(err, ErrMissingID) {
			t.Errorf("expected ErrMissingID for %v, got %v", doc, err)
		}
	}
}

func TestUpdate_ServiceError(t *testing.T) {
	t.Parallel()
	mock := &mockAPI{
		updateItemFunc: func(_ context.Context, _ *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
			return nil, errors.New("dynamodb error")
		},
	}
	client := newTestClient(mock)

	_, err := client.Update(context.Background(), "docs", attr.Document{"id": attr.String("a"), "x": attr.Int(1)})
	if err == nil || !strings.Contains(err.Error(), "failed to update document in DynamoDB table docs") {
		t.Errorf("unexpected error: %v", err)
	}
}

// ==================== Remove Tests ====================

func TestRemove_Success(t *testing.T) {
	t.Parallel()
	mock := &mockAPI{
		deleteItemFunc: func(_ context.Context, params *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
			want := map[string]dynamodbtypes.AttributeValue{"id": avS("a"), "sk": avN("2")}
			if !reflect.DeepEqual(params.Key, want) {
				t.Errorf("unexpected key %v", params.Key)
			}
			return &dynamodb.DeleteItemOutput{}, nil
		},
	}
	client := newTestClient(mock)

	doc := attr.Document{"id": attr.String("a"), "sk": attr.Int(2)}
	got, err := client.Remove(context.Background(), "docs", doc)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !attr.Equal(doc, got) {
		t.Errorf("expected caller's document back, got %v", got)
	}
}

func TestRemove_EmptyDocument(t *testing.T) {
	t.Parallel()
	client := newTestClient(&mockAPI{})

	if _, err := client.Remove(context.Background(), "docs", attr.Document{}); err == nil {
		t.Error("expected error, got nil")
	}
}

// ==================== VerifyTable Tests ====================

func describeOutput(status dynamodbtypes.TableStatus, key string, keyType dynamodbtypes.ScalarAttributeType) *dynamodb.DescribeTableOutput {
	return &dynamodb.DescribeTableOutput{
		Table: &dynamodbtypes.TableDescription{
			TableStatus: status,
			KeySchema: []dynamodbtypes.KeySchemaElement{
				{AttributeName: aws.String(key), KeyType: dynamodbtypes.KeyTypeHash},
			},
			AttributeDefinitions: []dynamodbtypes.AttributeDefinition{
				{AttributeName: aws.String(key), AttributeType: keyType},
			},
		},
	}
}

func TestVerifyTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		output  *dynamodb.DescribeTableOutput
		err     error
		wantErr string
	}{
		{"valid", describeOutput(dynamodbtypes.TableStatusActive, "id", dynamodbtypes.ScalarAttributeTypeS), nil, ""},
		{"wrong partition key", describeOutput(dynamodbtypes.TableStatusActive, "pk", dynamodbtypes.ScalarAttributeTypeS), nil, "partition key"},
		{"numeric partition key", describeOutput(dynamodbtypes.TableStatusActive, "id", dynamodbtypes.ScalarAttributeTypeN), nil, "partition key type"},
		{"not active", describeOutput(dynamodbtypes.TableStatusCreating, "id", dynamodbtypes.ScalarAttributeTypeS), nil, "not active"},
		{"missing", nil, &dynamodbtypes.ResourceNotFoundException{Message: aws.String("gone")}, "does not exist"},
		{"no description", &dynamodb.DescribeTableOutput{}, nil, "no description"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mock := &mockAPI{
				describeTableFunc: func(_ context.Context, _ *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
					return tt.output, tt.err
				},
			}
			client := newTestClient(mock)

			err := client.VerifyTable(context.Background(), "docs")
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

// ==================== Truncate Tests ====================

func TestTruncate_DeletesByKeySchema(t *testing.T) {
	t.Parallel()
	scanCount := 0
	var batchSizes []int
	mock := &mockAPI{
		describeTableFunc: func(_ context.Context, _ *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
			return &dynamodb.DescribeTableOutput{
				Table: &dynamodbtypes.TableDescription{
					KeySchema: []dynamodbtypes.KeySchemaElement{
						{AttributeName: aws.String("id"), KeyType: dynamodbtypes.KeyTypeHash},
						{AttributeName: aws.String("sk"), KeyType: dynamodbtypes.KeyTypeRange},
					},
				},
			}, nil
		},
		scanFunc: func(_ context.Context, params *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
			scanCount++
			if aws.ToString(params.ProjectionExpression) != "#k0, #k1" {
				t.Errorf("unexpected projection %s", aws.ToString(params.ProjectionExpression))
			}

			size := 30
			if scanCount == 2 {
				size = 5
			}

			items := make([]map[string]dynamodbtypes.AttributeValue, 0, size)
			for i := range size {
				items = append(items, map[string]dynamodbtypes.AttributeValue{
					"id":    avS("p" + strconv.Itoa(scanCount)),
					"sk":    avN(strconv.Itoa(i)),
					"extra": avS("ignored"),
				})
			}

			output := &dynamodb.ScanOutput{Items: items}
			if scanCount == 1 {
				output.LastEvaluatedKey = items[len(items)-1]
			}
			return output, nil
		},
		batchWriteItemFunc: func(_ context.Context, params *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
			requests := params.RequestItems["docs"]
			batchSizes = append(batchSizes, len(requests))
			for _, r := range requests {
				if r.DeleteRequest == nil || len(r.DeleteRequest.Key) != 2 {
					t.Errorf("expected delete request keyed on id and sk, got %v", r)
				}
			}
			return &dynamodb.BatchWriteItemOutput{}, nil
		},
	}
	client := newTestClient(mock)

	if err := client.Truncate(context.Background(), "docs"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !reflect.DeepEqual(batchSizes, []int{25, 5, 5}) {
		t.Errorf("expected batches of 25, 5 and 5, got %v", batchSizes)
	}
}

func TestTruncate_ScanError(t *testing.T) {
	t.Parallel()
	mock := &mockAPI{
		describeTableFunc: func(_ context.Context, _ *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
			return describeOutput(dynamodbtypes.TableStatusActive, "id", dynamodbtypes.ScalarAttributeTypeS), nil
		},
		scanFunc: func(_ context.Context, _ *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
			return nil, errors.New("scan failed")
		},
	}
	client := newTestClient(mock)

	err := client.Truncate(context.Background(), "docs")

	var svcErr *ServiceError
	if !errors.As(err, &svcErr) || svcErr.Operation != "scan" {
		t.Errorf("expected scan ServiceError, got %v", err)
	}
}

// ==================== isFalsy Tests ====================

func TestIsFalsy(t *testing.T) {
	t.Parallel()

	falsy := []attr.Value{nil, attr.Null{}, attr.Bool(false), attr.Int(0), attr.Number("0.0"), attr.Number("-0e5"), attr.String("")}
	for _, v := range falsy {
		if !isFalsy(v) {
			t.Errorf("expected %#v to be falsy", v)
		}
	}

	truthy := []attr.Value{attr.Bool(true), attr.Int(1), attr.Number("0.01"), attr.String("0"), attr.List{}, attr.Map{}, attr.Binary{0}}
	for _, v := range truthy {
		if isFalsy(v) {
			t.Errorf("expected %#v to be truthy", v)
		}
	}
}
