package dynadoc

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/slackmgr/dynadoc/attr"
	"github.com/slackmgr/types"
)

const (
	// IDAttr is the partition key attribute every table used with [Client]
	// must have. Get, GetItems and Update key on it; Create and CreateItems
	// fill it in when it is missing.
	IDAttr = "id"

	// maxBatchGetKeys is the DynamoDB BatchGetItem limit.
	maxBatchGetKeys = 100

	// maxBatchWriteItems is the DynamoDB BatchWriteItem limit.
	maxBatchWriteItems = 25

	// maxBackoff is the maximum backoff duration for retry loops.
	maxBackoff = 2 * time.Second
)

const (
	opGet        = "get"
	opGetItems   = "get_items"
	opList       = "list"
	opQuery      = "query"
	opCreate     = "create"
	opCreateMany = "create_items"
	opUpdate     = "update"
	opRemove     = "remove"
	opVerify     = "verify_table"
	opTruncate   = "truncate"
)

// Client stores and retrieves [attr.Document] values in DynamoDB tables.
// Documents are itemized into DynamoDB attribute values on the way in and
// deitemized on the way out.
//
// Use [New] to create a Client and [Client.Connect] to initialize the
// underlying DynamoDB connection. After Connect returns, the Client is safe
// for concurrent use.
type Client struct {
	client  API
	awsCfg  *aws.Config
	opts    *Options
	codec   attr.Codec
	logger  types.Logger
	metrics *metrics
}

// New creates a new Client configured with the given AWS config and optional
// options. A nil awsCfg makes [Client.Connect] load the default AWS
// configuration. Call Connect on the returned client before use.
func New(awsCfg *aws.Config, opts ...Option) *Client {
	options := newOptions()

	for _, o := range opts {
		o(options)
	}

	return &Client{
		awsCfg: awsCfg,
		opts:   options,
	}
}

// Connect validates the options and initializes the DynamoDB client. It must
// be called before any other Client methods, and must complete before the
// Client is used concurrently.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.opts.validate(); err != nil {
		return fmt.Errorf("invalid DynamoDB options: %w", err)
	}

	m, err := newMetrics(c.opts.registerer)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	c.metrics = m
	c.codec = attr.NewCodec(c.opts.maxDepth)
	c.logger = c.opts.logger.WithField("plugin", "dynadoc")

	// Use injected DynamoDB API if provided (useful for testing).
	if c.opts.dynamoDBAPI != nil {
		c.client = c.opts.dynamoDBAPI
		return nil
	}

	awsCfg := c.awsCfg

	if awsCfg == nil {
		var loadOpts []func(*config.LoadOptions) error

		if c.opts.region != "" {
			loadOpts = append(loadOpts, config.WithRegion(c.opts.region))
		}

		if c.opts.profile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(c.opts.profile))
		}

		cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return fmt.Errorf("failed to load AWS config: %w", err)
		}

		awsCfg = &cfg
	}

	c.client = dynamodb.NewFromConfig(*awsCfg, func(o *dynamodb.Options) {
		o.Retryer = retry.AddWithMaxBackoffDelay(o.Retryer, c.opts.maxRetryBackoffDelay)
		o.Retryer = retry.AddWithMaxAttempts(o.Retryer, c.opts.maxRetryAttempts)

		if c.opts.endpoint != "" {
			o.BaseEndpoint = aws.String(c.opts.endpoint)
		}
	})

	return nil
}

// Get reads the document whose id is id. It returns found == false and a nil
// error when no such document exists.
func (c *Client) Get(ctx context.Context, table, id string) (doc attr.Document, found bool, err error) {
	started := time.Now()
	defer func() { c.observe(table, opGet, started, err) }()

	if err := c.check(table); err != nil {
		return nil, false, err
	}

	key, err := c.idKey(attr.String(id))
	if err != nil {
		return nil, false, err
	}

	output, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(table),
		Key:       key,
	})
	if err != nil {
		return nil, false, &ServiceError{Operation: "get item from", Table: table, Err: err}
	}

	if len(output.Item) == 0 {
		return nil, false, nil
	}

	doc, err = c.decode(table, output.Item)
	if err != nil {
		return nil, false, err
	}

	return doc, true, nil
}

// GetItems reads the documents with the given ids using strongly consistent
// batch reads. Duplicate ids are read once. Missing documents are absent
// from the result, and the result order is not related to the order of ids.
func (c *Client) GetItems(ctx context.Context, table string, ids []string) (docs []attr.Document, err error) {
	started := time.Now()
	defer func() { c.observe(table, opGetItems, started, err) }()

	if err := c.check(table); err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return []attr.Document{}, nil
	}

	keys := make([]map[string]dynamodbtypes.AttributeValue, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))

	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		key, err := c.idKey(attr.String(id))
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	docs = make([]attr.Document, 0, len(keys))

	for chunk := range slices.Chunk(keys, maxBatchGetKeys) {
		input := &dynamodb.BatchGetItemInput{
			RequestItems: map[string]dynamodbtypes.KeysAndAttributes{
				table: {Keys: chunk, ConsistentRead: aws.Bool(true)},
			},
		}

		// Retry with exponential backoff for unprocessed keys.
		backoff := c.opts.initialBackoff

		for attempt := 0; attempt <= c.opts.unprocessedRetries; attempt++ {
			output, err := c.client.BatchGetItem(ctx, input)
			if err != nil {
				return nil, &ServiceError{Operation: "batch get items from", Table: table, Err: err}
			}

			for _, item := range output.Responses[table] {
				doc, err := c.decode(table, item)
				if err != nil {
					return nil, err
				}
				docs = append(docs, doc)
			}

			if len(output.UnprocessedKeys) == 0 {
				break
			}

			if attempt == c.opts.unprocessedRetries {
				return nil, fmt.Errorf("%w: %d keys after %d retries", ErrUnprocessedItems, len(output.UnprocessedKeys[table].Keys), c.opts.unprocessedRetries)
			}

			c.logger.WithField("table", table).Warnf("Retrying %d unprocessed keys in %s", len(output.UnprocessedKeys[table].Keys), backoff)

			if err := sleep(ctx, backoff); err != nil {
				return nil, err
			}

			backoff = min(backoff*2, maxBackoff)
			input.RequestItems = output.UnprocessedKeys
		}
	}

	return docs, nil
}

// List scans the whole table and returns every document matching all of
// conditions. With no conditions every document is returned.
func (c *Client) List(ctx context.Context, table string, conditions []Condition) (docs []attr.Document, err error) {
	started := time.Now()
	defer func() { c.observe(table, opList, started, err) }()

	if err := c.check(table); err != nil {
		return nil, err
	}

	filter, err := conditionMap(c.codec, conditions)
	if err != nil {
		return nil, err
	}

	input := &dynamodb.ScanInput{
		TableName:  aws.String(table),
		ScanFilter: filter,
	}

	docs = []attr.Document{}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		output, err := c.client.Scan(ctx, input)
		if err != nil {
			return nil, &ServiceError{Operation: "scan", Table: table, Err: err}
		}

		for _, item := range output.Items {
			doc, err := c.decode(table, item)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}

		if len(output.LastEvaluatedKey) == 0 {
			break
		}

		input.ExclusiveStartKey = output.LastEvaluatedKey
	}

	return docs, nil
}

// Query returns the documents selected by key, refined by opts.
func (c *Client) Query(ctx context.Context, table string, key KeyCondition, opts *QueryOptions) (docs []attr.Document, err error) {
	started := time.Now()
	defer func() { c.observe(table, opQuery, started, err) }()

	if err := c.check(table); err != nil {
		return nil, err
	}

	if key == nil {
		return nil, errors.New("key condition cannot be nil")
	}

	input := &dynamodb.QueryInput{
		TableName: aws.String(table),
	}

	if err := key.applyQuery(input, c.codec); err != nil {
		return nil, err
	}

	limit := 0

	if opts != nil {
		if opts.Limit < 0 {
			return nil, errors.New("query limit cannot be negative")
		}

		if opts.Index != "" {
			input.IndexName = aws.String(opts.Index)
		}

		if opts.Reverse {
			input.ScanIndexForward = aws.Bool(false)
		}

		if opts.Limit > 0 {
			limit = opts.Limit
			input.Limit = aws.Int32(int32(min(limit, 1<<31-1))) //nolint:gosec
		}

		if len(opts.Filter) > 0 {
			if input.KeyConditionExpression != nil {
				return nil, errors.New("filter conditions cannot be combined with a key condition expression")
			}

			filter, err := conditionMap(c.codec, opts.Filter)
			if err != nil {
				return nil, err
			}
			input.QueryFilter = filter
		}
	}

	docs = []attr.Document{}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		output, err := c.client.Query(ctx, input)
		if err != nil {
			return nil, &ServiceError{Operation: "query", Table: table, Err: err}
		}

		for _, item := range output.Items {
			doc, err := c.decode(table, item)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}

		if limit > 0 && len(docs) >= limit {
			return docs[:limit], nil
		}

		if len(output.LastEvaluatedKey) == 0 {
			break
		}

		input.ExclusiveStartKey = output.LastEvaluatedKey
	}

	return docs, nil
}

// Create writes doc, replacing any document with the same id. A missing or
// empty "id" is filled in on doc with the client's id generator before the
// write. When cond is not nil the write only happens if the condition holds;
// otherwise the error satisfies [IsConditionalCheckFailed].
func (c *Client) Create(ctx context.Context, table string, doc attr.Document, cond *Expression) (_ attr.Document, err error) {
	started := time.Now()
	defer func() { c.observe(table, opCreate, started, err) }()

	if err := c.check(table); err != nil {
		return nil, err
	}

	if doc == nil {
		return nil, errors.New("document cannot be nil")
	}

	withID := c.withID(doc)

	item, err := c.codec.ItemizeDocument(withID)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}

	doc[IDAttr] = withID[IDAttr]

	input := &dynamodb.PutItemInput{
		TableName:                   aws.String(table),
		Item:                        item,
		ReturnConsumedCapacity:      dynamodbtypes.ReturnConsumedCapacityTotal,
		ReturnItemCollectionMetrics: dynamodbtypes.ReturnItemCollectionMetricsSize,
		ReturnValues:                dynamodbtypes.ReturnValueAllOld,
	}

	if cond != nil {
		if err := cond.applyPut(input, c.codec); err != nil {
			return nil, err
		}
	}

	output, err := c.client.PutItem(ctx, input)
	if err != nil {
		return nil, &ServiceError{Operation: "write document to", Table: table, Err: err}
	}

	logger := c.logger.WithField("table", table).WithField("id", attr.ToAny(doc[IDAttr]))

	if output.ConsumedCapacity != nil {
		logger = logger.WithField("capacity_units", aws.ToFloat64(output.ConsumedCapacity.CapacityUnits))
	}

	if len(output.Attributes) > 0 {
		logger.Debug("Replaced existing document")
	} else {
		logger.Debug("Created document")
	}

	return doc, nil
}

// Update changes the fields of an existing document in place, creating the
// document if it does not exist. doc must carry the "id" of the document.
// Every other field is stored, or removed when the client's [UpdatePolicy]
// says so. Fields absent from doc are left untouched.
func (c *Client) Update(ctx context.Context, table string, doc attr.Document) (_ attr.Document, err error) {
	started := time.Now()
	defer func() { c.observe(table, opUpdate, started, err) }()

	if err := c.check(table); err != nil {
		return nil, err
	}

	if doc == nil {
		return nil, errors.New("document cannot be nil")
	}

	id, ok := doc[IDAttr]
	if !ok || isFalsy(id) {
		return nil, ErrMissingID
	}

	key, err := c.idKey(id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]dynamodbtypes.AttributeValueUpdate, len(doc))

	for name, v := range doc {
		if name == IDAttr {
			continue
		}

		if c.shouldDelete(v) {
			updates[name] = dynamodbtypes.AttributeValueUpdate{Action: dynamodbtypes.AttributeActionDelete}
			continue
		}

		av, err := c.codec.Itemize(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode field %s: %w", name, err)
		}

		updates[name] = dynamodbtypes.AttributeValueUpdate{Action: dynamodbtypes.AttributeActionPut, Value: av}
	}

	input := &dynamodb.UpdateItemInput{
		TableName:        aws.String(table),
		Key:              key,
		AttributeUpdates:            updates,
		ReturnConsumedCapacity:      dynamodbtypes.ReturnConsumedCapacityTotal,
		ReturnItemCollectionMetrics: dynamodbtypes.ReturnItemCollectionMetricsSize,
		ReturnValues:                dynamodbtypes.ReturnValueAllNew,
	}

	if _, err := c.client.UpdateItem(ctx, input); err != nil {
		return nil, &ServiceError{Operation: "update document in", Table: table, Err: err}
	}

	c.logger.WithField("table", table).WithField("id", attr.ToAny(id)).Debugf("Updated %d fields", len(updates))

	return doc, nil
}

// Remove deletes the document whose primary key is doc. Every field of doc
// is used as a key attribute, so doc should hold the key fields only. It is
// a no-op when no such document exists.
func (c *Client) Remove(ctx context.Context, table string, doc attr.Document) (_ attr.Document, err error) {
	started := time.Now()
	defer func() { c.observe(table, opRemove, started, err) }()

	if err := c.check(table); err != nil {
		return nil, err
	}

	if len(doc) == 0 {
		return nil, errors.New("document cannot be empty")
	}

	key, err := c.codec.ItemizeDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode key: %w", err)
	}

	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(table),
		Key:       key,
	}

	if _, err := c.client.DeleteItem(ctx, input); err != nil {
		return nil, &ServiceError{Operation: "delete document from", Table: table, Err: err}
	}

	return doc, nil
}

// VerifyTable checks that the table exists, is active, and has a string
// partition key named "id".
func (c *Client) VerifyTable(ctx context.Context, table string) (err error) {
	started := time.Now()
	defer func() { c.observe(table, opVerify, started, err) }()

	if err := c.check(table); err != nil {
		return err
	}

	description, err := c.describe(ctx, table)
	if err != nil {
		return err
	}

	var partitionKey string

	for _, k := range description.KeySchema {
		if k.KeyType == dynamodbtypes.KeyTypeHash {
			partitionKey = aws.ToString(k.AttributeName)
		}
	}

	if partitionKey != IDAttr {
		return fmt.Errorf("table %s has partition key %q, expected %q", table, partitionKey, IDAttr)
	}

	for _, def := range description.AttributeDefinitions {
		if aws.ToString(def.AttributeName) == IDAttr && def.AttributeType != dynamodbtypes.ScalarAttributeTypeS {
			return fmt.Errorf("table %s has partition key type %s, expected %s", table, def.AttributeType, dynamodbtypes.ScalarAttributeTypeS)
		}
	}

	if description.TableStatus != dynamodbtypes.TableStatusActive {
		return fmt.Errorf("table %s is not active (status: %s)", table, description.TableStatus)
	}

	return nil
}

func (c *Client) describe(ctx context.Context, table string) (*dynamodbtypes.TableDescription, error) {
	output, err := c.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(table),
	})
	if err != nil {
		var notFoundError *dynamodbtypes.ResourceNotFoundException
		if errors.As(err, &notFoundError) {
			return nil, fmt.Errorf("table %s does not exist", table)
		}
		return nil, &ServiceError{Operation: "describe", Table: table, Err: err}
	}

	if output.Table == nil {
		return nil, fmt.Errorf("table %s has no description", table)
	}

	return output.Table, nil
}

func (c *Client) check(table string) error {
	if c.client == nil {
		return ErrNotConnected
	}

	if table == "" {
		return errors.New("table name cannot be empty")
	}

	return nil
}

func (c *Client) idKey(id attr.Value) (map[string]dynamodbtypes.AttributeValue, error) {
	av, err := c.codec.Itemize(id)
	if err != nil {
		return nil, fmt.Errorf("invalid document id: %w", err)
	}

	return map[string]dynamodbtypes.AttributeValue{IDAttr: av}, nil
}

func (c *Client) decode(table string, item map[string]dynamodbtypes.AttributeValue) (attr.Document, error) {
	doc, err := c.codec.DeitemizeItem(item)
	if err != nil {
		return nil, fmt.Errorf("failed to decode item from DynamoDB table %s: %w", table, err)
	}

	return doc, nil
}

// withID returns doc, or a shallow copy of it carrying a generated id when
// doc has no usable one. doc itself is not modified.
func (c *Client) withID(doc attr.Document) attr.Document {
	if id, ok := doc[IDAttr]; ok && !isFalsy(id) {
		return doc
	}

	out := maps.Clone(doc)
	out[IDAttr] = attr.String(c.opts.idGenerator())

	return out
}

func (c *Client) shouldDelete(v attr.Value) bool {
	if c.opts.updatePolicy == DeleteNullOnly {
		return v == nil || v.Kind() == attr.KindNull
	}

	return isFalsy(v)
}

func (c *Client) observe(table, operation string, started time.Time, err error) {
	c.metrics.observe(table, operation, started, err)

	if err != nil && c.logger != nil {
		c.logger.WithField("table", table).WithField("operation", operation).Debugf("Operation failed: %v", err)
	}
}

// isFalsy reports whether v is Null, false, a numeric zero or the empty
// string.
func isFalsy(v attr.Value) bool {
	switch t := v.(type) {
	case nil, attr.Null:
		return true
	case attr.Bool:
		return !bool(t)
	case attr.Number:
		return t.IsZero()
	case attr.String:
		return t == ""
	default:
		return false
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
