package dynadoc

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/slackmgr/dynadoc/attr"
	"golang.org/x/sync/errgroup"
)

// CreateItems writes docs with batched, concurrent requests. Documents
// without an "id" get one from the client's id generator, as with
// [Client.Create].
//
// Every document is encoded before anything is sent, so an invalid document
// fails the call without writing anything. Once writing starts, chunks are
// independent: if some fail, the error is a *[BatchWriteError] naming them,
// and the documents of the other chunks stay written.
func (c *Client) CreateItems(ctx context.Context, table string, docs []attr.Document) (_ []attr.Document, err error) {
	started := time.Now()
	defer func() { c.observe(table, opCreateMany, started, err) }()

	if err := c.check(table); err != nil {
		return nil, err
	}

	if len(docs) == 0 {
		return docs, nil
	}

	for i, doc := range docs {
		if doc == nil {
			return nil, fmt.Errorf("document %d cannot be nil", i)
		}
	}

	requests := make([]dynamodbtypes.WriteRequest, 0, len(docs))
	ids := make([]attr.Value, len(docs))

	for i, doc := range docs {
		withID := c.withID(doc)

		item, err := c.codec.ItemizeDocument(withID)
		if err != nil {
			return nil, fmt.Errorf("failed to encode document %d: %w", i, err)
		}

		ids[i] = withID[IDAttr]
		requests = append(requests, dynamodbtypes.WriteRequest{
			PutRequest: &dynamodbtypes.PutRequest{Item: item},
		})
	}

	// Ids are only handed back once every document has encoded.
	for i, doc := range docs {
		doc[IDAttr] = ids[i]
	}

	chunks := slices.Collect(slices.Chunk(requests, c.opts.batchWriteSize))
	failures := make([]error, len(chunks))

	// The group is not derived from ctx: one failed chunk must not cancel
	// the others.
	var g errgroup.Group
	g.SetLimit(c.opts.batchConcurrency)

	for i, chunk := range chunks {
		g.Go(func() error {
			if err := c.batchWrite(ctx, table, chunk); err != nil {
				c.logger.WithField("table", table).WithField("chunk", i).Errorf("Failed to write chunk of %d documents: %v", len(chunk), err)
				failures[i] = err
			}
			return nil
		})
	}

	_ = g.Wait()

	var batchErr *BatchWriteError

	for i, failure := range failures {
		if failure == nil {
			continue
		}

		if batchErr == nil {
			batchErr = &BatchWriteError{Table: table, Chunks: len(chunks)}
		}

		start := i * c.opts.batchWriteSize
		batchErr.Failed = append(batchErr.Failed, &ChunkError{
			Chunk: i,
			Start: start,
			End:   start + len(chunks[i]),
			Err:   failure,
		})
	}

	if batchErr != nil {
		return nil, batchErr
	}

	c.logger.WithField("table", table).Debugf("Created %d documents in %d chunks", len(docs), len(chunks))

	return docs, nil
}

// Truncate deletes every item in the table. It reads the key schema first
// and scans only the key attributes.
//
// This method is intended for tests and local development. Do not call it
// in production.
func (c *Client) Truncate(ctx context.Context, table string) (err error) {
	started := time.Now()
	defer func() { c.observe(table, opTruncate, started, err) }()

	if err := c.check(table); err != nil {
		return err
	}

	description, err := c.describe(ctx, table)
	if err != nil {
		return err
	}

	if len(description.KeySchema) == 0 {
		return fmt.Errorf("table %s has no key schema", table)
	}

	names := make(map[string]string, len(description.KeySchema))
	keyAttrs := make([]string, 0, len(description.KeySchema))
	projection := ""

	for i, k := range description.KeySchema {
		placeholder := fmt.Sprintf("#k%d", i)
		names[placeholder] = aws.ToString(k.AttributeName)
		keyAttrs = append(keyAttrs, aws.ToString(k.AttributeName))

		if projection != "" {
			projection += ", "
		}
		projection += placeholder
	}

	input := &dynamodb.ScanInput{
		TableName:                aws.String(table),
		ProjectionExpression:     aws.String(projection),
		ExpressionAttributeNames: names,
	}

	deleted := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		output, err := c.client.Scan(ctx, input)
		if err != nil {
			return &ServiceError{Operation: "scan", Table: table, Err: err}
		}

		for batch := range slices.Chunk(output.Items, maxBatchWriteItems) {
			requests := make([]dynamodbtypes.WriteRequest, 0, len(batch))

			for _, item := range batch {
				key := make(map[string]dynamodbtypes.AttributeValue, len(keyAttrs))
				for _, name := range keyAttrs {
					key[name] = item[name]
				}

				requests = append(requests, dynamodbtypes.WriteRequest{
					DeleteRequest: &dynamodbtypes.DeleteRequest{Key: key},
				})
			}

			if err := c.batchWrite(ctx, table, requests); err != nil {
				return err
			}

			deleted += len(requests)
		}

		if len(output.LastEvaluatedKey) == 0 {
			break
		}

		input.ExclusiveStartKey = output.LastEvaluatedKey
	}

	c.logger.WithField("table", table).Infof("Truncated table, %d items deleted", deleted)

	return nil
}

// batchWrite sends one BatchWriteItem request and retries unprocessed items
// with exponential backoff.
func (c *Client) batchWrite(ctx context.Context, table string, requests []dynamodbtypes.WriteRequest) error {
	input := &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]dynamodbtypes.WriteRequest{
			table: requests,
		},
	}

	backoff := c.opts.initialBackoff

	for attempt := 0; attempt <= c.opts.unprocessedRetries; attempt++ {
		output, err := c.client.BatchWriteItem(ctx, input)
		if err != nil {
			return &ServiceError{Operation: "batch write items to", Table: table, Err: err}
		}

		if len(output.UnprocessedItems) == 0 {
			return nil
		}

		input.RequestItems = output.UnprocessedItems

		if attempt == c.opts.unprocessedRetries {
			break
		}

		c.logger.WithField("table", table).Warnf("Retrying %d unprocessed items in %s", len(output.UnprocessedItems[table]), backoff)

		if err := sleep(ctx, backoff); err != nil {
			return err
		}

		backoff = min(backoff*2, maxBackoff)
	}

	return fmt.Errorf("%w: %d items after %d retries", ErrUnprocessedItems, len(input.RequestItems[table]), c.opts.unprocessedRetries)
}
