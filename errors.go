package dynadoc

import (
	"errors"
	"fmt"
	"strings"

	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

var (
	// ErrNotConnected is returned by every operation called before
	// [Client.Connect] succeeded.
	ErrNotConnected = errors.New("dynadoc: client is not connected")

	// ErrMissingID is returned by [Client.Update] when the document has no
	// usable "id" field.
	ErrMissingID = errors.New("dynadoc: document id cannot be empty")

	// ErrUnprocessedItems is returned when DynamoDB still reports
	// unprocessed batch items or keys after all retries.
	ErrUnprocessedItems = errors.New("dynadoc: unprocessed items remain")
)

// ServiceError wraps an error returned by the DynamoDB service (or the
// transport in front of it) with the operation and table involved.
type ServiceError struct {
	Operation string
	Table     string
	Err       error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("failed to %s DynamoDB table %s: %v", e.Operation, e.Table, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Code returns the DynamoDB error code, such as
// "ConditionalCheckFailedException", or an empty string when the cause is
// not an API error.
func (e *ServiceError) Code() string {
	var apiErr smithy.APIError
	if errors.As(e.Err, &apiErr) {
		return apiErr.ErrorCode()
	}

	return ""
}

// IsConditionalCheckFailed reports whether err was caused by a failed
// condition expression.
func IsConditionalCheckFailed(err error) bool {
	var ccf *dynamodbtypes.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// IsThrottled reports whether err was caused by DynamoDB throttling the
// request after the SDK gave up retrying.
func IsThrottled(err error) bool {
	var ptee *dynamodbtypes.ProvisionedThroughputExceededException
	if errors.As(err, &ptee) {
		return true
	}

	var rle *dynamodbtypes.RequestLimitExceeded
	if errors.As(err, &rle) {
		return true
	}

	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "ThrottlingException"
}

// ChunkError describes one failed BatchWriteItem request of
// [Client.CreateItems]. Start and End delimit the affected documents as the
// half-open range [Start, End) of the input slice.
type ChunkError struct {
	Chunk int
	Start int
	End   int
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d (documents %d to %d): %v", e.Chunk, e.Start, e.End-1, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

// BatchWriteError is returned by [Client.CreateItems] when one or more
// chunks could not be written. Chunks not listed in Failed were written and
// are not rolled back.
type BatchWriteError struct {
	Table  string
	Chunks int
	Failed []*ChunkError
}

func (e *BatchWriteError) Error() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "failed to write %d of %d chunks to DynamoDB table %s", len(e.Failed), e.Chunks, e.Table)

	for i, f := range e.Failed {
		if i == 0 {
			sb.WriteString(": ")
		} else {
			sb.WriteString("; ")
		}
		sb.WriteString(f.Error())
	}

	return sb.String()
}

func (e *BatchWriteError) Unwrap() []error {
	errs := make([]error, len(e.Failed))
	for i, f := range e.Failed {
		errs[i] = f
	}

	return errs
}
