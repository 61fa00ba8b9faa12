package dynadoc

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/slackmgr/types"
)

// Option is a functional option for configuring a [Client].
type Option func(*Options)

// UpdatePolicy decides which field values [Client.Update] turns into a
// DELETE action instead of a PUT.
type UpdatePolicy int

const (
	// DeleteFalsy removes a field whose new value is Null, Bool(false), a
	// numeric zero or the empty string. This is the default.
	DeleteFalsy UpdatePolicy = iota

	// DeleteNullOnly removes a field only when its new value is Null (or a
	// nil Value). Zero, false and empty strings are written as values.
	DeleteNullOnly
)

func (p UpdatePolicy) String() string {
	switch p {
	case DeleteFalsy:
		return "delete-falsy"
	case DeleteNullOnly:
		return "delete-null-only"
	default:
		return "unknown"
	}
}

// Options holds the configuration for a [Client]. Use [Option] functions
// (such as [WithLogger] or [WithBatchConcurrency]) to customise the defaults.
type Options struct {
	dynamoDBAPI          API
	logger               types.Logger
	registerer           prometheus.Registerer
	idGenerator          func() string
	updatePolicy         UpdatePolicy
	maxDepth             int
	batchWriteSize       int
	batchConcurrency     int
	unprocessedRetries   int
	initialBackoff       time.Duration
	maxRetryAttempts     int
	maxRetryBackoffDelay time.Duration
	region               string
	profile              string
	endpoint             string
}

func newOptions() *Options {
	return &Options{
		logger:               nopLogger{},
		idGenerator:          uuid.NewString,
		updatePolicy:         DeleteFalsy,
		batchWriteSize:       maxBatchWriteItems,
		batchConcurrency:     4,
		unprocessedRetries:   5,
		initialBackoff:       50 * time.Millisecond,
		maxRetryAttempts:     3,
		maxRetryBackoffDelay: 20 * time.Second,
	}
}

func (o *Options) validate() error {
	if o.logger == nil {
		return errors.New("logger cannot be nil")
	}

	if o.idGenerator == nil {
		return errors.New("id generator cannot be nil")
	}

	if o.updatePolicy != DeleteFalsy && o.updatePolicy != DeleteNullOnly {
		return errors.New("update policy must be DeleteFalsy or DeleteNullOnly")
	}

	if o.maxDepth < 0 || o.maxDepth > 32 {
		return errors.New("max nesting depth must be between 0 (default) and 32")
	}

	if o.batchWriteSize < 1 || o.batchWriteSize > maxBatchWriteItems {
		return errors.New("batch write size must be between 1 and 25")
	}

	if o.batchConcurrency < 1 {
		return errors.New("batch concurrency must be greater than or equal to 1")
	}

	if o.unprocessedRetries < 0 || o.unprocessedRetries > 10 {
		return errors.New("unprocessed item retries must be between 0 and 10")
	}

	if o.initialBackoff <= 0 || o.initialBackoff > maxBackoff {
		return errors.New("initial backoff must be greater than zero and at most 2 seconds")
	}

	if o.maxRetryAttempts < 1 || o.maxRetryAttempts > 10 {
		return errors.New("max DynamoDB API retry attempts must be between 1 and 10")
	}

	if o.maxRetryBackoffDelay < time.Second || o.maxRetryBackoffDelay > time.Minute {
		return errors.New("max DynamoDB API retry backoff delay must be between 1 second and 1 minute")
	}

	return nil
}

// WithAPI sets a custom [API] implementation. This is useful when a custom
// DynamoDB configuration is required, or for injecting mocks in tests.
func WithAPI(api API) Option {
	return func(o *Options) {
		o.dynamoDBAPI = api
	}
}

// WithLogger sets the logger. The client adds a "plugin" field to every
// entry. The default discards all output.
func WithLogger(logger types.Logger) Option {
	return func(o *Options) {
		o.logger = logger
	}
}

// WithMetricsRegisterer enables Prometheus metrics for every operation and
// registers the collectors with reg. Metrics are disabled by default.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(o *Options) {
		o.registerer = reg
	}
}

// WithIDGenerator sets the function used to fill in a missing "id" on
// [Client.Create] and [Client.CreateItems]. Defaults to random UUIDs.
func WithIDGenerator(gen func() string) Option {
	return func(o *Options) {
		o.idGenerator = gen
	}
}

// WithUpdatePolicy selects how [Client.Update] treats falsy field values.
// The default is [DeleteFalsy].
func WithUpdatePolicy(p UpdatePolicy) Option {
	return func(o *Options) {
		o.updatePolicy = p
	}
}

// WithMaxDepth limits how deeply lists and maps may nest in documents.
// Must be between 1 and 32; the default is 32, the DynamoDB limit.
func WithMaxDepth(depth int) Option {
	return func(o *Options) {
		o.maxDepth = depth
	}
}

// WithBatchWriteSize sets how many documents [Client.CreateItems] sends per
// BatchWriteItem request. Must be between 1 and 25. Default: 25.
func WithBatchWriteSize(n int) Option {
	return func(o *Options) {
		o.batchWriteSize = n
	}
}

// WithBatchConcurrency sets how many BatchWriteItem requests
// [Client.CreateItems] keeps in flight. Default: 4.
func WithBatchConcurrency(n int) Option {
	return func(o *Options) {
		o.batchConcurrency = n
	}
}

// WithUnprocessedRetries sets how often unprocessed batch items and keys
// are retried, and the first backoff delay. The delay doubles on each
// attempt up to 2 seconds. Defaults: 5 retries, 50ms.
func WithUnprocessedRetries(retries int, initialBackoff time.Duration) Option {
	return func(o *Options) {
		o.unprocessedRetries = retries
		o.initialBackoff = initialBackoff
	}
}

// WithMaxRetryAttempts sets the maximum number of attempts the AWS SDK makes
// for a single request, including the first. Must be between 1 and 10.
// Default: 3. Ignored when [WithAPI] is used.
func WithMaxRetryAttempts(n int) Option {
	return func(o *Options) {
		o.maxRetryAttempts = n
	}
}

// WithMaxRetryBackoffDelay caps the AWS SDK's backoff between request
// attempts. Must be between 1 second and 1 minute. Default: 20s. Ignored
// when [WithAPI] is used.
func WithMaxRetryBackoffDelay(d time.Duration) Option {
	return func(o *Options) {
		o.maxRetryBackoffDelay = d
	}
}

// WithRegion sets the AWS region used when [New] receives a nil config and
// [Client.Connect] loads the default configuration.
func WithRegion(region string) Option {
	return func(o *Options) {
		o.region = region
	}
}

// WithProfile sets the shared config profile used when [New] receives a nil
// config.
func WithProfile(profile string) Option {
	return func(o *Options) {
		o.profile = profile
	}
}

// WithEndpoint overrides the DynamoDB endpoint URL, e.g. for DynamoDB Local.
// Ignored when [WithAPI] is used.
func WithEndpoint(url string) Option {
	return func(o *Options) {
		o.endpoint = url
	}
}
