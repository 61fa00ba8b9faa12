// Package dynadoc stores schemaless documents in DynamoDB tables.
//
// # Overview
//
// A document is an [attr.Document]: a map of field names to [attr.Value]s.
// The client converts documents to DynamoDB items with the [attr] codec and
// back again, so callers never handle DynamoDB attribute values directly.
//
// Every table is expected to use a string partition key named "id"
// ([IDAttr]). [Client.VerifyTable] checks this.
//
// # Getting Started
//
// Create a [Client] with [New], supplying an AWS config and any [Option]
// values you need, then call [Client.Connect]:
//
//	client := dynadoc.New(
//	    &awsCfg,
//	    dynadoc.WithLogger(logger),
//	    dynadoc.WithBatchConcurrency(8),
//	)
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//
//	doc, err := client.Create(ctx, "users", attr.Document{
//	    "name": attr.String("Ada"),
//	    "age":  attr.Int(36),
//	}, nil)
//
// Passing a nil config makes Connect load the default AWS configuration,
// honouring [WithRegion] and [WithProfile]. Supply [WithAPI] to inject a
// custom or mock implementation of [API].
//
// # Updates
//
// [Client.Update] stores each field of the document it is given. Under the
// default [DeleteFalsy] policy a field whose new value is Null, false, zero
// or the empty string is removed from the stored document instead. Use
// [WithUpdatePolicy] with [DeleteNullOnly] to store those values.
//
// # Batch Writes
//
// [Client.CreateItems] encodes all documents up front, then writes them in
// chunks of up to 25 with bounded concurrency. Chunks that fail are reported
// in a [BatchWriteError]; chunks that succeeded are not rolled back.
//
// # Errors
//
// Failures reported by DynamoDB are returned as [ServiceError] values that
// wrap the SDK error. Use [IsConditionalCheckFailed] and [IsThrottled] to
// classify them, or errors.As with the SDK exception types.
package dynadoc
