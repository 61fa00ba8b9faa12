// Package attr converts between generic document values and DynamoDB's
// typed attribute encoding.
//
// # Values
//
// [Value] is a closed sum type with one Go type per DynamoDB kind:
//
//	attr.Null{}                      NULL
//	attr.Bool(true)                  BOOL
//	attr.Int(42), attr.Float(1.5)    N
//	attr.String("x")                 S
//	attr.Binary([]byte{1})           B
//	attr.Strings("a", "b")           SS
//	attr.Numbers(attr.Int(1))        NS
//	attr.Binaries([]byte{1})         BS
//	attr.List{...}                   L
//	attr.Map{...}                    M
//
// Numbers are held as decimal strings, so they round-trip exactly. Only the
// conversion to float64 ([Number.Float64]) can lose precision.
//
// # Itemize and Deitemize
//
// [Itemize] encodes a Value as a [types.AttributeValue]; [Deitemize] decodes
// one. [ItemizeDocument] and [DeitemizeItem] work on whole items. DynamoDB
// rejects empty strings, empty binary payloads and empty sets, so Itemize
// fails for them with [ErrEmptyValueNotAllowed]; use [Null] for "no value".
//
// Lists and maps may nest up to [DefaultMaxDepth] levels. Use [NewCodec] for
// a different limit.
//
// # Wire JSON
//
// [EncodeJSON] and [DecodeJSON] read and write the literal DynamoDB JSON
// form ({"S":"x"}, {"B":"<base64>"}). [FromJSON] and [ToJSON] handle plain
// JSON documents.
//
// [types.AttributeValue]: https://pkg.go.dev/github.com/aws/aws-sdk-go-v2/service/dynamodb/types#AttributeValue
package attr
