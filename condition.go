package dynadoc

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/slackmgr/dynadoc/attr"
)

// Condition compares one attribute using a DynamoDB comparison operator.
// It is used for [Client.List] filters, [Conditions] key conditions and
// [QueryOptions.Filter].
type Condition struct {
	Key      string
	Operator dynamodbtypes.ComparisonOperator
	Values   []attr.Value
}

// Equal matches documents whose key attribute equals v.
func Equal(key string, v attr.Value) Condition {
	return Condition{Key: key, Operator: dynamodbtypes.ComparisonOperatorEq, Values: []attr.Value{v}}
}

// NotEqual matches documents whose key attribute differs from v.
func NotEqual(key string, v attr.Value) Condition {
	return Condition{Key: key, Operator: dynamodbtypes.ComparisonOperatorNe, Values: []attr.Value{v}}
}

// LessThan matches values below v.
func LessThan(key string, v attr.Value) Condition {
	return Condition{Key: key, Operator: dynamodbtypes.ComparisonOperatorLt, Values: []attr.Value{v}}
}

// LessOrEqual matches values at or below v.
func LessOrEqual(key string, v attr.Value) Condition {
	return Condition{Key: key, Operator: dynamodbtypes.ComparisonOperatorLe, Values: []attr.Value{v}}
}

// GreaterThan matches values above v.
func GreaterThan(key string, v attr.Value) Condition {
	return Condition{Key: key, Operator: dynamodbtypes.ComparisonOperatorGt, Values: []attr.Value{v}}
}

// GreaterOrEqual matches values at or above v.
func GreaterOrEqual(key string, v attr.Value) Condition {
	return Condition{Key: key, Operator: dynamodbtypes.ComparisonOperatorGe, Values: []attr.Value{v}}
}

// BeginsWith matches strings or binaries starting with prefix.
func BeginsWith(key string, prefix attr.Value) Condition {
	return Condition{Key: key, Operator: dynamodbtypes.ComparisonOperatorBeginsWith, Values: []attr.Value{prefix}}
}

// Between matches values in the inclusive range [lo, hi].
func Between(key string, lo, hi attr.Value) Condition {
	return Condition{Key: key, Operator: dynamodbtypes.ComparisonOperatorBetween, Values: []attr.Value{lo, hi}}
}

// Contains matches a string containing v, or a set or list holding v.
func Contains(key string, v attr.Value) Condition {
	return Condition{Key: key, Operator: dynamodbtypes.ComparisonOperatorContains, Values: []attr.Value{v}}
}

// In matches any of vals.
func In(key string, vals ...attr.Value) Condition {
	return Condition{Key: key, Operator: dynamodbtypes.ComparisonOperatorIn, Values: vals}
}

// Exists matches documents that have the attribute.
func Exists(key string) Condition {
	return Condition{Key: key, Operator: dynamodbtypes.ComparisonOperatorNotNull}
}

// NotExists matches documents that lack the attribute.
func NotExists(key string) Condition {
	return Condition{Key: key, Operator: dynamodbtypes.ComparisonOperatorNull}
}

func conditionMap(codec attr.Codec, conds []Condition) (map[string]dynamodbtypes.Condition, error) {
	if len(conds) == 0 {
		return nil, nil //nolint:nilnil
	}

	m := make(map[string]dynamodbtypes.Condition, len(conds))

	for _, cond := range conds {
		if cond.Key == "" {
			return nil, errors.New("condition key cannot be empty")
		}

		if cond.Operator == "" {
			return nil, fmt.Errorf("condition on %s has no operator", cond.Key)
		}

		if _, ok := m[cond.Key]; ok {
			return nil, fmt.Errorf("duplicate condition on %s", cond.Key)
		}

		var values []dynamodbtypes.AttributeValue

		for _, v := range cond.Values {
			av, err := codec.Itemize(v)
			if err != nil {
				return nil, fmt.Errorf("invalid value in condition on %s: %w", cond.Key, err)
			}
			values = append(values, av)
		}

		m[cond.Key] = dynamodbtypes.Condition{
			ComparisonOperator: cond.Operator,
			AttributeValueList: values,
		}
	}

	return m, nil
}

// Expression is a DynamoDB expression with its placeholder substitutions,
// e.g. "#s = :s AND #n > :n" with Names {"#s": "status", "#n": "count"}.
type Expression struct {
	Expression string
	Names      map[string]string
	Values     map[string]attr.Value
}

func (e *Expression) names() map[string]string {
	if len(e.Names) == 0 {
		return nil
	}

	return e.Names
}

func (e *Expression) values(codec attr.Codec) (map[string]dynamodbtypes.AttributeValue, error) {
	if len(e.Values) == 0 {
		return nil, nil //nolint:nilnil
	}

	values, err := codec.ItemizeDocument(e.Values)
	if err != nil {
		return nil, fmt.Errorf("invalid expression value: %w", err)
	}

	return values, nil
}

func (e *Expression) applyQuery(input *dynamodb.QueryInput, codec attr.Codec) error {
	if e == nil {
		return errors.New("key condition expression cannot be nil")
	}

	if e.Expression == "" {
		return errors.New("key condition expression cannot be empty")
	}

	values, err := e.values(codec)
	if err != nil {
		return err
	}

	input.KeyConditionExpression = aws.String(e.Expression)
	input.ExpressionAttributeNames = e.names()
	input.ExpressionAttributeValues = values

	return nil
}

func (e *Expression) applyPut(input *dynamodb.PutItemInput, codec attr.Codec) error {
	if e.Expression == "" {
		return errors.New("condition expression cannot be empty")
	}

	values, err := e.values(codec)
	if err != nil {
		return err
	}

	input.ConditionExpression = aws.String(e.Expression)
	input.ExpressionAttributeNames = e.names()
	input.ExpressionAttributeValues = values

	return nil
}

// KeyCondition selects the partition (and optionally a sort key range) for
// [Client.Query]. It is either [Conditions] or an *[Expression].
type KeyCondition interface {
	applyQuery(input *dynamodb.QueryInput, codec attr.Codec) error
}

// Conditions is a [KeyCondition] made of per-attribute comparisons. It must
// hold an equality condition on the partition key.
type Conditions []Condition

func (cs Conditions) applyQuery(input *dynamodb.QueryInput, codec attr.Codec) error {
	if len(cs) == 0 {
		return errors.New("key conditions cannot be empty")
	}

	m, err := conditionMap(codec, cs)
	if err != nil {
		return err
	}

	input.KeyConditions = m

	return nil
}

// QueryOptions refine [Client.Query]. A nil *QueryOptions queries the table
// itself in ascending key order without a limit.
type QueryOptions struct {
	// Index is the name of a secondary index to query instead of the table.
	Index string

	// Reverse returns documents in descending sort key order.
	Reverse bool

	// Limit caps the number of documents returned. Zero means no limit.
	Limit int

	// Filter is applied after the key condition. It cannot be combined with
	// an *Expression key condition.
	Filter []Condition
}
