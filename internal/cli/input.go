package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/slackmgr/dynadoc"
	"github.com/slackmgr/dynadoc/attr"
)

// readArg returns the argument itself, or standard input when it is "-".
func readArg(stdin io.Reader, arg string) ([]byte, error) {
	if arg != "-" {
		return []byte(arg), nil
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read standard input: %w", err)
	}

	return data, nil
}

// readFile reads the named file, or standard input when path is "-".
func readFile(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return readArg(stdin, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return data, nil
}

// decodeDocument parses a single document, either as plain JSON or, when wire
// is set, as DynamoDB JSON.
func decodeDocument(data []byte, wire bool) (attr.Document, error) {
	if !wire {
		return attr.DocumentFromJSON(data)
	}

	item, err := attr.DecodeItemJSON(data)
	if err != nil {
		return nil, err
	}

	return attr.DeitemizeItem(item)
}

// decodeDocuments parses a JSON array of documents.
func decodeDocuments(data []byte, wire bool) ([]attr.Document, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("expected a JSON array of documents: %w", err)
	}

	docs := make([]attr.Document, 0, len(raw))

	for i, r := range raw {
		doc, err := decodeDocument(r, wire)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}

		docs = append(docs, doc)
	}

	return docs, nil
}

// parseConditions parses repeated key=OP:json flags.
func parseConditions(specs []string) ([]dynadoc.Condition, error) {
	conds := make([]dynadoc.Condition, 0, len(specs))

	for _, s := range specs {
		c, err := parseCondition(s)
		if err != nil {
			return nil, err
		}

		conds = append(conds, c)
	}

	return conds, nil
}

// parseCondition parses "key=OP:json". NULL and NOT_NULL take no value, while
// BETWEEN and IN take a JSON array.
func parseCondition(s string) (dynadoc.Condition, error) {
	key, rest, ok := strings.Cut(s, "=")
	if !ok || key == "" {
		return dynadoc.Condition{}, fmt.Errorf("invalid condition %q: expected key=OP:json", s)
	}

	name, raw, hasValue := strings.Cut(rest, ":")
	op := dynamodbtypes.ComparisonOperator(strings.ToUpper(name))

	if !slices.Contains(op.Values(), op) {
		return dynadoc.Condition{}, fmt.Errorf("invalid condition %q: unknown operator %s", s, name)
	}

	cond := dynadoc.Condition{Key: key, Operator: op}

	switch op {
	case dynamodbtypes.ComparisonOperatorNull, dynamodbtypes.ComparisonOperatorNotNull:
		if hasValue {
			return dynadoc.Condition{}, fmt.Errorf("invalid condition %q: %s takes no value", s, op)
		}
		return cond, nil
	}

	if !hasValue || raw == "" {
		return dynadoc.Condition{}, fmt.Errorf("invalid condition %q: %s requires a value", s, op)
	}

	v, err := attr.FromJSON([]byte(raw))
	if err != nil {
		return dynadoc.Condition{}, fmt.Errorf("invalid condition %q: %w", s, err)
	}

	switch op {
	case dynamodbtypes.ComparisonOperatorBetween, dynamodbtypes.ComparisonOperatorIn:
		list, ok := v.(attr.List)
		if !ok || len(list) == 0 {
			return dynadoc.Condition{}, fmt.Errorf("invalid condition %q: %s requires a JSON array", s, op)
		}
		if op == dynamodbtypes.ComparisonOperatorBetween && len(list) != 2 {
			return dynadoc.Condition{}, fmt.Errorf("invalid condition %q: BETWEEN requires exactly two values", s)
		}
		cond.Values = []attr.Value(list)
	default:
		cond.Values = []attr.Value{v}
	}

	return cond, nil
}

// parseExpression builds an expression from its text and the optional
// --names and --values JSON objects.
func parseExpression(expr, names, values string, wire bool) (*dynadoc.Expression, error) {
	if expr == "" {
		if names != "" || values != "" {
			return nil, errors.New("--names and --values require an expression")
		}
		return nil, nil //nolint:nilnil
	}

	e := &dynadoc.Expression{Expression: expr}

	if names != "" {
		if err := json.Unmarshal([]byte(names), &e.Names); err != nil {
			return nil, fmt.Errorf("invalid --names: %w", err)
		}
	}

	if values != "" {
		doc, err := decodeDocument([]byte(values), wire)
		if err != nil {
			return nil, fmt.Errorf("invalid --values: %w", err)
		}
		e.Values = doc
	}

	return e, nil
}
