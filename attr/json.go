package attr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// EncodeJSON renders av in DynamoDB JSON, e.g. {"S":"x"} or {"B":"AQI="}.
func EncodeJSON(av types.AttributeValue) ([]byte, error) {
	return defaultCodec.EncodeJSON(av)
}

// DecodeJSON parses a single attribute in DynamoDB JSON.
//
//nolint:ireturn
func DecodeJSON(data []byte) (types.AttributeValue, error) {
	return defaultCodec.DecodeJSON(data)
}

// EncodeItemJSON renders a whole item as a JSON object of DynamoDB JSON
// attributes.
func EncodeItemJSON(item map[string]types.AttributeValue) ([]byte, error) {
	return defaultCodec.EncodeItemJSON(item)
}

// DecodeItemJSON parses a JSON object of DynamoDB JSON attributes.
func DecodeItemJSON(data []byte) (map[string]types.AttributeValue, error) {
	return defaultCodec.DecodeItemJSON(data)
}

// EncodeJSON renders av in DynamoDB JSON.
func (c Codec) EncodeJSON(av types.AttributeValue) ([]byte, error) {
	w, err := c.toWire(av, "", 0)
	if err != nil {
		return nil, err
	}

	return json.Marshal(w)
}

// EncodeItemJSON renders a whole item in DynamoDB JSON.
func (c Codec) EncodeItemJSON(item map[string]types.AttributeValue) ([]byte, error) {
	out := make(map[string]any, len(item))

	for k, av := range item {
		w, err := c.toWire(av, k, 0)
		if err != nil {
			return nil, err
		}
		out[k] = w
	}

	return json.Marshal(out)
}

// DecodeJSON parses a single attribute in DynamoDB JSON. The object must
// have exactly one key and that key must be a known type tag.
//
//nolint:ireturn
func (c Codec) DecodeJSON(data []byte) (types.AttributeValue, error) {
	return c.fromWire(data, "", 0)
}

// DecodeItemJSON parses a JSON object whose values are DynamoDB JSON
// attributes.
func (c Codec) DecodeItemJSON(data []byte) (map[string]types.AttributeValue, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedAttribute, err)
	}

	if raw == nil {
		return nil, fmt.Errorf("%w: item is not a JSON object", ErrMalformedAttribute)
	}

	item := make(map[string]types.AttributeValue, len(raw))

	for k, msg := range raw {
		av, err := c.fromWire(msg, k, 0)
		if err != nil {
			return nil, err
		}
		item[k] = av
	}

	return item, nil
}

func (c Codec) toWire(av types.AttributeValue, path string, depth int) (map[string]any, error) {
	switch tv := av.(type) {
	case *types.AttributeValueMemberNULL:
		return map[string]any{"NULL": true}, nil
	case *types.AttributeValueMemberBOOL:
		return map[string]any{"BOOL": tv.Value}, nil
	case *types.AttributeValueMemberN:
		return map[string]any{"N": tv.Value}, nil
	case *types.AttributeValueMemberS:
		return map[string]any{"S": tv.Value}, nil
	case *types.AttributeValueMemberB:
		return map[string]any{"B": tv.Value}, nil
	case *types.AttributeValueMemberSS:
		return map[string]any{"SS": nonNil(tv.Value)}, nil
	case *types.AttributeValueMemberNS:
		return map[string]any{"NS": nonNil(tv.Value)}, nil
	case *types.AttributeValueMemberBS:
		return map[string]any{"BS": nonNil(tv.Value)}, nil
	case *types.AttributeValueMemberL:
		if depth >= c.MaxDepth() {
			return nil, pathErr(path, ErrMaxDepthExceeded)
		}
		out := make([]any, 0, len(tv.Value))
		for i, e := range tv.Value {
			w, err := c.toWire(e, indexPath(path, i), depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, w)
		}
		return map[string]any{"L": out}, nil
	case *types.AttributeValueMemberM:
		if depth >= c.MaxDepth() {
			return nil, pathErr(path, ErrMaxDepthExceeded)
		}
		out := make(map[string]any, len(tv.Value))
		for k, e := range tv.Value {
			w, err := c.toWire(e, keyPath(path, k), depth+1)
			if err != nil {
				return nil, err
			}
			out[k] = w
		}
		return map[string]any{"M": out}, nil
	case *types.UnknownUnionMember:
		return nil, pathErr(path, fmt.Errorf("%w: %q", ErrUnknownTypeTag, tv.Tag))
	case nil:
		return nil, pathErr(path, fmt.Errorf("%w: nil attribute", ErrMalformedAttribute))
	default:
		return nil, pathErr(path, fmt.Errorf("%w: %T", ErrUnknownTypeTag, av))
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}

	return s
}

//nolint:ireturn
func (c Codec) fromWire(data []byte, path string, depth int) (types.AttributeValue, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return nil, pathErr(path, fmt.Errorf("%w: attribute is not a JSON object", ErrMalformedAttribute))
	}

	if len(raw) != 1 {
		keys := make([]string, 0, len(raw))
		for k := range raw {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		return nil, pathErr(path, fmt.Errorf("%w: expected exactly one type tag, got %v", ErrMalformedAttribute, keys))
	}

	var tag string
	var payload json.RawMessage
	for k, v := range raw {
		tag, payload = k, v
	}

	malformed := func() error {
		return pathErr(path, fmt.Errorf("%w: invalid %s payload %s", ErrMalformedAttribute, tag, payload))
	}

	switch tag {
	case "NULL":
		var b bool
		if err := json.Unmarshal(payload, &b); err != nil || !b {
			return nil, malformed()
		}
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case "BOOL":
		var b bool
		if err := strictUnmarshal(payload, &b); err != nil {
			return nil, malformed()
		}
		return &types.AttributeValueMemberBOOL{Value: b}, nil
	case "N":
		var s string
		if err := strictUnmarshal(payload, &s); err != nil {
			return nil, malformed()
		}
		if _, err := ParseNumber(s); err != nil {
			return nil, pathErr(path, err)
		}
		return &types.AttributeValueMemberN{Value: s}, nil
	case "S":
		var s string
		if err := strictUnmarshal(payload, &s); err != nil {
			return nil, malformed()
		}
		return &types.AttributeValueMemberS{Value: s}, nil
	case "B":
		var b []byte
		if err := strictUnmarshal(payload, &b); err != nil {
			return nil, malformed()
		}
		return &types.AttributeValueMemberB{Value: b}, nil
	case "SS":
		var ss []string
		if err := strictUnmarshal(payload, &ss); err != nil {
			return nil, malformed()
		}
		return &types.AttributeValueMemberSS{Value: ss}, nil
	case "NS":
		var ns []string
		if err := strictUnmarshal(payload, &ns); err != nil {
			return nil, malformed()
		}
		for i, s := range ns {
			if _, err := ParseNumber(s); err != nil {
				return nil, pathErr(indexPath(path, i), err)
			}
		}
		return &types.AttributeValueMemberNS{Value: ns}, nil
	case "BS":
		var bs [][]byte
		if err := strictUnmarshal(payload, &bs); err != nil {
			return nil, malformed()
		}
		return &types.AttributeValueMemberBS{Value: bs}, nil
	case "L":
		var elems []json.RawMessage
		if err := strictUnmarshal(payload, &elems); err != nil {
			return nil, malformed()
		}
		if depth >= c.MaxDepth() {
			return nil, pathErr(path, ErrMaxDepthExceeded)
		}
		out := make([]types.AttributeValue, 0, len(elems))
		for i, e := range elems {
			av, err := c.fromWire(e, indexPath(path, i), depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, av)
		}
		return &types.AttributeValueMemberL{Value: out}, nil
	case "M":
		var entries map[string]json.RawMessage
		if err := strictUnmarshal(payload, &entries); err != nil {
			return nil, malformed()
		}
		if depth >= c.MaxDepth() {
			return nil, pathErr(path, ErrMaxDepthExceeded)
		}
		out := make(map[string]types.AttributeValue, len(entries))
		for k, e := range entries {
			av, err := c.fromWire(e, keyPath(path, k), depth+1)
			if err != nil {
				return nil, err
			}
			out[k] = av
		}
		return &types.AttributeValueMemberM{Value: out}, nil
	default:
		return nil, pathErr(path, fmt.Errorf("%w: %q", ErrUnknownTypeTag, tag))
	}
}

// strictUnmarshal rejects JSON null, which encoding/json would otherwise
// accept silently for slices, maps and strings.
func strictUnmarshal(data []byte, v any) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return fmt.Errorf("%w: null payload", ErrMalformedAttribute)
	}

	return json.Unmarshal(data, v)
}
