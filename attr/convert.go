package attr

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
)

// FromAny converts a dynamically typed Go value to a Value:
//
//   - nil and nil pointers become Null
//   - bool becomes Bool
//   - integer and floating point kinds and json.Number become Number
//   - string becomes String
//   - []byte becomes Binary
//   - other slices and arrays become List
//   - maps with string keys become Map
//   - a Value is returned unchanged
//
// Everything else (functions, channels, structs, complex numbers, maps with
// non-string keys) fails with [ErrUnsupportedType]. Use [Marshal] for structs.
//
//nolint:ireturn
func FromAny(in any) (Value, error) {
	return fromAny(in, "", 0)
}

//nolint:ireturn,gocyclo,cyclop
func fromAny(in any, path string, depth int) (Value, error) {
	switch tv := in.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return tv, nil
	case bool:
		return Bool(tv), nil
	case string:
		return String(tv), nil
	case []byte:
		return Binary(tv), nil
	case json.Number:
		n, err := ParseNumber(tv.String())
		if err != nil {
			return nil, pathErr(path, err)
		}
		return n, nil
	case int:
		return Int(int64(tv)), nil
	case int8:
		return Int(int64(tv)), nil
	case int16:
		return Int(int64(tv)), nil
	case int32:
		return Int(int64(tv)), nil
	case int64:
		return Int(tv), nil
	case uint:
		return Uint(uint64(tv)), nil
	case uint8:
		return Uint(uint64(tv)), nil
	case uint16:
		return Uint(uint64(tv)), nil
	case uint32:
		return Uint(uint64(tv)), nil
	case uint64:
		return Uint(tv), nil
	case float32:
		return Number(strconv.FormatFloat(float64(tv), 'g', -1, 32)), nil
	case float64:
		return Float(tv), nil
	}

	rv := reflect.ValueOf(in)

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null{}, nil
		}
		return fromAny(rv.Elem().Interface(), path, depth)
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return Null{}, nil
		}
		if depth >= defaultCodec.MaxDepth() {
			return nil, pathErr(path, ErrMaxDepthExceeded)
		}
		out := make(List, 0, rv.Len())
		for i := range rv.Len() {
			v, err := fromAny(rv.Index(i).Interface(), indexPath(path, i), depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, pathErr(path, fmt.Errorf("%w: %T", ErrUnsupportedType, in))
		}
		if rv.IsNil() {
			return Null{}, nil
		}
		if depth >= defaultCodec.MaxDepth() {
			return nil, pathErr(path, ErrMaxDepthExceeded)
		}
		out := make(Map, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key().String()
			v, err := fromAny(iter.Value().Interface(), keyPath(path, k), depth+1)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	default:
		return nil, pathErr(path, fmt.Errorf("%w: %T", ErrUnsupportedType, in))
	}
}

// ToAny converts v to plain Go values: nil, bool, json.Number, string,
// []byte, []string, []json.Number, [][]byte, []any and map[string]any.
func ToAny(v Value) any {
	switch tv := v.(type) {
	case nil, Null:
		return nil
	case Bool:
		return bool(tv)
	case Number:
		return json.Number(tv)
	case String:
		return string(tv)
	case Binary:
		return []byte(tv)
	case StringSet:
		return []string(tv)
	case NumberSet:
		out := make([]json.Number, len(tv))
		for i, n := range tv {
			out[i] = json.Number(n)
		}
		return out
	case BinarySet:
		return [][]byte(tv)
	case List:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = ToAny(e)
		}
		return out
	case Map:
		out := make(map[string]any, len(tv))
		for k, e := range tv {
			out[k] = ToAny(e)
		}
		return out
	}

	return nil
}

// FromJSON parses plain JSON into a Value. Numbers keep their exact decimal
// text. JSON has no set or binary type, so arrays become List and strings
// become String.
//
//nolint:ireturn
func FromJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var in any
	if err := dec.Decode(&in); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("failed to parse JSON: unexpected data after the top-level value")
	}

	return FromAny(in)
}

// DocumentFromJSON parses a plain JSON object into a Document.
func DocumentFromJSON(data []byte) (Document, error) {
	v, err := FromJSON(data)
	if err != nil {
		return nil, err
	}

	doc, ok := v.(Map)
	if !ok {
		return nil, fmt.Errorf("expected a JSON object, got %s", v.Kind())
	}

	return doc, nil
}

// ToJSON renders v as plain JSON. Binary values become base64 strings and
// sets become arrays.
func ToJSON(v Value) ([]byte, error) {
	return json.Marshal(ToAny(v))
}
