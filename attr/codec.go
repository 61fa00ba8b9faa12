package attr

import (
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DefaultMaxDepth is the nesting limit DynamoDB applies to lists and maps.
const DefaultMaxDepth = 32

// Codec converts between [Value] and DynamoDB attribute values. The zero
// Codec uses [DefaultMaxDepth]. A Codec is immutable and safe for concurrent
// use.
type Codec struct {
	maxDepth int
}

// NewCodec returns a Codec that rejects values nested deeper than maxDepth
// lists and maps. A maxDepth of zero or less selects [DefaultMaxDepth].
func NewCodec(maxDepth int) Codec {
	return Codec{maxDepth: maxDepth}
}

// MaxDepth returns the nesting limit in effect.
func (c Codec) MaxDepth() int {
	if c.maxDepth <= 0 {
		return DefaultMaxDepth
	}

	return c.maxDepth
}

var defaultCodec Codec

// Itemize encodes v using the default codec.
//
//nolint:ireturn
func Itemize(v Value) (types.AttributeValue, error) {
	return defaultCodec.Itemize(v)
}

// Deitemize decodes av using the default codec.
//
//nolint:ireturn
func Deitemize(av types.AttributeValue) (Value, error) {
	return defaultCodec.Deitemize(av)
}

// ItemizeDocument encodes every attribute of doc using the default codec.
func ItemizeDocument(doc Document) (map[string]types.AttributeValue, error) {
	return defaultCodec.ItemizeDocument(doc)
}

// DeitemizeItem decodes every attribute of item using the default codec.
func DeitemizeItem(item map[string]types.AttributeValue) (Document, error) {
	return defaultCodec.DeitemizeItem(item)
}

// Itemize encodes v as a DynamoDB attribute value. A nil v encodes as NULL.
//
//nolint:ireturn
func (c Codec) Itemize(v Value) (types.AttributeValue, error) {
	return c.itemize(v, "", 0)
}

// ItemizeDocument encodes every attribute of doc. Errors name the offending
// attribute in their path.
func (c Codec) ItemizeDocument(doc Document) (map[string]types.AttributeValue, error) {
	item := make(map[string]types.AttributeValue, len(doc))

	for k, v := range doc {
		av, err := c.itemize(v, k, 0)
		if err != nil {
			return nil, err
		}
		item[k] = av
	}

	return item, nil
}

//nolint:ireturn
func (c Codec) itemize(v Value, path string, depth int) (types.AttributeValue, error) {
	switch tv := v.(type) {
	case nil, Null:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case Bool:
		return &types.AttributeValueMemberBOOL{Value: bool(tv)}, nil
	case Number:
		if err := tv.validate(); err != nil {
			return nil, pathErr(path, err)
		}
		return &types.AttributeValueMemberN{Value: string(tv)}, nil
	case String:
		if tv == "" {
			return nil, pathErr(path, ErrEmptyValueNotAllowed)
		}
		return &types.AttributeValueMemberS{Value: string(tv)}, nil
	case Binary:
		if len(tv) == 0 {
			return nil, pathErr(path, ErrEmptyValueNotAllowed)
		}
		return &types.AttributeValueMemberB{Value: []byte(tv)}, nil
	case StringSet:
		return itemizeStringSet(tv, path)
	case NumberSet:
		return itemizeNumberSet(tv, path)
	case BinarySet:
		return itemizeBinarySet(tv, path)
	case List:
		if depth >= c.MaxDepth() {
			return nil, pathErr(path, ErrMaxDepthExceeded)
		}
		out := make([]types.AttributeValue, 0, len(tv))
		for i, e := range tv {
			av, err := c.itemize(e, indexPath(path, i), depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, av)
		}
		return &types.AttributeValueMemberL{Value: out}, nil
	case Map:
		if depth >= c.MaxDepth() {
			return nil, pathErr(path, ErrMaxDepthExceeded)
		}
		out := make(map[string]types.AttributeValue, len(tv))
		for k, e := range tv {
			av, err := c.itemize(e, keyPath(path, k), depth+1)
			if err != nil {
				return nil, err
			}
			out[k] = av
		}
		return &types.AttributeValueMemberM{Value: out}, nil
	default:
		return nil, pathErr(path, fmt.Errorf("%w: %T", ErrUnsupportedType, v))
	}
}

//nolint:ireturn
func itemizeStringSet(set StringSet, path string) (types.AttributeValue, error) {
	if len(set) == 0 {
		return nil, pathErr(path, ErrEmptyValueNotAllowed)
	}

	for i, e := range set {
		if e == "" {
			return nil, pathErr(indexPath(path, i), ErrEmptyValueNotAllowed)
		}
	}

	return &types.AttributeValueMemberSS{Value: []string(Strings(set...))}, nil
}

//nolint:ireturn
func itemizeNumberSet(set NumberSet, path string) (types.AttributeValue, error) {
	if len(set) == 0 {
		return nil, pathErr(path, ErrEmptyValueNotAllowed)
	}

	for i, e := range set {
		if err := e.validate(); err != nil {
			return nil, pathErr(indexPath(path, i), err)
		}
	}

	unique := Numbers(set...)
	out := make([]string, 0, len(unique))

	for _, e := range unique {
		out = append(out, string(e))
	}

	return &types.AttributeValueMemberNS{Value: out}, nil
}

//nolint:ireturn
func itemizeBinarySet(set BinarySet, path string) (types.AttributeValue, error) {
	if len(set) == 0 {
		return nil, pathErr(path, ErrEmptyValueNotAllowed)
	}

	for i, e := range set {
		if len(e) == 0 {
			return nil, pathErr(indexPath(path, i), ErrEmptyValueNotAllowed)
		}
	}

	return &types.AttributeValueMemberBS{Value: [][]byte(Binaries(set...))}, nil
}

// Deitemize decodes a DynamoDB attribute value.
//
//nolint:ireturn
func (c Codec) Deitemize(av types.AttributeValue) (Value, error) {
	return c.deitemize(av, "", 0)
}

// DeitemizeItem decodes every attribute of item. A nil item decodes to a nil
// Document.
func (c Codec) DeitemizeItem(item map[string]types.AttributeValue) (Document, error) {
	if item == nil {
		return nil, nil
	}

	doc := make(Document, len(item))

	for k, av := range item {
		v, err := c.deitemize(av, k, 0)
		if err != nil {
			return nil, err
		}
		doc[k] = v
	}

	return doc, nil
}

//nolint:ireturn
func (c Codec) deitemize(av types.AttributeValue, path string, depth int) (Value, error) {
	switch tv := av.(type) {
	case nil:
		return nil, pathErr(path, fmt.Errorf("%w: nil attribute", ErrMalformedAttribute))
	case *types.AttributeValueMemberNULL:
		if tv == nil {
			return nil, pathErr(path, fmt.Errorf("%w: nil NULL member", ErrMalformedAttribute))
		}
		return Null{}, nil
	case *types.AttributeValueMemberBOOL:
		if tv == nil {
			return nil, pathErr(path, fmt.Errorf("%w: nil BOOL member", ErrMalformedAttribute))
		}
		return Bool(tv.Value), nil
	case *types.AttributeValueMemberN:
		if tv == nil {
			return nil, pathErr(path, fmt.Errorf("%w: nil N member", ErrMalformedAttribute))
		}
		n, err := ParseNumber(tv.Value)
		if err != nil {
			return nil, pathErr(path, err)
		}
		return n, nil
	case *types.AttributeValueMemberS:
		if tv == nil {
			return nil, pathErr(path, fmt.Errorf("%w: nil S member", ErrMalformedAttribute))
		}
		return String(tv.Value), nil
	case *types.AttributeValueMemberB:
		if tv == nil {
			return nil, pathErr(path, fmt.Errorf("%w: nil B member", ErrMalformedAttribute))
		}
		return Binary(tv.Value), nil
	case *types.AttributeValueMemberSS:
		if tv == nil {
			return nil, pathErr(path, fmt.Errorf("%w: nil SS member", ErrMalformedAttribute))
		}
		return StringSet(tv.Value), nil
	case *types.AttributeValueMemberNS:
		if tv == nil {
			return nil, pathErr(path, fmt.Errorf("%w: nil NS member", ErrMalformedAttribute))
		}
		out := make(NumberSet, 0, len(tv.Value))
		for i, s := range tv.Value {
			n, err := ParseNumber(s)
			if err != nil {
				return nil, pathErr(indexPath(path, i), err)
			}
			out = append(out, n)
		}
		return out, nil
	case *types.AttributeValueMemberBS:
		if tv == nil {
			return nil, pathErr(path, fmt.Errorf("%w: nil BS member", ErrMalformedAttribute))
		}
		return BinarySet(tv.Value), nil
	case *types.AttributeValueMemberL:
		if tv == nil {
			return nil, pathErr(path, fmt.Errorf("%w: nil L member", ErrMalformedAttribute))
		}
		if depth >= c.MaxDepth() {
			return nil, pathErr(path, ErrMaxDepthExceeded)
		}
		out := make(List, 0, len(tv.Value))
		for i, e := range tv.Value {
			v, err := c.deitemize(e, indexPath(path, i), depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case *types.AttributeValueMemberM:
		if tv == nil {
			return nil, pathErr(path, fmt.Errorf("%w: nil M member", ErrMalformedAttribute))
		}
		if depth >= c.MaxDepth() {
			return nil, pathErr(path, ErrMaxDepthExceeded)
		}
		out := make(Map, len(tv.Value))
		for k, e := range tv.Value {
			v, err := c.deitemize(e, keyPath(path, k), depth+1)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	case *types.UnknownUnionMember:
		if tv == nil {
			return nil, pathErr(path, fmt.Errorf("%w: nil member", ErrMalformedAttribute))
		}
		return nil, pathErr(path, fmt.Errorf("%w: %q", ErrUnknownTypeTag, tv.Tag))
	default:
		return nil, pathErr(path, fmt.Errorf("%w: %T", ErrUnknownTypeTag, av))
	}
}

func keyPath(path, key string) string {
	if path == "" {
		return key
	}

	return path + "." + key
}

func indexPath(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}
