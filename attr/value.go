package attr

import (
	"bytes"
	"maps"
	"slices"
)

// Kind identifies the variant of a [Value].
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindBinary
	KindStringSet
	KindNumberSet
	KindBinarySet
	KindList
	KindMap
)

var kindTags = [...]string{
	KindNull:      "NULL",
	KindBool:      "BOOL",
	KindNumber:    "N",
	KindString:    "S",
	KindBinary:    "B",
	KindStringSet: "SS",
	KindNumberSet: "NS",
	KindBinarySet: "BS",
	KindList:      "L",
	KindMap:       "M",
}

// Tag returns the DynamoDB type tag for the kind, e.g. "S" or "NS".
func (k Kind) Tag() string {
	if k < 0 || int(k) >= len(kindTags) {
		return ""
	}

	return kindTags[k]
}

func (k Kind) String() string {
	if t := k.Tag(); t != "" {
		return t
	}

	return "UNKNOWN"
}

// Value is a generic document value. The set of implementations is closed:
// [Null], [Bool], [Number], [String], [Binary], [StringSet], [NumberSet],
// [BinarySet], [List] and [Map].
type Value interface {
	Kind() Kind
	isValue()
}

// Null is the absence of a value.
type Null struct{}

// Bool is a boolean value.
type Bool bool

// String is a UTF-8 string value. Empty strings cannot be itemized.
type String string

// Binary is a raw byte payload. Empty payloads cannot be itemized.
type Binary []byte

// StringSet is a set of strings. Order is preserved but not significant.
type StringSet []string

// NumberSet is a set of numbers. Order is preserved but not significant.
type NumberSet []Number

// BinarySet is a set of byte payloads. Order is preserved but not significant.
type BinarySet [][]byte

// List is an ordered, possibly heterogeneous sequence of values.
type List []Value

// Map maps string keys to values.
type Map map[string]Value

// Document is a top-level item: attribute names to values.
type Document = Map

func (Null) Kind() Kind      { return KindNull }
func (Bool) Kind() Kind      { return KindBool }
func (Number) Kind() Kind    { return KindNumber }
func (String) Kind() Kind    { return KindString }
func (Binary) Kind() Kind    { return KindBinary }
func (StringSet) Kind() Kind { return KindStringSet }
func (NumberSet) Kind() Kind { return KindNumberSet }
func (BinarySet) Kind() Kind { return KindBinarySet }
func (List) Kind() Kind      { return KindList }
func (Map) Kind() Kind       { return KindMap }

func (Null) isValue()      {}
func (Bool) isValue()      {}
func (Number) isValue()    {}
func (String) isValue()    {}
func (Binary) isValue()    {}
func (StringSet) isValue() {}
func (NumberSet) isValue() {}
func (BinarySet) isValue() {}
func (List) isValue()      {}
func (Map) isValue()       {}

// Strings returns a StringSet of the given elements with duplicates removed.
func Strings(elems ...string) StringSet {
	out := make(StringSet, 0, len(elems))
	for _, e := range elems {
		if !slices.Contains(out, e) {
			out = append(out, e)
		}
	}

	return out
}

// Numbers returns a NumberSet of the given elements with duplicates removed.
func Numbers(elems ...Number) NumberSet {
	out := make(NumberSet, 0, len(elems))
	for _, e := range elems {
		if !slices.Contains(out, e) {
			out = append(out, e)
		}
	}

	return out
}

// Binaries returns a BinarySet of the given elements with duplicates removed.
func Binaries(elems ...[]byte) BinarySet {
	out := make(BinarySet, 0, len(elems))
	for _, e := range elems {
		if !slices.ContainsFunc(out, func(b []byte) bool { return bytes.Equal(b, e) }) {
			out = append(out, e)
		}
	}

	return out
}

// NewSet builds a set from dynamically typed elements. The set kind is taken
// from the first element: strings give a StringSet, numbers (Go numeric types,
// json.Number or Number) give a NumberSet and byte slices give a BinarySet.
// Every other element must be of the same kind.
func NewSet(elems ...any) (Value, error) {
	if len(elems) == 0 {
		return nil, ErrEmptyValueNotAllowed
	}

	first, err := FromAny(elems[0])
	if err != nil {
		return nil, pathErr("[0]", err)
	}

	switch first.Kind() {
	case KindString:
		out := make([]string, 0, len(elems))
		for i, e := range elems {
			v, err := setElem(i, e, KindString)
			if err != nil {
				return nil, err
			}
			out = append(out, string(v.(String)))
		}
		return Strings(out...), nil
	case KindNumber:
		out := make([]Number, 0, len(elems))
		for i, e := range elems {
			v, err := setElem(i, e, KindNumber)
			if err != nil {
				return nil, err
			}
			out = append(out, v.(Number))
		}
		return Numbers(out...), nil
	case KindBinary:
		out := make([][]byte, 0, len(elems))
		for i, e := range elems {
			v, err := setElem(i, e, KindBinary)
			if err != nil {
				return nil, err
			}
			out = append(out, []byte(v.(Binary)))
		}
		return Binaries(out...), nil
	default:
		return nil, pathErr("[0]", ErrUnsupportedType)
	}
}

func setElem(i int, e any, want Kind) (Value, error) {
	v, err := FromAny(e)
	if err != nil {
		return nil, pathErr(indexPath("", i), err)
	}

	if v.Kind() != want {
		return nil, pathErr(indexPath("", i), ErrMixedSetElementTypes)
	}

	return v, nil
}

// Equal reports whether a and b hold the same value. Sets compare without
// regard to order or duplicate elements; numbers compare by their decimal
// text.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return isNull(a) && isNull(b)
	}

	if a.Kind() != b.Kind() {
		return false
	}

	switch av := a.(type) {
	case Null:
		return true
	case Bool:
		return av == b.(Bool)
	case Number:
		return av == b.(Number)
	case String:
		return av == b.(String)
	case Binary:
		return bytes.Equal(av, b.(Binary))
	case StringSet:
		return sameElements(av, b.(StringSet), func(x, y string) bool { return x == y })
	case NumberSet:
		return sameElements(av, b.(NumberSet), func(x, y Number) bool { return x == y })
	case BinarySet:
		return sameElements(av, b.(BinarySet), bytes.Equal)
	case List:
		bv := b.(List)
		return slices.EqualFunc(av, bv, Equal)
	case Map:
		bv := b.(Map)
		return maps.EqualFunc(av, bv, Equal)
	}

	return false
}

func isNull(v Value) bool {
	if v == nil {
		return true
	}

	_, ok := v.(Null)

	return ok
}

// sameElements compares a and b as sets: duplicates and order are ignored.
func sameElements[T any](a, b []T, eq func(x, y T) bool) bool {
	return containsAll(a, b, eq) && containsAll(b, a, eq)
}

func containsAll[T any](a, b []T, eq func(x, y T) bool) bool {
	for _, y := range b {
		if !slices.ContainsFunc(a, func(x T) bool { return eq(x, y) }) {
			return false
		}
	}

	return true
}
