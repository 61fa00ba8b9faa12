package attr

import "errors"

var (
	// ErrUnsupportedType is returned when a value has no attribute mapping,
	// for example a function, channel or struct passed to [FromAny].
	ErrUnsupportedType = errors.New("attr: unsupported type")

	// ErrEmptyValueNotAllowed is returned for empty strings, empty binary
	// payloads and empty sets. DynamoDB rejects all three; use [Null] instead.
	ErrEmptyValueNotAllowed = errors.New("attr: empty value not allowed")

	// ErrUnknownTypeTag is returned when a wire attribute carries a type tag
	// that is not one of S, N, B, BOOL, NULL, SS, NS, BS, L or M.
	ErrUnknownTypeTag = errors.New("attr: unknown type tag")

	// ErrMalformedAttribute is returned when a wire attribute does not have
	// the shape its type tag requires.
	ErrMalformedAttribute = errors.New("attr: malformed attribute")

	// ErrMixedSetElementTypes is returned when set elements do not all share
	// the kind of the first element.
	ErrMixedSetElementTypes = errors.New("attr: mixed set element types")

	// ErrInvalidNumber is returned when a number is not a valid decimal.
	ErrInvalidNumber = errors.New("attr: invalid number")

	// ErrMaxDepthExceeded is returned when lists and maps nest deeper than
	// the codec allows.
	ErrMaxDepthExceeded = errors.New("attr: maximum nesting depth exceeded")
)

// PathError records where in a nested value an encoding or decoding error
// occurred. Path uses dotted map keys and bracketed list indexes, e.g.
// "a[1].b". The root value has an empty path.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	if e.Path == "" {
		return e.Err.Error()
	}

	return e.Path + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() error {
	return e.Err
}

func pathErr(path string, err error) error {
	return &PathError{Path: path, Err: err}
}
