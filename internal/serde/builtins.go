package serde

import (
	"fmt"
	"reflect"
	"time"

	"github.com/roach88/notebook/internal/ndarray"
)

// Canonical names of the built-in mappings.
const (
	DatetimeName = "datetime"
	NDArrayName  = "ndarray"
)

// Layouts accepted when decoding a datetime payload. Timestamps without an
// offset are read as UTC.
var datetimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// Builtins returns the datetime and ndarray mappings.
func Builtins() []TypeMapping {
	return []TypeMapping{
		{
			Name:   DatetimeName,
			Type:   reflect.TypeOf(time.Time{}),
			Encode: encodeDatetime,
			Decode: decodeDatetime,
		},
		{
			Name:   NDArrayName,
			Type:   reflect.TypeOf((*ndarray.Array)(nil)),
			Encode: encodeNDArray,
			Decode: decodeNDArray,
		},
	}
}

var defaultRegistry = MustRegistry(Builtins()...)

// DefaultRegistry returns the registry holding only the built-in mappings.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

func encodeDatetime(v any) (any, error) {
	t, ok := v.(time.Time)
	if !ok {
		return nil, fmt.Errorf("datetime: unexpected %T", v)
	}
	return t.Format(time.RFC3339Nano), nil
}

func decodeDatetime(data any) (any, error) {
	s, ok := data.(string)
	if !ok {
		return nil, fmt.Errorf("datetime: payload is %T, want string", data)
	}
	return ParseTimestamp(s)
}

// ParseTimestamp parses an ISO-8601 timestamp in any accepted layout.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("datetime: cannot parse %q", s)
}

func encodeNDArray(v any) (any, error) {
	a, ok := v.(*ndarray.Array)
	if !ok || a == nil {
		return nil, fmt.Errorf("ndarray: unexpected %T", v)
	}
	return a.ToNested(), nil
}

func decodeNDArray(data any) (any, error) {
	return ndarray.FromNested(data)
}
