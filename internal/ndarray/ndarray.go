// Package ndarray provides a small N-dimensional array of int64, float64 or
// bool elements stored in row-major order.
//
// It exists so experiments can record numeric buffers and recover them with
// their original shape and element type. Conversion to and from nested
// slices (ToNested, FromNested) is the basis of its JSON encoding.
package ndarray

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
)

// DType is the element type of an Array.
type DType string

const (
	Int64   DType = "int64"
	Float64 DType = "float64"
	Bool    DType = "bool"
)

// Nested-form tokens for non-finite float elements, which JSON cannot carry
// as numbers.
const (
	TokenNaN    = "NaN"
	TokenPosInf = "Infinity"
	TokenNegInf = "-Infinity"
)

// ErrShape is returned when data does not fit the requested shape.
var ErrShape = errors.New("ndarray: shape mismatch")

// Array is an immutable N-dimensional array.
// Exactly one of ints, floats or bools holds the elements, chosen by dtype.
type Array struct {
	shape  []int
	dtype  DType
	ints   []int64
	floats []float64
	bools  []bool
}

// FromInts creates an int64 array with the given shape.
func FromInts(shape []int, data []int64) (*Array, error) {
	if err := checkSize(shape, len(data)); err != nil {
		return nil, err
	}
	return &Array{shape: slices.Clone(shape), dtype: Int64, ints: slices.Clone(data)}, nil
}

// FromFloats creates a float64 array with the given shape.
func FromFloats(shape []int, data []float64) (*Array, error) {
	if err := checkSize(shape, len(data)); err != nil {
		return nil, err
	}
	return &Array{shape: slices.Clone(shape), dtype: Float64, floats: slices.Clone(data)}, nil
}

// FromBools creates a bool array with the given shape.
func FromBools(shape []int, data []bool) (*Array, error) {
	if err := checkSize(shape, len(data)); err != nil {
		return nil, err
	}
	return &Array{shape: slices.Clone(shape), dtype: Bool, bools: slices.Clone(data)}, nil
}

// Arange returns the one-dimensional int64 array [0, 1, ..., n-1].
func Arange(n int) *Array {
	data := make([]int64, n)
	for i := range data {
		data[i] = int64(i)
	}
	return &Array{shape: []int{n}, dtype: Int64, ints: data}
}

func checkSize(shape []int, n int) error {
	size := 1
	for _, d := range shape {
		if d < 0 {
			return fmt.Errorf("%w: negative dimension %d", ErrShape, d)
		}
		size *= d
	}
	if size != n {
		return fmt.Errorf("%w: shape %v holds %d elements, got %d", ErrShape, shape, size, n)
	}
	return nil
}

// Shape returns a copy of the array's dimensions.
func (a *Array) Shape() []int { return slices.Clone(a.shape) }

// DType returns the element type.
func (a *Array) DType() DType { return a.dtype }

// Ndim returns the number of dimensions.
func (a *Array) Ndim() int { return len(a.shape) }

// Size returns the total number of elements.
func (a *Array) Size() int {
	switch a.dtype {
	case Int64:
		return len(a.ints)
	case Float64:
		return len(a.floats)
	default:
		return len(a.bools)
	}
}

// Ints returns a copy of the elements of an int64 array, nil otherwise.
func (a *Array) Ints() []int64 { return slices.Clone(a.ints) }

// Floats returns a copy of the elements of a float64 array, nil otherwise.
func (a *Array) Floats() []float64 { return slices.Clone(a.floats) }

// Bools returns a copy of the elements of a bool array, nil otherwise.
func (a *Array) Bools() []bool { return slices.Clone(a.bools) }

// At returns the element at the given index as int64, float64 or bool.
func (a *Array) At(index ...int) (any, error) {
	if len(index) != len(a.shape) {
		return nil, fmt.Errorf("ndarray: %d indices for %d dimensions", len(index), len(a.shape))
	}
	flat := 0
	for i, idx := range index {
		if idx < 0 || idx >= a.shape[i] {
			return nil, fmt.Errorf("ndarray: index %d out of range for axis %d with size %d", idx, i, a.shape[i])
		}
		flat = flat*a.shape[i] + idx
	}
	return a.elem(flat), nil
}

func (a *Array) elem(i int) any {
	switch a.dtype {
	case Int64:
		return a.ints[i]
	case Float64:
		return a.floats[i]
	default:
		return a.bools[i]
	}
}

func (a *Array) leaf(i int) any {
	if a.dtype != Float64 {
		return a.elem(i)
	}
	f := a.floats[i]
	switch {
	case math.IsNaN(f):
		return TokenNaN
	case math.IsInf(f, 1):
		return TokenPosInf
	case math.IsInf(f, -1):
		return TokenNegInf
	default:
		return f
	}
}

// Reshape returns a new array with the same elements and a different shape.
func (a *Array) Reshape(shape ...int) (*Array, error) {
	if err := checkSize(shape, a.Size()); err != nil {
		return nil, err
	}
	out := a.clone()
	out.shape = slices.Clone(shape)
	return out, nil
}

func (a *Array) clone() *Array {
	return &Array{
		shape:  slices.Clone(a.shape),
		dtype:  a.dtype,
		ints:   slices.Clone(a.ints),
		floats: slices.Clone(a.floats),
		bools:  slices.Clone(a.bools),
	}
}

// Equal reports whether a and b have the same dtype, shape and elements.
func (a *Array) Equal(b *Array) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.dtype != b.dtype || !slices.Equal(a.shape, b.shape) {
		return false
	}
	return slices.Equal(a.ints, b.ints) &&
		slices.EqualFunc(a.floats, b.floats, sameFloat) &&
		slices.Equal(a.bools, b.bools)
}

// sameFloat treats NaN as equal to NaN.
func sameFloat(x, y float64) bool {
	return x == y || (math.IsNaN(x) && math.IsNaN(y))
}

// String renders the array as nested brackets, e.g. [[0 1] [2 3]].
func (a *Array) String() string {
	var b strings.Builder
	fmt.Fprint(&b, a.ToNested())
	return b.String()
}

// ToNested returns the elements as nested []any, one level per dimension.
// A zero-dimensional array yields its single element. NaN and ±Inf become
// TokenNaN, TokenPosInf and TokenNegInf; FromNested reads them back.
func (a *Array) ToNested() any {
	if len(a.shape) == 0 {
		return a.leaf(0)
	}
	pos := 0
	return a.nest(0, &pos)
}

func (a *Array) nest(axis int, pos *int) []any {
	out := make([]any, a.shape[axis])
	for i := range out {
		if axis == len(a.shape)-1 {
			out[i] = a.leaf(*pos)
			*pos++
			continue
		}
		out[i] = a.nest(axis+1, pos)
	}
	return out
}

// FromNested rebuilds an array from nested []any.
//
// Leaves may be int64, int, float64, bool, json.Number or one of the
// non-finite tokens. Any float leaf promotes the array to Float64; bools
// cannot be mixed with numbers. Empty arrays have dtype Float64, whatever
// dtype they were built with. Ragged input is rejected with ErrShape.
func FromNested(v any) (*Array, error) {
	shape := inferShape(v)

	leaves := make([]any, 0)
	if err := flatten(v, shape, 0, &leaves); err != nil {
		return nil, err
	}

	dtype, err := inferDType(leaves)
	if err != nil {
		return nil, err
	}

	a := &Array{shape: shape, dtype: dtype}
	switch dtype {
	case Bool:
		a.bools = make([]bool, len(leaves))
		for i, l := range leaves {
			a.bools[i] = l.(bool)
		}
	case Int64:
		a.ints = make([]int64, len(leaves))
		for i, l := range leaves {
			a.ints[i], _ = toInt(l)
		}
	case Float64:
		a.floats = make([]float64, len(leaves))
		for i, l := range leaves {
			f, err := toFloat(l)
			if err != nil {
				return nil, err
			}
			a.floats[i] = f
		}
	}
	return a, nil
}

// inferShape follows the first element at every depth.
func inferShape(v any) []int {
	shape := []int{}
	for {
		list, ok := v.([]any)
		if !ok {
			return shape
		}
		shape = append(shape, len(list))
		if len(list) == 0 {
			return shape
		}
		v = list[0]
	}
}

func flatten(v any, shape []int, depth int, out *[]any) error {
	if depth == len(shape) {
		if _, isList := v.([]any); isList {
			return fmt.Errorf("%w: ragged nesting at depth %d", ErrShape, depth)
		}
		*out = append(*out, v)
		return nil
	}
	list, ok := v.([]any)
	if !ok || len(list) != shape[depth] {
		return fmt.Errorf("%w: ragged nesting at depth %d", ErrShape, depth)
	}
	for _, elem := range list {
		if err := flatten(elem, shape, depth+1, out); err != nil {
			return err
		}
	}
	return nil
}

func inferDType(leaves []any) (DType, error) {
	if len(leaves) == 0 {
		return Float64, nil
	}
	var bools, ints, floats int
	for _, l := range leaves {
		switch x := l.(type) {
		case bool:
			bools++
		case int, int64:
			ints++
		case float64:
			floats++
		case string:
			if _, ok := nonFinite(x); !ok {
				return "", fmt.Errorf("ndarray: unsupported string element %q", x)
			}
			floats++
		case json.Number:
			if _, err := x.Int64(); err == nil && !strings.ContainsAny(string(x), ".eE") {
				ints++
			} else {
				floats++
			}
		default:
			return "", fmt.Errorf("ndarray: unsupported element type %T", l)
		}
	}
	switch {
	case bools == len(leaves):
		return Bool, nil
	case bools > 0:
		return "", errors.New("ndarray: cannot mix bool and numeric elements")
	case floats > 0:
		return Float64, nil
	default:
		return Int64, nil
	}
}

func toInt(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int64:
		return x, nil
	case json.Number:
		return x.Int64()
	default:
		return 0, fmt.Errorf("ndarray: %T is not an integer", v)
	}
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case float64:
		return x, nil
	case json.Number:
		return x.Float64()
	case string:
		if f, ok := nonFinite(x); ok {
			return f, nil
		}
		return 0, fmt.Errorf("ndarray: %q is not a number", x)
	default:
		return 0, fmt.Errorf("ndarray: %T is not a number", v)
	}
}

func nonFinite(s string) (float64, bool) {
	switch s {
	case TokenNaN:
		return math.NaN(), true
	case TokenPosInf:
		return math.Inf(1), true
	case TokenNegInf:
		return math.Inf(-1), true
	default:
		return 0, false
	}
}
