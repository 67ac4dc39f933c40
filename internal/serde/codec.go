package serde

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/notebook/internal/errs"
)

// UnknownPolicy selects how values of unregistered, non-JSON types are encoded.
type UnknownPolicy int

const (
	// SkipUnknown encodes such values as null.
	SkipUnknown UnknownPolicy = iota

	// StrictUnknown fails the encoding with a Serialization error.
	StrictUnknown
)

// String returns the policy name.
func (p UnknownPolicy) String() string {
	if p == StrictUnknown {
		return "strict"
	}
	return "skip"
}

// Codec encodes and decodes values through a Registry.
// A Codec is immutable and safe for concurrent use.
type Codec struct {
	reg    *Registry
	policy UnknownPolicy
}

// NewCodec creates a codec. A nil registry means DefaultRegistry().
func NewCodec(reg *Registry, policy UnknownPolicy) *Codec {
	if reg == nil {
		reg = DefaultRegistry()
	}
	return &Codec{reg: reg, policy: policy}
}

// Default returns a codec over the built-in mappings that skips unknown types.
func Default() *Codec {
	return NewCodec(nil, SkipUnknown)
}

// Registry returns the codec's registry.
func (c *Codec) Registry() *Registry { return c.reg }

// Policy returns the codec's unknown-type policy.
func (c *Codec) Policy() UnknownPolicy { return c.policy }

// Encode converts v into a JSON-compatible tree built from nil, bool, string,
// int64, uint64, float64, json.Number, []any and map[string]any.
func (c *Codec) Encode(v any) (any, error) {
	return c.encode(v, "$")
}

func (c *Codec) encode(v any, path string) (any, error) {
	if v == nil {
		return nil, nil
	}

	rv := reflect.ValueOf(v)
	if (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) && rv.IsNil() {
		return nil, nil
	}

	if name, ok := c.reg.TypeName(v); ok {
		m, _ := c.reg.Lookup(name)
		payload, err := m.Encode(v)
		if err != nil {
			return nil, &errs.Error{Kind: errs.Serialization, Op: "encode " + path, Msg: "type " + name, Err: err}
		}
		data, err := c.encode(payload, path+"."+DataKey)
		if err != nil {
			return nil, err
		}
		return map[string]any{TypeKey: name, DataKey: data}, nil
	}

	switch x := v.(type) {
	case string, bool, int64, json.Number:
		return x, nil
	case float64:
		return c.encodeFloat(x, path)
	case []any:
		out := make([]any, len(x))
		for i, elem := range x {
			enc, err := c.encode(elem, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = enc
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, elem := range x {
			enc, err := c.encode(elem, path+"."+k)
			if err != nil {
				return nil, err
			}
			out[k] = enc
		}
		return out, nil
	}

	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u <= math.MaxInt64 {
			return int64(u), nil
		}
		return u, nil
	case reflect.Float32, reflect.Float64:
		return c.encodeFloat(rv.Float(), path)
	case reflect.Pointer, reflect.Interface:
		return c.encode(rv.Elem().Interface(), path)
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil, nil
		}
		out := make([]any, rv.Len())
		for i := range out {
			enc, err := c.encode(rv.Index(i).Interface(), fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = enc
		}
		return out, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return c.unknown(v, path)
		}
		if rv.IsNil() {
			return nil, nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key().String()
			enc, err := c.encode(iter.Value().Interface(), path+"."+k)
			if err != nil {
				return nil, err
			}
			out[k] = enc
		}
		return out, nil
	}

	return c.unknown(v, path)
}

func (c *Codec) encodeFloat(f float64, path string) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return c.unknown(f, path)
	}
	return f, nil
}

// unknown applies the policy to a value that has no JSON representation.
func (c *Codec) unknown(v any, path string) (any, error) {
	if c.policy == SkipUnknown {
		return nil, nil
	}
	return nil, errs.New(errs.Serialization, "encode "+path, "unregistered type %T", v)
}

// Marshal encodes v and writes the tree as compact JSON.
// Object keys are sorted; floats always carry a fraction or exponent.
func (c *Codec) Marshal(v any) ([]byte, error) {
	tree, err := c.Encode(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := writeValue(&buf, tree); err != nil {
		return nil, errs.Wrap(errs.Serialization, "marshal", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal parses a JSON document and resolves envelopes.
// Integral numbers decode as int64, or uint64 above math.MaxInt64; all
// others decode as float64.
func (c *Codec) Unmarshal(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, errs.Wrap(errs.Serialization, "unmarshal", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errs.New(errs.Serialization, "unmarshal", "trailing data after JSON value")
	}
	return c.Decode(raw)
}

// UnmarshalObject is Unmarshal for documents that must be a JSON object.
// "null" yields an empty map.
func (c *Codec) UnmarshalObject(data []byte) (map[string]any, error) {
	v, err := c.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	switch obj := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return obj, nil
	default:
		return nil, errs.New(errs.Serialization, "unmarshal", "expected object, got %T", v)
	}
}

// Decode resolves envelopes in an already-parsed tree, bottom-up.
// json.Number leaves are converted to int64 or float64. Decode is
// idempotent: decoding its own output returns an equal tree.
func (c *Codec) Decode(v any) (any, error) {
	switch x := v.(type) {
	case json.Number:
		return numberValue(x)
	case []any:
		out := make([]any, len(x))
		for i, elem := range x {
			dec, err := c.Decode(elem)
			if err != nil {
				return nil, err
			}
			out[i] = dec
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, elem := range x {
			dec, err := c.Decode(elem)
			if err != nil {
				return nil, err
			}
			out[k] = dec
		}
		name, ok := envelopeName(out)
		if !ok {
			return out, nil
		}
		m, ok := c.reg.Lookup(name)
		if !ok {
			return out, nil
		}
		val, err := m.Decode(out[DataKey])
		if err != nil {
			return nil, &errs.Error{Kind: errs.Serialization, Op: "decode", Msg: "type " + name, Err: err}
		}
		return val, nil
	default:
		return v, nil
	}
}

// envelopeName reports whether obj is exactly an envelope and returns its name.
func envelopeName(obj map[string]any) (string, bool) {
	if len(obj) != 2 {
		return "", false
	}
	if _, ok := obj[DataKey]; !ok {
		return "", false
	}
	name, ok := obj[TypeKey].(string)
	return name, ok
}

func numberValue(n json.Number) (any, error) {
	s := string(n)
	if !strings.ContainsAny(s, ".eE") {
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		if u, err := strconv.ParseUint(s, 10, 64); err == nil {
			return u, nil
		}
	}
	f, err := n.Float64()
	if err != nil {
		return nil, errs.Wrap(errs.Serialization, "decode number", err)
	}
	return f, nil
}

// writeValue writes an encoded tree as JSON.
func writeValue(buf *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		buf.WriteString(strconv.FormatBool(x))
	case string:
		return writeString(buf, x)
	case int64:
		buf.WriteString(strconv.FormatInt(x, 10))
	case uint64:
		buf.WriteString(strconv.FormatUint(x, 10))
	case float64:
		buf.Write(formatFloat(x))
	case json.Number:
		if !json.Valid([]byte(x)) {
			return fmt.Errorf("invalid number literal %q", string(x))
		}
		buf.WriteString(string(x))
	case []any:
		buf.WriteByte('[')
		for i, elem := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeValue(buf, x[k]); err != nil {
				return fmt.Errorf("object[%q]: %w", k, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unencoded value of type %T", v)
	}
	return nil
}

// writeString writes s as a JSON string without HTML escaping.
func writeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encoder appends a newline
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'}))
	return nil
}

// formatFloat mirrors encoding/json's float formatting, then appends ".0"
// to integral values so they decode back as floats.
func formatFloat(f float64) []byte {
	abs := math.Abs(f)
	format := byte('f')
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	b := strconv.AppendFloat(nil, f, format, -1, 64)
	if format == 'e' {
		// clean up e-09 to e-9
		n := len(b)
		if n >= 4 && b[n-4] == 'e' && b[n-3] == '-' && b[n-2] == '0' {
			b[n-2] = b[n-1]
			b = b[:n-1]
		}
	}
	if !bytes.ContainsAny(b, ".eE") {
		b = append(b, ".0"...)
	}
	return b
}
