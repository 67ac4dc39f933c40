// Package serde encodes experiment values into JSON-compatible trees and back.
//
// Primitive values (strings, numbers, booleans, null, slices, string-keyed
// maps) are encoded structurally. Values whose Go type is bound to a name in
// the Registry are wrapped in an envelope:
//
//	{"__typename__": "<name>", "__data__": <encoded payload>}
//
// Decoding resolves envelopes bottom-up, so nested envelopes are rebuilt
// before their parents are inspected. Envelopes with an unregistered name
// are passed through unchanged.
//
// The Registry is immutable once built and is handed to a Codec explicitly;
// there is no package-level mutable registry.
package serde

import (
	"fmt"
	"reflect"
	"slices"
)

// Envelope keys.
const (
	TypeKey = "__typename__"
	DataKey = "__data__"
)

// EncodeFunc converts a registered value into a JSON-compatible payload.
type EncodeFunc func(v any) (any, error)

// DecodeFunc rebuilds a registered value from its decoded payload.
type DecodeFunc func(data any) (any, error)

// TypeMapping binds a canonical type name to a Go type and its codec pair.
type TypeMapping struct {
	// Name is the canonical name written as __typename__.
	Name string

	// Type is the Go type encoded under Name.
	Type reflect.Type

	Encode EncodeFunc
	Decode DecodeFunc
}

// Registry is a read-only set of TypeMappings keyed by canonical name.
type Registry struct {
	byName map[string]TypeMapping
	names  map[reflect.Type]string
}

// NewRegistry builds a registry from mappings.
// At most one mapping may exist per name and per Go type.
func NewRegistry(mappings ...TypeMapping) (*Registry, error) {
	r := &Registry{
		byName: make(map[string]TypeMapping, len(mappings)),
		names:  make(map[reflect.Type]string, len(mappings)),
	}
	for _, m := range mappings {
		if m.Name == "" || m.Type == nil || m.Encode == nil || m.Decode == nil {
			return nil, fmt.Errorf("serde: incomplete mapping %q", m.Name)
		}
		if _, dup := r.byName[m.Name]; dup {
			return nil, fmt.Errorf("serde: duplicate mapping for %q", m.Name)
		}
		if prev, dup := r.names[m.Type]; dup {
			return nil, fmt.Errorf("serde: type %s already registered as %q", m.Type, prev)
		}
		r.byName[m.Name] = m
		r.names[m.Type] = m.Name
	}
	return r, nil
}

// MustRegistry is like NewRegistry but panics on error.
// Intended for package-level initialization with static mappings.
func MustRegistry(mappings ...TypeMapping) *Registry {
	r, err := NewRegistry(mappings...)
	if err != nil {
		panic(err)
	}
	return r
}

// TypeName returns the canonical name bound to v's Go type.
func (r *Registry) TypeName(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	name, ok := r.names[reflect.TypeOf(v)]
	return name, ok
}

// Lookup returns the mapping registered under name.
func (r *Registry) Lookup(name string) (TypeMapping, bool) {
	m, ok := r.byName[name]
	return m, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
