// Package store defines the document-store capability contract the booking,
// catalog and notification components are written against. Implementations
// provide equality and array-containment filters, single-field ordering,
// partial-field merge updates and cancellable push subscriptions; nothing in
// the core assumes more than that. Combining an equality filter on one field
// with ordering on another may require a composite index on some backends, so
// callers shape their queries with that cost in mind.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("document not found")

type Op string

const (
	OpEqual         Op = "=="
	OpArrayContains Op = "array-contains"
)

type Filter struct {
	Field string
	Op    Op
	Value any
}

func Eq(field string, value any) Filter {
	return Filter{Field: field, Op: OpEqual, Value: value}
}

func ArrayContains(field string, value any) Filter {
	return Filter{Field: field, Op: OpArrayContains, Value: value}
}

// Query selects documents within one collection. OrderBy is a single field
// name; empty means no ordering guarantee.
type Query struct {
	Filters []Filter
	OrderBy string
	Desc    bool
}

// Document is one record of a collection. Fields never contains the "id" key;
// the identifier travels separately.
type Document struct {
	ID     string
	Fields map[string]any
}

// Decode unmarshals the document into v (a struct pointer with json tags),
// injecting the id under the "id" key.
func (d Document) Decode(v any) error {
	m := make(map[string]any, len(d.Fields)+1)
	for k, val := range d.Fields {
		m[k] = val
	}
	m["id"] = d.ID
	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", d.ID, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode document %s: %w", d.ID, err)
	}
	return nil
}

// DecodeAll decodes a result set into typed records, preserving order.
func DecodeAll[T any](docs []Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		var v T
		if err := d.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Fields converts a struct with json tags into a field map suitable for
// Create or Update, dropping the "id" key.
func Fields(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	delete(m, "id")
	return m, nil
}

// Subscription is a live feed of full result-set snapshots. The first
// snapshot is delivered shortly after subscribing; afterwards a new snapshot
// arrives whenever the underlying data may have changed. Close releases the
// channel; no deliveries happen after it returns.
type Subscription interface {
	Snapshots() <-chan []Document
	Close()
}

// Store is the narrow remote-store surface consumed by the core. Update uses
// partial-field merge semantics: unspecified fields are untouched.
type Store interface {
	Query(ctx context.Context, collection string, q Query) ([]Document, error)
	Get(ctx context.Context, collection, id string) (Document, error)
	Create(ctx context.Context, collection string, fields map[string]any) (string, error)
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Subscribe(ctx context.Context, collection string, q Query) (Subscription, error)
}
