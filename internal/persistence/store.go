package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Document is the field map stored under a key. Values are restricted to the
// JSON data model: string, float64, bool, nil, []any and map[string]any.
type Document map[string]any

// Snapshot pairs a document with the key it is stored under.
type Snapshot struct {
	Key  string
	Data Document
}

// Store is a keyed document store organised in slash separated collection
// paths. Each call touches exactly one document and is atomic for that
// document; there are no multi-document transactions.
type Store interface {
	// Get returns the document or ErrNotFound.
	Get(ctx context.Context, collection, key string) (Document, error)
	// Put replaces the whole document, creating it when absent.
	Put(ctx context.Context, collection, key string, doc Document) error
	// Merge overwrites the given top-level fields and keeps the rest,
	// creating the document when absent.
	Merge(ctx context.Context, collection, key string, fields Document) error
	// Append adds value to the array stored in field. The document must exist.
	Append(ctx context.Context, collection, key, field string, value any) error
	// Delete removes the document or returns ErrNotFound.
	Delete(ctx context.Context, collection, key string) error
	// List returns every document of the collection ordered by key.
	List(ctx context.Context, collection string) ([]Snapshot, error)
	Close() error
}

// CollectionPath joins path segments into a collection path.
func CollectionPath(segments ...string) string {
	return strings.Join(segments, "/")
}

// ValidateRef rejects empty collection paths and keys, and keys holding a
// path separator. The error matches both ErrInvalidDocument and ErrInvalidKey.
func ValidateRef(collection, key string) error {
	if strings.TrimSpace(collection) == "" {
		return fmt.Errorf("%w: %w: empty collection", ErrInvalidDocument, ErrInvalidKey)
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: %w: empty key", ErrInvalidDocument, ErrInvalidKey)
	}
	if strings.Contains(key, "/") {
		return fmt.Errorf("%w: %w: %q contains a path separator", ErrInvalidDocument, ErrInvalidKey, key)
	}
	return nil
}

// Normalize converts doc into the JSON data model so every backend hands
// back identical values (numbers become float64, nested maps map[string]any).
func Normalize(doc map[string]any) (Document, error) {
	if doc == nil {
		return Document{}, nil
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	out := Document{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return out, nil
}

// NormalizeValue is Normalize for a single field value.
func NormalizeValue(value any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return out, nil
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		return map[string]any(Document(typed).Clone())
	case Document:
		return typed.Clone()
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
