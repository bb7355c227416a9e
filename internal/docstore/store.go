package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound         = errors.New("document not found")
	ErrAlreadyExists    = errors.New("document already exists")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidPath      = errors.New("invalid document path")
)

type Document struct {
	ID   string
	Path string
	Data map[string]any
}

// Decode unmarshals the document data into v.
func (d Document) Decode(v any) error {
	b, err := json.Marshal(d.Data)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

type SetOptions struct {
	// Merge leaves top-level fields absent from the payload untouched.
	Merge bool
}

// UpdateFunc receives the current document and returns the fields to merge.
type UpdateFunc func(doc Document) (map[string]any, error)

// Store is a hierarchical document store addressed by slash-separated paths.
// A document path has an even number of segments; the last one is the id and
// the rest is the collection.
type Store interface {
	Get(ctx context.Context, path string) (Document, error)
	Set(ctx context.Context, path string, data map[string]any, opts SetOptions) error
	// Create writes data only when no document exists at path.
	Create(ctx context.Context, path string, data map[string]any) error
	// Update runs fn under a lock on the document and merges its result.
	Update(ctx context.Context, path string, fn UpdateFunc) error
	Delete(ctx context.Context, path string) error
	Query(ctx context.Context, collection, field string, value any) ([]Document, error)
	// Subscribe delivers the current state of path and every later change.
	// onChange receives exists=false while no document is stored.
	Subscribe(ctx context.Context, path string, onChange func(doc Document, exists bool), onError func(err error)) (func(), error)
}

// SplitPath returns the collection and id of a document path.
func SplitPath(path string) (collection, id string, err error) {
	segs := strings.Split(path, "/")
	if len(segs) < 2 || len(segs)%2 != 0 {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	for _, s := range segs {
		if s == "" {
			return "", "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return strings.Join(segs[:len(segs)-1], "/"), segs[len(segs)-1], nil
}

// IsPermissionDenied reports whether err came from store access rules.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

func cloneData(in map[string]any) (map[string]any, error) {
	out := map[string]any{}
	if in == nil {
		return out, nil
	}
	b, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return out, nil
}

// matches compares a stored field against a query value using their JSON
// representation so numbers and strings compare the way they are stored.
func matches(stored, want any) bool {
	a, err := json.Marshal(stored)
	if err != nil {
		return false
	}
	b, err := json.Marshal(want)
	if err != nil {
		return false
	}
	return string(a) == string(b)
}
