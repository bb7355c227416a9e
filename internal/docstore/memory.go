package docstore

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Op names a store operation for fault injection.
type Op string

const (
	OpGet    Op = "get"
	OpSet    Op = "set"
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpQuery  Op = "query"
)

// FaultFunc returns a non-nil error to make op on path fail.
type FaultFunc func(op Op, path string) error

// MemoryStore keeps documents in process. It backs tests and single-node
// deployments without a database.
type MemoryStore struct {
	mu    sync.RWMutex
	docs  map[string]map[string]any
	hub   *hub
	fault FaultFunc
	ops   map[Op]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: map[string]map[string]any{},
		hub:  newHub(),
		ops:  map[Op]int{},
	}
}

// SetFault installs f; nil removes it.
func (m *MemoryStore) SetFault(f FaultFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fault = f
}

// Count returns how many times op was attempted.
func (m *MemoryStore) Count(op Op) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ops[op]
}

func (m *MemoryStore) begin(op Op, path string) error {
	m.ops[op]++
	if m.fault != nil {
		return m.fault(op, path)
	}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, path string) (Document, error) {
	_, id, err := SplitPath(path)
	if err != nil {
		return Document{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpGet, path); err != nil {
		return Document{}, err
	}
	data, ok := m.docs[path]
	if !ok {
		return Document{}, ErrNotFound
	}
	cp, err := cloneData(data)
	if err != nil {
		return Document{}, err
	}
	return Document{ID: id, Path: path, Data: cp}, nil
}

func (m *MemoryStore) Set(ctx context.Context, path string, data map[string]any, opts SetOptions) error {
	if _, _, err := SplitPath(path); err != nil {
		return err
	}
	cp, err := cloneData(data)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if err := m.begin(OpSet, path); err != nil {
		m.mu.Unlock()
		return err
	}
	cur, ok := m.docs[path]
	if opts.Merge && ok {
		for k, v := range cp {
			cur[k] = v
		}
	} else {
		m.docs[path] = cp
	}
	m.mu.Unlock()

	m.hub.notify(path)
	return nil
}

func (m *MemoryStore) Create(ctx context.Context, path string, data map[string]any) error {
	if _, _, err := SplitPath(path); err != nil {
		return err
	}
	cp, err := cloneData(data)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if err := m.begin(OpCreate, path); err != nil {
		m.mu.Unlock()
		return err
	}
	if _, ok := m.docs[path]; ok {
		m.mu.Unlock()
		return ErrAlreadyExists
	}
	m.docs[path] = cp
	m.mu.Unlock()

	m.hub.notify(path)
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, path string, fn UpdateFunc) error {
	_, id, err := SplitPath(path)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if err := m.begin(OpUpdate, path); err != nil {
		m.mu.Unlock()
		return err
	}
	cur, ok := m.docs[path]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	snapshot, err := cloneData(cur)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	fields, err := fn(Document{ID: id, Path: path, Data: snapshot})
	if err != nil {
		m.mu.Unlock()
		return err
	}
	patch, err := cloneData(fields)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	for k, v := range patch {
		cur[k] = v
	}
	m.mu.Unlock()

	m.hub.notify(path)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, path string) error {
	if _, _, err := SplitPath(path); err != nil {
		return err
	}
	m.mu.Lock()
	if err := m.begin(OpDelete, path); err != nil {
		m.mu.Unlock()
		return err
	}
	delete(m.docs, path)
	m.mu.Unlock()

	m.hub.notify(path)
	return nil
}

func (m *MemoryStore) Query(ctx context.Context, collection, field string, value any) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpQuery, collection); err != nil {
		return nil, err
	}

	prefix := collection + "/"
	var out []Document
	for path, data := range m.docs {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		id := strings.TrimPrefix(path, prefix)
		if strings.Contains(id, "/") {
			continue
		}
		v, ok := data[field]
		if !ok || !matches(v, value) {
			continue
		}
		cp, err := cloneData(data)
		if err != nil {
			return nil, err
		}
		out = append(out, Document{ID: id, Path: path, Data: cp})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (m *MemoryStore) Subscribe(ctx context.Context, path string, onChange func(Document, bool), onError func(error)) (func(), error) {
	if _, _, err := SplitPath(path); err != nil {
		return nil, err
	}
	return m.hub.subscribe(ctx, path, m.Get, onChange, onError), nil
}
