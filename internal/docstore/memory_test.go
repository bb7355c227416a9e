package docstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testColl = "artifacts/app/public/data/links"

func TestSplitPath(t *testing.T) {
	tests := []struct {
		path     string
		wantColl string
		wantID   string
		wantErr  bool
	}{
		{testColl + "/u1", testColl, "u1", false},
		{"pages/p1", "pages", "p1", false},
		{"pages", "", "", true},
		{testColl, "", "", true},
		{"pages//p1/x", "", "", true},
		{"", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			coll, id, err := SplitPath(tt.path)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidPath)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantColl, coll)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestMemoryStoreSetMerge(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	path := testColl + "/u1"

	_, err := s.Get(ctx, path)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, path, map[string]any{"a": 1, "b": "x"}, SetOptions{}))
	require.NoError(t, s.Set(ctx, path, map[string]any{"b": "y", "c": true}, SetOptions{Merge: true}))

	doc, err := s.Get(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "u1", doc.ID)
	assert.Equal(t, map[string]any{"a": float64(1), "b": "y", "c": true}, doc.Data)

	require.NoError(t, s.Set(ctx, path, map[string]any{"only": "this"}, SetOptions{}))
	doc, err = s.Get(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"only": "this"}, doc.Data)
}

func TestMemoryStoreIsolatesCallerMaps(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	path := testColl + "/u1"

	in := map[string]any{"tags": []any{"a"}}
	require.NoError(t, s.Set(ctx, path, in, SetOptions{}))
	in["tags"].([]any)[0] = "changed"

	doc, err := s.Get(ctx, path)
	require.NoError(t, err)
	doc.Data["tags"].([]any)[0] = "also changed"

	again, err := s.Get(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, []any{"a"}, again.Data["tags"])
}

func TestMemoryStoreCreate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	path := "slugs/jane"

	require.NoError(t, s.Create(ctx, path, map[string]any{"pageId": "u1"}))
	err := s.Create(ctx, path, map[string]any{"pageId": "u2"})
	require.ErrorIs(t, err, ErrAlreadyExists)

	doc, err := s.Get(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "u1", doc.Data["pageId"])
}

func TestMemoryStoreUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	path := testColl + "/u1"

	err := s.Update(ctx, path, func(Document) (map[string]any, error) { return nil, nil })
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, path, map[string]any{"n": 1, "keep": "k"}, SetOptions{}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Update(ctx, path, func(doc Document) (map[string]any, error) {
				n, _ := doc.Data["n"].(float64)
				return map[string]any{"n": n + 1}, nil
			})
		}()
	}
	wg.Wait()

	doc, err := s.Get(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, float64(21), doc.Data["n"])
	assert.Equal(t, "k", doc.Data["keep"])

	boom := errors.New("boom")
	err = s.Update(ctx, path, func(Document) (map[string]any, error) { return nil, boom })
	require.ErrorIs(t, err, boom)
}

func TestMemoryStoreQuery(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Set(ctx, testColl+"/u1", map[string]any{"slug": "jane"}, SetOptions{}))
	require.NoError(t, s.Set(ctx, testColl+"/u2", map[string]any{"slug": "bob"}, SetOptions{}))
	require.NoError(t, s.Set(ctx, testColl+"/u3", map[string]any{"slug": "jane"}, SetOptions{}))
	require.NoError(t, s.Set(ctx, "other/u4", map[string]any{"slug": "jane"}, SetOptions{}))

	docs, err := s.Query(ctx, testColl, "slug", "jane")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "u1", docs[0].ID)
	assert.Equal(t, "u3", docs[1].ID)

	docs, err = s.Query(ctx, testColl, "slug", "nobody")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestMemoryStoreFault(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.SetFault(func(op Op, path string) error {
		if op == OpQuery {
			return ErrPermissionDenied
		}
		return nil
	})

	_, err := s.Query(ctx, testColl, "slug", "x")
	assert.True(t, IsPermissionDenied(err))
	assert.Equal(t, 1, s.Count(OpQuery))

	s.SetFault(nil)
	_, err = s.Query(ctx, testColl, "slug", "x")
	assert.NoError(t, err)
}

type recorder struct {
	mu     sync.Mutex
	events []map[string]any
	errs   []error
}

func (r *recorder) onChange(doc Document, exists bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !exists {
		r.events = append(r.events, nil)
		return
	}
	r.events = append(r.events, doc.Data)
}

func (r *recorder) onError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) last() (map[string]any, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return nil, 0
	}
	return r.events[len(r.events)-1], len(r.events)
}

func TestMemoryStoreSubscribe(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	path := testColl + "/u1"

	rec := &recorder{}
	unsub, err := s.Subscribe(ctx, path, rec.onChange, rec.onError)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, n := rec.last()
		return n >= 1
	}, time.Second, 5*time.Millisecond)
	first, _ := rec.last()
	assert.Nil(t, first)

	require.NoError(t, s.Set(ctx, path, map[string]any{"v": "1"}, SetOptions{}))
	require.Eventually(t, func() bool {
		data, _ := rec.last()
		return data != nil && data["v"] == "1"
	}, time.Second, 5*time.Millisecond)

	unsub()
	unsub()
	_, before := rec.last()
	require.NoError(t, s.Set(ctx, path, map[string]any{"v": "2"}, SetOptions{}))
	time.Sleep(30 * time.Millisecond)
	data, after := rec.last()
	assert.Equal(t, before, after)
	assert.Equal(t, "1", data["v"])
}

func TestMemoryStoreSubscribeError(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.SetFault(func(op Op, path string) error {
		if op == OpGet {
			return ErrPermissionDenied
		}
		return nil
	})

	rec := &recorder{}
	unsub, err := s.Subscribe(ctx, testColl+"/u1", rec.onChange, rec.onError)
	require.NoError(t, err)
	defer unsub()

	require.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.errs) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestSubscribeRejectsBadPath(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Subscribe(context.Background(), "pages", func(Document, bool) {}, nil)
	require.ErrorIs(t, err, ErrInvalidPath)
}
