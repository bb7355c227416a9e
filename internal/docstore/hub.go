package docstore

import (
	"context"
	"errors"
	"sync"
)

type getter func(ctx context.Context, path string) (Document, error)

// hub fans out change notifications to subscriptions by document path.
type hub struct {
	mu   sync.Mutex
	subs map[string]map[*subscription]struct{}
}

func newHub() *hub {
	return &hub{subs: map[string]map[*subscription]struct{}{}}
}

func (h *hub) add(s *subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[s.path]
	if !ok {
		set = map[*subscription]struct{}{}
		h.subs[s.path] = set
	}
	set[s] = struct{}{}
}

func (h *hub) remove(s *subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[s.path]
	delete(set, s)
	if len(set) == 0 {
		delete(h.subs, s.path)
	}
}

func (h *hub) notify(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs[path] {
		s.kick()
	}
}

func (h *hub) notifyAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.subs {
		for s := range set {
			s.kick()
		}
	}
}

// subscription re-reads its document whenever it is kicked and delivers the
// latest state. Kicks that arrive while a read is pending coalesce. Callbacks
// run on the subscription's own goroutine, one at a time.
type subscription struct {
	path     string
	get      getter
	onChange func(Document, bool)
	onError  func(error)

	pending chan struct{}
}

func (h *hub) subscribe(ctx context.Context, path string, get getter, onChange func(Document, bool), onError func(error)) func() {
	ctx, cancel := context.WithCancel(ctx)
	s := &subscription{
		path:     path,
		get:      get,
		onChange: onChange,
		onError:  onError,
		pending:  make(chan struct{}, 1),
	}
	h.add(s)
	s.kick()
	go s.loop(ctx)

	var once sync.Once
	return func() {
		once.Do(func() {
			h.remove(s)
			cancel()
		})
	}
}

func (s *subscription) kick() {
	select {
	case s.pending <- struct{}{}:
	default:
	}
}

func (s *subscription) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.pending:
		}
		doc, err := s.get(ctx, s.path)
		if ctx.Err() != nil {
			return
		}
		switch {
		case err == nil:
			s.onChange(doc, true)
		case errors.Is(err, ErrNotFound):
			s.onChange(Document{}, false)
		default:
			if s.onError != nil {
				s.onError(err)
			}
		}
	}
}
