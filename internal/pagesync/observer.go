package pagesync

import "sync"

// observer delivers the latest snapshot on its own goroutine. Snapshots
// published while a delivery runs collapse into one.
type observer struct {
	fn   func(Snapshot)
	kick chan struct{}
	quit chan struct{}
	once sync.Once

	mu     sync.Mutex
	latest Snapshot
	sent   uint64
}

func (o *observer) offer(s Snapshot) {
	o.mu.Lock()
	if s.Version > o.latest.Version || o.latest.Version == 0 {
		o.latest = s
	}
	o.mu.Unlock()
	select {
	case o.kick <- struct{}{}:
	default:
	}
}

func (o *observer) run() {
	for {
		select {
		case <-o.quit:
			return
		case <-o.kick:
		}
		o.mu.Lock()
		s := o.latest
		fresh := s.Version > o.sent
		o.sent = s.Version
		o.mu.Unlock()
		if fresh {
			o.fn(s)
		}
	}
}

func (o *observer) stop() {
	o.once.Do(func() { close(o.quit) })
}

// Subscribe calls fn with the current snapshot and with every later one.
// Intermediate snapshots may be skipped; the last one is always delivered.
func (e *Engine) Subscribe(fn func(Snapshot)) func() {
	o := &observer{
		fn:   fn,
		kick: make(chan struct{}, 1),
		quit: make(chan struct{}),
	}
	e.obsMu.Lock()
	e.observers[o] = struct{}{}
	e.obsMu.Unlock()
	go o.run()

	e.mu.Lock()
	e.version++
	o.offer(e.snapshotLocked())
	e.mu.Unlock()

	return func() {
		e.obsMu.Lock()
		delete(e.observers, o)
		e.obsMu.Unlock()
		o.stop()
	}
}

// publishLocked bumps the version and hands the snapshot to every observer.
func (e *Engine) publishLocked() {
	e.version++
	s := e.snapshotLocked()
	e.obsMu.Lock()
	for o := range e.observers {
		o.offer(s)
	}
	e.obsMu.Unlock()
}
