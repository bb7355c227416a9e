package pagesync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"linkstudio/internal/auth"
	"linkstudio/internal/docstore"
	"linkstudio/internal/links"
	"linkstudio/internal/page"
	"linkstudio/internal/slug"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type State string

const (
	StateUninitialized     State = "UNINITIALIZED"
	StateLoading           State = "LOADING"
	StateSynced            State = "SYNCED"
	StateLocalWritePending State = "LOCAL_WRITE_PENDING"
	StateError             State = "ERROR"
)

const DefaultDebounce = 1200 * time.Millisecond

var ErrNotReady = errors.New("page sync is not started")

// Snapshot is what observers see after every state or mirror change.
type Snapshot struct {
	State   State
	Record  *page.Record
	Err     error
	Version uint64
}

// Patch is a partial page update. Nil fields are left alone; a non-nil empty
// Links clears the list.
type Patch struct {
	// Slug is written together with the username projection. Malformed slugs
	// are rejected; claiming it in the slug index (slug.Registry.Reserve) is
	// up to the caller.
	Slug        *string
	Links       []page.Link
	ThemeID     *string
	LayoutID    *string
	ProfileData map[string]any
}

type Config struct {
	Store    docstore.Store
	AppID    string
	Debounce time.Duration
	// ClientID tags this engine's writes; generated when empty.
	ClientID string
	Now      func() time.Time
	Log      zerolog.Logger
}

// Engine mirrors one page document, pushes local edits to it with debounced
// merge-writes and applies remote changes that are not echoes of stale state.
//
// Every write carries a WriteToken {clientID, seq}. While a write is scheduled
// or issued but unacknowledged, remote snapshots are dropped unless they carry
// this engine's token at or above the last issued seq, or come from a read
// started after the write returned.
type Engine struct {
	store    docstore.Store
	appID    string
	debounce time.Duration
	clientID string
	now      func() time.Time
	log      zerolog.Logger

	// writeMu serializes writes so seq order is store order.
	writeMu sync.Mutex

	mu       sync.Mutex
	gen      uint64
	state    State
	err      error
	identity auth.Identity
	pageID   string
	mirror   *page.Record
	// loaded is set once a stored snapshot was applied in this generation.
	loaded   bool
	dirty    map[string]struct{}
	timer    *time.Timer
	timerSeq uint64
	seq      uint64
	issued   uint64
	acked    uint64
	created  map[string]bool
	unsub    func()
	version  uint64

	obsMu     sync.Mutex
	observers map[*observer]struct{}
}

func New(cfg Config) *Engine {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.ClientID == "" {
		cfg.ClientID = uuid.NewString()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{
		store:     cfg.Store,
		appID:     cfg.AppID,
		debounce:  cfg.Debounce,
		clientID:  cfg.ClientID,
		now:       cfg.Now,
		log:       cfg.Log.With().Str("component", "pagesync").Str("client_id", cfg.ClientID).Logger(),
		state:     StateUninitialized,
		dirty:     map[string]struct{}{},
		created:   map[string]bool{},
		observers: map[*observer]struct{}{},
	}
}

func (e *Engine) ClientID() string { return e.clientID }

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Snapshot returns the current state and a copy of the mirror.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Start binds the engine to pageID for a durable identity, creating the page
// document if it does not exist, and subscribes to it. Starting again with
// the same identity is a no-op unless the engine is in ERROR; then the page is
// reloaded and unwritten local edits are laid over it and written again.
func (e *Engine) Start(ctx context.Context, pageID string, id auth.Identity) error {
	if pageID == "" || id.ID == "" || !id.Durable {
		return fmt.Errorf("%w: a durable identity and page id are required", ErrNotReady)
	}

	e.mu.Lock()
	restart := e.pageID == pageID && e.identity == id
	if restart && e.state != StateError && e.state != StateUninitialized {
		e.mu.Unlock()
		return nil
	}
	e.teardownLocked()
	e.gen++
	gen := e.gen
	e.identity = id
	e.pageID = pageID
	e.state = StateLoading
	e.err = nil
	e.loaded = false
	if !restart {
		e.mirror = nil
		e.dirty = map[string]struct{}{}
	}
	e.acked = e.issued
	e.publishLocked()
	e.mu.Unlock()

	path := page.Path(e.appID, pageID)
	doc, err := e.store.Get(ctx, path)
	switch {
	case err == nil:
		e.onSnapshot(gen, doc, true, false)
	case errors.Is(err, docstore.ErrNotFound):
		if err := e.ensureCreated(ctx, gen); err != nil {
			return err
		}
	default:
		e.fail(gen, fmt.Errorf("load page %s: %w", pageID, err))
		return err
	}

	unsub, err := e.store.Subscribe(context.Background(), path,
		func(doc docstore.Document, exists bool) { e.onSnapshot(gen, doc, exists, false) },
		func(err error) { e.fail(gen, fmt.Errorf("page subscription: %w", err)) },
	)
	if err != nil {
		e.fail(gen, err)
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gen != gen {
		unsub()
		return nil
	}
	e.unsub = unsub
	return nil
}

// Close cancels a pending write and the subscription. Pending edits that were
// not flushed are dropped.
func (e *Engine) Close() {
	e.mu.Lock()
	e.teardownLocked()
	e.gen++
	e.state = StateUninitialized
	e.identity = auth.Identity{}
	e.pageID = ""
	e.mirror = nil
	e.dirty = map[string]struct{}{}
	e.acked = e.issued
	e.publishLocked()
	e.mu.Unlock()

	e.obsMu.Lock()
	for o := range e.observers {
		o.stop()
	}
	e.observers = map[*observer]struct{}{}
	e.obsMu.Unlock()
}

func (e *Engine) teardownLocked() {
	e.stopTimerLocked()
	if e.unsub != nil {
		e.unsub()
		e.unsub = nil
	}
}

// UpdateLinks replaces the link list. A list with the same id, text, url and
// spotlight sequence as the mirror is a no-op. Click counts of links already
// in the mirror are kept.
func (e *Engine) UpdateLinks(next []page.Link) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.editableLocked(); err != nil {
		return err
	}
	if next == nil {
		next = []page.Link{}
	}
	if e.mirror != nil && links.Fingerprint(next) == links.Fingerprint(e.mirror.Links) {
		return nil
	}
	e.ensureMirrorLocked()
	e.mirror.Links = links.Carry(e.mirror.Links, append([]page.Link(nil), next...))
	e.dirty[page.FieldLinks] = struct{}{}
	e.scheduleLocked()
	return nil
}

// UpdatePageData shallow-merges p into the mirror and schedules a write.
func (e *Engine) UpdatePageData(p Patch) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.editableLocked(); err != nil {
		return err
	}
	if p.Slug != nil {
		if err := slug.Validate(*p.Slug); err != nil {
			return err
		}
	}
	e.ensureMirrorLocked()
	m := e.mirror
	if p.Slug != nil {
		m.Slug = *p.Slug
		m.Username = *p.Slug
		e.dirty[page.FieldSlug] = struct{}{}
		e.dirty[page.FieldUsername] = struct{}{}
	}
	if p.Links != nil {
		m.Links = links.Carry(m.Links, append([]page.Link(nil), p.Links...))
		e.dirty[page.FieldLinks] = struct{}{}
	}
	if p.ThemeID != nil {
		m.ThemeID = *p.ThemeID
		e.dirty[page.FieldThemeID] = struct{}{}
	}
	if p.LayoutID != nil {
		m.LayoutID = *p.LayoutID
		e.dirty[page.FieldLayoutID] = struct{}{}
	}
	if p.ProfileData != nil {
		m.ProfileData = page.CloneProfile(p.ProfileData)
		e.dirty[page.FieldProfileData] = struct{}{}
	}
	e.scheduleLocked()
	return nil
}

// Flush writes pending changes now instead of waiting for the debounce. After
// a failed write it retries the unwritten fields.
func (e *Engine) Flush(ctx context.Context) error {
	e.mu.Lock()
	gen, state := e.gen, e.state
	e.mu.Unlock()
	if state == StateUninitialized {
		return ErrNotReady
	}
	return e.persist(ctx, gen, 0, false)
}

// editableLocked rejects edits before Start and after a failed load. A failed
// write keeps the mirror editable; the next edit schedules a retry.
func (e *Engine) editableLocked() error {
	switch e.state {
	case StateUninitialized:
		return ErrNotReady
	case StateError:
		if e.mirror == nil {
			return e.err
		}
	}
	return nil
}

func (e *Engine) ensureMirrorLocked() {
	if e.mirror != nil {
		return
	}
	e.mirror = &page.Record{
		PageID: e.pageID,
		UserID: e.identity.ID,
		Links:  []page.Link{},
	}
}

func (e *Engine) scheduleLocked() {
	e.stopTimerLocked()
	e.timerSeq++
	gen, tseq := e.gen, e.timerSeq
	e.timer = time.AfterFunc(e.debounce, func() {
		if err := e.persist(context.Background(), gen, tseq, true); err != nil {
			e.log.Warn().Err(err).Str("page_id", e.pageIDFor(gen)).Msg("debounced write failed")
		}
	})
	e.state = StateLocalWritePending
	e.err = nil
	e.publishLocked()
}

func (e *Engine) stopTimerLocked() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.timerSeq++
}

func (e *Engine) pageIDFor(gen uint64) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gen != gen {
		return ""
	}
	return e.pageID
}

// persist writes the dirty fields of the mirror. Timer-driven calls give up
// when a newer edit rescheduled the timer.
func (e *Engine) persist(ctx context.Context, gen, tseq uint64, fromTimer bool) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	e.mu.Lock()
	if e.gen != gen || (fromTimer && e.timerSeq != tseq) {
		e.mu.Unlock()
		return nil
	}
	if len(e.dirty) == 0 || e.mirror == nil {
		err := e.err
		if e.state != StateError {
			e.stopTimerLocked()
			e.settleLocked()
			err = nil
		}
		e.mu.Unlock()
		return err
	}
	e.stopTimerLocked()
	if e.state == StateError {
		e.state = StateLocalWritePending
		e.err = nil
		e.publishLocked()
	}

	e.seq++
	e.issued = e.seq
	tok := page.WriteToken{ClientID: e.clientID, Seq: e.seq}
	e.mirror.UpdatedAt = e.now().UnixMilli()
	e.mirror.WriteToken = &tok
	fields := e.payloadLocked()
	sent := e.dirty
	e.dirty = map[string]struct{}{}
	path := page.Path(e.appID, e.pageID)
	e.mu.Unlock()

	err := e.store.Set(ctx, path, fields, docstore.SetOptions{Merge: true})
	if err != nil {
		e.mu.Lock()
		if e.gen == gen {
			for f := range sent {
				e.dirty[f] = struct{}{}
			}
			// nothing is in flight any more
			e.acked = e.issued
		}
		e.mu.Unlock()
		err = fmt.Errorf("write page: %w", err)
		e.fail(gen, err)
		return err
	}

	e.confirm(ctx, gen, path)
	return nil
}

// confirm reads the document after a write resolved. The result is at least
// as new as the write, so it acknowledges it even when another writer's token
// is on the document by now.
func (e *Engine) confirm(ctx context.Context, gen uint64, path string) {
	doc, err := e.store.Get(ctx, path)
	if err != nil {
		e.log.Debug().Err(err).Str("path", path).Msg("confirm read failed, waiting for echo")
		return
	}
	e.onSnapshot(gen, doc, true, true)
}

func (e *Engine) payloadLocked() map[string]any {
	all := e.mirror.Fields()
	out := make(map[string]any, len(e.dirty)+2)
	for f := range e.dirty {
		if v, ok := all[f]; ok {
			out[f] = v
			continue
		}
		// omitted by the encoder because it is empty
		switch f {
		case page.FieldProfileData:
			out[f] = map[string]any{}
		default:
			out[f] = ""
		}
	}
	if e.state == StateLoading {
		// the document may not exist yet
		out[page.FieldPageID] = e.mirror.PageID
		out[page.FieldUserID] = e.mirror.UserID
	}
	out[page.FieldUpdatedAt] = e.mirror.UpdatedAt
	out[page.FieldWriteToken] = map[string]any{
		"clientId": e.mirror.WriteToken.ClientID,
		"seq":      e.mirror.WriteToken.Seq,
	}
	return out
}

// ensureCreated writes the initial page document at most once per page id.
func (e *Engine) ensureCreated(ctx context.Context, gen uint64) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	e.mu.Lock()
	if e.gen != gen || e.created[e.pageID] {
		e.mu.Unlock()
		return nil
	}
	e.created[e.pageID] = true
	e.seq++
	e.issued = e.seq
	ts := e.now().UnixMilli()
	rec := page.Record{
		PageID:     e.pageID,
		UserID:     e.identity.ID,
		Links:      []page.Link{},
		CreatedAt:  ts,
		UpdatedAt:  ts,
		WriteToken: &page.WriteToken{ClientID: e.clientID, Seq: e.seq},
	}
	e.ensureMirrorLocked()
	e.mirror.CreatedAt = ts
	path := page.Path(e.appID, e.pageID)
	e.mu.Unlock()

	err := e.store.Create(ctx, path, rec.Fields())
	if err != nil && !errors.Is(err, docstore.ErrAlreadyExists) {
		err = fmt.Errorf("create page: %w", err)
		e.fail(gen, err)
		return err
	}
	e.log.Info().Str("page_id", rec.PageID).Bool("existed", err != nil).Msg("page document ensured")
	e.confirm(ctx, gen, path)
	return nil
}

func (e *Engine) onSnapshot(gen uint64, doc docstore.Document, exists, confirmed bool) {
	if !exists {
		e.mu.Lock()
		needCreate := e.gen == gen && e.state == StateLoading && !e.created[e.pageID]
		e.mu.Unlock()
		if needCreate {
			_ = e.ensureCreated(context.Background(), gen)
		}
		return
	}

	rec, err := page.FromFields(doc.Data)
	if err != nil {
		e.fail(gen, err)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gen != gen || e.state == StateError || e.state == StateUninitialized {
		return
	}

	tok := rec.WriteToken
	own := tok != nil && tok.ClientID == e.clientID
	if own && tok.Seq < e.acked && e.loaded {
		return
	}
	if e.issued > e.acked {
		if !confirmed && !(own && tok.Seq >= e.issued) {
			return
		}
		e.acked = e.issued
	}
	if e.timer != nil {
		return
	}

	prev := e.mirror
	first := !e.loaded
	e.loaded = true
	e.mirror = &rec
	// fields edited while this snapshot was in flight stay local
	if prev != nil {
		for f := range e.dirty {
			overlay(e.mirror, prev, f)
		}
	}
	if first && len(e.dirty) > 0 {
		// edits kept across a restart
		e.scheduleLocked()
		return
	}
	e.settleLocked()
}

func overlay(dst, src *page.Record, field string) {
	switch field {
	case page.FieldLinks:
		dst.Links = src.Links
	case page.FieldSlug:
		dst.Slug = src.Slug
	case page.FieldUsername:
		dst.Username = src.Username
	case page.FieldThemeID:
		dst.ThemeID = src.ThemeID
	case page.FieldLayoutID:
		dst.LayoutID = src.LayoutID
	case page.FieldProfileData:
		dst.ProfileData = src.ProfileData
	}
}

// settleLocked moves to SYNCED when nothing is scheduled or unacknowledged.
func (e *Engine) settleLocked() {
	if e.state == StateError || e.state == StateUninitialized {
		return
	}
	switch {
	case e.timer != nil || len(e.dirty) > 0 || e.issued > e.acked:
		e.state = StateLocalWritePending
	case e.mirror != nil:
		e.state = StateSynced
	}
	e.publishLocked()
}

func (e *Engine) fail(gen uint64, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gen != gen || e.state == StateError {
		return
	}
	e.stopTimerLocked()
	e.state = StateError
	e.err = err
	if docstore.IsPermissionDenied(err) {
		e.log.Error().Err(err).Str("page_id", e.pageID).Msg("page store denied access, check document access rules")
	} else {
		e.log.Error().Err(err).Str("page_id", e.pageID).Msg("page sync failed")
	}
	e.publishLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	s := Snapshot{State: e.state, Err: e.err, Version: e.version}
	if e.mirror != nil {
		rec := e.mirror.Clone()
		s.Record = &rec
	}
	return s
}
