// Package editor runs one live editing session: a draft the client edits,
// the claim of that draft when the user signs in, and two-way sync between
// the draft and the stored page.
package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"linkstudio/internal/auth"
	"linkstudio/internal/catalog"
	"linkstudio/internal/claim"
	"linkstudio/internal/draft"
	"linkstudio/internal/links"
	"linkstudio/internal/page"
	"linkstudio/internal/pages"
	"linkstudio/internal/pagesync"
	"linkstudio/internal/profile"

	"github.com/rs/zerolog"
)

var ErrNotSignedIn = errors.New("sign in to save your page")

// OpError rejects a malformed op.
type OpError struct {
	Op  string
	Msg string
}

func (e *OpError) Error() string { return e.Op + ": " + e.Msg }

type TokenVerifier interface {
	Verify(token string) (auth.Identity, error)
}

type Deps struct {
	Tokens     TokenVerifier
	Engine     *pagesync.Engine
	Claim      *claim.Flow
	Pages      *pages.Service
	Catalog    *catalog.Catalog
	PublicBase string
	Log        zerolog.Logger
}

// Session is not tied to a transport. Events go to emit, which must be safe
// for concurrent use.
type Session struct {
	deps  Deps
	cat   *catalog.Catalog
	draft *draft.Store
	emit  func(Event)
	log   zerolog.Logger

	fwdMu sync.Mutex

	mu       sync.Mutex
	identity auth.Identity
	// anonymous is set once the draft is edited without a durable identity;
	// the first durable sign-in after that claims the draft.
	anonymous   bool
	claimed     bool
	started     bool
	hydrating   bool
	hydrated    bool
	closed      bool
	unsubDraft  func()
	unsubEngine func()
}

func NewSession(deps Deps, emit func(Event)) *Session {
	cat := deps.Catalog
	if cat == nil {
		cat = catalog.Default()
	}
	if deps.PublicBase == "" {
		deps.PublicBase = page.DefaultPublicBase
	}
	s := &Session{
		deps:  deps,
		cat:   cat,
		draft: draft.NewStore(),
		emit:  emit,
		log:   deps.Log.With().Str("component", "editor").Logger(),
	}
	s.unsubDraft = s.draft.Subscribe(s.onDraft)
	return s
}

// Draft returns a copy of the current draft.
func (s *Session) Draft() draft.State { return s.draft.Snapshot() }

func (s *Session) Identity() auth.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// Ready reports whether the page is loaded and the draft hydrated from it.
// Draft edits reach the page only once the session is ready.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && s.hydrated && !s.closed
}

// Authenticate verifies token and switches the session to its identity.
func (s *Session) Authenticate(ctx context.Context, token string) error {
	id, err := s.deps.Tokens.Verify(token)
	if err != nil {
		return err
	}
	return s.SignIn(ctx, id)
}

// SignIn switches the session to id. The first durable identity after an
// anonymous session claims the draft before the page is loaded.
func (s *Session) SignIn(ctx context.Context, id auth.Identity) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return pagesync.ErrNotReady
	}
	if !id.Durable {
		s.identity = id
		s.mu.Unlock()
		s.emit(Event{Type: EventIdentity, Identity: &id})
		return nil
	}
	if s.identity == id && s.started {
		s.mu.Unlock()
		return s.resume(ctx, id)
	}
	if s.identity != id {
		s.hydrated = false
	}
	s.identity = id
	s.started = false
	runClaim := s.anonymous && !s.claimed
	s.mu.Unlock()
	s.emit(Event{Type: EventIdentity, Identity: &id})

	if runClaim {
		rec, err := s.deps.Claim.Claim(ctx, id, s.draft.Snapshot(), claim.Options{})
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.claimed = true
		s.mu.Unlock()
		s.emit(Event{Type: EventClaimed, Page: &rec, URL: page.PublicURL(s.deps.PublicBase, rec)})
	}

	if err := s.deps.Engine.Start(ctx, id.ID, id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.started = true
	if s.unsubEngine == nil {
		s.unsubEngine = s.deps.Engine.Subscribe(s.onPage)
	}
	return nil
}

// resume restarts the engine after a failed load, write or subscription.
// Edits the engine could not write are kept and written again.
func (s *Session) resume(ctx context.Context, id auth.Identity) error {
	if s.deps.Engine.State() != pagesync.StateError {
		return nil
	}
	s.log.Info().Str("page_id", id.ID).Msg("restarting page sync after error")
	return s.deps.Engine.Start(ctx, id.ID, id)
}

func (s *Session) onDraft(st draft.State) {
	s.emit(Event{Type: EventDraft, Draft: &st})

	s.mu.Lock()
	if !s.identity.Durable {
		s.anonymous = true
	}
	ready := s.started && s.hydrated && !s.closed
	s.mu.Unlock()
	if ready {
		s.forward()
	}
}

func (s *Session) onPage(snap pagesync.Snapshot) {
	ev := Event{Type: EventPage, State: snap.State, Page: snap.Record}
	if snap.Record != nil {
		ev.URL = page.PublicURL(s.deps.PublicBase, *snap.Record)
	}
	if snap.Err != nil {
		ev.Error = snap.Err.Error()
	}
	s.emit(ev)

	if snap.State != pagesync.StateSynced || snap.Record == nil {
		return
	}
	s.mu.Lock()
	if s.hydrated || s.hydrating || s.closed || snap.Record.PageID != s.identity.ID {
		s.mu.Unlock()
		return
	}
	s.hydrating = true
	s.mu.Unlock()

	s.hydrate(*snap.Record)

	s.mu.Lock()
	s.hydrating = false
	s.hydrated = true
	ready := s.started && !s.closed
	s.mu.Unlock()
	if ready {
		s.forward()
	}
}

// hydrate seeds the draft from the first synced page. Persisted links win;
// profile data replaces the draft's when they differ; the username only
// fills an empty draft value.
func (s *Session) hydrate(rec page.Record) {
	st := s.draft.Snapshot()
	h := draft.Hydration{LayoutID: rec.LayoutID, ThemeID: rec.ThemeID}

	if len(rec.Links) > 0 {
		selected, handles, custom := links.Partition(rec.Links, s.cat)
		// platforms picked but still waiting for a handle stay selected
		for _, id := range st.SelectedPlatforms {
			if strings.TrimSpace(st.PlatformLinks[id]) == "" && !contains(selected, id) {
				selected = append(selected, id)
			}
		}
		merged := make(map[string]string, len(st.PlatformLinks)+len(handles))
		for k, v := range st.PlatformLinks {
			merged[k] = v
		}
		for k, v := range handles {
			merged[k] = v
		}
		h.SelectedPlatforms = selected
		h.PlatformLinks = merged
		h.CustomLinks = custom
	}
	if len(rec.ProfileData) > 0 && !sameJSON(st.ProfileFormData, rec.ProfileData) {
		h.Profile = rec.ProfileData
	}
	if strings.TrimSpace(st.Username) == "" {
		h.Username = rec.Username
	}
	s.draft.Hydrate(h)
	s.log.Debug().Str("page_id", rec.PageID).Int("links", len(rec.Links)).Msg("draft hydrated")
}

// forward pushes draft changes the engine's mirror does not have yet. Calls
// are serialized and read the draft themselves, so the last one carries the
// newest state.
func (s *Session) forward() {
	s.fwdMu.Lock()
	defer s.fwdMu.Unlock()

	st := s.draft.Snapshot()
	eng := s.deps.Engine
	snap := eng.Snapshot()
	if snap.Record == nil {
		return
	}
	rec := snap.Record

	// assembled links never carry the spotlight; keep the stored one
	next := links.KeepSpotlight(rec.Links, st.Links(s.cat))
	if err := eng.UpdateLinks(next); err != nil {
		s.syncFailed(err)
		return
	}

	var p pagesync.Patch
	changed := false
	// an empty draft profile never overwrites the stored one
	if len(st.ProfileFormData) > 0 && !sameJSON(st.ProfileFormData, rec.ProfileData) {
		p.ProfileData = st.ProfileFormData
		changed = true
	}
	if differs(st.LayoutID, rec.LayoutID, catalog.DefaultLayoutID) {
		p.LayoutID = &st.LayoutID
		changed = true
	}
	if differs(st.ThemeID, rec.ThemeID, catalog.DefaultThemeID) {
		p.ThemeID = &st.ThemeID
		changed = true
	}
	if !changed {
		return
	}
	if err := eng.UpdatePageData(p); err != nil {
		s.syncFailed(err)
	}
}

// syncFailed reports an edit the engine refused. The draft keeps it; an auth
// or flush op restarts the engine and writes it.
func (s *Session) syncFailed(err error) {
	s.log.Warn().Err(err).Msg("edit not synced")
	ev := ErrorEvent(OpFlush, err)
	ev.Recoverable = true
	s.emit(ev)
}

// differs reports whether local should be written over stored. An unset
// stored value already means def.
func differs(local, stored, def string) bool {
	if local == "" || local == stored {
		return false
	}
	return !(stored == "" && local == def)
}

// Close stops syncing. Unflushed edits are dropped.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsubDraft, unsubEngine := s.unsubDraft, s.unsubEngine
	s.unsubDraft, s.unsubEngine = nil, nil
	s.mu.Unlock()

	if unsubDraft != nil {
		unsubDraft()
	}
	if unsubEngine != nil {
		unsubEngine()
	}
	s.deps.Engine.Close()
}

func (s *Session) durable() (auth.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.identity.Durable || !s.started {
		return auth.Identity{}, ErrNotSignedIn
	}
	return s.identity, nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func sameJSON(a, b map[string]any) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	ja, err := json.Marshal(a)
	if err != nil {
		return false
	}
	jb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return string(ja) == string(jb)
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	}
	return false
}

func autofill(st draft.State, platformID, url string) map[string]any {
	fills := profile.AutoFillFor(profile.Schema(st.LayoutID, st.SelectedPlatforms), platformID, url)
	out := map[string]any{}
	for k, v := range fills {
		if isBlank(st.ProfileFormData[k]) {
			out[k] = v
		}
	}
	return out
}

func opErr(op, format string, args ...any) error {
	return &OpError{Op: op, Msg: fmt.Sprintf(format, args...)}
}
