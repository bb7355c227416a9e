package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"linkstudio/internal/auth"
	"linkstudio/internal/claim"
	"linkstudio/internal/config"
	"linkstudio/internal/docstore"
	"linkstudio/internal/editor"
	"linkstudio/internal/pages"
	"linkstudio/internal/pagesync"
	"linkstudio/internal/slug"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	handler http.Handler
	jwt     *auth.JWT
	pages   *pages.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	st := docstore.NewMemoryStore()
	log := zerolog.Nop()
	slugs := slug.NewRegistry(st, "app", log)
	svc := &pages.Service{Store: st, AppID: "app", Slugs: slugs, Log: log}
	jwtSvc := auth.NewJWT("test-secret")

	h := NewRouter(Deps{
		Config:   config.Config{PublicBaseURL: "https://links.test"},
		JWT:      jwtSvc,
		Accounts: &auth.Accounts{Users: auth.NewMemoryUsers()},
		Pages:    svc,
		Claim:    &claim.Flow{Store: st, AppID: "app", Slugs: slugs, Log: log},
		Sync:     pagesync.Config{Store: st, AppID: "app", Debounce: 20 * time.Millisecond, Log: log},
		Log:      log,
	})
	return &testServer{handler: h, jwt: jwtSvc, pages: svc}
}

func (s *testServer) token(t *testing.T, id auth.Identity) string {
	t.Helper()
	tok, err := s.jwt.Sign(id)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)

	out := map[string]any{}
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	}
	return rr, out
}

func (s *testServer) claim(t *testing.T, id auth.Identity, username string) {
	t.Helper()
	rr, _ := s.do(t, http.MethodPost, "/me/claim", s.token(t, id), map[string]any{
		"draft": map[string]any{
			"username":          username,
			"selectedPlatforms": []string{"github"},
			"platformLinks":     map[string]string{"github": "jane"},
			"customLinks":       []map[string]string{{"id": "custom-1", "text": "Blog", "url": "https://jane.dev"}},
		},
		"includeSlug": true,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

var (
	jane = auth.Identity{ID: "u123", Durable: true}
	bob  = auth.Identity{ID: "u456", Durable: true}
)

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)
	creds := map[string]string{"email": "Jane@Example.com", "password": "correct horse"}

	rr, body := s.do(t, http.MethodPost, "/auth/register", "", creds)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.NotEmpty(t, body["token"])

	rr, body = s.do(t, http.MethodPost, "/auth/register", "", creds)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "EMAIL_TAKEN", body["code"])

	rr, body = s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "jane@example.com", "password": "correct horse"})
	require.Equal(t, http.StatusOK, rr.Code)
	tok, _ := body["token"].(string)

	rr, body = s.do(t, http.MethodGet, "/me", tok, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, body["identity"].(map[string]any)["durable"])

	rr, body = s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "jane@example.com", "password": "wrong password"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", body["code"])
}

func TestAnonymousTokenCannotOwnAPage(t *testing.T) {
	s := newTestServer(t)
	rr, body := s.do(t, http.MethodPost, "/auth/anonymous", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	tok, _ := body["token"].(string)

	rr, _ = s.do(t, http.MethodGet, "/me", tok, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr, _ = s.do(t, http.MethodGet, "/me/page", tok, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr, _ = s.do(t, http.MethodGet, "/me/page", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestClaimThenServePublicPage(t *testing.T) {
	s := newTestServer(t)
	s.claim(t, jane, "JaneDoe")

	rr, body := s.do(t, http.MethodGet, "/p/janedoe", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "https://links.test/janedoe", body["url"])
	pg := body["page"].(map[string]any)
	assert.Equal(t, "janedoe", pg["slug"])
	assert.Equal(t, "janedoe", pg["username"])
	assert.Empty(t, pg["userId"])
	assert.Nil(t, pg["writeToken"])
	assert.Len(t, pg["links"], 2)

	rr, _ = s.do(t, http.MethodGet, "/p/u123", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr, body = s.do(t, http.MethodGet, "/p/nobody", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestClaimRejectsTakenSlug(t *testing.T) {
	s := newTestServer(t)
	s.claim(t, jane, "janedoe")

	rr, body := s.do(t, http.MethodPost, "/me/claim", s.token(t, bob), map[string]any{
		"draft":       map[string]any{"username": "janedoe"},
		"includeSlug": true,
	})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "SLUG_TAKEN", body["code"])
	assert.Len(t, body["details"].(map[string]any)["suggestions"], slug.SuggestionCount)
}

func TestCheckSlug(t *testing.T) {
	s := newTestServer(t)
	s.claim(t, jane, "janedoe")

	tests := []struct {
		name      string
		path      string
		token     string
		available bool
		code      string
	}{
		{name: "free", path: "/slugs/fresh-name", available: true},
		{name: "taken", path: "/slugs/janedoe", code: "SLUG_TAKEN"},
		{name: "own slug", path: "/slugs/JaneDoe", token: s.token(t, jane), available: true},
		{name: "too short", path: "/slugs/ab", code: string(slug.CodeTooShort)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, body := s.do(t, http.MethodGet, tt.path, tt.token, nil)
			require.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, tt.available, body["available"])
			if tt.code != "" {
				assert.Equal(t, tt.code, body["code"])
			}
		})
	}
}

func TestMoveSlug(t *testing.T) {
	s := newTestServer(t)
	s.claim(t, jane, "janedoe")
	s.claim(t, bob, "bobsmith")

	rr, body := s.do(t, http.MethodPut, "/me/page/slug", s.token(t, bob), map[string]string{"slug": "janedoe"})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "SLUG_TAKEN", body["code"])

	rr, body = s.do(t, http.MethodPut, "/me/page/slug", s.token(t, bob), map[string]string{"slug": "Bob-Builds"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "https://links.test/bob-builds", body["url"])

	rr, _ = s.do(t, http.MethodGet, "/p/bobsmith", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr, body = s.do(t, http.MethodGet, "/slugs/bobsmith", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, body["available"])
}

func TestUpdatePage(t *testing.T) {
	s := newTestServer(t)
	s.claim(t, jane, "janedoe")
	tok := s.token(t, jane)

	rr, body := s.do(t, http.MethodPatch, "/me/page", tok, map[string]any{"themeId": "no-such-theme"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "INVALID_INPUT", body["code"])

	rr, _ = s.do(t, http.MethodPatch, "/me/page", tok, map[string]any{"bogus": true})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, body = s.do(t, http.MethodPatch, "/me/page", tok, map[string]any{"themeId": "ocean-blue"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "ocean-blue", body["page"].(map[string]any)["themeId"])
}

func TestRecordClick(t *testing.T) {
	s := newTestServer(t)
	s.claim(t, jane, "janedoe")

	rr, _ := s.do(t, http.MethodPost, "/p/u123/links/custom-1/click", "", nil)
	assert.Equal(t, http.StatusAccepted, rr.Code)

	rec, err := s.pages.Get(context.Background(), "u123")
	require.NoError(t, err)
	for _, l := range rec.Links {
		if l.ID == "custom-1" {
			assert.EqualValues(t, 1, l.ClickCount)
		}
	}

	rr, _ = s.do(t, http.MethodPost, "/p/u123/links/missing/click", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCatalogRoutes(t *testing.T) {
	s := newTestServer(t)

	rr, body := s.do(t, http.MethodGet, "/catalog", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, body["platforms"])
	assert.NotEmpty(t, body["layouts"])

	rr, body = s.do(t, http.MethodGet, "/links/suggest-text?url=https://calendly.com/jane", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Book a Quick Consultation", body["text"])

	rr, body = s.do(t, http.MethodGet, "/catalog/schema?layout=video-creator-focus", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, body["fields"])

	rr, _ = s.do(t, http.MethodGet, "/catalog/schema?layout=nope", "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUnconfiguredStore(t *testing.T) {
	h := NewRouter(Deps{JWT: auth.NewJWT("test-secret"), Log: zerolog.Nop()})
	s := &testServer{handler: h}

	rr, body := s.do(t, http.MethodGet, "/p/janedoe", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "CONFIGURATION_REQUIRED", body["code"])

	rr, _ = s.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": "a@b.c", "password": "long enough"})
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr, _ = s.do(t, http.MethodGet, "/edit/ws", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr, _ = s.do(t, http.MethodPost, "/auth/anonymous", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestEditorWebsocket(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.handler)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/edit/ws?token=" + s.token(t, jane)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	next := func(match func(editor.Event) bool) editor.Event {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		for {
			var ev editor.Event
			require.NoError(t, conn.ReadJSON(&ev))
			if match(ev) {
				return ev
			}
		}
	}

	next(func(ev editor.Event) bool { return ev.Type == editor.EventDraft })
	next(func(ev editor.Event) bool {
		return ev.Type == editor.EventPage && ev.State == pagesync.StateSynced && ev.Page != nil
	})
	// hydration from the stored page
	next(func(ev editor.Event) bool { return ev.Type == editor.EventDraft })

	require.NoError(t, conn.WriteJSON(editor.Op{Op: editor.OpSetPlatforms, Platforms: []string{"github"}}))
	ev := next(func(ev editor.Event) bool {
		return ev.Type == editor.EventDraft && ev.Draft != nil && len(ev.Draft.SelectedPlatforms) == 1
	})
	assert.Equal(t, "github", ev.Draft.SelectedPlatforms[0])

	require.NoError(t, conn.WriteJSON(editor.Op{Op: "nope"}))
	ev = next(func(ev editor.Event) bool { return ev.Type == editor.EventError })
	assert.Equal(t, "INVALID_INPUT", ev.Code)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{")))
	ev = next(func(ev editor.Event) bool { return ev.Type == editor.EventError })
	assert.Equal(t, "INVALID_INPUT", ev.Code)

	_, err = s.pages.Get(context.Background(), "u123")
	assert.NoError(t, err)
}
