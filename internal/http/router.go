package http

import (
	"net/http"

	"linkstudio/internal/auth"
	"linkstudio/internal/catalog"
	"linkstudio/internal/claim"
	"linkstudio/internal/config"
	"linkstudio/internal/editor"
	"linkstudio/internal/http/handler"
	mw "linkstudio/internal/http/middleware"
	"linkstudio/internal/pages"
	"linkstudio/internal/pagesync"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Deps are the services behind the routes. Accounts, Pages and Claim are nil
// while no store is configured; their routes then answer 503.
type Deps struct {
	Config   config.Config
	JWT      *auth.JWT
	Accounts *auth.Accounts
	Pages    *pages.Service
	Claim    *claim.Flow
	Catalog  *catalog.Catalog
	// Sync configures the page sync engine of each editor connection.
	Sync pagesync.Config
	Log  zerolog.Logger
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	cat := d.Catalog
	if cat == nil {
		cat = catalog.Default()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.RequestLog(d.Log))
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ah := &handler.AuthHandler{Accounts: d.Accounts, JWT: d.JWT, Log: d.Log}
	r.Post("/auth/anonymous", ah.Anonymous)
	r.Post("/auth/register", ah.Register)
	r.Post("/auth/login", ah.Login)

	me := &handler.MeHandler{}
	r.With(auth.RequireAuth(d.JWT)).Get("/me", me.Me)

	ch := &handler.CatalogHandler{Catalog: cat}
	r.Get("/catalog", ch.List)
	r.Get("/catalog/schema", ch.Schema)
	r.Get("/links/suggest-text", ch.SuggestText)

	ph := &handler.PagesHandler{Svc: d.Pages, Claim: d.Claim, JWT: d.JWT, PublicBase: cfg.PublicBaseURL, Log: d.Log}
	r.Get("/p/{key}", ph.Public)
	r.Post("/p/{pageId}/links/{linkId}/click", ph.Click)
	r.Get("/slugs/{slug}", ph.CheckSlug)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(d.JWT))
		r.Use(auth.RequireDurable)

		r.Get("/me/page", ph.Mine)
		r.Patch("/me/page", ph.Update)
		r.Put("/me/page/slug", ph.PutSlug)
		r.Post("/me/claim", ph.ClaimDraft)
	})

	eh := &handler.EditorHandler{
		Deps: editor.Deps{
			Tokens:     d.JWT,
			Claim:      d.Claim,
			Pages:      d.Pages,
			Catalog:    cat,
			PublicBase: cfg.PublicBaseURL,
		},
		Sync:    d.Sync,
		Origins: cfg.CORSAllowedOrigins,
		Log:     d.Log,
	}
	r.Get("/edit/ws", eh.Serve)

	return r
}
