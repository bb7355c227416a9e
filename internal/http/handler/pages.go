package handler

import (
	"net/http"

	"linkstudio/internal/auth"
	"linkstudio/internal/claim"
	"linkstudio/internal/draft"
	"linkstudio/internal/page"
	"linkstudio/internal/pages"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type PagesHandler struct {
	// Svc and Claim are nil while no store is configured.
	Svc        *pages.Service
	Claim      *claim.Flow
	JWT        *auth.JWT
	PublicBase string
	Log        zerolog.Logger
}

type pageResp struct {
	Page page.Record `json:"page"`
	URL  string      `json:"url"`
}

func (h *PagesHandler) configured(w http.ResponseWriter) bool {
	if h.Svc == nil {
		writeError(w, h.Log, ErrUnconfigured)
		return false
	}
	return true
}

func (h *PagesHandler) page(w http.ResponseWriter, status int, rec page.Record) {
	writeJSON(w, status, pageResp{Page: rec, URL: page.PublicURL(h.PublicBase, rec)})
}

// Public serves a page by slug or page id.
func (h *PagesHandler) Public(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	rec, err := h.Svc.Resolve(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	rec.UserID, rec.WriteToken = "", nil
	h.page(w, http.StatusOK, rec)
}

func (h *PagesHandler) Click(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	err := h.Svc.RecordClick(r.Context(), chi.URLParam(r, "pageId"), chi.URLParam(r, "linkId"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type slugResp struct {
	Slug        string   `json:"slug"`
	Available   bool     `json:"available"`
	Code        string   `json:"code,omitempty"`
	Message     string   `json:"message,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// CheckSlug answers availability for the caller's page when a durable token
// is sent and for a new page otherwise.
func (h *PagesHandler) CheckSlug(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	var pageID string
	if token, ok := auth.BearerToken(r); ok && h.JWT != nil {
		if id, err := h.JWT.Verify(token); err == nil && id.Durable {
			pageID = id.ID
		}
	}

	res := h.Svc.CheckSlug(r.Context(), chi.URLParam(r, "slug"), pageID)
	out := slugResp{Slug: res.Slug, Available: res.Available, Suggestions: res.Suggestions}
	if res.Err != nil {
		status, body := describe(res.Err)
		if status != http.StatusBadRequest {
			writeError(w, h.Log, res.Err)
			return
		}
		out.Code, out.Message = body.Code, body.Message
	} else if !res.Available {
		out.Code = "SLUG_TAKEN"
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *PagesHandler) Mine(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	id, _ := auth.IdentityFromContext(r.Context())
	rec, err := h.Svc.Get(r.Context(), id.ID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	h.page(w, http.StatusOK, rec)
}

func (h *PagesHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	var req pages.Changes
	if err := decodeJSON(r, &req); err != nil {
		badJSON(w)
		return
	}
	id, _ := auth.IdentityFromContext(r.Context())
	rec, err := h.Svc.Update(r.Context(), id.ID, req)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	h.page(w, http.StatusOK, rec)
}

type slugReq struct {
	Slug string `json:"slug"`
}

// PutSlug moves the caller's page to a new slug; an empty slug clears it.
func (h *PagesHandler) PutSlug(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	var req slugReq
	if err := decodeJSON(r, &req); err != nil {
		badJSON(w)
		return
	}
	id, _ := auth.IdentityFromContext(r.Context())
	rec, err := h.Svc.ClaimSlug(r.Context(), id.ID, req.Slug)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	h.page(w, http.StatusOK, rec)
}

type claimReq struct {
	Draft       draft.State `json:"draft"`
	IncludeSlug bool        `json:"includeSlug"`
}

// ClaimDraft saves a draft built without a live session as the caller's page.
func (h *PagesHandler) ClaimDraft(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil || h.Claim == nil {
		writeError(w, h.Log, ErrUnconfigured)
		return
	}
	var req claimReq
	if err := decodeJSON(r, &req); err != nil {
		badJSON(w)
		return
	}
	id, _ := auth.IdentityFromContext(r.Context())
	rec, err := h.Claim.Claim(r.Context(), id, req.Draft, claim.Options{IncludeSlug: req.IncludeSlug})
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	h.page(w, http.StatusOK, rec)
}
