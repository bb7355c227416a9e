package handler

import (
	"net/http"
	"strings"

	"linkstudio/internal/catalog"
	"linkstudio/internal/links"
	"linkstudio/internal/profile"
)

type CatalogHandler struct {
	Catalog *catalog.Catalog
}

func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"platforms": h.Catalog.Platforms(),
		"themes":    h.Catalog.Themes(),
		"layouts":   h.Catalog.Layouts(),
	})
}

// Schema lists the profile fields of ?layout= for the platforms in ?platforms=.
func (h *CatalogHandler) Schema(w http.ResponseWriter, r *http.Request) {
	layout := r.URL.Query().Get("layout")
	if _, ok := h.Catalog.Layout(layout); !ok {
		writeJSON(w, http.StatusBadRequest, apiError{Code: "INVALID_INPUT", Message: "unknown layout " + layout})
		return
	}
	var platforms []string
	for _, p := range strings.Split(r.URL.Query().Get("platforms"), ",") {
		if p = strings.TrimSpace(p); p != "" {
			platforms = append(platforms, p)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"fields": profile.Schema(layout, platforms)})
}

func (h *CatalogHandler) SuggestText(w http.ResponseWriter, r *http.Request) {
	u := r.URL.Query().Get("url")
	writeJSON(w, http.StatusOK, map[string]any{"text": links.SuggestText(u)})
}
