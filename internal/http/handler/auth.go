package handler

import (
	"net/http"

	"linkstudio/internal/auth"

	"github.com/rs/zerolog"
)

type AuthHandler struct {
	// Accounts is nil while no store is configured.
	Accounts *auth.Accounts
	JWT      *auth.JWT
	Log      zerolog.Logger
}

type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResp struct {
	Token    string        `json:"token"`
	Identity auth.Identity `json:"identity"`
}

// Anonymous issues a token for an unsaved editing session.
func (h *AuthHandler) Anonymous(w http.ResponseWriter, r *http.Request) {
	id, token, err := h.JWT.SignAnonymous()
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResp{Token: token, Identity: id})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsReq
	if err := decodeJSON(r, &req); err != nil {
		badJSON(w)
		return
	}
	if auth.NormalizeEmail(req.Email) == "" || len(req.Password) < 8 {
		writeJSON(w, http.StatusBadRequest, apiError{Code: "INVALID_INPUT", Message: "email and a password of at least 8 characters are required"})
		return
	}
	if h.Accounts == nil {
		writeError(w, h.Log, ErrUnconfigured)
		return
	}
	id, err := h.Accounts.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	h.issue(w, http.StatusCreated, id)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsReq
	if err := decodeJSON(r, &req); err != nil {
		badJSON(w)
		return
	}
	if auth.NormalizeEmail(req.Email) == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, apiError{Code: "INVALID_INPUT", Message: "email and password are required"})
		return
	}
	if h.Accounts == nil {
		writeError(w, h.Log, ErrUnconfigured)
		return
	}
	id, err := h.Accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	h.issue(w, http.StatusOK, id)
}

func (h *AuthHandler) issue(w http.ResponseWriter, status int, id auth.Identity) {
	token, err := h.JWT.Sign(id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, status, tokenResp{Token: token, Identity: id})
}
