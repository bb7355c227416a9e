package editor

import (
	"errors"

	"linkstudio/internal/auth"
	"linkstudio/internal/claim"
	"linkstudio/internal/docstore"
	"linkstudio/internal/draft"
	"linkstudio/internal/page"
	"linkstudio/internal/pages"
	"linkstudio/internal/pagesync"
	"linkstudio/internal/profile"
	"linkstudio/internal/slug"
)

const (
	EventIdentity = "identity"
	EventDraft    = "draft"
	EventPage     = "page"
	EventClaimed  = "claimed"
	EventSlug     = "slug"
	EventError    = "error"
)

// Event is one server frame of an editing session.
type Event struct {
	Type        string         `json:"type"`
	Op          string         `json:"op,omitempty"`
	Identity    *auth.Identity `json:"identity,omitempty"`
	Draft       *draft.State   `json:"draft,omitempty"`
	State       pagesync.State `json:"state,omitempty"`
	Page        *page.Record   `json:"page,omitempty"`
	URL         string         `json:"url,omitempty"`
	Slug        string         `json:"slug,omitempty"`
	Available   *bool          `json:"available,omitempty"`
	Suggestions []string       `json:"suggestions,omitempty"`
	Code        string         `json:"code,omitempty"`
	Error       string         `json:"error,omitempty"`
	Recoverable bool           `json:"recoverable,omitempty"`
}

// ErrorEvent describes a failed op for the client.
func ErrorEvent(op string, err error) Event {
	ev := Event{Type: EventError, Op: op, Error: err.Error(), Code: "INTERNAL"}

	var (
		verr  *slug.ValidationError
		taken *pages.SlugTakenError
		cerr  *claim.Error
		ferr  *profile.FieldError
		pverr *pages.ValidationError
		oerr  *OpError
	)
	switch {
	case errors.As(err, &verr):
		ev.Code = string(verr.Code)
		ev.Recoverable = true
	case errors.As(err, &taken):
		ev.Code = "SLUG_TAKEN"
		ev.Slug = taken.Slug
		ev.Suggestions = taken.Suggestions
		ev.Recoverable = true
	case errors.As(err, &cerr):
		ev.Code = "CLAIM_FAILED"
		ev.Recoverable = cerr.Recoverable
		ev.Suggestions = cerr.Suggestions
		if errors.Is(err, slug.ErrTaken) {
			ev.Code = "SLUG_TAKEN"
		}
	case errors.As(err, &ferr), errors.As(err, &pverr), errors.As(err, &oerr):
		ev.Code = "INVALID_INPUT"
		ev.Recoverable = true
	case errors.Is(err, auth.ErrInvalidToken):
		ev.Code = "UNAUTHORIZED"
	case errors.Is(err, pagesync.ErrNotReady), errors.Is(err, ErrNotSignedIn):
		ev.Code = "NOT_READY"
		ev.Recoverable = true
	case docstore.IsPermissionDenied(err):
		ev.Code = "PERMISSION_DENIED"
	}
	return ev
}
