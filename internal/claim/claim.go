// Package claim turns an anonymous editing session into a persisted page
// once the user signs in.
package claim

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"linkstudio/internal/auth"
	"linkstudio/internal/catalog"
	"linkstudio/internal/docstore"
	"linkstudio/internal/draft"
	"linkstudio/internal/page"
	"linkstudio/internal/slug"

	"github.com/rs/zerolog"
)

var ErrNotDurable = errors.New("a signed-in account is required to claim a page")

type Options struct {
	// IncludeSlug reserves the draft username as the page slug.
	IncludeSlug bool
}

// Error is a failed claim. The draft is never modified by a claim, so a
// recoverable error can be retried as is.
type Error struct {
	Err         error
	Recoverable bool
	// Suggestions is set when the requested slug is taken.
	Suggestions []string
}

func (e *Error) Error() string { return "claim page: " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

type Flow struct {
	Store   docstore.Store
	AppID   string
	Catalog *catalog.Catalog
	Slugs   *slug.Registry
	Now     func() time.Time
	Log     zerolog.Logger
}

// Claim writes a page for id built from st in one immediate merge write.
func (f *Flow) Claim(ctx context.Context, id auth.Identity, st draft.State, opts Options) (page.Record, error) {
	if id.ID == "" || !id.Durable {
		return page.Record{}, &Error{Err: ErrNotDurable}
	}
	cat := f.Catalog
	if cat == nil {
		cat = catalog.Default()
	}
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}

	ts := now().UnixMilli()
	rec := page.Record{
		PageID:      id.ID,
		UserID:      id.ID,
		Username:    strings.TrimSpace(st.Username),
		Links:       st.Links(cat),
		LayoutID:    st.LayoutID,
		ThemeID:     st.ThemeID,
		ProfileData: page.CloneProfile(st.ProfileFormData),
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	if rec.ProfileData == nil {
		rec.ProfileData = map[string]any{}
	}

	var reserved string
	if opts.IncludeSlug {
		s, err := f.Slugs.Reserve(ctx, st.Username, id.ID)
		if err != nil {
			return page.Record{}, slugError(s, err)
		}
		reserved = s
		rec.Slug = s
		rec.Username = s
	}

	fields := rec.Fields()
	fields[page.FieldProfileData] = page.CloneProfile(rec.ProfileData)
	path := page.Path(f.AppID, id.ID)
	if err := f.Store.Set(ctx, path, fields, docstore.SetOptions{Merge: true}); err != nil {
		if reserved != "" {
			if rerr := f.Slugs.Release(ctx, reserved, id.ID); rerr != nil {
				f.Log.Warn().Err(rerr).Str("slug", reserved).Msg("release slug after failed claim")
			}
		}
		return page.Record{}, &Error{Err: fmt.Errorf("write page: %w", err), Recoverable: true}
	}

	f.Log.Info().
		Str("page_id", rec.PageID).
		Int("links", len(rec.Links)).
		Str("slug", rec.Slug).
		Msg("page claimed")
	return rec, nil
}

func slugError(s string, err error) *Error {
	out := &Error{Err: err, Recoverable: true}
	if errors.Is(err, slug.ErrTaken) {
		out.Suggestions = slug.SuggestAlternatives(s, slug.SuggestionCount)
	}
	return out
}
