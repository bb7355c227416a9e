// Package pages serves persisted pages outside an editing session: public
// resolution, slug changes, direct updates and click counting.
package pages

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"linkstudio/internal/catalog"
	"linkstudio/internal/docstore"
	"linkstudio/internal/links"
	"linkstudio/internal/page"
	"linkstudio/internal/profile"
	"linkstudio/internal/slug"

	"github.com/rs/zerolog"
)

var (
	ErrNotFound     = errors.New("page not found")
	ErrLinkNotFound = errors.New("link not found")
)

// ValidationError rejects one field of an update.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Message }

// SlugTakenError carries alternatives for a slug held by another page.
type SlugTakenError struct {
	Slug        string
	Suggestions []string
}

func (e *SlugTakenError) Error() string { return fmt.Sprintf("slug %q is already taken", e.Slug) }
func (e *SlugTakenError) Unwrap() error { return slug.ErrTaken }

// ClickRecorder accepts a click for later counting.
type ClickRecorder interface {
	RecordClick(ctx context.Context, pageID, linkID string) error
}

type Service struct {
	Store   docstore.Store
	AppID   string
	Catalog *catalog.Catalog
	Slugs   *slug.Registry
	// Clicks defers counting; nil counts in the request.
	Clicks ClickRecorder
	Now    func() time.Time
	Log    zerolog.Logger
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) catalog() *catalog.Catalog {
	if s.Catalog != nil {
		return s.Catalog
	}
	return catalog.Default()
}

// Get loads the page stored under pageID.
func (s *Service) Get(ctx context.Context, pageID string) (page.Record, error) {
	doc, err := s.Store.Get(ctx, page.Path(s.AppID, pageID))
	if errors.Is(err, docstore.ErrNotFound) || errors.Is(err, docstore.ErrInvalidPath) {
		return page.Record{}, ErrNotFound
	}
	if err != nil {
		return page.Record{}, fmt.Errorf("get page %s: %w", pageID, err)
	}
	return page.FromFields(doc.Data)
}

// Resolve finds a page by slug, then by page id.
func (s *Service) Resolve(ctx context.Context, slugOrID string) (page.Record, error) {
	key := strings.TrimSpace(slugOrID)
	if key == "" {
		return page.Record{}, ErrNotFound
	}
	docs, err := s.Store.Query(ctx, page.Collection(s.AppID), page.FieldSlug, key)
	if err != nil {
		return page.Record{}, fmt.Errorf("resolve %s: %w", key, err)
	}
	if len(docs) > 0 {
		if len(docs) > 1 {
			s.Log.Warn().Str("slug", key).Int("pages", len(docs)).Msg("slug held by more than one page")
		}
		return page.FromFields(docs[0].Data)
	}
	return s.Get(ctx, key)
}

// SlugCheck is the availability answer for one slug.
type SlugCheck struct {
	Slug        string
	Available   bool
	Err         error
	Suggestions []string
}

// CheckSlug normalizes raw and reports whether pageID could claim it.
func (s *Service) CheckSlug(ctx context.Context, raw, pageID string) SlugCheck {
	n, err := s.Slugs.Check(ctx, raw, pageID)
	out := SlugCheck{Slug: n, Available: err == nil}
	switch {
	case errors.Is(err, slug.ErrTaken):
		out.Suggestions = slug.SuggestAlternatives(n, slug.SuggestionCount)
	case err != nil:
		out.Err = err
	}
	return out
}

// ClaimSlug moves pageID to the slug derived from raw and frees its previous
// slug. An empty raw clears the slug.
func (s *Service) ClaimSlug(ctx context.Context, pageID, raw string) (page.Record, error) {
	cur, err := s.Get(ctx, pageID)
	if err != nil {
		return page.Record{}, err
	}
	prev := cur.Slug

	if strings.TrimSpace(raw) == "" {
		if err := s.writeSlug(ctx, pageID, ""); err != nil {
			return page.Record{}, err
		}
		if err := s.Slugs.Release(ctx, prev, pageID); err != nil {
			s.Log.Warn().Err(err).Str("slug", prev).Msg("release cleared slug")
		}
		return s.Get(ctx, pageID)
	}

	next, err := s.Slugs.Reserve(ctx, raw, pageID)
	if errors.Is(err, slug.ErrTaken) {
		return page.Record{}, &SlugTakenError{Slug: next, Suggestions: slug.SuggestAlternatives(next, slug.SuggestionCount)}
	}
	if err != nil {
		return page.Record{}, err
	}

	if err := s.writeSlug(ctx, pageID, next); err != nil {
		if next != prev {
			if rerr := s.Slugs.Release(ctx, next, pageID); rerr != nil {
				s.Log.Warn().Err(rerr).Str("slug", next).Msg("release slug after failed write")
			}
		}
		return page.Record{}, err
	}
	if prev != "" && prev != next {
		if err := s.Slugs.Release(ctx, prev, pageID); err != nil {
			s.Log.Warn().Err(err).Str("slug", prev).Msg("release previous slug")
		}
	}
	s.Log.Info().Str("page_id", pageID).Str("slug", next).Str("previous", prev).Msg("slug claimed")
	return s.Get(ctx, pageID)
}

func (s *Service) writeSlug(ctx context.Context, pageID, value string) error {
	err := s.Store.Set(ctx, page.Path(s.AppID, pageID), map[string]any{
		page.FieldSlug:      value,
		page.FieldUsername:  value,
		page.FieldUpdatedAt: s.now().UnixMilli(),
	}, docstore.SetOptions{Merge: true})
	if err != nil {
		return fmt.Errorf("write slug: %w", err)
	}
	return nil
}

// Changes is a direct page update. Nil fields are left alone.
type Changes struct {
	Links       []page.Link    `json:"links,omitempty"`
	ThemeID     *string        `json:"themeId,omitempty"`
	LayoutID    *string        `json:"layoutId,omitempty"`
	ProfileData map[string]any `json:"profileData,omitempty"`
}

// Update validates c and merges it into the page under the document lock.
// Click counts of links kept by id are carried over.
func (s *Service) Update(ctx context.Context, pageID string, c Changes) (page.Record, error) {
	cat := s.catalog()
	if c.ThemeID != nil {
		if _, ok := cat.Theme(*c.ThemeID); !ok {
			return page.Record{}, &ValidationError{Field: page.FieldThemeID, Message: "unknown theme " + *c.ThemeID}
		}
	}
	if c.LayoutID != nil {
		if _, ok := cat.Layout(*c.LayoutID); !ok {
			return page.Record{}, &ValidationError{Field: page.FieldLayoutID, Message: "unknown layout " + *c.LayoutID}
		}
	}
	for i, l := range c.Links {
		if strings.TrimSpace(l.ID) == "" || strings.TrimSpace(l.Text) == "" || strings.TrimSpace(l.URL) == "" {
			return page.Record{}, &ValidationError{Field: fmt.Sprintf("links[%d]", i), Message: "id, text and url are required"}
		}
	}

	err := s.Store.Update(ctx, page.Path(s.AppID, pageID), func(doc docstore.Document) (map[string]any, error) {
		cur, err := page.FromFields(doc.Data)
		if err != nil {
			return nil, err
		}
		out := map[string]any{page.FieldUpdatedAt: s.now().UnixMilli()}
		layout := cur.LayoutID
		if c.LayoutID != nil {
			layout = *c.LayoutID
			out[page.FieldLayoutID] = layout
		}
		if c.ThemeID != nil {
			out[page.FieldThemeID] = *c.ThemeID
		}
		if c.Links != nil {
			out[page.FieldLinks] = page.LinksFields(links.Carry(cur.Links, c.Links))
		}
		if c.ProfileData != nil {
			if layout == "" {
				layout = catalog.DefaultLayoutID
			}
			if err := profile.Check(layout, c.ProfileData); err != nil {
				return nil, err
			}
			out[page.FieldProfileData] = page.CloneProfile(c.ProfileData)
		}
		return out, nil
	})
	if errors.Is(err, docstore.ErrNotFound) {
		return page.Record{}, ErrNotFound
	}
	if err != nil {
		return page.Record{}, err
	}
	return s.Get(ctx, pageID)
}

// RecordClick checks that the link exists and hands the click to the
// recorder, or counts it now when there is none.
func (s *Service) RecordClick(ctx context.Context, pageID, linkID string) error {
	rec, err := s.Get(ctx, pageID)
	if err != nil {
		return err
	}
	found := false
	for _, l := range rec.Links {
		if l.ID == linkID {
			found = true
			break
		}
	}
	if !found {
		return ErrLinkNotFound
	}
	if s.Clicks != nil {
		return s.Clicks.RecordClick(ctx, pageID, linkID)
	}
	return s.CountClick(ctx, pageID, linkID)
}

// CountClick increments the click counter of one link. A link removed since
// the click was recorded is reported as ErrLinkNotFound.
func (s *Service) CountClick(ctx context.Context, pageID, linkID string) error {
	err := s.Store.Update(ctx, page.Path(s.AppID, pageID), func(doc docstore.Document) (map[string]any, error) {
		cur, err := page.FromFields(doc.Data)
		if err != nil {
			return nil, err
		}
		for i := range cur.Links {
			if cur.Links[i].ID == linkID {
				cur.Links[i].ClickCount++
				return map[string]any{page.FieldLinks: page.LinksFields(cur.Links)}, nil
			}
		}
		return nil, ErrLinkNotFound
	})
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
