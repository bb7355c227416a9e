package editor

import (
	"context"
	"errors"
	"strings"

	"linkstudio/internal/draft"
	"linkstudio/internal/links"
	"linkstudio/internal/page"
	"linkstudio/internal/pages"
)

const (
	OpAuth             = "auth"
	OpSetStep          = "setStep"
	OpSetUsername      = "setUsername"
	OpSetPlatforms     = "setPlatforms"
	OpTogglePlatform   = "togglePlatform"
	OpSetPlatformLink  = "setPlatformLink"
	OpAddCustomLink    = "addCustomLink"
	OpUpdateCustomLink = "updateCustomLink"
	OpRemoveCustomLink = "removeCustomLink"
	OpUpdateProfile    = "updateProfile"
	OpSetLayout        = "setLayout"
	OpSetTheme         = "setTheme"
	OpCheckSlug        = "checkSlug"
	OpClaimSlug        = "claimSlug"
	OpFlush            = "flush"
)

// Op is one client frame. Only the fields of its kind are read.
type Op struct {
	Op         string         `json:"op"`
	Token      string         `json:"token,omitempty"`
	Step       int            `json:"step,omitempty"`
	Username   string         `json:"username,omitempty"`
	Platforms  []string       `json:"platforms,omitempty"`
	PlatformID string         `json:"platformId,omitempty"`
	Handle     string         `json:"handle,omitempty"`
	LinkID     string         `json:"linkId,omitempty"`
	Text       *string        `json:"text,omitempty"`
	URL        *string        `json:"url,omitempty"`
	Profile    map[string]any `json:"profile,omitempty"`
	Replace    bool           `json:"replace,omitempty"`
	LayoutID   string         `json:"layoutId,omitempty"`
	ThemeID    string         `json:"themeId,omitempty"`
	Slug       string         `json:"slug,omitempty"`
}

// Apply runs op against the session.
func (s *Session) Apply(ctx context.Context, op Op) error {
	switch op.Op {
	case OpAuth:
		return s.Authenticate(ctx, op.Token)
	case OpSetStep:
		s.draft.SetStep(op.Step)
	case OpSetUsername:
		s.draft.SetUsername(op.Username)
	case OpSetPlatforms:
		for _, id := range op.Platforms {
			if _, ok := s.cat.Platform(id); !ok {
				return opErr(op.Op, "unknown platform %q", id)
			}
		}
		s.draft.SetSelectedPlatforms(op.Platforms)
	case OpTogglePlatform:
		if _, ok := s.cat.Platform(op.PlatformID); !ok {
			return opErr(op.Op, "unknown platform %q", op.PlatformID)
		}
		s.draft.TogglePlatform(op.PlatformID)
	case OpSetPlatformLink:
		return s.setPlatformLink(op)
	case OpAddCustomLink:
		c := links.Custom{}
		if op.URL != nil {
			c.URL = strings.TrimSpace(*op.URL)
		}
		if op.Text != nil {
			c.Text = *op.Text
		}
		if strings.TrimSpace(c.Text) == "" && c.URL != "" {
			c.Text = links.SuggestText(c.URL)
		}
		s.draft.AddCustomLink(c)
	case OpUpdateCustomLink:
		if op.LinkID == "" {
			return opErr(op.Op, "linkId is required")
		}
		s.draft.UpdateCustomLink(op.LinkID, draft.CustomPatch{Text: op.Text, URL: op.URL})
	case OpRemoveCustomLink:
		s.draft.RemoveCustomLink(op.LinkID)
	case OpUpdateProfile:
		if op.Replace {
			s.draft.SetProfileFormData(op.Profile)
		} else {
			s.draft.UpdateProfileFormData(op.Profile)
		}
	case OpSetLayout:
		if _, ok := s.cat.Layout(op.LayoutID); !ok {
			return opErr(op.Op, "unknown layout %q", op.LayoutID)
		}
		s.draft.SetLayout(op.LayoutID)
	case OpSetTheme:
		if _, ok := s.cat.Theme(op.ThemeID); !ok {
			return opErr(op.Op, "unknown theme %q", op.ThemeID)
		}
		s.draft.SetTheme(op.ThemeID)
	case OpCheckSlug:
		return s.checkSlug(ctx, op.Slug)
	case OpClaimSlug:
		return s.claimSlug(ctx, op.Slug)
	case OpFlush:
		id, err := s.durable()
		if err != nil {
			return err
		}
		if err := s.resume(ctx, id); err != nil {
			return err
		}
		return s.deps.Engine.Flush(ctx)
	default:
		return opErr(op.Op, "unknown op")
	}
	return nil
}

func (s *Session) setPlatformLink(op Op) error {
	p, ok := s.cat.Platform(op.PlatformID)
	if !ok {
		return opErr(op.Op, "unknown platform %q", op.PlatformID)
	}
	s.draft.SetPlatformLink(op.PlatformID, op.Handle)

	handle := strings.TrimSpace(op.Handle)
	if handle == "" {
		return nil
	}
	if fill := autofill(s.draft.Snapshot(), p.ID, p.URLPrefix+handle); len(fill) > 0 {
		s.draft.UpdateProfileFormData(fill)
	}
	return nil
}

func (s *Session) checkSlug(ctx context.Context, raw string) error {
	if s.deps.Pages == nil {
		return ErrNotSignedIn
	}
	c := s.deps.Pages.CheckSlug(ctx, raw, s.Identity().ID)
	if c.Err != nil {
		return c.Err
	}
	available := c.Available
	s.emit(Event{Type: EventSlug, Op: OpCheckSlug, Slug: c.Slug, Available: &available, Suggestions: c.Suggestions})
	return nil
}

func (s *Session) claimSlug(ctx context.Context, raw string) error {
	id, err := s.durable()
	if err != nil {
		return err
	}
	rec, err := s.deps.Pages.ClaimSlug(ctx, id.ID, raw)
	var taken *pages.SlugTakenError
	if errors.As(err, &taken) {
		available := false
		s.emit(Event{Type: EventSlug, Op: OpClaimSlug, Slug: taken.Slug, Available: &available, Suggestions: taken.Suggestions})
		return nil
	}
	if err != nil {
		return err
	}
	s.draft.SetUsername(rec.Slug)
	available := true
	s.emit(Event{Type: EventSlug, Op: OpClaimSlug, Slug: rec.Slug, Available: &available, URL: page.PublicURL(s.deps.PublicBase, rec)})
	return nil
}
