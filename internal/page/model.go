package page

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Document field names as stored in the page collection.
const (
	FieldPageID      = "pageId"
	FieldUserID      = "userId"
	FieldSlug        = "slug"
	FieldUsername    = "username"
	FieldLinks       = "links"
	FieldThemeID     = "themeId"
	FieldLayoutID    = "layoutId"
	FieldProfileData = "profileData"
	FieldCreatedAt   = "createdAt"
	FieldUpdatedAt   = "updatedAt"
	FieldWriteToken  = "writeToken"
)

type Link struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	URL         string `json:"url"`
	IsSpotlight bool   `json:"isSpotlight"`
	ClickCount  int64  `json:"clickCount"`
}

// WriteToken identifies the client and sequence number of the last write
// applied to a page document.
type WriteToken struct {
	ClientID string `json:"clientId"`
	Seq      uint64 `json:"seq"`
}

type Record struct {
	PageID      string         `json:"pageId"`
	UserID      string         `json:"userId"`
	Slug        string         `json:"slug,omitempty"`
	Username    string         `json:"username,omitempty"`
	Links       []Link         `json:"links"`
	ThemeID     string         `json:"themeId,omitempty"`
	LayoutID    string         `json:"layoutId,omitempty"`
	ProfileData map[string]any `json:"profileData,omitempty"`
	CreatedAt   int64          `json:"createdAt,omitempty"`
	UpdatedAt   int64          `json:"updatedAt,omitempty"`
	WriteToken  *WriteToken    `json:"writeToken,omitempty"`
}

// DisplayName is the handle shown for the page: slug, then username.
func (r Record) DisplayName() string {
	if r.Slug != "" {
		return r.Slug
	}
	return r.Username
}

func (r Record) Clone() Record {
	out := r
	if r.Links != nil {
		out.Links = append([]Link(nil), r.Links...)
	}
	out.ProfileData = CloneProfile(r.ProfileData)
	if r.WriteToken != nil {
		tok := *r.WriteToken
		out.WriteToken = &tok
	}
	return out
}

// Fields converts the record to the document representation.
func (r Record) Fields() map[string]any {
	if r.Links == nil {
		r.Links = []Link{}
	}
	return toFields(r)
}

// FromFields decodes a stored document into a Record.
func FromFields(data map[string]any) (Record, error) {
	var r Record
	b, err := json.Marshal(data)
	if err != nil {
		return r, fmt.Errorf("encode page document: %w", err)
	}
	if err := json.Unmarshal(b, &r); err != nil {
		return r, fmt.Errorf("decode page document: %w", err)
	}
	if r.Links == nil {
		r.Links = []Link{}
	}
	return r, nil
}

// LinksFields converts links to their document representation.
func LinksFields(links []Link) []any {
	out := make([]any, 0, len(links))
	for _, l := range links {
		out = append(out, toFields(l))
	}
	return out
}

// CloneProfile deep-copies an open profile map.
func CloneProfile(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneProfile(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

func toFields(v any) map[string]any {
	b, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	out := map[string]any{}
	_ = json.Unmarshal(b, &out)
	return out
}

// PublicURL returns the shareable address of a page: base/{slug-or-pageId}.
func PublicURL(base string, r Record) string {
	seg := r.Slug
	if seg == "" {
		seg = r.PageID
	}
	return strings.TrimRight(base, "/") + "/" + seg
}
