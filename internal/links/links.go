package links

import (
	"strconv"
	"strings"

	"linkstudio/internal/catalog"
	"linkstudio/internal/page"
)

const platformIDPrefix = "platform-"

// Custom is a user-defined link entry.
type Custom struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	URL  string `json:"url"`
}

// PlatformLinkID is the stable link id of a platform-sourced link.
func PlatformLinkID(platformID string) string {
	return platformIDPrefix + platformID
}

// Assemble derives the ordered publishable links: selected platforms with a
// non-blank handle, then custom entries with non-blank text and url.
func Assemble(selected []string, platformLinks map[string]string, custom []Custom, cat *catalog.Catalog) []page.Link {
	out := make([]page.Link, 0, len(selected)+len(custom))
	for _, id := range selected {
		p, ok := cat.Platform(id)
		if !ok {
			continue
		}
		handle := strings.TrimSpace(platformLinks[id])
		if handle == "" {
			continue
		}
		out = append(out, page.Link{
			ID:   PlatformLinkID(id),
			Text: p.Name,
			URL:  p.URLPrefix + handle,
		})
	}
	for _, c := range custom {
		if strings.TrimSpace(c.Text) == "" || strings.TrimSpace(c.URL) == "" {
			continue
		}
		out = append(out, page.Link{ID: c.ID, Text: c.Text, URL: c.URL})
	}
	return out
}

// Partition maps stored links back to draft buckets. A link id of the form
// platform-{id} for a known platform wins; otherwise a url claims a platform
// only through a prefix no other platform shares. Everything else is custom.
func Partition(links []page.Link, cat *catalog.Catalog) (selected []string, platformLinks map[string]string, custom []Custom) {
	selected = []string{}
	platformLinks = map[string]string{}
	custom = []Custom{}

	for _, l := range links {
		p, ok := platformFor(l, cat)
		if ok {
			if _, seen := platformLinks[p.ID]; !seen {
				selected = append(selected, p.ID)
				platformLinks[p.ID] = strings.TrimPrefix(l.URL, p.URLPrefix)
				continue
			}
		}
		custom = append(custom, Custom{ID: l.ID, Text: l.Text, URL: l.URL})
	}
	return selected, platformLinks, custom
}

func platformFor(l page.Link, cat *catalog.Catalog) (catalog.Platform, bool) {
	if id, ok := strings.CutPrefix(l.ID, platformIDPrefix); ok {
		if p, ok := cat.Platform(id); ok && strings.HasPrefix(l.URL, p.URLPrefix) {
			return p, true
		}
	}
	return cat.MatchURL(l.URL)
}

// Fingerprint is an order-sensitive key over id, text, url and the spotlight
// flag. Click counts are left out.
func Fingerprint(links []page.Link) string {
	var b strings.Builder
	for _, l := range links {
		for _, s := range []string{l.ID, l.Text, l.URL} {
			b.WriteString(strconv.Itoa(len(s)))
			b.WriteByte(':')
			b.WriteString(s)
		}
		if l.IsSpotlight {
			b.WriteByte('*')
		}
		b.WriteByte(';')
	}
	return b.String()
}

// KeepSpotlight sets isSpotlight on the links of next whose id carries it in
// prev. It is for link lists rebuilt without the flag.
func KeepSpotlight(prev, next []page.Link) []page.Link {
	lit := map[string]bool{}
	for _, l := range prev {
		if l.IsSpotlight {
			lit[l.ID] = true
		}
	}
	out := make([]page.Link, len(next))
	for i, l := range next {
		l.IsSpotlight = l.IsSpotlight || lit[l.ID]
		out[i] = l
	}
	return out
}

// Carry copies clickCount from prev onto next by link id. Counts never
// decrease. Everything else, the spotlight flag included, comes from next.
func Carry(prev, next []page.Link) []page.Link {
	if len(prev) == 0 {
		return next
	}
	byID := make(map[string]page.Link, len(prev))
	for _, l := range prev {
		byID[l.ID] = l
	}
	out := make([]page.Link, len(next))
	for i, l := range next {
		if old, ok := byID[l.ID]; ok {
			if old.ClickCount > l.ClickCount {
				l.ClickCount = old.ClickCount
			}
		}
		out[i] = l
	}
	return out
}
