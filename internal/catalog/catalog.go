package catalog

import "strings"

type Platform struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	URLPrefix   string `json:"urlPrefix"`
	Placeholder string `json:"placeholder"`
}

type Theme struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
	Bg        string `json:"bg"`
}

type Layout struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

const (
	DefaultThemeID  = "light-orange"
	DefaultLayoutID = "creator-classic"
)

// Catalog is an immutable lookup over platforms, themes and layouts.
type Catalog struct {
	platforms []Platform
	themes    []Theme
	layouts   []Layout

	platformByID map[string]Platform
	themeByID    map[string]Theme
	layoutByID   map[string]Layout
	prefixUsers  map[string]int
}

func New(platforms []Platform, themes []Theme, layouts []Layout) *Catalog {
	c := &Catalog{
		platforms:    append([]Platform(nil), platforms...),
		themes:       append([]Theme(nil), themes...),
		layouts:      append([]Layout(nil), layouts...),
		platformByID: make(map[string]Platform, len(platforms)),
		themeByID:    make(map[string]Theme, len(themes)),
		layoutByID:   make(map[string]Layout, len(layouts)),
		prefixUsers:  map[string]int{},
	}
	for _, p := range platforms {
		c.platformByID[p.ID] = p
		c.prefixUsers[p.URLPrefix]++
	}
	for _, t := range themes {
		c.themeByID[t.ID] = t
	}
	for _, l := range layouts {
		c.layoutByID[l.ID] = l
	}
	return c
}

var defaultCatalog = New(defaultPlatforms, defaultThemes, defaultLayouts)

// Default returns the built-in catalog.
func Default() *Catalog { return defaultCatalog }

func (c *Catalog) Platforms() []Platform { return append([]Platform(nil), c.platforms...) }
func (c *Catalog) Themes() []Theme { return append([]Theme(nil), c.themes...) }
func (c *Catalog) Layouts() []Layout { return append([]Layout(nil), c.layouts...) }

func (c *Catalog) Platform(id string) (Platform, bool) {
	p, ok := c.platformByID[id]
	return p, ok
}

func (c *Catalog) Theme(id string) (Theme, bool) {
	t, ok := c.themeByID[id]
	return t, ok
}

func (c *Catalog) Layout(id string) (Layout, bool) {
	l, ok := c.layoutByID[id]
	return l, ok
}

// SharedPrefix reports whether more than one platform uses prefix.
func (c *Catalog) SharedPrefix(prefix string) bool {
	return c.prefixUsers[prefix] > 1
}

// MatchURL returns the platform owning url when exactly one platform's
// prefix matches it. The longest unshared matching prefix wins.
func (c *Catalog) MatchURL(url string) (Platform, bool) {
	var best Platform
	found := false
	for _, p := range c.platforms {
		if p.URLPrefix == "" || c.SharedPrefix(p.URLPrefix) {
			continue
		}
		if strings.HasPrefix(url, p.URLPrefix) && len(p.URLPrefix) > len(best.URLPrefix) {
			best = p
			found = true
		}
	}
	return best, found
}
