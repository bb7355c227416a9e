package draft

import (
	"slices"
	"sync"

	"linkstudio/internal/catalog"
	"linkstudio/internal/links"
	"linkstudio/internal/page"

	"github.com/google/uuid"
)

const (
	FirstStep = 1
	LastStep  = 4
)

// State is the in-progress editing session.
type State struct {
	SelectedPlatforms []string          `json:"selectedPlatforms"`
	PlatformLinks     map[string]string `json:"platformLinks"`
	CustomLinks       []links.Custom    `json:"customLinks"`
	ProfileFormData   map[string]any    `json:"profileFormData"`
	Username          string            `json:"username"`
	CurrentStep       int               `json:"currentStep"`
	LayoutID          string            `json:"layoutId"`
	ThemeID           string            `json:"themeId"`
}

func initial() State {
	return State{
		SelectedPlatforms: []string{},
		PlatformLinks:     map[string]string{},
		CustomLinks:       []links.Custom{},
		ProfileFormData:   map[string]any{},
		CurrentStep:       FirstStep,
		LayoutID:          catalog.DefaultLayoutID,
		ThemeID:           catalog.DefaultThemeID,
	}
}

func (s State) clone() State {
	out := s
	out.SelectedPlatforms = append([]string{}, s.SelectedPlatforms...)
	out.PlatformLinks = make(map[string]string, len(s.PlatformLinks))
	for k, v := range s.PlatformLinks {
		out.PlatformLinks[k] = v
	}
	out.CustomLinks = append([]links.Custom{}, s.CustomLinks...)
	out.ProfileFormData = page.CloneProfile(s.ProfileFormData)
	if out.ProfileFormData == nil {
		out.ProfileFormData = map[string]any{}
	}
	return out
}

// CustomPatch holds the fields UpdateCustomLink changes; nil leaves a field.
type CustomPatch struct {
	Text *string `json:"text,omitempty"`
	URL  *string `json:"url,omitempty"`
}

// Store is the observable draft. Observers run after every mutation on the
// mutating goroutine, outside the store lock. Mutations and their
// notifications are serialized, so observers see snapshots in mutation order.
// An observer must not mutate the store.
type Store struct {
	// deliver orders mutate-then-notify across goroutines.
	deliver sync.Mutex

	mu        sync.Mutex
	state     State
	observers map[int]func(State)
	nextID    int
}

func NewStore() *Store {
	return &Store{state: initial(), observers: map[int]func(State){}}
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn for every later mutation.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

func (s *Store) mutate(fn func(st *State)) {
	s.deliver.Lock()
	defer s.deliver.Unlock()

	s.mu.Lock()
	fn(&s.state)
	snap := s.state.clone()
	obs := make([]func(State), 0, len(s.observers))
	for _, o := range s.observers {
		obs = append(obs, o)
	}
	s.mu.Unlock()

	for _, o := range obs {
		o(snap.clone())
	}
}

func (s *Store) SetStep(step int) {
	s.mutate(func(st *State) { st.CurrentStep = min(max(step, FirstStep), LastStep) })
}

func (s *Store) SetUsername(username string) {
	s.mutate(func(st *State) { st.Username = username })
}

// SetSelectedPlatforms replaces the selection, dropping duplicates.
func (s *Store) SetSelectedPlatforms(ids []string) {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	s.mutate(func(st *State) { st.SelectedPlatforms = out })
}

// TogglePlatform appends id when absent and removes it otherwise. The handle
// is kept so re-selecting restores it.
func (s *Store) TogglePlatform(id string) {
	s.mutate(func(st *State) {
		if i := slices.Index(st.SelectedPlatforms, id); i >= 0 {
			st.SelectedPlatforms = slices.Delete(st.SelectedPlatforms, i, i+1)
			return
		}
		st.SelectedPlatforms = append(st.SelectedPlatforms, id)
	})
}

func (s *Store) SetPlatformLink(platformID, handle string) {
	s.mutate(func(st *State) { st.PlatformLinks[platformID] = handle })
}

func (s *Store) SetPlatformLinks(m map[string]string) {
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	s.mutate(func(st *State) { st.PlatformLinks = cp })
}

func (s *Store) SetCustomLinks(cl []links.Custom) {
	cp := append([]links.Custom{}, cl...)
	s.mutate(func(st *State) { st.CustomLinks = cp })
}

// AddCustomLink appends c, assigning an id when it has none, and returns it.
func (s *Store) AddCustomLink(c links.Custom) links.Custom {
	if c.ID == "" {
		c.ID = "custom-" + uuid.NewString()
	}
	s.mutate(func(st *State) { st.CustomLinks = append(st.CustomLinks, c) })
	return c
}

func (s *Store) UpdateCustomLink(id string, p CustomPatch) {
	s.mutate(func(st *State) {
		for i := range st.CustomLinks {
			if st.CustomLinks[i].ID != id {
				continue
			}
			if p.Text != nil {
				st.CustomLinks[i].Text = *p.Text
			}
			if p.URL != nil {
				st.CustomLinks[i].URL = *p.URL
			}
		}
	})
}

func (s *Store) RemoveCustomLink(id string) {
	s.mutate(func(st *State) {
		st.CustomLinks = slices.DeleteFunc(st.CustomLinks, func(c links.Custom) bool { return c.ID == id })
	})
}

func (s *Store) SetProfileFormData(data map[string]any) {
	cp := page.CloneProfile(data)
	if cp == nil {
		cp = map[string]any{}
	}
	s.mutate(func(st *State) { st.ProfileFormData = cp })
}

// UpdateProfileFormData shallow-merges data into the profile.
func (s *Store) UpdateProfileFormData(data map[string]any) {
	cp := page.CloneProfile(data)
	s.mutate(func(st *State) {
		for k, v := range cp {
			st.ProfileFormData[k] = v
		}
	})
}

func (s *Store) SetLayout(id string) {
	s.mutate(func(st *State) { st.LayoutID = id })
}

func (s *Store) SetTheme(id string) {
	s.mutate(func(st *State) { st.ThemeID = id })
}

// Reset returns the draft to its initial state.
func (s *Store) Reset() {
	s.mutate(func(st *State) { *st = initial() })
}

// Links assembles the publishable links of the draft.
func (s State) Links(cat *catalog.Catalog) []page.Link {
	return links.Assemble(s.SelectedPlatforms, s.PlatformLinks, s.CustomLinks, cat)
}

// Hydration seeds the draft from a persisted page. Nil or empty fields leave
// the draft value alone.
type Hydration struct {
	SelectedPlatforms []string
	PlatformLinks     map[string]string
	CustomLinks       []links.Custom
	Profile           map[string]any
	Username          string
	LayoutID          string
	ThemeID           string
}

// Hydrate applies h as a single mutation.
func (s *Store) Hydrate(h Hydration) {
	profile := page.CloneProfile(h.Profile)
	s.mutate(func(st *State) {
		if h.SelectedPlatforms != nil {
			st.SelectedPlatforms = append([]string{}, h.SelectedPlatforms...)
		}
		if h.PlatformLinks != nil {
			st.PlatformLinks = make(map[string]string, len(h.PlatformLinks))
			for k, v := range h.PlatformLinks {
				st.PlatformLinks[k] = v
			}
		}
		if h.CustomLinks != nil {
			st.CustomLinks = append([]links.Custom{}, h.CustomLinks...)
		}
		if profile != nil {
			st.ProfileFormData = profile
		}
		if h.Username != "" {
			st.Username = h.Username
		}
		if h.LayoutID != "" {
			st.LayoutID = h.LayoutID
		}
		if h.ThemeID != "" {
			st.ThemeID = h.ThemeID
		}
	})
}
