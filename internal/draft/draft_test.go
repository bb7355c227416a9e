package draft

import (
	"strings"
	"sync"
	"testing"

	"linkstudio/internal/catalog"
	"linkstudio/internal/links"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialState(t *testing.T) {
	st := NewStore().Snapshot()
	assert.Equal(t, FirstStep, st.CurrentStep)
	assert.Equal(t, catalog.DefaultLayoutID, st.LayoutID)
	assert.Equal(t, catalog.DefaultThemeID, st.ThemeID)
	assert.Empty(t, st.SelectedPlatforms)
	assert.NotNil(t, st.PlatformLinks)
	assert.NotNil(t, st.ProfileFormData)
}

func TestSetStepClamps(t *testing.T) {
	s := NewStore()
	for _, tt := range []struct{ in, want int }{{0, 1}, {-3, 1}, {2, 2}, {4, 4}, {9, 4}} {
		s.SetStep(tt.in)
		assert.Equal(t, tt.want, s.Snapshot().CurrentStep, "step %d", tt.in)
	}
}

func TestPlatformSelection(t *testing.T) {
	s := NewStore()
	s.SetSelectedPlatforms([]string{"github", "instagram", "github", ""})
	assert.Equal(t, []string{"github", "instagram"}, s.Snapshot().SelectedPlatforms)

	s.SetPlatformLink("github", "jane")
	s.TogglePlatform("github")
	st := s.Snapshot()
	assert.Equal(t, []string{"instagram"}, st.SelectedPlatforms)
	assert.Equal(t, "jane", st.PlatformLinks["github"], "handle survives deselect")

	s.TogglePlatform("github")
	assert.Equal(t, []string{"instagram", "github"}, s.Snapshot().SelectedPlatforms)
}

func TestCustomLinks(t *testing.T) {
	s := NewStore()
	a := s.AddCustomLink(links.Custom{Text: "Blog", URL: "https://jane.dev"})
	require.True(t, strings.HasPrefix(a.ID, "custom-"))
	b := s.AddCustomLink(links.Custom{ID: "fixed", Text: "Shop", URL: "https://shop.dev"})
	assert.Equal(t, "fixed", b.ID)

	text := "My Blog"
	s.UpdateCustomLink(a.ID, CustomPatch{Text: &text})
	st := s.Snapshot()
	require.Len(t, st.CustomLinks, 2)
	assert.Equal(t, "My Blog", st.CustomLinks[0].Text)
	assert.Equal(t, "https://jane.dev", st.CustomLinks[0].URL)

	s.RemoveCustomLink(a.ID)
	st = s.Snapshot()
	require.Len(t, st.CustomLinks, 1)
	assert.Equal(t, "fixed", st.CustomLinks[0].ID)
}

func TestProfileMerge(t *testing.T) {
	s := NewStore()
	s.SetProfileFormData(map[string]any{"name": "Jane", "bio": "hi"})
	s.UpdateProfileFormData(map[string]any{"bio": "hello", "banner": "b.png"})
	assert.Equal(t, map[string]any{"name": "Jane", "bio": "hello", "banner": "b.png"}, s.Snapshot().ProfileFormData)

	s.SetProfileFormData(nil)
	assert.Equal(t, map[string]any{}, s.Snapshot().ProfileFormData)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := NewStore()
	s.SetSelectedPlatforms([]string{"github"})
	s.SetPlatformLink("github", "jane")
	s.SetProfileFormData(map[string]any{"gallery": []any{"a"}})

	snap := s.Snapshot()
	snap.SelectedPlatforms[0] = "x"
	snap.PlatformLinks["github"] = "x"
	snap.ProfileFormData["gallery"].([]any)[0] = "x"

	again := s.Snapshot()
	assert.Equal(t, "github", again.SelectedPlatforms[0])
	assert.Equal(t, "jane", again.PlatformLinks["github"])
	assert.Equal(t, "a", again.ProfileFormData["gallery"].([]any)[0])
}

func TestSubscribe(t *testing.T) {
	s := NewStore()
	var mu sync.Mutex
	var seen []string
	cancel := s.Subscribe(func(st State) {
		mu.Lock()
		seen = append(seen, st.Username)
		mu.Unlock()
	})

	s.SetUsername("a")
	s.SetUsername("b")
	cancel()
	s.SetUsername("c")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestObserverMayReadStore(t *testing.T) {
	s := NewStore()
	var got string
	s.Subscribe(func(State) { got = s.Snapshot().Username })
	s.SetUsername("jane")
	assert.Equal(t, "jane", got)
}

func TestResetAndHydrate(t *testing.T) {
	s := NewStore()
	s.SetUsername("jane")
	s.SetStep(3)
	s.Reset()
	assert.Equal(t, NewStore().Snapshot(), s.Snapshot())

	s.SetUsername("kept")
	s.Hydrate(Hydration{
		SelectedPlatforms: []string{"github"},
		PlatformLinks:     map[string]string{"github": "jane"},
		CustomLinks:       []links.Custom{{ID: "c1", Text: "Blog", URL: "https://jane.dev"}},
		Profile:           map[string]any{"name": "Jane"},
		ThemeID:           "ocean-blue",
	})
	st := s.Snapshot()
	assert.Equal(t, "kept", st.Username)
	assert.Equal(t, []string{"github"}, st.SelectedPlatforms)
	assert.Equal(t, "ocean-blue", st.ThemeID)
	assert.Equal(t, catalog.DefaultLayoutID, st.LayoutID)
	assert.Len(t, st.Links(catalog.Default()), 2)
}

func TestConcurrentMutations(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AddCustomLink(links.Custom{Text: "t", URL: "u"})
		}()
	}
	wg.Wait()
	assert.Len(t, s.Snapshot().CustomLinks, 50)
}

func TestObserversSeeMutationOrder(t *testing.T) {
	s := NewStore()
	var (
		mu   sync.Mutex
		seen []int
	)
	s.Subscribe(func(st State) {
		mu.Lock()
		seen = append(seen, len(st.CustomLinks))
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AddCustomLink(links.Custom{Text: "t", URL: "u"})
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 50)
	for i, n := range seen {
		assert.Equal(t, i+1, n)
	}
}
