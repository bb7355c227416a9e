package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaths(t *testing.T) {
	assert.Equal(t, "artifacts/app-1/public/data/links", Collection("app-1"))
	assert.Equal(t, "artifacts/app-1/public/data/links/u123", Path("app-1", "u123"))
	assert.Equal(t, "artifacts/app-1/public/data/slugs/jane", SlugPath("app-1", "jane"))
}

func TestPublicURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		rec  Record
		want string
	}{
		{"slug wins", DefaultPublicBase, Record{PageID: "u1", Slug: "jane"}, "https://linkstudio.me/jane"},
		{"falls back to page id", DefaultPublicBase, Record{PageID: "u1"}, "https://linkstudio.me/u1"},
		{"trailing slash", "http://localhost:8080/", Record{PageID: "u1"}, "http://localhost:8080/u1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PublicURL(tt.base, tt.rec))
		})
	}
}

func TestFromFieldsDecodesStoredNumbers(t *testing.T) {
	rec, err := FromFields(map[string]any{
		"pageId":    "u1",
		"userId":    "u1",
		"createdAt": float64(1700000000123),
		"links": []any{
			map[string]any{"id": "platform-github", "text": "GitHub", "url": "https://github.com/jane", "clickCount": float64(4)},
		},
		"writeToken": map[string]any{"clientId": "c1", "seq": float64(3)},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000123), rec.CreatedAt)
	require.Len(t, rec.Links, 1)
	assert.Equal(t, int64(4), rec.Links[0].ClickCount)
	require.NotNil(t, rec.WriteToken)
	assert.Equal(t, uint64(3), rec.WriteToken.Seq)
}

func TestFromFieldsEmptyLinks(t *testing.T) {
	rec, err := FromFields(map[string]any{"pageId": "u1"})
	require.NoError(t, err)
	assert.NotNil(t, rec.Links)
	assert.Empty(t, rec.Links)

	f := Record{PageID: "u1"}.Fields()
	assert.Equal(t, []any{}, f[FieldLinks])
	_, hasSlug := f[FieldSlug]
	assert.False(t, hasSlug)
}

func TestCloneIsDeep(t *testing.T) {
	orig := Record{
		PageID:      "u1",
		Links:       []Link{{ID: "a"}},
		ProfileData: map[string]any{"gallery": []any{"x"}},
		WriteToken:  &WriteToken{ClientID: "c", Seq: 1},
	}
	cp := orig.Clone()
	cp.Links[0].ID = "b"
	cp.ProfileData["gallery"].([]any)[0] = "y"
	cp.WriteToken.Seq = 9

	assert.Equal(t, "a", orig.Links[0].ID)
	assert.Equal(t, "x", orig.ProfileData["gallery"].([]any)[0])
	assert.Equal(t, uint64(1), orig.WriteToken.Seq)
}
