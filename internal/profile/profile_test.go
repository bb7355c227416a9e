package profile

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeVariants(t *testing.T) {
	tests := []struct {
		layout string
		want   any
	}{
		{"creator-classic", Classic{}},
		{"minimalist-professional", Classic{}},
		{"photographer-portfolio", Gallery{}},
		{"retro-aesthetic", Gallery{}},
		{"small-business-showcase", Business{}},
		{"influencer-product-hub", ProductHub{}},
		{"video-creator-focus", VideoCreator{}},
		{"premium-creator", Premium{}},
		{"modern-business-card", BusinessCard{}},
	}
	for _, tt := range tests {
		t.Run(tt.layout, func(t *testing.T) {
			d, err := Decode(tt.layout, map[string]any{"name": "Jane"})
			require.NoError(t, err)
			assert.IsType(t, tt.want, d)
			assert.Equal(t, tt.layout, d.LayoutID())
		})
	}
}

func TestDecodeGallery(t *testing.T) {
	d, err := Decode("artist-musician", map[string]any{
		"name":      "Jane",
		"gallery":   []any{"a.jpg", "b.jpg"},
		"unrelated": "ignored",
	})
	require.NoError(t, err)
	g := d.(Gallery)
	assert.Equal(t, StringList{"a.jpg", "b.jpg"}, g.Gallery)
	assert.Equal(t, "Jane", g.Name)
}

func TestDecodeSingleStringList(t *testing.T) {
	d, err := Decode("video-creator-focus", map[string]any{"videos": "https://youtube.com/@jane"})
	require.NoError(t, err)
	assert.Equal(t, StringList{"https://youtube.com/@jane"}, d.(VideoCreator).Videos)
	assert.NoError(t, d.Validate())
}

func TestDecodeTypeDrift(t *testing.T) {
	_, err := Decode("creator-classic", map[string]any{"name": 42})
	var fe *FieldError
	require.True(t, errors.As(err, &fe), "got %v", err)
	assert.Equal(t, "creator-classic", fe.Layout)
	assert.Contains(t, fe.Error(), "name")
}

func TestDecodeUnknownLayout(t *testing.T) {
	_, err := Decode("myspace-2005", nil)
	require.ErrorIs(t, err, ErrUnknownLayout)
}

func TestCheckPatterns(t *testing.T) {
	err := Check("video-creator-focus", map[string]any{"videos": []any{"https://vimeo.com/1"}})
	var fe *FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "videos", fe.Field)

	err = Check("influencer-product-hub", map[string]any{"products": "amazon.com/shop/jane"})
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "products", fe.Field)

	assert.NoError(t, Check("influencer-product-hub", map[string]any{"products": "https://amazon.com/shop/jane"}))
}

func TestEncodeRoundTrip(t *testing.T) {
	in := map[string]any{"name": "Jane", "bio": "hi", "banner": "b.png"}
	d, err := Decode("premium-creator", in)
	require.NoError(t, err)
	assert.Equal(t, in, Encode(d))

	classic, err := Decode("creator-classic", map[string]any{"name": "Jane"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Jane"}, Encode(classic))
}

func TestSchema(t *testing.T) {
	ids := func(fs []Field) []string {
		out := make([]string, len(fs))
		for i, f := range fs {
			out[i] = f.ID
		}
		return out
	}
	assert.Equal(t, []string{"profilePic", "name", "bio"}, ids(Schema("creator-classic", nil)))
	assert.Equal(t, []string{"profilePic", "name", "bio", "videos"}, ids(Schema("creator-classic", []string{"youtube"})))
	assert.Equal(t, []string{"profilePic", "name", "bio", "businessInfo", "contactInfo"}, ids(Schema("modern-business-card", nil)))
	assert.Equal(t, []string{"profilePic", "name", "bio", "products", "primaryCTA"}, ids(Schema("influencer-product-hub", nil)))
	assert.Equal(t, []string{"profilePic", "name", "bio", "businessInfo", "primaryCTA"}, ids(Schema("small-business-showcase", nil)))
}

func TestAutoFill(t *testing.T) {
	assert.Equal(t, map[string]string{"name": "jane"}, AutoFill("instagram", "https://instagram.com/jane"))
	assert.Equal(t, map[string]string{"name": "janetube", "videos": "https://youtube.com/@janetube"},
		AutoFill("youtube", "https://youtube.com/@janetube"))
	assert.Empty(t, AutoFill("github", "https://github.com/jane"))

	schema := Schema("creator-classic", nil)
	assert.Equal(t, map[string]string{"name": "jane"}, AutoFillFor(schema, "instagram", "https://instagram.com/jane"))
	assert.Empty(t, AutoFillFor(schema, "youtube", "https://youtube.com/@jane"), "name autofills only from instagram")
}
