package slug

import (
	"context"

	"linkstudio/internal/docstore"
	"linkstudio/internal/page"

	"github.com/rs/zerolog"
)

// SuggestionCount is how many alternatives a taken slug comes back with.
const SuggestionCount = 5

// Registry runs the claim protocol: normalize, validate, ask the oracle, then
// take the index entry.
type Registry struct {
	Oracle *Oracle
	Index  *Index
}

func NewRegistry(store docstore.Store, appID string, log zerolog.Logger) *Registry {
	return &Registry{
		Oracle: &Oracle{Store: store, Collection: page.Collection(appID), Log: log.With().Str("component", "slug").Logger()},
		Index:  &Index{Store: store, Collection: page.SlugCollection(appID)},
	}
}

// Check normalizes raw and reports whether pageID could take it. The
// returned slug is the normalized form even when err is non-nil.
func (r *Registry) Check(ctx context.Context, raw, pageID string) (string, error) {
	s := Normalize(raw)
	if err := Validate(s); err != nil {
		return s, err
	}
	if !r.Oracle.IsAvailable(ctx, s, pageID) {
		return s, ErrTaken
	}
	if owner, err := r.Index.Owner(ctx, s); err == nil && owner != pageID {
		return s, ErrTaken
	}
	return s, nil
}

// Reserve is Check followed by claiming the index entry for pageID.
func (r *Registry) Reserve(ctx context.Context, raw, pageID string) (string, error) {
	s, err := r.Check(ctx, raw, pageID)
	if err != nil {
		return s, err
	}
	if err := r.Index.Claim(ctx, s, pageID); err != nil {
		return s, err
	}
	return s, nil
}

func (r *Registry) Release(ctx context.Context, slug, pageID string) error {
	if slug == "" {
		return nil
	}
	return r.Index.Release(ctx, slug, pageID)
}
