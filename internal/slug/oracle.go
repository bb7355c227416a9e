package slug

import (
	"context"
	"errors"
	"fmt"
	"time"

	"linkstudio/internal/docstore"
	"linkstudio/internal/page"

	"github.com/rs/zerolog"
)

var ErrTaken = errors.New("slug is already taken")

// Oracle answers whether a slug is free by querying page documents.
type Oracle struct {
	Store      docstore.Store
	Collection string
	Log        zerolog.Logger
}

// IsAvailable reports whether no page other than excludePageID holds slug.
// Any query failure reports the slug as taken.
func (o *Oracle) IsAvailable(ctx context.Context, slug, excludePageID string) bool {
	if slug == "" {
		return false
	}
	docs, err := o.Store.Query(ctx, o.Collection, page.FieldSlug, slug)
	if err != nil {
		o.Log.Warn().Err(err).Str("slug", slug).Msg("slug availability query failed")
		return false
	}
	for _, d := range docs {
		if d.ID != excludePageID {
			return false
		}
	}
	return true
}

// Index keeps one document per claimed slug so a claim is a single
// create-if-absent write.
type Index struct {
	Store      docstore.Store
	Collection string
}

func (ix *Index) path(slug string) string {
	return ix.Collection + "/" + slug
}

// Claim records pageID as the owner of slug. Claiming a slug the page already
// owns succeeds.
func (ix *Index) Claim(ctx context.Context, slug, pageID string) error {
	err := ix.Store.Create(ctx, ix.path(slug), map[string]any{
		"pageId":    pageID,
		"createdAt": time.Now().UnixMilli(),
	})
	if err == nil {
		return nil
	}
	if !errors.Is(err, docstore.ErrAlreadyExists) {
		return fmt.Errorf("claim slug %s: %w", slug, err)
	}
	owner, err := ix.Owner(ctx, slug)
	if err != nil {
		return err
	}
	if owner != pageID {
		return ErrTaken
	}
	return nil
}

// Release drops the index entry when pageID owns it.
func (ix *Index) Release(ctx context.Context, slug, pageID string) error {
	owner, err := ix.Owner(ctx, slug)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if owner != pageID {
		return nil
	}
	if err := ix.Store.Delete(ctx, ix.path(slug)); err != nil {
		return fmt.Errorf("release slug %s: %w", slug, err)
	}
	return nil
}

// Owner returns the page holding slug, or docstore.ErrNotFound.
func (ix *Index) Owner(ctx context.Context, slug string) (string, error) {
	doc, err := ix.Store.Get(ctx, ix.path(slug))
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return "", err
		}
		return "", fmt.Errorf("read slug %s: %w", slug, err)
	}
	owner, _ := doc.Data["pageId"].(string)
	return owner, nil
}
