package page

// DefaultPublicBase is the host serving public pages.
const DefaultPublicBase = "https://linkstudio.me"

// Collection is the page collection for a deployment.
func Collection(appID string) string {
	return "artifacts/" + appID + "/public/data/links"
}

// Path is the canonical location of a page document.
func Path(appID, pageID string) string {
	return Collection(appID) + "/" + pageID
}

// SlugCollection holds one index document per claimed slug.
func SlugCollection(appID string) string {
	return "artifacts/" + appID + "/public/data/slugs"
}

func SlugPath(appID, slug string) string {
	return SlugCollection(appID) + "/" + slug
}
