package profile

import "regexp"

var (
	instagramName = regexp.MustCompile(`instagram\.com/([^/?]+)`)
	youtubeName   = regexp.MustCompile(`(?:youtube\.com/@|youtube\.com/channel/|youtu\.be/)([^/?]+)`)
)

// AutoFill extracts profile values from a platform link url.
func AutoFill(platformID, url string) map[string]string {
	out := map[string]string{}
	switch platformID {
	case "instagram":
		if m := instagramName.FindStringSubmatch(url); m != nil {
			out["name"] = m[1]
		}
	case "youtube":
		if m := youtubeName.FindStringSubmatch(url); m != nil {
			out["name"] = m[1]
		}
		out["videos"] = url
	case "amazon":
		out["products"] = url
	}
	return out
}

// AutoFillFor returns the values AutoFill produces for the fields of schema
// that take them from platformID.
func AutoFillFor(schema []Field, platformID, url string) map[string]string {
	extracted := AutoFill(platformID, url)
	out := map[string]string{}
	for _, f := range schema {
		if f.FromPlatform != platformID {
			continue
		}
		if v, ok := extracted[f.ID]; ok && v != "" {
			out[f.ID] = v
		}
	}
	return out
}
