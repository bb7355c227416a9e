package links

import "strings"

type textRule struct {
	needles []string
	text    string
}

// Checked in order; the first rule with a matching needle wins.
var textRules = []textRule{
	{[]string{"youtube.com", "youtu.be"}, "Watch My Latest Video!"},
	{[]string{"etsy.com", "shopify.com", ".myshopify.com"}, "Shop My New Collection"},
	{[]string{"instagram.com", "instagr.am"}, "Follow My Daily Stories"},
	{[]string{"calendly.com", "book.me", "cal.com", "acuityscheduling.com"}, "Book a Quick Consultation"},
	{[]string{"twitter.com", "x.com"}, "Follow Me on X"},
	{[]string{"tiktok.com"}, "Check Out My TikTok"},
	{[]string{"linkedin.com"}, "Connect on LinkedIn"},
	{[]string{"github.com"}, "View My Code"},
	{[]string{"spotify.com"}, "Listen to My Playlist"},
	{[]string{"medium.com"}, "Read My Latest Article"},
	{[]string{"patreon.com"}, "Support My Work"},
	{[]string{"paypal.me", "venmo.com"}, "Send a Tip"},
}

var tailRules = []textRule{
	{[]string{"podcast", "anchor.fm"}, "Listen to My Podcast"},
	{[]string{"portfolio", "behance.net", "dribbble.com"}, "View My Portfolio"},
}

// SuggestText proposes call-to-action text for url, or "" when nothing fits.
func SuggestText(url string) string {
	u := strings.ToLower(strings.TrimSpace(url))
	if u == "" {
		return ""
	}
	if t := firstMatch(u, textRules); t != "" {
		return t
	}
	if strings.HasPrefix(u, "mailto:") {
		return "Get in Touch"
	}
	return firstMatch(u, tailRules)
}

func firstMatch(u string, rules []textRule) string {
	for _, r := range rules {
		for _, n := range r.needles {
			if strings.Contains(u, n) {
				return r.text
			}
		}
	}
	return ""
}
