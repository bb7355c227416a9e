package catalog

var defaultPlatforms = []Platform{
	{ID: "instagram", Name: "Instagram", URLPrefix: "https://instagram.com/", Placeholder: "yourusername"},
	{ID: "youtube", Name: "YouTube", URLPrefix: "https://youtube.com/@", Placeholder: "yourchannel"},
	{ID: "tiktok", Name: "TikTok", URLPrefix: "https://tiktok.com/@", Placeholder: "yourusername"},
	{ID: "whatsapp", Name: "WhatsApp", URLPrefix: "https://wa.me/", Placeholder: "1234567890"},
	{ID: "twitter", Name: "X (Twitter)", URLPrefix: "https://x.com/", Placeholder: "yourusername"},
	{ID: "facebook", Name: "Facebook", URLPrefix: "https://facebook.com/", Placeholder: "yourpage"},
	{ID: "linkedin", Name: "LinkedIn", URLPrefix: "https://linkedin.com/in/", Placeholder: "yourprofile"},
	{ID: "twitch", Name: "Twitch", URLPrefix: "https://twitch.tv/", Placeholder: "yourusername"},
	{ID: "snapchat", Name: "Snapchat", URLPrefix: "https://snapchat.com/add/", Placeholder: "yourusername"},
	{ID: "pinterest", Name: "Pinterest", URLPrefix: "https://pinterest.com/", Placeholder: "yourusername"},
	{ID: "discord", Name: "Discord", URLPrefix: "https://discord.gg/", Placeholder: "yourserver"},
	{ID: "reddit", Name: "Reddit", URLPrefix: "https://reddit.com/user/", Placeholder: "yourusername"},
	{ID: "spotify", Name: "Spotify", URLPrefix: "https://open.spotify.com/user/", Placeholder: "yourusername"},
	{ID: "telegram", Name: "Telegram", URLPrefix: "https://t.me/", Placeholder: "yourusername"},
	{ID: "medium", Name: "Medium", URLPrefix: "https://medium.com/@", Placeholder: "yourusername"},
	{ID: "github", Name: "GitHub", URLPrefix: "https://github.com/", Placeholder: "yourusername"},
	{ID: "onlyfans", Name: "OnlyFans", URLPrefix: "https://onlyfans.com/", Placeholder: "yourusername"},
	{ID: "patreon", Name: "Patreon", URLPrefix: "https://patreon.com/", Placeholder: "yourusername"},
	{ID: "kofi", Name: "Ko-fi", URLPrefix: "https://ko-fi.com/", Placeholder: "yourusername"},
	{ID: "buymeacoffee", Name: "Buy Me a Coffee", URLPrefix: "https://buymeacoffee.com/", Placeholder: "yourusername"},
	{ID: "substack", Name: "Substack", URLPrefix: "https://", Placeholder: "yourname.substack.com"},
	{ID: "gumroad", Name: "Gumroad", URLPrefix: "https://", Placeholder: "yourname.gumroad.com"},
	{ID: "etsy", Name: "Etsy", URLPrefix: "https://etsy.com/shop/", Placeholder: "yourshop"},
	{ID: "amazon", Name: "Amazon", URLPrefix: "https://amazon.com/shop/", Placeholder: "yourstorefront"},
	{ID: "shopify", Name: "Shopify", URLPrefix: "https://", Placeholder: "yourstore.myshopify.com"},
	{ID: "redbubble", Name: "Redbubble", URLPrefix: "https://redbubble.com/people/", Placeholder: "yourusername"},
	{ID: "website", Name: "Website", URLPrefix: "https://", Placeholder: "yourwebsite.com"},
}

var defaultThemes = []Theme{
	{ID: "light-orange", Name: "Light Orange", Primary: "#FF8C42", Secondary: "#FFB366", Bg: "#FFF7ED"},
	{ID: "coral-teal", Name: "Coral & Teal", Primary: "#FF6B6B", Secondary: "#1ECBA1", Bg: "#FFFFFF"},
	{ID: "ocean-blue", Name: "Ocean Blue", Primary: "#3B82F6", Secondary: "#06B6D4", Bg: "#F0F9FF"},
	{ID: "sunset-orange", Name: "Sunset Orange", Primary: "#F97316", Secondary: "#FB923C", Bg: "#FFF7ED"},
	{ID: "forest-green", Name: "Forest Green", Primary: "#10B981", Secondary: "#34D399", Bg: "#F0FDF4"},
	{ID: "purple-dream", Name: "Purple Dream", Primary: "#8B5CF6", Secondary: "#A78BFA", Bg: "#FAF5FF"},
}

var defaultLayouts = []Layout{
	{ID: "creator-classic", Name: "Creator Classic", Description: "Perfect for content creators", Category: "creator"},
	{ID: "photographer-portfolio", Name: "Photographer Portfolio", Description: "Elegant visual showcase", Category: "photographer"},
	{ID: "small-business-showcase", Name: "Small Business", Description: "Friendly & trustworthy", Category: "business"},
	{ID: "influencer-product-hub", Name: "Product Hub", Description: "Showcase products & links", Category: "influencer"},
	{ID: "video-creator-focus", Name: "Video Creator", Description: "Perfect for YouTubers", Category: "creator"},
	{ID: "premium-creator", Name: "Premium Creator", Description: "Elegant dark mode", Category: "premium"},
	{ID: "minimalist-professional", Name: "Minimalist", Description: "Clean & professional", Category: "professional"},
	{ID: "artist-musician", Name: "Artist / Musician", Description: "Creative gradient vibes", Category: "artist"},
	{ID: "retro-aesthetic", Name: "Retro Aesthetic", Description: "Gen Z lifestyle vibes", Category: "retro"},
	{ID: "modern-business-card", Name: "Business Card", Description: "Digital business card", Category: "business-card"},
}
