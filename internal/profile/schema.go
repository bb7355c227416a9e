package profile

import "slices"

type FieldType string

const (
	TypeText     FieldType = "text"
	TypeTextarea FieldType = "textarea"
	TypeImage    FieldType = "image"
	TypeVideo    FieldType = "video"
	TypeProduct  FieldType = "product"
)

type Field struct {
	ID           string    `json:"id"`
	Label        string    `json:"label"`
	Type         FieldType `json:"type"`
	Placeholder  string    `json:"placeholder,omitempty"`
	Required     bool      `json:"required"`
	Group        string    `json:"group"`
	FromPlatform string    `json:"fromPlatform,omitempty"`
}

var (
	fieldProfilePic = Field{ID: "profilePic", Label: "Profile Picture", Type: TypeImage, Placeholder: "Upload your profile picture", Required: true, Group: "profile"}
	fieldName       = Field{ID: "name", Label: "Display Name", Type: TypeText, Placeholder: "Your name or brand", Required: true, Group: "profile", FromPlatform: "instagram"}
	fieldBio        = Field{ID: "bio", Label: "Bio", Type: TypeTextarea, Placeholder: "Tell people about yourself...", Group: "profile"}

	fieldGallery      = Field{ID: "gallery", Label: "Photo Gallery", Type: TypeImage, Placeholder: "Upload multiple photos", Group: "media"}
	fieldVideos       = Field{ID: "videos", Label: "Featured Videos", Type: TypeVideo, Placeholder: "Add YouTube video URLs", Group: "media", FromPlatform: "youtube"}
	fieldProducts     = Field{ID: "products", Label: "Promotion Products", Type: TypeProduct, Placeholder: "Add product links (Amazon, Shopify, etc.)", Group: "media", FromPlatform: "amazon"}
	fieldBanner       = Field{ID: "banner", Label: "Banner Image", Type: TypeImage, Placeholder: "Upload a banner image", Group: "media"}
	fieldBusinessInfo = Field{ID: "businessInfo", Label: "Business Description", Type: TypeTextarea, Placeholder: "Describe your business...", Group: "content"}
	fieldContactInfo  = Field{ID: "contactInfo", Label: "Contact Information", Type: TypeText, Placeholder: "Email or phone", Group: "content"}
	fieldPrimaryCTA   = Field{ID: "primaryCTA", Label: "Primary Call-to-Action", Type: TypeText, Placeholder: `e.g., "Shop Now", "Book a Call"`, Group: "content"}
)

// Schema lists the form fields for a layout. Some media fields also appear
// when the matching platform is selected.
func Schema(layoutID string, selectedPlatforms []string) []Field {
	fields := []Field{fieldProfilePic, fieldName, fieldBio}

	switch layoutID {
	case "photographer-portfolio", "artist-musician", "retro-aesthetic":
		fields = append(fields, fieldGallery)
	}
	if layoutID == "video-creator-focus" || slices.Contains(selectedPlatforms, "youtube") {
		fields = append(fields, fieldVideos)
	}
	if layoutID == "influencer-product-hub" || slices.Contains(selectedPlatforms, "amazon") {
		fields = append(fields, fieldProducts)
	}
	if layoutID == "premium-creator" {
		fields = append(fields, fieldBanner)
	}
	switch layoutID {
	case "small-business-showcase":
		fields = append(fields, fieldBusinessInfo)
	case "modern-business-card":
		fields = append(fields, fieldBusinessInfo, fieldContactInfo)
	}
	switch layoutID {
	case "influencer-product-hub", "small-business-showcase":
		fields = append(fields, fieldPrimaryCTA)
	}
	return fields
}
