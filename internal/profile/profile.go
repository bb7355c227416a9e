package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

var ErrUnknownLayout = errors.New("unknown layout")

// FieldError reports a profile value whose type or format does not match its
// layout's field set.
type FieldError struct {
	Layout  string
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("profile field %s for layout %s: %s", e.Field, e.Layout, e.Message)
}

// StringList accepts a single string or a list of strings.
type StringList []string

func (l *StringList) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		if one == "" {
			*l = nil
		} else {
			*l = StringList{one}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*l = many
	return nil
}

// Data is the typed profile of one layout.
type Data interface {
	LayoutID() string
	Validate() error
}

type Base struct {
	ProfilePic string `json:"profilePic,omitempty"`
	Name       string `json:"name,omitempty"`
	Bio        string `json:"bio,omitempty"`
	// Platform-driven media that any layout may carry.
	Videos   StringList `json:"videos,omitempty"`
	Products StringList `json:"products,omitempty"`
}

// Classic serves creator-classic and minimalist-professional.
type Classic struct {
	Layout string `json:"-"`
	Base
}

// Gallery serves photographer-portfolio, artist-musician and retro-aesthetic.
type Gallery struct {
	Layout string `json:"-"`
	Base
	Gallery StringList `json:"gallery,omitempty"`
}

type Business struct {
	Base
	BusinessInfo string `json:"businessInfo,omitempty"`
	PrimaryCTA   string `json:"primaryCTA,omitempty"`
}

type ProductHub struct {
	Base
	PrimaryCTA string `json:"primaryCTA,omitempty"`
}

type VideoCreator struct {
	Base
}

type Premium struct {
	Base
	Banner string `json:"banner,omitempty"`
}

type BusinessCard struct {
	Base
	BusinessInfo string `json:"businessInfo,omitempty"`
	ContactInfo  string `json:"contactInfo,omitempty"`
}

func (d Classic) LayoutID() string { return d.Layout }
func (d Gallery) LayoutID() string { return d.Layout }
func (Business) LayoutID() string { return "small-business-showcase" }
func (ProductHub) LayoutID() string { return "influencer-product-hub" }
func (VideoCreator) LayoutID() string { return "video-creator-focus" }
func (Premium) LayoutID() string { return "premium-creator" }
func (BusinessCard) LayoutID() string { return "modern-business-card" }
func (d Classic) Validate() error { return d.Base.validate(d.Layout) }
func (d Gallery) Validate() error { return d.Base.validate(d.Layout) }
func (d Business) Validate() error { return d.Base.validate(d.LayoutID()) }
func (d ProductHub) Validate() error { return d.Base.validate(d.LayoutID()) }
func (d VideoCreator) Validate() error { return d.Base.validate(d.LayoutID()) }
func (d Premium) Validate() error { return d.Base.validate(d.LayoutID()) }
func (d BusinessCard) Validate() error { return d.Base.validate(d.LayoutID()) }

var (
	youtubeURL = regexp.MustCompile(`^(https?://)?(www\.)?(youtube\.com|youtu\.be)/.+`)
	httpURL    = regexp.MustCompile(`^https?://.+`)
)

func (b Base) validate(layout string) error {
	for _, v := range b.Videos {
		if !youtubeURL.MatchString(v) {
			return &FieldError{Layout: layout, Field: "videos", Message: "Please enter a valid YouTube URL"}
		}
	}
	for _, p := range b.Products {
		if !httpURL.MatchString(p) {
			return &FieldError{Layout: layout, Field: "products", Message: "Please enter a valid product URL"}
		}
	}
	return nil
}

func newVariant(layoutID string) (Data, error) {
	switch layoutID {
	case "creator-classic", "minimalist-professional":
		return &Classic{Layout: layoutID}, nil
	case "photographer-portfolio", "artist-musician", "retro-aesthetic":
		return &Gallery{Layout: layoutID}, nil
	case "small-business-showcase":
		return &Business{}, nil
	case "influencer-product-hub":
		return &ProductHub{}, nil
	case "video-creator-focus":
		return &VideoCreator{}, nil
	case "premium-creator":
		return &Premium{}, nil
	case "modern-business-card":
		return &BusinessCard{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownLayout, layoutID)
	}
}

// Decode reads an open profile map into the variant for layoutID. Keys that
// belong to other layouts are ignored; a value of the wrong type is a
// *FieldError.
func Decode(layoutID string, data map[string]any) (Data, error) {
	v, err := newVariant(layoutID)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return deref(v), nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &FieldError{Layout: layoutID, Field: typeErr.Field, Message: "expected " + typeErr.Type.String()}
		}
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return deref(v), nil
}

// Check decodes and validates data for layoutID.
func Check(layoutID string, data map[string]any) error {
	d, err := Decode(layoutID, data)
	if err != nil {
		return err
	}
	return d.Validate()
}

// Encode converts a typed profile back to its open map form.
func Encode(d Data) map[string]any {
	b, err := json.Marshal(d)
	if err != nil {
		return map[string]any{}
	}
	out := map[string]any{}
	_ = json.Unmarshal(b, &out)
	return out
}

func deref(v Data) Data {
	switch t := v.(type) {
	case *Classic:
		return *t
	case *Gallery:
		return *t
	case *Business:
		return *t
	case *ProductHub:
		return *t
	case *VideoCreator:
		return *t
	case *Premium:
		return *t
	case *BusinessCard:
		return *t
	}
	return v
}
