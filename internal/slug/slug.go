package slug

import (
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	MinLength = 3
	MaxLength = 30
)

type Code string

const (
	CodeEmpty             Code = "EMPTY"
	CodeTooShort          Code = "TOO_SHORT"
	CodeTooLong           Code = "TOO_LONG"
	CodeInvalidChars      Code = "INVALID_CHARS"
	CodeLeadingSeparator  Code = "LEADING_SEPARATOR"
	CodeTrailingSeparator Code = "TRAILING_SEPARATOR"
)

var messages = map[Code]string{
	CodeEmpty:             "Slug cannot be empty",
	CodeTooShort:          "Slug must be at least 3 characters",
	CodeTooLong:           "Slug must be 30 characters or less",
	CodeInvalidChars:      "Slug can only contain lowercase letters, numbers, hyphens, and underscores",
	CodeLeadingSeparator:  "Slug cannot start with a hyphen or underscore",
	CodeTrailingSeparator: "Slug cannot end with a hyphen or underscore",
}

type ValidationError struct {
	Code Code
}

func (e *ValidationError) Error() string { return messages[e.Code] }

var validChars = regexp.MustCompile(`^[a-z0-9_-]+$`)

// Normalize turns free text into canonical slug form. It never fails and
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))

	var b strings.Builder
	b.Grow(len(s))
	sep := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r) || r == '-' || r == '_':
			sep = true
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if sep && b.Len() > 0 {
				b.WriteByte('-')
			}
			sep = false
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Validate reports the first problem with s, or nil.
func Validate(s string) error {
	if strings.TrimSpace(s) == "" {
		return &ValidationError{Code: CodeEmpty}
	}
	n := utf8.RuneCountInString(s)
	if n < MinLength {
		return &ValidationError{Code: CodeTooShort}
	}
	if n > MaxLength {
		return &ValidationError{Code: CodeTooLong}
	}
	if !validChars.MatchString(s) {
		return &ValidationError{Code: CodeInvalidChars}
	}
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "_") {
		return &ValidationError{Code: CodeLeadingSeparator}
	}
	if strings.HasSuffix(s, "-") || strings.HasSuffix(s, "_") {
		return &ValidationError{Code: CodeTrailingSeparator}
	}
	return nil
}

// now is swapped in tests.
var now = time.Now

// suggestionRoom is the longest suffix SuggestAlternatives appends.
const suggestionRoom = len("-9999")

// SuggestAlternatives derives count candidate slugs from base. Candidates are
// not checked against the store.
func SuggestAlternatives(base string, count int) []string {
	n := Normalize(base)
	if n == "" {
		n = "page"
	}
	if len(n) > MaxLength-suggestionRoom {
		n = strings.TrimRight(n[:MaxLength-suggestionRoom], "-")
	}

	out := make([]string, 0, max(count, 0))
	for i := 0; i < count; i++ {
		switch i {
		case 0:
			out = append(out, n+"-"+strconv.Itoa(rand.IntN(1000)))
		case 1:
			ms := strconv.FormatInt(now().UnixMilli(), 10)
			out = append(out, n+"-"+ms[len(ms)-4:])
		case 2:
			out = append(out, n+strconv.Itoa(rand.IntN(100)))
		case 3:
			out = append(out, n+"-"+string(rune('a'+rand.IntN(26))))
		default:
			out = append(out, n+"-"+strconv.Itoa(rand.IntN(10000)))
		}
	}
	return out
}
