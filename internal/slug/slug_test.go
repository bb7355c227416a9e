package slug

import (
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  My Cool Page!! ", "my-cool-page"},
		{"Jane_Doe", "jane-doe"},
		{"__--jane--__", "jane"},
		{"a - b", "a-b"},
		{"a!b", "ab"},
		{"tab\tand\nnewline", "tab-and-newline"},
		{"Crème Brûlée", "crme-brle"},
		{"日本語", ""},
		{"", ""},
		{"   ", ""},
		{"already-fine", "already-fine"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotentAndCharsetValid(t *testing.T) {
	inputs := []string{
		"  My Cool Page!! ", "__x__", "-_-", "A B C", "ünïcödé name", "x", "ab",
		"a--b__c", " lead", "trail ", "emoji 🎉 party", "UPPER_case-Mixed 123",
		strings.Repeat("long name ", 10),
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)

		var verr *ValidationError
		if err := Validate(once); errors.As(err, &verr) {
			assert.NotEqual(t, CodeInvalidChars, verr.Code, "input %q", in)
			assert.NotEqual(t, CodeLeadingSeparator, verr.Code, "input %q", in)
			assert.NotEqual(t, CodeTrailingSeparator, verr.Code, "input %q", in)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		in   string
		want Code
	}{
		{"", CodeEmpty},
		{"   ", CodeEmpty},
		{"ab", CodeTooShort},
		{strings.Repeat("a", 31), CodeTooLong},
		{"Jane", CodeInvalidChars},
		{"jane doe", CodeInvalidChars},
		{"-jane", CodeLeadingSeparator},
		{"_jane", CodeLeadingSeparator},
		{"jane-", CodeTrailingSeparator},
		{"jane_", CodeTrailingSeparator},
		// order: length is checked before charset
		{"A!", CodeTooShort},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			err := Validate(tt.in)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.want, verr.Code)
			assert.NotEmpty(t, verr.Error())
		})
	}

	for _, ok := range []string{"abc", "jane_doe", "jane-doe", "a1b", strings.Repeat("z", 30)} {
		assert.NoError(t, Validate(ok), ok)
	}
}

func TestSuggestAlternativesShape(t *testing.T) {
	now = func() time.Time { return time.UnixMilli(1700000004321) }
	t.Cleanup(func() { now = time.Now })

	got := SuggestAlternatives("Jane Doe", 7)
	require.Len(t, got, 7)

	shapes := []*regexp.Regexp{
		regexp.MustCompile(`^jane-doe-\d{1,3}$`),
		regexp.MustCompile(`^jane-doe-4321$`),
		regexp.MustCompile(`^jane-doe\d{1,2}$`),
		regexp.MustCompile(`^jane-doe-[a-z]$`),
		regexp.MustCompile(`^jane-doe-\d{1,4}$`),
		regexp.MustCompile(`^jane-doe-\d{1,4}$`),
		regexp.MustCompile(`^jane-doe-\d{1,4}$`),
	}
	for i, re := range shapes {
		assert.Regexp(t, re, got[i])
		assert.NoError(t, Validate(got[i]))
	}
}

func TestSuggestAlternativesEdges(t *testing.T) {
	assert.Empty(t, SuggestAlternatives("jane", 0))
	assert.Empty(t, SuggestAlternatives("jane", -1))

	for _, s := range SuggestAlternatives("!!!", 5) {
		assert.True(t, strings.HasPrefix(s, "page"), s)
	}

	for _, s := range SuggestAlternatives(strings.Repeat("abcdefghij", 4), 6) {
		assert.NoError(t, Validate(s), s)
	}
}
