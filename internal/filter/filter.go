package filter

import (
	"strings"

	"github.com/amishk599/jobscout/internal/model"
)

// DefaultDenyKeywords are applied when a profile does not configure its own
// deny list.
var DefaultDenyKeywords = []string{"senior", "lead"}

// ProfileFilter matches postings against a search profile's keyword rules.
// Matching is a case-insensitive substring test over title and description.
type ProfileFilter struct{}

// NewProfileFilter returns a ProfileFilter.
func NewProfileFilter() *ProfileFilter {
	return &ProfileFilter{}
}

// Match returns true if at least one profile keyword appears in the posting's
// title or description and no deny keyword does. A profile with no keywords
// matches nothing.
func (f *ProfileFilter) Match(p model.Posting, profile model.SearchProfile) bool {
	text := strings.ToLower(p.Title + " " + p.Description)

	if !containsAny(text, profile.Keywords) {
		return false
	}
	if containsAny(text, profile.DenyKeywords) {
		return false
	}
	return true
}

// containsAny reports whether text contains any non-blank keyword.
// text must already be lower-cased.
func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
