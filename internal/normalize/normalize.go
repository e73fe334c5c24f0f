// Package normalize turns source-specific raw records into canonical postings.
package normalize

import (
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/amishk599/jobscout/internal/model"
)

// DefaultEmploymentType is used when a source does not report one.
const DefaultEmploymentType = "Not specified"

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// Normalize converts rec into a Posting tagged with source. Records without a
// title or with a missing or non-absolute link are rejected with
// model.ErrMalformedRecord. Optional fields never cause a rejection.
func Normalize(rec model.RawRecord, source string, now time.Time) (model.Posting, error) {
	title := collapse(rec.Get(model.FieldTitle))
	if title == "" {
		return model.Posting{}, fmt.Errorf("%w: missing title", model.ErrMalformedRecord)
	}

	link, err := resolveLink(rec.Get(model.FieldLink), rec.Get(model.FieldBaseURL))
	if err != nil {
		return model.Posting{}, fmt.Errorf("%w: %v", model.ErrMalformedRecord, err)
	}

	employment := collapse(rec.Get(model.FieldEmploymentType))
	if employment == "" {
		employment = DefaultEmploymentType
	}

	return model.Posting{
		Title:          title,
		Link:           link,
		Description:    ExtractText(rec.Get(model.FieldDescription)),
		Location:       collapse(rec.Get(model.FieldLocation)),
		EmploymentType: employment,
		Source:         source,
		DiscoveredAt:   now,
	}, nil
}

// resolveLink returns an absolute http(s) URL for raw, resolving it against
// base when raw is relative.
func resolveLink(raw, base string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("missing link")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse link %q: %w", raw, err)
	}

	if !u.IsAbs() && base != "" {
		b, err := url.Parse(strings.TrimSpace(base))
		if err != nil {
			return "", fmt.Errorf("parse base url %q: %w", base, err)
		}
		u = b.ResolveReference(u)
	}

	if !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("link %q is not absolute", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("link %q has unsupported scheme %q", raw, u.Scheme)
	}

	u.Fragment = ""
	return u.String(), nil
}

// ExtractText converts an HTML or HTML-encoded string to plain text.
// It unescapes entities first (handles double-encoding), strips all tags,
// then collapses whitespace.
func ExtractText(content string) string {
	unescaped := html.UnescapeString(content)
	plain := htmlTagRegex.ReplaceAllString(unescaped, " ")
	return collapse(plain)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate shortens s to at most n runes, appending "..." when cut.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "..."
}
