package adapter

import (
	"net/url"
	"strings"
)

// hostname returns the host part of rawURL without a "www." prefix, or
// rawURL itself if it does not parse.
func hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

// matchesLocation reports whether a posting location satisfies the wanted
// location. ATS boards list every opening, so the profile's location is
// applied client-side. An empty want matches everything.
func matchesLocation(location, want string) bool {
	want = strings.ToLower(strings.TrimSpace(want))
	if want == "" {
		return true
	}
	return strings.Contains(strings.ToLower(location), want)
}

// expandQuery substitutes {query} and {location} placeholders in a URL
// template with escaped query values.
func expandQuery(template, query, location string) string {
	r := strings.NewReplacer(
		"{query}", url.QueryEscape(query),
		"{location}", url.QueryEscape(location),
	)
	return r.Replace(template)
}

// Host returns the hostname requests for a source of the given type go to,
// used to share one rate limiter per host. pageURL is only consulted for
// html sources.
func Host(sourceType, pageURL string) string {
	switch sourceType {
	case "greenhouse":
		return hostname(greenhouseBaseURL)
	case "lever":
		return hostname(leverBaseURL)
	case "jobsapi":
		return jobsAPIHost
	case "adzuna":
		return hostname(adzunaBaseURL)
	default:
		return hostname(pageURL)
	}
}
