package adapter

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/jobscout/internal/model"
)

var _ model.Source = (*HTMLAdapter)(nil)

// Selectors locate posting fields inside a job board page. Title, Link,
// Description and Location are evaluated relative to each Listing match.
type Selectors struct {
	Listing     string
	Title       string
	Link        string
	Description string
	Location    string
}

// DefaultSelectors match the generic job board markup:
// .job-listing > .job-title, a[href], .job-description.
var DefaultSelectors = Selectors{
	Listing:     ".job-listing",
	Title:       ".job-title",
	Link:        "a",
	Description: ".job-description",
	Location:    ".job-location",
}

// withDefaults fills blank selectors from DefaultSelectors.
func (s Selectors) withDefaults() Selectors {
	if s.Listing == "" {
		s.Listing = DefaultSelectors.Listing
	}
	if s.Title == "" {
		s.Title = DefaultSelectors.Title
	}
	if s.Link == "" {
		s.Link = DefaultSelectors.Link
	}
	if s.Description == "" {
		s.Description = DefaultSelectors.Description
	}
	if s.Location == "" {
		s.Location = DefaultSelectors.Location
	}
	return s
}

// HTMLAdapter scrapes postings from a server-rendered job board page.
type HTMLAdapter struct {
	name      string
	pageURL   string
	selectors Selectors
	client    *http.Client
}

// NewHTMLAdapter creates an adapter for pageURL. pageURL may contain
// {query} and {location} placeholders. An empty name defaults to the page's
// hostname.
func NewHTMLAdapter(name, pageURL string, selectors Selectors, client *http.Client) *HTMLAdapter {
	if name == "" {
		name = hostname(pageURL)
	}
	return &HTMLAdapter{
		name:      name,
		pageURL:   pageURL,
		selectors: selectors.withDefaults(),
		client:    client,
	}
}

func (a *HTMLAdapter) Name() string { return a.name }

// Fetch downloads the page and emits one record per listing element. Links
// are emitted as found; relative hrefs are resolved during normalization
// against the page URL carried in base_url.
func (a *HTMLAdapter) Fetch(ctx context.Context, q model.Query) ([]model.RawRecord, error) {
	pageURL := expandQuery(a.pageURL, q.Text, q.Location)

	header := http.Header{}
	header.Set("Accept", "text/html,application/xhtml+xml")
	resp, err := get(ctx, a.client, pageURL, header)
	if err != nil {
		return nil, fmt.Errorf("html fetch for %s: %w", a.name, err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("html fetch for %s: parsing page: %w", a.name, err)
	}

	sel := a.selectors
	var records []model.RawRecord
	doc.Find(sel.Listing).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Find(sel.Link).First().Attr("href")
		records = append(records, model.RawRecord{
			model.FieldTitle:       strings.TrimSpace(s.Find(sel.Title).First().Text()),
			model.FieldLink:        strings.TrimSpace(href),
			model.FieldDescription: strings.TrimSpace(s.Find(sel.Description).First().Text()),
			model.FieldLocation:    strings.TrimSpace(s.Find(sel.Location).First().Text()),
			model.FieldBaseURL:     pageURL,
		})
	})
	return records, nil
}
