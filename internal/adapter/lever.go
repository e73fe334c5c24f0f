package adapter

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/amishk599/jobscout/internal/model"
)

const leverBaseURL = "https://api.lever.co/v0/postings"

var _ model.Source = (*LeverAdapter)(nil)

// leverCategories represents the categories object in a Lever job.
type leverCategories struct {
	Team         string   `json:"team"`
	Location     string   `json:"location"`
	Commitment   string   `json:"commitment"`
	AllLocations []string `json:"allLocations"`
}

// leverJob represents a single job in the Lever API response.
type leverJob struct {
	ID               string          `json:"id"`
	Text             string          `json:"text"`
	DescriptionPlain string          `json:"descriptionPlain"`
	Categories       leverCategories `json:"categories"`
	HostedURL        string          `json:"hostedUrl"`
}

// LeverAdapter fetches postings from the Lever public postings API.
type LeverAdapter struct {
	name        string
	companySlug string
	baseURL     string
	client      *http.Client
}

// NewLeverAdapter creates an adapter for the Lever board of companySlug.
func NewLeverAdapter(name, companySlug string, client *http.Client) *LeverAdapter {
	return &LeverAdapter{
		name:        name,
		companySlug: companySlug,
		baseURL:     leverBaseURL,
		client:      client,
	}
}

func (a *LeverAdapter) Name() string { return a.name }

// Fetch retrieves every posting on the board whose location matches q.Location.
func (a *LeverAdapter) Fetch(ctx context.Context, q model.Query) ([]model.RawRecord, error) {
	url := fmt.Sprintf("%s/%s?mode=json", a.baseURL, a.companySlug)

	var leverJobs []leverJob
	if err := getJSON(ctx, a.client, url, nil, &leverJobs); err != nil {
		return nil, fmt.Errorf("lever fetch for %s: %w", a.companySlug, err)
	}

	records := make([]model.RawRecord, 0, len(leverJobs))
	for _, lj := range leverJobs {
		// prefer allLocations, fall back to location
		location := lj.Categories.Location
		if len(lj.Categories.AllLocations) > 0 {
			location = strings.Join(lj.Categories.AllLocations, ", ")
		}
		if !matchesLocation(location, q.Location) {
			continue
		}

		records = append(records, model.RawRecord{
			"id":                      lj.ID,
			model.FieldTitle:          lj.Text,
			model.FieldLink:           lj.HostedURL,
			model.FieldDescription:    lj.DescriptionPlain,
			model.FieldLocation:       location,
			model.FieldEmploymentType: lj.Categories.Commitment,
		})
	}
	return records, nil
}
