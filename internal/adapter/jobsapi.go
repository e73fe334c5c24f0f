package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/amishk599/jobscout/internal/model"
)

const (
	jobsAPIHost    = "jobs-api14.p.rapidapi.com"
	jobsAPIBaseURL = "https://" + jobsAPIHost + "/v2/list"

	defaultEmploymentTypes = "fulltime;parttime;intern;contractor"
)

var _ model.Source = (*JobsAPIAdapter)(nil)

type jobsAPIResponse struct {
	Jobs []jobsAPIJob `json:"jobs"`
}

type jobsAPIJob struct {
	ID             string            `json:"id"`
	Title          string            `json:"title"`
	Company        string            `json:"company"`
	Description    string            `json:"description"`
	Location       string            `json:"location"`
	EmploymentType string            `json:"employmentType"`
	JobProviders   []jobsAPIProvider `json:"jobProviders"`
}

type jobsAPIProvider struct {
	JobProvider string `json:"jobProvider"`
	URL         string `json:"url"`
}

// JobsAPIAdapter searches the RapidAPI jobs-api14 aggregate search.
// Profile filters "remote_only" and "employment_types" are passed through.
type JobsAPIAdapter struct {
	name    string
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewJobsAPIAdapter creates an adapter authenticated with a RapidAPI key.
func NewJobsAPIAdapter(name, apiKey string, client *http.Client) *JobsAPIAdapter {
	return &JobsAPIAdapter{
		name:    name,
		apiKey:  apiKey,
		baseURL: jobsAPIBaseURL,
		client:  client,
	}
}

func (a *JobsAPIAdapter) Name() string { return a.name }

// Fetch runs one search for q. Each job's link is its first provider URL.
func (a *JobsAPIAdapter) Fetch(ctx context.Context, q model.Query) ([]model.RawRecord, error) {
	params := url.Values{}
	params.Set("query", q.Text)
	params.Set("location", q.Location)
	params.Set("autoTranslateLocation", "false")
	params.Set("remoteOnly", boolFilter(q.Filters["remote_only"]))
	params.Set("employmentTypes", orDefault(q.Filters["employment_types"], defaultEmploymentTypes))

	header := http.Header{}
	header.Set("x-rapidapi-key", a.apiKey)
	header.Set("x-rapidapi-host", jobsAPIHost)
	header.Set("Accept", "application/json")

	var apiResp jobsAPIResponse
	if err := getJSON(ctx, a.client, a.baseURL+"?"+params.Encode(), header, &apiResp); err != nil {
		return nil, fmt.Errorf("jobs api search %q: %w", q.Text, err)
	}

	records := make([]model.RawRecord, 0, len(apiResp.Jobs))
	for _, j := range apiResp.Jobs {
		var link string
		if len(j.JobProviders) > 0 {
			link = j.JobProviders[0].URL
		}
		records = append(records, model.RawRecord{
			"id":                      j.ID,
			"company":                 j.Company,
			model.FieldTitle:          j.Title,
			model.FieldLink:           link,
			model.FieldDescription:    j.Description,
			model.FieldLocation:       j.Location,
			model.FieldEmploymentType: j.EmploymentType,
		})
	}
	return records, nil
}

func boolFilter(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "yes", "1":
		return "true"
	default:
		return "false"
	}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
