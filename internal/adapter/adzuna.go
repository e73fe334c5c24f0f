package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/amishk599/jobscout/internal/model"
)

const (
	adzunaBaseURL  = "https://api.adzuna.com/v1/api/jobs"
	adzunaPageSize = 50
	adzunaMaxPages = 3
)

var _ model.Source = (*AdzunaAdapter)(nil)

type adzunaResponse struct {
	Results []adzunaResult `json:"results"`
}

type adzunaResult struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Company      adzunaCompany `json:"company"`
	Location     adzunaPlace   `json:"location"`
	RedirectURL  string        `json:"redirect_url"`
	ContractTime string        `json:"contract_time"`
}

type adzunaCompany struct {
	DisplayName string `json:"display_name"`
}

type adzunaPlace struct {
	DisplayName string `json:"display_name"`
}

// AdzunaAdapter searches the Adzuna public job search API.
type AdzunaAdapter struct {
	name    string
	appID   string
	appKey  string
	country string // "gb", "us", "fr", ...
	baseURL string
	client  *http.Client
}

// NewAdzunaAdapter creates an adapter for one Adzuna country index.
func NewAdzunaAdapter(name, appID, appKey, country string, client *http.Client) *AdzunaAdapter {
	return &AdzunaAdapter{
		name:    name,
		appID:   appID,
		appKey:  appKey,
		country: country,
		baseURL: adzunaBaseURL,
		client:  client,
	}
}

func (a *AdzunaAdapter) Name() string { return a.name }

// Fetch pages through search results, newest first, until a short page or
// adzunaMaxPages.
func (a *AdzunaAdapter) Fetch(ctx context.Context, q model.Query) ([]model.RawRecord, error) {
	var records []model.RawRecord
	for page := 1; page <= adzunaMaxPages; page++ {
		batch, err := a.fetchPage(ctx, q, page)
		if err != nil {
			return nil, fmt.Errorf("adzuna search %q page %d: %w", q.Text, page, err)
		}
		records = append(records, batch...)
		if len(batch) < adzunaPageSize {
			break
		}
	}
	return records, nil
}

func (a *AdzunaAdapter) fetchPage(ctx context.Context, q model.Query, page int) ([]model.RawRecord, error) {
	params := url.Values{}
	params.Set("app_id", a.appID)
	params.Set("app_key", a.appKey)
	params.Set("results_per_page", strconv.Itoa(adzunaPageSize))
	params.Set("what", q.Text)
	if q.Location != "" {
		params.Set("where", q.Location)
	}
	params.Set("sort_by", "date")
	params.Set("content-type", "application/json")

	endpoint := fmt.Sprintf("%s/%s/search/%d?%s", a.baseURL, a.country, page, params.Encode())

	var resp adzunaResponse
	if err := getJSON(ctx, a.client, endpoint, nil, &resp); err != nil {
		return nil, err
	}

	records := make([]model.RawRecord, 0, len(resp.Results))
	for _, r := range resp.Results {
		records = append(records, model.RawRecord{
			"id":                      r.ID,
			"company":                 r.Company.DisplayName,
			model.FieldTitle:          r.Title,
			model.FieldLink:           r.RedirectURL,
			model.FieldDescription:    r.Description,
			model.FieldLocation:       r.Location.DisplayName,
			model.FieldEmploymentType: r.ContractTime,
		})
	}
	return records, nil
}
