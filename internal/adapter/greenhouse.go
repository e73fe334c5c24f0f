package adapter

import (
	"context"
	"fmt"
	"net/http"

	"github.com/amishk599/jobscout/internal/model"
)

const greenhouseBaseURL = "https://boards-api.greenhouse.io/v1/boards"

var _ model.Source = (*GreenhouseAdapter)(nil)

// greenhouseJob represents a single job in the Greenhouse API response.
type greenhouseJob struct {
	ID          int64              `json:"id"`
	Title       string             `json:"title"`
	Location    greenhouseLocation `json:"location"`
	AbsoluteURL string             `json:"absolute_url"`
	Content     string             `json:"content"`
}

type greenhouseLocation struct {
	Name string `json:"name"`
}

// greenhouseResponse is the top-level Greenhouse jobs API response.
type greenhouseResponse struct {
	Jobs []greenhouseJob `json:"jobs"`
}

// GreenhouseAdapter fetches postings from a Greenhouse public job board.
type GreenhouseAdapter struct {
	name       string
	boardToken string
	baseURL    string
	client     *http.Client
}

// NewGreenhouseAdapter creates an adapter for the board identified by boardToken.
func NewGreenhouseAdapter(name, boardToken string, client *http.Client) *GreenhouseAdapter {
	return &GreenhouseAdapter{
		name:       name,
		boardToken: boardToken,
		baseURL:    greenhouseBaseURL,
		client:     client,
	}
}

func (a *GreenhouseAdapter) Name() string { return a.name }

// Fetch retrieves every job on the board, with content, keeping those whose
// location matches q.Location.
func (a *GreenhouseAdapter) Fetch(ctx context.Context, q model.Query) ([]model.RawRecord, error) {
	url := fmt.Sprintf("%s/%s/jobs?content=true", a.baseURL, a.boardToken)

	var ghResp greenhouseResponse
	if err := getJSON(ctx, a.client, url, nil, &ghResp); err != nil {
		return nil, fmt.Errorf("greenhouse fetch for %s: %w", a.boardToken, err)
	}

	records := make([]model.RawRecord, 0, len(ghResp.Jobs))
	for _, gj := range ghResp.Jobs {
		if !matchesLocation(gj.Location.Name, q.Location) {
			continue
		}
		records = append(records, model.RawRecord{
			"id":                   fmt.Sprintf("%d", gj.ID),
			model.FieldTitle:       gj.Title,
			model.FieldLink:        gj.AbsoluteURL,
			model.FieldDescription: gj.Content,
			model.FieldLocation:    gj.Location.Name,
		})
	}
	return records, nil
}
