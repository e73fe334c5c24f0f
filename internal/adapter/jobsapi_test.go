package adapter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amishk599/jobscout/internal/model"
)

func TestJobsAPIAdapter_Fetch(t *testing.T) {
	payload := `{
		"jobs": [
			{
				"id": "abc",
				"title": "Front End Developer",
				"company": "Acme",
				"description": "React and TypeScript",
				"location": "Tel Aviv, Israel",
				"employmentType": "Full-time",
				"jobProviders": [
					{"jobProvider": "LinkedIn", "url": "https://www.linkedin.com/jobs/view/1"},
					{"jobProvider": "Indeed", "url": "https://www.indeed.com/viewjob?jk=1"}
				]
			},
			{
				"id": "no-provider",
				"title": "Designer",
				"jobProviders": []
			}
		]
	}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-rapidapi-key"); got != "secret" {
			t.Errorf("x-rapidapi-key = %q, want secret", got)
		}
		if got := r.Header.Get("x-rapidapi-host"); got != jobsAPIHost {
			t.Errorf("x-rapidapi-host = %q", got)
		}
		q := r.URL.Query()
		if q.Get("query") != "Front End Developer" || q.Get("location") != "Israel" {
			t.Errorf("unexpected query params: %s", r.URL.RawQuery)
		}
		if q.Get("remoteOnly") != "true" {
			t.Errorf("remoteOnly = %q, want true", q.Get("remoteOnly"))
		}
		if q.Get("employmentTypes") != defaultEmploymentTypes {
			t.Errorf("employmentTypes = %q, want default", q.Get("employmentTypes"))
		}
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	a := NewJobsAPIAdapter("jobs-api", "secret", srv.Client())
	a.baseURL = srv.URL

	records, err := a.Fetch(context.Background(), model.Query{
		Text:     "Front End Developer",
		Location: "Israel",
		Filters:  map[string]string{"remote_only": "yes"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if got := records[0].Get(model.FieldLink); got != "https://www.linkedin.com/jobs/view/1" {
		t.Errorf("link = %q, want first provider url", got)
	}
	if got := records[0].Get(model.FieldEmploymentType); got != "Full-time" {
		t.Errorf("employment type = %q", got)
	}
	if got := records[1].Get(model.FieldLink); got != "" {
		t.Errorf("job without providers should have empty link, got %q", got)
	}
}

func TestJobsAPIAdapter_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Invalid API key"}`))
	}))
	defer srv.Close()

	a := NewJobsAPIAdapter("jobs-api", "bad", srv.Client())
	a.baseURL = srv.URL

	_, err := a.Fetch(context.Background(), model.Query{Text: "go"})
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected HTTPError 401, got %v", err)
	}
}

func TestBoolFilter(t *testing.T) {
	for in, want := range map[string]string{"": "false", "true": "true", "YES": "true", "1": "true", "no": "false"} {
		if got := boolFilter(in); got != want {
			t.Errorf("boolFilter(%q) = %q, want %q", in, got, want)
		}
	}
}
