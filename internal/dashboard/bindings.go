package dashboard

import (
	"net/http"
	"time"

	"devdash/internal/auth"
	"devdash/internal/ics"
	"devdash/internal/source"
)

// Region ids. They are stable keys of the page layout.
const (
	GoogleEvents         = "google-events"
	JiraIssues           = "jira-issues"
	ConfluenceTasks      = "confluence-tasks"
	GoogleTasks          = "google-tasks"
	GitHubIssues         = "github-issues"
	GitHubPRs            = "github-prs"
	GitHubReviewRequests = "github-review-requests"
	ICSEvents            = "ics-events"
)

// Deps are the collaborators shared by the default bindings.
type Deps struct {
	Client   *http.Client
	Broker   auth.Broker
	Location *time.Location
	// Feeds adds the ics-events binding when non-empty.
	Feeds []ics.Source
}

// DefaultBindings returns the standard dashboard layout.
func DefaultBindings(d Deps) []Binding {
	google := source.Google{Broker: d.Broker, Client: d.Client}
	bindings := []Binding{
		{ID: GoogleEvents, Label: "Google Events", Adapter: &source.GoogleCalendar{Google: google, Location: d.Location}},
		{ID: JiraIssues, Label: "Jira issues", Adapter: source.NewJira(d.Client)},
		{ID: ConfluenceTasks, Label: "Confluence Tasks", Adapter: source.NewConfluence(d.Client)},
		{ID: GoogleTasks, Label: "Google Tasks", Adapter: &source.GoogleTasks{Google: google}},
		{ID: GitHubIssues, Label: "GitHub Issues", Adapter: source.NewGitHub(source.QueryAssignedIssues, d.Client)},
		{ID: GitHubPRs, Label: "GitHub PRs", Adapter: source.NewGitHub(source.QueryAssignedPRs, d.Client)},
		{ID: GitHubReviewRequests, Label: "GitHub Review Requests", Adapter: source.NewGitHub(source.QueryReviewRequests, d.Client)},
	}
	if len(d.Feeds) > 0 {
		bindings = append(bindings, Binding{
			ID:    ICSEvents,
			Label: "Calendar Feeds",
			Adapter: &source.ICSFeeds{
				Fetcher:  ics.NewFetcher(d.Client),
				Sources:  d.Feeds,
				Location: d.Location,
			},
		})
	}
	return bindings
}
