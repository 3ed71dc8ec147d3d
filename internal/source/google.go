package source

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/tasks/v1"

	"devdash/internal/auth"
	"devdash/internal/model"
	"devdash/internal/store"
)

const (
	calendarMaxResults = 20
	// taskListConcurrency bounds parallel per-list task fetches.
	taskListConcurrency = 4
)

// Google is the shared plumbing of the Google-backed adapters.
type Google struct {
	Broker auth.Broker
	Client *http.Client
	// Endpoint overrides the API base path; empty uses Google's.
	Endpoint string
}

func (g Google) options(token string) []option.ClientOption {
	opts := []option.ClientOption{option.WithHTTPClient(withBearer(g.Client, token))}
	if g.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(g.Endpoint))
	}
	return opts
}

// GoogleCalendar lists today's events of the primary calendar.
type GoogleCalendar struct {
	Google
	Location *time.Location
	Now      func() time.Time
}

func (c *GoogleCalendar) now() time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	if c.Now != nil {
		return c.Now().In(loc)
	}
	return time.Now().In(loc)
}

func (c *GoogleCalendar) Fetch(ctx context.Context, s store.Settings) ([]model.Item, error) {
	token, err := c.Broker.Token(ctx)
	if err != nil {
		return nil, err
	}

	svc, err := calendar.NewService(ctx, c.options(token)...)
	if err != nil {
		return nil, fmt.Errorf("calendar client: %w", err)
	}

	now := c.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	endOfDay := startOfDay.AddDate(0, 0, 1).Add(-time.Millisecond)

	events, err := svc.Events.List("primary").
		TimeMin(startOfDay.Format(time.RFC3339Nano)).
		TimeMax(endOfDay.Format(time.RFC3339Nano)).
		MaxResults(calendarMaxResults).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}

	myEmail := s.String(store.KeyEmailAddress)
	items := make([]model.Item, 0, len(events.Items))
	for _, ev := range events.Items {
		if ev.EventType == "workingLocation" {
			continue
		}
		if eventResponse(ev, myEmail) == "declined" {
			continue
		}

		timeStart := eventTime(ev.Start)
		timeEnd := eventTime(ev.End)
		summary := ev.Summary
		if summary == "" {
			summary = "(No Title)"
		}
		items = append(items, model.Item{
			Label:     TimeLabel(timeStart, now.Location()),
			Title:     summary,
			WebLink:   ev.HtmlLink,
			TimeStart: timeStart,
			TimeEnd:   timeEnd,
		})
	}
	return items, nil
}

// eventResponse is the configured user's RSVP, or "unknown".
func eventResponse(ev *calendar.Event, myEmail string) string {
	if myEmail == "" {
		return "unknown"
	}
	for _, a := range ev.Attendees {
		if a != nil && a.Email == myEmail {
			return a.ResponseStatus
		}
	}
	return "unknown"
}

func eventTime(t *calendar.EventDateTime) string {
	if t == nil {
		return ""
	}
	if t.DateTime != "" {
		return t.DateTime
	}
	return t.Date
}

// TimeLabel renders the HH:MM label of an item start in loc. Date-only
// values are all-day items.
func TimeLabel(ts string, loc *time.Location) string {
	if ts == "" {
		return ""
	}
	if _, err := time.Parse(time.DateOnly, ts); err == nil {
		return "All day"
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ""
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("15:04")
}

// GoogleTasks lists the tasks of every task list.
type GoogleTasks struct {
	Google
}

func (g *GoogleTasks) Fetch(ctx context.Context, _ store.Settings) ([]model.Item, error) {
	token, err := g.Broker.Token(ctx)
	if err != nil {
		return nil, err
	}

	svc, err := tasks.NewService(ctx, g.options(token)...)
	if err != nil {
		return nil, fmt.Errorf("tasks client: %w", err)
	}

	lists, err := svc.Tasklists.List().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list task lists: %w", err)
	}

	perList := make([][]model.Item, len(lists.Items))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(taskListConcurrency)
	for i, list := range lists.Items {
		eg.Go(func() error {
			res, err := svc.Tasks.List(list.Id).Context(egCtx).Do()
			if err != nil {
				return fmt.Errorf("list tasks of %q: %w", list.Title, err)
			}
			items := make([]model.Item, 0, len(res.Items))
			for _, task := range res.Items {
				items = append(items, model.Item{
					Title:   list.Title + " - " + task.Title,
					WebLink: task.WebViewLink,
				})
			}
			perList[i] = items
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var all []model.Item
	for _, items := range perList {
		all = append(all, items...)
	}
	if all == nil {
		all = []model.Item{}
	}
	return all, nil
}
