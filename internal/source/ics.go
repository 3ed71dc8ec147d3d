package source

import (
	"context"
	"fmt"
	"time"

	"devdash/internal/ics"
	"devdash/internal/model"
	"devdash/internal/store"
)

// ICSFeeds lists today's occurrences across the subscribed ICS feeds.
type ICSFeeds struct {
	Fetcher  *ics.Fetcher
	Sources  []ics.Source
	Location *time.Location
	Now      func() time.Time
}

func (f *ICSFeeds) Fetch(ctx context.Context, _ store.Settings) ([]model.Item, error) {
	loc := f.Location
	if loc == nil {
		loc = time.Local
	}
	now := time.Now()
	if f.Now != nil {
		now = f.Now()
	}
	now = now.In(loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	fetcher := f.Fetcher
	if fetcher == nil {
		fetcher = ics.NewFetcher(nil)
	}
	results, err := fetcher.FetchAll(ctx, f.Sources)
	if err != nil {
		return nil, err
	}

	feedURL := make(map[string]string, len(f.Sources))
	var events []ics.ParsedEvent
	for _, res := range results {
		feedURL[res.Source.ID] = res.Source.URL
		parsed, err := ics.ParseICS(res.Source, res.Body)
		if err != nil {
			return nil, fmt.Errorf("parse feed %s: %w", res.Source.ID, err)
		}
		events = append(events, parsed...)
	}

	occs, err := ics.ExpandOccurrences(events, ics.ExpandConfig{
		DisplayLocation: loc,
		RangeStart:      dayStart,
		RangeEnd:        dayStart.AddDate(0, 0, 1),
	})
	if err != nil {
		return nil, err
	}

	items := make([]model.Item, 0, len(occs))
	for _, occ := range occs {
		title := occ.Summary
		if title == "" {
			title = "(No Title)"
		}
		link := occ.URL
		if link == "" {
			link = feedURL[occ.SourceID]
		}
		item := model.Item{Title: title, WebLink: link}
		if occ.AllDay {
			item.Label = "All day"
			item.TimeStart = occ.Start.Format(time.DateOnly)
			item.TimeEnd = occ.End.Format(time.DateOnly)
		} else {
			item.Label = occ.Start.Format("15:04")
			item.TimeStart = occ.Start.Format(time.RFC3339)
			item.TimeEnd = occ.End.Format(time.RFC3339)
		}
		items = append(items, item)
	}
	return items, nil
}
