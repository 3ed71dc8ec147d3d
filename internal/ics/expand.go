package ics

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "devdash/internal/log"
	"devdash/internal/model"
)

const defaultMaxOccurrencesPerEvent = 500

// ExpandConfig controls how recurrence expansion is performed.
type ExpandConfig struct {
	// DisplayLocation is the timezone all occurrences are converted to.
	// If nil, time.Local is used.
	DisplayLocation *time.Location

	// RangeStart / RangeEnd bound the window; an occurrence is kept when
	// it overlaps [RangeStart, RangeEnd).
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps runaway rules. Zero means
	// defaultMaxOccurrencesPerEvent.
	MaxOccurrencesPerEvent int
}

// ExpandOccurrences expands events into concrete occurrences inside the
// window, honoring RRULE, EXDATE and RECURRENCE-ID overrides. The result
// is sorted by start time, all-day occurrences first on equal starts.
func ExpandOccurrences(events []ParsedEvent, cfg ExpandConfig) ([]model.Occurrence, error) {
	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return nil, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	// Overrides are keyed by UID and replace the matching base instance.
	overrides := make(map[string][]ParsedEvent)
	var bases []ParsedEvent
	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		bases = append(bases, ev)
	}

	out := make([]model.Occurrence, 0)
	for _, ev := range bases {
		if ev.RawRRule == "" {
			start, end, src := applyOverride(ev, overrides[ev.UID], ev.Start, ev.End)
			if occ, ok := occurrence(src, start, end, cfg); ok {
				out = append(out, occ)
			}
			continue
		}
		out = append(out, expandRecurring(ev, overrides[ev.UID], cfg)...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].AllDay && !out[j].AllDay
	})
	return out, nil
}

func expandRecurring(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) []model.Occurrence {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Warn("expand: bad RRULE, event skipped", "err", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Widen the lower bound by the event duration so instances that began
	// before the window but still run into it are kept.
	dur := ev.End.Sub(ev.Start)
	loc := ev.Start.Location()
	starts := set.Between(cfg.RangeStart.Add(-dur).In(loc), cfg.RangeEnd.In(loc), true)
	if len(starts) > cfg.MaxOccurrencesPerEvent {
		appLog.Warn("expand: occurrence cap reached", "uid", ev.UID, "cap", cfg.MaxOccurrencesPerEvent)
		starts = starts[:cfg.MaxOccurrencesPerEvent]
	}

	out := make([]model.Occurrence, 0, len(starts))
	for _, s := range starts {
		e := s.Add(dur)
		if ev.AllDay {
			s = time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, loc)
			e = s.AddDate(0, 0, 1)
		}
		start, end, src := applyOverride(ev, overrides, s, e)
		if occ, ok := occurrence(src, start, end, cfg); ok {
			out = append(out, occ)
		}
	}
	return out
}

// applyOverride swaps in the override whose RECURRENCE-ID equals start.
func applyOverride(base ParsedEvent, overrides []ParsedEvent, start, end time.Time) (time.Time, time.Time, ParsedEvent) {
	for _, ov := range overrides {
		if ov.Recurrence.In(start.Location()).Equal(start) {
			return ov.Start, ov.End, ov
		}
	}
	return start, end, base
}

// occurrence converts one instance into the display zone, reporting false
// when it falls outside the window.
func occurrence(ev ParsedEvent, start, end time.Time, cfg ExpandConfig) (model.Occurrence, bool) {
	loc := cfg.DisplayLocation
	if ev.AllDay {
		// All-day dates are calendar dates, not instants.
		start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
		end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, loc)
		if !end.After(start) {
			end = start.AddDate(0, 0, 1)
		}
	} else {
		start = start.In(loc)
		end = end.In(loc)
	}

	if !end.After(cfg.RangeStart) && !start.Equal(cfg.RangeStart) {
		return model.Occurrence{}, false
	}
	if !start.Before(cfg.RangeEnd) {
		return model.Occurrence{}, false
	}

	return model.Occurrence{
		SourceID:    ev.Source.ID,
		UID:         ev.UID,
		InstanceKey: start.Format(time.RFC3339Nano),
		Summary:     ev.Summary,
		Location:    ev.Location,
		URL:         ev.URL,
		AllDay:      ev.AllDay,
		Start:       start,
		End:         end,
	}, true
}
