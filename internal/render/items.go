package render

import (
	"errors"
	"time"

	"devdash/internal/model"
	"devdash/internal/source"
)

const (
	NoItemsMessage = "No items to show."
	ReauthMessage  = "Please authenticate by clicking here."

	classItem    = "item"
	classNow     = "event-now"
	classElapsed = "event-elapsed"
	classError   = "error"

	newContext = "_blank"
)

// RenderItems paints items, one line each. Time-bound lines are marked
// current while now lies in [start, end] and elapsed once end <= now.
// Date-only bounds are midnight in loc.
func RenderItems(r Region, items []model.Item, now time.Time, loc *time.Location) {
	r.Clear()
	if len(items) == 0 {
		r.AppendText(NoItemsMessage)
		return
	}
	for _, it := range items {
		r.AppendLine(LineClasses(it, now, loc), Anchor{
			Text:   it.Text(),
			Href:   it.WebLink,
			Target: newContext,
		})
	}
}

// LineClasses returns the classes of an item line at now.
func LineClasses(it model.Item, now time.Time, loc *time.Location) []string {
	classes := []string{classItem}
	if !it.TimeBound() {
		return classes
	}
	start, serr := ParseItemTime(it.TimeStart, loc)
	end, eerr := ParseItemTime(it.TimeEnd, loc)
	if serr != nil || eerr != nil {
		return classes
	}
	if !now.Before(start) && !now.After(end) {
		classes = append(classes, classNow)
	}
	if !end.After(now) {
		classes = append(classes, classElapsed)
	}
	return classes
}

// ParseItemTime parses an RFC 3339 date-time or a date-only value.
func ParseItemTime(v string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.ParseInLocation(time.DateOnly, v, loc)
}

// RenderError paints a failed fetch.
func RenderError(r Region, err error) {
	r.Clear()

	var reauth *source.ReauthError
	if errors.As(err, &reauth) {
		r.AppendAnchor(Anchor{Text: ReauthMessage, Href: reauth.Origin, Target: newContext})
		return
	}

	r.AppendText(err.Error())
	if source.Classify(err) == source.KindMissingConfig {
		r.SetClass("")
		return
	}
	r.SetClass(classError)
}
