package model

import (
	"strings"
	"time"
)

// RefKind identifies the format of an item's ticket or issue identifier.
type RefKind int

const (
	RefNone RefKind = iota
	// RefGitHub is "owner/repo#number".
	RefGitHub
	// RefJira is "PREFIX-number".
	RefJira
)

// Ref is the identifier part of an issue-like item. Demo mode swaps it for
// a synthetic one of the same format.
type Ref struct {
	Kind   RefKind
	Owner  string
	Repo   string
	Number string
	Key    string
}

func (r Ref) String() string {
	switch r.Kind {
	case RefGitHub:
		return r.Owner + "/" + r.Repo + "#" + r.Number
	case RefJira:
		return r.Key
	default:
		return ""
	}
}

// Item is a normalized, source-agnostic line ready for rendering.
//
// The visible text is composed from Label, Ref and Title so redaction can
// replace the identifying parts while keeping the rest.
type Item struct {
	// Label is non-identifying leading text kept under redaction, such as
	// the start time of a calendar event.
	Label string
	Ref   Ref
	// Title is the human-readable, possibly identifying text.
	Title string

	WebLink string

	// TimeStart / TimeEnd are ISO-8601 date-times or date-only strings.
	// Both are empty for items that are not time-bound.
	TimeStart string
	TimeEnd   string
}

// Text is the visible text of the item.
func (i Item) Text() string {
	parts := make([]string, 0, 3)
	if i.Label != "" {
		parts = append(parts, i.Label)
	}
	if ref := i.Ref.String(); ref != "" {
		parts = append(parts, ref)
	}
	parts = append(parts, i.Title)
	return strings.Join(parts, " - ")
}

// TimeBound reports whether both time fields are set.
func (i Item) TimeBound() bool {
	return i.TimeStart != "" && i.TimeEnd != ""
}

// Occurrence represents a single concrete instance of an ICS event
// (after recurrence expansion and timezone normalization).
type Occurrence struct {
	SourceID string // feed ID
	UID      string // iCalendar UID

	// InstanceKey uniquely identifies a single occurrence of a recurring
	// event, derived from the local start time.
	InstanceKey string

	Summary  string
	Location string
	URL      string

	AllDay bool

	// Start / End are in the configured display timezone.
	Start time.Time
	End   time.Time
}
