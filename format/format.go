// Package format holds display helpers for dates and survey status.
package format

import (
	"fmt"
	"time"
)

const (
	dateLayout          = "Jan 2, 2006"
	dateTimeLayout      = "Jan 2, 2006, 3:04 PM"
	dateTimeLocalLayout = "2006-01-02T15:04"
)

// Date formats t like "Mar 4, 2025". Nil and zero times give "".
func Date(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// DateTime formats t like "Mar 4, 2025, 3:07 PM".
func DateTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(dateTimeLayout)
}

// DateTimeLocal formats t for a datetime-local input.
func DateTimeLocal(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(dateTimeLocalLayout)
}

// ParseDateTimeLocal reads a datetime-local input value; "" gives nil.
func ParseDateTimeLocal(s string, loc *time.Location) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateTimeLocalLayout, s, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// RelativeTime describes t relative to now, falling back to Date after a week.
func RelativeTime(t *time.Time, now time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	diff := now.Sub(*t)
	secs := int(diff / time.Second)
	mins := secs / 60
	hours := mins / 60
	days := hours / 24

	switch {
	case secs < 60:
		return "Just now"
	case mins < 60:
		return ago(mins, "minute")
	case hours < 24:
		return ago(hours, "hour")
	case days < 7:
		return ago(days, "day")
	}
	return Date(t)
}

func ago(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusOpen      Status = "open"
	StatusClosed    Status = "closed"
)

// SurveyStatus derives the status of a survey from its schedule.
func SurveyStatus(opensAt, closesAt *time.Time, now time.Time) Status {
	if opensAt != nil && opensAt.After(now) {
		return StatusScheduled
	}
	if closesAt != nil && closesAt.Before(now) {
		return StatusClosed
	}
	return StatusOpen
}

func (s Status) Label() string {
	switch s {
	case StatusScheduled:
		return "Scheduled"
	case StatusClosed:
		return "Closed"
	}
	return "Open"
}

var badgeClasses = map[Status]string{
	StatusScheduled: "bg-yellow-100 text-yellow-800",
	StatusOpen:      "bg-green-100 text-green-800",
	StatusClosed:    "bg-gray-100 text-gray-800",
}

func StatusBadgeClass(s Status) string {
	if c, ok := badgeClasses[s]; ok {
		return c
	}
	return badgeClasses[StatusOpen]
}
