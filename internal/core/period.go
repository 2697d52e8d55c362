package core

import (
	"strings"
	"time"
)

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
)

// Period is a report window.
type Period string

var periodAliases = map[string]Period{
	"daily":    Daily,
	"harian":   Daily,
	"weekly":   Weekly,
	"mingguan": Weekly,
	"monthly":  Monthly,
	"bulanan":  Monthly,
}

// ParsePeriod maps a user supplied period to a Period.
// Missing or unrecognized values fall back to Daily.
func ParsePeriod(s string) Period {
	if p, ok := periodAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return p
	}
	return Daily
}

// Start returns the inclusive lower bound of the window ending at now.
func (p Period) Start(now time.Time) time.Time {
	switch p {
	case Weekly:
		return now.AddDate(0, 0, -7)
	case Monthly:
		return now.AddDate(0, 0, -30)
	default:
		return StartOfDay(now)
	}
}

// StartOfDay truncates t to local midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayWindow returns [start of day, start of next day) for t.
func DayWindow(t time.Time) (time.Time, time.Time) {
	start := StartOfDay(t)
	return start, start.AddDate(0, 0, 1)
}
