package model

import "time"

// Window types for fixed-window rate limiting.
const (
	WindowMinute = "minute"
	WindowDay    = "day"
)

// WindowStart floors t to the start of the given window type. Day windows
// start at UTC midnight.
func WindowStart(windowType string, t time.Time) time.Time {
	t = t.UTC()
	switch windowType {
	case WindowMinute:
		return t.Truncate(time.Minute)
	case WindowDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	return t
}

// WindowEnd returns the first instant after the window containing t.
func WindowEnd(windowType string, t time.Time) time.Time {
	start := WindowStart(windowType, t)
	switch windowType {
	case WindowMinute:
		return start.Add(time.Minute)
	case WindowDay:
		return start.AddDate(0, 0, 1)
	}
	return start
}

// RateLimitInfo reports quota state for the tightest applicable window after
// a successful consumption. Surfaced as X-RateLimit-* response headers.
type RateLimitInfo struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"` // never negative
	ResetAt   time.Time `json:"reset_at"`
}
