package domain

import "time"

// UsageLog is one append-only record of an attempt to use a token.
type UsageLog struct {
	ID         string
	TokenID    string
	UserID     string // empty for anonymous callers
	ClientIP   string
	UserAgent  string
	StatusCode int
	Timestamp  time.Time

	// Error is set when the attempt failed and error logging is enabled.
	Error *ErrorLog
}

// Succeeded reports whether the attempt counted as a use.
func (l UsageLog) Succeeded() bool {
	return l.Error == nil
}

// ErrorLog carries the classification of a failed attempt. It belongs to
// exactly one UsageLog.
type ErrorLog struct {
	LogID          string
	Classification string
	Message        string
}
