package domain

import "time"

// Session is the durable per-browser state backing SESSION mode logins and
// stashed tokens.
type Session struct {
	ID        string
	UserID    string // empty until someone is logged in
	Stash     string // raw token kept for reuse, empty when none
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
