package entity

import "time"

// Session is the persisted client state of one browser (or the CLI): the
// token issued at login and the chosen site.
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"-"`
	Username  string    `json:"username"`
	Site      string    `json:"site"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LoggedIn reports whether a token is stored
func (s *Session) LoggedIn() bool {
	return s != nil && s.Token != ""
}

// SiteOr returns the stored site or def when none is stored
func (s *Session) SiteOr(def string) string {
	if s == nil || s.Site == "" {
		return def
	}
	return s.Site
}

// JournalEntry records the outcome of one dashboard write or load
type JournalEntry struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	LetterNo  string    `json:"letter_no"`
	EventType string    `json:"event_type"`
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

// Failed reports whether the journaled action failed
func (e *JournalEntry) Failed() bool {
	return e.Outcome == OutcomeFailed
}
