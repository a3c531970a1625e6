package entity

// Status values for Record. The legacy dashboard used the Recommended pair;
// the current one uses the In Process / Accepted / Rejected triple.
const (
	StatusRecommended    = "Recommended"
	StatusNonRecommended = "Non-recommended"
	StatusInProcess      = "In Process"
	StatusAccepted       = "Accepted"
	StatusRejected       = "Rejected"
)

// DefaultSite is the record collection used when a session has not chosen one
const DefaultSite = "drdotwo"

// DayLayout is the wire and display format of every record date
const DayLayout = "2006-01-02"

// Journal outcome constants
const (
	OutcomeOK     = "OK"
	OutcomeFailed = "FAILED"
)

// LegacyStatusOptions returns the two-value status vocabulary
func LegacyStatusOptions() StatusOptions {
	return StatusOptions{StatusRecommended, StatusNonRecommended}
}

// DefaultStatusOptions returns the current three-value status vocabulary
func DefaultStatusOptions() StatusOptions {
	return StatusOptions{StatusInProcess, StatusAccepted, StatusRejected}
}

// StatusOptions is an ordered status vocabulary
type StatusOptions []string

// Contains reports whether status is part of the vocabulary
func (o StatusOptions) Contains(status string) bool {
	for _, s := range o {
		if s == status {
			return true
		}
	}
	return false
}
