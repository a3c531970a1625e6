package event

// Type identifies the type of domain event
type Type string

const (
	TypeSessionLoggedIn  Type = "session.logged_in"
	TypeSessionLoggedOut Type = "session.logged_out"
	TypeSessionExpired   Type = "session.expired"
	TypeRecordsLoaded    Type = "records.loaded"
	TypeLoadFailed       Type = "records.load_failed"
	TypeStatusChanged    Type = "record.status_changed"
	TypeCommentSent      Type = "record.comment_sent"
	TypeWriteFailed      Type = "record.write_failed"
	TypeRecordCreated    Type = "record.created"
	TypeRecordExported   Type = "record.exported"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeSessionLoggedIn,
		TypeSessionLoggedOut,
		TypeSessionExpired,
		TypeRecordsLoaded,
		TypeLoadFailed,
		TypeStatusChanged,
		TypeCommentSent,
		TypeWriteFailed,
		TypeRecordCreated,
		TypeRecordExported:
		return true
	default:
		return false
	}
}

// IsFailure reports whether the event describes a failed remote call
func (t Type) IsFailure() bool {
	return t == TypeLoadFailed || t == TypeWriteFailed
}
