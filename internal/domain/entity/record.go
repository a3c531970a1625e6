package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RecordID is the opaque client-side key of a record. The Record API has
// returned both numeric and string identifiers, so either form is accepted.
type RecordID string

// UnmarshalJSON accepts a JSON string, number or null
func (id *RecordID) UnmarshalJSON(data []byte) error {
	s, err := looseString(data)
	if err != nil {
		return fmt.Errorf("failed to decode record id: %w", err)
	}
	*id = RecordID(s)
	return nil
}

// String returns the identifier text
func (id RecordID) String() string {
	return string(id)
}

// Amount is a numeric amount carried as text
type Amount string

// UnmarshalJSON accepts a JSON string, number or null
func (a *Amount) UnmarshalJSON(data []byte) error {
	s, err := looseString(data)
	if err != nil {
		return fmt.Errorf("failed to decode amount: %w", err)
	}
	*a = Amount(s)
	return nil
}

// String returns the amount text
func (a Amount) String() string {
	return string(a)
}

// Record is a Grant-In-Aid conference/seminar record as listed by the Record API
type Record struct {
	ID               RecordID `json:"id"`
	DateOfOpened     string   `json:"dateOfOpened"`
	Subject          string   `json:"subject"`
	LetterNo         string   `json:"letterNo"`
	Dated            string   `json:"dated"`
	CommentsGivenBy  string   `json:"commentsGivenBy"`
	Comments         string   `json:"comments"`
	Status           string   `json:"status"`
	AmountSanctioned Amount   `json:"amountSanctioned"`
}

// LabelAmountSanctioned is the display label of the amount column
const LabelAmountSanctioned = "Amount Sanction (in Rs.)"

// LabeledValue is one record field with its display label
type LabeledValue struct {
	Label string
	Value string
}

// Labeled returns the record's fields in table order with their column labels
func (r Record) Labeled() []LabeledValue {
	return []LabeledValue{
		{"Date of Opened", r.DateOfOpened},
		{"Subject", r.Subject},
		{"Letter No.", r.LetterNo},
		{"Dated", r.Dated},
		{"Comments Given By", r.CommentsGivenBy},
		{"Comments", r.Comments},
		{"Status", r.Status},
		{LabelAmountSanctioned, r.AmountSanctioned.String()},
	}
}

// OpenedOn parses DateOfOpened
func (r Record) OpenedOn() (time.Time, error) {
	return ParseDay(r.DateOfOpened)
}

// ParseDay parses a YYYY-MM-DD date. Longer ISO timestamps are accepted and
// truncated to their date part.
func ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(DayLayout) {
		s = s[:len(DayLayout)]
	}
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// looseString decodes a JSON scalar into its text form
func looseString(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}
