package entity

import (
	"fmt"
	"strings"

	"github.com/garyjia/grant-portal/pkg/utils"
)

// Field names one input of the data entry form
type Field int

// Data entry form fields, in form order
const (
	FieldDateOpened Field = iota
	FieldSubject
	FieldLetterNo
	FieldDated
	FieldCommentsBy
	FieldComments
	FieldStatus
	FieldAmountSanctioned
)

var fieldNames = [...]string{
	FieldDateOpened:       "dateOpened",
	FieldSubject:          "subject",
	FieldLetterNo:         "letterNo",
	FieldDated:            "dated",
	FieldCommentsBy:       "commentsBy",
	FieldComments:         "comments",
	FieldStatus:           "status",
	FieldAmountSanctioned: "amountSanctioned",
}

// Fields returns every form field in form order
func Fields() []Field {
	fields := make([]Field, len(fieldNames))
	for i := range fieldNames {
		fields[i] = Field(i)
	}
	return fields
}

// String returns the field's input name, which is also its wire name
func (f Field) String() string {
	if f < 0 || int(f) >= len(fieldNames) {
		return fmt.Sprintf("Field(%d)", int(f))
	}
	return fieldNames[f]
}

// ParseField maps an input name to its Field
func ParseField(name string) (Field, error) {
	for i, n := range fieldNames {
		if n == name {
			return Field(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownField, name)
}

// RecordDraft is the data entry form's in-memory object. JSON names follow the
// Record API's creation endpoint, which differ from the list payload for the
// opened date and the attribution.
type RecordDraft struct {
	DateOpened       string `json:"dateOpened"`
	Subject          string `json:"subject"`
	LetterNo         string `json:"letterNo"`
	Dated            string `json:"dated"`
	CommentsBy       string `json:"commentsBy"`
	Comments         string `json:"comments"`
	Status           string `json:"status"`
	AmountSanctioned string `json:"amountSanctioned"`
}

// Set updates exactly one field
func (d *RecordDraft) Set(f Field, value string) error {
	p := d.field(f)
	if p == nil {
		return fmt.Errorf("%w: %s", ErrUnknownField, f)
	}
	*p = value
	return nil
}

// IsEmpty reports whether no field has been filled in
func (d RecordDraft) IsEmpty() bool {
	return d == RecordDraft{}
}

// Validate checks the optional typed fields. Empty values are always allowed.
func (d RecordDraft) Validate(statuses StatusOptions) error {
	for _, v := range []string{d.DateOpened, d.Dated} {
		if v == "" {
			continue
		}
		if err := utils.ValidateDay(v); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidDate, err)
		}
	}
	if d.AmountSanctioned != "" {
		if _, err := utils.ParseAmount(d.AmountSanctioned); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
		}
	}
	if d.Status != "" && !statuses.Contains(d.Status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, d.Status)
	}
	return nil
}

// Trimmed returns a copy with surrounding whitespace removed from every field
func (d RecordDraft) Trimmed() RecordDraft {
	for _, f := range Fields() {
		p := d.field(f)
		*p = strings.TrimSpace(*p)
	}
	return d
}

func (d *RecordDraft) field(f Field) *string {
	switch f {
	case FieldDateOpened:
		return &d.DateOpened
	case FieldSubject:
		return &d.Subject
	case FieldLetterNo:
		return &d.LetterNo
	case FieldDated:
		return &d.Dated
	case FieldCommentsBy:
		return &d.CommentsBy
	case FieldComments:
		return &d.Comments
	case FieldStatus:
		return &d.Status
	case FieldAmountSanctioned:
		return &d.AmountSanctioned
	}
	return nil
}
