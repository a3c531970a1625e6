package service

import (
	"context"
	"errors"

	"github.com/garyjia/grant-portal/internal/application/port"
	"github.com/garyjia/grant-portal/internal/domain/dashboard"
	"github.com/garyjia/grant-portal/internal/domain/entity"
	"github.com/garyjia/grant-portal/internal/domain/event"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// EventPublisher delivers domain events to their handlers
type EventPublisher interface {
	Dispatch(ctx context.Context, evt *event.Event) error
}

// AsyncPublisher delivers events without waiting for their handlers
type AsyncPublisher interface {
	DispatchAsync(ctx context.Context, evt *event.Event)
}

// Validation errors. Each one is reported to the user without any call to
// the Record API.
var (
	ErrCredentialsRequired = errors.New("username and password are required")
	ErrCommentRequired     = errors.New("comment is required")
	ErrAttributionRequired = errors.New("comments given by is required")
)

// User-facing messages
const (
	MsgCredentialsRequired = "Username and password are required"
	MsgLoginFailed         = "Login failed"
	MsgNetworkError        = "Network error"
	MsgCommentRequired     = "Please enter a comment before sending."
	MsgAttributionRequired = "Please enter the name in 'Comments Given By' before sending."
	MsgRangeIncomplete     = "Please select both start and end dates."
	MsgRangeInverted       = "Start date cannot be after end date."
	MsgFormSubmitted       = "Form submitted successfully!"
	MsgSubmitFailed        = "Failed to submit form"
	MsgLoadFailed          = "Records could not be loaded. Showing nothing until the next successful refresh."
)

var validationMessages = []struct {
	err error
	msg string
}{
	{ErrCredentialsRequired, MsgCredentialsRequired},
	{ErrCommentRequired, MsgCommentRequired},
	{ErrAttributionRequired, MsgAttributionRequired},
	{dashboard.ErrDateRangeIncomplete, MsgRangeIncomplete},
	{dashboard.ErrDateRangeInverted, MsgRangeInverted},
}

// Message turns any service error into text for a flash message
func Message(err error) string {
	if err == nil {
		return ""
	}
	for _, vm := range validationMessages {
		if errors.Is(err, vm.err) {
			return vm.msg
		}
	}

	var apiErr *port.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

// LoginFailureMessage returns the text shown on the login screen
func LoginFailureMessage(err error) string {
	if errors.Is(err, ErrCredentialsRequired) {
		return MsgCredentialsRequired
	}

	var apiErr *port.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return MsgLoginFailed
	}
	return MsgNetworkError
}

// SubmitFailureMessage returns the flash shown when a form submission fails
func SubmitFailureMessage(err error) string {
	var apiErr *port.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return "Error: " + apiErr.Message
		}
		return "Error: " + MsgSubmitFailed
	}
	return "Error: " + err.Error()
}

// IsValidation reports whether err was raised before any remote call
func IsValidation(err error) bool {
	for _, vm := range validationMessages {
		if errors.Is(err, vm.err) {
			return true
		}
	}
	return errors.Is(err, entity.ErrInvalidStatus) ||
		errors.Is(err, entity.ErrInvalidDate) ||
		errors.Is(err, entity.ErrInvalidAmount) ||
		errors.Is(err, entity.ErrUnknownField)
}
