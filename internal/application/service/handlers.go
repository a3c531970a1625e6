package service

import (
	"context"
	"fmt"

	"github.com/garyjia/grant-portal/internal/application/port"
	"github.com/garyjia/grant-portal/internal/domain/entity"
	"github.com/garyjia/grant-portal/internal/domain/event"
)

// JournaledTypes are the events written to the write journal
var JournaledTypes = []event.Type{
	event.TypeSessionLoggedIn,
	event.TypeSessionLoggedOut,
	event.TypeLoadFailed,
	event.TypeStatusChanged,
	event.TypeCommentSent,
	event.TypeWriteFailed,
	event.TypeRecordCreated,
	event.TypeRecordExported,
}

// JournalHandler appends one journal entry per event. Inside a transaction
// the entry is written with it.
func JournalHandler(repo port.JournalRepository) func(ctx context.Context, evt *event.Event) error {
	return func(ctx context.Context, evt *event.Event) error {
		entry := &entity.JournalEntry{
			SessionID: evt.SessionID,
			LetterNo:  evt.LetterNo,
			EventType: evt.Type.String(),
			Outcome:   entity.OutcomeOK,
			Detail:    journalDetail(evt),
			CreatedAt: evt.Timestamp,
		}
		if evt.Type.IsFailure() {
			entry.Outcome = entity.OutcomeFailed
		}
		if err := repo.Create(ctx, entry); err != nil {
			return fmt.Errorf("failed to journal %s: %w", evt.Type, err)
		}
		return nil
	}
}

func journalDetail(evt *event.Event) string {
	switch evt.Type {
	case event.TypeWriteFailed:
		return evt.GetPayloadString(event.KeyAction) + ": " + evt.GetPayloadString(event.KeyError)
	case event.TypeLoadFailed:
		return evt.GetPayloadString(event.KeySite) + ": " + evt.GetPayloadString(event.KeyError)
	case event.TypeStatusChanged:
		return evt.GetPayloadString(event.KeyStatus)
	case event.TypeCommentSent:
		return "by " + evt.GetPayloadString(event.KeyBy)
	case event.TypeSessionLoggedIn:
		return evt.GetPayloadString(event.KeyUsername)
	case event.TypeRecordCreated:
		return evt.GetPayloadString(event.KeySite)
	case event.TypeRecordExported:
		return evt.GetPayloadString(event.KeyPath)
	}
	return ""
}

// LogHandler writes every event to the log
func LogHandler(logger Logger) func(ctx context.Context, evt *event.Event) error {
	return func(ctx context.Context, evt *event.Event) error {
		kv := []interface{}{
			"event_id", evt.ID,
			"event_type", evt.Type,
			"session_id", evt.SessionID,
		}
		if evt.LetterNo != "" {
			kv = append(kv, "letter_no", evt.LetterNo)
		}
		if evt.Type == event.TypeRecordsLoaded {
			kv = append(kv, "count", evt.GetPayloadInt(event.KeyCount))
		}
		if evt.Type.IsFailure() {
			logger.Error("Event", append(kv, "error", evt.GetPayloadString(event.KeyError))...)
			return nil
		}
		logger.Info("Event", kv...)
		return nil
	}
}
