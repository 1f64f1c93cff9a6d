package notify

import (
	"context"
	"errors"
	"log/slog"

	"taskchat/internal/app/policies"
)

// LogNotifier writes notifications to the log. Error notifications log at
// warn level since the failure itself is logged where it happened.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(ctx context.Context, note policies.Notification) error {
	if n.Logger == nil {
		return nil
	}
	level := slog.LevelInfo
	if note.Level == policies.LevelError {
		level = slog.LevelWarn
	}
	n.Logger.Log(ctx, level, note.Text,
		"notification", string(note.Level),
		"conversation_id", note.ConversationID,
		"at", note.At,
	)
	return nil
}

// Fanout delivers a notification to every notifier and joins their errors.
type Fanout []policies.Notifier

func (f Fanout) Notify(ctx context.Context, note policies.Notification) error {
	var errs []error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, note); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ policies.Notifier = LogNotifier{}
	_ policies.Notifier = Fanout{}
)
