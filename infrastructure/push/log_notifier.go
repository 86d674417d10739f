// Package push delivers notifications to the external push channel.
package push

import (
	"challenge-chat/contract"
	"challenge-chat/domain"
	"context"
	"log/slog"
)

var _ contract.INotifier = (*LogNotifier)(nil)

// LogNotifier only logs notifications, used when no push endpoint is configured.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, user domain.UserID, title, body string, payload map[string]string) error {
	n.log.Info("Push notification", "user_id", user, "title", title, "body", body, "room_id", payload["room_id"])
	return nil
}
