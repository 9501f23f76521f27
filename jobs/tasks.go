// Package jobs wires background email dispatch over Asynq.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/linkstash/linkstash/internal/mailer"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
)

// NewSendEmailTask constructs an Asynq task carrying a rendered message.
func NewSendEmailTask(msg mailer.Message) (*asynq.Task, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// NewSendEmailHandler returns the worker-side handler delivering queued mail
// through the given sender.
func NewSendEmailHandler(logger *slog.Logger, sender mailer.Sender) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var msg mailer.Message
		if err := json.Unmarshal(t.Payload(), &msg); err != nil {
			return asynq.SkipRetry
		}
		if err := sender.Send(ctx, msg); err != nil {
			logger.Warn("email delivery failed", slog.String("to", msg.To), slog.Any("error", err))
			return err
		}
		logger.Info("email delivered", slog.String("to", msg.To), slog.String("subject", msg.Subject))
		return nil
	}
}
