package email

import (
	"context"

	"github.com/certifyapp/certnotify/internal/logger"
)

// LogSender implements Sender by logging the message instead of delivering it.
// Used for local development and dry runs.
type LogSender struct {
	log *logger.Logger
}

// NewLogSender creates a new LogSender.
func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{log: log.WithComponent("email_log_sender")}
}

// Send logs the message.
func (l *LogSender) Send(_ context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}

	l.log.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("text", msg.TextBody).
		Msg("email not sent (log provider)")
	return nil
}
