package mail

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// ConsoleSender writes messages to the log instead of delivering them.
type ConsoleSender struct {
	logger *zap.Logger
}

func NewConsoleSender(logger *zap.Logger) *ConsoleSender {
	return &ConsoleSender{logger: logger.Named("mail")}
}

func (s *ConsoleSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("Outgoing mail",
		zap.String("from", msg.From),
		zap.String("to", strings.Join(msg.To, ", ")),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Text),
	)
	return nil
}
