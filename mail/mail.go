// Package mail delivers outgoing email through a configurable backend.
package mail

import (
	"bytes"
	"context"
	"fmt"

	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"yamdb/config"
)

// Message is one outgoing email. Text holds markdown, HTML is rendered from it.
type Message struct {
	From    string
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewSender returns the backend selected by cfg.Backend.
func NewSender(cfg config.MailConfig, logger *zap.Logger) (Sender, error) {
	switch cfg.Backend {
	case "smtp":
		return NewSMTPSender(cfg), nil
	case "", "console":
		return NewConsoleSender(logger), nil
	case "memory":
		return NewOutbox(), nil
	default:
		return nil, fmt.Errorf("unknown mail backend %q", cfg.Backend)
	}
}

// Render fills msg.HTML from the markdown in msg.Text.
func Render(msg Message) (Message, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(msg.Text), &buf); err != nil {
		return msg, fmt.Errorf("render mail body: %w", err)
	}
	msg.HTML = buf.String()
	return msg, nil
}

const confirmationTemplate = `# Confirm your registration

Hello **%s**,

your confirmation code is:

    %s

Exchange it together with your username at ` + "`POST /v1/auth/token/`" + ` to get an access token.
The code can be used once and expires in %s.
`

// ConfirmationMessage builds the signup email carrying code.
func ConfirmationMessage(from, to, username, code, validFor string) (Message, error) {
	return Render(Message{
		From:    from,
		To:      []string{to},
		Subject: "Registration confirmation",
		Text:    fmt.Sprintf(confirmationTemplate, username, code, validFor),
	})
}
