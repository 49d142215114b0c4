package mail

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"

	"yamdb/config"
)

// SMTPSender delivers mail through an SMTP relay.
type SMTPSender struct {
	addr string
	host string
	auth smtp.Auth
}

func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	s := &SMTPSender{
		addr: cfg.SMTPHost + ":" + strconv.Itoa(cfg.SMTPPort),
		host: cfg.SMTPHost,
	}
	if cfg.SMTPUser != "" {
		s.auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPHost)
	}
	return s
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := encode(msg)
	if err != nil {
		return err
	}
	if err := smtp.SendMail(s.addr, s.auth, msg.From, msg.To, body); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// encode writes msg as a multipart/alternative message with a plain and an HTML part.
func encode(msg Message) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	parts := []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=\"UTF-8\"", msg.Text},
		{"text/html; charset=\"UTF-8\"", msg.HTML},
	}
	for _, p := range parts {
		if p.content == "" {
			continue
		}
		w, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {p.contentType}})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(p.content)); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	out.WriteString("From: " + msg.From + "\r\n")
	out.WriteString("To: " + strings.Join(msg.To, ", ") + "\r\n")
	out.WriteString("Subject: " + msg.Subject + "\r\n")
	out.WriteString("MIME-Version: 1.0\r\n")
	out.WriteString("Content-Type: multipart/alternative; boundary=" + mw.Boundary() + "\r\n")
	out.WriteString("\r\n")
	out.Write(body.Bytes())
	return out.Bytes(), nil
}
