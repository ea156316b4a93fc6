package email

import (
	"context"
	"io"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"paycalc/internal/domain/payroll"
	"paycalc/internal/platform/config"
)

type noopMailer struct {
	logger *zap.Logger
}

func (n noopMailer) Send(_ context.Context, to, subject, _, attachmentName string, _ []byte) error {
	n.logger.Info("email disabled, message dropped",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("attachment", attachmentName))
	return nil
}

// SMTPMailer sends multipart messages through gomail.
type SMTPMailer struct {
	from   string
	send   func(*gomail.Message) error
	logger *zap.Logger
}

func New(cfg config.Config, logger *zap.Logger) payroll.Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.EmailEnabled || cfg.SMTPHost == "" {
		return noopMailer{logger: logger}
	}
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	return &SMTPMailer{from: cfg.EmailFrom, send: func(m *gomail.Message) error { return dialer.DialAndSend(m) }, logger: logger}
}

// NewWithSender delivers through an already connected gomail sender.
func NewWithSender(from string, sender gomail.Sender, logger *zap.Logger) *SMTPMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMTPMailer{
		from: from,
		send: func(m *gomail.Message) error {
			return gomail.Send(sender, m)
		},
		logger: logger,
	}
}

func (s *SMTPMailer) Send(ctx context.Context, to, subject, body, attachmentName string, attachment []byte) error {
	if strings.TrimSpace(to) == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.send(buildMessage(s.from, to, subject, body, attachmentName, attachment)); err != nil {
		return err
	}
	s.logger.Debug("email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

func buildMessage(from, to, subject, body, attachmentName string, attachment []byte) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	if attachmentName != "" && len(attachment) > 0 {
		msg.Attach(attachmentName, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(attachment)
			return err
		}))
	}
	return msg
}
