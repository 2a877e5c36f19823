// Package mailer sends plain-text notifications over SMTP.
package mailer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Config holds SMTP settings
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer delivers messages through an SMTP relay
type SMTPMailer struct {
	from string
	dial func() (gomail.SendCloser, error)
}

// NewSMTPMailer creates a mailer that dials the relay once per message
func NewSMTPMailer(cfg Config) *SMTPMailer {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return &SMTPMailer{from: cfg.From, dial: dialer.Dial}
}

// Send delivers one message, giving up when ctx is done
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return errors.New("no recipient specified")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	done := make(chan error, 1)
	go func() {
		done <- m.send(msg)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("smtp send abandoned: %w", ctx.Err())
	}
}

func (m *SMTPMailer) send(msg *gomail.Message) error {
	sender, err := m.dial()
	if err != nil {
		return fmt.Errorf("failed to dial smtp: %w", err)
	}
	defer sender.Close()

	if err := gomail.Send(sender, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// LogMailer writes messages to the log instead of sending them
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger.Named("mailer")}
}

// Send logs the envelope at info and the body at debug
func (m *LogMailer) Send(_ context.Context, to, subject, body string) error {
	m.logger.Info("email not sent, no SMTP host configured",
		zap.String("to", to),
		zap.String("subject", subject),
	)
	m.logger.Debug("email body", zap.String("to", to), zap.String("body", body))
	return nil
}
