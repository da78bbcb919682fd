package report

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Message is one report delivery.
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Notifier delivers report messages.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// =============================================================================
// EMAIL
// =============================================================================

// SMTPConfig is where EmailNotifier connects.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (c SMTPConfig) addr() string { return net.JoinHostPort(c.Host, strconv.Itoa(c.Port)) }

// EmailNotifier sends messages over SMTP.
type EmailNotifier struct {
	cfg    SMTPConfig
	logger logrus.FieldLogger

	// send is replaced in tests.
	send func(e *email.Email, addr string, auth smtp.Auth) error
}

func NewEmailNotifier(cfg SMTPConfig, logger logrus.FieldLogger) *EmailNotifier {
	return &EmailNotifier{
		cfg:    cfg,
		logger: logger,
		send:   func(e *email.Email, addr string, auth smtp.Auth) error { return e.Send(addr, auth) },
	}
}

func (n *EmailNotifier) Notify(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return errors.New("message has no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e := email.NewEmail()
	e.From = n.cfg.From
	e.To = msg.To
	e.Subject = msg.Subject
	e.Text = []byte(msg.Body)

	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}
	if err := n.send(e, n.cfg.addr(), auth); err != nil {
		n.logger.WithError(err).WithField("to", msg.To).Error("failed to send report email")
		return fmt.Errorf("failed to send report email: %w", err)
	}

	n.logger.WithFields(logrus.Fields{"to": msg.To, "subject": msg.Subject}).Info("report email sent")
	return nil
}

// =============================================================================
// LOG
// =============================================================================

// LogNotifier writes messages to the log. Used when SMTP is not configured.
type LogNotifier struct {
	logger logrus.FieldLogger
}

func NewLogNotifier(logger logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, msg Message) error {
	n.logger.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info(msg.Body)
	return nil
}
