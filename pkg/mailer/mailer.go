// Package mailer sends transactional email. Consumers receive a Mailer
// explicitly; there is no package-level transport.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/emersion/go-message/mail"
	"go.uber.org/zap"

	"vortexboard/configs"
	"vortexboard/pkg/logger"
)

// Message is a rendered email with plain-text and HTML alternatives.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SendFunc matches smtp.SendMail so tests can capture outgoing mail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     *mail.Address
	send     SendFunc
	now      func() time.Time
}

func NewSMTPMailer(cfg configs.SMTPConfig) (*SMTPMailer, error) {
	from, err := mail.ParseAddress(cfg.From)
	if err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", cfg.From, err)
	}
	return &SMTPMailer{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.User,
		password: cfg.Password,
		from:     from,
		send:     smtp.SendMail,
		now:      time.Now,
	}, nil
}

// WithSender replaces the SMTP transport; used by tests.
func (m *SMTPMailer) WithSender(fn SendFunc) *SMTPMailer {
	m.send = fn
	return m
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	to, err := mail.ParseAddress(msg.To)
	if err != nil {
		return fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}

	var buf bytes.Buffer
	if err := m.compose(&buf, to, msg); err != nil {
		return fmt.Errorf("compose message: %w", err)
	}

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	addr := net.JoinHostPort(m.host, strconv.Itoa(m.port))
	if err := m.send(addr, auth, m.from.Address, []string{to.Address}, buf.Bytes()); err != nil {
		return fmt.Errorf("send mail to %s: %w", to.Address, err)
	}

	logger.SystemLogger.Info("Email sent", zap.String("to", to.Address), zap.String("subject", msg.Subject))
	return nil
}

func (m *SMTPMailer) compose(w io.Writer, to *mail.Address, msg Message) error {
	var h mail.Header
	h.SetDate(m.now())
	h.SetAddressList("From", []*mail.Address{m.from})
	h.SetAddressList("To", []*mail.Address{to})
	h.SetSubject(msg.Subject)
	if err := h.GenerateMessageID(); err != nil {
		return err
	}

	mw, err := mail.CreateInlineWriter(w, h)
	if err != nil {
		return err
	}

	parts := []struct {
		contentType string
		body        string
	}{
		{"text/plain", msg.Text},
		{"text/html", msg.HTML},
	}
	for _, p := range parts {
		if p.body == "" {
			continue
		}
		var ph mail.InlineHeader
		ph.SetContentType(p.contentType, map[string]string{"charset": "utf-8"})
		pw, err := mw.CreatePart(ph)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(pw, p.body); err != nil {
			return err
		}
		if err := pw.Close(); err != nil {
			return err
		}
	}
	return mw.Close()
}

// NopMailer discards every message. Used when SMTP is not configured.
type NopMailer struct{}

func (NopMailer) Send(_ context.Context, msg Message) error {
	logger.SystemLogger.Debug("Email skipped, SMTP not configured", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

// New returns an SMTP mailer when a host is configured, otherwise NopMailer.
func New(cfg configs.SMTPConfig) (Mailer, error) {
	if cfg.Host == "" {
		return NopMailer{}, nil
	}
	return NewSMTPMailer(cfg)
}
