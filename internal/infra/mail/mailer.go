// Package mail delivers verification codes over SMTP.
package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/StoryTeller-v2/back-end/internal/core/port"
	"github.com/StoryTeller-v2/back-end/internal/infra/config"
	"github.com/StoryTeller-v2/back-end/internal/infra/logger"
)

const verificationSubject = "[StoryTeller] Email verification code"

// New returns an SMTP mailer, or a LogMailer when SMTP is not configured.
func New(cfg config.MailSettings, log *zap.Logger) port.Mailer {
	if log == nil {
		log = zap.NewNop()
	}
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.From = strings.TrimSpace(cfg.From)
	cfg.Security = strings.ToLower(strings.TrimSpace(cfg.Security))
	if cfg.Security == "" {
		cfg.Security = "starttls"
	}
	if cfg.Host == "" || cfg.From == "" {
		log.Warn("mailer disabled; SMTP host or from missing, codes will only be logged")
		return &LogMailer{logger: log}
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}

	log.Info("mailer enabled",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("security", cfg.Security),
	)
	return &SMTPMailer{cfg: cfg, logger: log, dialer: &net.Dialer{Timeout: 10 * time.Second}}
}

// SMTPMailer sends plain-text mail through an SMTP relay.
type SMTPMailer struct {
	cfg    config.MailSettings
	logger *zap.Logger
	dialer *net.Dialer
}

// SendVerificationCode implements port.Mailer.
func (m *SMTPMailer) SendVerificationCode(ctx context.Context, to, code string) error {
	msg := message(m.cfg.From, to, verificationSubject, verificationBody(code))
	if err := m.send(ctx, to, msg); err != nil {
		return fmt.Errorf("send verification mail: %w", err)
	}
	m.logger.Info("verification mail sent", zap.String("to", logger.MaskEmail(to)))
	return nil
}

func (m *SMTPMailer) send(ctx context.Context, to string, msg []byte) error {
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))

	conn, err := m.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	switch m.cfg.Security {
	case "ssl", "smtps":
		conn = tls.Client(conn, &tls.Config{ServerName: m.cfg.Host, MinVersion: tls.VersionTLS12})
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer client.Close()

	if m.cfg.Security == "starttls" {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: m.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
				return err
			}
		}
	}

	if m.cfg.Username != "" && m.cfg.Password != "" {
		if err := client.Auth(smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)); err != nil {
			return err
		}
	}

	if err := client.Mail(m.cfg.From); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

// LogMailer writes codes to the log instead of sending them. Used in
// development when no SMTP relay is configured.
type LogMailer struct {
	logger *zap.Logger
}

// SendVerificationCode implements port.Mailer.
func (m *LogMailer) SendVerificationCode(_ context.Context, to, code string) error {
	m.logger.Info("verification code (mail disabled)",
		zap.String("to", logger.MaskEmail(to)),
		zap.String("code", code),
	)
	return nil
}

func verificationBody(code string) string {
	return fmt.Sprintf("Your StoryTeller verification code is %s.\n\nEnter it in the app to finish signing up. If you did not request it, ignore this message.", code)
}

func message(from, to, subject, body string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(body)
	buf.WriteString("\r\n")
	return buf.Bytes()
}
