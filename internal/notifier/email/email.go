// Package email implements an SMTP-based email notifier
package email

import (
	"context"
	"fmt"
	"html"
	"net/smtp"
	"strings"

	"github.com/newthinker/sigrelay/internal/core"
	"github.com/newthinker/sigrelay/internal/notifier"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Email implements the Notifier interface for SMTP email
type Email struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       []string
	send     sendFunc
}

// New creates a new Email notifier
func New(host string, port int, username, password, from string, to []string) *Email {
	return &Email{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		to:       to,
		send:     smtp.SendMail,
	}
}

func (e *Email) Name() string { return "email" }

func (e *Email) Init(cfg notifier.Config) error {
	if host, ok := cfg.Params["host"].(string); ok {
		e.host = host
	}
	if port, ok := cfg.Params["port"].(int); ok {
		e.port = port
	}
	if username, ok := cfg.Params["username"].(string); ok {
		e.username = username
	}
	if password, ok := cfg.Params["password"].(string); ok {
		e.password = password
	}
	if from, ok := cfg.Params["from"].(string); ok {
		e.from = from
	}
	if to, ok := cfg.Params["to"].([]string); ok {
		e.to = to
	}

	if e.host == "" || e.from == "" || len(e.to) == 0 {
		return fmt.Errorf("email: host, from, and to are required")
	}
	if e.port == 0 {
		e.port = 587
	}
	if e.send == nil {
		e.send = smtp.SendMail
	}
	return nil
}

// Send mails the signal. net/smtp has no context support, so ctx is only
// checked before dialing.
func (e *Email) Send(ctx context.Context, signal core.EnhancedSignal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	subject := fmt.Sprintf("Signal: %s %s %s (%s)", signal.Pair, signal.Timeframe, signal.Action, signal.Strength)
	return e.sendEmail(subject, e.formatSignalHTML(signal))
}

func (e *Email) formatSignalHTML(signal core.EnhancedSignal) string {
	actionColor := "#6c757d"
	switch strings.ToUpper(signal.Action) {
	case "BUY", "LONG":
		actionColor = "#28a745"
	case "SELL", "SHORT":
		actionColor = "#dc3545"
	}

	upgrade := "no"
	if signal.Matched {
		upgrade = fmt.Sprintf("yes, expected return %.1f%%", signal.ExpectedReturn)
	}

	return fmt.Sprintf(`<html><body>
<div style="margin: 10px 0;">
  <h3 style="color: %s;">%s %s - %s</h3>
  <p><strong>Confidence:</strong> %.1f%% &rarr; %.1f%% (%+.1f%%)</p>
  <p><strong>Strength:</strong> %s</p>
  <p><strong>Pattern upgrade:</strong> %s</p>
  <p><strong>Position size:</strong> %.2f &rarr; %.2f</p>
  <p><small>%s</small></p>
</div>
</body></html>`,
		actionColor,
		html.EscapeString(signal.Pair),
		html.EscapeString(signal.Timeframe),
		html.EscapeString(signal.Action),
		signal.OriginalConfidence*100,
		signal.EnhancedConfidence*100,
		signal.ConfidenceDelta*100,
		signal.Strength,
		html.EscapeString(upgrade),
		signal.OriginalPositionSize,
		signal.EnhancedPositionSize,
		signal.Timestamp.UTC().Format("2006-01-02 15:04:05"),
	)
}

func (e *Email) sendEmail(subject, body string) error {
	addr := fmt.Sprintf("%s:%d", e.host, e.port)

	var auth smtp.Auth
	if e.username != "" {
		auth = smtp.PlainAuth("", e.username, e.password, e.host)
	}

	msg := fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: text/html; charset=UTF-8\r\n"+
		"\r\n"+
		"%s",
		e.from,
		strings.Join(e.to, ","),
		subject,
		body,
	)

	if err := e.send(addr, auth, e.from, e.to, []byte(msg)); err != nil {
		return fmt.Errorf("email: send failed: %w", err)
	}
	return nil
}
