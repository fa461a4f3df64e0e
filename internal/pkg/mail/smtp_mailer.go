package mail

import (
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	log "github.com/sirupsen/logrus"

	"github.com/focusgate/focusgate-server/internal/pkg/env"
)

// SendMail sends an HTML email through the configured SMTP relay. Used for
// sign-in codes and for relaying extension feedback to the team inbox.
func SendMail(to string, subject string, htmlBody string) error {
	return send(to, subject, "", htmlBody)
}

// SendTextMail sends a plain-text email. Feedback relays use this so the
// original message arrives unformatted.
func SendTextMail(to string, subject string, textBody string) error {
	return send(to, subject, textBody, "")
}

func send(to, subject, textBody, htmlBody string) error {
	host := env.GetEnv("SMTP_HOST", "")
	port := env.GetEnv("SMTP_PORT", "587")
	username := env.GetEnv("SMTP_USERNAME", "")
	password := env.GetEnv("SMTP_PASSWORD", "")
	sender := env.GetEnv("SMTP_SENDER", "")

	if host == "" {
		return errors.New("SMTP_HOST is not configured")
	}
	if sender == "" {
		sender = fmt.Sprintf("no-reply@%s", "localhost")
		log.Warnf("SMTP_SENDER not set, using default sender: %s", sender)
	}

	var auth smtp.Auth
	if username != "" && password != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	e := email.NewEmail()
	e.From = sender
	e.To = []string{strings.TrimSpace(to)}
	e.Subject = subject
	if textBody != "" {
		e.Text = []byte(textBody)
	}
	if htmlBody != "" {
		e.HTML = []byte(htmlBody)
	}

	addr := fmt.Sprintf("%s:%s", host, port)
	if err := e.Send(addr, auth); err != nil {
		log.WithError(err).WithField("to", to).Error("SMTP send failed")
		return err
	}
	log.WithField("to", to).Debugf("Email sent via %s", addr)
	return nil
}
