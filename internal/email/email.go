// Package email formats the due-items digest and sends it over SMTP.
package email

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/evcraddock/churchdesk/internal/report"
)

// SMTPConfig holds SMTP connection settings.
type SMTPConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	User string `yaml:"user"`
	Pass string `yaml:"pass"`
	From string `yaml:"from"`
}

// IsConfigured returns true if SMTP settings are present.
func (c SMTPConfig) IsConfigured() bool {
	return c.Host != "" && c.From != ""
}

// Subject summarizes due for the digest subject line.
func Subject(due *report.Due) string {
	return fmt.Sprintf("Church desk: %d maintenance, %d follow-ups due by %s",
		len(due.Equipment), len(due.Followups), due.Through)
}

// FormatDigest builds a plain-text digest of everything in due, linking
// each item back to the web UI at baseURL.
func FormatDigest(due *report.Due, baseURL string) string {
	var buf bytes.Buffer
	base := strings.TrimRight(baseURL, "/")

	fmt.Fprintf(&buf, "Hello,\n\nHere is what needs attention through %s.\n\n", due.Through)

	fmt.Fprintf(&buf, "EQUIPMENT MAINTENANCE (%d)\n\n", len(due.Equipment))
	if len(due.Equipment) == 0 {
		fmt.Fprintf(&buf, "   Nothing due.\n\n")
	}
	for i, a := range due.Equipment {
		fmt.Fprintf(&buf, "%d. %s %s\n", i+1, a.Code, a.Name)
		details := []string{"due " + a.NextMaintenanceDate.String(), relative(a.DaysUntilDue)}
		if a.Location != "" {
			details = append(details, a.Location)
		}
		fmt.Fprintf(&buf, "   %s\n", strings.Join(details, " | "))
		if base != "" {
			fmt.Fprintf(&buf, "   %s/equipment/%d\n", base, a.ID)
		}
		fmt.Fprintln(&buf)
	}

	fmt.Fprintf(&buf, "VISITOR FOLLOW-UPS (%d)\n\n", len(due.Followups))
	if len(due.Followups) == 0 {
		fmt.Fprintf(&buf, "   Nothing due.\n\n")
	}
	for i, v := range due.Followups {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, v.FullName())
		details := []string{"due " + v.NextFollowupDate.String(), relative(v.DaysUntilFollowup)}
		if v.Phone != "" {
			details = append(details, v.Phone)
		}
		if v.AssignedName != "" {
			details = append(details, "assigned to "+v.AssignedName)
		}
		fmt.Fprintf(&buf, "   %s\n", strings.Join(details, " | "))
		if base != "" {
			fmt.Fprintf(&buf, "   %s/visitors/%d\n", base, v.ID)
		}
		fmt.Fprintln(&buf)
	}

	fmt.Fprintf(&buf, "Thanks!\n")

	return buf.String()
}

func relative(days *int) string {
	switch {
	case days == nil:
		return "not scheduled"
	case *days == 0:
		return "today"
	case *days > 0:
		return fmt.Sprintf("in %d days", *days)
	default:
		return fmt.Sprintf("%d days overdue", -*days)
	}
}

// Send sends an email via SMTP.
// Supports both port 465 (implicit TLS) and port 587 (STARTTLS).
func Send(cfg SMTPConfig, to []string, subject, body string) error {
	if !cfg.IsConfigured() {
		return fmt.Errorf("SMTP not configured")
	}
	if len(to) == 0 {
		return fmt.Errorf("no recipients")
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		cfg.From,
		strings.Join(to, ", "),
		subject,
		strings.ReplaceAll(body, "\n", "\r\n"),
	)

	port := cfg.Port
	if port == "" {
		port = "587"
	}
	addr := cfg.Host + ":" + port

	if port == "465" {
		return sendImplicitTLS(cfg, addr, to, msg)
	}
	return sendSTARTTLS(cfg, addr, to, msg)
}

// sendImplicitTLS connects over TLS directly (port 465/SMTPS).
func sendImplicitTLS(cfg SMTPConfig, addr string, to []string, msg string) (err error) {
	tlsCfg := &tls.Config{ServerName: cfg.Host}
	conn, err := tls.Dial("tcp", addr, tlsCfg)
	if err != nil {
		return fmt.Errorf("TLS dial: %w", err)
	}

	c, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer func() {
		if quitErr := c.Quit(); quitErr != nil && err == nil {
			err = fmt.Errorf("quit: %w", quitErr)
		}
	}()

	if cfg.User != "" {
		auth := smtp.PlainAuth("", cfg.User, cfg.Pass, cfg.Host)
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	if err := c.Mail(cfg.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt to %s: %w", rcpt, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close data: %w", err)
	}

	return nil
}

// sendSTARTTLS connects plain then upgrades to TLS (port 587).
func sendSTARTTLS(cfg SMTPConfig, addr string, to []string, msg string) error {
	var auth smtp.Auth
	if cfg.User != "" {
		auth = smtp.PlainAuth("", cfg.User, cfg.Pass, cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, cfg.From, to, []byte(msg)); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}
